package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sarchlab/emissary/timing/cache/replacement"
)

func newRegistry() (*replacement.Registry, error) {
	registry := replacement.NewRegistry()
	if err := replacement.RegisterBuiltins(registry); err != nil {
		return nil, err
	}
	return registry, nil
}

func newPoliciesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "policies",
		Short: "List the available replacement policies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := newRegistry()
			if err != nil {
				return err
			}

			def := envOr(envPolicy, replacement.PolicyEmissary)
			for _, name := range registry.Names() {
				if name == def {
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n",
						name, color.GreenString("(default)"))
					continue
				}
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}

			return nil
		},
	}
}
