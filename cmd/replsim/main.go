// Package main provides replsim, a trace-driven cache simulator for comparing
// replacement policies.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// Environment variables that provide flag defaults. They may also be set in
// a .env file in the working directory.
const (
	envPolicy   = "EMISSARY_POLICY"
	envConfig   = "EMISSARY_CONFIG"
	envLogLevel = "EMISSARY_LOG_LEVEL"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Error loading .env: %v\n", err)
		atexit.Exit(1)
	}

	if err := newRootCommand().Execute(); err != nil {
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "replsim",
		Short: "Replay memory traces through a cache with a chosen replacement policy",
		Long: `replsim replays a memory access trace through a set-associative cache
model and reports hit rate, evictions and the decisions of the
replacement policy.`,
		SilenceUsage: true,
	}

	root.AddCommand(newRunCommand())
	root.AddCommand(newPoliciesCommand())

	return root
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
