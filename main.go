// Package main provides the entry point for Emissary.
// Emissary is a protect-aware cache replacement policy library with a
// trace-driven cache model built on Akita.
//
// For the full CLI, use: go run ./cmd/replsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("Emissary - protect-aware cache replacement")
	fmt.Println("Built on Akita simulation framework")
	fmt.Println("")
	fmt.Println("Usage: replsim run [options] <trace>")
	fmt.Println("       replsim policies")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  --policy      Replacement policy name")
	fmt.Println("  --config      Path to cache configuration JSON file")
	fmt.Println("  --level       Default cache configuration (l1i, l1d, l2, l2-core)")
	fmt.Println("  --evict-db    Record evictions in a SQLite database")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/replsim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/replsim' instead.")
	}
}
