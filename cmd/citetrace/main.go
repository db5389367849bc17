// Package main provides the citetrace command line tool for inspecting how a
// PDF is indexed into citable chunks, without the API or worker running.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "citetrace",
	Short: "Inspect provenance indexing of PDF documents",
	Long:  "citetrace indexes a PDF into sentence chunks with stable indices and prints either the full chunk records or the bracket-tagged citable text reviewers see.",
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
