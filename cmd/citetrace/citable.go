package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/citetrace/citetrace/internal/core/domain"
)

var citableCmd = &cobra.Command{
	Use:   "citable <file.pdf>",
	Short: "Print the bracket-tagged citable text of a PDF",
	Long:  "Print the document exactly as reviewers see it: one line per chunk, prefixed with its stable [index] tag.",
	Args:  cobra.ExactArgs(1),
	RunE:  runCitable,
}

func init() {
	citableCmd.Flags().DurationVar(&indexTimeout, "timeout", 2*time.Minute, "Maximum time to spend extracting and indexing")
	rootCmd.AddCommand(citableCmd)
}

func runCitable(cmd *cobra.Command, args []string) error {
	chunks, err := indexFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return fmt.Errorf("no text chunks found in %s", args[0])
	}
	fmt.Println(domain.CitableDocument(chunks))
	return nil
}
