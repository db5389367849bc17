package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/citetrace/citetrace/internal/core/domain"
	"github.com/citetrace/citetrace/internal/infrastructure/chunking"
	"github.com/citetrace/citetrace/internal/infrastructure/pdftext"
	"github.com/citetrace/citetrace/internal/infrastructure/storage/localfs"
)

var indexCmd = &cobra.Command{
	Use:   "index <file.pdf>",
	Short: "Index a PDF and print its chunk records as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

var indexTimeout time.Duration

func init() {
	indexCmd.Flags().DurationVar(&indexTimeout, "timeout", 2*time.Minute, "Maximum time to spend extracting and indexing")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	chunks, err := indexFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(chunks)
}

// indexFile runs the same extraction and indexing pipeline the worker uses,
// against a local file instead of managed object storage.
func indexFile(parent context.Context, path string) ([]domain.TextChunk, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}

	storage, err := localfs.New(filepath.Dir(abs))
	if err != nil {
		return nil, fmt.Errorf("open directory: %w", err)
	}

	ctx, cancel := context.WithTimeout(parent, indexTimeout)
	defer cancel()

	doc := &domain.Document{
		ID:          filepath.Base(abs),
		Filename:    filepath.Base(abs),
		StoragePath: filepath.Base(abs),
	}
	pages, err := pdftext.NewSource(storage).Pages(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("extract pages: %w", err)
	}

	return chunking.IndexDocument(chunking.NewSentenceIndexer(), pages), nil
}
