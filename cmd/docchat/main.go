// Package main provides the docchat CLI for asking questions about a document.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/docchat/internal/app"
	"github.com/bull/docchat/internal/config"
	"github.com/bull/docchat/internal/logging"
	"github.com/bull/docchat/internal/rag"
)

var (
	configPath string
	filePath   string
	githubRef  string
	showSource bool
)

var rootCmd = &cobra.Command{
	Use:   "docchat",
	Short: "Ask questions about a PDF, markdown or text document",
	Long: `Loads one document, indexes it in memory, and answers questions using only its content.

The document comes from --file (a local .pdf, .md or .txt) or --github
(owner/repo/path/to/file.md[@ref]).

Environment variables:
  OPENAI_API_KEY  API key for embeddings and chat (or set OPENAI_BASE_URL)
  OPENAI_BASE_URL OpenAI-compatible endpoint, e.g. http://localhost:11434/v1 for Ollama
  QDRANT_ENABLED  Mirror the indexed chunks to Qdrant (default: false)
  GITHUB_TOKEN    GitHub token for higher rate limits (optional)`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.PersistentFlags().StringVarP(&filePath, "file", "f", "", "local document to load")
	rootCmd.PersistentFlags().StringVar(&githubRef, "github", "", "GitHub document owner/repo/path[@ref]")
	rootCmd.PersistentFlags().BoolVar(&showSource, "sources", false, "print the chunks each answer was based on")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// validateSource requires exactly one of --file and --github.
func validateSource(file, github string) error {
	switch {
	case file == "" && github == "":
		return errors.New("one of --file or --github is required")
	case file != "" && github != "":
		return errors.New("--file and --github are mutually exclusive")
	}
	return nil
}

// setup loads configuration, builds the app, and ingests the selected document.
func setup(ctx context.Context) (*app.App, error) {
	if err := validateSource(filePath, githubRef); err != nil {
		return nil, err
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	// Keep stdout for answers.
	logger := logging.Init(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var result *rag.IngestResult
	if githubRef != "" {
		result, err = a.IngestGitHub(ctx, githubRef)
	} else {
		var data []byte
		data, err = os.ReadFile(filePath)
		if err == nil {
			result, err = a.Pipeline.IngestFile(ctx, filepath.Base(filePath), data)
		}
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to load document: %w", err)
	}

	fmt.Fprintf(os.Stderr, "Loaded %s: %d pages, %d chunks\n", result.Name, result.PageCount, result.ChunkCount)
	return a, nil
}
