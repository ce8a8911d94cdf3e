// Package app assembles the question-answering pipeline from configuration.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/config"
	"github.com/bull/docchat/internal/embedding"
	"github.com/bull/docchat/internal/generation"
	ghclient "github.com/bull/docchat/internal/github"
	"github.com/bull/docchat/internal/rag"
	"github.com/bull/docchat/internal/storage"
)

// App holds the wired components shared by the server and the CLI.
type App struct {
	Pipeline *rag.Pipeline
	// Mirror is nil when Qdrant is disabled.
	Mirror  *storage.QdrantMirror
	Fetcher *ghclient.Fetcher
	Logger  *slog.Logger
}

// New builds every component named by cfg. Connecting to Qdrant, when
// enabled, retries for a bounded time and then fails.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	client, err := embedding.NewClient(embedding.ClientConfig{
		APIKey:  cfg.OpenAI.APIKey,
		BaseURL: cfg.OpenAI.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenAI client: %w", err)
	}

	embedder := embedding.NewOpenAIEmbedder(client, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.EmbeddingDimension, 0)
	generator := generation.NewOpenAIGenerator(client.Client(), generation.Options{
		Model:       cfg.OpenAI.ChatModel,
		Temperature: cfg.OpenAI.ChatTemperature,
		MaxTokens:   cfg.OpenAI.ChatMaxTokens,
	})

	orchestrator := rag.NewOrchestrator(rag.OrchestratorConfig{
		Retriever: rag.NewRetriever(embedder, cfg.Retrieval.TopK),
		Generator: generator,
		Timeout:   cfg.OpenAI.GenerationTimeout,
		Logger:    logger,
	})

	session := rag.NewSession(storage.LoadOptions{
		BatchSize:   cfg.Retrieval.EmbedBatchSize,
		Concurrency: cfg.Retrieval.EmbedConcurrency,
	}, logger)

	a := &App{Logger: logger}

	// A nil *QdrantMirror must not reach the pipeline as a non-nil Publisher.
	var publisher rag.Publisher
	if cfg.Qdrant.Enabled {
		mirror, err := storage.NewQdrantMirror(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
		}
		a.Mirror = mirror
		publisher = mirror
		logger.Info("Mirroring corpus to Qdrant",
			"host", cfg.Qdrant.Host,
			"port", cfg.Qdrant.Port,
			"collection", mirror.Collection(),
		)
	}

	gh, err := ghclient.NewClient(ctx, cfg.GitHubToken)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	a.Fetcher = ghclient.NewFetcher(gh)

	a.Pipeline = rag.NewPipeline(
		session,
		chunker.New(cfg.Chunking.MaxRunes, cfg.Chunking.OverlapRunes),
		embedder,
		orchestrator,
		publisher,
		logger,
	)
	return a, nil
}

// IngestGitHub fetches a file referenced as owner/repo/path[@ref] and ingests it.
func (a *App) IngestGitHub(ctx context.Context, ref string) (*rag.IngestResult, error) {
	src, err := ghclient.ParseSource(ref)
	if err != nil {
		return nil, err
	}
	file, err := a.Fetcher.FetchFile(ctx, src)
	if err != nil {
		return nil, err
	}
	a.Logger.Info("Fetched document from GitHub", "source", src.String(), "sha", file.SHA, "size", len(file.Content))
	return a.Pipeline.IngestFile(ctx, file.Name, file.Content)
}

// Close releases the Qdrant connection, if any.
func (a *App) Close() error {
	if a.Mirror == nil {
		return nil
	}
	return a.Mirror.Close()
}
