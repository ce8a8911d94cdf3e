package rag

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bull/docchat/internal/generation"
	"github.com/bull/docchat/internal/storage"
)

// Answer is a generated reply plus the chunks it was grounded on.
type Answer struct {
	Text          string
	CitedChunkIDs []string              // In retrieval order
	Sources       []storage.ScoredChunk // Same order as CitedChunkIDs
}

// OrchestratorConfig holds orchestrator dependencies.
type OrchestratorConfig struct {
	Retriever *Retriever
	Generator generation.Generator
	// TopK overrides the retriever default when positive.
	TopK int
	// Timeout bounds each Generator call; zero means no limit beyond ctx.
	Timeout time.Duration
	Logger  *slog.Logger
}

// Orchestrator answers questions by retrieving chunks and conditioning a
// single Generator call on them. It never retries.
type Orchestrator struct {
	retriever *Retriever
	generator generation.Generator
	topK      int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewOrchestrator creates an Orchestrator from cfg.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		retriever: cfg.Retriever,
		generator: cfg.Generator,
		topK:      max(cfg.TopK, 0),
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Answer answers question from the session's current corpus.
// The store is read once, so a concurrent ingest cannot change the corpus
// mid-answer. Errors from retrieval are returned unchanged; any Generator
// failure, including a blank reply, becomes a *GenerationError.
func (o *Orchestrator) Answer(ctx context.Context, session *Session, question string) (*Answer, error) {
	store := session.Store()
	if store == nil {
		return nil, ErrNoCorpus
	}

	start := time.Now()
	results, err := o.retriever.Retrieve(ctx, store, question, o.topK)
	if err != nil {
		return nil, err
	}

	prompt := BuildPrompt(results, question)

	genCtx := ctx
	if o.timeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	text, err := o.generator.Generate(genCtx, prompt)
	if err != nil {
		o.logger.Warn("Generation failed", "error", err)
		return nil, &GenerationError{Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return nil, &GenerationError{Err: ErrBlankAnswer}
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.Chunk.ID
	}

	o.logger.Info("Answered question",
		"chunks", len(results),
		"prompt_chars", len(prompt),
		"duration", time.Since(start),
	)

	return &Answer{
		Text:          strings.TrimSpace(text),
		CitedChunkIDs: ids,
		Sources:       results,
	}, nil
}
