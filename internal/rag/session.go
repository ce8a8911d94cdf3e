package rag

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/embedding"
	"github.com/bull/docchat/internal/storage"
)

// IngestResult describes a successful ingestion.
type IngestResult struct {
	DocumentID string
	Name       string
	PageCount  int
	ChunkCount int
	Dimension  int
	Duration   time.Duration
	Store      *storage.VectorStore
}

// Status summarizes the active corpus.
type Status struct {
	Ready      bool
	DocumentID string
	Name       string
	PageCount  int
	ChunkCount int
	Dimension  int
	IngestedAt time.Time
}

// corpus pairs a store with the status describing it. Both are swapped as one value.
type corpus struct {
	store  *storage.VectorStore
	status Status
}

// Session holds the single active corpus. It is the only mutable state in the
// question-answering path: Ingest swaps in a freshly built store, and readers
// keep using whichever store they fetched. Concurrent ingests are not
// serialized; the last one to finish wins.
type Session struct {
	current  atomic.Pointer[corpus]
	loadOpts storage.LoadOptions
	logger   *slog.Logger
}

// NewSession creates an empty session. loadOpts tunes embedding fan-out during Ingest.
func NewSession(loadOpts storage.LoadOptions, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		loadOpts: loadOpts,
		logger:   logger,
	}
}

// Store returns the active store, or nil before the first successful ingest.
func (s *Session) Store() *storage.VectorStore {
	if c := s.current.Load(); c != nil {
		return c.store
	}
	return nil
}

// Status describes the active store. Ready is false before the first ingest.
func (s *Session) Status() Status {
	if c := s.current.Load(); c != nil {
		return c.status
	}
	return Status{}
}

// Ingest chunks and embeds doc into a new store and makes it the active corpus.
// On any error the previous store stays active.
func (s *Session) Ingest(ctx context.Context, doc *document.Document, c *chunker.Chunker, embedder embedding.Embedder) (*IngestResult, error) {
	start := time.Now()

	chunks, err := c.Chunk(doc)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Chunked document", "name", doc.Name, "pages", len(doc.Pages), "chunks", len(chunks))

	store, err := storage.Load(ctx, chunks, embedder, s.loadOpts)
	if err != nil {
		return nil, err
	}

	result := &IngestResult{
		DocumentID: doc.ID,
		Name:       doc.Name,
		PageCount:  len(doc.Pages),
		ChunkCount: store.Len(),
		Dimension:  store.Dimension(),
		Duration:   time.Since(start),
		Store:      store,
	}
	s.current.Store(&corpus{
		store: store,
		status: Status{
			Ready:      true,
			DocumentID: result.DocumentID,
			Name:       result.Name,
			PageCount:  result.PageCount,
			ChunkCount: result.ChunkCount,
			Dimension:  result.Dimension,
			IngestedAt: time.Now().UTC(),
		},
	})

	s.logger.Info("Ingested document",
		"name", doc.Name,
		"document_id", doc.ID,
		"pages", result.PageCount,
		"chunks", result.ChunkCount,
		"duration", result.Duration,
	)
	return result, nil
}

// Ask answers question against the active corpus using o.
func (s *Session) Ask(ctx context.Context, question string, o *Orchestrator) (*Answer, error) {
	return o.Answer(ctx, s, question)
}
