package rag

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/embedding"
	"github.com/bull/docchat/internal/storage"
)

// DefaultPublishTimeout bounds a single Publish call.
const DefaultPublishTimeout = 2 * time.Minute

// Publisher receives every newly activated store, e.g. to mirror it elsewhere.
type Publisher interface {
	Publish(ctx context.Context, store *storage.VectorStore) error
}

// Pipeline wires loading, chunking, embedding, and answering together for the
// transports. It owns one Session.
type Pipeline struct {
	session      *Session
	chunker      *chunker.Chunker
	embedder     embedding.Embedder
	orchestrator *Orchestrator
	publisher    Publisher
	logger       *slog.Logger

	// publishMu orders publishes so the last one to run is for the active store.
	publishMu      sync.Mutex
	publishTimeout time.Duration
}

// NewPipeline creates a new pipeline with the given components. publisher may be nil.
func NewPipeline(
	session *Session,
	c *chunker.Chunker,
	embedder embedding.Embedder,
	orchestrator *Orchestrator,
	publisher Publisher,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		session:        session,
		chunker:        c,
		embedder:       embedder,
		orchestrator:   orchestrator,
		publisher:      publisher,
		logger:         logger,
		publishTimeout: DefaultPublishTimeout,
	}
}

// Session returns the pipeline's session.
func (p *Pipeline) Session() *Session {
	return p.session
}

// IngestFile loads a raw upload and ingests it. Loader failures, including
// unsupported formats, are returned as *IngestionError.
func (p *Pipeline) IngestFile(ctx context.Context, name string, data []byte) (*IngestResult, error) {
	doc, err := document.Load(ctx, name, data)
	if err != nil {
		return nil, &IngestionError{Name: name, Err: err}
	}
	p.logger.Debug("Loaded document", "name", name, "size", len(data), "pages", len(doc.Pages))
	return p.IngestDocument(ctx, doc)
}

// IngestDocument ingests an already loaded document and publishes the new store.
// A publish failure is logged and does not fail the ingest.
func (p *Pipeline) IngestDocument(ctx context.Context, doc *document.Document) (*IngestResult, error) {
	result, err := p.session.Ingest(ctx, doc, p.chunker, p.embedder)
	if err != nil {
		p.logger.Warn("Failed to ingest document", "name", doc.Name, "error", err)
		return nil, err
	}

	if p.publisher != nil {
		p.publish(ctx, result)
	}

	return result, nil
}

// publish mirrors result.Store unless a newer ingest has already replaced it.
// It outlives ctx cancellation so a disconnected caller cannot leave the
// mirror half written.
func (p *Pipeline) publish(ctx context.Context, result *IngestResult) {
	p.publishMu.Lock()
	defer p.publishMu.Unlock()

	if p.session.Store() != result.Store {
		p.logger.Debug("Skipping publish of superseded corpus", "name", result.Name)
		return
	}

	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.publishTimeout)
	defer cancel()

	if err := p.publisher.Publish(pctx, result.Store); err != nil {
		p.logger.Warn("Failed to publish corpus", "name", result.Name, "error", err)
	}
}

// Ask answers question against the active corpus.
func (p *Pipeline) Ask(ctx context.Context, question string) (*Answer, error) {
	return p.session.Ask(ctx, question, p.orchestrator)
}

// Status reports the active corpus. Ready is false before the first ingest.
func (p *Pipeline) Status() Status {
	return p.session.Status()
}
