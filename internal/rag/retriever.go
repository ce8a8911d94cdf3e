package rag

import (
	"context"
	"fmt"
	"strings"

	"github.com/bull/docchat/internal/embedding"
	"github.com/bull/docchat/internal/storage"
)

// DefaultTopK is the number of chunks retrieved per question.
const DefaultTopK = 4

// Retriever embeds a question and looks up its nearest chunks.
// The embedder must be the one the store was loaded with; vectors from a
// different embedding space are not detected.
type Retriever struct {
	embedder embedding.Embedder
	defaultK int
}

// NewRetriever creates a Retriever. A non-positive defaultK selects DefaultTopK.
func NewRetriever(embedder embedding.Embedder, defaultK int) *Retriever {
	if defaultK <= 0 {
		defaultK = DefaultTopK
	}
	return &Retriever{
		embedder: embedder,
		defaultK: defaultK,
	}
}

// Retrieve returns the k chunks of store most similar to question.
// k == 0 uses the default; k < 0 fails with ErrInvalidArgument.
func (r *Retriever) Retrieve(ctx context.Context, store *storage.VectorStore, question string, k int) ([]storage.ScoredChunk, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if k == 0 {
		k = r.defaultK
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is empty", ErrInvalidArgument)
	}

	embeddings, err := r.embedder.GenerateEmbeddings(ctx, []string{question})
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if len(embeddings) != 1 {
		return nil, fmt.Errorf("embed question: expected 1 vector, got %d", len(embeddings))
	}

	return store.Query(embeddings[0], k)
}
