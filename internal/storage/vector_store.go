package storage

import (
	"context"
	"fmt"
	"math"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/bull/docchat/internal/embedding"
)

const (
	// DefaultLoadBatchSize is the number of chunk texts sent per embedding call during Load.
	DefaultLoadBatchSize = 32

	// DefaultLoadConcurrency bounds the number of embedding calls in flight during Load.
	DefaultLoadConcurrency = 4
)

// LoadOptions tunes how Load fans out embedding calls.
type LoadOptions struct {
	BatchSize   int
	Concurrency int
}

// VectorStore is an immutable in-memory index of embedded chunks.
// All records share the same dimension. A store is never mutated after Load
// returns, so Query may be called from any number of goroutines.
type VectorStore struct {
	dimension int
	records   []EmbeddedChunk
}

// Load embeds every chunk and builds a new VectorStore.
// Batches are embedded concurrently; results are reassembled by position so the
// resulting record order always matches the input chunk order.
// Returns ErrDimensionMismatch if the embedder produces vectors of inconsistent
// length or of a length other than its declared Dimension.
func Load(ctx context.Context, chunks []Chunk, embedder embedding.Embedder, opts LoadOptions) (*VectorStore, error) {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultLoadBatchSize
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultLoadConcurrency
	}

	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)

	for start := 0; start < len(chunks); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(chunks))

		g.Go(func() error {
			texts := make([]string, end-start)
			for i := start; i < end; i++ {
				texts[i-start] = chunks[i].Text
			}

			embeddings, err := embedder.GenerateEmbeddings(gctx, texts)
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end, err)
			}
			if len(embeddings) != len(texts) {
				return fmt.Errorf("embed chunks %d-%d: embedder returned %d vectors for %d texts",
					start, end, len(embeddings), len(texts))
			}

			// Each goroutine owns a disjoint range of vectors.
			copy(vectors[start:end], embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	dimension := embedder.Dimension()
	records := make([]EmbeddedChunk, len(chunks))
	for i, chunk := range chunks {
		vec := vectors[i]
		if dimension == 0 {
			dimension = len(vec)
		}
		if len(vec) != dimension || dimension == 0 {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, chunk.Ordinal, len(vec), dimension)
		}
		records[i] = EmbeddedChunk{Chunk: chunk, Embedding: vec}
	}

	return &VectorStore{
		dimension: dimension,
		records:   records,
	}, nil
}

// Dimension returns the embedding dimension shared by every record.
func (s *VectorStore) Dimension() int {
	return s.dimension
}

// Len returns the number of records in the store.
func (s *VectorStore) Len() int {
	return len(s.records)
}

// Records returns a copy of the stored records in load order.
func (s *VectorStore) Records() []EmbeddedChunk {
	out := make([]EmbeddedChunk, len(s.records))
	copy(out, s.records)
	return out
}

// Contains reports whether a chunk with the given ID is indexed.
func (s *VectorStore) Contains(id string) bool {
	for _, r := range s.records {
		if r.ID == id {
			return true
		}
	}
	return false
}

// Query returns the k records most similar to vector by cosine similarity,
// ordered by score descending with ties broken by ascending ordinal.
// If k exceeds the record count every record is returned.
func (s *VectorStore) Query(vector []float32, k int) ([]ScoredChunk, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", ErrInvalidArgument, k)
	}
	if len(s.records) == 0 {
		return nil, ErrEmptyStore
	}
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	results := make([]ScoredChunk, len(s.records))
	for i, r := range s.records {
		results[i] = ScoredChunk{
			Chunk: r.Chunk,
			Score: CosineSimilarity(vector, r.Embedding),
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Ordinal < results[j].Chunk.Ordinal
	})

	if k < len(results) {
		results = results[:k]
	}
	return results, nil
}

// CosineSimilarity computes dot(a,b) / (|a|*|b|).
// A zero-norm vector scores 0 against everything.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	score := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Rounding can push parallel vectors slightly past the valid range.
	return math.Max(-1, math.Min(1, score))
}
