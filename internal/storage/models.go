package storage

// Chunk is a page-attributed slice of a document's extracted text.
// Chunks are created by the chunker and never modified afterwards.
type Chunk struct {
	ID          string // UUIDv5 of (SourceDocID, Ordinal)
	SourceDocID string // UUIDv5 of the document bytes
	PageNumber  int    // Page the text came from (>= 0)
	Text        string // Normalized chunk text, never empty
	Ordinal     int    // Position across the whole document (0, 1, 2...)
}

// EmbeddedChunk pairs a chunk with its embedding vector.
type EmbeddedChunk struct {
	Chunk
	Embedding []float32
}

// ScoredChunk is a chunk returned from a similarity query.
type ScoredChunk struct {
	Chunk Chunk
	Score float64 // Cosine similarity in [-1, 1]
}
