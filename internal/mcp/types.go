// Package mcp exposes the document Q&A pipeline as MCP tools.
package mcp

import "time"

// IngestDocumentInput defines the input parameters for the ingest_document tool.
// Exactly one source must be given: GitHub, Path, or Name with Content.
type IngestDocumentInput struct {
	// GitHub is a file reference of the form owner/repo/path[@ref].
	GitHub string `json:"github,omitempty" jsonschema:"GitHub file reference owner/repo/path/to/file.md[@ref]"`
	// Path is a file on the server's local filesystem.
	Path string `json:"path,omitempty" jsonschema:"Path to a local .pdf, .md or .txt file readable by the server"`
	// Name is the file name for inline Content; its extension selects the loader.
	Name string `json:"name,omitempty" jsonschema:"File name for inline content (e.g. notes.md)"`
	// Content is inline markdown or plain text.
	Content string `json:"content,omitempty" jsonschema:"Inline markdown or plain text document content"`
}

// IngestDocumentOutput reports the newly active corpus.
type IngestDocumentOutput struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	PageCount  int    `json:"page_count"`
	ChunkCount int    `json:"chunk_count"`
	Message    string `json:"message"`
}

// AskQuestionInput defines the input parameters for the ask_question tool.
type AskQuestionInput struct {
	Question string `json:"question" jsonschema:"The question to answer from the ingested document"`
}

// AskQuestionOutput contains the generated answer and its grounding.
type AskQuestionOutput struct {
	Answer        string   `json:"answer"`
	CitedChunkIDs []string `json:"cited_chunk_ids"`
	Sources       []Source `json:"sources"`
}

// Source is one retrieved chunk an answer was conditioned on.
type Source struct {
	ChunkID    string  `json:"chunk_id"`
	PageNumber int     `json:"page_number"`
	Score      float64 `json:"score"`
	Text       string  `json:"text"`
}

// CorpusStatusInput takes no parameters.
type CorpusStatusInput struct{}

// CorpusStatusOutput describes the active corpus and its mirror.
type CorpusStatusOutput struct {
	Ready      bool       `json:"ready"`
	DocumentID string     `json:"document_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	PageCount  int        `json:"page_count"`
	ChunkCount int        `json:"chunk_count"`
	Dimension  int        `json:"dimension"`
	IngestedAt *time.Time `json:"ingested_at,omitempty"`
	// Mirror is "disabled", "unavailable", or the Qdrant collection name.
	Mirror       string  `json:"mirror"`
	MirrorPoints *uint64 `json:"mirror_points,omitempty"`
	Message      string  `json:"message,omitempty"`
}
