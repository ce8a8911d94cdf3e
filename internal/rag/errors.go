package rag

import (
	"errors"
	"fmt"

	"github.com/bull/docchat/internal/storage"
)

var (
	// ErrNoCorpus is returned when a question is asked before any successful ingestion.
	ErrNoCorpus = errors.New("no document has been ingested")

	// ErrInvalidArgument is shared with storage so callers can match either layer.
	ErrInvalidArgument = storage.ErrInvalidArgument

	// ErrGeneration matches any *GenerationError via errors.Is.
	ErrGeneration = errors.New("generation failed")

	// ErrIngestion matches any *IngestionError via errors.Is.
	ErrIngestion = errors.New("ingestion failed")

	// ErrBlankAnswer is the cause recorded when the generator returns only whitespace.
	ErrBlankAnswer = errors.New("generator returned an empty answer")
)

// GenerationError wraps a failed Generator call. The cause is kept for diagnostics.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// IngestionError wraps a document loader failure.
type IngestionError struct {
	Name string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingest %s: %v", e.Name, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

func (e *IngestionError) Is(target error) bool { return target == ErrIngestion }
