package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrEmptyStore        = errors.New("vector store is empty")
	ErrInvalidArgument   = errors.New("invalid argument")
)
