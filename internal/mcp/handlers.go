package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	ghclient "github.com/bull/docchat/internal/github"
	"github.com/bull/docchat/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// makeIngestHandler creates the ingest_document tool handler.
func makeIngestHandler(corpus Corpus, fetcher FileFetcher, allowLocal bool) func(
	context.Context, *mcp.CallToolRequest, IngestDocumentInput,
) (*mcp.CallToolResult, IngestDocumentOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input IngestDocumentInput) (
		*mcp.CallToolResult, IngestDocumentOutput, error,
	) {
		name, data, err := resolveSource(ctx, input, fetcher, allowLocal)
		if err != nil {
			return nil, IngestDocumentOutput{}, err
		}

		result, err := corpus.IngestFile(ctx, name, data)
		if err != nil {
			return nil, IngestDocumentOutput{}, fmt.Errorf("ingest failed: %w", err)
		}

		return nil, IngestDocumentOutput{
			DocumentID: result.DocumentID,
			Name:       result.Name,
			PageCount:  result.PageCount,
			ChunkCount: result.ChunkCount,
			Message:    fmt.Sprintf("Processed %d pages into %d chunks", result.PageCount, result.ChunkCount),
		}, nil
	}
}

// resolveSource returns the file name and bytes named by exactly one of the input sources.
func resolveSource(ctx context.Context, input IngestDocumentInput, fetcher FileFetcher, allowLocal bool) (string, []byte, error) {
	given := 0
	for _, set := range []bool{input.GitHub != "", input.Path != "", input.Content != ""} {
		if set {
			given++
		}
	}
	if given != 1 {
		return "", nil, errors.New("provide exactly one of github, path, or content")
	}

	switch {
	case input.GitHub != "":
		if fetcher == nil {
			return "", nil, errors.New("github ingestion is not configured")
		}
		src, err := ghclient.ParseSource(input.GitHub)
		if err != nil {
			return "", nil, err
		}
		file, err := fetcher.FetchFile(ctx, src)
		if err != nil {
			return "", nil, err
		}
		return file.Name, file.Content, nil

	case input.Path != "":
		if !allowLocal {
			return "", nil, errors.New("local file ingestion is disabled")
		}
		data, err := os.ReadFile(input.Path)
		if err != nil {
			return "", nil, fmt.Errorf("read %s: %w", input.Path, err)
		}
		return filepath.Base(input.Path), data, nil

	default:
		name := input.Name
		if name == "" {
			name = "inline.md"
		}
		return name, []byte(input.Content), nil
	}
}

// makeAskHandler creates the ask_question tool handler.
func makeAskHandler(corpus Corpus) func(
	context.Context, *mcp.CallToolRequest, AskQuestionInput,
) (*mcp.CallToolResult, AskQuestionOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input AskQuestionInput) (
		*mcp.CallToolResult, AskQuestionOutput, error,
	) {
		answer, err := corpus.Ask(ctx, input.Question)
		if err != nil {
			if errors.Is(err, rag.ErrNoCorpus) {
				return nil, AskQuestionOutput{}, errors.New("no document loaded: call ingest_document first")
			}
			return nil, AskQuestionOutput{}, err
		}

		sources := make([]Source, len(answer.Sources))
		for i, s := range answer.Sources {
			sources[i] = Source{
				ChunkID:    s.Chunk.ID,
				PageNumber: s.Chunk.PageNumber,
				Score:      s.Score,
				Text:       s.Chunk.Text,
			}
		}

		return nil, AskQuestionOutput{
			Answer:        answer.Text,
			CitedChunkIDs: answer.CitedChunkIDs,
			Sources:       sources,
		}, nil
	}
}

// makeStatusHandler creates the get_corpus_status tool handler.
// A mirror that cannot be reached is reported, not treated as a tool error.
func makeStatusHandler(corpus Corpus, mirror Mirror) func(
	context.Context, *mcp.CallToolRequest, CorpusStatusInput,
) (*mcp.CallToolResult, CorpusStatusOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input CorpusStatusInput) (
		*mcp.CallToolResult, CorpusStatusOutput, error,
	) {
		status := corpus.Status()

		out := CorpusStatusOutput{
			Ready:      status.Ready,
			DocumentID: status.DocumentID,
			Name:       status.Name,
			PageCount:  status.PageCount,
			ChunkCount: status.ChunkCount,
			Dimension:  status.Dimension,
			Mirror:     "disabled",
		}
		if status.Ready {
			ingestedAt := status.IngestedAt
			out.IngestedAt = &ingestedAt
		} else {
			out.Message = "No document loaded. Use ingest_document first."
		}

		if mirror != nil {
			points, err := mirror.PointsCount(ctx)
			if err != nil {
				out.Mirror = "unavailable"
			} else {
				out.Mirror = mirror.Collection()
				out.MirrorPoints = &points
			}
		}

		return nil, out, nil
	}
}
