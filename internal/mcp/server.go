package mcp

import (
	"context"

	ghclient "github.com/bull/docchat/internal/github"
	"github.com/bull/docchat/internal/rag"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Corpus is the pipeline surface the tools drive. *rag.Pipeline implements it.
type Corpus interface {
	IngestFile(ctx context.Context, name string, data []byte) (*rag.IngestResult, error)
	Ask(ctx context.Context, question string) (*rag.Answer, error)
	Status() rag.Status
}

// FileFetcher downloads documents from GitHub.
type FileFetcher interface {
	FetchFile(ctx context.Context, src ghclient.Source) (*ghclient.FetchedFile, error)
}

// Mirror reports on the Qdrant copy of the corpus.
type Mirror interface {
	Collection() string
	PointsCount(ctx context.Context) (uint64, error)
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	corpus Corpus
}

// Config holds server dependencies. GitHub and Mirror may be nil.
type Config struct {
	Corpus Corpus
	GitHub FileFetcher
	Mirror Mirror
	// AllowLocalFiles lets ingest_document read from the server filesystem.
	AllowLocalFiles bool
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "docchat",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Load a PDF, markdown or text document and make it the active corpus, replacing any previous one. Provide a GitHub reference, a local path, or inline content.",
	}, makeIngestHandler(cfg.Corpus, cfg.GitHub, cfg.AllowLocalFiles))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "ask_question",
		Description: "Answer a question using only the active document. Returns the answer and the chunks it was based on.",
	}, makeAskHandler(cfg.Corpus))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_corpus_status",
		Description: "Get the currently active document, its page and chunk counts, and the state of the Qdrant mirror.",
	}, makeStatusHandler(cfg.Corpus, cfg.Mirror))

	return &Server{
		server: server,
		corpus: cfg.Corpus,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
