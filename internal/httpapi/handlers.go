// Package httpapi serves the browser-facing upload and chat endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/rag"
)

// DefaultMaxUploadBytes caps a single upload when no limit is configured.
const DefaultMaxUploadBytes = 32 << 20

// Corpus is the pipeline surface the handlers drive. *rag.Pipeline implements it.
type Corpus interface {
	IngestFile(ctx context.Context, name string, data []byte) (*rag.IngestResult, error)
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// Handler serves /api/upload and /api/chat.
type Handler struct {
	corpus         Corpus
	logger         *slog.Logger
	maxUploadBytes int64
}

// NewHandler creates a Handler. A non-positive maxUploadBytes selects DefaultMaxUploadBytes.
func NewHandler(corpus Corpus, maxUploadBytes int64, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		corpus:         corpus,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

// Register mounts the API and the landing page on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/upload", h.Upload)
	mux.HandleFunc("POST /api/chat", h.Chat)
	mux.HandleFunc("GET /{$}", NewLandingHandler())
}

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type uploadResponse struct {
	Message    string `json:"message"`
	DocumentID string `json:"documentId"`
	PageCount  int    `json:"pageCount"`
	ChunkCount int    `json:"chunkCount"`
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response      string   `json:"response"`
	Status        string   `json:"status"`
	CitedChunkIDs []string `json:"citedChunkIds"`
}

// Upload ingests the multipart file in field "pdf" (or "file") and makes it
// the active corpus.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	name, data, err := readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "File is too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please upload a PDF file", Details: err.Error()})
		return
	}

	if !document.Supported(name) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please upload a PDF file"})
		return
	}

	h.logger.Info("Processing upload", "name", name, "size", len(data))

	result, err := h.corpus.IngestFile(r.Context(), name, data)
	if err != nil {
		h.logger.Error("Failed to process upload", "name", name, "error", err)
		switch {
		case errors.Is(err, document.ErrUnsupportedFormat):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please upload a PDF file"})
		case errors.Is(err, chunker.ErrEmptyDocument):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "Document contains no extractable text"})
		default:
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to process PDF", Details: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, uploadResponse{
		Message:    "PDF processed successfully",
		DocumentID: result.DocumentID,
		PageCount:  result.PageCount,
		ChunkCount: result.ChunkCount,
	})
}

// readUpload returns the name and contents of the uploaded file.
func readUpload(r *http.Request) (string, []byte, error) {
	var (
		file   multipart.File
		header *multipart.FileHeader
		err    error
	)
	for _, field := range []string{"pdf", "file"} {
		file, header, err = r.FormFile(field)
		if err == nil {
			break
		}
		if !errors.Is(err, http.ErrMissingFile) {
			return "", nil, err
		}
	}
	if err != nil {
		return "", nil, err
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, err
	}
	return header.Filename, data, nil
}

// Chat answers {"message": "..."} against the active corpus.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required"})
		return
	}

	answer, err := h.corpus.Ask(r.Context(), req.Message)
	if err != nil {
		switch {
		case errors.Is(err, rag.ErrNoCorpus):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Please upload a PDF first"})
		case errors.Is(err, rag.ErrInvalidArgument):
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Message is required", Details: err.Error()})
		default:
			h.logger.Error("Failed to process question", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "Failed to process question", Details: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		Response:      answer.Text,
		Status:        "success",
		CitedChunkIDs: answer.CitedChunkIDs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
