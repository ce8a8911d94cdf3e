package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/rag"
)

type fakeCorpus struct {
	gotName   string
	gotData   []byte
	ingestErr error
	answer    *rag.Answer
	askErr    error
}

func (c *fakeCorpus) IngestFile(_ context.Context, name string, data []byte) (*rag.IngestResult, error) {
	c.gotName, c.gotData = name, data
	if c.ingestErr != nil {
		return nil, c.ingestErr
	}
	return &rag.IngestResult{DocumentID: "doc-1", Name: name, PageCount: 3, ChunkCount: 7}, nil
}

func (c *fakeCorpus) Ask(context.Context, string) (*rag.Answer, error) {
	return c.answer, c.askErr
}

func newServer(t *testing.T, corpus Corpus, maxBytes int64) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	NewHandler(corpus, maxBytes, nil).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestUpload(t *testing.T) {
	for _, field := range []string{"pdf", "file"} {
		t.Run(field, func(t *testing.T) {
			corpus := &fakeCorpus{}
			server := newServer(t, corpus, 0)

			body, contentType := multipartBody(t, field, "report.pdf", []byte("%PDF-1.4"))
			resp, err := http.Post(server.URL+"/api/upload", contentType, body)
			require.NoError(t, err)

			assert.Equal(t, http.StatusOK, resp.StatusCode)
			out := decode(t, resp)
			assert.Equal(t, "PDF processed successfully", out["message"])
			assert.Equal(t, float64(3), out["pageCount"])
			assert.Equal(t, float64(7), out["chunkCount"])
			assert.Equal(t, "report.pdf", corpus.gotName)
			assert.Equal(t, []byte("%PDF-1.4"), corpus.gotData)
		})
	}
}

func TestUpload_Errors(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		filename   string
		ingestErr  error
		wantStatus int
		wantError  string
	}{
		{"missing file", "other", "a.pdf", nil, http.StatusBadRequest, "Please upload a PDF file"},
		{"unsupported extension", "pdf", "slides.pptx", nil, http.StatusBadRequest, "Please upload a PDF file"},
		{"empty document", "pdf", "blank.pdf", fmt.Errorf("%w: blank.pdf", chunker.ErrEmptyDocument), http.StatusUnprocessableEntity, "Document contains no extractable text"},
		{"unsupported from loader", "pdf", "a.pdf", &rag.IngestionError{Name: "a.pdf", Err: document.ErrUnsupportedFormat}, http.StatusBadRequest, "Please upload a PDF file"},
		{"embedding failure", "pdf", "a.pdf", errors.New("quota exceeded"), http.StatusInternalServerError, "Failed to process PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, &fakeCorpus{ingestErr: tt.ingestErr}, 0)

			body, contentType := multipartBody(t, tt.field, tt.filename, []byte("data"))
			resp, err := http.Post(server.URL+"/api/upload", contentType, body)
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			assert.Equal(t, tt.wantError, decode(t, resp)["error"])
		})
	}
}

func TestUpload_TooLarge(t *testing.T) {
	corpus := &fakeCorpus{}
	h := NewHandler(corpus, 1024, nil)

	body, contentType := multipartBody(t, "pdf", "big.pdf", bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	h.Upload(rec, req)

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.Empty(t, corpus.gotName)
}

func TestChat(t *testing.T) {
	corpus := &fakeCorpus{answer: &rag.Answer{Text: "It rains.", CitedChunkIDs: []string{"c1", "c2"}}}
	server := newServer(t, corpus, 0)

	resp, err := http.Post(server.URL+"/api/chat", "application/json", strings.NewReader(`{"message":"Weather?"}`))
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	out := decode(t, resp)
	assert.Equal(t, "It rains.", out["response"])
	assert.Equal(t, "success", out["status"])
	assert.Equal(t, []any{"c1", "c2"}, out["citedChunkIds"])
}

func TestChat_Errors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		askErr     error
		wantStatus int
		wantError  string
	}{
		{"invalid json", `{`, nil, http.StatusBadRequest, "Message is required"},
		{"blank message", `{"message":"  "}`, nil, http.StatusBadRequest, "Message is required"},
		{"no corpus", `{"message":"q"}`, rag.ErrNoCorpus, http.StatusBadRequest, "Please upload a PDF first"},
		{"generation failure", `{"message":"q"}`, &rag.GenerationError{Err: errors.New("timeout")}, http.StatusInternalServerError, "Failed to process question"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newServer(t, &fakeCorpus{askErr: tt.askErr}, 0)

			resp, err := http.Post(server.URL+"/api/chat", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)

			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			out := decode(t, resp)
			assert.Equal(t, tt.wantError, out["error"])
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Contains(t, out["details"], "timeout")
			}
		})
	}
}

func TestLanding(t *testing.T) {
	server := newServer(t, &fakeCorpus{}, 0)

	resp, err := http.Get(server.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(server.URL + "/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(server.URL + "/api/chat")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}
