package rag

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/docchat/internal/chunker"
	"github.com/bull/docchat/internal/document"
	"github.com/bull/docchat/internal/storage"
)

// keywordEmbedder maps text onto three axes by counting topic words.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (e *keywordEmbedder) GenerateEmbeddings(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		lower := strings.ToLower(t)
		out[i] = []float32{
			float32(strings.Count(lower, "cat")) + 0.01,
			float32(strings.Count(lower, "dog")),
			float32(strings.Count(lower, "bird")),
		}
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int { return 3 }

type fakeGenerator struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	block   bool
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, prompt)
	g.mu.Unlock()
	if g.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return g.reply, g.err
}

func (g *fakeGenerator) lastPrompt() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.prompts) == 0 {
		return ""
	}
	return g.prompts[len(g.prompts)-1]
}

type fakePublisher struct {
	mu        sync.Mutex
	published []*storage.VectorStore
	ctxErrs   []error
	deadlines []bool
	err       error
}

func (p *fakePublisher) Publish(ctx context.Context, store *storage.VectorStore) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, store)
	p.ctxErrs = append(p.ctxErrs, ctx.Err())
	_, ok := ctx.Deadline()
	p.deadlines = append(p.deadlines, ok)
	return p.err
}

// hookHandler runs hook for every "Ingested document" record, after the
// session has swapped in the new store.
type hookHandler struct {
	hook func(name string)
}

func (h *hookHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *hookHandler) Handle(_ context.Context, r slog.Record) error {
	if r.Message != "Ingested document" {
		return nil
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "name" {
			h.hook(a.Value.String())
			return false
		}
		return true
	})
	return nil
}

func (h *hookHandler) WithAttrs([]slog.Attr) slog.Handler { return h }

func (h *hookHandler) WithGroup(string) slog.Handler { return h }

func namedDoc(id, name string, pages ...string) *document.Document {
	doc := textDoc(pages...)
	doc.ID = id
	doc.Name = name
	return doc
}

func newTestPipeline(t *testing.T, gen *fakeGenerator, pub Publisher) (*Pipeline, *keywordEmbedder) {
	t.Helper()
	emb := &keywordEmbedder{}
	orch := NewOrchestrator(OrchestratorConfig{
		Retriever: NewRetriever(emb, 2),
		Generator: gen,
		Timeout:   time.Second,
	})
	session := NewSession(storage.LoadOptions{BatchSize: 2, Concurrency: 2}, nil)
	return NewPipeline(session, chunker.New(40, 0), emb, orch, pub, nil), emb
}

func textDoc(pages ...string) *document.Document {
	doc := &document.Document{ID: "doc-1", Name: "test.txt"}
	for i, p := range pages {
		doc.Pages = append(doc.Pages, document.Page{Number: i + 1, Text: p})
	}
	return doc
}

func TestAsk_NoCorpus(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)

	_, err := p.Ask(context.Background(), "anything?")
	assert.ErrorIs(t, err, ErrNoCorpus)
	assert.False(t, p.Status().Ready)
}

func TestAsk_CitesRetrievedChunks(t *testing.T) {
	gen := &fakeGenerator{reply: "  Cats purr.  "}
	p, _ := newTestPipeline(t, gen, nil)

	_, err := p.IngestDocument(context.Background(), textDoc(
		"The cat sat on the mat.",
		"A dog barked at the mailman.",
		"A bird sang in the tree.",
	))
	require.NoError(t, err)

	answer, err := p.Ask(context.Background(), "What does the cat do?")
	require.NoError(t, err)

	assert.Equal(t, "Cats purr.", answer.Text)
	require.Len(t, answer.CitedChunkIDs, 2)
	store := p.Session().Store()
	for _, id := range answer.CitedChunkIDs {
		assert.True(t, store.Contains(id), "cited id %s not in store", id)
	}
	assert.Equal(t, 1, answer.Sources[0].Chunk.PageNumber)
	assert.Contains(t, gen.lastPrompt(), "[Page 1] The cat sat on the mat.")
	assert.True(t, strings.HasSuffix(gen.lastPrompt(), "Question: What does the cat do?\nHelpful Answer:"))
}

func TestAsk_GenerationFailures(t *testing.T) {
	tests := []struct {
		name  string
		gen   *fakeGenerator
		cause error
	}{
		{"error", &fakeGenerator{err: errors.New("boom")}, nil},
		{"blank", &fakeGenerator{reply: " \n\t"}, ErrBlankAnswer},
		{"timeout", &fakeGenerator{block: true}, context.DeadlineExceeded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			emb := &keywordEmbedder{}
			orch := NewOrchestrator(OrchestratorConfig{
				Retriever: NewRetriever(emb, 0),
				Generator: tt.gen,
				Timeout:   20 * time.Millisecond,
			})
			session := NewSession(storage.LoadOptions{}, nil)
			_, err := session.Ingest(context.Background(), textDoc("The cat sat."), chunker.New(0, 0), emb)
			require.NoError(t, err)

			_, err = session.Ask(context.Background(), "cat?", orch)
			require.Error(t, err)

			var genErr *GenerationError
			assert.ErrorAs(t, err, &genErr)
			assert.ErrorIs(t, err, ErrGeneration)
			if tt.cause != nil {
				assert.ErrorIs(t, err, tt.cause)
			}
		})
	}
}

func TestAsk_InvalidQuestion(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)
	_, err := p.IngestDocument(context.Background(), textDoc("The cat sat."))
	require.NoError(t, err)

	_, err = p.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRetrieve_NegativeK(t *testing.T) {
	emb := &keywordEmbedder{}
	session := NewSession(storage.LoadOptions{}, nil)
	_, err := session.Ingest(context.Background(), textDoc("The cat sat."), chunker.New(0, 0), emb)
	require.NoError(t, err)

	_, err = NewRetriever(emb, 0).Retrieve(context.Background(), session.Store(), "cat", -1)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRetrieve_KLargerThanStore(t *testing.T) {
	emb := &keywordEmbedder{}
	session := NewSession(storage.LoadOptions{}, nil)
	_, err := session.Ingest(context.Background(), textDoc("The cat sat.", "The dog ran."), chunker.New(0, 0), emb)
	require.NoError(t, err)

	results, err := NewRetriever(emb, 0).Retrieve(context.Background(), session.Store(), "cat", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "The cat sat.", results[0].Chunk.Text)
}

func TestIngest_EmptyDocumentKeepsPreviousStore(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)
	_, err := p.IngestDocument(context.Background(), textDoc("The cat sat."))
	require.NoError(t, err)
	before := p.Session().Store()

	_, err = p.IngestDocument(context.Background(), textDoc("   ", "\n\n"))
	assert.ErrorIs(t, err, chunker.ErrEmptyDocument)
	assert.Same(t, before, p.Session().Store())
}

func TestIngest_EmbedderFailureKeepsPreviousStore(t *testing.T) {
	p, emb := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)
	_, err := p.IngestDocument(context.Background(), textDoc("The cat sat."))
	require.NoError(t, err)
	before := p.Session().Store()

	emb.err = errors.New("quota")
	_, err = p.IngestDocument(context.Background(), textDoc("The dog ran."))
	assert.Error(t, err)
	assert.Same(t, before, p.Session().Store())
}

func TestIngest_ReingestBuildsNewStore(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)
	doc := textDoc("The cat sat.", "The dog ran.")

	first, err := p.IngestDocument(context.Background(), doc)
	require.NoError(t, err)
	second, err := p.IngestDocument(context.Background(), doc)
	require.NoError(t, err)

	assert.NotSame(t, first.Store, second.Store)
	assert.Same(t, second.Store, p.Session().Store())
	assert.Equal(t, first.Store.Records(), second.Store.Records())
}

func TestIngestFile(t *testing.T) {
	pub := &fakePublisher{}
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, pub)

	result, err := p.IngestFile(context.Background(), "notes.txt", []byte("The cat sat.\fThe dog ran."))
	require.NoError(t, err)
	assert.Equal(t, 2, result.PageCount)
	assert.Equal(t, 2, result.ChunkCount)
	assert.Equal(t, 3, result.Dimension)
	assert.Equal(t, document.DocumentID([]byte("The cat sat.\fThe dog ran.")), result.DocumentID)
	require.Len(t, pub.published, 1)
	assert.Same(t, result.Store, pub.published[0])

	status := p.Status()
	assert.True(t, status.Ready)
	assert.Equal(t, "notes.txt", status.Name)
	assert.Equal(t, 2, status.ChunkCount)
}

func TestIngestFile_UnsupportedFormat(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, nil)

	_, err := p.IngestFile(context.Background(), "slides.pptx", []byte("data"))
	assert.ErrorIs(t, err, ErrIngestion)
	assert.ErrorIs(t, err, document.ErrUnsupportedFormat)
	assert.Nil(t, p.Session().Store())
}

func TestIngestFile_PublishFailureIsNotFatal(t *testing.T) {
	pub := &fakePublisher{err: errors.New("qdrant down")}
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "x"}, pub)

	_, err := p.IngestFile(context.Background(), "notes.txt", []byte("The cat sat."))
	require.NoError(t, err)
	assert.NotNil(t, p.Session().Store())
}

func TestAsk_UsesSingleSnapshotDuringConcurrentIngest(t *testing.T) {
	p, _ := newTestPipeline(t, &fakeGenerator{reply: "ok"}, nil)
	_, err := p.IngestDocument(context.Background(), textDoc("The cat sat."))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, err := p.IngestDocument(context.Background(), textDoc("The dog ran.", "The bird flew."))
			assert.NoError(t, err)
		}()
		go func() {
			defer wg.Done()
			answer, err := p.Ask(context.Background(), "cat?")
			if assert.NoError(t, err) {
				// All cited chunks come from one store generation.
				texts := make([]string, len(answer.Sources))
				for i, s := range answer.Sources {
					texts[i] = s.Chunk.Text
				}
				joined := strings.Join(texts, "|")
				assert.False(t, strings.Contains(joined, "cat") && strings.Contains(joined, "dog"), joined)
			}
		}()
	}
	wg.Wait()
}

func TestBuildPrompt(t *testing.T) {
	chunks := []storage.ScoredChunk{
		{Chunk: storage.Chunk{PageNumber: 3, Text: "second best"}, Score: 0.5},
		{Chunk: storage.Chunk{PageNumber: 1, Text: "best"}, Score: 0.9},
	}

	prompt := BuildPrompt(chunks, "  why?  ")

	assert.True(t, strings.HasPrefix(prompt, promptHeader))
	assert.Less(t, strings.Index(prompt, "[Page 3] second best"), strings.Index(prompt, "[Page 1] best"))
	assert.True(t, strings.HasSuffix(prompt, "\n\nQuestion: why?\nHelpful Answer:"))
}

func TestErrors(t *testing.T) {
	cause := errors.New("cause")

	gen := error(&GenerationError{Err: cause})
	assert.ErrorIs(t, gen, ErrGeneration)
	assert.ErrorIs(t, gen, cause)
	assert.NotErrorIs(t, gen, ErrIngestion)

	ing := error(&IngestionError{Name: "a.pdf", Err: cause})
	assert.ErrorIs(t, ing, ErrIngestion)
	assert.ErrorIs(t, ing, cause)
	assert.Contains(t, ing.Error(), "a.pdf")
}

// newInterleavedPipeline holds the ingest of a.txt right after its store swap
// until b.txt has been fully ingested.
func newInterleavedPipeline(t *testing.T, pub Publisher) (*Pipeline, func() (*IngestResult, *IngestResult)) {
	t.Helper()
	entered := make(chan struct{})
	release := make(chan struct{})
	logger := slog.New(&hookHandler{hook: func(name string) {
		if name == "a.txt" {
			close(entered)
			<-release
		}
	}})

	emb := &keywordEmbedder{}
	orch := NewOrchestrator(OrchestratorConfig{
		Retriever: NewRetriever(emb, 1),
		Generator: &fakeGenerator{reply: "ok"},
	})
	session := NewSession(storage.LoadOptions{}, logger)
	p := NewPipeline(session, chunker.New(0, 0), emb, orch, pub, logger)

	run := func() (*IngestResult, *IngestResult) {
		var a *IngestResult
		done := make(chan struct{})
		go func() {
			defer close(done)
			var err error
			a, err = p.IngestDocument(context.Background(), namedDoc("doc-a", "a.txt", "The cat sat."))
			assert.NoError(t, err)
		}()

		<-entered
		b, err := p.IngestDocument(context.Background(), namedDoc("doc-b", "b.txt", "The dog ran."))
		require.NoError(t, err)
		close(release)
		<-done
		return a, b
	}
	return p, run
}

func TestIngest_StatusFollowsActiveStore(t *testing.T) {
	p, run := newInterleavedPipeline(t, nil)

	_, b := run()

	store := p.Session().Store()
	assert.Same(t, b.Store, store)
	status := p.Status()
	assert.Equal(t, "doc-b", status.DocumentID)
	assert.Equal(t, "b.txt", status.Name)
	for _, r := range store.Records() {
		assert.Equal(t, status.DocumentID, r.SourceDocID)
	}
}

func TestIngest_SupersededStoreIsNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	p, run := newInterleavedPipeline(t, pub)

	_, b := run()

	require.Len(t, pub.published, 1)
	assert.Same(t, b.Store, pub.published[0])
	assert.Same(t, p.Session().Store(), pub.published[0])
}

func TestIngest_PublishOutlivesCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := slog.New(&hookHandler{hook: func(string) { cancel() }})

	emb := &keywordEmbedder{}
	pub := &fakePublisher{}
	orch := NewOrchestrator(OrchestratorConfig{Retriever: NewRetriever(emb, 0), Generator: &fakeGenerator{reply: "ok"}})
	p := NewPipeline(NewSession(storage.LoadOptions{}, logger), chunker.New(0, 0), emb, orch, pub, logger)

	_, err := p.IngestDocument(ctx, textDoc("The cat sat."))
	require.NoError(t, err)

	require.Error(t, ctx.Err())
	require.Len(t, pub.published, 1)
	assert.NoError(t, pub.ctxErrs[0])
	assert.True(t, pub.deadlines[0], "publish must be bounded by its own timeout")
}

func TestAnswer_EmptyStoreErrorPropagates(t *testing.T) {
	emb := &keywordEmbedder{}
	gen := &fakeGenerator{reply: "unused"}
	orch := NewOrchestrator(OrchestratorConfig{Retriever: NewRetriever(emb, 0), Generator: gen})

	session := NewSession(storage.LoadOptions{}, nil)
	session.current.Store(&corpus{store: &storage.VectorStore{}, status: Status{Ready: true}})

	_, err := session.Ask(context.Background(), "cat?", orch)
	assert.ErrorIs(t, err, storage.ErrEmptyStore)
	assert.NotErrorIs(t, err, ErrGeneration)
	assert.Empty(t, gen.prompts)
}
