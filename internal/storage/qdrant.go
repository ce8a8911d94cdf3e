package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"
)

// DefaultCollectionName is the Qdrant collection the active corpus is mirrored to.
const DefaultCollectionName = "docchat_corpus"

// QdrantMirror copies the active corpus into a Qdrant collection so external
// tools can inspect or query it. The in-memory VectorStore stays the source of
// truth for answering questions; the mirror is replaced wholesale on every ingest.
type QdrantMirror struct {
	// mu serializes Publish; interleaved recreate and upsert calls would mix corpora.
	mu sync.Mutex

	client     *qdrant.Client
	collection string
	host       string
	port       int
}

// NewQdrantMirror creates a new Qdrant client with health validation.
// It performs health check with retry on startup and fails fast if Qdrant is unreachable.
func NewQdrantMirror(ctx context.Context, host string, port int, collection string) (*QdrantMirror, error) {
	if collection == "" {
		collection = DefaultCollectionName
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	mirror := &QdrantMirror{
		client:     client,
		collection: collection,
		host:       host,
		port:       port,
	}

	if err := mirror.healthCheckWithRetry(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return mirror, nil
}

// newBackoff returns the retry schedule shared by health checks and upserts.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func newBackoff(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 10 * time.Second
	b.MaxElapsedTime = 30 * time.Second
	return backoff.WithContext(b, ctx)
}

func (m *QdrantMirror) healthCheckWithRetry(ctx context.Context) error {
	return backoff.Retry(func() error { return m.Health(ctx) }, newBackoff(ctx))
}

// Health performs a single health check against Qdrant.
func (m *QdrantMirror) Health(ctx context.Context) error {
	result, err := m.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}

	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}

	return nil
}

// Collection returns the name of the mirrored collection.
func (m *QdrantMirror) Collection() string {
	return m.collection
}

// Publish replaces the collection contents with the records of store.
// The collection is dropped and recreated with the store's dimension, then
// points are upserted in batches of 100.
func (m *QdrantMirror) Publish(ctx context.Context, store *VectorStore) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.recreateCollection(ctx, store.Dimension()); err != nil {
		return err
	}

	records := store.Records()
	batchSize := 100
	for i := 0; i < len(records); i += batchSize {
		end := min(i+batchSize, len(records))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for _, r := range records[i:end] {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(r.ID),
				Vectors: qdrant.NewVectorsDense(r.Embedding),
				Payload: qdrant.NewValueMap(map[string]any{
					"source_doc_id": r.SourceDocID,
					"page_number":   r.PageNumber,
					"ordinal":       r.Ordinal,
					"text":          r.Text,
				}),
			})
		}

		if err := m.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// recreateCollection drops the collection if present and creates it with cosine distance.
func (m *QdrantMirror) recreateCollection(ctx context.Context, dimension int) error {
	exists, err := m.client.CollectionExists(ctx, m.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		if err := m.client.DeleteCollection(ctx, m.collection); err != nil {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
	}

	err = m.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: m.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	_, err = m.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: m.collection,
		FieldName:      "source_doc_id",
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("failed to create index for field source_doc_id: %w", err)
	}

	return nil
}

// upsertWithRetry performs upsert operation with exponential backoff retry.
func (m *QdrantMirror) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	operation := func() error {
		_, err := m.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: m.collection,
			Points:         points,
		})
		return err
	}

	return backoff.Retry(operation, newBackoff(ctx))
}

// PointsCount returns the number of points currently in the mirrored collection.
func (m *QdrantMirror) PointsCount(ctx context.Context) (uint64, error) {
	info, err := m.client.GetCollectionInfo(ctx, m.collection)
	if err != nil {
		return 0, fmt.Errorf("failed to get collection: %w", err)
	}
	return info.GetPointsCount(), nil
}

// Close closes the Qdrant client connection.
func (m *QdrantMirror) Close() error {
	if m.client != nil {
		return m.client.Close()
	}
	return nil
}
