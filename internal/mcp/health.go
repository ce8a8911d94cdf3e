package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/bull/docchat/internal/rag"
)

// HealthResponse represents the JSON response from the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Corpus    string `json:"corpus"`
	Qdrant    string `json:"qdrant"`
	Timestamp string `json:"timestamp"`
}

// HealthChecker interface defines the health check dependency.
// The Qdrant mirror implements this via its Health() method.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// StatusProvider reports whether a corpus is loaded.
type StatusProvider interface {
	Status() rag.Status
}

// NewHealthHandler creates an HTTP handler for the /health endpoint.
// An empty corpus is healthy; only an enabled but unreachable mirror is not.
// mirror may be nil when Qdrant is disabled.
func NewHealthHandler(corpus StatusProvider, mirror HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := HealthResponse{
			Status:    "healthy",
			Corpus:    "empty",
			Qdrant:    "disabled",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		}
		if corpus.Status().Ready {
			response.Corpus = "ready"
		}

		code := http.StatusOK
		if mirror != nil {
			if err := mirror.Health(ctx); err != nil {
				response.Status = "unhealthy"
				response.Qdrant = "disconnected"
				code = http.StatusServiceUnavailable
			} else {
				response.Qdrant = "connected"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(response)
	}
}
