package api

import (
	"context"
	"net/http"
	"time"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

// EmbeddingChecker probes the embedding provider.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	svc     *memory.Service
	checker EmbeddingChecker
	model   string
	started time.Time
}

// NewHealthHandler builds the handler. checker may be nil when the provider
// cannot be probed.
func NewHealthHandler(svc *memory.Service, checker EmbeddingChecker, model string) *HealthHandler {
	return &HealthHandler{svc: svc, checker: checker, model: model, started: time.Now()}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	idx := h.svc.IndexStatus()
	resp := models.HealthResponse{
		Status:       "ok",
		IndexSize:    idx.Size,
		IndexEngine:  idx.Engine,
		Backend:      h.svc.BackendName(),
		Degraded:     !idx.Built,
		UptimeSecond: int64(time.Since(h.started).Seconds()),
	}

	// Check embedding provider
	resp.Embedding = models.ServiceCheck{Status: "unchecked", Model: h.model}
	if h.checker != nil {
		if err := h.checker.HealthCheck(ctx); err != nil {
			resp.Embedding = models.ServiceCheck{Status: "error", Model: h.model, Error: err.Error()}
			resp.Status = "degraded"
		} else {
			resp.Embedding.Status = "ok"
		}
	}

	// Check store
	count, err := h.svc.Count(ctx)
	if err != nil {
		resp.Store = models.ServiceCheck{Status: "error", Error: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Store = models.ServiceCheck{Status: "ok"}
		resp.MemoryCount = count
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
