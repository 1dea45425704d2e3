package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
)

type MemoryHandler struct {
	svc *memory.Service
}

func NewMemoryHandler(svc *memory.Service) *MemoryHandler {
	return &MemoryHandler{svc: svc}
}

// List handles GET /memories
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.MemoryListResponse{Memories: records, Total: len(records)})
}

// Store handles POST /memories
func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req models.IngestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	resp, err := h.svc.Ingest(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusCreated
	if resp.Deduplicated {
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// Search handles POST /memories/search
func (h *MemoryHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.TopK < 0 {
		writeError(w, http.StatusBadRequest, "topK must not be negative")
		return
	}

	resp, err := h.svc.Retrieve(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /memories/{id}
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /memories/{id}
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Decay handles POST /memories/decay
func (h *MemoryHandler) Decay(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.RunDecayCycle(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}
