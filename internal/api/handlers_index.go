package api

import (
	"net/http"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
)

// IndexHandler exposes index maintenance.
type IndexHandler struct {
	svc *memory.Service
}

func NewIndexHandler(svc *memory.Service) *IndexHandler {
	return &IndexHandler{svc: svc}
}

// Stats handles GET /index
func (h *IndexHandler) Stats(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Rebuild handles POST /index/rebuild
func (h *IndexHandler) Rebuild(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Rebuild(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Save handles POST /index/save
func (h *IndexHandler) Save(w http.ResponseWriter, r *http.Request) {
	path, err := h.svc.SaveIndex(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"path": path, "index": h.svc.IndexStatus()})
}

// Repair handles POST /index/repair
func (h *IndexHandler) Repair(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.Repair(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
