package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/embedding"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/models"
	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/vectorstore"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
}

// writeServiceError maps service errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, memory.ErrEmptyQuery),
		errors.Is(err, memory.ErrEmptyText),
		errors.Is(err, embedding.ErrEmptyText),
		errors.Is(err, models.ErrInvalidScore),
		errors.Is(err, models.ErrMissingContent),
		errors.Is(err, vectorstore.ErrDimensionMismatch):
		return http.StatusBadRequest
	case errors.Is(err, memory.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, memory.ErrNoSnapshotPath),
		errors.Is(err, vectorstore.ErrSnapshotUnsupported),
		errors.Is(err, vectorstore.ErrNoIndex):
		return http.StatusConflict
	case errors.Is(err, memory.ErrEmbeddingUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
