package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/JoshDilipkumarPatel/AI-Powered-Narrative-Memory-System/internal/memory"
)

// NewRouter creates the Chi router with all routes and middleware. checker
// may be nil.
func NewRouter(svc *memory.Service, checker EmbeddingChecker, embeddingModel string, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(logger))
	r.Use(Recovery(logger))

	// Handlers
	healthH := NewHealthHandler(svc, checker, embeddingModel)
	memoryH := NewMemoryHandler(svc)
	indexH := NewIndexHandler(svc)

	r.Get("/health", healthH.Health)

	r.Route("/memories", func(r chi.Router) {
		r.Get("/", memoryH.List)
		r.Post("/", memoryH.Store)
		r.Post("/search", memoryH.Search)
		r.Post("/decay", memoryH.Decay)
		r.Get("/{id}", memoryH.Get)
		r.Delete("/{id}", memoryH.Delete)
	})

	r.Route("/index", func(r chi.Router) {
		r.Get("/", indexH.Stats)
		r.Post("/rebuild", indexH.Rebuild)
		r.Post("/save", indexH.Save)
		r.Post("/repair", indexH.Repair)
	})

	return r
}
