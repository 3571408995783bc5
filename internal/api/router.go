package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxRequestBody bounds POST bodies; mosaic requests are a few fields.
const maxRequestBody = 1 << 16

// NewRouter creates and configures the HTTP router with all routes and middleware.
func NewRouter(h *Handlers, logger *slog.Logger) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(RequestIDResponse)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(logger))
	if h.metrics != nil {
		r.Use(h.metrics.Middleware)
	}
	r.Use(Recovery(logger))
	r.Use(middleware.Compress(5))
	r.Use(ContentTypeJSON)
	r.Use(MaxBodySize(maxRequestBody))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "Content-Length"},
		ExposedHeaders:   []string{"Link", "Location", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", h.Health)
	r.Get("/metrics", h.Metrics)

	r.Get("/products/{name}", h.Product)
	r.Get("/collection", h.Collection)

	r.Route("/mosaics", func(r chi.Router) {
		r.Get("/", h.ListMosaics)
		r.Post("/", h.CreateMosaic)
		r.Get("/{id}", h.Mosaic)
		r.Get("/{id}/bursts", h.Bursts)
		r.Get("/{id}/gcps", h.GCPs)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		WriteNotFound(w, "endpoint not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "MethodNotAllowed", "method not allowed")
	})

	return r
}
