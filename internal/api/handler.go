// Package api provides HTTP handlers for the splitkit API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/averline/splitkit/internal/experiment"
	"github.com/averline/splitkit/internal/flags"
	"github.com/go-chi/chi/v5"
)

// Handler provides the flag and experiment endpoints.
type Handler struct {
	engine *flags.Engine
	exp    *experiment.Service
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(engine *flags.Engine, exp *experiment.Service) *Handler {
	return &Handler{
		engine: engine,
		exp:    exp,
	}
}

// RegisterRoutes mounts the API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/flags", h.ListFlags)
		r.Get("/flags/{name}", h.GetFlag)

		r.Route("/experiments/{experimentID}", func(r chi.Router) {
			r.Post("/assign", h.AssignVariant)
			r.Post("/expose", h.TrackExposure)
			r.Get("/assignment", h.GetAssignment)
			r.Post("/guardrails", h.CheckGuardrails)
		})
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
