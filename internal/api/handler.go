// Package api provides HTTP handlers for the AI Council API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codyburke970/ai-council/internal/council"
	"github.com/codyburke970/ai-council/internal/gateway"
	"github.com/codyburke970/ai-council/internal/store"
)

// maxRequestBodySize is the maximum allowed request body size (1MB).
const maxRequestBodySize = 1 << 20

// Handler serves the council HTTP API.
type Handler struct {
	gw      council.Sender
	council *council.Council
	repo    store.Repository
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(gw council.Sender, c *council.Council, repo store.Repository) *Handler {
	return &Handler{gw: gw, council: c, repo: repo}
}

// RegisterRoutes registers all API routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/chat", h.HandleChat)
	r.Get("/api/personas", h.HandlePersonas)
	r.Get("/api/health", h.HandleHealth)

	r.Route("/api/council", func(r chi.Router) {
		r.Post("/ask", h.HandleAsk)
		r.Get("/state", h.HandleState)
		r.Post("/reset", h.HandleReset)
		r.Post("/{personaID}/reply", h.HandleReply)
		r.Post("/{personaID}/retry", h.HandleRetry)
	})

	r.Route("/api/profile", func(r chi.Router) {
		r.Get("/", h.HandleGetProfile)
		r.Put("/", h.HandleSaveProfile)
		r.Delete("/", h.HandleDeleteProfile)
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

// Error writes a JSON error response carrying a machine-readable code.
func Error(w http.ResponseWriter, status int, code, message string) {
	JSON(w, status, map[string]string{"error": message, "code": code})
}

// statusForKind maps a gateway error kind to its HTTP status.
func statusForKind(kind gateway.ErrorKind) int {
	switch kind {
	case gateway.KindInvalidInput:
		return http.StatusBadRequest
	case gateway.KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
