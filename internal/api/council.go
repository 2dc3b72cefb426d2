package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/codyburke970/ai-council/internal/council"
	"github.com/codyburke970/ai-council/internal/gateway"
	"github.com/codyburke970/ai-council/internal/identity"
)

type askRequest struct {
	Question string `json:"question"`
}

type replyRequest struct {
	Message string `json:"message"`
}

// HandlePersonas returns the fixed persona catalog.
func (h *Handler) HandlePersonas(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"personas": h.council.Personas(),
	})
}

// HandleAsk handles POST /api/council/ask: one question fanned out to every
// persona. The response is the full council snapshot after all personas have
// resolved.
func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, string(gateway.KindInvalidInput), "invalid request body")
		return
	}

	snap, err := h.council.AskCouncil(r.Context(), userID, req.Question)
	if err != nil {
		h.councilError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// HandleReply handles POST /api/council/{personaID}/reply: a directed
// follow-up to one persona.
func (h *Handler) HandleReply(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var req replyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, string(gateway.KindInvalidInput), "invalid request body")
		return
	}

	snap, err := h.council.Reply(r.Context(), userID, chi.URLParam(r, "personaID"), req.Message)
	if err != nil {
		h.councilError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// HandleRetry handles POST /api/council/{personaID}/retry: re-sends the
// persona's recorded failed message.
func (h *Handler) HandleRetry(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	snap, err := h.council.Retry(r.Context(), userID, chi.URLParam(r, "personaID"))
	if err != nil {
		h.councilError(w, err)
		return
	}
	JSON(w, http.StatusOK, snap)
}

// HandleState returns the current council snapshot.
func (h *Handler) HandleState(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}
	JSON(w, http.StatusOK, h.council.Snapshot(userID))
}

// HandleReset drops the council session, the API equivalent of a page reload.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}
	h.council.Reset(userID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) councilError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, council.ErrEmptyMessage), errors.Is(err, council.ErrMessageTooLong):
		Error(w, http.StatusBadRequest, string(gateway.KindInvalidInput), err.Error())
	case errors.Is(err, council.ErrCouncilBusy):
		Error(w, http.StatusConflict, "COUNCIL_BUSY", err.Error())
	case errors.Is(err, council.ErrPersonaBusy):
		Error(w, http.StatusConflict, "PERSONA_BUSY", err.Error())
	case errors.Is(err, council.ErrUnknownPersona):
		Error(w, http.StatusNotFound, "UNKNOWN_PERSONA", err.Error())
	default:
		Error(w, http.StatusInternalServerError, string(gateway.KindProviderError), "failed to process request")
	}
}
