package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/codyburke970/ai-council/internal/domain"
	"github.com/codyburke970/ai-council/internal/gateway"
	"github.com/codyburke970/ai-council/internal/identity"
)

// HandleGetProfile returns the device's stored profile, 404 when none exists.
func (h *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	profile, err := h.repo.GetProfile(r.Context(), userID)
	if err != nil {
		slog.Error("failed to load profile", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to load profile")
		return
	}
	if profile == nil {
		Error(w, http.StatusNotFound, "PROFILE_NOT_FOUND", "no profile saved")
		return
	}
	JSON(w, http.StatusOK, profile)
}

// HandleSaveProfile overwrites the device's profile wholesale and returns the
// saved record with its refreshed LastUpdated stamp.
func (h *Handler) HandleSaveProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	var profile domain.UserProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		Error(w, http.StatusBadRequest, string(gateway.KindInvalidInput), "invalid request body")
		return
	}

	if err := h.repo.SaveProfile(r.Context(), userID, &profile); err != nil {
		slog.Error("failed to save profile", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to save profile")
		return
	}
	JSON(w, http.StatusOK, profile)
}

// HandleDeleteProfile removes the device's profile record.
func (h *Handler) HandleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing identity")
		return
	}

	if err := h.repo.DeleteProfile(r.Context(), userID); err != nil {
		slog.Error("failed to delete profile", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "STORAGE_ERROR", "failed to delete profile")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
