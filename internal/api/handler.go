// Package api provides HTTP handlers for the Kalnadai Care JSON API.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/kalnadai-care/internal/conversation"
	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/identity"
	"github.com/ashureev/kalnadai-care/internal/shared"
	"github.com/ashureev/kalnadai-care/internal/store"
)

// Handler provides common handler utilities.
type Handler struct {
	repo     store.Repository
	registry *conversation.Registry
	maxBody  int64
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, registry *conversation.Registry, maxBody int64) *Handler {
	if maxBody <= 0 {
		maxBody = 8 << 20
	}
	return &Handler{
		repo:     repo,
		registry: registry,
		maxBody:  maxBody,
	}
}

// MaxBody returns the request body limit in bytes.
func (h *Handler) MaxBody() int64 {
	return h.maxBody
}

// Session returns the conversation for the request's device.
func (h *Handler) Session(r *http.Request) *conversation.Session {
	ctx := r.Context()
	return h.registry.Get(identity.DeviceIDFromContext(ctx), identity.LanguageFromContext(ctx))
}

// PersistLanguage stores the device's language preference. Failures are
// logged; the in-memory toggle has already happened.
func (h *Handler) PersistLanguage(ctx context.Context, deviceID string, lang domain.Language) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()

	err := shared.RetryOnConflict(ctx, "update language", 3, 50*time.Millisecond, func(ctx context.Context) error {
		return h.repo.UpdateLanguage(ctx, deviceID, lang)
	})
	if err != nil {
		slog.Warn("Failed to persist language", "device_id", deviceID, "language", lang, "error", err)
	}
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

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBody int64, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
