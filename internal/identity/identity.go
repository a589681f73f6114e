// Package identity provides anonymous per-device identity primitives.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/ashureev/kalnadai-care/internal/domain"
	"github.com/ashureev/kalnadai-care/internal/i18n"
	"github.com/ashureev/kalnadai-care/internal/shared"
	"github.com/ashureev/kalnadai-care/internal/store"
)

const (
	DeviceCookieName   = "kalnadai_device_id"
	deviceCookieMaxAge = 30 * 24 * time.Hour
)

type contextKey int

const (
	deviceIDKey contextKey = iota
	languageKey
)

var deviceIDPattern = regexp.MustCompile(`^device_[a-f0-9]{32}$`)

// DeviceIDFromContext extracts the device ID from the request context.
func DeviceIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(deviceIDKey).(string); ok {
		return v
	}
	return ""
}

// LanguageFromContext returns the device's stored language, or the default
// language when none is known.
func LanguageFromContext(ctx context.Context) domain.Language {
	if v, ok := ctx.Value(languageKey).(domain.Language); ok && v.Valid() {
		return v
	}
	return domain.DefaultLanguage
}

// WithDevice returns ctx carrying deviceID and lang. It is used by tests and
// by callers that establish identity outside the middleware.
func WithDevice(ctx context.Context, deviceID string, lang domain.Language) context.Context {
	ctx = context.WithValue(ctx, deviceIDKey, deviceID)
	return context.WithValue(ctx, languageKey, lang)
}

func generateDeviceID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate device id: %w", err)
	}
	return "device_" + hex.EncodeToString(buf), nil
}

func isValidDeviceID(id string) bool {
	return deviceIDPattern.MatchString(id)
}

// ensureDevice returns the device's stored language, creating the record with
// a negotiated language on first sight.
func ensureDevice(ctx context.Context, repo store.Repository, deviceID string, negotiated domain.Language) (domain.Language, error) {
	var device *domain.Device
	err := shared.RetryOnConflict(ctx, "get device", 3, 50*time.Millisecond, func(ctx context.Context) error {
		var getErr error
		device, getErr = repo.GetDevice(ctx, deviceID)
		return getErr
	})
	if err != nil {
		return "", err
	}

	now := time.Now()
	if device != nil {
		if err := shared.RetryOnConflict(ctx, "update last seen", 3, 50*time.Millisecond, func(ctx context.Context) error {
			return repo.UpdateLastSeen(ctx, deviceID, now)
		}); err != nil {
			slog.Warn("Failed to update device last seen", "device_id", deviceID, "error", err)
		}
		return device.Language, nil
	}

	err = shared.RetryOnConflict(ctx, "create device", 3, 50*time.Millisecond, func(ctx context.Context) error {
		return repo.UpsertDevice(ctx, &domain.Device{
			DeviceID:   deviceID,
			Language:   negotiated,
			LastSeenAt: now,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	})
	if err != nil {
		return "", err
	}
	return negotiated, nil
}

func setDeviceCookie(w http.ResponseWriter, id string, isDev bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     DeviceCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(deviceCookieMaxAge.Seconds()),
		Expires:  time.Now().Add(deviceCookieMaxAge),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   !isDev,
	})
}

func getOrCreateDeviceID(w http.ResponseWriter, r *http.Request, isDev bool) (string, error) {
	if c, err := r.Cookie(DeviceCookieName); err == nil && isValidDeviceID(c.Value) {
		setDeviceCookie(w, c.Value, isDev)
		return c.Value, nil
	}

	id, err := generateDeviceID()
	if err != nil {
		return "", err
	}
	setDeviceCookie(w, id, isDev)
	return id, nil
}

// Middleware injects the anonymous device identity and its stored language.
// New devices start in the language negotiated from Accept-Language, falling
// back to defaultLang.
func Middleware(repo store.Repository, isDev bool, defaultLang domain.Language) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			deviceID, err := getOrCreateDeviceID(w, r, isDev)
			if err != nil {
				http.Error(w, `{"error":"failed to establish device identity"}`, http.StatusInternalServerError)
				return
			}

			negotiated := i18n.Negotiate(r.Header.Get("Accept-Language"), defaultLang)
			lang, err := ensureDevice(r.Context(), repo, deviceID, negotiated)
			if err != nil {
				slog.Error("Failed to initialize device", "device_id", deviceID, "error", err)
				http.Error(w, `{"error":"failed to initialize device"}`, http.StatusInternalServerError)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithDevice(r.Context(), deviceID, lang)))
		})
	}
}
