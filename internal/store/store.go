// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/kalnadai-care/internal/domain"
)

// Repository persists per-device preferences.
type Repository interface {
	// GetDevice retrieves a device by ID. It returns nil, nil when the device
	// is unknown.
	GetDevice(ctx context.Context, deviceID string) (*domain.Device, error)

	// UpsertDevice creates or updates a device record.
	UpsertDevice(ctx context.Context, device *domain.Device) error

	// UpdateLastSeen updates the last_seen_at timestamp for a device.
	UpdateLastSeen(ctx context.Context, deviceID string, lastSeen time.Time) error

	// UpdateLanguage stores the device's selected language.
	UpdateLanguage(ctx context.Context, deviceID string, lang domain.Language) error

	// DeleteStaleDevices removes devices not seen for longer than olderThan.
	DeleteStaleDevices(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
