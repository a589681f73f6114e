package domain

import (
	"time"
)

// Device is an anonymous browser identified by a cookie. Only the language
// preference is remembered; conversations are never persisted.
type Device struct {
	DeviceID   string    `json:"device_id"`
	Language   Language  `json:"language"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
