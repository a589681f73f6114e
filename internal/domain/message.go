package domain

import (
	"time"
)

// Role identifies who authored a message.
type Role string

const (
	// RoleUser marks a message typed, spoken or uploaded by the farmer.
	RoleUser Role = "user"
	// RoleModel marks a reply produced by the advisory service.
	RoleModel Role = "model"
)

// Message is one turn in the conversation. Messages are immutable once
// appended to a conversation.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Image     string    `json:"image,omitempty"` // data URI, user messages only
	Timestamp time.Time `json:"timestamp"`
}

// HasImage returns true if the message carries an uploaded image.
func (m Message) HasImage() bool {
	return m.Image != ""
}
