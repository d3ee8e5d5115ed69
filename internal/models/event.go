package models

import "time"

// Event represents a loggable user action.
type Event struct {
	ID        string    `json:"id" db:"id"`
	UserID    *int64    `json:"userId,omitempty" db:"user_id"` // Nullable for system-wide events
	Type      string    `json:"type" db:"type"`                 // e.g., "property.create", "user.signup"
	Level     string    `json:"level" db:"level"`               // e.g., "info", "warn", "error"
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}
