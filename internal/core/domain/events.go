package domain

import "time"

// UserRegisteredEvent represents the payload for accounts.user.registered messages.
type UserRegisteredEvent struct {
	EventID      string
	UserID       int64
	Name         string
	Email        string
	RegisteredAt time.Time
	Metadata     map[string]any
}

// UserActivatedEvent represents the payload for accounts.user.activated messages.
type UserActivatedEvent struct {
	EventID     string
	UserID      int64
	Email       string
	ActivatedAt time.Time
	Metadata    map[string]any
}

// PasswordChangedEvent represents the payload for accounts.user.password.changed messages.
type PasswordChangedEvent struct {
	EventID   string
	UserID    int64
	ChangedAt time.Time
	Metadata  map[string]any
}
