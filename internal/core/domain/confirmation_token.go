package domain

import (
	"fmt"
	"time"
)

// ConfirmationTokenTTL is the validity window of a confirmation token,
// fixed at creation time.
const ConfirmationTokenTTL = time.Hour

// ConfirmationToken is single-use proof of email ownership, owned by a User.
type ConfirmationToken struct {
	ID          int64
	UserID      int64
	Token       string
	CreatedAt   time.Time
	ExpiresAt   time.Time
	ConfirmedAt *time.Time
}

// NewConfirmationToken builds an unconfirmed token expiring one hour after creation.
func NewConfirmationToken(token string, userID int64, at time.Time) ConfirmationToken {
	at = at.UTC()
	return ConfirmationToken{
		UserID:    userID,
		Token:     token,
		CreatedAt: at,
		ExpiresAt: at.Add(ConfirmationTokenTTL),
	}
}

// IsExpired reports whether the token's validity window has elapsed.
func (t ConfirmationToken) IsExpired(at time.Time) bool {
	return !t.ExpiresAt.After(at)
}

// IsConfirmed reports whether the token has already been consumed.
func (t ConfirmationToken) IsConfirmed() bool {
	return t.ConfirmedAt != nil
}

// Confirm consumes the token. A token is consumed exactly once: confirming an
// expired or already-confirmed token fails, and a confirmed token is terminal.
func (t *ConfirmationToken) Confirm(at time.Time) error {
	if t.IsExpired(at) {
		return fmt.Errorf("confirm token: %w", ErrInvalidToken)
	}
	if t.IsConfirmed() {
		return fmt.Errorf("confirm token: %w", ErrInvalidToken)
	}

	confirmedAt := at.UTC()
	t.ConfirmedAt = &confirmedAt
	return nil
}
