package domain

import (
	"fmt"
	"time"
)

// User is the aggregate root of the identity core. It owns its confirmation
// tokens and enforces the activation state machine; collaborators mutate it
// only through the intention-revealing methods below.
type User struct {
	ID            int64
	Name          string
	Email         string
	PasswordHash  string
	PasswordSalt  string
	CreatedAt     time.Time
	ActivatedAt   *time.Time
	DeactivatedAt *time.Time

	Roles              []Role
	ConfirmationTokens []ConfirmationToken
}

// NewUser constructs a pending user. Activation happens later through email
// confirmation; CreatedAt is immutable from this point on.
func NewUser(name, email, passwordHash, passwordSalt string, roles []Role, at time.Time) *User {
	return &User{
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		PasswordSalt: passwordSalt,
		CreatedAt:    at.UTC(),
		Roles:        roles,
	}
}

// IsActivated reports whether the account completed email confirmation.
func (u *User) IsActivated() bool {
	return u.ActivatedAt != nil
}

// IsDeactivated reports whether the account has been deactivated.
func (u *User) IsDeactivated() bool {
	return u.DeactivatedAt != nil
}

// CanAuthenticate reports whether the account may sign in.
func (u *User) CanAuthenticate() bool {
	return u.IsActivated() && !u.IsDeactivated()
}

// AssignConfirmationToken appends a fresh confirmation token to the owned
// collection. Only accounts that have not yet been activated may receive one.
func (u *User) AssignConfirmationToken(token string, at time.Time) error {
	if u.IsActivated() {
		return fmt.Errorf("assign confirmation token: account already activated: %w", ErrInvalidState)
	}

	u.ConfirmationTokens = append(u.ConfirmationTokens, NewConfirmationToken(token, u.ID, at))
	return nil
}

// CurrentConfirmationToken returns the most recently created token, or nil if
// none exist. When a user requested multiple confirmation emails only the
// newest token is eligible for activation; on equal creation timestamps the
// later element wins, since tokens are appended in assignment order.
func (u *User) CurrentConfirmationToken() *ConfirmationToken {
	var current *ConfirmationToken
	for i := range u.ConfirmationTokens {
		t := &u.ConfirmationTokens[i]
		if current == nil || !t.CreatedAt.Before(current.CreatedAt) {
			current = t
		}
	}
	return current
}

// Activate consumes the current confirmation token and records the activation
// instant. Activating an already-activated account is a no-op.
func (u *User) Activate(at time.Time) error {
	if u.IsActivated() {
		return nil
	}

	token := u.CurrentConfirmationToken()
	if token == nil {
		return fmt.Errorf("activate: no confirmation token assigned: %w", ErrInvalidState)
	}
	if token.IsConfirmed() {
		return fmt.Errorf("activate: confirmation token already used: %w", ErrInvalidState)
	}
	if token.IsExpired(at) {
		return fmt.Errorf("activate: confirmation token expired: %w", ErrInvalidState)
	}

	if err := token.Confirm(at); err != nil {
		return err
	}

	activatedAt := at.UTC()
	u.ActivatedAt = &activatedAt
	return nil
}

// Deactivate records the deactivation instant. Idempotent: the timestamp is
// set only once.
func (u *User) Deactivate(at time.Time) {
	if u.IsDeactivated() {
		return
	}

	deactivatedAt := at.UTC()
	u.DeactivatedAt = &deactivatedAt
}

// RoleNames returns the names of the user's roles in assignment order.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.Name)
	}
	return names
}
