package port

import (
	"context"

	"github.com/arklim/accounts-service/internal/core/domain"
)

// UserRepository exposes persistence behavior for the user aggregate. Queries
// are explicit per use case and return fully hydrated aggregates; lookups that
// miss return repository.ErrNotFound.
type UserRepository interface {
	// Create persists a new user together with its roles and confirmation
	// tokens in a single transaction, assigning generated identifiers to the
	// aggregate. A duplicate email surfaces as repository.ErrDuplicate from
	// the database uniqueness constraint.
	Create(ctx context.Context, user *domain.User) error
	// GetByEmail loads a user with roles.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// GetByID loads a user with roles.
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// GetByConfirmationToken loads the user owning the given token value,
	// with the full confirmation token collection.
	GetByConfirmationToken(ctx context.Context, token string) (*domain.User, error)
	// ExistsByEmail reports whether any user has the given email.
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// SaveActivation persists the consumed confirmation token and the
	// activation timestamp in a single transaction.
	SaveActivation(ctx context.Context, user *domain.User) error
	// AddConfirmationToken persists a token newly assigned to an existing user.
	AddConfirmationToken(ctx context.Context, token domain.ConfirmationToken) error
	// UpdatePassword replaces the stored password hash and salt.
	UpdatePassword(ctx context.Context, id int64, passwordHash, passwordSalt string) error
}
