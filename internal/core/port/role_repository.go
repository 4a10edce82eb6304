package port

import (
	"context"

	"github.com/arklim/accounts-service/internal/core/domain"
)

// RoleRepository reads seeded role reference data.
type RoleRepository interface {
	GetByName(ctx context.Context, name string) (*domain.Role, error)
	List(ctx context.Context) ([]domain.Role, error)
}
