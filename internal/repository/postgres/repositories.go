package postgres

// Repositories bundles the PostgreSQL-backed repository implementations.
type Repositories struct {
	Users *UserRepository
	Roles *RoleRepository
}

// NewRepositories constructs all repositories over a shared client.
func NewRepositories(db pgClient) *Repositories {
	return &Repositories{
		Users: NewUserRepository(db),
		Roles: NewRoleRepository(db),
	}
}
