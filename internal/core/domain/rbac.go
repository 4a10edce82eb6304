package domain

// Role is immutable reference data associated with users. Roles are seeded
// externally; this core only reads them.
type Role struct {
	ID   int64
	Name string
}

// Seeded role names.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)
