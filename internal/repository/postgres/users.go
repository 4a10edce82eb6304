package postgres

import (
	"context"
	"fmt"

	squirrel "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/repository"
)

var userColumns = []string{
	"id",
	"name",
	"email",
	"password_hash",
	"password_salt",
	"created_at",
	"activated_at",
	"deactivated_at",
}

// UserRepository implements port.UserRepository using PostgreSQL.
type UserRepository struct {
	db      pgClient
	exec    pgExecutor
	builder squirrel.StatementBuilderType
}

// NewUserRepository wires a PostgreSQL-backed user repository.
func NewUserRepository(db pgClient) *UserRepository {
	return &UserRepository{
		db:      db,
		exec:    db,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// WithTx returns a repository instance operating within the supplied transaction.
func (r *UserRepository) WithTx(tx pgx.Tx) *UserRepository {
	if tx == nil {
		return r
	}
	return &UserRepository{
		db:      r.db,
		exec:    tx,
		builder: r.builder,
	}
}

// Create inserts the user aggregate in a single transaction: the user row,
// role assignments, and any confirmation tokens assigned before persistence.
// Generated identifiers are written back onto the aggregate. The database
// uniqueness constraint on email is the authoritative duplicate guard.
func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin create user: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt, args, err := r.builder.Insert("accounts.users").
		Columns("name", "email", "password_hash", "password_salt", "created_at", "activated_at", "deactivated_at").
		Values(user.Name, user.Email, user.PasswordHash, user.PasswordSalt, user.CreatedAt, user.ActivatedAt, user.DeactivatedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user sql: %w", err)
	}

	if err := tx.QueryRow(ctx, stmt, args...).Scan(&user.ID); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}

	for _, role := range user.Roles {
		stmt, args, err := r.builder.Insert("accounts.user_roles").
			Columns("user_id", "role_id").
			Values(user.ID, role.ID).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert user role sql: %w", err)
		}
		if _, err := tx.Exec(ctx, stmt, args...); err != nil {
			return fmt.Errorf("insert user role: %w", err)
		}
	}

	for i := range user.ConfirmationTokens {
		token := &user.ConfirmationTokens[i]
		token.UserID = user.ID

		stmt, args, err := r.builder.Insert("accounts.confirmation_tokens").
			Columns("user_id", "token", "created_at", "expires_at", "confirmed_at").
			Values(token.UserID, token.Token, token.CreatedAt, token.ExpiresAt, token.ConfirmedAt).
			Suffix("RETURNING id").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert confirmation token sql: %w", err)
		}
		if err := tx.QueryRow(ctx, stmt, args...).Scan(&token.ID); err != nil {
			return fmt.Errorf("insert confirmation token: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit create user: %w", err)
	}

	return nil
}

// GetByEmail retrieves a user with roles by email.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": email})
}

// GetByID retrieves a user with roles by identifier.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByConfirmationToken retrieves the user owning the given confirmation
// token value, hydrated with the full token collection and roles.
func (r *UserRepository) GetByConfirmationToken(ctx context.Context, token string) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(prefixColumns("u", userColumns)...).
		From("accounts.users u").
		Join("accounts.confirmation_tokens ct ON ct.user_id = u.id").
		Where(squirrel.Eq{"ct.token": token}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user by token sql: %w", err)
	}

	user, err := r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}

	if user.ConfirmationTokens, err = r.loadTokens(ctx, user.ID); err != nil {
		return nil, err
	}
	if user.Roles, err = r.loadRoles(ctx, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

// ExistsByEmail reports whether a user with the email exists.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	stmt, args, err := r.builder.
		Select("COUNT(1)").
		From("accounts.users").
		Where(squirrel.Eq{"email": email}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build select user exists sql: %w", err)
	}

	var count int64
	if err := r.exec.QueryRow(ctx, stmt, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("scan user exists: %w", err)
	}

	return count > 0, nil
}

// SaveActivation persists the consumed confirmation token together with the
// activation timestamp in one transaction.
func (r *UserRepository) SaveActivation(ctx context.Context, user *domain.User) error {
	token := user.CurrentConfirmationToken()
	if token == nil || !token.IsConfirmed() || user.ActivatedAt == nil {
		return fmt.Errorf("save activation: aggregate not activated")
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin save activation: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	stmt, args, err := r.builder.Update("accounts.confirmation_tokens").
		Set("confirmed_at", token.ConfirmedAt).
		Where(squirrel.Eq{"token": token.Token}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update confirmation token sql: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update confirmation token: %w", err)
	}

	stmt, args, err = r.builder.Update("accounts.users").
		Set("activated_at", user.ActivatedAt).
		Where(squirrel.Eq{"id": user.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user activation sql: %w", err)
	}
	if _, err := tx.Exec(ctx, stmt, args...); err != nil {
		return fmt.Errorf("update user activation: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit save activation: %w", err)
	}

	return nil
}

// AddConfirmationToken persists a token assigned to an existing user.
func (r *UserRepository) AddConfirmationToken(ctx context.Context, token domain.ConfirmationToken) error {
	stmt, args, err := r.builder.Insert("accounts.confirmation_tokens").
		Columns("user_id", "token", "created_at", "expires_at", "confirmed_at").
		Values(token.UserID, token.Token, token.CreatedAt, token.ExpiresAt, token.ConfirmedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert confirmation token sql: %w", err)
	}

	if _, err := r.exec.Exec(ctx, stmt, args...); err != nil {
		if isUniqueViolation(err) {
			return repository.ErrDuplicate
		}
		return fmt.Errorf("insert confirmation token: %w", err)
	}

	return nil
}

// UpdatePassword replaces the stored password hash and salt.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash, passwordSalt string) error {
	stmt, args, err := r.builder.Update("accounts.users").
		Set("password_hash", passwordHash).
		Set("password_salt", passwordSalt).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update password sql: %w", err)
	}

	tag, err := r.exec.Exec(ctx, stmt, args...)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}

	return nil
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Eq) (*domain.User, error) {
	stmt, args, err := r.builder.
		Select(userColumns...).
		From("accounts.users").
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user sql: %w", err)
	}

	user, err := r.scanUser(r.exec.QueryRow(ctx, stmt, args...))
	if err != nil {
		return nil, err
	}

	if user.Roles, err = r.loadRoles(ctx, user.ID); err != nil {
		return nil, err
	}

	return user, nil
}

func (r *UserRepository) scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User

	if err := row.Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.PasswordHash,
		&user.PasswordSalt,
		&user.CreatedAt,
		&user.ActivatedAt,
		&user.DeactivatedAt,
	); err != nil {
		if err == pgx.ErrNoRows {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) loadRoles(ctx context.Context, userID int64) ([]domain.Role, error) {
	stmt, args, err := r.builder.
		Select("r.id", "r.name").
		From("accounts.roles r").
		Join("accounts.user_roles ur ON ur.role_id = r.id").
		Where(squirrel.Eq{"ur.user_id": userID}).
		OrderBy("r.id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select user roles sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query user roles: %w", err)
	}
	defer rows.Close()

	var roles []domain.Role
	for rows.Next() {
		var role domain.Role
		if err := rows.Scan(&role.ID, &role.Name); err != nil {
			return nil, fmt.Errorf("scan user role: %w", err)
		}
		roles = append(roles, role)
	}

	return roles, rows.Err()
}

// loadTokens returns the owned token collection in creation order, so the
// aggregate's most-recent-token rule sees the same order as assignment.
func (r *UserRepository) loadTokens(ctx context.Context, userID int64) ([]domain.ConfirmationToken, error) {
	stmt, args, err := r.builder.
		Select("id", "user_id", "token", "created_at", "expires_at", "confirmed_at").
		From("accounts.confirmation_tokens").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select confirmation tokens sql: %w", err)
	}

	rows, err := r.exec.Query(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("query confirmation tokens: %w", err)
	}
	defer rows.Close()

	var tokens []domain.ConfirmationToken
	for rows.Next() {
		var token domain.ConfirmationToken
		if err := rows.Scan(
			&token.ID,
			&token.UserID,
			&token.Token,
			&token.CreatedAt,
			&token.ExpiresAt,
			&token.ConfirmedAt,
		); err != nil {
			return nil, fmt.Errorf("scan confirmation token: %w", err)
		}
		tokens = append(tokens, token)
	}

	return tokens, rows.Err()
}

func prefixColumns(alias string, columns []string) []string {
	prefixed := make([]string, len(columns))
	for i, column := range columns {
		prefixed[i] = alias + "." + column
	}
	return prefixed
}
