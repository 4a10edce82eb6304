package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	uuid "github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/core/port"
	"github.com/arklim/accounts-service/internal/infra/logger"
	"github.com/arklim/accounts-service/internal/infra/security"
	"github.com/arklim/accounts-service/internal/repository"
)

// IdentityService coordinates the account lifecycle: registration, email
// confirmation, authentication, and password management. Mail delivery and
// event publication happen after the database commit and are best-effort.
type IdentityService struct {
	users          port.UserRepository
	roles          port.RoleRepository
	mailer         port.Mailer
	events         port.EventPublisher
	issuer         *security.TokenIssuer
	policy         *security.PasswordValidator
	confirmURLBase string
	log            *zap.Logger
}

// NewIdentityService constructs the identity service.
func NewIdentityService(
	users port.UserRepository,
	roles port.RoleRepository,
	mailer port.Mailer,
	events port.EventPublisher,
	issuer *security.TokenIssuer,
	policy *security.PasswordValidator,
	confirmURLBase string,
	log *zap.Logger,
) *IdentityService {
	if policy == nil {
		policy = security.DefaultPasswordValidator()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &IdentityService{
		users:          users,
		roles:          roles,
		mailer:         mailer,
		events:         events,
		issuer:         issuer,
		policy:         policy,
		confirmURLBase: confirmURLBase,
		log:            log,
	}
}

// Session is an authenticated sign-in: the signed access token plus the
// identity it was issued for.
type Session struct {
	UserID    int64
	Name      string
	Email     string
	Token     string
	ExpiresAt time.Time
}

// UserInfo is the read model returned to authenticated callers.
type UserInfo struct {
	ID        int64
	Name      string
	Email     string
	Roles     []string
	CreatedAt time.Time
	Activated bool
}

// RegisterInput carries the attributes for a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// Authenticate verifies the credentials and issues a signed session token.
// Every failure mode surfaces as domain.ErrUnauthorized so responses do not
// reveal whether the email is registered, the password wrong, or the account
// not yet confirmed.
func (s *IdentityService) Authenticate(ctx context.Context, email, password string) (*Session, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, domain.ErrUnauthorized
	}

	if !user.CanAuthenticate() {
		return nil, domain.ErrUnauthorized
	}

	token, expiresAt, err := s.issuer.Issue(user.ID, user.Email, user.Name, user.RoleNames())
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &Session{
		UserID:    user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// Register creates a pending account with the default role and a confirmation
// token, then sends the welcome email and publishes the registration event.
func (s *IdentityService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(input.Name)
	email := normalizeEmail(input.Email)
	if name == "" {
		return nil, fmt.Errorf("name is required: %w", domain.ErrValidation)
	}
	if email == "" {
		return nil, fmt.Errorf("email is required: %w", domain.ErrValidation)
	}
	if err := s.policy.Validate(input.Password); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	passwordHash, passwordSalt, err := security.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	role, err := s.roles.GetByName(ctx, domain.RoleUser)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("default role %q not seeded: %w", domain.RoleUser, domain.ErrInvalidState)
		}
		return nil, fmt.Errorf("lookup default role: %w", err)
	}

	now := time.Now().UTC()
	user := domain.NewUser(name, email, passwordHash, passwordSalt, []domain.Role{*role}, now)

	confirmToken, err := security.GenerateConfirmationToken()
	if err != nil {
		return nil, fmt.Errorf("generate confirmation token: %w", err)
	}
	if err := user.AssignConfirmationToken(confirmToken, now); err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.sendConfirmationMail(ctx, user, confirmToken, "Welcome! Confirm your email")

	s.publish(ctx, "user registered", func() error {
		return s.events.PublishUserRegistered(ctx, domain.UserRegisteredEvent{
			EventID:      uuid.NewString(),
			UserID:       user.ID,
			Name:         user.Name,
			Email:        user.Email,
			RegisteredAt: user.CreatedAt,
		})
	})

	return user, nil
}

// ConfirmEmail resolves the account owning the presented token and activates
// it. The aggregate always consumes its newest token, so any owned token
// identifies the account; a token that matches no account at all is not found.
func (s *IdentityService) ConfirmEmail(ctx context.Context, token string) (*domain.User, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, fmt.Errorf("confirmation token is required: %w", domain.ErrValidation)
	}

	user, err := s.users.GetByConfirmationToken(ctx, token)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("confirmation token not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("lookup confirmation token: %w", err)
	}

	if user.IsActivated() {
		return user, nil
	}

	if err := user.Activate(time.Now().UTC()); err != nil {
		return nil, err
	}

	if err := s.users.SaveActivation(ctx, user); err != nil {
		return nil, fmt.Errorf("save activation: %w", err)
	}

	s.publish(ctx, "user activated", func() error {
		return s.events.PublishUserActivated(ctx, domain.UserActivatedEvent{
			EventID:     uuid.NewString(),
			UserID:      user.ID,
			Email:       user.Email,
			ActivatedAt: *user.ActivatedAt,
		})
	})

	return user, nil
}

// ResendConfirmation issues a fresh confirmation token for a pending account
// and mails it. The new token supersedes any earlier one.
func (s *IdentityService) ResendConfirmation(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("email is required: %w", domain.ErrValidation)
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	if user.IsActivated() {
		return fmt.Errorf("account already activated: %w", domain.ErrInvalidState)
	}

	confirmToken, err := security.GenerateConfirmationToken()
	if err != nil {
		return fmt.Errorf("generate confirmation token: %w", err)
	}

	now := time.Now().UTC()
	if err := user.AssignConfirmationToken(confirmToken, now); err != nil {
		return err
	}

	token := user.ConfirmationTokens[len(user.ConfirmationTokens)-1]
	if err := s.users.AddConfirmationToken(ctx, token); err != nil {
		return fmt.Errorf("store confirmation token: %w", err)
	}

	s.sendConfirmationMail(ctx, user, confirmToken, "Confirm your email")

	return nil
}

// ChangePassword replaces the password after re-verifying the current one.
func (s *IdentityService) ChangePassword(ctx context.Context, userID int64, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("lookup user: %w", err)
	}

	ok, err := security.VerifyPassword(currentPassword, user.PasswordHash, user.PasswordSalt)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return fmt.Errorf("current password is incorrect: %w", domain.ErrUnauthorized)
	}

	if err := s.policy.Validate(newPassword); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	passwordHash, passwordSalt, err := security.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.users.UpdatePassword(ctx, user.ID, passwordHash, passwordSalt); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.ErrNotFound
		}
		return fmt.Errorf("update password: %w", err)
	}

	s.publish(ctx, "password changed", func() error {
		return s.events.PublishPasswordChanged(ctx, domain.PasswordChangedEvent{
			EventID:   uuid.NewString(),
			UserID:    user.ID,
			ChangedAt: time.Now().UTC(),
		})
	})

	return nil
}

// UserExists reports whether an account with the email is registered.
func (s *IdentityService) UserExists(ctx context.Context, email string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return false, fmt.Errorf("email is required: %w", domain.ErrValidation)
	}

	exists, err := s.users.ExistsByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// GetUserInfo returns the read model for an authenticated account.
func (s *IdentityService) GetUserInfo(ctx context.Context, userID int64) (*UserInfo, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	return &UserInfo{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Roles:     user.RoleNames(),
		CreatedAt: user.CreatedAt,
		Activated: user.IsActivated(),
	}, nil
}

func (s *IdentityService) sendConfirmationMail(ctx context.Context, user *domain.User, token, subject string) {
	if s.mailer == nil {
		return
	}

	body := fmt.Sprintf(
		"Hello %s,\n\nPlease confirm your email address within one hour:\n\n%s?token=%s\n",
		user.Name, s.confirmURLBase, token,
	)
	mail := port.Mail{
		Subject: subject,
		Body:    body,
		To:      []string{user.Email},
	}

	if err := s.mailer.Send(ctx, mail); err != nil {
		s.log.Warn("confirmation mail delivery failed",
			zap.String("email", logger.MaskEmail(user.Email)),
			zap.Error(err),
		)
	}
}

func (s *IdentityService) publish(ctx context.Context, name string, fn func() error) {
	if s.events == nil {
		return
	}
	if err := fn(); err != nil {
		s.log.Warn("event publish failed", zap.String("event", name), zap.Error(err))
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
