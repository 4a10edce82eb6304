package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/arklim/accounts-service/internal/core/domain"
	"github.com/arklim/accounts-service/internal/core/port"
	"github.com/arklim/accounts-service/internal/infra/security"
	"github.com/arklim/accounts-service/internal/repository"
)

const strongTestPassword = "Sup3r!SecurePass#7890"

type fakeUserRepository struct {
	nextID int64
	users  []*domain.User

	createErr           error
	createCalls         int
	addTokenErr         error
	addTokenCalls       int
	saveActivationCalls int
	updatePasswordCalls int
	lastPasswordHash    string
	lastPasswordSalt    string
}

func (f *fakeUserRepository) Create(_ context.Context, user *domain.User) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	for _, existing := range f.users {
		if existing.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	f.nextID++
	user.ID = f.nextID
	for i := range user.ConfirmationTokens {
		user.ConfirmationTokens[i].UserID = user.ID
	}
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.users {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	for _, user := range f.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) GetByConfirmationToken(_ context.Context, token string) (*domain.User, error) {
	for _, user := range f.users {
		for _, t := range user.ConfirmationTokens {
			if t.Token == token {
				return user, nil
			}
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeUserRepository) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, user := range f.users {
		if user.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepository) SaveActivation(_ context.Context, user *domain.User) error {
	f.saveActivationCalls++
	return nil
}

func (f *fakeUserRepository) AddConfirmationToken(_ context.Context, token domain.ConfirmationToken) error {
	f.addTokenCalls++
	return f.addTokenErr
}

func (f *fakeUserRepository) UpdatePassword(_ context.Context, id int64, passwordHash, passwordSalt string) error {
	f.updatePasswordCalls++
	for _, user := range f.users {
		if user.ID == id {
			user.PasswordHash = passwordHash
			user.PasswordSalt = passwordSalt
			f.lastPasswordHash = passwordHash
			f.lastPasswordSalt = passwordSalt
			return nil
		}
	}
	return repository.ErrNotFound
}

type fakeRoleRepository struct {
	roles map[string]domain.Role
}

func (f *fakeRoleRepository) GetByName(_ context.Context, name string) (*domain.Role, error) {
	role, ok := f.roles[name]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &role, nil
}

func (f *fakeRoleRepository) List(_ context.Context) ([]domain.Role, error) {
	out := make([]domain.Role, 0, len(f.roles))
	for _, role := range f.roles {
		out = append(out, role)
	}
	return out, nil
}

type fakeMailer struct {
	sendErr error
	sent    []port.Mail
}

func (f *fakeMailer) Send(_ context.Context, mail port.Mail) error {
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, mail)
	return nil
}

type fakePublisher struct {
	registered      []domain.UserRegisteredEvent
	activated       []domain.UserActivatedEvent
	passwordChanged []domain.PasswordChangedEvent
	publishErr      error
}

func (f *fakePublisher) PublishUserRegistered(_ context.Context, event domain.UserRegisteredEvent) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.registered = append(f.registered, event)
	return nil
}

func (f *fakePublisher) PublishUserActivated(_ context.Context, event domain.UserActivatedEvent) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.activated = append(f.activated, event)
	return nil
}

func (f *fakePublisher) PublishPasswordChanged(_ context.Context, event domain.PasswordChangedEvent) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.passwordChanged = append(f.passwordChanged, event)
	return nil
}

type identityFixture struct {
	service *IdentityService
	users   *fakeUserRepository
	roles   *fakeRoleRepository
	mailer  *fakeMailer
	events  *fakePublisher
}

func newIdentityFixture(t *testing.T) *identityFixture {
	t.Helper()

	issuer, err := security.NewTokenIssuer("unit-test-signing-secret", "accounts-service", "accounts-clients", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}

	users := &fakeUserRepository{}
	roles := &fakeRoleRepository{roles: map[string]domain.Role{
		domain.RoleAdmin: {ID: 1, Name: domain.RoleAdmin},
		domain.RoleUser:  {ID: 2, Name: domain.RoleUser},
	}}
	mailer := &fakeMailer{}
	events := &fakePublisher{}

	service := NewIdentityService(
		users, roles, mailer, events,
		issuer, security.DefaultPasswordValidator(),
		"https://accounts.example.com/confirm",
		zap.NewNop(),
	)

	return &identityFixture{service: service, users: users, roles: roles, mailer: mailer, events: events}
}

func TestIdentityService_RegisterConfirmAuthenticate(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, RegisterInput{
		Name:     "Dana",
		Email:    "Dana@Example.com",
		Password: strongTestPassword,
	})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected user id assigned")
	}
	if user.Email != "dana@example.com" {
		t.Fatalf("expected email normalized, got %s", user.Email)
	}
	if len(user.Roles) != 1 || user.Roles[0].Name != domain.RoleUser {
		t.Fatalf("expected default role assigned, got %+v", user.Roles)
	}
	if len(fx.mailer.sent) != 1 {
		t.Fatalf("expected one welcome mail, got %d", len(fx.mailer.sent))
	}
	if len(fx.events.registered) != 1 {
		t.Fatalf("expected one registration event, got %d", len(fx.events.registered))
	}

	token := user.CurrentConfirmationToken()
	if token == nil {
		t.Fatalf("expected confirmation token assigned")
	}
	if !strings.Contains(fx.mailer.sent[0].Body, token.Token) {
		t.Fatalf("expected mail body to carry the confirmation token")
	}

	// Sign-in before confirmation is refused.
	if _, err := fx.service.Authenticate(ctx, "dana@example.com", strongTestPassword); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized before confirmation, got %v", err)
	}

	confirmed, err := fx.service.ConfirmEmail(ctx, token.Token)
	if err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}
	if !confirmed.IsActivated() {
		t.Fatalf("expected user activated")
	}
	if fx.users.saveActivationCalls != 1 {
		t.Fatalf("expected activation persisted once, got %d", fx.users.saveActivationCalls)
	}
	if len(fx.events.activated) != 1 {
		t.Fatalf("expected one activation event, got %d", len(fx.events.activated))
	}

	// Confirming again is a no-op, not an error.
	if _, err := fx.service.ConfirmEmail(ctx, token.Token); err != nil {
		t.Fatalf("repeated ConfirmEmail returned error: %v", err)
	}
	if fx.users.saveActivationCalls != 1 {
		t.Fatalf("expected no second activation write")
	}

	session, err := fx.service.Authenticate(ctx, "dana@example.com", strongTestPassword)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if session.UserID != user.ID || session.Token == "" {
		t.Fatalf("unexpected session: %+v", session)
	}
	if !session.ExpiresAt.After(time.Now()) {
		t.Fatalf("expected future expiry, got %v", session.ExpiresAt)
	}

	if _, err := fx.service.Authenticate(ctx, "dana@example.com", "wrong-password"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}
}

func TestIdentityService_RegisterDuplicateEmail(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	if _, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword}); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}
	mails := len(fx.mailer.sent)

	if _, err := fx.service.Register(ctx, RegisterInput{Name: "Other", Email: "dana@example.com", Password: strongTestPassword}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if len(fx.mailer.sent) != mails {
		t.Fatalf("expected no mail for rejected registration")
	}
}

func TestIdentityService_RegisterWeakPassword(t *testing.T) {
	fx := newIdentityFixture(t)

	_, err := fx.service.Register(context.Background(), RegisterInput{Name: "Dana", Email: "dana@example.com", Password: "password"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if fx.users.createCalls != 0 {
		t.Fatalf("expected no create attempt for weak password")
	}
}

func TestIdentityService_RegisterMailFailureDoesNotFail(t *testing.T) {
	fx := newIdentityFixture(t)
	fx.mailer.sendErr = errors.New("smtp down")

	user, err := fx.service.Register(context.Background(), RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Register returned error despite mail failure: %v", err)
	}
	if user.ID == 0 {
		t.Fatalf("expected user persisted")
	}
}

func TestIdentityService_ConfirmWithOlderToken(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	firstToken := user.CurrentConfirmationToken().Token

	if err := fx.service.ResendConfirmation(ctx, "dana@example.com"); err != nil {
		t.Fatalf("ResendConfirmation returned error: %v", err)
	}
	latest := user.CurrentConfirmationToken()
	if latest.Token == firstToken {
		t.Fatalf("expected a fresh token after resend")
	}

	// Any token the account owns identifies it; activation always consumes
	// the most recently issued one.
	confirmed, err := fx.service.ConfirmEmail(ctx, firstToken)
	if err != nil {
		t.Fatalf("ConfirmEmail with older token returned error: %v", err)
	}
	if !confirmed.IsActivated() {
		t.Fatalf("expected account activated")
	}
	if !latest.IsConfirmed() {
		t.Fatalf("expected most recent token consumed")
	}
	if fx.users.saveActivationCalls != 1 {
		t.Fatalf("expected one activation save, got %d", fx.users.saveActivationCalls)
	}
}

func TestIdentityService_ConfirmUnknownToken(t *testing.T) {
	fx := newIdentityFixture(t)

	if _, err := fx.service.ConfirmEmail(context.Background(), "no-such-token"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityService_RegisterMissingDefaultRole(t *testing.T) {
	fx := newIdentityFixture(t)
	delete(fx.roles.roles, domain.RoleUser)

	_, err := fx.service.Register(context.Background(), RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if fx.users.createCalls != 0 {
		t.Fatalf("expected no create attempt without the seeded role")
	}
}

func TestIdentityService_ResendConfirmationActivated(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := fx.service.ConfirmEmail(ctx, user.CurrentConfirmationToken().Token); err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}

	if err := fx.service.ResendConfirmation(ctx, "dana@example.com"); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestIdentityService_ResendConfirmationUnknownEmail(t *testing.T) {
	fx := newIdentityFixture(t)

	if err := fx.service.ResendConfirmation(context.Background(), "ghost@example.com"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestIdentityService_ChangePassword(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if _, err := fx.service.ConfirmEmail(ctx, user.CurrentConfirmationToken().Token); err != nil {
		t.Fatalf("ConfirmEmail returned error: %v", err)
	}

	newPassword := "An0ther!Secure#Pass42"

	if err := fx.service.ChangePassword(ctx, user.ID, "wrong-password", newPassword); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong current password, got %v", err)
	}
	if fx.users.updatePasswordCalls != 0 {
		t.Fatalf("expected no password write on failed verification")
	}

	if err := fx.service.ChangePassword(ctx, user.ID, strongTestPassword, newPassword); err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}
	if fx.users.updatePasswordCalls != 1 {
		t.Fatalf("expected one password write, got %d", fx.users.updatePasswordCalls)
	}
	if len(fx.events.passwordChanged) != 1 {
		t.Fatalf("expected one password changed event, got %d", len(fx.events.passwordChanged))
	}

	if _, err := fx.service.Authenticate(ctx, "dana@example.com", strongTestPassword); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected old password rejected, got %v", err)
	}
	if _, err := fx.service.Authenticate(ctx, "dana@example.com", newPassword); err != nil {
		t.Fatalf("expected new password accepted, got %v", err)
	}
}

func TestIdentityService_UserExists(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	exists, err := fx.service.UserExists(ctx, "dana@example.com")
	if err != nil {
		t.Fatalf("UserExists returned error: %v", err)
	}
	if exists {
		t.Fatalf("expected no user before registration")
	}

	if _, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword}); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	exists, err = fx.service.UserExists(ctx, "Dana@Example.com")
	if err != nil {
		t.Fatalf("UserExists returned error: %v", err)
	}
	if !exists {
		t.Fatalf("expected user to exist after registration")
	}
}

func TestIdentityService_GetUserInfo(t *testing.T) {
	fx := newIdentityFixture(t)
	ctx := context.Background()

	user, err := fx.service.Register(ctx, RegisterInput{Name: "Dana", Email: "dana@example.com", Password: strongTestPassword})
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	info, err := fx.service.GetUserInfo(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetUserInfo returned error: %v", err)
	}
	if info.Email != "dana@example.com" || info.Activated {
		t.Fatalf("unexpected user info: %+v", info)
	}
	if len(info.Roles) != 1 || info.Roles[0] != domain.RoleUser {
		t.Fatalf("unexpected roles: %+v", info.Roles)
	}

	if _, err := fx.service.GetUserInfo(ctx, 9999); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
