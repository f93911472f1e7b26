package authService

import (
	"VideoPresence/internal/api/auth"
	authRepository "VideoPresence/internal/api/auth/repository"
	"VideoPresence/internal/entity"
	"VideoPresence/pkg/bcrypt"
	"VideoPresence/pkg/redis"
	"VideoPresence/pkg/utils"
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	cryptoBcrypt "golang.org/x/crypto/bcrypt"
)

type memUsers struct {
	mu    sync.Mutex
	users map[string]entity.User
}

func (m *memUsers) find(match func(entity.User) bool) (entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return entity.User{}, auth.ErrUserNotFound
}

func (m *memUsers) CreateUser(_ context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (entity.User, error) {
	return m.find(func(u entity.User) bool { return u.ID == id })
}

func (m *memUsers) GetByUsername(_ context.Context, username string) (entity.User, error) {
	return m.find(func(u entity.User) bool { return u.Username == username })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (entity.User, error) {
	return m.find(func(u entity.User) bool { return u.Email == email })
}

func (m *memUsers) GetByPhoneNumber(_ context.Context, phoneNumber string) (entity.User, error) {
	return m.find(func(u entity.User) bool { return u.PhoneNumber == phoneNumber })
}

func (m *memUsers) GetAll(_ context.Context) ([]entity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.User, 0, len(m.users))
	for _, u := range m.users {
		out = append(out, u)
	}
	return out, nil
}

func (m *memUsers) UpdateUser(_ context.Context, user entity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.users[user.ID]
	if !ok {
		return auth.ErrUserNotFound
	}
	user.Password = stored.Password
	m.users[user.ID] = user
	return nil
}

func (m *memUsers) UpdateUserPassword(_ context.Context, id string, password string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auth.ErrUserNotFound
	}
	u.Password = password
	m.users[id] = u
	return nil
}

func (m *memUsers) VerifyUserByEmail(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range m.users {
		if u.Email == email {
			u.IsVerified = true
			m.users[id] = u
			return nil
		}
	}
	return auth.ErrInvalidVerificationCode
}

func (m *memUsers) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return auth.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

type memRepo struct {
	users *memUsers
}

func (r *memRepo) NewClient(bool) (authRepository.Client, error) {
	return authRepository.Client{
		Users:    r.users,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type memRedis struct {
	mu    sync.Mutex
	codes map[string]string
}

func (r *memRedis) SetVerificationCode(_ context.Context, email string, code string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[email] = code
	return nil
}

func (r *memRedis) GetVerificationCode(_ context.Context, email string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	code, ok := r.codes[email]
	if !ok {
		return "", redis.ErrCodeNotFound
	}
	return code, nil
}

func (r *memRedis) DeleteVerificationCode(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.codes, email)
	return nil
}

type capturingMailer struct {
	sent map[string]string
}

func (m *capturingMailer) SendVerificationCode(email string, code string) error {
	m.sent[email] = code
	return nil
}

type fixture struct {
	svc    AuthService
	repo   *memRepo
	redis  *memRedis
	mailer *capturingMailer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	t.Setenv("JWT_ACCESS_TOKEN_SECRET", "access-secret")
	t.Setenv("JWT_REFRESH_TOKEN_SECRET", "refresh-secret")

	log := logrus.New()
	log.SetOutput(io.Discard)

	f := &fixture{
		repo:   &memRepo{users: &memUsers{users: map[string]entity.User{}}},
		redis:  &memRedis{codes: map[string]string{}},
		mailer: &capturingMailer{sent: map[string]string{}},
	}
	f.svc = New(log, f.repo, f.mailer, f.redis, bcrypt.NewWithCost(cryptoBcrypt.MinCost), utils.New())
	return f
}

func (f *fixture) register(t *testing.T, username, email, phone string) {
	t.Helper()
	_, err := f.svc.User().RegisterUser(context.Background(), auth.RegisterRequest{
		Username:    username,
		Email:       email,
		PhoneNumber: phone,
		Password:    "password123",
		Department:  "Engineering",
		Role:        "Staff",
	})
	if err != nil {
		t.Fatalf("RegisterUser(%s) failed: %v", username, err)
	}
}

func (f *fixture) verify(t *testing.T, email string) {
	t.Helper()
	err := f.svc.Auth().VerifyEmail(context.Background(), auth.VerifyEmailRequest{
		Email:            email,
		VerificationCode: f.mailer.sent[email],
	})
	if err != nil {
		t.Fatalf("VerifyEmail(%s) failed: %v", email, err)
	}
}

func TestRegisterUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "Alice@Example.com", "12345678")

	user, err := f.repo.users.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("user not stored: %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Errorf("email not normalized: %q", user.Email)
	}
	if user.IsVerified {
		t.Error("new user must start unverified")
	}
	if user.Password == "password123" {
		t.Error("password stored in clear text")
	}
	if f.mailer.sent["alice@example.com"] == "" {
		t.Error("verification code was not mailed")
	}
	if f.redis.codes["alice@example.com"] != f.mailer.sent["alice@example.com"] {
		t.Error("mailed code differs from stored code")
	}
}

func TestRegisterUserConflicts(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")

	tests := []struct {
		name string
		req  auth.RegisterRequest
		want error
	}{
		{"username", auth.RegisterRequest{Username: "alice", Email: "other@example.com", PhoneNumber: "87654321", Password: "password123"}, auth.ErrUsernameAlreadyExists},
		{"email", auth.RegisterRequest{Username: "bob", Email: "ALICE@example.com", PhoneNumber: "87654321", Password: "password123"}, auth.ErrEmailAlreadyExists},
		{"phone", auth.RegisterRequest{Username: "bob", Email: "bob@example.com", PhoneNumber: "12345678", Password: "password123"}, auth.ErrPhoneNumberAlreadyExists},
		{"bad phone", auth.RegisterRequest{Username: "bob", Email: "bob@example.com", PhoneNumber: "1234", Password: "password123"}, auth.ErrInvalidPhoneNumber},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.User().RegisterUser(context.Background(), tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}

func TestVerifyEmail(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")

	err := f.svc.Auth().VerifyEmail(context.Background(), auth.VerifyEmailRequest{Email: "alice@example.com", VerificationCode: "wrong"})
	if !errors.Is(err, auth.ErrInvalidVerificationCode) {
		t.Fatalf("wrong code: got %v", err)
	}

	f.verify(t, "alice@example.com")

	user, _ := f.repo.users.GetByUsername(context.Background(), "alice")
	if !user.IsVerified {
		t.Error("user not verified")
	}
	if _, ok := f.redis.codes["alice@example.com"]; ok {
		t.Error("used code not deleted")
	}

	err = f.svc.Auth().VerifyEmail(context.Background(), auth.VerifyEmailRequest{Email: "nobody@example.com", VerificationCode: "x"})
	if !errors.Is(err, auth.ErrInvalidVerificationCode) {
		t.Fatalf("unknown email: got %v", err)
	}
}

func TestLogin(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")
	ctx := context.Background()

	_, err := f.svc.Auth().Login(ctx, auth.LoginRequest{Username: "alice", Email: "alice@example.com", Password: "password123"})
	if !errors.Is(err, auth.ErrEmailNotVerified) {
		t.Fatalf("unverified login: got %v", err)
	}

	f.verify(t, "alice@example.com")

	tests := []struct {
		name string
		req  auth.LoginRequest
		want error
	}{
		{"unknown user", auth.LoginRequest{Username: "bob", Email: "alice@example.com", Password: "password123"}, auth.ErrUserNotFound},
		{"email mismatch", auth.LoginRequest{Username: "alice", Email: "bob@example.com", Password: "password123"}, auth.ErrUserNotFound},
		{"wrong password", auth.LoginRequest{Username: "alice", Email: "alice@example.com", Password: "nope"}, auth.ErrIncorrectPassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Auth().Login(ctx, tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	res, err := f.svc.Auth().Login(ctx, auth.LoginRequest{Username: "alice", Email: "ALICE@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if res.Status != "success" || res.AccessToken == "" || res.RefreshToken == "" {
		t.Fatalf("unexpected login response %+v", res)
	}

	refreshed, err := f.svc.Auth().Refresh(ctx, res.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}
	if refreshed.AccessToken == "" {
		t.Error("refresh returned no access token")
	}

	if _, err := f.svc.Auth().Refresh(ctx, res.AccessToken); !errors.Is(err, auth.ErrInvalidRefreshToken) {
		t.Errorf("access token accepted as refresh token: %v", err)
	}
	if _, err := f.svc.Auth().Refresh(ctx, ""); !errors.Is(err, auth.ErrMissingRefreshToken) {
		t.Errorf("empty refresh token: got %v", err)
	}
}

func TestUpdateUserEmailRequiresReverification(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")
	f.register(t, "bob", "bob@example.com", "87654321")
	f.verify(t, "alice@example.com")
	ctx := context.Background()

	alice, _ := f.repo.users.GetByUsername(ctx, "alice")
	login := entity.UserLoginData{ID: alice.ID, Username: alice.Username, Email: alice.Email}

	_, _, err := f.svc.User().UpdateUser(ctx, login, auth.UpdateUserRequest{Username: "bob", Email: "alice@example.com", PhoneNumber: "12345678"})
	if !errors.Is(err, auth.ErrUsernameAlreadyExists) {
		t.Fatalf("taken username: got %v", err)
	}

	res, reverify, err := f.svc.User().UpdateUser(ctx, login, auth.UpdateUserRequest{Username: "alice", Email: "alice@example.com", PhoneNumber: "11112222"})
	if err != nil || reverify {
		t.Fatalf("phone update: reverify=%v err=%v", reverify, err)
	}
	if res.PhoneNumber != "11112222" || !res.IsVerified {
		t.Errorf("unexpected response %+v", res)
	}

	res, reverify, err = f.svc.User().UpdateUser(ctx, login, auth.UpdateUserRequest{Username: "alice", Email: "new@example.com", PhoneNumber: "11112222"})
	if err != nil || !reverify {
		t.Fatalf("email update: reverify=%v err=%v", reverify, err)
	}
	if res.IsVerified {
		t.Error("email change must clear verification")
	}
	if f.mailer.sent["new@example.com"] == "" {
		t.Error("no verification code mailed to the new address")
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")
	ctx := context.Background()
	alice, _ := f.repo.users.GetByUsername(ctx, "alice")

	err := f.svc.Password().ChangePassword(ctx, alice.ID, auth.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpassword"})
	if !errors.Is(err, auth.ErrIncorrectOldPassword) {
		t.Fatalf("wrong old password: got %v", err)
	}

	if err := f.svc.Password().ChangePassword(ctx, alice.ID, auth.ChangePasswordRequest{OldPassword: "password123", NewPassword: "newpassword"}); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	alice, _ = f.repo.users.GetByUsername(ctx, "alice")
	if err := cryptoBcrypt.CompareHashAndPassword([]byte(alice.Password), []byte("newpassword")); err != nil {
		t.Error("new password not stored")
	}
}

func TestDeleteUser(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")
	ctx := context.Background()
	alice, _ := f.repo.users.GetByUsername(ctx, "alice")
	login := entity.UserLoginData{ID: alice.ID, Username: alice.Username, Email: alice.Email}

	if err := f.svc.User().DeleteUser(ctx, login); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	if _, err := f.svc.User().GetByID(ctx, alice.ID); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("deleted user still readable: %v", err)
	}
	if err := f.svc.User().DeleteUser(ctx, login); !errors.Is(err, auth.ErrUserNotFound) {
		t.Errorf("second delete: got %v", err)
	}
}

func TestMetadataLookup(t *testing.T) {
	f := newFixture(t)
	f.register(t, "alice", "alice@example.com", "12345678")
	lookup := NewMetadataLookup(f.repo)

	meta, found, err := lookup.Lookup(context.Background(), "alice")
	if err != nil || !found {
		t.Fatalf("alice: found=%v err=%v", found, err)
	}
	if meta.Email != "alice@example.com" || meta.Department != "Engineering" || meta.Role != "Staff" {
		t.Errorf("unexpected metadata %+v", meta)
	}

	_, found, err = lookup.Lookup(context.Background(), "carol")
	if err != nil || found {
		t.Fatalf("carol: found=%v err=%v", found, err)
	}
}
