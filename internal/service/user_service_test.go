package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
)

type mockUserRepo struct {
	byID map[string]domain.User

	createErr error
	getErr    error
	linkErr   error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{byID: make(map[string]domain.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user domain.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.byID[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	user, ok := m.byID[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return user, nil
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	if m.getErr != nil {
		return domain.User{}, m.getErr
	}
	for _, u := range m.byID {
		if u.AuthProvider == provider && u.AuthSubject == subject {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *mockUserRepo) LinkOAuth(_ context.Context, userID, provider, subject string) error {
	if m.linkErr != nil {
		return m.linkErr
	}
	user, ok := m.byID[userID]
	if !ok {
		return pgx.ErrNoRows
	}
	user.AuthProvider = provider
	user.AuthSubject = subject
	m.byID[userID] = user
	return nil
}

func TestUserServiceRegister_Success(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	user, err := svc.Register(context.Background(), RegisterInput{
		Email:       "  Ana@Example.COM ",
		DisplayName: " Ana ",
		Password:    "supersecreta",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if user.Email != "ana@example.com" {
		t.Fatalf("email not normalized: %q", user.Email)
	}
	if user.DisplayName != "Ana" {
		t.Fatalf("display name not trimmed: %q", user.DisplayName)
	}
	if user.AuthProvider != "credentials" {
		t.Fatalf("unexpected provider: %q", user.AuthProvider)
	}
	if user.ID == "" {
		t.Fatal("expected generated id")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("supersecreta")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if _, ok := repo.byID[user.ID]; !ok {
		t.Fatal("user not persisted")
	}
}

func TestUserServiceRegister_InvalidInput(t *testing.T) {
	svc := NewUserService(zap.NewNop(), newMockUserRepo())

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "  ", Password: "supersecreta"}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected ErrInvalidEmail, got %v", err)
	}
	if _, err := svc.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "corta"}); !errors.Is(err, ErrInvalidPassword) {
		t.Fatalf("expected ErrInvalidPassword, got %v", err)
	}
}

func TestUserServiceRegister_DuplicateEmail(t *testing.T) {
	repo := newMockUserRepo()
	svc := NewUserService(zap.NewNop(), repo)

	if _, err := svc.Register(context.Background(), RegisterInput{Email: "ana@example.com", Password: "supersecreta"}); err != nil {
		t.Fatalf("first registration: %v", err)
	}
	_, err := svc.Register(context.Background(), RegisterInput{Email: "ANA@example.com", Password: "otroclave1"})
	if !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
	if len(repo.byID) != 1 {
		t.Fatalf("duplicate must not persist, got %d users", len(repo.byID))
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := normalizeEmail("  Foo@Bar.COM "); got != "foo@bar.com" {
		t.Fatalf("unexpected normalization: %q", got)
	}
	if got := normalizeEmail(strings.Repeat(" ", 4)); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
