package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/llm"
	"github.com/ndyy2/chatbot-axelon/internal/service"
)

type stubUserRepo struct {
	users []domain.User
}

func (s *stubUserRepo) Create(_ context.Context, user domain.User) error {
	s.users = append(s.users, user)
	return nil
}

func (s *stubUserRepo) GetByID(_ context.Context, id string) (domain.User, error) {
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByEmail(_ context.Context, email string) (domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) GetByAuth(_ context.Context, provider, subject string) (domain.User, error) {
	for _, u := range s.users {
		if u.AuthProvider == provider && u.AuthSubject == subject {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *stubUserRepo) LinkOAuth(_ context.Context, userID, provider, subject string) error {
	for i, u := range s.users {
		if u.ID == userID {
			s.users[i].AuthProvider = provider
			s.users[i].AuthSubject = subject
			return nil
		}
	}
	return pgx.ErrNoRows
}

func newAuthTestEnv(t *testing.T) *chatTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := zap.NewNop()
	userRepo := &stubUserRepo{}
	userSvc := service.NewUserService(logger, userRepo)
	jwtSvc := service.NewJWTService("test-secret", time.Hour, 24*time.Hour)

	providers := map[string]service.AuthProvider{
		"credentials": service.NewCredentialsProvider(userRepo, nil),
		"google":      service.NewOAuthProvider("google", userRepo),
		"github":      service.NewOAuthProvider("github", userRepo),
	}

	convs := &memConversationRepo{items: make(map[string]domain.Conversation)}
	msgs := &memMessageRepo{byConv: make(map[string][]domain.Message)}
	chatSvc := service.NewChatService(logger, convs, msgs,
		service.NewCompletionService(&llm.MockClient{Response: "ok"}))

	authH := NewAuthHandler(logger, userSvc, jwtSvc, providers)
	chatH := NewChatHandler(logger, chatSvc)

	return &chatTestEnv{
		router: NewRouter(logger, jwtSvc, authH, chatH),
		convs:  convs,
		msgs:   msgs,
		jwtSvc: jwtSvc,
	}
}

func TestRegister_Success(t *testing.T) {
	env := newAuthTestEnv(t)

	rec := env.do(postJSON("/users", gin.H{
		"email":        "ana@example.com",
		"display_name": "Ana",
		"password":     "supersecreta",
	}))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	user, ok := body["user"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing user in response: %v", body)
	}
	if user["email"] != "ana@example.com" {
		t.Fatalf("unexpected email: %v", user["email"])
	}
	if _, leaked := user["password_hash"]; leaked {
		t.Fatal("password hash must not appear in responses")
	}
}

func TestRegister_Rejections(t *testing.T) {
	env := newAuthTestEnv(t)

	cases := []struct {
		name   string
		body   gin.H
		status int
	}{
		{"malformed email", gin.H{"email": "no-es-email", "password": "supersecreta"}, http.StatusBadRequest},
		{"missing password", gin.H{"email": "ana@example.com"}, http.StatusBadRequest},
		{"short password", gin.H{"email": "ana@example.com", "password": "corta"}, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(postJSON("/users", tc.body))
			if rec.Code != tc.status {
				t.Fatalf("expected %d, got %d: %s", tc.status, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	env := newAuthTestEnv(t)

	payload := gin.H{"email": "ana@example.com", "password": "supersecreta"}
	if rec := env.do(postJSON("/users", payload)); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}
	rec := env.do(postJSON("/users", payload))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestLogin_HappyPath(t *testing.T) {
	env := newAuthTestEnv(t)

	if rec := env.do(postJSON("/users", gin.H{"email": "ana@example.com", "password": "supersecreta"})); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}

	rec := env.do(postJSON("/auth/login", gin.H{"email": "ana@example.com", "password": "supersecreta"}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	tokens, ok := body["tokens"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing tokens: %v", body)
	}
	access, _ := tokens["access_token"].(string)
	if access == "" {
		t.Fatalf("missing access token: %v", tokens)
	}
	if refresh, _ := tokens["refresh_token"].(string); refresh == "" {
		t.Fatalf("missing refresh token: %v", tokens)
	}

	// El access token emitido sirve para rutas protegidas.
	req := httptest.NewRequest(http.MethodGet, "/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+access)
	if rec := env.do(req); rec.Code != http.StatusOK {
		t.Fatalf("authed request: expected 200, got %d", rec.Code)
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	env := newAuthTestEnv(t)

	if rec := env.do(postJSON("/users", gin.H{"email": "ana@example.com", "password": "supersecreta"})); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	rec := env.do(postJSON("/auth/login", gin.H{"email": "ana@example.com", "password": "equivocada"}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestOAuthLogin_CreatesAndReuses(t *testing.T) {
	env := newAuthTestEnv(t)

	payload := gin.H{"provider": "google", "subject": "g-123", "email": "ana@example.com", "display_name": "Ana"}
	rec := env.do(postJSON("/auth/oauth", payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("first oauth login: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	first := decodeBody(t, rec)["user"].(map[string]interface{})

	rec = env.do(postJSON("/auth/oauth", payload))
	if rec.Code != http.StatusOK {
		t.Fatalf("second oauth login: expected 200, got %d", rec.Code)
	}
	second := decodeBody(t, rec)["user"].(map[string]interface{})
	if first["id"] != second["id"] {
		t.Fatalf("expected same account across logins, got %v vs %v", first["id"], second["id"])
	}
}

func TestOAuthLogin_UnknownProvider(t *testing.T) {
	env := newAuthTestEnv(t)

	rec := env.do(postJSON("/auth/oauth", gin.H{"provider": "gitlab", "subject": "x-1"}))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRefresh_RotatesTokens(t *testing.T) {
	env := newAuthTestEnv(t)

	if rec := env.do(postJSON("/users", gin.H{"email": "ana@example.com", "password": "supersecreta"})); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	rec := env.do(postJSON("/auth/login", gin.H{"email": "ana@example.com", "password": "supersecreta"}))
	tokens := decodeBody(t, rec)["tokens"].(map[string]interface{})
	oldRefresh := tokens["refresh_token"].(string)

	rec = env.do(postJSON("/auth/refresh", gin.H{"refresh_token": oldRefresh}))
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	rotated := decodeBody(t, rec)["tokens"].(map[string]interface{})
	if rotated["refresh_token"] == oldRefresh {
		t.Fatal("refresh token must rotate")
	}

	// El refresh viejo ya fue revocado por la rotacion.
	rec = env.do(postJSON("/auth/refresh", gin.H{"refresh_token": oldRefresh}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("reused refresh: expected 401, got %d", rec.Code)
	}
}

func TestLogout_RevokesRefresh(t *testing.T) {
	env := newAuthTestEnv(t)

	if rec := env.do(postJSON("/users", gin.H{"email": "ana@example.com", "password": "supersecreta"})); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	rec := env.do(postJSON("/auth/login", gin.H{"email": "ana@example.com", "password": "supersecreta"}))
	tokens := decodeBody(t, rec)["tokens"].(map[string]interface{})
	refresh := tokens["refresh_token"].(string)

	rec = env.do(postJSON("/auth/logout", gin.H{"refresh_token": refresh}))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = env.do(postJSON("/auth/refresh", gin.H{"refresh_token": refresh}))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout: expected 401, got %d", rec.Code)
	}
}
