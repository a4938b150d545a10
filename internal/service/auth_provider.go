package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/repository"
)

// AuthCredentials transporta lo que el cliente presenta a un proveedor.
// Cada variante usa el subconjunto que le corresponde.
type AuthCredentials struct {
	Email       string
	Password    string
	Subject     string
	DisplayName string
}

// AuthProvider es la capacidad abstracta de autenticacion: credenciales
// validas producen un usuario, cualquier otra cosa se rechaza. El flujo de
// chat nunca depende de un proveedor concreto, solo de la identidad resuelta.
type AuthProvider interface {
	Authenticate(ctx context.Context, creds AuthCredentials) (domain.User, error)
}

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOAuthInvalid       = errors.New("oauth data invalid")
	ErrRateLimited        = errors.New("rate limited")
)

// CredentialsProvider autentica email + password contra el hash bcrypt.
type CredentialsProvider struct {
	users   repository.UserRepository
	limiter LoginRateLimiter
}

func NewCredentialsProvider(users repository.UserRepository, limiter LoginRateLimiter) *CredentialsProvider {
	return &CredentialsProvider{users: users, limiter: limiter}
}

func (p *CredentialsProvider) Authenticate(ctx context.Context, creds AuthCredentials) (domain.User, error) {
	emailAddr := normalizeEmail(creds.Email)
	password := strings.TrimSpace(creds.Password)
	if emailAddr == "" || password == "" {
		return domain.User{}, ErrInvalidCredentials
	}

	if p.limiter != nil && !p.limiter.Allow(emailAddr) {
		return domain.User{}, ErrRateLimited
	}

	user, err := p.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrInvalidCredentials
		}
		return domain.User{}, err
	}
	// Cuentas creadas solo por OAuth no tienen hash local.
	if user.PasswordHash == "" {
		return domain.User{}, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return domain.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// OAuthProvider acepta una asercion ya verificada por el proveedor externo
// (subject estable por cuenta) y hace upsert del usuario local. Una variante
// por proveedor: google, github.
type OAuthProvider struct {
	name  string
	users repository.UserRepository
}

func NewOAuthProvider(name string, users repository.UserRepository) *OAuthProvider {
	return &OAuthProvider{
		name:  strings.ToLower(strings.TrimSpace(name)),
		users: users,
	}
}

func (p *OAuthProvider) Authenticate(ctx context.Context, creds AuthCredentials) (domain.User, error) {
	subject := strings.TrimSpace(creds.Subject)
	if p.name == "" || subject == "" {
		return domain.User{}, ErrOAuthInvalid
	}

	user, err := p.users.GetByAuth(ctx, p.name, subject)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}

	emailAddr := normalizeEmail(creds.Email)
	displayName := strings.TrimSpace(creds.DisplayName)

	// Si ya existe una cuenta con ese email (p. ej. credenciales), se liga
	// el proveedor en vez de duplicar el usuario.
	if emailAddr != "" {
		existing, err := p.users.GetByEmail(ctx, emailAddr)
		if err == nil {
			if err := p.users.LinkOAuth(ctx, existing.ID, p.name, subject); err != nil {
				return domain.User{}, err
			}
			existing.AuthProvider = p.name
			existing.AuthSubject = subject
			if displayName != "" && existing.DisplayName == "" {
				existing.DisplayName = displayName
			}
			return existing, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, err
		}
	}

	user = domain.User{
		ID:           uuid.NewString(),
		Email:        emailAddr,
		DisplayName:  displayName,
		AuthProvider: p.name,
		AuthSubject:  subject,
		CreatedAt:    time.Now().UTC(),
	}
	if err := p.users.Create(ctx, user); err != nil {
		return domain.User{}, err
	}
	return user, nil
}
