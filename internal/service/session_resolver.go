package service

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
)

// guestTokenBytes es el tamano del token de invitado antes de codificar.
const guestTokenBytes = 32

// ResolveIdentity produce la identidad del llamador. Si hay un usuario
// autenticado siempre gana; si no, se reutiliza el token de invitado de la
// cookie cuando esta bien formado, y en ultimo caso se acuna uno nuevo.
// Nunca falla: la ausencia total de credenciales resuelve a invitado fresco.
func ResolveIdentity(userID, guestToken string) domain.Identity {
	userID = strings.TrimSpace(userID)
	if userID != "" {
		return domain.Identity{Kind: domain.IdentityUser, UserID: userID}
	}

	guestToken = strings.TrimSpace(guestToken)
	if IsGuestToken(guestToken) {
		return domain.Identity{Kind: domain.IdentityGuest, GuestToken: guestToken}
	}

	return domain.Identity{Kind: domain.IdentityGuest, GuestToken: NewGuestToken()}
}

// NewGuestToken genera un token opaco criptograficamente aleatorio.
func NewGuestToken() string {
	b := make([]byte, guestTokenBytes)
	// crypto/rand.Read siempre entrega bytes o aborta el proceso.
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// IsGuestToken valida que el token tenga la forma emitida por NewGuestToken.
// Un token malformado o vacio se trata como "invitado nuevo", nunca como error.
func IsGuestToken(token string) bool {
	if token == "" {
		return false
	}
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return false
	}
	return len(raw) == guestTokenBytes
}
