package domain

// IdentityKind distingue entre usuarios autenticados e invitados.
type IdentityKind string

const (
	IdentityUser  IdentityKind = "user"
	IdentityGuest IdentityKind = "guest"
)

// Identity es el contexto del llamador ya resuelto: o bien un usuario
// autenticado (UserID) o un invitado anonimo (GuestToken). Nunca ambos.
type Identity struct {
	Kind       IdentityKind `json:"kind"`
	UserID     string       `json:"user_id,omitempty"`
	GuestToken string       `json:"-"`
}

// IsUser indica si la identidad corresponde a un usuario autenticado.
func (i Identity) IsUser() bool {
	return i.Kind == IdentityUser && i.UserID != ""
}
