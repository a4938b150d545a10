package domain

import "time"

// Conversation es un hilo de mensajes con titulo y dueno unico.
// Exactamente uno de UserID o GuestSessionID esta presente.
type Conversation struct {
	ID             string    `json:"id"`
	UserID         string    `json:"user_id,omitempty"`
	GuestSessionID string    `json:"-"`
	Title          string    `json:"title"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OwnedBy verifica que la identidad sea duena de la conversacion.
// La clave de propiedad se fija al crear y es el unico chequeo de
// autorizacion para lecturas y escrituras posteriores.
func (c Conversation) OwnedBy(identity Identity) bool {
	switch identity.Kind {
	case IdentityUser:
		return c.UserID != "" && c.UserID == identity.UserID
	case IdentityGuest:
		return c.GuestSessionID != "" && c.GuestSessionID == identity.GuestToken
	default:
		return false
	}
}
