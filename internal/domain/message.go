package domain

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message es una entrada inmutable dentro de una conversacion.
// Seq es el marcador de secuencia monotonico por conversacion; el orden
// total de un hilo se define por Seq, no por CreatedAt (los timestamps
// pueden coincidir a la resolucion del reloj).
type Message struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Seq            int64     `json:"-"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
}

// ValidRole indica si el rol pertenece al conjunto cerrado {user, assistant}.
func ValidRole(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
