package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/repository"
)

const (
	titleMaxRunes = 50
	titleEllipsis = "..."
)

var (
	// ErrInvalidMessage cubre contenido vacio tras trim o rol fuera de
	// {user, assistant}. Se detecta antes de tocar el almacenamiento.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrConversationNotFound cubre tanto conversaciones inexistentes como
	// conversaciones de otro dueno: indistinguibles a proposito para no
	// filtrar existencia.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrStorageUnavailable marca fallas de la capa de persistencia. No se
	// reintenta aca.
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ChatService compone el flujo de un turno de chat: resolver conversacion,
// persistir el mensaje del usuario, cargar historial, invocar el completion
// y persistir la respuesta. Cada paso es secuencial; no hay ramas paralelas.
type ChatService struct {
	logger        *zap.Logger
	conversations repository.ConversationRepository
	messages      repository.MessageRepository
	completion    *CompletionService
}

func NewChatService(
	logger *zap.Logger,
	conversations repository.ConversationRepository,
	messages repository.MessageRepository,
	completion *CompletionService,
) *ChatService {
	return &ChatService{
		logger:        logger,
		conversations: conversations,
		messages:      messages,
		completion:    completion,
	}
}

// ChatTurn es el resultado de un turno completo.
type ChatTurn struct {
	Conversation     domain.Conversation
	UserMessage      domain.Message
	AssistantMessage domain.Message
}

// SendMessage ejecuta un turno completo. Si la llamada al LLM falla despues
// de guardar el mensaje del usuario, ese mensaje queda persistido: semantica
// best-effort explicita, sin rollback.
func (s *ChatService) SendMessage(ctx context.Context, identity domain.Identity, conversationID, text string) (ChatTurn, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return ChatTurn{}, ErrInvalidMessage
	}

	conv, err := s.ensureConversation(ctx, identity, conversationID, text)
	if err != nil {
		return ChatTurn{}, err
	}

	userMsg, err := s.appendMessage(ctx, conv.ID, domain.RoleUser, text)
	if err != nil {
		return ChatTurn{}, err
	}

	history, err := s.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return ChatTurn{}, storageFailure("load history", err)
	}

	reply, err := s.completion.Reply(ctx, history)
	if err != nil {
		// El mensaje del usuario ya es durable; solo falla la respuesta.
		s.logger.Error("completion failed",
			zap.Error(err),
			zap.String("conversation_id", conv.ID),
			zap.String("identity_kind", string(identity.Kind)),
		)
		return ChatTurn{}, err
	}

	assistantMsg, err := s.appendMessage(ctx, conv.ID, domain.RoleAssistant, reply)
	if err != nil {
		return ChatTurn{}, err
	}

	return ChatTurn{
		Conversation:     conv,
		UserMessage:      userMsg,
		AssistantMessage: assistantMsg,
	}, nil
}

// GetConversation devuelve la conversacion y su historial completo, solo si
// la identidad es duena.
func (s *ChatService) GetConversation(ctx context.Context, identity domain.Identity, conversationID string) (domain.Conversation, []domain.Message, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return domain.Conversation{}, nil, ErrConversationNotFound
	}

	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Conversation{}, nil, ErrConversationNotFound
		}
		return domain.Conversation{}, nil, storageFailure("get conversation", err)
	}
	if !conv.OwnedBy(identity) {
		return domain.Conversation{}, nil, ErrConversationNotFound
	}

	history, err := s.messages.ListByConversationID(ctx, conv.ID)
	if err != nil {
		return domain.Conversation{}, nil, storageFailure("load history", err)
	}
	return conv, history, nil
}

// ListConversations lista las conversaciones de un usuario autenticado,
// ordenadas por actividad reciente. Los invitados no tienen listado: deben
// retener el id de conversacion del lado del cliente.
func (s *ChatService) ListConversations(ctx context.Context, userID string) ([]domain.Conversation, error) {
	conversations, err := s.conversations.ListByUserID(ctx, userID)
	if err != nil {
		return nil, storageFailure("list conversations", err)
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}
	return conversations, nil
}

// DeleteConversation borra la conversacion y todos sus mensajes. Repetir el
// borrado devuelve ErrConversationNotFound, no una falla.
func (s *ChatService) DeleteConversation(ctx context.Context, identity domain.Identity, conversationID string) error {
	conv, _, err := s.GetConversation(ctx, identity, conversationID)
	if err != nil {
		return err
	}

	// Primero los mensajes, despues el hilo.
	if err := s.messages.DeleteByConversationID(ctx, conv.ID); err != nil {
		return storageFailure("delete messages", err)
	}
	if err := s.conversations.Delete(ctx, conv.ID); err != nil {
		return storageFailure("delete conversation", err)
	}
	return nil
}

// ensureConversation reutiliza la conversacion indicada solo si existe y la
// identidad es su duena; en cualquier otro caso crea una nueva con titulo
// derivado del primer mensaje.
func (s *ChatService) ensureConversation(ctx context.Context, identity domain.Identity, conversationID, seedText string) (domain.Conversation, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID != "" {
		conv, err := s.conversations.GetByID(ctx, conversationID)
		switch {
		case err == nil:
			if conv.OwnedBy(identity) {
				return conv, nil
			}
			// Dueno distinto: se ignora el id y se abre un hilo nuevo.
		case errors.Is(err, pgx.ErrNoRows):
			// Id desconocido: hilo nuevo.
		default:
			return domain.Conversation{}, storageFailure("find conversation", err)
		}
	}

	now := time.Now().UTC()
	conv := domain.Conversation{
		ID:        uuid.NewString(),
		Title:     deriveTitle(seedText),
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch identity.Kind {
	case domain.IdentityUser:
		conv.UserID = identity.UserID
	case domain.IdentityGuest:
		conv.GuestSessionID = identity.GuestToken
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return domain.Conversation{}, storageFailure("create conversation", err)
	}
	return conv, nil
}

func (s *ChatService) appendMessage(ctx context.Context, conversationID, role, content string) (domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" || !domain.ValidRole(role) {
		return domain.Message{}, ErrInvalidMessage
	}

	now := time.Now().UTC()
	msg, err := s.messages.Append(ctx, domain.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	})
	if err != nil {
		return domain.Message{}, storageFailure("append message", err)
	}

	if err := s.conversations.Touch(ctx, conversationID, now); err != nil {
		return domain.Message{}, storageFailure("touch conversation", err)
	}
	return msg, nil
}

// deriveTitle toma los primeros 50 caracteres del primer mensaje y agrega
// "..." si hubo recorte. Cuenta runas, no bytes.
func deriveTitle(seedText string) string {
	runes := []rune(strings.TrimSpace(seedText))
	if len(runes) <= titleMaxRunes {
		return string(runes)
	}
	return string(runes[:titleMaxRunes]) + titleEllipsis
}

func storageFailure(op string, err error) error {
	return fmt.Errorf("%s: %v: %w", op, err, ErrStorageUnavailable)
}
