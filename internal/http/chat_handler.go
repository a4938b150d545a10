package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/service"
)

const (
	guestCookieName   = "guest_session"
	guestCookieMaxAge = 7 * 24 * 60 * 60 // segundos
)

// ChatHandler mantiene dependencias para los endpoints de chat.
type ChatHandler struct {
	logger   *zap.Logger
	chatServ *service.ChatService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, chatServ *service.ChatService) *ChatHandler {
	return &ChatHandler{
		logger:   logger,
		chatServ: chatServ,
	}
}

// PostChat maneja POST /chat: un turno completo de conversacion.
func (h *ChatHandler) PostChat(c *gin.Context) {
	var req struct {
		Message        string `json:"message"`
		ConversationID string `json:"conversation_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	identity := h.resolveIdentity(c)

	turn, err := h.chatServ.SendMessage(c.Request.Context(), identity, req.ConversationID, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrInvalidMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
			return
		}
		h.logger.Error("chat turn failed",
			zap.Error(err),
			zap.String("identity_kind", string(identity.Kind)),
		)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not generate response"})
		return
	}

	// La cookie de invitado se emite solo cuando el turno completo tuvo
	// exito; reemitirla en cada turno renueva la ventana de 7 dias.
	if identity.Kind == domain.IdentityGuest {
		h.setGuestCookie(c, identity.GuestToken)
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation_id":   turn.Conversation.ID,
		"user_message":      turn.UserMessage,
		"assistant_message": turn.AssistantMessage,
	})
}

// GetChat maneja GET /chat?conversation_id=...
func (h *ChatHandler) GetChat(c *gin.Context) {
	conversationID := c.Query("conversation_id")
	if conversationID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "conversation_id is required"})
		return
	}

	identity := h.resolveIdentity(c)

	conv, messages, err := h.chatServ.GetConversation(c.Request.Context(), identity, conversationID)
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "conversation not found"})
			return
		}
		h.logger.Error("get conversation failed", zap.Error(err), zap.String("conversation_id", conversationID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load conversation"})
		return
	}

	if messages == nil {
		messages = []domain.Message{}
	}
	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}

// ListConversations maneja GET /conversations (solo autenticados).
func (h *ChatHandler) ListConversations(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	conversations, err := h.chatServ.ListConversations(c.Request.Context(), claims.UserID)
	if err != nil {
		h.logger.Error("list conversations failed", zap.Error(err), zap.String("user_id", claims.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// ExportChat maneja GET /chats/:id/export: documento plano para descarga.
func (h *ChatHandler) ExportChat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	identity := domain.Identity{Kind: domain.IdentityUser, UserID: claims.UserID}
	conv, messages, err := h.chatServ.GetConversation(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		h.logger.Error("export chat failed", zap.Error(err), zap.String("user_id", claims.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not export chat"})
		return
	}

	type exportMessage struct {
		Role      string    `json:"role"`
		Content   string    `json:"content"`
		Timestamp time.Time `json:"timestamp"`
	}
	exported := make([]exportMessage, 0, len(messages))
	for _, m := range messages {
		exported = append(exported, exportMessage{
			Role:      m.Role,
			Content:   m.Content,
			Timestamp: m.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"chat_id":    conv.ID,
		"title":      conv.Title,
		"created_at": conv.CreatedAt,
		"messages":   exported,
	})
}

// DeleteChat maneja DELETE /chats/:id. Repetir el borrado responde 404,
// no una falla.
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	claims, ok := GetAuthClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	identity := domain.Identity{Kind: domain.IdentityUser, UserID: claims.UserID}
	err := h.chatServ.DeleteConversation(c.Request.Context(), identity, c.Param("id"))
	if err != nil {
		if errors.Is(err, service.ErrConversationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
			return
		}
		h.logger.Error("delete chat failed", zap.Error(err), zap.String("user_id", claims.UserID))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not delete chat"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h *ChatHandler) resolveIdentity(c *gin.Context) domain.Identity {
	claims, _ := GetAuthClaims(c)
	cookieToken, _ := c.Cookie(guestCookieName)
	return service.ResolveIdentity(claims.UserID, cookieToken)
}

func (h *ChatHandler) setGuestCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	secure := gin.Mode() == gin.ReleaseMode
	c.SetCookie(guestCookieName, token, guestCookieMaxAge, "/", "", secure, true)
}
