package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/llm"
)

// Persona fija del asistente; no es configurable por el usuario.
const systemPrompt = "You are a helpful and engaging chatbot. Provide clear, concise, and friendly responses."

// completionFallback sustituye respuestas vacias o malformadas del proveedor.
const completionFallback = "Sorry, I couldn't generate a response."

const (
	completionMaxTokens   = 512
	completionTemperature = 0.7
	completionTimeout     = 60 * time.Second
)

// ErrCompletionUnavailable indica que la llamada externa fallo o expiro.
// Un solo intento por turno; el reintento, si existe, es del caller.
var ErrCompletionUnavailable = errors.New("completion unavailable")

// CompletionService arma el prompt (instruccion de sistema + historial) e
// invoca al proveedor externo de completions.
type CompletionService struct {
	client llm.LLMClient
}

func NewCompletionService(client llm.LLMClient) *CompletionService {
	return &CompletionService{client: client}
}

// DefaultModelParams expone las constantes de muestreo para el wiring en main.
func DefaultModelParams() (maxTokens int, temperature float64) {
	return completionMaxTokens, completionTemperature
}

// Reply genera la respuesta del asistente para un historial que termina en
// el mensaje del usuario recien guardado. El historial se reproduce en el
// orden exacto de append; cualquier defecto de orden corrompe el contexto
// del modelo.
func (s *CompletionService) Reply(ctx context.Context, history []domain.Message) (string, error) {
	if s == nil || s.client == nil {
		return "", fmt.Errorf("completion service not configured: %w", ErrCompletionUnavailable)
	}

	prompt := make([]llm.Message, 0, len(history)+1)
	prompt = append(prompt, llm.Message{Role: "system", Content: systemPrompt})
	for _, m := range history {
		prompt = append(prompt, llm.Message{Role: m.Role, Content: m.Content})
	}

	ctx, cancel := context.WithTimeout(ctx, completionTimeout)
	defer cancel()

	out, err := s.client.Chat(ctx, prompt)
	if err != nil {
		if errors.Is(err, llm.ErrEmptyCompletion) {
			return completionFallback, nil
		}
		return "", fmt.Errorf("llm chat: %v: %w", err, ErrCompletionUnavailable)
	}
	if strings.TrimSpace(out) == "" {
		return completionFallback, nil
	}
	return out, nil
}
