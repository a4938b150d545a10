package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ndyy2/chatbot-axelon/internal/config"
	"github.com/ndyy2/chatbot-axelon/internal/db"
	"github.com/ndyy2/chatbot-axelon/internal/domain"
	"github.com/ndyy2/chatbot-axelon/internal/llm"
	"github.com/ndyy2/chatbot-axelon/internal/repository"
	"github.com/ndyy2/chatbot-axelon/internal/service"
)

// REPL de consola para probar el flujo de chat completo contra la base y el
// proveedor reales, sin pasar por HTTP. Cada corrida es un invitado nuevo.
func main() {
	ctx := context.Background()
	reader := bufio.NewReader(os.Stdin)

	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger := zap.NewExample()
	defer logger.Sync()

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer pool.Close()

	conversationRepo := repository.NewPgConversationRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	maxTokens, temperature := service.DefaultModelParams()
	llmClient := llm.NewHTTPClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, maxTokens, temperature, logger)
	completionSvc := service.NewCompletionService(llmClient)
	chatSvc := service.NewChatService(logger, conversationRepo, messageRepo, completionSvc)

	identity := service.ResolveIdentity("", "")
	fmt.Printf("Sesion de invitado: %s\n", identity.GuestToken)
	fmt.Println("Escribe un mensaje y enter. Comandos: /history, /exit")

	var conversationID string
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			return
		}
		line = strings.TrimSpace(line)

		switch {
		case line == "":
			continue
		case line == "/exit":
			return
		case line == "/history":
			printHistory(ctx, chatSvc, identity, conversationID)
			continue
		}

		turn, err := chatSvc.SendMessage(ctx, identity, conversationID, line)
		if err != nil {
			log.Printf("turno fallido: %v", err)
			continue
		}
		conversationID = turn.Conversation.ID
		fmt.Printf("[%s] %s\n", turn.Conversation.Title, turn.AssistantMessage.Content)
	}
}

func printHistory(ctx context.Context, chatSvc *service.ChatService, identity domain.Identity, conversationID string) {
	if conversationID == "" {
		fmt.Println("(sin conversacion todavia)")
		return
	}
	_, messages, err := chatSvc.GetConversation(ctx, identity, conversationID)
	if err != nil {
		log.Printf("cargar historial: %v", err)
		return
	}
	for _, m := range messages {
		fmt.Printf("%3d %-9s %s\n", m.Seq, m.Role, m.Content)
	}
}
