package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
)

// MessageRepository define el contrato de persistencia para mensajes.
type MessageRepository interface {
	Append(ctx context.Context, message domain.Message) (domain.Message, error)
	ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error)
	DeleteByConversationID(ctx context.Context, conversationID string) error
}

type PgMessageRepository struct {
	pool *pgxpool.Pool
}

func NewPgMessageRepository(pool *pgxpool.Pool) *PgMessageRepository {
	return &PgMessageRepository{pool: pool}
}

// Append inserta el mensaje asignando seq = max(seq)+1 dentro del mismo
// INSERT, de modo que el orden queda determinado aun cuando dos mensajes
// compartan timestamp.
func (r *PgMessageRepository) Append(ctx context.Context, message domain.Message) (domain.Message, error) {
	const query = `
		INSERT INTO messages (id, conversation_id, seq, role, content, created_at)
		VALUES (
			$1, $2,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM messages WHERE conversation_id = $2),
			$3, $4, $5
		)
		RETURNING seq
	`

	err := r.pool.QueryRow(ctx, query,
		message.ID,
		message.ConversationID,
		message.Role,
		message.Content,
		message.CreatedAt,
	).Scan(&message.Seq)
	if err != nil {
		return domain.Message{}, err
	}
	return message, nil
}

func (r *PgMessageRepository) ListByConversationID(ctx context.Context, conversationID string) ([]domain.Message, error) {
	const query = `
		SELECT id, conversation_id, seq, role, content, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY seq ASC
	`

	rows, err := r.pool.Query(ctx, query, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var msg domain.Message

		err = rows.Scan(
			&msg.ID,
			&msg.ConversationID,
			&msg.Seq,
			&msg.Role,
			&msg.Content,
			&msg.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *PgMessageRepository) DeleteByConversationID(ctx context.Context, conversationID string) error {
	const query = `
		DELETE FROM messages
		WHERE conversation_id = $1
	`
	_, err := r.pool.Exec(ctx, query, conversationID)
	return err
}
