package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ndyy2/chatbot-axelon/internal/domain"
)

// ConversationRepository define el contrato de persistencia para conversaciones.
type ConversationRepository interface {
	Create(ctx context.Context, conversation domain.Conversation) error
	GetByID(ctx context.Context, id string) (domain.Conversation, error)
	ListByUserID(ctx context.Context, userID string) ([]domain.Conversation, error)
	Touch(ctx context.Context, id string, at time.Time) error
	Delete(ctx context.Context, id string) error
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, conversation domain.Conversation) error {
	const query = `
		INSERT INTO conversations (id, user_id, guest_session_id, title, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	// Exactamente una de las dos columnas de dueno queda en NULL.
	var userID, guestID interface{}
	if conversation.UserID != "" {
		userID = conversation.UserID
	}
	if conversation.GuestSessionID != "" {
		guestID = conversation.GuestSessionID
	}

	_, err := r.pool.Exec(ctx, query,
		conversation.ID,
		userID,
		guestID,
		conversation.Title,
		conversation.CreatedAt,
		conversation.UpdatedAt,
	)
	return err
}

func (r *PgConversationRepository) GetByID(ctx context.Context, id string) (domain.Conversation, error) {
	const query = `
		SELECT id, user_id, guest_session_id, title, created_at, updated_at
		FROM conversations
		WHERE id = $1
	`
	var c domain.Conversation
	var userID, guestID *string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&userID,
		&guestID,
		&c.Title,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Conversation{}, err
	}
	if userID != nil {
		c.UserID = *userID
	}
	if guestID != nil {
		c.GuestSessionID = *guestID
	}
	return c, err
}

func (r *PgConversationRepository) ListByUserID(ctx context.Context, userID string) ([]domain.Conversation, error) {
	const query = `
		SELECT id, user_id, guest_session_id, title, created_at, updated_at
		FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var ownerID, guestID *string

		err = rows.Scan(
			&c.ID,
			&ownerID,
			&guestID,
			&c.Title,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		if ownerID != nil {
			c.UserID = *ownerID
		}
		if guestID != nil {
			c.GuestSessionID = *guestID
		}
		conversations = append(conversations, c)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return conversations, nil
}

func (r *PgConversationRepository) Touch(ctx context.Context, id string, at time.Time) error {
	const query = `
		UPDATE conversations
		SET updated_at = $2
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id, at)
	return err
}

func (r *PgConversationRepository) Delete(ctx context.Context, id string) error {
	const query = `
		DELETE FROM conversations
		WHERE id = $1
	`
	_, err := r.pool.Exec(ctx, query, id)
	return err
}
