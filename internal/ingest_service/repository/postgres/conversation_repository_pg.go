package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

type PgConversationRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgConversationRepository creates the PostgreSQL implementation of
// ConversationRepository.
func NewPgConversationRepository(db *pgxpool.Pool, logger *slog.Logger) *PgConversationRepository {
	return &PgConversationRepository{db: db, logger: logger}
}

// GetLatestActiveByUserID returns the user's most recently active
// conversation. Ordering by last_message_at keeps resolution stable if
// stale active rows ever exist.
func (r *PgConversationRepository) GetLatestActiveByUserID(ctx context.Context, userID uuid.UUID) (*domain.Conversation, error) {
	query := `
		SELECT id, user_id, company_id, status, priority, context, started_at, last_message_at
		FROM conversations
		WHERE user_id = $1 AND status = 'active'
		ORDER BY last_message_at DESC
		LIMIT 1
	`
	conversation := &domain.Conversation{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&conversation.ID, &conversation.UserID, &conversation.CompanyID,
		&conversation.Status, &conversation.Priority, &conversation.Context,
		&conversation.StartedAt, &conversation.LastMessageAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return conversation, nil
}

func (r *PgConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) (*domain.Conversation, error) {
	conversation.ID = uuid.New()

	query := `
		INSERT INTO conversations (id, user_id, company_id, status, priority, context, started_at, last_message_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		conversation.ID, conversation.UserID, conversation.CompanyID,
		conversation.Status, conversation.Priority, conversation.Context,
		conversation.StartedAt, conversation.LastMessageAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error inserting conversation", "error", err, "conversation_id", conversation.ID)
		return nil, err
	}
	return conversation, nil
}

func (r *PgConversationRepository) BumpLastMessage(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := `UPDATE conversations SET last_message_at = $2 WHERE id = $1`
	tag, err := r.db.Exec(ctx, query, id, at)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error bumping conversation last message", "error", err, "conversation_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
