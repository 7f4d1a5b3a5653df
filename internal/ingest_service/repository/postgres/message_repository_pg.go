package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

type PgMessageRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgMessageRepository creates the PostgreSQL implementation of
// MessageRepository.
func NewPgMessageRepository(db *pgxpool.Pool, logger *slog.Logger) *PgMessageRepository {
	return &PgMessageRepository{db: db, logger: logger}
}

func (r *PgMessageRepository) Create(ctx context.Context, message *domain.Message) (*domain.Message, error) {
	message.ID = uuid.New()
	if message.SentAt.IsZero() {
		message.SentAt = time.Now().UTC()
	}

	query := `
		INSERT INTO messages (id, conversation_id, sender_type, sender_id, content,
		                      message_type, provider_message_id, status, metadata, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		message.ID, message.ConversationID, message.SenderType, message.SenderID, message.Content,
		message.MessageType, message.ProviderMessageID, message.Status, message.Metadata, message.SentAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error inserting message",
			"error", err, "message_id", message.ID, "conversation_id", message.ConversationID)
		return nil, err
	}
	return message, nil
}

func (r *PgMessageRepository) ExistsByProviderMessageID(ctx context.Context, providerMessageID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM messages WHERE provider_message_id = $1)`
	var exists bool
	if err := r.db.QueryRow(ctx, query, providerMessageID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}
