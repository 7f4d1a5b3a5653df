package postgres

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bizchat/wagateway/internal/ingest_service/domain"
)

type PgWaUserRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgWaUserRepository creates the PostgreSQL implementation of
// WaUserRepository.
func NewPgWaUserRepository(db *pgxpool.Pool, logger *slog.Logger) *PgWaUserRepository {
	return &PgWaUserRepository{db: db, logger: logger}
}

func (r *PgWaUserRepository) GetByPhone(ctx context.Context, companyID uuid.UUID, phoneNumber string) (*domain.WaUser, error) {
	query := `
		SELECT id, company_id, phone_number, name, opt_in_status,
		       last_interaction_at, window_expires_at, created_at, updated_at
		FROM whatsapp_users
		WHERE company_id = $1 AND phone_number = $2
	`
	user := &domain.WaUser{}
	err := r.db.QueryRow(ctx, query, companyID, phoneNumber).Scan(
		&user.ID, &user.CompanyID, &user.PhoneNumber, &user.Name, &user.OptIn,
		&user.LastInteractionAt, &user.WindowExpiresAt, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

func (r *PgWaUserRepository) Create(ctx context.Context, user *domain.WaUser) (*domain.WaUser, error) {
	user.ID = uuid.New()
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO whatsapp_users (id, company_id, phone_number, name, opt_in_status,
		                            last_interaction_at, window_expires_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.Exec(ctx, query,
		user.ID, user.CompanyID, user.PhoneNumber, user.Name, user.OptIn,
		user.LastInteractionAt, user.WindowExpiresAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error inserting whatsapp user", "error", err, "user_id", user.ID)
		return nil, err
	}
	return user, nil
}

// RefreshWindow extends the rolling session window; called on every inbound
// message from a known user.
func (r *PgWaUserRepository) RefreshWindow(ctx context.Context, id uuid.UUID, lastInteractionAt, windowExpiresAt time.Time) error {
	query := `
		UPDATE whatsapp_users
		SET last_interaction_at = $2, window_expires_at = $3, updated_at = $2
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, id, lastInteractionAt, windowExpiresAt)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error refreshing user window", "error", err, "user_id", id)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
