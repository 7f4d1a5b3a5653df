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

type PgCompanyRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewPgCompanyRepository creates the PostgreSQL implementation of
// CompanyRepository.
func NewPgCompanyRepository(db *pgxpool.Pool, logger *slog.Logger) *PgCompanyRepository {
	return &PgCompanyRepository{db: db, logger: logger}
}

func (r *PgCompanyRepository) GetByToken(ctx context.Context, token string) (*domain.Company, error) {
	query := `
		SELECT id, name, provider_token, subscription_plan, is_active, settings, created_at, updated_at
		FROM companies
		WHERE provider_token = $1
	`
	company := &domain.Company{}
	err := r.db.QueryRow(ctx, query, token).Scan(
		&company.ID, &company.Name, &company.ProviderToken, &company.SubscriptionPlan,
		&company.IsActive, &company.Settings, &company.CreatedAt, &company.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return company, nil
}

// Create inserts a new company. The provider_token column carries a unique
// constraint; a collision (concurrent first contact) surfaces as
// domain.ErrDuplicateEntry so the caller can re-select.
func (r *PgCompanyRepository) Create(ctx context.Context, company *domain.Company) (*domain.Company, error) {
	company.ID = uuid.New()
	now := time.Now().UTC()
	company.CreatedAt = now
	company.UpdatedAt = now

	query := `
		INSERT INTO companies (id, name, provider_token, subscription_plan, is_active, settings, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.Exec(ctx, query,
		company.ID, company.Name, company.ProviderToken, company.SubscriptionPlan,
		company.IsActive, company.Settings, company.CreatedAt, company.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrDuplicateEntry
		}
		r.logger.ErrorContext(ctx, "Error inserting company", "error", err, "company_id", company.ID)
		return nil, err
	}
	return company, nil
}
