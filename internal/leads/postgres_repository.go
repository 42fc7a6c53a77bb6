package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Querier is the subset of pgxpool.Pool the repository needs; pgxmock
// satisfies it in tests.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db Querier
}

// NewPostgresRepository initializes a repository backed by a pgx pool (or
// any compatible querier).
func NewPostgresRepository(db Querier) *PostgresRepository {
	if db == nil {
		panic("leads: querier required")
	}
	return &PostgresRepository{db: db}
}

// Upsert creates or refreshes the row keyed by email.
func (r *PostgresRepository) Upsert(ctx context.Context, params UpsertParams) (*Lead, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(params.Email))

	query := `
		INSERT INTO leads (id, email, status, appointment_time)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO UPDATE SET
			status = EXCLUDED.status,
			appointment_time = COALESCE(EXCLUDED.appointment_time, leads.appointment_time),
			updated_at = now()
		RETURNING id, email, status, appointment_time, created_at, updated_at
	`
	var appointment *time.Time
	if params.AppointmentTime != nil {
		t := params.AppointmentTime.UTC()
		appointment = &t
	}

	var lead Lead
	if err := r.db.QueryRow(ctx, query, uuid.NewString(), email, string(params.Status), appointment).Scan(
		&lead.ID,
		&lead.Email,
		&lead.Status,
		&lead.AppointmentTime,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return &lead, nil
}

// GetByEmail fetches a lead by its email key.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*Lead, error) {
	query := `
		SELECT id, email, status, appointment_time, created_at, updated_at
		FROM leads
		WHERE email = $1
	`
	var lead Lead
	err := r.db.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&lead.ID,
		&lead.Email,
		&lead.Status,
		&lead.AppointmentTime,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return &lead, nil
}
