package leads

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository is the lead store port. The booking coordinator treats it as
// best-effort: failures are logged, never propagated.
type Repository interface {
	Upsert(ctx context.Context, params UpsertParams) (*Lead, error)
	GetByEmail(ctx context.Context, email string) (*Lead, error)
}

// InMemoryRepository backs deployments without a database.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead // keyed by lowercased email
}

// NewInMemoryRepository creates an empty in-memory lead store.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{leads: make(map[string]*Lead)}
}

// Upsert creates the lead or refreshes its status and appointment time.
func (r *InMemoryRepository) Upsert(_ context.Context, params UpsertParams) (*Lead, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	key := strings.ToLower(strings.TrimSpace(params.Email))
	now := time.Now().UTC()

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.leads[key]; ok {
		existing.Status = params.Status
		if params.AppointmentTime != nil {
			t := params.AppointmentTime.UTC()
			existing.AppointmentTime = &t
		}
		existing.UpdatedAt = now
		copied := *existing
		return &copied, nil
	}

	lead := &Lead{
		ID:        uuid.NewString(),
		Email:     key,
		Status:    params.Status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if params.AppointmentTime != nil {
		t := params.AppointmentTime.UTC()
		lead.AppointmentTime = &t
	}
	r.leads[key] = lead
	copied := *lead
	return &copied, nil
}

// GetByEmail retrieves a lead by its email key.
func (r *InMemoryRepository) GetByEmail(_ context.Context, email string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrLeadNotFound
	}
	copied := *lead
	return &copied, nil
}
