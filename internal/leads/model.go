package leads

import (
	"errors"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/intent"
)

// Status tracks where a lead is in the funnel.
type Status string

const (
	StatusEngaged Status = "engaged"
	StatusBooked  Status = "booked"
)

// Lead is the CRM projection of a conversation contact, keyed by email.
type Lead struct {
	ID              string     `json:"id"`
	Email           string     `json:"email"`
	Status          Status     `json:"status"`
	AppointmentTime *time.Time `json:"appointment_time,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// UpsertParams creates or refreshes a lead row.
type UpsertParams struct {
	Email           string
	Status          Status
	AppointmentTime *time.Time
}

// ErrLeadNotFound is returned when no lead exists for a key.
var ErrLeadNotFound = errors.New("leads: lead not found")

// ErrInvalidEmail rejects malformed upsert keys before any storage call.
var ErrInvalidEmail = errors.New("leads: invalid email")

// Validate checks the upsert key.
func (p *UpsertParams) Validate() error {
	if !intent.ValidEmail(p.Email) {
		return ErrInvalidEmail
	}
	return nil
}
