// Package booking turns a confirmed slot selection into exactly one
// calendar event, with best-effort CRM and notification side effects.
package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/gcal"
)

// CalendarWriter performs the single external write.
type CalendarWriter interface {
	CreateEvent(ctx context.Context, p gcal.CreateEventParams) (*gcal.CreatedEvent, error)
}

// CalendarSearcher looks up existing events so a retried booking can be
// detected as already booked instead of creating a duplicate.
type CalendarSearcher interface {
	FindEventByAttendee(ctx context.Context, start, end time.Time, email string) (*gcal.CreatedEvent, error)
}

// ValidationError rejects malformed input before any external call.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("booking: invalid %s: %s", e.Field, e.Reason)
}

// RaceError means the slot stopped being bookable between presentation and
// the write: time passed, or the calendar filled up.
type RaceError struct {
	Reason string
}

func (e *RaceError) Error() string {
	return fmt.Sprintf("booking: slot no longer available: %s", e.Reason)
}

// ExternalError wraps a collaborator failure. The conversation layer
// converts it into a recoverable user-visible error.
type ExternalError struct {
	Op  string
	Err error
}

func (e *ExternalError) Error() string {
	return fmt.Sprintf("booking: %s failed: %v", e.Op, e.Err)
}

func (e *ExternalError) Unwrap() error {
	return e.Err
}

// Outcome is a successful (or previously successful) booking.
type Outcome struct {
	EventID       string
	JoinLink      string
	Start         time.Time
	End           time.Time
	AlreadyBooked bool
}
