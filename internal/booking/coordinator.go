package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frontdesk-ai/frontdesk/internal/gcal"
	"github.com/frontdesk-ai/frontdesk/internal/intent"
	"github.com/frontdesk-ai/frontdesk/internal/leads"
	"github.com/frontdesk-ai/frontdesk/internal/notify"
	"github.com/frontdesk-ai/frontdesk/internal/observability/metrics"
	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

var tracer = otel.Tracer("frontdesk.internal.booking")

// Config carries the fixed copy used on created events and the slot
// geometry every write must match.
type Config struct {
	BusinessName string
	OwnerEmail   string

	// SlotMinutes is the only event duration this deployment offers;
	// zero skips the check.
	SlotMinutes int
}

// Coordinator owns the booking write path. The external calendar is the
// only true arbiter of conflicts; this coordinator's job is to validate,
// narrow the race window with a fresh busy check, write once, and keep the
// CRM and notification projections best-effort.
type Coordinator struct {
	writer   CalendarWriter
	searcher CalendarSearcher
	busy     schedule.BusyOracle
	guard    Guard
	leadRepo leads.Repository
	notifier *notify.Service
	clock    *tz.Clock
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
	cfg      Config
}

// NewCoordinator wires the booking path. leadRepo, notifier, searcher,
// busy, and metrics may each be nil; the corresponding step is skipped.
func NewCoordinator(
	writer CalendarWriter,
	searcher CalendarSearcher,
	busy schedule.BusyOracle,
	guard Guard,
	leadRepo leads.Repository,
	notifier *notify.Service,
	clock *tz.Clock,
	m *metrics.BookingMetrics,
	logger *logging.Logger,
	cfg Config,
) *Coordinator {
	if writer == nil {
		panic("booking: calendar writer required")
	}
	if guard == nil {
		guard = NewMemoryGuard()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Coordinator{
		writer:   writer,
		searcher: searcher,
		busy:     busy,
		guard:    guard,
		leadRepo: leadRepo,
		notifier: notifier,
		clock:    clock,
		metrics:  m,
		logger:   logger.Component("booking"),
		cfg:      cfg,
	}
}

// Book performs the single external write for a confirmed slot selection.
func (c *Coordinator) Book(ctx context.Context, slot schedule.Slot, sessionID, email string) (*Outcome, error) {
	ctx, span := tracer.Start(ctx, "booking.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("booking.session_id", sessionID),
		attribute.String("booking.slot_start", slot.Start.Format(time.RFC3339)),
	)

	if !slot.End.After(slot.Start) {
		return nil, &ValidationError{Field: "slot", Reason: "end must be after start"}
	}
	// The slot times arrive from the client, so the duration is re-derived
	// here rather than trusted; anything but the offered granularity would
	// write an arbitrarily long event.
	if c.cfg.SlotMinutes > 0 && slot.End.Sub(slot.Start) != time.Duration(c.cfg.SlotMinutes)*time.Minute {
		return nil, &ValidationError{Field: "slot", Reason: "unexpected slot duration"}
	}
	if !intent.ValidEmail(email) {
		return nil, &ValidationError{Field: "email", Reason: "not a valid email address"}
	}
	// Time may have passed since the slot was generated; re-validate.
	if !slot.Start.After(c.clock.Now()) {
		return nil, &RaceError{Reason: "start time is already in the past"}
	}

	acquired, err := c.guard.Acquire(ctx, sessionID, slot.Start)
	if err != nil {
		// Guard storage being down must not block bookings; the calendar's
		// own conflict semantics remain the backstop.
		c.logger.Warn("booking guard unavailable, proceeding without it", "error", err)
		acquired = true
	}
	if !acquired {
		if prior := c.findExisting(ctx, slot, email); prior != nil {
			c.metrics.ObserveOutcome("already_booked")
			return prior, nil
		}
		// Guard held but no event found: the earlier attempt is either
		// still in flight or failed without releasing. Proceed; the
		// pre-write idempotency check below covers the success case.
	}

	if outcome, err := c.writeOnce(ctx, slot, sessionID, email); err != nil {
		return nil, err
	} else if outcome.AlreadyBooked {
		c.metrics.ObserveOutcome("already_booked")
		return outcome, nil
	} else {
		c.metrics.ObserveOutcome("booked")
		c.projectLead(ctx, email, slot.Start)
		c.sendNotices(email, slot, outcome)
		return outcome, nil
	}
}

func (c *Coordinator) writeOnce(ctx context.Context, slot schedule.Slot, sessionID, email string) (*Outcome, error) {
	// Retry detection: an event at this time with this attendee means a
	// previous attempt already succeeded. Where the lookup fails we fall
	// through to creation; at-least-once duplicate creation is the
	// documented residual gap.
	if prior := c.findExisting(ctx, slot, email); prior != nil {
		return prior, nil
	}

	// Fresh busy check immediately before writing narrows, but cannot
	// eliminate, the double-booking race; nothing holds a lock on the
	// external calendar.
	if c.busy != nil {
		intervals, err := c.busy.FreeBusy(ctx, slot.Start, slot.End)
		if err != nil {
			c.logger.Warn("pre-write busy check failed, writing anyway", "error", err)
		} else {
			for _, b := range intervals {
				if b.Start.Before(slot.End) && slot.Start.Before(b.End) {
					c.releaseGuard(ctx, sessionID, slot.Start)
					c.metrics.ObserveOutcome("race_lost")
					return nil, &RaceError{Reason: "calendar filled this time in the meantime"}
				}
			}
		}
	}

	created, err := c.writer.CreateEvent(ctx, gcal.CreateEventParams{
		Start:         slot.Start,
		End:           slot.End,
		AttendeeEmail: email,
		Summary:       fmt.Sprintf("%s — intro call", c.cfg.BusinessName),
		Description:   fmt.Sprintf("Booked via the %s assistant for %s.", c.cfg.BusinessName, email),
	})
	if err != nil {
		c.releaseGuard(ctx, sessionID, slot.Start)
		if gcal.IsConflictError(err) {
			c.metrics.ObserveOutcome("race_lost")
			return nil, &RaceError{Reason: "the calendar rejected this time as taken"}
		}
		c.metrics.ObserveOutcome("failed")
		return nil, &ExternalError{Op: "calendar write", Err: err}
	}

	return &Outcome{
		EventID:  created.EventID,
		JoinLink: created.JoinLink,
		Start:    slot.Start,
		End:      slot.End,
	}, nil
}

func (c *Coordinator) findExisting(ctx context.Context, slot schedule.Slot, email string) *Outcome {
	if c.searcher == nil {
		return nil
	}
	existing, err := c.searcher.FindEventByAttendee(ctx, slot.Start, slot.End, email)
	if err != nil {
		c.logger.Warn("already-booked lookup failed", "error", err)
		return nil
	}
	if existing == nil {
		return nil
	}
	return &Outcome{
		EventID:       existing.EventID,
		JoinLink:      existing.JoinLink,
		Start:         slot.Start,
		End:           slot.End,
		AlreadyBooked: true,
	}
}

func (c *Coordinator) releaseGuard(ctx context.Context, sessionID string, start time.Time) {
	if err := c.guard.Release(ctx, sessionID, start); err != nil {
		c.logger.Warn("booking guard release failed", "error", err)
	}
}

// projectLead upserts the CRM row. The calendar write is the source of
// truth; a failed projection is logged and dropped.
func (c *Coordinator) projectLead(ctx context.Context, email string, start time.Time) {
	if c.leadRepo == nil {
		return
	}
	if _, err := c.leadRepo.Upsert(ctx, leads.UpsertParams{
		Email:           email,
		Status:          leads.StatusBooked,
		AppointmentTime: &start,
	}); err != nil {
		c.logger.Warn("lead upsert failed after booking", "email", email, "error", err)
	}
}

func (c *Coordinator) sendNotices(email string, slot schedule.Slot, outcome *Outcome) {
	if c.notifier == nil {
		return
	}
	c.notifier.BookingConfirmed(notify.BookingNotice{
		AttendeeEmail: email,
		OwnerEmail:    c.cfg.OwnerEmail,
		BusinessName:  c.cfg.BusinessName,
		WhenLabel:     c.clock.Label(slot.Start),
		JoinLink:      outcome.JoinLink,
	})
}
