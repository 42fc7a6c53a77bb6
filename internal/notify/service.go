package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/observability/metrics"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

const defaultSendTimeout = 5 * time.Second

// BookingNotice carries everything needed to confirm a booking by email.
type BookingNotice struct {
	AttendeeEmail string
	OwnerEmail    string
	BusinessName  string
	WhenLabel     string
	JoinLink      string
}

// Service sends best-effort booking notifications. Sends run off the
// request path with a short timeout; a failed send is logged and counted
// but never fails the booking, since the calendar write is the source of
// truth.
type Service struct {
	sender  EmailSender
	metrics *metrics.NotifyMetrics
	logger  *logging.Logger
	timeout time.Duration
}

// NewService creates a notification service. A nil sender disables sending.
func NewService(sender EmailSender, m *metrics.NotifyMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		sender:  sender,
		metrics: m,
		logger:  logger.Component("notify"),
		timeout: defaultSendTimeout,
	}
}

// WithTimeout overrides the per-send timeout.
func (s *Service) WithTimeout(d time.Duration) *Service {
	if d > 0 {
		s.timeout = d
	}
	return s
}

// BookingConfirmed fires the attendee and owner emails asynchronously and
// returns immediately.
func (s *Service) BookingConfirmed(notice BookingNotice) {
	if s == nil || s.sender == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.SendBookingEmails(ctx, notice)
	}()
}

// SendBookingEmails performs the actual sends. Exposed separately so tests
// and callers that want synchronous behavior can use it directly.
func (s *Service) SendBookingEmails(ctx context.Context, notice BookingNotice) {
	if s == nil || s.sender == nil {
		return
	}

	joinLine := ""
	if notice.JoinLink != "" {
		joinLine = fmt.Sprintf("\n\nJoin link: %s", notice.JoinLink)
	}

	if notice.AttendeeEmail != "" {
		s.deliver(ctx, "attendee_confirmation", EmailMessage{
			To:      notice.AttendeeEmail,
			Subject: fmt.Sprintf("Your meeting with %s is confirmed", notice.BusinessName),
			Body: fmt.Sprintf("You're booked for %s.%s\n\nSee you then!\n%s",
				notice.WhenLabel, joinLine, notice.BusinessName),
		})
	}

	if notice.OwnerEmail != "" {
		s.deliver(ctx, "owner_notice", EmailMessage{
			To:      notice.OwnerEmail,
			Subject: fmt.Sprintf("New booking: %s", notice.WhenLabel),
			Body: fmt.Sprintf("%s booked %s.%s", notice.AttendeeEmail, notice.WhenLabel, joinLine),
		})
	}
}

func (s *Service) deliver(ctx context.Context, kind string, msg EmailMessage) {
	if err := s.sender.Send(ctx, msg); err != nil {
		s.metrics.ObserveSend(kind, "error")
		s.logger.Warn("notification send failed", "kind", kind, "to", msg.To, "error", err)
		return
	}
	s.metrics.ObserveSend(kind, "ok")
}
