// Package gcal adapts the Google Calendar API to the scheduling core's
// read, write, and credential-refresh ports.
package gcal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

const defaultCallTimeout = 10 * time.Second

// Config holds the calendar binding: one calendar resource per deployment.
type Config struct {
	CalendarID   string
	ClientID     string
	ClientSecret string
	RefreshToken string
	CallTimeout  time.Duration
}

// Client wraps the Google Calendar service for one calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
	timeout    time.Duration
	logger     *logging.Logger
}

// NewClient exchanges the long-lived refresh credential for short-lived
// access tokens via oauth2 and binds to the configured calendar. A missing
// refresh credential returns ErrNotConnected so callers can distinguish
// "not yet connected" from a transient failure.
func NewClient(ctx context.Context, cfg Config, logger *logging.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.RefreshToken) == "" {
		return nil, ErrNotConnected
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{calendar.CalendarScope},
	}
	tokenSource := oauthCfg.TokenSource(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauth2.ReuseTokenSource(nil, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("gcal: init service: %w", err)
	}
	return newClient(svc, cfg, logger), nil
}

// NewClientWithService binds to an externally constructed calendar service.
// Tests use this with a stub HTTP backend.
func NewClientWithService(svc *calendar.Service, cfg Config, logger *logging.Logger) *Client {
	return newClient(svc, cfg, logger)
}

func newClient(svc *calendar.Service, cfg Config, logger *logging.Logger) *Client {
	if logger == nil {
		logger = logging.Default()
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	timeout := cfg.CallTimeout
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}
	return &Client{
		svc:        svc,
		calendarID: calendarID,
		timeout:    timeout,
		logger:     logger.Component("gcal"),
	}
}

// FreeBusy returns the calendar's occupied intervals within [rangeStart,
// rangeEnd). A response without data for our calendar yields an empty list,
// which callers treat as "assume free"; that degraded mode is deliberate
// and can overbook (see the generator's busy-marking fallback).
func (c *Client) FreeBusy(ctx context.Context, rangeStart, rangeEnd time.Time) ([]schedule.Interval, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: rangeStart.UTC().Format(time.RFC3339),
		TimeMax: rangeEnd.UTC().Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: c.calendarID}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, classify("freebusy query", err)
	}

	cal, ok := resp.Calendars[c.calendarID]
	if !ok {
		c.logger.Warn("free/busy response missing our calendar, assuming free", "calendar_id", c.calendarID)
		return nil, nil
	}

	intervals := make([]schedule.Interval, 0, len(cal.Busy))
	for _, period := range cal.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			c.logger.Warn("skipping unparsable busy period", "start", period.Start, "error", err)
			continue
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			c.logger.Warn("skipping unparsable busy period", "end", period.End, "error", err)
			continue
		}
		intervals = append(intervals, schedule.Interval{Start: start.UTC(), End: end.UTC()})
	}
	return intervals, nil
}

// CreateEventParams describes one calendar write.
type CreateEventParams struct {
	Start         time.Time
	End           time.Time
	AttendeeEmail string
	Summary       string
	Description   string
}

// CreatedEvent is the outcome of a calendar write.
type CreatedEvent struct {
	EventID  string
	JoinLink string
}

// CreateEvent inserts the event with a Meet conference attached and invites
// the attendee.
func (c *Client) CreateEvent(ctx context.Context, p CreateEventParams) (*CreatedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	event := &calendar.Event{
		Summary:     p.Summary,
		Description: p.Description,
		Start:       &calendar.EventDateTime{DateTime: p.Start.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		End:         &calendar.EventDateTime{DateTime: p.End.UTC().Format(time.RFC3339), TimeZone: "UTC"},
		ConferenceData: &calendar.ConferenceData{
			CreateRequest: &calendar.CreateConferenceRequest{
				RequestId:             uuid.NewString(),
				ConferenceSolutionKey: &calendar.ConferenceSolutionKey{Type: "hangoutsMeet"},
			},
		},
	}
	if p.AttendeeEmail != "" {
		event.Attendees = []*calendar.EventAttendee{{Email: p.AttendeeEmail}}
	}

	created, err := c.svc.Events.Insert(c.calendarID, event).
		ConferenceDataVersion(1).
		SendUpdates("all").
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("insert event", err)
	}

	return &CreatedEvent{EventID: created.Id, JoinLink: joinLink(created)}, nil
}

// FindEventByAttendee looks for an existing event in [start, end) with the
// given attendee. The booking coordinator uses it to detect an
// already-booked retry before writing a duplicate.
func (c *Client) FindEventByAttendee(ctx context.Context, start, end time.Time, email string) (*CreatedEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.svc.Events.List(c.calendarID).
		TimeMin(start.UTC().Format(time.RFC3339)).
		TimeMax(end.UTC().Format(time.RFC3339)).
		SingleEvents(true).
		Context(ctx).
		Do()
	if err != nil {
		return nil, classify("list events", err)
	}

	email = strings.ToLower(strings.TrimSpace(email))
	for _, evt := range resp.Items {
		if evt.Status == "cancelled" {
			continue
		}
		for _, attendee := range evt.Attendees {
			if strings.ToLower(attendee.Email) == email {
				return &CreatedEvent{EventID: evt.Id, JoinLink: joinLink(evt)}, nil
			}
		}
	}
	return nil, nil
}

func joinLink(evt *calendar.Event) string {
	if evt.HangoutLink != "" {
		return evt.HangoutLink
	}
	if evt.ConferenceData != nil {
		for _, ep := range evt.ConferenceData.EntryPoints {
			if ep.EntryPointType == "video" && ep.Uri != "" {
				return ep.Uri
			}
		}
	}
	return ""
}
