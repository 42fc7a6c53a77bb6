package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/frontdesk-ai/frontdesk/internal/gcal"
	"github.com/frontdesk-ai/frontdesk/internal/leads"
	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

type fakeWriter struct {
	calls   int
	lastReq gcal.CreateEventParams
	err     error
}

func (f *fakeWriter) CreateEvent(_ context.Context, p gcal.CreateEventParams) (*gcal.CreatedEvent, error) {
	f.calls++
	f.lastReq = p
	if f.err != nil {
		return nil, f.err
	}
	return &gcal.CreatedEvent{EventID: "evt-1", JoinLink: "https://meet.example/abc"}, nil
}

type fakeSearcher struct {
	found *gcal.CreatedEvent
	err   error
	calls int
}

func (f *fakeSearcher) FindEventByAttendee(_ context.Context, _, _ time.Time, _ string) (*gcal.CreatedEvent, error) {
	f.calls++
	return f.found, f.err
}

type fakeBusy struct {
	intervals []schedule.Interval
	err       error
}

func (f *fakeBusy) FreeBusy(_ context.Context, _, _ time.Time) ([]schedule.Interval, error) {
	return f.intervals, f.err
}

func pinnedClock(t *testing.T) *tz.Clock {
	t.Helper()
	clock, err := tz.NewClock("America/New_York")
	require.NoError(t, err)
	now := time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)
	return clock.WithNow(func() time.Time { return now })
}

func futureSlot(clock *tz.Clock) schedule.Slot {
	start := clock.WallToInstant(2025, time.June, 11, 10, 0)
	return schedule.Slot{Start: start, End: start.Add(30 * time.Minute), Label: clock.Label(start)}
}

func newCoordinator(clock *tz.Clock, w *fakeWriter, s *fakeSearcher, b *fakeBusy, repo leads.Repository) *Coordinator {
	return NewCoordinator(w, s, b, NewMemoryGuard(), repo, nil, clock, nil, logging.Default(), Config{
		BusinessName: "Acme Studio",
		OwnerEmail:   "owner@example.com",
		SlotMinutes:  30,
	})
}

func TestBookSuccess(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	repo := leads.NewInMemoryRepository()
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, repo)

	slot := futureSlot(clock)
	outcome, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.NoError(t, err)
	assert.Equal(t, "evt-1", outcome.EventID)
	assert.Equal(t, "https://meet.example/abc", outcome.JoinLink)
	assert.False(t, outcome.AlreadyBooked)
	assert.Equal(t, 1, writer.calls)
	assert.Equal(t, "lead@example.com", writer.lastReq.AttendeeEmail)
	assert.Contains(t, writer.lastReq.Summary, "Acme Studio")

	lead, err := repo.GetByEmail(context.Background(), "lead@example.com")
	require.NoError(t, err)
	assert.Equal(t, leads.StatusBooked, lead.Status)
	require.NotNil(t, lead.AppointmentTime)
	assert.Equal(t, slot.Start, *lead.AppointmentTime)
}

func TestBookValidation(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, nil)
	slot := futureSlot(clock)

	var verr *ValidationError

	_, err := coord.Book(context.Background(), slot, "sess-1", "not-an-email")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	inverted := schedule.Slot{Start: slot.End, End: slot.Start}
	_, err = coord.Book(context.Background(), inverted, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slot", verr.Field)

	// A crafted pick cannot stretch the event beyond the offered duration.
	oversized := schedule.Slot{Start: slot.Start, End: slot.Start.Add(6 * time.Hour)}
	_, err = coord.Book(context.Background(), oversized, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slot", verr.Field)

	undersized := schedule.Slot{Start: slot.Start, End: slot.Start.Add(5 * time.Minute)}
	_, err = coord.Book(context.Background(), undersized, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "slot", verr.Field)

	assert.Zero(t, writer.calls, "validation failures must not reach the write port")
}

func TestBookPastSlotIsRace(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, nil)

	past := clock.WallToInstant(2025, time.June, 9, 10, 0)
	slot := schedule.Slot{Start: past, End: past.Add(30 * time.Minute)}

	var rerr *RaceError
	_, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, writer.calls)
}

func TestBookPreWriteBusyCheckLosesRace(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	slot := futureSlot(clock)
	busy := &fakeBusy{intervals: []schedule.Interval{{Start: slot.Start, End: slot.End}}}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, busy, nil)

	var rerr *RaceError
	_, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &rerr)
	assert.Zero(t, writer.calls)

	// Guard was released, so the same session may retry after repicking.
	busy.intervals = nil
	_, err = coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, writer.calls)
}

func TestBookCalendarConflictIsRace(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{err: &gcal.ConflictError{Err: errors.New("409")}}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, nil)

	var rerr *RaceError
	_, err := coord.Book(context.Background(), futureSlot(clock), "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &rerr)
}

func TestBookWriteFailureIsExternalAndRetryable(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{err: &googleapi.Error{Code: 500, Message: "backend error"}}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, nil)
	slot := futureSlot(clock)

	var xerr *ExternalError
	_, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.ErrorAs(t, err, &xerr)

	// Failure released the guard; a retry reaches the writer again.
	writer.err = nil
	outcome, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.NoError(t, err)
	assert.False(t, outcome.AlreadyBooked)
	assert.Equal(t, 2, writer.calls)
}

func TestBookResubmissionReturnsPriorOutcome(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	searcher := &fakeSearcher{}
	coord := newCoordinator(clock, writer, searcher, &fakeBusy{}, nil)
	slot := futureSlot(clock)

	first, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.NoError(t, err)

	// The event now exists on the calendar; the resubmitted request sees it.
	searcher.found = &gcal.CreatedEvent{EventID: first.EventID, JoinLink: first.JoinLink}

	second, err := coord.Book(context.Background(), slot, "sess-1", "lead@example.com")
	require.NoError(t, err)
	assert.True(t, second.AlreadyBooked)
	assert.Equal(t, first.EventID, second.EventID)
	assert.Equal(t, 1, writer.calls, "resubmission must not create a second event")
}

func TestBookPreexistingEventShortCircuitsWrite(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	searcher := &fakeSearcher{found: &gcal.CreatedEvent{EventID: "evt-old", JoinLink: ""}}
	coord := newCoordinator(clock, writer, searcher, &fakeBusy{}, nil)

	outcome, err := coord.Book(context.Background(), futureSlot(clock), "sess-9", "lead@example.com")
	require.NoError(t, err)
	assert.True(t, outcome.AlreadyBooked)
	assert.Equal(t, "evt-old", outcome.EventID)
	assert.Zero(t, writer.calls)
}

type failingLeadRepo struct{}

func (failingLeadRepo) Upsert(context.Context, leads.UpsertParams) (*leads.Lead, error) {
	return nil, errors.New("db down")
}

func (failingLeadRepo) GetByEmail(context.Context, string) (*leads.Lead, error) {
	return nil, leads.ErrLeadNotFound
}

func TestBookLeadUpsertFailureDoesNotFailBooking(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, &fakeBusy{}, failingLeadRepo{})

	outcome, err := coord.Book(context.Background(), futureSlot(clock), "sess-1", "lead@example.com")
	require.NoError(t, err, "the CRM projection is best-effort")
	assert.Equal(t, "evt-1", outcome.EventID)
}

func TestBookBusyCheckFailureStillWrites(t *testing.T) {
	clock := pinnedClock(t)
	writer := &fakeWriter{}
	busy := &fakeBusy{err: errors.New("freebusy down")}
	coord := newCoordinator(clock, writer, &fakeSearcher{}, busy, nil)

	_, err := coord.Book(context.Background(), futureSlot(clock), "sess-1", "lead@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, writer.calls, "the busy re-check is an optimization, not a gate")
}
