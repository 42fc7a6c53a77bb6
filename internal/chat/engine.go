package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/frontdesk-ai/frontdesk/internal/booking"
	"github.com/frontdesk-ai/frontdesk/internal/gcal"
	"github.com/frontdesk-ai/frontdesk/internal/intent"
	"github.com/frontdesk-ai/frontdesk/internal/observability/metrics"
	"github.com/frontdesk-ai/frontdesk/internal/schedule"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

var tracer = otel.Tracer("frontdesk.internal.chat")

// Booker is the booking write port. The engine never talks to the
// calendar directly.
type Booker interface {
	Book(ctx context.Context, slot schedule.Slot, sessionID, email string) (*booking.Outcome, error)
}

// PaymentLinker resolves the checkout URL handed out on a pay intent.
type PaymentLinker interface {
	PaymentLink(ctx context.Context) (string, error)
}

// Smoother optionally rewrites plain text replies into warmer copy.
// Failures fall back to the deterministic text, so the conversation
// works identically with or without one.
type Smoother interface {
	Smooth(ctx context.Context, text string) (string, error)
}

// Options carries the per-deployment copy and paging geometry.
type Options struct {
	BusinessName     string
	PricingText      string
	SlotsPerPage     int
	HorizonDays      int
	SlotMinutes      int
	LeadTimeHours    int
	EmptyDayScanDays int
}

const (
	defaultSlotsPerPage     = 6
	defaultEmptyDayScanDays = 6
	smoothTimeout           = 2 * time.Second
)

// Engine is the stateless turn handler. All conversational state arrives
// in the request; the engine derives the next response from that payload
// plus the live schedule, and never stores anything between turns.
type Engine struct {
	clock     *tz.Clock
	generator *schedule.Generator
	booker    Booker
	payments  PaymentLinker
	smoother  Smoother
	metrics   *metrics.ConversationMetrics
	logger    *logging.Logger
	opts      Options
}

// NewEngine wires a turn handler. booker, payments, smoother, and metrics
// may be nil; the matching behavior degrades to an apologetic text reply.
func NewEngine(
	clock *tz.Clock,
	generator *schedule.Generator,
	booker Booker,
	payments PaymentLinker,
	smoother Smoother,
	m *metrics.ConversationMetrics,
	logger *logging.Logger,
	opts Options,
) *Engine {
	if clock == nil || generator == nil {
		panic("chat: clock and generator required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if opts.SlotsPerPage <= 0 {
		opts.SlotsPerPage = defaultSlotsPerPage
	}
	if opts.EmptyDayScanDays <= 0 {
		opts.EmptyDayScanDays = defaultEmptyDayScanDays
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 14
	}
	if opts.SlotMinutes <= 0 {
		opts.SlotMinutes = 30
	}
	return &Engine{
		clock:     clock,
		generator: generator,
		booker:    booker,
		payments:  payments,
		smoother:  smoother,
		metrics:   m,
		logger:    logger.Component("chat"),
		opts:      opts,
	}
}

// Handle processes one conversational turn and returns exactly one
// response variant. It never returns an error: every failure mode maps to
// a KindError response that leaves the conversation continuable.
func (e *Engine) Handle(ctx context.Context, req TurnRequest) TurnResponse {
	ctx, span := tracer.Start(ctx, "chat.handle")
	defer span.End()

	started := time.Now()
	resp, intentName := e.dispatch(ctx, req)
	span.SetAttributes(
		attribute.String("chat.intent", intentName),
		attribute.String("chat.response_kind", string(resp.Kind)),
	)
	if e.metrics != nil {
		e.metrics.ObserveTurn(intentName, string(resp.Kind), time.Since(started).Seconds())
	}

	if resp.Kind == KindText {
		resp.Text = e.smooth(ctx, resp.Text)
	}
	return resp
}

func (e *Engine) dispatch(ctx context.Context, req TurnRequest) (TurnResponse, string) {
	// Structured slot selection takes precedence over any free text.
	if req.SlotPick != nil {
		return e.handlePick(ctx, req, *req.SlotPick), "pick_slot"
	}

	email, hasEmail := e.revealedEmail(req)

	// An email arriving while a selection is pending completes the booking.
	if hasEmail && req.Pending != nil {
		return e.book(ctx, req, *req.Pending, email), "provide_email"
	}

	// First contact with no input: open with the session's greeting.
	if len(req.History) == 0 && strings.TrimSpace(req.Message) == "" {
		return textResponse(greetingFor(req.SessionID, e.opts.BusinessName)), "greeting"
	}

	in := intent.Classify(req.Message)

	// A bare email with nothing pending and no other readable intent:
	// acknowledge it and steer back to picking a time.
	if hasEmail && in == intent.Fallback {
		return textResponse("Got it, thanks! Now pick a time that works for you and I'll lock it in."), "provide_email"
	}

	switch in {
	case intent.Pay:
		return e.handlePay(ctx), in.String()
	case intent.Pricing:
		return e.handlePricing(), in.String()
	case intent.Capability:
		return textResponse(fmt.Sprintf(
			"I'm the %s assistant. I can answer questions, share pricing, and book you straight onto our calendar, with a Meet link sent to your inbox. Want to see some open times?",
			e.opts.BusinessName,
		)), in.String()
	case intent.Human:
		// "Talk to a person" with a day attached is a scheduling request;
		// without one, ask for the day instead of dumping the full horizon.
		if e.hasDateFilter(req) {
			return e.browse(ctx, req), in.String()
		}
		return textResponse("Happy to set up a call with the team. Which day works best for you?"), in.String()
	case intent.Book, intent.Day:
		return e.browse(ctx, req), in.String()
	default:
		// A date filter without readable text (widget date chips, "more
		// times" paging) is still a browse.
		if e.hasDateFilter(req) {
			return e.browse(ctx, req), intent.Day.String()
		}
		return textResponse(fmt.Sprintf(
			"I can tell you about %s, share pricing, or find you a time to talk. Try \"book a call\" to see what's open.",
			e.opts.BusinessName,
		)), in.String()
	}
}

// revealedEmail resolves the turn's effective email: the structured field
// first, then one embedded in the message text.
func (e *Engine) revealedEmail(req TurnRequest) (string, bool) {
	if intent.ValidEmail(req.Email) {
		return strings.ToLower(req.Email), true
	}
	if email, ok := intent.ExtractEmail(req.Message); ok {
		return email, true
	}
	return "", false
}

// emailFromHistory scans the resubmitted transcript, newest first, for an
// email the user already shared, so nobody is asked twice.
func (e *Engine) emailFromHistory(history []HistoryMessage) (string, bool) {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != "user" {
			continue
		}
		if email, ok := intent.ExtractEmail(history[i].Text); ok {
			return email, true
		}
	}
	return "", false
}

func (e *Engine) handlePick(ctx context.Context, req TurnRequest, pick SlotPick) TurnResponse {
	email := strings.ToLower(strings.TrimSpace(pick.Email))
	if !intent.ValidEmail(email) {
		if fromReq, ok := e.revealedEmail(req); ok {
			email = fromReq
		} else if fromHistory, ok := e.emailFromHistory(req.History); ok {
			email = fromHistory
		}
	}
	if !intent.ValidEmail(email) {
		// The client holds the pick as Pending and resubmits it with the
		// next message; no write happens until the email arrives.
		return textResponse(fmt.Sprintf(
			"Great choice — %s. What's the best email for the calendar invite?",
			e.clock.Label(pick.Start),
		))
	}
	return e.book(ctx, req, pick, email)
}

func (e *Engine) book(ctx context.Context, req TurnRequest, pick SlotPick, email string) TurnResponse {
	if e.booker == nil {
		return errorResponse("Booking isn't set up yet. Leave your email and we'll reach out directly.")
	}

	slot := schedule.Slot{
		Start: pick.Start.UTC(),
		End:   pick.End.UTC(),
		Label: e.clock.Label(pick.Start),
	}
	outcome, err := e.booker.Book(ctx, slot, req.SessionID, email)
	if err != nil {
		return e.bookingFailure(ctx, req, pick, err)
	}
	return bookedResponse(e.clock.Label(outcome.Start), outcome.JoinLink)
}

// bookingFailure maps the coordinator's error taxonomy onto responses that
// keep the conversation alive: corrective prompts for bad input, a fresh
// slate of the day's slots for a lost race, and a retryable apology for
// infrastructure trouble.
func (e *Engine) bookingFailure(ctx context.Context, req TurnRequest, pick SlotPick, err error) TurnResponse {
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		if verr.Field == "email" {
			return errorResponse("That email doesn't look quite right. Mind re-typing it?")
		}
		return errorResponse("That time selection didn't come through cleanly. Pick a time again and I'll book it.")
	}

	var rerr *booking.RaceError
	if errors.As(err, &rerr) {
		year, month, day, _, _ := e.clock.InstantToWall(pick.Start)
		refreshed := e.generator.Generate(ctx, schedule.Params{
			From:          e.clock.DayStart(year, month, day),
			HorizonDays:   1,
			SlotMinutes:   e.opts.SlotMinutes,
			LeadTimeHours: e.opts.LeadTimeHours,
		})
		if open := openCount(refreshed); open > 0 {
			return slotsResponse(
				e.clock.DayLabel(pick.Start),
				refreshed,
				"Sorry — that time just got taken. Here's what's still open that day:",
			)
		}
		return errorResponse("Sorry — that time just got taken, and that day has filled up. Want to try another day?")
	}

	if errors.Is(err, gcal.ErrNotConnected) || gcal.IsAuthError(err) {
		e.logger.Error("booking unavailable, calendar not reachable", "error", err)
		return errorResponse("Our calendar connection is having trouble right now. Your pick is saved — try again in a moment.")
	}

	e.logger.Error("booking write failed", "session_id", req.SessionID, "error", err)
	return errorResponse("I couldn't reach the calendar just now. Nothing was booked — give it another try.")
}

func (e *Engine) handlePay(ctx context.Context) TurnResponse {
	if e.payments == nil {
		return textResponse("We don't take payments through chat yet. Book a call and we'll sort out the details there.")
	}
	url, err := e.payments.PaymentLink(ctx)
	if err != nil {
		e.logger.Error("payment link unavailable", "error", err)
		return errorResponse("I couldn't bring up the payment page just now. Try again in a moment.")
	}
	return openURLResponse(url)
}

func (e *Engine) handlePricing() TurnResponse {
	if strings.TrimSpace(e.opts.PricingText) != "" {
		return textResponse(e.opts.PricingText)
	}
	return textResponse(fmt.Sprintf(
		"Pricing depends on what you need, so the quickest route is a short call. Want me to pull up %s's next open times?",
		e.opts.BusinessName,
	))
}

func (e *Engine) hasDateFilter(req TurnRequest) bool {
	if strings.TrimSpace(req.Date) != "" {
		return true
	}
	_, ok := intent.ExtractDayRef(req.Message)
	return ok
}

// browse produces the slots response for a scheduling turn. With a day
// filter it shows that day, scanning forward past fully closed or fully
// booked days and saying so; without one it shows the next open times
// across the whole horizon. Page slices the same deterministic list, so
// "more times" never reshuffles what the user already saw.
func (e *Engine) browse(ctx context.Context, req TurnRequest) TurnResponse {
	dayPart, _ := intent.ExtractDayPart(req.Message)
	page := req.Page
	if page < 0 {
		page = 0
	}

	target, filtered, badDate := e.resolveDate(req)
	if badDate {
		return errorResponse("I didn't recognize that date. Use YYYY-MM-DD, or just say a day like \"Tuesday\".")
	}

	if filtered {
		return e.browseDay(ctx, target, dayPart, page)
	}

	slots := e.generator.Generate(ctx, schedule.Params{
		From:          e.clock.Now(),
		HorizonDays:   e.opts.HorizonDays,
		SlotMinutes:   e.opts.SlotMinutes,
		LeadTimeHours: e.opts.LeadTimeHours,
		MaxCount:      (page + 2) * e.opts.SlotsPerPage,
		DayPart:       dayPart,
	})
	pageSlots, hasMore := paginate(slots, page, e.opts.SlotsPerPage)
	if len(pageSlots) == 0 {
		if page > 0 {
			return textResponse("That's everything for the next couple of weeks. Want to try a specific day?")
		}
		return textResponse(fmt.Sprintf(
			"Nothing's open in the next %d days, which usually means the calendar is packed. Leave your email and we'll reach out.",
			e.opts.HorizonDays,
		))
	}
	caption := "Here are the next times we have open:"
	if hasMore {
		caption += " (say \"more times\" for others)"
	}
	return slotsResponse("", pageSlots, caption)
}

// browseDay shows one day's slots, walking forward up to the scan limit
// when the requested day has nothing open, and reporting the jump.
func (e *Engine) browseDay(ctx context.Context, dayStart time.Time, dayPart schedule.DayPart, page int) TurnResponse {
	requested := dayStart
	year, month, day, _, _ := e.clock.InstantToWall(dayStart)

	for hop := 0; hop <= e.opts.EmptyDayScanDays; hop++ {
		if hop > 0 {
			year, month, day = e.clock.NextDay(year, month, day)
		}
		cur := e.clock.DayStart(year, month, day)

		slots := e.generator.Generate(ctx, schedule.Params{
			From:          cur,
			HorizonDays:   1,
			SlotMinutes:   e.opts.SlotMinutes,
			LeadTimeHours: e.opts.LeadTimeHours,
			DayPart:       dayPart,
		})
		if openCount(slots) == 0 {
			continue
		}

		pageSlots, hasMore := paginate(slots, page, e.opts.SlotsPerPage)
		if len(pageSlots) == 0 {
			return textResponse(fmt.Sprintf(
				"That's everything open on %s. Want another day?", e.clock.DayLabel(cur),
			))
		}

		caption := fmt.Sprintf("Here's what's open on %s:", e.clock.DayLabel(cur))
		if hop > 0 {
			caption = fmt.Sprintf(
				"Nothing's open on %s, so I skipped ahead. Here's %s:",
				e.clock.DayLabel(requested), e.clock.DayLabel(cur),
			)
		}
		if hasMore {
			caption += " (say \"more times\" for others)"
		}
		return slotsResponse(e.clock.DayLabel(cur), pageSlots, caption)
	}

	return textResponse(fmt.Sprintf(
		"Nothing's open on %s or the days right after it. Want to try the following week?",
		e.clock.DayLabel(requested),
	))
}

// resolveDate turns the request's day hints into a day-start instant.
// Returns (day, true, false) when a day was named, (zero, false, false)
// for "next available", and badDate=true for an unparsable Date field.
func (e *Engine) resolveDate(req TurnRequest) (time.Time, bool, bool) {
	if raw := strings.TrimSpace(req.Date); raw != "" {
		t, err := time.ParseInLocation("2006-01-02", raw, e.clock.Location())
		if err != nil {
			return time.Time{}, false, true
		}
		return e.clock.DayStart(t.Year(), t.Month(), t.Day()), true, false
	}

	ref, ok := intent.ExtractDayRef(req.Message)
	if !ok {
		return time.Time{}, false, false
	}

	year, month, day, _, _ := e.clock.InstantToWall(e.clock.Now())
	switch ref.Kind {
	case intent.DayRefToday:
		return e.clock.DayStart(year, month, day), true, false
	case intent.DayRefTomorrow:
		year, month, day = e.clock.NextDay(year, month, day)
		return e.clock.DayStart(year, month, day), true, false
	default:
		// Weekday name: the nearest future occurrence, today included.
		// Lead time and the forward scan handle a same-day name that has
		// already closed out.
		today := e.clock.WeekdayOf(e.clock.Now())
		hops := (int(ref.Weekday) - int(today) + 7) % 7
		for i := 0; i < hops; i++ {
			year, month, day = e.clock.NextDay(year, month, day)
		}
		return e.clock.DayStart(year, month, day), true, false
	}
}

func openCount(slots []schedule.Slot) int {
	n := 0
	for _, s := range slots {
		if !s.Busy {
			n++
		}
	}
	return n
}

// paginate slices one page out of the full ordered list. Busy slots count
// toward the page; the widget renders them disabled.
func paginate(slots []schedule.Slot, page, perPage int) ([]schedule.Slot, bool) {
	lo := page * perPage
	if lo >= len(slots) {
		return nil, false
	}
	hi := lo + perPage
	if hi > len(slots) {
		hi = len(slots)
	}
	return slots[lo:hi], hi < len(slots)
}

func (e *Engine) smooth(ctx context.Context, text string) string {
	if e.smoother == nil || text == "" {
		return text
	}
	ctx, cancel := context.WithTimeout(ctx, smoothTimeout)
	defer cancel()
	smoothed, err := e.smoother.Smooth(ctx, text)
	if err != nil || strings.TrimSpace(smoothed) == "" {
		if err != nil {
			e.logger.Warn("tone smoothing failed, using plain reply", "error", err)
		}
		return text
	}
	return smoothed
}
