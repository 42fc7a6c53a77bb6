package schedule

import (
	"context"
	"sort"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/observability/metrics"
	"github.com/frontdesk-ai/frontdesk/internal/tz"
	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

// Interval is an occupied range reported by the calendar, half-open
// [Start, End) in UTC.
type Interval struct {
	Start time.Time
	End   time.Time
}

// BusyOracle reports occupied intervals for a time range.
type BusyOracle interface {
	FreeBusy(ctx context.Context, rangeStart, rangeEnd time.Time) ([]Interval, error)
}

// Slot is a candidate meeting interval. Busy slots stay in the output so
// the UI can render "unavailable" as distinct from "not offered".
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Label string    `json:"label"`
	Busy  bool      `json:"busy"`
}

// DayPart narrows candidates to an informal period of the day, by local hour.
type DayPart int

const (
	DayPartAny DayPart = iota
	DayPartMorning
	DayPartAfternoon
	DayPartEvening
)

func (d DayPart) contains(hour int) bool {
	switch d {
	case DayPartMorning:
		return hour < 12
	case DayPartAfternoon:
		return hour >= 12 && hour < 17
	case DayPartEvening:
		return hour >= 17
	default:
		return true
	}
}

// String returns the user-facing name of the day part.
func (d DayPart) String() string {
	switch d {
	case DayPartMorning:
		return "morning"
	case DayPartAfternoon:
		return "afternoon"
	case DayPartEvening:
		return "evening"
	default:
		return "any"
	}
}

// Params bounds one generation walk.
type Params struct {
	From          time.Time // walk starts on this instant's calendar day
	HorizonDays   int
	SlotMinutes   int
	LeadTimeHours int
	MaxCount      int
	DayPart       DayPart
}

// Generator produces candidate slots from the weekly template and the
// calendar's busy data. Slots are generated fresh on every call; calendar
// state may have changed between requests, so nothing here is cached.
type Generator struct {
	clock   *tz.Clock
	rules   Rules
	busy    BusyOracle
	metrics *metrics.SchedulerMetrics
	logger  *logging.Logger
}

// NewGenerator wires a slot generator.
func NewGenerator(clock *tz.Clock, rules Rules, busy BusyOracle, m *metrics.SchedulerMetrics, logger *logging.Logger) *Generator {
	if logger == nil {
		logger = logging.Default()
	}
	return &Generator{clock: clock, rules: rules, busy: busy, metrics: m, logger: logger.Component("schedule")}
}

// Rules exposes the template the generator was built with.
func (g *Generator) Rules() Rules {
	return g.rules
}

// Generate walks calendar days from Params.From and emits ordered,
// deduplicated candidate slots. Candidates inside the lead-time floor are
// excluded entirely; candidates overlapping a busy interval are kept and
// marked. The walk stops at MaxCount emitted candidates or at the horizon,
// whichever comes first.
func (g *Generator) Generate(ctx context.Context, p Params) []Slot {
	if p.SlotMinutes <= 0 || p.HorizonDays <= 0 {
		return nil
	}

	floor := g.clock.Now().Add(time.Duration(p.LeadTimeHours) * time.Hour)
	year, month, day, _, _ := g.clock.InstantToWall(p.From)

	var out []Slot
	for i := 0; i < p.HorizonDays; i++ {
		if i > 0 {
			year, month, day = g.clock.NextDay(year, month, day)
		}
		if p.MaxCount > 0 && len(out) >= p.MaxCount {
			break
		}

		candidates := g.dayCandidates(year, month, day, p, floor)
		if len(candidates) == 0 {
			continue
		}
		g.markBusy(ctx, year, month, day, candidates)

		for _, s := range candidates {
			out = append(out, *s)
			if p.MaxCount > 0 && len(out) >= p.MaxCount {
				break
			}
		}
	}

	if g.metrics != nil {
		g.metrics.ObserveSlotsGenerated(len(out))
	}
	return out
}

// dayCandidates expands one day's windows into slots, deduplicated by start
// instant so overlapping windows never double-offer a time.
func (g *Generator) dayCandidates(year int, month time.Month, day int, p Params, floor time.Time) []*Slot {
	windows := g.rules.WindowsFor(g.clock.WeekdayOf(g.clock.DayStart(year, month, day).Add(12 * time.Hour)))
	if len(windows) == 0 {
		return nil
	}

	duration := time.Duration(p.SlotMinutes) * time.Minute
	seen := make(map[int64]struct{})
	var candidates []*Slot

	for _, w := range windows {
		for minute := w.StartMinute; minute+p.SlotMinutes <= w.EndMinute; minute += p.SlotMinutes {
			start := g.clock.WallToInstant(year, month, day, minute/60, minute%60)
			if !start.After(floor) {
				continue
			}
			if !p.DayPart.contains(start.In(g.clock.Location()).Hour()) {
				continue
			}
			if _, dup := seen[start.Unix()]; dup {
				continue
			}
			seen[start.Unix()] = struct{}{}
			candidates = append(candidates, &Slot{
				Start: start,
				End:   start.Add(duration),
				Label: g.clock.Label(start),
			})
		}
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Start.Before(candidates[j].Start) })
	return candidates
}

// markBusy fetches the day's busy intervals once and flags overlapping
// candidates. A free/busy failure degrades to "assume free": the day stays
// offerable, the failure is logged and counted, and the write-time re-check
// in the booking coordinator narrows the resulting overbooking window.
func (g *Generator) markBusy(ctx context.Context, year int, month time.Month, day int, candidates []*Slot) {
	if g.busy == nil {
		return
	}
	dayStart := g.clock.DayStart(year, month, day)
	nextYear, nextMonth, nextDay := g.clock.NextDay(year, month, day)
	dayEnd := g.clock.DayStart(nextYear, nextMonth, nextDay)

	intervals, err := g.busy.FreeBusy(ctx, dayStart, dayEnd)
	if err != nil {
		if g.metrics != nil {
			g.metrics.ObserveFreeBusyFailure()
		}
		g.logger.Warn("free/busy query failed, offering day as free",
			"date", dayStart.In(g.clock.Location()).Format("2006-01-02"),
			"error", err,
		)
		return
	}

	for _, s := range candidates {
		for _, b := range intervals {
			if overlaps(s.Start, s.End, b.Start, b.End) {
				s.Busy = true
				break
			}
		}
	}
}

// overlaps tests half-open interval overlap: max(aStart,bStart) < min(aEnd,bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	maxStart := aStart
	if bStart.After(maxStart) {
		maxStart = bStart
	}
	minEnd := aEnd
	if bEnd.Before(minEnd) {
		minEnd = bEnd
	}
	return maxStart.Before(minEnd)
}
