// Package intent routes free-text utterances into a closed set of
// conversational intents using ordered pattern rules.
package intent

import (
	"regexp"
	"strings"
	"time"

	"github.com/frontdesk-ai/frontdesk/internal/schedule"
)

// Intent is one of the closed set of conversational actions.
type Intent int

const (
	Fallback Intent = iota
	Pay
	Pricing
	Capability
	Human
	Book
	Day
)

// String returns the wire/metric name of the intent.
func (i Intent) String() string {
	switch i {
	case Pay:
		return "pay"
	case Pricing:
		return "pricing"
	case Capability:
		return "capability"
	case Human:
		return "human"
	case Book:
		return "book"
	case Day:
		return "day"
	default:
		return "fallback"
	}
}

// Rule precedence is deliberate and ordered: payment and pricing phrases
// outrank scheduling phrases, scheduling phrases outrank bare weekday or
// day-part mentions, and everything outranks the fallback. The capability
// rule sits above Book so that a question about what the assistant can do
// ("can your agent book appointments for my shop?") is answered instead of
// silently entering the booking flow; "appointment" without a scheduling
// verb aimed at us is not a booking request.
var rules = []struct {
	intent  Intent
	pattern *regexp.Regexp
}{
	{Pay, regexp.MustCompile(`\b(pay now|pay(ment)? link|checkout|check out|pay (my |the )?(deposit|invoice|bill)|ready to pay|i('ll| will)? pay)\b`)},
	{Pay, regexp.MustCompile(`^pay\b`)},
	{Pricing, regexp.MustCompile(`\b(price|prices|pricing|cost|costs|how much|rates?|fees?|packages?)\b`)},
	{Capability, regexp.MustCompile(`\b(can|could|does|do|will|would)\s+(you|your)\s+(ai|agent|bot|assistant|system|platform|service|tool)\b`)},
	{Capability, regexp.MustCompile(`\b(what|which)\s+(can|do)\s+you\s+do\b`)},
	{Human, regexp.MustCompile(`\b(human|real person|a person|someone real|representative|rep|speak (to|with) someone|talk (to|with) someone|call me back|callback)\b`)},
	{Book, regexp.MustCompile(`\b(book|schedule|reserve|arrange|set ?up|grab|pick)\b.*\b(call|appointment|meeting|time|slot|demo|session|consult(ation)?|chat)\b`)},
	{Book, regexp.MustCompile(`\b(book|schedule) (me|us|it|something|now)\b`)},
	{Book, regexp.MustCompile(`\b(available|availability|open(ings?)?|free) (times?|slots?|days?)\b`)},
	{Book, regexp.MustCompile(`\b(what|which) (times?|days?|slots?)\b`)},
	{Book, regexp.MustCompile(`\bare you (available|free)\b`)},
	{Book, regexp.MustCompile(`\bwhen (are you|can we|could we) (free|available|meet|talk)\b`)},
	{Book, regexp.MustCompile(`\b(more|other|later|earlier) (times?|slots?|options?)\b`)},
	{Day, regexp.MustCompile(`\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday|today|tomorrow|morning|afternoon|evening|tonight)\b`)},
}

// Classify maps a raw utterance to an intent. It is a pure function: the
// same input always yields the same intent, first matching rule wins.
func Classify(utterance string) Intent {
	text := Normalize(utterance)
	if text == "" {
		return Fallback
	}
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return r.intent
		}
	}
	return Fallback
}

// Normalize lowercases and collapses whitespace so pattern rules see a
// canonical form.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// DayRef is a concrete day mentioned in an utterance.
type DayRef struct {
	Kind    DayRefKind
	Weekday time.Weekday
}

// DayRefKind distinguishes relative mentions from weekday names.
type DayRefKind int

const (
	DayRefNone DayRefKind = iota
	DayRefWeekday
	DayRefToday
	DayRefTomorrow
)

var weekdayWords = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

var weekdayPattern = regexp.MustCompile(`\b(sunday|monday|tuesday|wednesday|thursday|friday|saturday)\b`)

// ExtractDayRef finds the first day reference in an utterance.
func ExtractDayRef(utterance string) (DayRef, bool) {
	text := Normalize(utterance)
	if strings.Contains(text, "tomorrow") {
		return DayRef{Kind: DayRefTomorrow}, true
	}
	if strings.Contains(text, "today") || strings.Contains(text, "tonight") {
		return DayRef{Kind: DayRefToday}, true
	}
	if m := weekdayPattern.FindString(text); m != "" {
		return DayRef{Kind: DayRefWeekday, Weekday: weekdayWords[m]}, true
	}
	return DayRef{}, false
}

// ExtractDayPart finds a morning/afternoon/evening mention.
func ExtractDayPart(utterance string) (schedule.DayPart, bool) {
	text := Normalize(utterance)
	switch {
	case strings.Contains(text, "morning"):
		return schedule.DayPartMorning, true
	case strings.Contains(text, "afternoon"):
		return schedule.DayPartAfternoon, true
	case strings.Contains(text, "evening"), strings.Contains(text, "tonight"):
		return schedule.DayPartEvening, true
	}
	return schedule.DayPartAny, false
}

var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)

// ExtractEmail finds the first email address in an utterance, if any.
func ExtractEmail(utterance string) (string, bool) {
	m := emailPattern.FindString(utterance)
	if m == "" {
		return "", false
	}
	return strings.ToLower(m), true
}

// ValidEmail reports whether the whole string is a syntactically plausible
// email address.
func ValidEmail(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return emailPattern.FindString(s) == s
}
