package schedule

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/frontdesk-ai/frontdesk/pkg/logging"
)

// Window is an open interval within one weekday, in minutes since local
// midnight. Windows on the same weekday are a union; they may overlap and
// need not be sorted.
type Window struct {
	StartMinute int
	EndMinute   int
}

// Rules is the weekly availability template. Zero value offers nothing;
// construct via ParseRules or DefaultRules.
type Rules struct {
	windows  map[time.Weekday][]Window
	fallback bool
}

const minutesPerDay = 24 * 60

// DefaultRules returns the safe fallback template: Monday through Friday,
// 09:00 to 17:00.
func DefaultRules() Rules {
	windows := make(map[time.Weekday][]Window, 5)
	for day := time.Monday; day <= time.Friday; day++ {
		windows[day] = []Window{{StartMinute: 9 * 60, EndMinute: 17 * 60}}
	}
	return Rules{windows: windows, fallback: true}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sun":       time.Sunday,
	"mon":       time.Monday,
	"tue":       time.Tuesday,
	"wed":       time.Wednesday,
	"thu":       time.Thursday,
	"fri":       time.Friday,
	"sat":       time.Saturday,
}

// ParseRules builds Rules from a JSON template of the form
//
//	{"monday": [["09:00", "12:30"], ["14:00", "17:00"]], "fri": [["10:00", "16:00"]]}
//
// A missing, empty, or malformed template falls back to DefaultRules so a
// misconfigured deployment still offers something; the fallback is logged
// and observable via UsedFallback so it cannot pass silently.
func ParseRules(raw string, logger *logging.Logger) Rules {
	if logger == nil {
		logger = logging.Default()
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		logger.Warn("schedule: no availability template configured, using Mon-Fri business hours")
		return DefaultRules()
	}

	var template map[string][][2]string
	if err := json.Unmarshal([]byte(raw), &template); err != nil {
		logger.Warn("schedule: availability template is not valid JSON, using Mon-Fri business hours", "error", err)
		return DefaultRules()
	}

	windows := make(map[time.Weekday][]Window)
	for name, spans := range template {
		day, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			logger.Warn("schedule: ignoring unknown weekday in availability template", "weekday", name)
			continue
		}
		for _, span := range spans {
			w, err := parseWindow(span[0], span[1])
			if err != nil {
				logger.Warn("schedule: ignoring invalid window", "weekday", name, "error", err)
				continue
			}
			windows[day] = append(windows[day], w)
		}
	}

	if len(windows) == 0 {
		logger.Warn("schedule: availability template yielded no usable windows, using Mon-Fri business hours")
		return DefaultRules()
	}
	return Rules{windows: windows}
}

func parseWindow(start, end string) (Window, error) {
	startMin, err := parseClock(start)
	if err != nil {
		return Window{}, fmt.Errorf("start %q: %w", start, err)
	}
	endMin, err := parseClock(end)
	if err != nil {
		return Window{}, fmt.Errorf("end %q: %w", end, err)
	}
	if startMin < 0 || startMin >= endMin || endMin > minutesPerDay {
		return Window{}, fmt.Errorf("window %s-%s out of order or out of range", start, end)
	}
	return Window{StartMinute: startMin, EndMinute: endMin}, nil
}

func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(v))
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// WindowsFor returns the open windows for a weekday, sorted by start. The
// returned slice is a copy.
func (r Rules) WindowsFor(day time.Weekday) []Window {
	src := r.windows[day]
	if len(src) == 0 {
		return nil
	}
	out := make([]Window, len(src))
	copy(out, src)
	sort.Slice(out, func(i, j int) bool { return out[i].StartMinute < out[j].StartMinute })
	return out
}

// UsedFallback reports whether these rules came from the safe default
// rather than operator configuration.
func (r Rules) UsedFallback() bool {
	return r.fallback
}
