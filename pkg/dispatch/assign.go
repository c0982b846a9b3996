// Package dispatch holds the decision logic for technician assignment,
// job readiness, and time-slot suggestion. Nothing in this package
// touches a transport; an Engine is safe for use from concurrent calls.
package dispatch

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Window buckets a time of day for routing purposes.
type Window string

const (
	WindowMorning   Window = "morning"
	WindowAfternoon Window = "afternoon"
	WindowOffHours  Window = "off_hours"
)

// Routing lists technician candidates for one shop. Empty buckets fall
// back to AllDay, then Fallback.
type Routing struct {
	AllDay    []string
	Morning   []string
	Afternoon []string
	Fallback  []string
}

// Decision is the outcome of one assignment request.
type Decision struct {
	Technician  string
	Window      Window
	Day         string
	Reasoning   string
	NoAvailable bool
}

// Restriction limits one technician's eligibility by window and day.
type Restriction struct {
	Technician string
	// Blocked window on the listed weekdays.
	Window Window
	// Days the restriction does NOT apply (eligible all day).
	ExemptDays map[time.Weekday]bool
}

// Engine evaluates assignments against a routing table. One Engine is
// shared by every concurrent call; the round-robin counter is the only
// mutable state and is guarded. The zero value has no routes and always
// reports no technician.
type Engine struct {
	routes       map[string]Routing
	restrictions []Restriction

	mu        sync.Mutex
	rrCounter map[string]int
}

func NewEngine(routes map[string]Routing, restrictions []Restriction) *Engine {
	normalized := make(map[string]Routing, len(routes))
	for shop, r := range routes {
		normalized[strings.ToLower(strings.TrimSpace(shop))] = r
	}
	return &Engine{
		routes:       normalized,
		restrictions: restrictions,
		rrCounter:    make(map[string]int),
	}
}

// WindowFor buckets a clock time: 08:00–11:59 morning, 12:00–16:59
// afternoon, anything else off-hours.
func WindowFor(t time.Time) Window {
	h := t.Hour()
	switch {
	case h >= 8 && h < 12:
		return WindowMorning
	case h >= 12 && h < 17:
		return WindowAfternoon
	default:
		return WindowOffHours
	}
}

// Assign picks a technician for a shop's job. scheduled is the job's own
// schedule when known; the zero time falls back to now for bucketing.
func (e *Engine) Assign(shop string, scheduled, now time.Time) Decision {
	at := scheduled
	if at.IsZero() {
		at = now
	}
	window := WindowFor(at)
	day := at.Weekday()

	d := Decision{Window: window, Day: day.String()}

	routing, ok := e.lookupRouting(shop)
	if !ok {
		d.NoAvailable = true
		d.Reasoning = fmt.Sprintf("no routing configured for shop %q", shop)
		return d
	}

	candidates := routing.AllDay
	switch window {
	case WindowMorning:
		if len(routing.Morning) > 0 {
			candidates = routing.Morning
		}
	case WindowAfternoon:
		if len(routing.Afternoon) > 0 {
			candidates = routing.Afternoon
		}
	}

	eligible := e.filterRestricted(candidates, window, day)
	source := "primary list"
	if len(eligible) == 0 {
		eligible = e.filterRestricted(routing.Fallback, window, day)
		source = "fallback list"
	}
	if len(eligible) == 0 {
		d.NoAvailable = true
		d.Reasoning = fmt.Sprintf("no technician available for %s on %s after restrictions", window, day)
		return d
	}

	key := strings.ToLower(strings.TrimSpace(shop)) + "|" + string(window)
	e.mu.Lock()
	idx := e.rrCounter[key] % len(eligible)
	e.rrCounter[key]++
	e.mu.Unlock()

	d.Technician = eligible[idx]
	d.Reasoning = fmt.Sprintf("%s from %s for %s window on %s", d.Technician, source, window, day)
	return d
}

// Eligible reports whether one technician may take the given window/day
// under the restriction table.
func (e *Engine) Eligible(tech string, window Window, day time.Weekday) bool {
	for _, r := range e.restrictions {
		if !strings.EqualFold(r.Technician, tech) {
			continue
		}
		if r.ExemptDays[day] {
			continue
		}
		if r.Window == window {
			return false
		}
	}
	return true
}

func (e *Engine) filterRestricted(candidates []string, window Window, day time.Weekday) []string {
	var out []string
	for _, tech := range candidates {
		if e.Eligible(tech, window, day) {
			out = append(out, tech)
		}
	}
	return out
}

func (e *Engine) lookupRouting(shop string) (Routing, bool) {
	key := strings.ToLower(strings.TrimSpace(shop))
	if r, ok := e.routes[key]; ok {
		return r, true
	}
	// Substring match tolerates the normalizer passing through a longer
	// spoken form of a known shop.
	for name, r := range e.routes {
		if name != "" && (strings.Contains(key, name) || strings.Contains(name, key)) {
			return r, true
		}
	}
	return Routing{}, false
}
