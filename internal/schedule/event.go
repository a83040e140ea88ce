// Package schedule fetches the event schedule and narrows it down with a
// pipeline of filter stages.
package schedule

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrUpstreamUnavailable wraps every failure to obtain a schedule snapshot,
// whatever the underlying cause.
var ErrUpstreamUnavailable = errors.New("schedule upstream unavailable")

// Kind is the type of a schedule entry.
type Kind int

// Event kinds.
const (
	KindOther Kind = iota
	KindTalk
	KindWorkshop
	KindYouthWorkshop
	KindPerformance
)

// String returns the lower-case keyword used by the schedule API.
func (k Kind) String() string {
	switch k {
	case KindTalk:
		return "talk"
	case KindWorkshop:
		return "workshop"
	case KindYouthWorkshop:
		return "youthworkshop"
	case KindPerformance:
		return "performance"
	default:
		return "other"
	}
}

// ParseKind maps a schedule type keyword to a Kind. Unknown keywords are
// KindOther.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "talk":
		return KindTalk
	case "workshop":
		return KindWorkshop
	case "youthworkshop", "youth-workshop", "youth_workshop":
		return KindYouthWorkshop
	case "performance":
		return KindPerformance
	default:
		return KindOther
	}
}

// CountKinds tallies events by kind keyword.
func CountKinds(events []Event) map[string]int {
	counts := make(map[string]int)
	for _, e := range events {
		counts[e.Kind.String()]++
	}
	return counts
}

// Event is one entry of the schedule. Start is never after End.
type Event struct {
	Title   string
	Speaker string
	Venue   string
	Kind    Kind
	Start   time.Time
	End     time.Time
}

// Fetcher retrieves the full current schedule in source order. Errors wrap
// ErrUpstreamUnavailable.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]Event, error)
}
