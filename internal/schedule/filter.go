package schedule

import (
	"slices"
	"time"
)

// Stage transforms an event list. Stages never modify their input slice and
// never reorder events unless they are a sort.
type Stage interface {
	Apply(events []Event) []Event
}

// Filter runs events through each stage in order.
func Filter(events []Event, stages ...Stage) []Event {
	out := events
	for _, s := range stages {
		out = s.Apply(out)
	}
	if out == nil {
		return []Event{}
	}
	return out
}

// SortByStart orders events by start time. Events with equal starts keep
// their relative order.
type SortByStart struct{}

// Apply implements Stage.
func (SortByStart) Apply(events []Event) []Event {
	out := slices.Clone(events)
	slices.SortStableFunc(out, func(a, b Event) int {
		return a.Start.Compare(b.Start)
	})
	return out
}

// StartsAfter keeps events starting at or after Bound.
type StartsAfter struct {
	Bound time.Time
}

// Apply implements Stage.
func (s StartsAfter) Apply(events []Event) []Event {
	return retain(events, func(e Event) bool {
		return !e.Start.Before(s.Bound)
	})
}

// StartsBefore keeps events starting strictly before Bound.
type StartsBefore struct {
	Bound time.Time
}

// Apply implements Stage.
func (s StartsBefore) Apply(events []Event) []Event {
	return retain(events, func(e Event) bool {
		return e.Start.Before(s.Bound)
	})
}

// HappeningNow keeps events in progress at Now: Start <= Now < End.
type HappeningNow struct {
	Now time.Time
}

// Apply implements Stage.
func (s HappeningNow) Apply(events []Event) []Event {
	return retain(events, func(e Event) bool {
		return !e.Start.After(s.Now) && s.Now.Before(e.End)
	})
}

// Category groups event kinds for the summary queries.
type Category int

// Categories. CategoryWorkshop covers both adult and youth workshops.
const (
	CategoryTalk Category = iota
	CategoryWorkshop
	CategoryPerformance
)

// Matches reports whether an event kind belongs to the category.
func (c Category) Matches(k Kind) bool {
	switch c {
	case CategoryTalk:
		return k == KindTalk
	case CategoryWorkshop:
		return k == KindWorkshop || k == KindYouthWorkshop
	case CategoryPerformance:
		return k == KindPerformance
	}
	return false
}

// KindIs keeps events whose kind belongs to Category.
type KindIs struct {
	Category Category
}

// Apply implements Stage.
func (s KindIs) Apply(events []Event) []Event {
	return retain(events, func(e Event) bool {
		return s.Category.Matches(e.Kind)
	})
}

func retain(events []Event, keep func(Event) bool) []Event {
	out := make([]Event, 0, len(events))
	for _, e := range events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return out
}

// NextPerVenue returns, for each venue, the earliest event starting after
// now, sorted by start. An event starting exactly at now is already on, not
// next. Venues with nothing left are omitted.
func NextPerVenue(events []Event, now time.Time) []Event {
	next := make(map[string]Event)
	var venues []string

	for _, e := range events {
		if !e.Start.After(now) {
			continue
		}
		cur, seen := next[e.Venue]
		if !seen {
			venues = append(venues, e.Venue)
			next[e.Venue] = e
			continue
		}
		if e.Start.Before(cur.Start) {
			next[e.Venue] = e
		}
	}

	out := make([]Event, 0, len(venues))
	for _, v := range venues {
		out = append(out, next[v])
	}
	return SortByStart{}.Apply(out)
}

// NextPerVenueStage adapts NextPerVenue to the Stage interface.
type NextPerVenueStage struct {
	Now time.Time
}

// Apply implements Stage.
func (s NextPerVenueStage) Apply(events []Event) []Event {
	return NextPerVenue(events, s.Now)
}
