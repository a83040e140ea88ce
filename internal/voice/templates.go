package voice

import (
	"fmt"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/schedule"
)

// InProgress describes an event that has started and not yet finished.
func InProgress(now time.Time) func(schedule.Event) string {
	return func(e schedule.Event) string {
		return fmt.Sprintf("Started %s ago and ending in %s in %s: %s by %s.",
			FormatDuration(now.Sub(e.Start)),
			FormatDuration(e.End.Sub(now)),
			e.Venue, e.Title, e.Speaker,
		)
	}
}

// StartingSoon describes an event near now, either just started or about
// to start.
func StartingSoon(now time.Time) func(schedule.Event) string {
	return func(e schedule.Event) string {
		if e.Start.Before(now) {
			return fmt.Sprintf("Started %s ago in %s: %s by %s.",
				FormatDuration(now.Sub(e.Start)), e.Venue, e.Title, e.Speaker)
		}
		return fmt.Sprintf("Starting in %s in %s: %s by %s.",
			FormatDuration(e.Start.Sub(now)), e.Venue, e.Title, e.Speaker)
	}
}

// StartingAt describes an upcoming event by its start time.
func StartingAt(now time.Time) func(schedule.Event) string {
	return func(e schedule.Event) string {
		return fmt.Sprintf("Starting %s at %s: %s.", FormatRelativeTo(e.Start, now), e.Venue, e.Title)
	}
}
