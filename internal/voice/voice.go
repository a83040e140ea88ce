// Package voice turns schedule data into spoken jambonz verbs.
package voice

import (
	"fmt"
	"strings"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/jambonz"
	"github.com/dialaschedule/dialaschedule/internal/schedule"
)

// synthesizer is the single voice used for everything the service says.
var synthesizer = jambonz.Synthesizer{
	Vendor:   "aws",
	Language: "en-GB",
	Voice:    "Amy",
}

// Speak returns a Say carrying text and the fixed synthesizer.
func Speak(text string) jambonz.Say {
	s := synthesizer
	return jambonz.Say{
		Text:        text,
		Synthesizer: &s,
	}
}

// SpeakVerb is Speak as a Verb.
func SpeakVerb(text string) jambonz.Verb {
	return Speak(text)
}

// FormatDuration renders d as "<H> hours<M> minutes". The hours segment is
// dropped below one hour; minutes are always the remainder after hours.
func FormatDuration(d time.Duration) string {
	total := int64(d / time.Minute)
	hours := total / 60
	minutes := total % 60

	var b strings.Builder
	if hours > 0 {
		fmt.Fprintf(&b, "%d hours", hours)
	}
	fmt.Fprintf(&b, "%d minutes", minutes)
	return b.String()
}

// FormatRelativeTo renders t as "15:04" when it falls on the same day as
// now, otherwise as "Monday 15:04". The day is judged in now's location.
func FormatRelativeTo(t, now time.Time) string {
	t = t.In(now.Location())

	ty, tm, td := t.Date()
	ny, nm, nd := now.Date()
	if ty == ny && tm == nm && td == nd {
		return t.Format("15:04")
	}
	return t.Format("Monday 15:04")
}

// Phrases are the fixed lines spoken around a list of events.
type Phrases struct {
	// Empty is spoken alone when there are no events.
	Empty string
	// Intro is spoken before the first event.
	Intro string
}

// Narrate speaks Intro followed by one line per event, or Empty when there
// are no events. The result is never empty.
func Narrate(events []schedule.Event, p Phrases, render func(schedule.Event) string) []jambonz.Verb {
	if len(events) == 0 {
		return []jambonz.Verb{SpeakVerb(p.Empty)}
	}

	verbs := make([]jambonz.Verb, 0, len(events)+1)
	verbs = append(verbs, SpeakVerb(p.Intro))
	for _, e := range events {
		verbs = append(verbs, SpeakVerb(render(e)))
	}
	return verbs
}
