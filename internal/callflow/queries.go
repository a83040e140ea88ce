package callflow

import (
	"fmt"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/schedule"
	"github.com/dialaschedule/dialaschedule/internal/voice"
)

// Query windows.
const (
	soonLookBehind = 5 * time.Minute
	soonLookAhead  = 15 * time.Minute
	summaryHours   = 3
)

// query describes how one data-bearing step filters and speaks the
// schedule.
type query struct {
	stages  func(now time.Time) []schedule.Stage
	render  func(now time.Time) func(schedule.Event) string
	phrases voice.Phrases
}

var queries = map[Step]query{
	StepEventsNow: {
		stages: func(now time.Time) []schedule.Stage {
			return []schedule.Stage{
				schedule.SortByStart{},
				schedule.HappeningNow{Now: now},
			}
		},
		render: voice.InProgress,
		phrases: voice.Phrases{
			Empty: "There are no events in progress. Sad, I know. Or maybe it is a silly time and you should be asleep.",
			Intro: "The following events are in progress.",
		},
	},
	StepEventsStartingSoon: {
		stages: func(now time.Time) []schedule.Stage {
			return []schedule.Stage{
				schedule.StartsAfter{Bound: now.Add(-soonLookBehind)},
				schedule.StartsBefore{Bound: now.Add(soonLookAhead)},
			}
		},
		render: voice.StartingSoon,
		phrases: voice.Phrases{
			Empty: "There are no events starting soon. Sad, I know. Or maybe it is a silly time and you should be asleep.",
			Intro: "The following events may be of interest.",
		},
	},
	StepNextEverywhere: {
		stages: func(now time.Time) []schedule.Stage {
			return []schedule.Stage{schedule.NextPerVenueStage{Now: now}}
		},
		render: voice.StartingAt,
		phrases: voice.Phrases{
			Empty: "There are no more events in the schedule. The festival is over. Everyone is sad, everyone apart from the spiders, and maybe the ducks.",
			Intro: "Here are the next events.",
		},
	},
	StepTalksSummary: {
		stages: upcoming(schedule.CategoryTalk),
		render: voice.StartingAt,
		phrases: voice.Phrases{
			Empty: fmt.Sprintf("There are no talks starting in the next %d hours. Maybe it is late and you should have a beer and enjoy some music. Sadly I can't join you, I am stuck in the telephone.", summaryHours),
			Intro: fmt.Sprintf("Here are the talks you can look forward to over the next %d hours.", summaryHours),
		},
	},
	StepWorkshopsSummary: {
		stages: upcoming(schedule.CategoryWorkshop),
		render: voice.StartingAt,
		phrases: voice.Phrases{
			Empty: fmt.Sprintf("There are no workshops starting in the next %d hours. Maybe it is late and you should have a beer and enjoy some music. Sadly I can't join you, I am stuck in the telephone.", summaryHours),
			Intro: fmt.Sprintf("Here are the workshops you can look forward to over the next %d hours. Well, assuming you won the appropriate ticket lottery.", summaryHours),
		},
	},
	StepPerformancesSummary: {
		stages: upcoming(schedule.CategoryPerformance),
		render: voice.StartingAt,
		phrases: voice.Phrases{
			Empty: fmt.Sprintf("There are no performances starting in the next %d hours. Maybe you could find an interesting talk to pass the time?", summaryHours),
			Intro: fmt.Sprintf("Here are the performances taking place over the next %d hours.", summaryHours),
		},
	},
}

// upcoming selects events of a category starting within the summary window.
func upcoming(c schedule.Category) func(now time.Time) []schedule.Stage {
	return func(now time.Time) []schedule.Stage {
		return []schedule.Stage{
			schedule.StartsAfter{Bound: now},
			schedule.StartsBefore{Bound: now.Add(summaryHours * time.Hour)},
			schedule.KindIs{Category: c},
		}
	}
}
