// Package callflow decides what a caller hears at each step of the
// Dial-a-Schedule call. Every step is computed from the webhook alone; no
// state is carried between requests.
package callflow

// Step is one webhook in the call flow.
type Step string

// Call-flow steps.
const (
	StepIncoming            Step = "incoming"
	StepMenu                Step = "menu"
	StepMenuSelection       Step = "menu_selection"
	StepEventsNow           Step = "events_now"
	StepEventsStartingSoon  Step = "events_starting_soon"
	StepNextEverywhere      Step = "next_events_everywhere"
	StepTalksSummary        Step = "upcoming_talks_summary"
	StepWorkshopsSummary    Step = "upcoming_workshops_summary"
	StepPerformancesSummary Step = "upcoming_performances_summary"
	StepStatusUpdate        Step = "call_status"
)

// Path is the webhook path jambonz is pointed at for this step.
func (s Step) Path() string {
	if s == StepStatusUpdate {
		return "/call_status"
	}
	return "/call/" + string(s)
}

// QuerySteps are the steps that read the schedule, in menu order.
var QuerySteps = []Step{
	StepEventsNow,
	StepEventsStartingSoon,
	StepNextEverywhere,
	StepTalksSummary,
	StepWorkshopsSummary,
	StepPerformancesSummary,
}

// menuOptions maps each menu digit to its step. Anything else is invalid.
var menuOptions = map[string]Step{
	"1": StepEventsNow,
	"2": StepEventsStartingSoon,
	"3": StepNextEverywhere,
	"4": StepTalksSummary,
	"5": StepWorkshopsSummary,
	"6": StepPerformancesSummary,
}

// SelectMenuOption returns the step for a menu digit, or false when the
// input is not one of the offered options.
func SelectMenuOption(digits string) (Step, bool) {
	s, ok := menuOptions[digits]
	return s, ok
}
