package callflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/jambonz"
	"github.com/dialaschedule/dialaschedule/internal/schedule"
	"github.com/dialaschedule/dialaschedule/internal/voice"
)

// ErrUnknownStep is returned by Query for steps that do not read the
// schedule.
var ErrUnknownStep = errors.New("unknown query step")

// Spoken lines outside the schedule queries.
const (
	greeting = "Hello, and welcome to Dial-a-Schedule."

	menuPrompt = "Dial 1 to hear what's going on right now. " +
		"Need something to do? Dial 2 to hear what events are starting soon. " +
		"Dial 3 to hear what is happening next at each venue. " +
		"Dial 4 to get a summary of upcoming talks, dial 5 to get a summary of upcoming workshops, " +
		"or dial 6 to get a summary of performances."

	slowDown = "Woah there, you are going faster than I can talk. Take a breath and I will read the menu again."

	apologyForUpstream = "Oh no, something has gone very wrong. If this keeps happening, please feel free to shout at Dan until it is fixed. " +
		"Be aware, Dan may shout back, or indeed shout at others as appropriate."
)

// scolding is spoken when the caller picks something that is not on the
// menu.
func scolding(digits string) string {
	if digits == "" {
		digits = "nothing at all"
	}
	return fmt.Sprintf("Yeah, so you know when I gave you those options? The intention is that you pick one of those. "+
		"Not some nonsense number like %s. I am not angry, I am just disappointed. Try again.", digits)
}

// Recorder receives call-flow counters. Implementations must be safe for
// concurrent use.
type Recorder interface {
	Request(step Step)
	Call(status jambonz.CallStatus, from string)
	UpstreamError()
	UserError()
}

// StatusLog stores call status reports. It is write-only from the call
// flow's point of view.
type StatusLog interface {
	Record(ctx context.Context, details jambonz.CallStatusDetails) error
}

// Controller maps call-flow steps to the verbs returned to jambonz. It holds
// no per-call state and is safe for concurrent use.
type Controller struct {
	fetcher   schedule.Fetcher
	recorder  Recorder
	statusLog StatusLog
	loc       *time.Location
	logger    *slog.Logger
	// nowFunc allows overriding the current time for testing.
	nowFunc func() time.Time
}

// NewController creates a Controller. recorder and statusLog may be nil.
// Times are spoken in loc.
func NewController(fetcher schedule.Fetcher, recorder Recorder, statusLog StatusLog, loc *time.Location, logger *slog.Logger) *Controller {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Controller{
		fetcher:   fetcher,
		recorder:  recorder,
		statusLog: statusLog,
		loc:       loc,
		logger:    logger.With("subsystem", "callflow"),
		nowFunc:   time.Now,
	}
}

func (c *Controller) now() time.Time {
	return c.nowFunc().In(c.loc)
}

// Incoming greets a new caller and moves on to the menu.
func (c *Controller) Incoming() []jambonz.Verb {
	c.logger.Info("incoming call")
	c.recorder.Request(StepIncoming)

	return []jambonz.Verb{
		voice.SpeakVerb(greeting),
		jambonz.Redirect{ActionHook: StepMenu.Path()},
	}
}

// Menu reads the options and waits for a single digit.
func (c *Controller) Menu() []jambonz.Verb {
	c.logger.Debug("menu")
	c.recorder.Request(StepMenu)

	say := voice.Speak(menuPrompt)
	return []jambonz.Verb{
		jambonz.Gather{
			ActionHook: StepMenuSelection.Path(),
			Input:      []jambonz.GatherInput{jambonz.InputDigits},
			NumDigits:  1,
			Say:        &say,
		},
	}
}

// MenuSelection redirects to the chosen query. Missing or invalid input
// earns a telling-off and another go at the menu.
func (c *Controller) MenuSelection(digits *string) []jambonz.Verb {
	c.recorder.Request(StepMenuSelection)

	var entered string
	if digits != nil {
		entered = *digits
	}

	if step, ok := SelectMenuOption(entered); ok {
		c.logger.Info("menu selection", "digits", entered, "step", step)
		return []jambonz.Verb{jambonz.Redirect{ActionHook: step.Path()}}
	}

	c.logger.Info("invalid menu selection", "digits", entered, "missing", digits == nil)
	c.recorder.UserError()

	return []jambonz.Verb{
		voice.SpeakVerb(scolding(entered)),
		jambonz.Redirect{ActionHook: StepMenu.Path()},
	}
}

// Throttled is spoken to a call that has made too many requests in a short
// time. The pause while it is read out lets the call's budget refill.
func (c *Controller) Throttled() []jambonz.Verb {
	return []jambonz.Verb{
		voice.SpeakVerb(slowDown),
		jambonz.Redirect{ActionHook: StepMenu.Path()},
	}
}

// Query fetches the schedule once, filters it for step and speaks the
// result. An unavailable schedule is apologised for rather than returned as
// an error; the only error is ErrUnknownStep.
func (c *Controller) Query(ctx context.Context, step Step) ([]jambonz.Verb, error) {
	q, ok := queries[step]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStep, step)
	}
	c.recorder.Request(step)

	now := c.now()

	events, err := c.fetcher.FetchAll(ctx)
	if err != nil {
		c.logger.Error("schedule fetch failed", "step", step, "error", err)
		c.recorder.UpstreamError()
		return []jambonz.Verb{voice.SpeakVerb(apologyForUpstream)}, nil
	}

	events = schedule.Filter(events, q.stages(now)...)
	c.logger.Info("schedule query", "step", step, "events", len(events))

	return voice.Narrate(events, q.phrases, q.render(now)), nil
}

// Status records a call status report. Nothing is spoken.
func (c *Controller) Status(ctx context.Context, details jambonz.CallStatusDetails) {
	c.logger.Info("call status",
		"call_id", details.CallID,
		"call_sid", details.CallSID,
		"status", details.CallStatus,
		"from", details.From,
	)
	c.recorder.Call(details.CallStatus, details.From)

	if c.statusLog == nil {
		return
	}
	if err := c.statusLog.Record(ctx, details); err != nil {
		c.logger.Error("failed to record call status",
			"call_id", details.CallID,
			"error", err,
		)
	}
}

type nopRecorder struct{}

func (nopRecorder) Request(Step)                    {}
func (nopRecorder) Call(jambonz.CallStatus, string) {}
func (nopRecorder) UpstreamError()                  {}
func (nopRecorder) UserError()                      {}
