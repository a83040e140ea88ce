package schedule

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ICSClient fetches the schedule from an iCalendar feed. Recurrence rules
// are not expanded; each VEVENT is one schedule entry.
type ICSClient struct {
	httpClient *http.Client
	url        string
	logger     *slog.Logger
}

// NewICSClient creates an iCalendar schedule client.
func NewICSClient(url string, timeout time.Duration, logger *slog.Logger) *ICSClient {
	return &ICSClient{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		logger:     logger.With("subsystem", "schedule_ics"),
	}
}

// FetchAll downloads and parses the feed.
func (c *ICSClient) FetchAll(ctx context.Context) ([]Event, error) {
	body, err := fetchBody(ctx, c.httpClient, c.url, "text/calendar")
	if err != nil {
		return nil, err
	}
	return c.parse(body)
}

func (c *ICSClient) parse(body []byte) ([]Event, error) {
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: empty calendar", ErrUpstreamUnavailable)
	}

	cal, err := ical.ParseCalendar(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parsing calendar: %v", ErrUpstreamUnavailable, err)
	}

	var events []Event
	for _, ve := range cal.Events() {
		e, err := parseVEvent(ve)
		if err != nil {
			c.logger.Warn("skipping calendar entry", "uid", propertyValue(ve, ical.ComponentPropertyUniqueId), "error", err)
			continue
		}
		events = append(events, e)
	}

	c.logger.Debug("calendar parsed", "events", len(events), "kinds", CountKinds(events))
	return events, nil
}

func parseVEvent(ve *ical.VEvent) (Event, error) {
	start, err := ve.GetStartAt()
	if err != nil {
		return Event{}, fmt.Errorf("DTSTART: %w", err)
	}
	end, err := ve.GetEndAt()
	if err != nil {
		return Event{}, fmt.Errorf("DTEND: %w", err)
	}
	if end.Before(start) {
		return Event{}, fmt.Errorf("ends at %s before it starts at %s", end, start)
	}

	e := Event{
		Title: propertyValue(ve, ical.ComponentPropertySummary),
		Venue: propertyValue(ve, ical.ComponentPropertyLocation),
		Start: start,
		End:   end,
	}

	// CATEGORIES may list several values; the first recognised one wins.
	for _, cat := range strings.Split(propertyValue(ve, ical.ComponentPropertyCategories), ",") {
		if k := ParseKind(cat); k != KindOther {
			e.Kind = k
			break
		}
	}

	if org := ve.GetProperty(ical.ComponentPropertyOrganizer); org != nil {
		if cn, ok := org.ICalParameters["CN"]; ok && len(cn) > 0 {
			e.Speaker = cn[0]
		}
	}

	return e, nil
}

func propertyValue(ve *ical.VEvent, p ical.ComponentProperty) string {
	if prop := ve.GetProperty(p); prop != nil {
		return prop.Value
	}
	return ""
}
