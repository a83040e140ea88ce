package schedule

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
)

// maxBodySize bounds the schedule payload read from the upstream API.
const maxBodySize = 16 << 20

// naiveLayout is the timestamp layout used by the schedule API when it
// omits a zone offset.
const naiveLayout = "2006-01-02 15:04:05"

// Client fetches the schedule from the JSON schedule API.
type Client struct {
	httpClient *http.Client
	url        string
	loc        *time.Location
	logger     *slog.Logger
}

// NewClient creates a schedule API client. Timestamps without an offset are
// interpreted in loc.
func NewClient(url string, timeout time.Duration, loc *time.Location, logger *slog.Logger) *Client {
	if loc == nil {
		loc = time.UTC
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		url:        url,
		loc:        loc,
		logger:     logger.With("subsystem", "schedule_client"),
	}
}

// FetchAll downloads and parses the full schedule.
func (c *Client) FetchAll(ctx context.Context) ([]Event, error) {
	body, err := fetchBody(ctx, c.httpClient, c.url, "application/json")
	if err != nil {
		return nil, err
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: response is not valid json", ErrUpstreamUnavailable)
	}

	root := gjson.ParseBytes(body)
	list := root
	if !root.IsArray() {
		list = root.Get("events")
		if !list.IsArray() {
			return nil, fmt.Errorf("%w: response has no event list", ErrUpstreamUnavailable)
		}
	}

	var events []Event
	list.ForEach(func(_, item gjson.Result) bool {
		e, err := c.parseEvent(item)
		if err != nil {
			c.logger.Warn("skipping schedule entry",
				"title", item.Get("title").String(),
				"error", err,
			)
			return true
		}
		events = append(events, e)
		return true
	})

	c.logger.Debug("schedule fetched", "events", len(events), "kinds", CountKinds(events))
	return events, nil
}

func (c *Client) parseEvent(item gjson.Result) (Event, error) {
	start, err := c.parseTime(item.Get("start_date").String())
	if err != nil {
		return Event{}, fmt.Errorf("start_date: %w", err)
	}
	end, err := c.parseTime(item.Get("end_date").String())
	if err != nil {
		return Event{}, fmt.Errorf("end_date: %w", err)
	}
	if end.Before(start) {
		return Event{}, fmt.Errorf("ends at %s before it starts at %s", end, start)
	}

	return Event{
		Title:   item.Get("title").String(),
		Speaker: item.Get("speaker").String(),
		Venue:   item.Get("venue").String(),
		Kind:    ParseKind(item.Get("type").String()),
		Start:   start,
		End:     end,
	}, nil
}

func (c *Client) parseTime(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation(naiveLayout, v, c.loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing %q: %w", v, err)
	}
	return t, nil
}

// fetchBody performs a GET and returns the body of a 200 response. All
// failures wrap ErrUpstreamUnavailable.
func fetchBody(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: creating request: %v", ErrUpstreamUnavailable, err)
	}
	req.Header.Set("Accept", accept)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request: %w", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: upstream returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrUpstreamUnavailable, err)
	}
	return body, nil
}
