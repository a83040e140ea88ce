package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/database/models"
)

type fakeRecentCalls struct {
	events    []models.CallStatusEvent
	err       error
	lastLimit int
}

func (f *fakeRecentCalls) ListRecent(_ context.Context, limit int) ([]models.CallStatusEvent, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.events) {
		return f.events[:limit], nil
	}
	return f.events, nil
}

func getCalls(h http.Handler, target string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	return rr
}

func TestRecentCalls(t *testing.T) {
	dur := int64(42)
	by := "caller"
	calls := &fakeRecentCalls{events: []models.CallStatusEvent{
		{
			ID: "e2", CallID: "c1", CallSID: "s1", CallStatus: "completed",
			TerminationBy: &by, Duration: &dur, From: "+441234",
			ReceivedAt: time.Date(2024, 5, 31, 14, 5, 0, 0, time.UTC),
		},
		{
			ID: "e1", CallID: "c1", CallSID: "s1", CallStatus: "in-progress",
			From: "+441234", ReceivedAt: time.Date(2024, 5, 31, 14, 0, 0, 0, time.UTC),
		},
	}}

	rr := getCalls(RecentCallsHandler(calls, discardLogger()), "/calls")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if calls.lastLimit != defaultRecentCalls {
		t.Errorf("expected default limit %d, got %d", defaultRecentCalls, calls.lastLimit)
	}

	var env struct {
		Data []callStatusResponse `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(env.Data) != 2 {
		t.Fatalf("expected 2 items, got %d", len(env.Data))
	}
	first := env.Data[0]
	if first.ID != "e2" || first.CallStatus != "completed" || first.ReceivedAt != "2024-05-31T14:05:00Z" {
		t.Errorf("unexpected first item: %+v", first)
	}
	if first.Duration == nil || *first.Duration != 42 || first.TerminationBy == nil || *first.TerminationBy != "caller" {
		t.Errorf("expected duration and termination, got %+v", first)
	}
	if env.Data[1].Duration != nil {
		t.Errorf("expected no duration, got %v", *env.Data[1].Duration)
	}
}

func TestRecentCallsEmpty(t *testing.T) {
	rr := getCalls(RecentCallsHandler(&fakeRecentCalls{}, discardLogger()), "/calls")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "{\"data\":[]}\n" {
		t.Errorf("expected empty list, got %s", got)
	}
}

func TestRecentCallsLimit(t *testing.T) {
	calls := &fakeRecentCalls{}
	h := RecentCallsHandler(calls, discardLogger())

	if rr := getCalls(h, "/calls?limit=5"); rr.Code != http.StatusOK || calls.lastLimit != 5 {
		t.Errorf("limit=5: code %d, limit %d", rr.Code, calls.lastLimit)
	}
	if rr := getCalls(h, "/calls?limit=100000"); rr.Code != http.StatusOK || calls.lastLimit != maxRecentCalls {
		t.Errorf("limit should be capped: code %d, limit %d", rr.Code, calls.lastLimit)
	}
	for _, bad := range []string{"0", "-3", "lots"} {
		if rr := getCalls(h, "/calls?limit="+bad); rr.Code != http.StatusBadRequest {
			t.Errorf("limit=%s: expected 400, got %d", bad, rr.Code)
		}
	}
}

func TestRecentCallsStoreError(t *testing.T) {
	rr := getCalls(RecentCallsHandler(&fakeRecentCalls{err: errors.New("disk full")}, discardLogger()), "/calls")
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}
