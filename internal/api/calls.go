package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dialaschedule/dialaschedule/internal/database/models"
)

const (
	defaultRecentCalls = 50
	maxRecentCalls     = 500
)

// RecentCalls lists the newest call status reports.
type RecentCalls interface {
	ListRecent(ctx context.Context, limit int) ([]models.CallStatusEvent, error)
}

// callStatusResponse is the JSON form of one stored status report.
type callStatusResponse struct {
	ID            string  `json:"id"`
	CallID        string  `json:"call_id"`
	CallSID       string  `json:"call_sid"`
	CallStatus    string  `json:"call_status"`
	TerminationBy *string `json:"call_termination_by,omitempty"`
	Duration      *int64  `json:"duration,omitempty"`
	From          string  `json:"from"`
	ReceivedAt    string  `json:"received_at"`
}

func toCallStatusResponse(ev *models.CallStatusEvent) callStatusResponse {
	return callStatusResponse{
		ID:            ev.ID,
		CallID:        ev.CallID,
		CallSID:       ev.CallSID,
		CallStatus:    ev.CallStatus,
		TerminationBy: ev.TerminationBy,
		Duration:      ev.Duration,
		From:          ev.From,
		ReceivedAt:    ev.ReceivedAt.UTC().Format(time.RFC3339),
	}
}

// RecentCallsHandler serves the call status log, newest first. The optional
// limit query parameter defaults to 50 and is capped at 500.
func RecentCallsHandler(calls RecentCalls, logger *slog.Logger) http.HandlerFunc {
	logger = logger.With("subsystem", "call_log")

	return func(w http.ResponseWriter, r *http.Request) {
		limit := defaultRecentCalls
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, maxRecentCalls)
		}

		events, err := calls.ListRecent(r.Context(), limit)
		if err != nil {
			logger.Error("listing recent calls", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		items := make([]callStatusResponse, len(events))
		for i := range events {
			items[i] = toCallStatusResponse(&events[i])
		}
		writeJSON(w, http.StatusOK, items)
	}
}
