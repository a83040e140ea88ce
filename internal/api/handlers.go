package api

import (
	"errors"
	"net/http"

	"github.com/dialaschedule/dialaschedule/internal/callflow"
	"github.com/dialaschedule/dialaschedule/internal/jambonz"
)

// handleCallStatus records a status report. jambonz ignores the body, so
// success is an empty 200.
func (s *Server) handleCallStatus(w http.ResponseWriter, r *http.Request) {
	var details jambonz.CallStatusDetails
	if err := readJSON(w, r, &details); err != nil {
		s.logger.Warn("rejecting call status", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := details.Validate(); err != nil {
		s.logger.Warn("rejecting call status", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	s.calls.Status(r.Context(), details)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	writeVerbs(w, s.logger, s.calls.Incoming())
}

func (s *Server) handleMenu(w http.ResponseWriter, r *http.Request) {
	writeVerbs(w, s.logger, s.calls.Menu())
}

// handleThrottled answers a call that is over its request budget.
func (s *Server) handleThrottled(w http.ResponseWriter, r *http.Request) {
	writeVerbs(w, s.logger, s.calls.Throttled())
}

// handleMenuSelection routes the digit gathered by the menu. An empty body
// is the same as a gather that timed out.
func (s *Server) handleMenuSelection(w http.ResponseWriter, r *http.Request) {
	var gathered jambonz.GatherResponse
	if err := readJSON(w, r, &gathered); err != nil && !errors.Is(err, errEmptyBody) {
		s.logger.Warn("rejecting menu selection", "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeVerbs(w, s.logger, s.calls.MenuSelection(gathered.Digits))
}

// handleQuery answers one of the schedule queries. Upstream failures are
// spoken to the caller by the controller, so the response is always verbs.
func (s *Server) handleQuery(step callflow.Step) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		verbs, err := s.calls.Query(r.Context(), step)
		if err != nil {
			s.logger.Error("query failed", "step", step, "error", err)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		writeVerbs(w, s.logger, verbs)
	}
}
