package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/dialaschedule/dialaschedule/internal/jambonz"
)

// maxRequestBodySize caps webhook bodies. jambonz payloads are a few
// hundred bytes.
const maxRequestBodySize = 1 << 20

var errEmptyBody = errors.New("request body must not be empty")

// envelope wraps non-verb JSON responses: { "data": ..., "error": ... }.
type envelope struct {
	Data  any    `json:"data"`
	Error string `json:"error,omitempty"`
}

// writeJSON writes data inside the standard envelope.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Data: data}); err != nil {
		slog.Error("failed to encode json response", "error", err)
	}
}

// writeError writes msg inside the standard envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Error: msg}); err != nil {
		slog.Error("failed to encode json error response", "error", err)
	}
}

// writeVerbs writes a jambonz verb array. jambonz reads the body as-is, so
// it is not wrapped in the envelope.
func writeVerbs(w http.ResponseWriter, logger *slog.Logger, verbs []jambonz.Verb) {
	body, err := jambonz.Encode(jambonz.Response(verbs))
	if err != nil {
		logger.Error("failed to encode verbs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logger.Debug("failed to write verbs", "error", err)
	}
}

// readJSON decodes a single JSON object from the request body into dst.
// Unknown fields are ignored since jambonz adds fields between releases. An
// empty body returns errEmptyBody.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errEmptyBody
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return errors.New("request body too large")
		}
		return errors.New("malformed json")
	}

	if dec.More() {
		return errors.New("request body must contain a single json object")
	}
	return nil
}
