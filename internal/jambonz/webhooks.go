package jambonz

import (
	"encoding/json"
	"fmt"
)

// GatherResponse is the body jambonz posts to a Gather action hook.
// Digits is nil when the caller entered nothing before the timeout.
type GatherResponse struct {
	Digits *string `json:"digits"`
}

// CallStatus is the state of a call as reported to the status webhook.
type CallStatus string

// Call statuses reported by jambonz.
const (
	CallStatusTrying     CallStatus = "trying"
	CallStatusRinging    CallStatus = "ringing"
	CallStatusEarlyMedia CallStatus = "early-media"
	CallStatusInProgress CallStatus = "in-progress"
	CallStatusCompleted  CallStatus = "completed"
	CallStatusFailed     CallStatus = "failed"
	CallStatusBusy       CallStatus = "busy"
	CallStatusNoAnswer   CallStatus = "no-answer"
)

var knownCallStatuses = map[CallStatus]bool{
	CallStatusTrying:     true,
	CallStatusRinging:    true,
	CallStatusEarlyMedia: true,
	CallStatusInProgress: true,
	CallStatusCompleted:  true,
	CallStatusFailed:     true,
	CallStatusBusy:       true,
	CallStatusNoAnswer:   true,
}

// UnmarshalJSON accepts only the statuses jambonz documents.
func (s *CallStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("call status: %w", err)
	}
	cs := CallStatus(raw)
	if !knownCallStatuses[cs] {
		return fmt.Errorf("call status: unknown value %q", raw)
	}
	*s = cs
	return nil
}

// CallStatusDetails is the body of a call status webhook.
type CallStatusDetails struct {
	CallID            string     `json:"call_id"`
	CallSID           string     `json:"call_sid"`
	CallStatus        CallStatus `json:"call_status"`
	CallTerminationBy *string    `json:"call_termination_by,omitempty"`
	Duration          *int64     `json:"duration,omitempty"`
	From              string     `json:"from"`
}

// Validate reports missing required fields.
func (d *CallStatusDetails) Validate() error {
	switch {
	case d.CallID == "":
		return fmt.Errorf("call_id is required")
	case d.CallSID == "":
		return fmt.Errorf("call_sid is required")
	case d.CallStatus == "":
		return fmt.Errorf("call_status is required")
	case d.From == "":
		return fmt.Errorf("from is required")
	}
	return nil
}
