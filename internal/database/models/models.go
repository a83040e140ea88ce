package models

import "time"

// CallStatusEvent is one call status report received from jambonz.
type CallStatusEvent struct {
	ID            string
	CallID        string
	CallSID       string
	CallStatus    string
	TerminationBy *string
	Duration      *int64
	From          string
	ReceivedAt    time.Time
}
