// Package jambonz holds the wire types exchanged with the jambonz
// call-control platform: the verbs returned from webhooks and the payloads
// jambonz posts to them.
//
// See https://www.jambonz.org/docs/webhooks/overview/
package jambonz

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyResponse is returned when encoding a response with no verbs.
// jambonz treats an empty verb list as a hangup, so the call flow must
// always produce at least one verb.
var ErrEmptyResponse = errors.New("response contains no verbs")

// Verb is a single call-control instruction. The concrete types are Say,
// Gather and Redirect.
type Verb interface {
	// VerbName is the value of the "verb" discriminator on the wire.
	VerbName() string
}

// Redirect transfers control to another webhook unconditionally.
// See https://www.jambonz.org/docs/webhooks/redirect/
type Redirect struct {
	ActionHook string `json:"actionHook"`
}

// VerbName implements Verb.
func (Redirect) VerbName() string { return "redirect" }

// Say speaks text to the caller.
// See https://www.jambonz.org/docs/webhooks/say/
type Say struct {
	Text        string       `json:"text"`
	Synthesizer *Synthesizer `json:"synthesizer,omitempty"`
}

// VerbName implements Verb.
func (Say) VerbName() string { return "say" }

// Synthesizer selects the text-to-speech voice used by a Say verb.
type Synthesizer struct {
	Vendor   string `json:"vendor"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
	Voice    string `json:"voice"`
}

// GatherInput is an input mode accepted by a Gather verb.
type GatherInput string

// InputDigits collects DTMF digits. Speech input is not used.
const InputDigits GatherInput = "digits"

// Gather waits for caller input and posts the result to ActionHook.
// See https://www.jambonz.org/docs/webhooks/gather/
type Gather struct {
	ActionHook string        `json:"actionHook"`
	Input      []GatherInput `json:"input"`
	NumDigits  int           `json:"numDigits,omitempty"`
	Recognizer *Recognizer   `json:"recognizer,omitempty"`
	Say        *Say          `json:"say,omitempty"`
}

// VerbName implements Verb.
func (Gather) VerbName() string { return "gather" }

// Recognizer configures speech recognition for a Gather verb.
type Recognizer struct {
	Vendor     string   `json:"vendor"`
	Language   string   `json:"language"`
	Hints      []string `json:"hints"`
	HintsBoost int      `json:"hintsBoost"`
}

// Response is the ordered list of verbs returned from a webhook.
type Response []Verb

// MarshalJSON encodes each verb as an object whose first member is the
// "verb" discriminator followed by the verb's own fields.
func (r Response) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		b, err := marshalVerb(v)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

func marshalVerb(v Verb) ([]byte, error) {
	if v == nil {
		return nil, fmt.Errorf("marshalling verb: nil verb")
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshalling %s verb: %w", v.VerbName(), err)
	}
	if len(body) < 2 || body[0] != '{' {
		return nil, fmt.Errorf("marshalling %s verb: expected object, got %s", v.VerbName(), body)
	}

	name, err := json.Marshal(v.VerbName())
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteString(`{"verb":`)
	buf.Write(name)
	if len(body) > 2 {
		buf.WriteByte(',')
	}
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// Encode marshals the response, refusing empty verb lists.
func Encode(r Response) ([]byte, error) {
	if len(r) == 0 {
		return nil, ErrEmptyResponse
	}
	return json.Marshal(r)
}
