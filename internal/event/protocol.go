// Package event defines the wire protocol spoken by the test agent: one JSON
// object per websocket text frame, discriminated by its "event" field.
package event

import (
	"bytes"
	"encoding/json"
)

type Kind string

const (
	KindNotify          Kind = "notify"
	KindMessage         Kind = "message"
	KindSingleResult    Kind = "singleResult"
	KindTestingComplete Kind = "testingComplete"
)

// envelope is the outer shape of every frame. Data is decoded lazily once
// the kind is known.
type envelope struct {
	Event Kind            `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type Level string

const (
	LevelLog   Level = "log"
	LevelDebug Level = "debug"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

// Known reports whether the level has a console treatment.
func (l Level) Known() bool {
	switch l {
	case LevelLog, LevelDebug, LevelWarn, LevelError:
		return true
	}
	return false
}

// Event is implemented by every decoded frame payload.
type Event interface {
	Kind() Kind
}

// Notify is a keep-alive ping from the agent.
type Notify struct{}

// Message is a free-form log line emitted by the agent.
type Message struct {
	Message string `json:"message"`
	Level   Level  `json:"level"`
}

// Result is the outcome of a single test.
type Result struct {
	Message string `json:"message"`
	Passed  bool   `json:"passed"`
}

// TestCase is one entry of the full result tree.
type TestCase struct {
	Description string  `json:"description"`
	Passed      bool    `json:"passed"`
	Time        float64 `json:"time"` // seconds
}

// ResultTree is the full, ordered set of test cases for a run.
type ResultTree struct {
	Name      string     `json:"name,omitempty"`
	Timestamp string     `json:"timestamp,omitempty"`
	Time      float64    `json:"time,omitempty"`
	TestCases []TestCase `json:"testCases"`
}

// Failures counts the failed cases in the tree.
func (t ResultTree) Failures() int {
	n := 0
	for _, tc := range t.TestCases {
		if !tc.Passed {
			n++
		}
	}
	return n
}

// Report is sent once, when the agent has finished running the suite.
type Report struct {
	Results     []Result   `json:"results"`
	FullResults ResultTree `json:"fullResults"`
	ErrorCount  uint       `json:"errorCount"`
	Duration    float64    `json:"duration"` // seconds
}

func (Notify) Kind() Kind  { return KindNotify }
func (Message) Kind() Kind { return KindMessage }
func (Result) Kind() Kind  { return KindSingleResult }
func (Report) Kind() Kind  { return KindTestingComplete }

var null = []byte("null")

// Decode parses a raw frame. It returns nil for anything that is not valid
// JSON, carries an unknown event, or whose data does not fit the event's
// payload shape. Callers drop nil events without further action.
func Decode(raw []byte) Event {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil
	}

	switch env.Event {
	case KindNotify:
		return Notify{}
	case KindMessage:
		var p Message
		if decodeData(env.Data, &p) {
			return p
		}
	case KindSingleResult:
		var p Result
		if decodeData(env.Data, &p) {
			return p
		}
	case KindTestingComplete:
		var p Report
		if decodeData(env.Data, &p) {
			return p
		}
	}
	return nil
}

func decodeData(data json.RawMessage, v any) bool {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, null) || data[0] != '{' {
		return false
	}
	return json.Unmarshal(data, v) == nil
}

// Encode builds the frame for an event. It is the inverse of Decode and is
// used by the agent client.
func Encode(ev Event) ([]byte, error) {
	env := struct {
		Event Kind `json:"event"`
		Data  any  `json:"data,omitempty"`
	}{Event: ev.Kind()}
	if _, ok := ev.(Notify); !ok {
		env.Data = ev
	}
	return json.Marshal(env)
}
