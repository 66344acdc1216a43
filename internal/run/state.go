// Package run coordinates a test run: it owns the run state and the
// keep-alive watchdog and applies agent events to them in arrival order.
package run

import "github.com/google/uuid"

// State is the mutable record of the run in progress. It is owned by the
// Coordinator and only touched from its loop goroutine.
type State struct {
	appBooted bool
	testCount uint
	runs      uint
	runID     string

	devMode   bool
	xmlOutput bool
}

func NewState(devMode, xmlOutput bool) *State {
	return &State{
		devMode:   devMode,
		xmlOutput: xmlOutput,
		runID:     uuid.NewString(),
	}
}

// MarkBooted records that the app has connected at least once. Calling it
// again is a no-op.
func (s *State) MarkBooted() {
	s.appBooted = true
}

func (s *State) Booted() bool {
	return s.appBooted
}

// NextResult counts one more reported test and returns its 1-based number
// within the current run.
func (s *State) NextResult() uint {
	s.testCount++
	return s.testCount
}

func (s *State) TestCount() uint {
	return s.testCount
}

// FinishRun resets the per-run counter so a following run on the same
// connection numbers its tests from 1 again, and starts a new run ID.
func (s *State) FinishRun() {
	s.testCount = 0
	s.runs++
	s.runID = uuid.NewString()
}

// RunID identifies the run currently in progress.
func (s *State) RunID() string {
	return s.runID
}

func (s *State) DevMode() bool {
	return s.devMode
}

func (s *State) XMLOutput() bool {
	return s.xmlOutput
}

// Status is a point-in-time copy of State, safe to hand to other
// goroutines.
type Status struct {
	AppBooted bool   `json:"appBooted"`
	TestCount uint   `json:"testCount"`
	Runs      uint   `json:"runs"`
	RunID     string `json:"runId"`
	DevMode   bool   `json:"devMode"`
	XMLOutput bool   `json:"xmlOutput"`
}

func (s *State) Status() Status {
	return Status{
		AppBooted: s.appBooted,
		TestCount: s.testCount,
		Runs:      s.runs,
		RunID:     s.runID,
		DevMode:   s.devMode,
		XMLOutput: s.xmlOutput,
	}
}
