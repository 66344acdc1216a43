// Package exitcodes defines the process exit codes the coordinator reports
// to the tooling that launched it.
//
// * Success (0): the run finished and every test passed
// * TestFailure (42): the run finished with one or more failed tests
// * Fatal (1): the agent stopped sending keep-alives, or startup failed
//
// TestFailure is deliberately not 1 so callers can tell failed tests apart
// from a failed build or launch of the app under test.
package exitcodes

const (
	Success     = 0
	Fatal       = 1
	TestFailure = 42
)
