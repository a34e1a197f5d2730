// Package simerrors names the run-failure taxonomy of spec.md §7:
// configuration errors, invariant violations, and stalled runs. Modeled
// drops are deliberately not an error type here — §7 classifies them as
// counted, non-fatal events surfaced through metrics, not through this
// taxonomy.
package simerrors

import "fmt"

// ConfigError reports a bad configuration value: unknown enum,
// out-of-range number, or missing required key. Fatal at load time.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error at %q: %s", e.Key, e.Message)
}

// NewConfigError builds a ConfigError naming the offending key.
func NewConfigError(key, message string) *ConfigError {
	return &ConfigError{Key: key, Message: message}
}

// InvariantError reports a violated runtime invariant (negative delay,
// negative queue size, received bytes exceeding 2x expected, a barrier
// firing twice). Fatal; the run must terminate with diagnostic state.
type InvariantError struct {
	Invariant string
	Detail    string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violated (%s): %s", e.Invariant, e.Detail)
}

// NewInvariantError builds an InvariantError.
func NewInvariantError(invariant, detail string) *InvariantError {
	return &InvariantError{Invariant: invariant, Detail: detail}
}

// UnfinishedFlow names one barrier still pending when a run stalls, with
// the flow ids it is still waiting on, for StallError's diagnostic report.
type UnfinishedFlow struct {
	BarrierName string
	FlowIDs     []int
}

// StallError reports that the scheduler's queue emptied while at least one
// job was still running — spec.md §7's "stalled run" classification.
type StallError struct {
	Unfinished []UnfinishedFlow
}

func (e *StallError) Error() string {
	return fmt.Sprintf("run stalled: %d unfinished barrier(s)", len(e.Unfinished))
}

// NewStallError builds a StallError from the runner's unfinished-barrier
// report.
func NewStallError(unfinished []UnfinishedFlow) *StallError {
	return &StallError{Unfinished: unfinished}
}
