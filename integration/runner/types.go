package runner

import (
	"time"
)

// TestSuite defines a complete integration test scenario.
// Can either be a regular test with Players and Steps, or a suite that
// references other Cases.
type TestSuite struct {
	Name    string       `json:"name"`
	Players []PlayerSpec `json:"players,omitempty"` // Joined before the first step
	Steps   []TestStep   `json:"steps,omitempty"`
	Cases   []string     `json:"cases,omitempty"` // Used for suite tests (list of case files)
}

// IsSequence returns true if this is a suite that sequences other cases
func (ts *TestSuite) IsSequence() bool {
	return len(ts.Cases) > 0
}

// PlayerSpec is a player joined for the suite. Key names the player in
// steps and expectations.
type PlayerSpec struct {
	Key         string `json:"key"`
	DisplayName string `json:"display_name"`
	Alignment   string `json:"alignment,omitempty"`
}

// ActionSpec is one POST /action. Actor is a player key.
type ActionSpec struct {
	Actor   string         `json:"actor"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

// TestStep sends its actions, concurrently when there is more than one, and
// then checks expectations.
type TestStep struct {
	Name         string       `json:"name,omitempty"`
	Actions      []ActionSpec `json:"actions"`
	Expectations Expectations `json:"expect"`
}

// Expectations defines what to check after a test step executes.
// Map keys and list entries are player keys.
type Expectations struct {
	// Number of events the step must append to the log.
	EventsAdded *int `json:"events_added,omitempty"`
	// Players whose ids must appear as actors of the appended events.
	Actors []string `json:"actors,omitempty"`
	// Substrings each player's narrative must contain (case-insensitive).
	NarrativeContains map[string][]string `json:"narrative_contains,omitempty"`
	// Players whose narratives must be pairwise distinct.
	DistinctNarratives []string `json:"distinct_narratives,omitempty"`
	// View keys that must be present for each player.
	ViewKeys map[string][]string `json:"view_keys,omitempty"`
}

// TestResult contains the outcome of running a test step
type TestResult struct {
	StepName string
	Success  bool
	Error    error
	Duration time.Duration
}

// TestJob represents a test suite to be executed
type TestJob struct {
	Name     string
	Suite    TestSuite
	CaseFile string
}

// TestRunResult contains the results of running an entire test suite
type TestRunResult struct {
	Job      TestJob
	Results  []TestResult
	Error    error
	Duration time.Duration
	Players  map[string]string // player key -> player id
}
