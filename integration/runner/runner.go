package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/fractured-truths/pkg/world"
)

type ErrorHandlingMode string

const ErrorHandlingExit ErrorHandlingMode = "exit"
const ErrorHandlingContinue ErrorHandlingMode = "continue"

// Runner executes integration tests against a running fractured-truths API
type Runner struct {
	BaseURL           string
	Client            *http.Client
	Timeout           time.Duration
	Logger            func(format string, args ...interface{})
	ErrorHandlingMode ErrorHandlingMode
}

// NewRunner creates a new test runner
func NewRunner(baseURL string) *Runner {
	return &Runner{
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		Client:            &http.Client{Timeout: 60 * time.Second},
		Timeout:           30 * time.Second,
		Logger:            func(string, ...interface{}) {},
		ErrorHandlingMode: ErrorHandlingContinue,
	}
}

// LoadTestSuite loads a test suite from a JSON file
func LoadTestSuite(filename string) (TestSuite, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		return TestSuite{}, fmt.Errorf("failed to read test file %s: %w", filename, err)
	}

	var suite TestSuite
	if err := json.Unmarshal(content, &suite); err != nil {
		return TestSuite{}, fmt.Errorf("failed to parse JSON in %s: %w", filename, err)
	}

	return suite, nil
}

// LoadTestSuiteWithExpansion loads a test suite and expands it if it's a sequence
// Returns a list of actual test suites (expanded from the sequence if needed)
func LoadTestSuiteWithExpansion(filename string, casesDir string) ([]TestJob, error) {
	suite, err := LoadTestSuite(filename)
	if err != nil {
		return nil, err
	}

	if !suite.IsSequence() {
		return []TestJob{{
			Name:     suite.Name,
			Suite:    suite,
			CaseFile: filename,
		}}, nil
	}

	var jobs []TestJob
	for _, caseFile := range suite.Cases {
		casePath := filepath.Join(casesDir, caseFile)

		// Recursively load (in case a sequence references another sequence)
		subJobs, err := LoadTestSuiteWithExpansion(casePath, casesDir)
		if err != nil {
			return nil, fmt.Errorf("failed to load case '%s' referenced by sequence '%s': %w", caseFile, suite.Name, err)
		}

		jobs = append(jobs, subJobs...)
	}

	return jobs, nil
}

// RunSuite joins the suite's players and executes every step.
// Each run joins fresh players, so suites are independent of each other
// even though they share one world.
func (r *Runner) RunSuite(ctx context.Context, suite TestSuite) (TestRunResult, error) {
	start := time.Now()
	result := TestRunResult{
		Job: TestJob{
			Name:  suite.Name,
			Suite: suite,
		},
		Results: make([]TestResult, 0, len(suite.Steps)),
		Players: make(map[string]string, len(suite.Players)),
	}

	for _, p := range suite.Players {
		id, err := Join(ctx, r.Client, r.BaseURL, p)
		if err != nil {
			result.Error = fmt.Errorf("failed to join player %s: %w", p.Key, err)
			result.Duration = time.Since(start)
			return result, result.Error
		}
		result.Players[p.Key] = id
	}

	for i, step := range suite.Steps {
		r.Logger("    [%d/%d] Running step: %s", i+1, len(suite.Steps), step.Name)
		stepResult := r.runStep(ctx, result.Players, step)
		result.Results = append(result.Results, stepResult)

		if stepResult.Error != nil {
			r.Logger("    [%d/%d] ✗ %s: %v", i+1, len(suite.Steps), step.Name, stepResult.Error)
			if result.Error == nil {
				result.Error = fmt.Errorf("step %d (%s) failed: %w", i, step.Name, stepResult.Error)
			}
			if r.ErrorHandlingMode == ErrorHandlingExit {
				break
			}
			continue
		}

		r.Logger("    [%d/%d] ✓ %s (%v)", i+1, len(suite.Steps), step.Name, stepResult.Duration)
	}

	result.Duration = time.Since(start)
	return result, result.Error
}

// runStep sends the step's actions and checks expectations
func (r *Runner) runStep(ctx context.Context, players map[string]string, step TestStep) TestResult {
	start := time.Now()
	result := TestResult{StepName: step.Name}
	fail := func(err error) TestResult {
		result.Error = err
		result.Duration = time.Since(start)
		return result
	}

	stepCtx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	before, err := LastSeq(stepCtx, r.Client, r.BaseURL)
	if err != nil {
		return fail(fmt.Errorf("failed to read history before step: %w", err))
	}

	actors := make([]string, len(step.Actions))
	for i, a := range step.Actions {
		playerID, ok := players[a.Actor]
		if !ok {
			return fail(fmt.Errorf("action references unknown player %q", a.Actor))
		}
		actors[i] = playerID
	}

	g, gctx := errgroup.WithContext(stepCtx)
	for i, a := range step.Actions {
		playerID := actors[i]
		g.Go(func() error {
			if err := Act(gctx, r.Client, r.BaseURL, playerID, a.Type, a.Payload); err != nil {
				return fmt.Errorf("action %s by %s: %w", a.Type, a.Actor, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fail(err)
	}

	if err := r.checkExpectations(stepCtx, players, step.Expectations, before); err != nil {
		return fail(fmt.Errorf("expectation failed: %w", err))
	}

	result.Success = true
	result.Duration = time.Since(start)
	return result
}

// checkExpectations validates the step expectations against the log and the
// players' views
func (r *Runner) checkExpectations(ctx context.Context, players map[string]string, exp Expectations, before int64) error {
	lookup := func(key string) (string, error) {
		id, ok := players[key]
		if !ok {
			return "", fmt.Errorf("expectation references unknown player %q", key)
		}
		return id, nil
	}

	if exp.EventsAdded != nil || len(exp.Actors) > 0 {
		after, err := LastSeq(ctx, r.Client, r.BaseURL)
		if err != nil {
			return err
		}
		added := int(after - before)
		if exp.EventsAdded != nil && added != *exp.EventsAdded {
			return fmt.Errorf("expected %d new events, got %d", *exp.EventsAdded, added)
		}

		if len(exp.Actors) > 0 {
			var events []world.GameEvent
			if added > 0 {
				if events, err = GetHistory(ctx, r.Client, r.BaseURL, added); err != nil {
					return err
				}
			}
			actors := make([]string, 0, len(events))
			for _, evt := range events {
				actors = append(actors, evt.PlayerID)
			}
			for _, key := range exp.Actors {
				id, err := lookup(key)
				if err != nil {
					return err
				}
				if !slices.Contains(actors, id) {
					return fmt.Errorf("expected a new event by %s, actors were %v", key, actors)
				}
			}
		}
	}

	views := make(map[string]*ViewResponse)
	view := func(key string) (*ViewResponse, error) {
		if v, ok := views[key]; ok {
			return v, nil
		}
		id, err := lookup(key)
		if err != nil {
			return nil, err
		}
		v, err := GetView(ctx, r.Client, r.BaseURL, id)
		if err != nil {
			return nil, err
		}
		views[key] = v
		return v, nil
	}

	for key, wants := range exp.NarrativeContains {
		v, err := view(key)
		if err != nil {
			return err
		}
		narrative := strings.ToLower(v.View.String(world.NarrativeKey))
		for _, want := range wants {
			if !strings.Contains(narrative, strings.ToLower(want)) {
				return fmt.Errorf("expected %s's narrative to contain '%s', got %q", key, want, narrative)
			}
		}
	}

	seen := make(map[string]string)
	for _, key := range exp.DistinctNarratives {
		v, err := view(key)
		if err != nil {
			return err
		}
		narrative := v.View.String(world.NarrativeKey)
		if narrative == "" {
			return fmt.Errorf("expected %s to have a narrative", key)
		}
		if other, dup := seen[narrative]; dup {
			return fmt.Errorf("expected distinct narratives, %s and %s both got %q", other, key, narrative)
		}
		seen[narrative] = key
	}

	for key, wantKeys := range exp.ViewKeys {
		v, err := view(key)
		if err != nil {
			return err
		}
		for _, k := range wantKeys {
			if !v.View.Has(k) {
				return fmt.Errorf("expected %s's view to have key %s, keys were %s", key, k, v.View.Keys())
			}
		}
	}

	return nil
}
