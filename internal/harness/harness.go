package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/taskplan/internal/compiler"
	"github.com/roach88/taskplan/internal/engine"
	"github.com/roach88/taskplan/internal/store"
	"github.com/roach88/taskplan/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with a fixed clock and run id.
type Harness struct {
	store   *store.Store
	planner *engine.Planner
	clock   *testutil.FixedClock
	logger  *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
//
// Execution flow:
// 1. Compile and validate the scenario's catalog
// 2. Create a fresh in-memory database and import catalog and fixture
// 3. Build the record's plan preview through the store
// 4. Evaluate assertions and return the result
func Run(ctx context.Context, scenario *Scenario) (*Result, error) {
	cat, err := compiler.LoadCatalog(scenario.Catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	if err := st.ImportCatalog(ctx, cat); err != nil {
		return nil, fmt.Errorf("failed to import catalog: %w", err)
	}
	if err := scenario.Fixture.Apply(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to apply fixture: %w", err)
	}

	h, err := newHarness(st, scenario.ComputedAt)
	if err != nil {
		return nil, err
	}

	preview, err := h.planner.Preview(ctx, scenario.Record.URI)
	if err != nil {
		return nil, fmt.Errorf("failed to build preview: %w", err)
	}

	result := NewResult()
	result.Preview = preview
	for _, msg := range EvaluateAssertions(preview, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

func newHarness(st *store.Store, computedAt string) (*Harness, error) {
	var at time.Time
	if computedAt != "" {
		var err error
		if at, err = time.Parse(time.RFC3339, computedAt); err != nil {
			return nil, fmt.Errorf("computed_at: %w", err)
		}
	}

	h := &Harness{
		store:  st,
		clock:  testutil.NewFixedClock(at),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	h.planner = engine.New(st,
		engine.WithClock(h.clock.Now),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator("")),
		engine.WithLogger(h.logger),
	)
	return h, nil
}
