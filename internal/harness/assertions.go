package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/taskplan/internal/ir"
)

// confidenceTolerance absorbs float formatting differences in YAML values.
const confidenceTolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string   // Assertion type for categorization
	Expected string   // Human-readable expected outcome
	Actual   string   // Human-readable actual outcome
	Groups   []string // Group ids of the preview, for context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Groups) > 0 {
		fmt.Fprintf(&buf, "\nGroups:\n")
		for i, id := range e.Groups {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, id)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion against preview and returns
// the failure messages. An empty slice means all assertions hold.
func EvaluateAssertions(preview *ir.PlanPreview, assertions []Assertion) []string {
	errs := []string{}
	for i, a := range assertions {
		if err := evaluate(preview, a); err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func evaluate(preview *ir.PlanPreview, a Assertion) error {
	switch a.Type {
	case AssertGroups:
		return assertGroups(preview, a)
	case AssertCandidates:
		return assertCandidates(preview, a)
	case AssertMatchedRules:
		return assertMatchedRules(preview, a)
	case AssertWarningsContain:
		return assertWarningsContain(preview, a)
	case AssertConfidence:
		return assertConfidence(preview, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

// assertGroups checks the exact, ordered list of group ids.
func assertGroups(preview *ir.PlanPreview, a Assertion) error {
	ids := groupIDs(preview)
	if slices.Equal(ids, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertGroups,
		Expected: fmt.Sprintf("%v", a.IDs),
		Actual:   fmt.Sprintf("%v", ids),
	}
}

// assertCandidates checks the exact, ordered template candidates of a group.
func assertCandidates(preview *ir.PlanPreview, a Assertion) error {
	g, err := findGroup(preview, a)
	if err != nil {
		return err
	}
	want := a.Templates
	if want == nil {
		want = []string{}
	}
	if slices.Equal(g.TemplateCandidates, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertCandidates,
		Expected: fmt.Sprintf("%s candidates %v", g.ID, want),
		Actual:   fmt.Sprintf("%v", g.TemplateCandidates),
	}
}

// assertMatchedRules checks the rule ids recorded for a group in the
// explainability index, in evaluation order.
func assertMatchedRules(preview *ir.PlanPreview, a Assertion) error {
	g, err := findGroup(preview, a)
	if err != nil {
		return err
	}
	matches := preview.MatchedTemplatesByContext[g.ContextKey()]
	got := make([]string, len(matches))
	for i, m := range matches {
		got[i] = m.RuleID
	}
	want := a.Rules
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertMatchedRules,
		Expected: fmt.Sprintf("%s rules %v", g.ContextKey(), want),
		Actual:   fmt.Sprintf("%v", got),
	}
}

// assertWarningsContain checks that some top-level warning contains Text.
func assertWarningsContain(preview *ir.PlanPreview, a Assertion) error {
	for _, w := range preview.Warnings {
		if strings.Contains(w, a.Text) {
			return nil
		}
	}
	return &AssertionError{
		Type:     AssertWarningsContain,
		Expected: fmt.Sprintf("a warning containing %q", a.Text),
		Actual:   fmt.Sprintf("%q", preview.Warnings),
	}
}

// assertConfidence checks one line item's classification confidence.
func assertConfidence(preview *ir.PlanPreview, a Assertion) error {
	for _, li := range preview.PlanInput.LineItems {
		if li.URI != a.LineItem {
			continue
		}
		got := li.Classification.Confidence
		if math.Abs(got-*a.Value) <= confidenceTolerance {
			return nil
		}
		return &AssertionError{
			Type:     AssertConfidence,
			Expected: fmt.Sprintf("%s confidence %v", a.LineItem, *a.Value),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return &AssertionError{
		Type:     AssertConfidence,
		Expected: fmt.Sprintf("line item %s", a.LineItem),
		Actual:   "line item not found in plan input",
	}
}

func findGroup(preview *ir.PlanPreview, a Assertion) (*ir.ContextGroup, error) {
	for i := range preview.Preview.Groups {
		if preview.Preview.Groups[i].ID == a.Group {
			return &preview.Preview.Groups[i], nil
		}
	}
	return nil, &AssertionError{
		Type:     a.Type,
		Expected: fmt.Sprintf("group %s", a.Group),
		Actual:   "group not found",
		Groups:   groupIDs(preview),
	}
}

func groupIDs(preview *ir.PlanPreview) []string {
	ids := make([]string, len(preview.Preview.Groups))
	for i, g := range preview.Preview.Groups {
		ids[i] = g.ID
	}
	return ids
}
