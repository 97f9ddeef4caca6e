package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/taskplan/internal/ir"
)

// Snapshot is the reviewable part of a plan preview compared against golden
// files. Hashes are left out; the engine tests pin them.
type Snapshot struct {
	Scenario                  string                `json:"scenario"`
	Groups                    []ir.ContextGroup     `json:"groups"`
	MatchedTemplatesByContext map[string][]ir.Match `json:"matchedTemplatesByContext"`
	PreviewWarnings           []string              `json:"plan_preview_warnings"`
	Warnings                  []string              `json:"warnings"`
	Confidence                map[string]float64    `json:"confidence"`
	Versions                  ir.Versions           `json:"versions"`
	ComputedAt                string                `json:"computed_at"`
}

// NewSnapshot projects a preview onto a Snapshot.
func NewSnapshot(name string, preview *ir.PlanPreview) Snapshot {
	confidence := make(map[string]float64, len(preview.PlanInput.LineItems))
	for _, li := range preview.PlanInput.LineItems {
		confidence[li.URI] = li.Classification.Confidence
	}
	return Snapshot{
		Scenario:                  name,
		Groups:                    preview.Preview.Groups,
		MatchedTemplatesByContext: preview.MatchedTemplatesByContext,
		PreviewWarnings:           preview.Preview.Warnings,
		Warnings:                  preview.Warnings,
		Confidence:                confidence,
		Versions:                  preview.Versions,
		ComputedAt:                preview.ComputedAt,
	}
}

// RunWithGolden executes a scenario and compares its snapshot against a
// golden file stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(context.Background(), scenario)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result.Preview); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares the canonical JSON snapshot of preview against the
// golden file named name.
func AssertGolden(t *testing.T, name string, preview *ir.PlanPreview) error {
	t.Helper()

	data, err := ir.MarshalCanonical(NewSnapshot(name, preview))
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
