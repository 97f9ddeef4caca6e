package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/taskplan/internal/ir"
)

// renderPreviewText writes a plain summary of a plan preview: the record,
// then every group with its candidates, then all warnings.
func renderPreviewText(w io.Writer, p *ir.PlanPreview) {
	rec := p.PlanInput.Record
	if rec.Customer != "" {
		fmt.Fprintf(w, "Plan preview for %s (%s)\n", rec.URI, rec.Customer)
	} else {
		fmt.Fprintf(w, "Plan preview for %s\n", rec.URI)
	}
	fmt.Fprintf(w, "plan_id:     %s\n", p.Debug.PlanID)
	fmt.Fprintf(w, "computed_at: %s\n", p.ComputedAt)
	fmt.Fprintf(w, "versions:    workspace=%s classifier=%s planner=%s\n",
		orDash(p.Versions.WorkspaceConfigVersion), p.Versions.ClassifierVersion, p.Versions.PlannerVersion)
	fmt.Fprintf(w, "line items:  %d\n", len(p.PlanInput.LineItems))

	for i := range p.Preview.Groups {
		g := &p.Preview.Groups[i]
		fmt.Fprintln(w)
		header := fmt.Sprintf("[%s] %s", g.Kind, g.ID)
		if g.Title != "" {
			header += " - " + g.Title
		}
		fmt.Fprintln(w, header)
		if len(g.LineItemURIs) > 0 {
			fmt.Fprintf(w, "  items: %s\n", strings.Join(g.LineItemURIs, ", "))
		}

		matches := p.MatchedTemplatesByContext[g.ContextKey()]
		if len(matches) == 0 {
			fmt.Fprintln(w, "  no templates")
			continue
		}
		for _, m := range matches {
			title := m.Title
			if title == "" {
				title = m.TemplateKey
			}
			fmt.Fprintf(w, "  - %s  %s (rule %s, priority %d)\n", m.TemplateKey, title, m.RuleID, m.RulePriority)
		}
	}

	fmt.Fprintln(w)
	if len(p.Warnings) == 0 {
		fmt.Fprintln(w, "No warnings")
		return
	}
	fmt.Fprintf(w, "Warnings (%d):\n", len(p.Warnings))
	for _, warning := range p.Warnings {
		fmt.Fprintf(w, "  ! %s\n", warning)
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
