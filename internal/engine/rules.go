package engine

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/taskplan/internal/ir"
)

// ResolveRules prepares rules for matching.
//
// Rules carrying raw MatchJSON have it decoded into Match. A rule whose
// criteria cannot be decoded, or whose attach_to is not a group kind, is
// skipped with a warning rather than failing the plan. Inactive rules are
// dropped.
//
// The result is ordered by priority descending, then id ascending.
func ResolveRules(rules []ir.Rule) ([]ir.Rule, []string) {
	var warnings []string
	resolved := make([]ir.Rule, 0, len(rules))

	for _, r := range rules {
		if !r.IsActive {
			continue
		}
		if strings.TrimSpace(r.MatchJSON) != "" {
			var m ir.MatchCriteria
			if err := json.Unmarshal([]byte(r.MatchJSON), &m); err != nil {
				warnings = append(warnings, fmt.Sprintf("rule %s: invalid match_json", r.ID))
				continue
			}
			r.Match = m
		}
		if !ir.ValidGroupKinds[r.Match.AttachTo] {
			warnings = append(warnings, fmt.Sprintf("rule %s: invalid attach_to: %q", r.ID, r.Match.AttachTo))
			continue
		}
		resolved = append(resolved, r)
	}

	SortRules(resolved)
	return resolved, warnings
}

// SortRules orders rules by priority descending, then id ascending.
func SortRules(rules []ir.Rule) {
	slices.SortStableFunc(rules, func(a, b ir.Rule) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
}
