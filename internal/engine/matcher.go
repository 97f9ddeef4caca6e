package engine

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/taskplan/internal/ir"
)

// MatchResult is the outcome of matching rules against context groups.
type MatchResult struct {
	// Groups are the input groups, in input order, with TemplateCandidates
	// filled in.
	Groups []ir.ContextGroup

	// MatchedTemplatesByContext maps "<kind>::<id>" to every rule match for
	// that group, in rule evaluation order. Groups with no match have no
	// entry.
	MatchedTemplatesByContext map[string][]ir.Match

	// Warnings are rule problems found while matching. They are also
	// attached to the project group.
	Warnings []string
}

// MatchTemplates selects template candidates for every group.
//
// Rules are resolved first (see ResolveRules) and evaluated in priority
// descending, id ascending order. A rule matches a group only if ALL of its
// set criteria hold. Each group's candidates are the distinct template keys
// of its matching rules, ordered by the highest matching priority
// descending, then key ascending.
//
// Rules that reference a template missing from the active templates are
// skipped with a warning. The input groups are not modified.
func MatchTemplates(groups []ir.ContextGroup, rules []ir.Rule, templates []ir.Template) MatchResult {
	resolved, warnings := ResolveRules(rules)

	active := make(map[string]ir.Template, len(templates))
	for _, t := range templates {
		if t.IsActive {
			active[t.Key] = t
		}
	}

	compiled := make([]compiledRule, 0, len(resolved))
	for _, r := range resolved {
		if _, ok := active[r.TemplateKey]; !ok {
			warnings = append(warnings, fmt.Sprintf("rule %s: unknown template_key: %s", r.ID, r.TemplateKey))
			continue
		}
		compiled = append(compiled, compileRule(r))
	}

	result := MatchResult{
		Groups:                    make([]ir.ContextGroup, len(groups)),
		MatchedTemplatesByContext: make(map[string][]ir.Match),
		Warnings:                  warnings,
	}
	if result.Warnings == nil {
		result.Warnings = []string{}
	}

	for i := range groups {
		g := cloneGroup(groups[i])

		best := make(map[string]int64)
		for _, c := range compiled {
			if !c.matches(&g) {
				continue
			}
			t := active[c.rule.TemplateKey]
			key := g.ContextKey()
			result.MatchedTemplatesByContext[key] = append(result.MatchedTemplatesByContext[key], ir.Match{
				TemplateKey:     t.Key,
				Title:           t.Title,
				Kind:            t.Kind,
				DefaultPosition: t.DefaultPosition,
				RulePriority:    c.rule.Priority,
				RuleID:          c.rule.ID,
			})
			if p, seen := best[t.Key]; !seen || c.rule.Priority > p {
				best[t.Key] = c.rule.Priority
			}
		}
		g.TemplateCandidates = rankCandidates(best)

		if g.Kind == ir.KindProject && len(warnings) > 0 {
			g.Warnings = append(g.Warnings, warnings...)
		}
		result.Groups[i] = g
	}

	return result
}

// rankCandidates orders template keys by priority descending, then key
// ascending.
func rankCandidates(best map[string]int64) []string {
	keys := make([]string, 0, len(best))
	for k := range best {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b string) int {
		if c := cmp.Compare(best[b], best[a]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return keys
}

func cloneGroup(g ir.ContextGroup) ir.ContextGroup {
	g.LineItemURIs = slices.Clone(g.LineItemURIs)
	g.Warnings = slices.Clone(g.Warnings)
	if g.Warnings == nil {
		g.Warnings = []string{}
	}
	if g.LineItemURIs == nil {
		g.LineItemURIs = []string{}
	}
	return g
}
