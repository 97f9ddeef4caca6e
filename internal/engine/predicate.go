package engine

import (
	"slices"

	"github.com/roach88/taskplan/internal/ir"
)

// predicateKind tags the variant held by a predicate.
type predicateKind int

const (
	predAttachTo predicateKind = iota
	predCategoryKey
	predDeliverableKey
	predFlagsAny
	predGroupKeyPresent
)

// predicate is one compiled clause of a rule's match criteria.
// Only the fields belonging to kind are meaningful.
type predicate struct {
	kind    predicateKind
	value   string
	values  []string
	present bool
}

// compilePredicates turns criteria into the list of clauses that must all
// hold. Unset criteria produce no clause.
func compilePredicates(m ir.MatchCriteria) []predicate {
	preds := []predicate{{kind: predAttachTo, value: string(m.AttachTo)}}
	if m.CategoryKey != "" {
		preds = append(preds, predicate{kind: predCategoryKey, value: m.CategoryKey})
	}
	if m.DeliverableKey != "" {
		preds = append(preds, predicate{kind: predDeliverableKey, value: m.DeliverableKey})
	}
	if len(m.FlagsAny) > 0 {
		preds = append(preds, predicate{kind: predFlagsAny, values: slices.Clone(m.FlagsAny)})
	}
	if m.GroupKeyPresent != nil {
		preds = append(preds, predicate{kind: predGroupKeyPresent, present: *m.GroupKeyPresent})
	}
	return preds
}

// eval reports whether the clause holds for g.
//
// Category and deliverable keys are carried only by deliverable groups, so
// those clauses never hold for project or shared groups. Unknown flag names
// never hold.
func (p predicate) eval(g *ir.ContextGroup) bool {
	switch p.kind {
	case predAttachTo:
		return string(g.Kind) == p.value
	case predCategoryKey:
		return g.Kind == ir.KindDeliverable && g.CategoryKey == p.value
	case predDeliverableKey:
		return g.Kind == ir.KindDeliverable && g.DeliverableKey == p.value
	case predFlagsAny:
		for _, name := range p.values {
			if v, ok := g.Flags.Get(name); ok && v {
				return true
			}
		}
		return false
	case predGroupKeyPresent:
		return (g.GroupKey != nil) == p.present
	default:
		return false
	}
}

// compiledRule is a rule with its criteria ready for evaluation.
type compiledRule struct {
	rule  ir.Rule
	preds []predicate
}

func compileRule(r ir.Rule) compiledRule {
	return compiledRule{rule: r, preds: compilePredicates(r.Match)}
}

// matches returns true only if the rule is active and ALL clauses hold.
func (c compiledRule) matches(g *ir.ContextGroup) bool {
	if !c.rule.IsActive {
		return false
	}
	for _, p := range c.preds {
		if !p.eval(g) {
			return false
		}
	}
	return true
}
