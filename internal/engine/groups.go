package engine

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/taskplan/internal/ir"
)

// WarnNoLineItems is attached to the project group of an empty record.
const WarnNoLineItems = "no line items"

// ProjectGroupID returns the id of a record's project group.
func ProjectGroupID(recordURI string) string {
	return "project::" + recordURI
}

// SharedGroupID returns the id of the shared group for groupKey.
func SharedGroupID(recordURI, groupKey string) string {
	return "shared::" + recordURI + "::" + groupKey
}

// DeliverableGroupID returns the id of a line item's deliverable group.
func DeliverableGroupID(lineItemURI string) string {
	return "deliverable::" + lineItemURI
}

// groupSet accumulates group membership. Membership is a set, so adding
// line items in any order, or merging partial sets, yields the same result
// once finalized.
type groupSet struct {
	groups  map[string]*ir.ContextGroup
	members map[string]map[string]struct{}
}

func newGroupSet() *groupSet {
	return &groupSet{
		groups:  make(map[string]*ir.ContextGroup),
		members: make(map[string]map[string]struct{}),
	}
}

// ensure returns the group with g.ID, creating it from g when absent.
func (s *groupSet) ensure(g ir.ContextGroup) *ir.ContextGroup {
	if existing, ok := s.groups[g.ID]; ok {
		return existing
	}
	created := g
	s.groups[g.ID] = &created
	s.members[g.ID] = make(map[string]struct{})
	return &created
}

func (s *groupSet) add(groupID, lineItemURI string) {
	s.members[groupID][lineItemURI] = struct{}{}
}

// finalize returns groups ordered project, deliverable, shared and by id
// within each kind, with sorted, deduplicated membership.
func (s *groupSet) finalize() []ir.ContextGroup {
	out := make([]ir.ContextGroup, 0, len(s.groups))
	for id, g := range s.groups {
		uris := make([]string, 0, len(s.members[id]))
		for uri := range s.members[id] {
			uris = append(uris, uri)
		}
		slices.Sort(uris)

		group := *g
		group.LineItemURIs = uris
		group.TemplateCandidates = []string{}
		if group.Warnings == nil {
			group.Warnings = []string{}
		}
		out = append(out, group)
	}

	slices.SortFunc(out, func(a, b ir.ContextGroup) int {
		if c := kindOrder(a.Kind) - kindOrder(b.Kind); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func kindOrder(k ir.GroupKind) int {
	switch k {
	case ir.KindProject:
		return 0
	case ir.KindDeliverable:
		return 1
	default:
		return 2
	}
}

// DeriveGroups partitions a record's classified line items into one project
// group, one deliverable group per line item and one shared group per
// distinct group key.
//
// The result does not depend on the order of items. Template candidates are
// left empty for MatchTemplates to fill.
func DeriveGroups(record ir.Record, items []ir.EnrichedLineItem) []ir.ContextGroup {
	set := newGroupSet()

	project := set.ensure(ir.ContextGroup{
		ID:    ProjectGroupID(record.URI),
		Kind:  ir.KindProject,
		Title: record.Customer,
	})
	if len(items) == 0 {
		project.Warnings = append(project.Warnings, WarnNoLineItems)
	}

	for _, item := range items {
		flags := item.Classification.Flags

		deliverable := set.ensure(ir.ContextGroup{
			ID:             DeliverableGroupID(item.URI),
			Kind:           ir.KindDeliverable,
			Title:          deliverableTitle(item),
			CategoryKey:    item.Classification.CategoryKey,
			DeliverableKey: item.Classification.DeliverableKey,
		})
		deliverable.Flags = deliverable.Flags.Union(flags)
		set.add(deliverable.ID, item.URI)

		if item.GroupKey != nil {
			key := *item.GroupKey
			shared := set.ensure(ir.ContextGroup{
				ID:       SharedGroupID(record.URI, key),
				Kind:     ir.KindShared,
				Title:    sharedTitle(key),
				GroupKey: &key,
			})
			shared.Flags = shared.Flags.Union(flags)
			set.add(shared.ID, item.URI)
		}

		project.Flags = project.Flags.Union(flags)
		set.add(project.ID, item.URI)
	}

	return set.finalize()
}

func deliverableTitle(item ir.EnrichedLineItem) string {
	if item.Title != nil && *item.Title != "" {
		return *item.Title
	}
	if item.DeliverableLabel != nil {
		return *item.DeliverableLabel
	}
	return item.DeliverableKey
}

// sharedTitle renders a group key such as "main_kitchen" as "Main Kitchen".
func sharedTitle(groupKey string) string {
	words := strings.NewReplacer("_", " ", "-", " ").Replace(groupKey)
	return cases.Title(language.English).String(words)
}
