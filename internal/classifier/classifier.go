package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/roach88/taskplan/internal/ir"
)

// Warning texts and confidence ceilings.
const (
	WarnInvalidConfig = "invalid config_json"

	invalidConfigCeiling = 0.7
	missingEntryCeiling  = 0.5
)

// flagSources is the ordered list of config paths searched for workflow
// flags. The first path that resolves to an object wins; the empty path is
// the config root.
var flagSources = [][]string{
	{"workflow"},
	{"flags"},
	{},
}

// factKeys maps each fact to its candidate config keys, tried in order.
var factKeys = struct {
	woodSpecies, finish, dimensions, room, revisionLimit, deliverables []string
}{
	woodSpecies:   []string{"woodSpecies", "wood_species"},
	finish:        []string{"finish"},
	dimensions:    []string{"dimensions"},
	room:          []string{"room"},
	revisionLimit: []string{"revisionLimit", "revision_limit"},
	deliverables:  []string{"deliverables"},
}

// Classify derives the Classification of one line item.
func Classify(item ir.LineItem, reg *Registry) ir.Classification {
	var warnings []string

	config, ok := parseConfig(item.ConfigJSON)
	if !ok {
		warnings = append(warnings, WarnInvalidConfig)
	}

	category, categoryFound := reg.Category(item.CategoryKey)
	switch {
	case !categoryFound:
		warnings = append(warnings, "unknown category_key: "+item.CategoryKey)
	case !category.IsActive:
		warnings = append(warnings, "inactive category_key: "+item.CategoryKey)
	}

	deliverable, deliverableFound := reg.Deliverable(item.DeliverableKey)
	switch {
	case !deliverableFound:
		warnings = append(warnings, "unknown deliverable_key: "+item.DeliverableKey)
	case !deliverable.IsActive:
		warnings = append(warnings, "inactive deliverable_key: "+item.DeliverableKey)
	}

	// Advisory only: classification proceeds with the line item's own keys.
	if deliverableFound && deliverable.CategoryKey != "" && deliverable.CategoryKey != item.CategoryKey {
		warnings = append(warnings, fmt.Sprintf(
			"category mismatch: deliverable_key %s belongs to category_key %s, not %s",
			item.DeliverableKey, deliverable.CategoryKey, item.CategoryKey))
	}

	if warnings == nil {
		warnings = []string{}
	}

	return ir.Classification{
		CategoryKey:    item.CategoryKey,
		DeliverableKey: item.DeliverableKey,
		Flags:          extractFlags(config),
		Facts:          extractFacts(config),
		Confidence:     confidence(warnings, categoryFound && deliverableFound),
		Warnings:       warnings,
		ParsedConfig:   config,
	}
}

// ClassifyAll classifies items concurrently with at most workers goroutines
// and returns classifications in input order. The only error is context
// cancellation.
func ClassifyAll(ctx context.Context, items []ir.LineItem, reg *Registry, workers int) ([]ir.Classification, error) {
	out := make([]ir.Classification, len(items))
	if workers < 1 {
		workers = 1
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range items {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			out[i] = Classify(items[i], reg)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("classify line items: %w", err)
	}
	return out, nil
}

// Enrich attaches registry labels and the classification to a line item.
func Enrich(item ir.LineItem, reg *Registry, c ir.Classification) ir.EnrichedLineItem {
	enriched := ir.EnrichedLineItem{LineItem: item, Classification: c}
	if e, ok := reg.Category(item.CategoryKey); ok {
		label := e.Label
		enriched.CategoryLabel = &label
	}
	if e, ok := reg.Deliverable(item.DeliverableKey); ok {
		label := e.Label
		enriched.DeliverableLabel = &label
	}
	return enriched
}

// parseConfig decodes raw into a JSON object. Blank input is an empty
// object. Anything that is not an object (arrays, scalars, malformed text)
// yields an empty object and ok=false.
func parseConfig(raw string) (map[string]any, bool) {
	if strings.TrimSpace(raw) == "" {
		return map[string]any{}, true
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return map[string]any{}, false
	}
	// Trailing garbage after the first value is a parse failure too.
	if _, err := dec.Token(); err != io.EOF {
		return map[string]any{}, false
	}

	obj, isObject := v.(map[string]any)
	if !isObject {
		return map[string]any{}, false
	}
	return obj, true
}

func extractFlags(config map[string]any) ir.WorkflowFlags {
	source := config
	for _, path := range flagSources {
		if obj, ok := lookupObject(config, path); ok {
			source = obj
			break
		}
	}

	return ir.WorkflowFlags{
		RequiresDesign:   isTrue(source[ir.FlagRequiresDesign]),
		RequiresApproval: isTrue(source[ir.FlagRequiresApproval]),
		RequiresSamples:  isTrue(source[ir.FlagRequiresSamples]),
		InstallRequired:  isTrue(source[ir.FlagInstallRequired]),
		DeliveryRequired: isTrue(source[ir.FlagDeliveryRequired]),
	}
}

func extractFacts(config map[string]any) ir.WorkflowFacts {
	facts := ir.WorkflowFacts{
		WoodSpecies:   firstValue(config, factKeys.woodSpecies),
		Finish:        firstValue(config, factKeys.finish),
		Dimensions:    firstValue(config, factKeys.dimensions),
		Room:          firstValue(config, factKeys.room),
		RevisionLimit: firstValue(config, factKeys.revisionLimit),
	}
	if list, ok := firstValue(config, factKeys.deliverables).([]any); ok {
		facts.Deliverables = list
	}
	return facts
}

// confidence applies every ceiling that holds; the result never exceeds any
// of them.
func confidence(warnings []string, entriesFound bool) float64 {
	c := 1.0
	for _, w := range warnings {
		if strings.HasPrefix(w, WarnInvalidConfig) {
			c = math.Min(c, invalidConfigCeiling)
			break
		}
	}
	if !entriesFound {
		c = math.Min(c, missingEntryCeiling)
	}
	return c
}

// lookupObject follows path from root and returns the object found there.
func lookupObject(root map[string]any, path []string) (map[string]any, bool) {
	cur := root
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// firstValue returns the first non-null value among keys.
func firstValue(config map[string]any, keys []string) any {
	for _, k := range keys {
		if v, ok := config[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}
