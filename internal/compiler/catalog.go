package compiler

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"

	"github.com/roach88/taskplan/internal/ir"
)

// DefaultTemplateState is the state materialized tasks start in when a
// template does not name one.
const DefaultTemplateState = "todo"

// CompileCatalog parses a CUE value into a Catalog.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value is the root of a catalog package:
//
//	category: furniture: {label: "Furniture"}
//	deliverable: dining_table: {label: "Dining Table", category_key: "furniture"}
//	template: "furniture.dining_table.base": {title: "Build table", kind: "task", scope: "deliverable"}
//	rule: "furniture.dining_table.base": {
//		template_key: "furniture.dining_table.base"
//		priority: 60
//		match: {attach_to: "deliverable", deliverable_key: "dining_table"}
//	}
//
// Every section is optional. Entries are returned sorted by key (rules by
// id) so the result does not depend on declaration order.
func CompileCatalog(v cue.Value) (*ir.Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &ir.Catalog{
		Categories:   []ir.RegistryEntry{},
		Deliverables: []ir.RegistryEntry{},
		Templates:    []ir.Template{},
		Rules:        []ir.Rule{},
	}

	var err error
	if cat.Categories, err = compileSection(v, "category", compileCategory); err != nil {
		return nil, err
	}
	if cat.Deliverables, err = compileSection(v, "deliverable", compileDeliverable); err != nil {
		return nil, err
	}
	if cat.Templates, err = compileSection(v, "template", compileTemplate); err != nil {
		return nil, err
	}
	if cat.Rules, err = compileSection(v, "rule", compileRule); err != nil {
		return nil, err
	}

	slices.SortFunc(cat.Categories, func(a, b ir.RegistryEntry) int { return cmp.Compare(a.Key, b.Key) })
	slices.SortFunc(cat.Deliverables, func(a, b ir.RegistryEntry) int { return cmp.Compare(a.Key, b.Key) })
	slices.SortFunc(cat.Templates, func(a, b ir.Template) int { return cmp.Compare(a.Key, b.Key) })
	slices.SortFunc(cat.Rules, func(a, b ir.Rule) int { return cmp.Compare(a.ID, b.ID) })

	return cat, nil
}

// compileSection compiles every field of the named top-level struct.
func compileSection[T any](root cue.Value, section string, compile func(key string, v cue.Value) (T, error)) ([]T, error) {
	out := []T{}
	sv := root.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return out, nil
	}

	iter, err := sv.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		key := fieldLabel(iter)
		item, err := compile(key, iter.Value())
		if err != nil {
			return nil, fmt.Errorf("%s %q: %w", section, key, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func compileCategory(key string, v cue.Value) (ir.RegistryEntry, error) {
	entry := ir.RegistryEntry{Key: key}
	var err error
	if entry.Label, err = requiredString(v, "label"); err != nil {
		return entry, err
	}
	if entry.IsActive, err = optionalBool(v, "is_active", true); err != nil {
		return entry, err
	}
	return entry, nil
}

func compileDeliverable(key string, v cue.Value) (ir.RegistryEntry, error) {
	entry, err := compileCategory(key, v)
	if err != nil {
		return entry, err
	}
	if entry.CategoryKey, err = optionalString(v, "category_key"); err != nil {
		return entry, err
	}
	return entry, nil
}

func compileTemplate(key string, v cue.Value) (ir.Template, error) {
	t := ir.Template{Key: key}
	var err error
	if t.Title, err = requiredString(v, "title"); err != nil {
		return t, err
	}
	if t.Kind, err = requiredString(v, "kind"); err != nil {
		return t, err
	}
	scope, err := requiredString(v, "scope")
	if err != nil {
		return t, err
	}
	t.Scope = ir.GroupKind(scope)
	if t.CategoryKey, err = optionalString(v, "category_key"); err != nil {
		return t, err
	}
	if t.DeliverableKey, err = optionalString(v, "deliverable_key"); err != nil {
		return t, err
	}
	if t.DefaultPosition, err = optionalInt(v, "default_position"); err != nil {
		return t, err
	}
	if t.DefaultState, err = optionalString(v, "default_state"); err != nil {
		return t, err
	}
	if t.DefaultState == "" {
		t.DefaultState = DefaultTemplateState
	}
	if t.IsActive, err = optionalBool(v, "is_active", true); err != nil {
		return t, err
	}
	return t, nil
}

func compileRule(id string, v cue.Value) (ir.Rule, error) {
	r := ir.Rule{ID: id}
	var err error
	if r.TemplateKey, err = requiredString(v, "template_key"); err != nil {
		return r, err
	}

	prio := v.LookupPath(cue.ParsePath("priority"))
	if !prio.Exists() {
		return r, &CompileError{Field: "priority", Message: "priority is required", Pos: v.Pos()}
	}
	if r.Priority, err = prio.Int64(); err != nil {
		return r, formatCUEError(err)
	}
	if r.IsActive, err = optionalBool(v, "is_active", true); err != nil {
		return r, err
	}

	mv := v.LookupPath(cue.ParsePath("match"))
	if !mv.Exists() {
		return r, &CompileError{Field: "match", Message: "match is required", Pos: v.Pos()}
	}
	attachTo, err := requiredString(mv, "attach_to")
	if err != nil {
		return r, err
	}
	r.Match.AttachTo = ir.GroupKind(attachTo)
	if r.Match.CategoryKey, err = optionalString(mv, "category_key"); err != nil {
		return r, err
	}
	if r.Match.DeliverableKey, err = optionalString(mv, "deliverable_key"); err != nil {
		return r, err
	}
	if r.Match.FlagsAny, err = optionalStringList(mv, "flags_any"); err != nil {
		return r, err
	}
	if r.Match.GroupKeyPresent, err = optionalBoolPtr(mv, "group_key_present"); err != nil {
		return r, err
	}
	return r, nil
}

// LoadDir loads every CUE file in dir as one instance and builds it.
func LoadDir(dir string) (cue.Value, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("catalog directory: %w", err)
	}
	if !info.IsDir() {
		return cue.Value{}, fmt.Errorf("not a directory: %s", dir)
	}

	files, err := FindCUEFiles(dir)
	if err != nil {
		return cue.Value{}, fmt.Errorf("scan %s: %w", dir, err)
	}
	if len(files) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE files found in %s", dir)
	}

	ctx := cuecontext.New()
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return cue.Value{}, fmt.Errorf("no CUE instances loaded from %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return cue.Value{}, fmt.Errorf("loading CUE files: %w", inst.Err)
	}

	value := ctx.BuildInstance(inst)
	if err := value.Err(); err != nil {
		return cue.Value{}, formatCUEError(err)
	}
	return value, nil
}

// LoadCatalog loads, compiles and validates the catalog in dir.
// Validation problems are returned as a ValidationErrors error.
func LoadCatalog(dir string) (*ir.Catalog, error) {
	v, err := LoadDir(dir)
	if err != nil {
		return nil, err
	}
	cat, err := CompileCatalog(v)
	if err != nil {
		return nil, err
	}
	if verrs := Validate(cat); len(verrs) > 0 {
		return nil, ValidationErrors(verrs)
	}
	return cat, nil
}

// FindCUEFiles lists the .cue files directly inside dir, sorted.
func FindCUEFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".cue") {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}
