package compiler

import (
	"os"
	"path/filepath"
	"testing"

	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskplan/internal/ir"
)

func TestCompileCatalogBasic(t *testing.T) {
	ctx := cuecontext.New()
	v := ctx.CompileString(`
		category: furniture: label: "Furniture"
		deliverable: dining_table: {
			label: "Dining Table"
			category_key: "furniture"
		}
		template: "furniture.dining_table.design": {
			title: "Design review"
			kind: "task"
			scope: "deliverable"
			default_position: 10
		}
		rule: "dt.design": {
			template_key: "furniture.dining_table.design"
			priority: 50
			match: {
				attach_to: "deliverable"
				deliverable_key: "dining_table"
				flags_any: ["requiresDesign"]
				group_key_present: false
			}
		}
	`)
	require.NoError(t, v.Err())

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.Equal(t, []ir.RegistryEntry{{Key: "furniture", Label: "Furniture", IsActive: true}}, cat.Categories)
	assert.Equal(t, []ir.RegistryEntry{
		{Key: "dining_table", Label: "Dining Table", IsActive: true, CategoryKey: "furniture"},
	}, cat.Deliverables)

	require.Len(t, cat.Templates, 1)
	tmpl := cat.Templates[0]
	assert.Equal(t, "furniture.dining_table.design", tmpl.Key)
	assert.Equal(t, ir.KindDeliverable, tmpl.Scope)
	assert.Equal(t, DefaultTemplateState, tmpl.DefaultState)
	assert.True(t, tmpl.IsActive)
	require.NotNil(t, tmpl.DefaultPosition)
	assert.Equal(t, int64(10), *tmpl.DefaultPosition)

	require.Len(t, cat.Rules, 1)
	r := cat.Rules[0]
	assert.Equal(t, "dt.design", r.ID)
	assert.Equal(t, int64(50), r.Priority)
	assert.True(t, r.IsActive)
	assert.Equal(t, ir.KindDeliverable, r.Match.AttachTo)
	assert.Equal(t, "dining_table", r.Match.DeliverableKey)
	assert.Empty(t, r.Match.CategoryKey)
	assert.Equal(t, []string{"requiresDesign"}, r.Match.FlagsAny)
	require.NotNil(t, r.Match.GroupKeyPresent)
	assert.False(t, *r.Match.GroupKeyPresent)
}

func TestCompileCatalogEmpty(t *testing.T) {
	v := cuecontext.New().CompileString(`{}`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.Equal(t, []ir.RegistryEntry{}, cat.Categories)
	assert.Equal(t, []ir.Template{}, cat.Templates)
	assert.Equal(t, []ir.Rule{}, cat.Rules)
}

func TestCompileCatalogSortsByKey(t *testing.T) {
	v := cuecontext.New().CompileString(`
		category: {
			zeta: label: "Z"
			alpha: label: "A"
			mid: label: "M"
		}
		rule: {
			"r.b": {template_key: "t", priority: 1, match: attach_to: "project"}
			"r.a": {template_key: "t", priority: 1, match: attach_to: "project"}
		}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.Equal(t, "alpha", cat.Categories[0].Key)
	assert.Equal(t, "mid", cat.Categories[1].Key)
	assert.Equal(t, "zeta", cat.Categories[2].Key)
	assert.Equal(t, "r.a", cat.Rules[0].ID)
}

func TestCompileCatalogInactiveDefaults(t *testing.T) {
	v := cuecontext.New().CompileString(`
		category: old: {label: "Old", is_active: false}
		template: t: {title: "T", kind: "task", scope: "project", is_active: false, default_state: "blocked"}
	`)

	cat, err := CompileCatalog(v)
	require.NoError(t, err)

	assert.False(t, cat.Categories[0].IsActive)
	assert.False(t, cat.Templates[0].IsActive)
	assert.Equal(t, "blocked", cat.Templates[0].DefaultState)
	assert.Nil(t, cat.Templates[0].DefaultPosition)
}

func TestCompileCatalogErrors(t *testing.T) {
	tests := []struct {
		name    string
		src     string
		field   string
		message string
	}{
		{
			name:    "category missing label",
			src:     `category: furniture: {}`,
			field:   "label",
			message: "label is required",
		},
		{
			name:    "template missing scope",
			src:     `template: t: {title: "T", kind: "task"}`,
			field:   "scope",
			message: "scope is required",
		},
		{
			name:    "rule missing priority",
			src:     `rule: r: {template_key: "t", match: attach_to: "project"}`,
			field:   "priority",
			message: "priority is required",
		},
		{
			name:    "rule missing match",
			src:     `rule: r: {template_key: "t", priority: 1}`,
			field:   "match",
			message: "match is required",
		},
		{
			name:    "rule missing attach_to",
			src:     `rule: r: {template_key: "t", priority: 1, match: {}}`,
			field:   "attach_to",
			message: "attach_to is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := cuecontext.New().CompileString(tt.src)
			require.NoError(t, v.Err())

			_, err := CompileCatalog(v)
			require.Error(t, err)

			var compileErr *CompileError
			require.ErrorAs(t, err, &compileErr)
			assert.Equal(t, tt.field, compileErr.Field)
			assert.Equal(t, tt.message, compileErr.Message)
		})
	}
}

func TestCompileCatalogWrongType(t *testing.T) {
	v := cuecontext.New().CompileString(`rule: r: {template_key: "t", priority: "high", match: attach_to: "project"}`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `rule "r"`)
}

func TestCompileCatalogCUEError(t *testing.T) {
	v := cuecontext.New().CompileString(`
		category: furniture: label: "Furniture"
		category: furniture: label: "Casegoods"
	`)

	_, err := CompileCatalog(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting values")
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "registry.cue"), []byte(`
package test

category: furniture: label: "Furniture"
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "templates.cue"), []byte(`
package test

template: t: {title: "T", kind: "task", scope: "project"}
rule: r: {template_key: "t", priority: 1, match: attach_to: "project"}
`), 0644))

	cat, err := LoadCatalog(dir)
	require.NoError(t, err)
	assert.Len(t, cat.Categories, 1)
	assert.Len(t, cat.Templates, 1)
	assert.Len(t, cat.Rules, 1)
}

func TestLoadDirErrors(t *testing.T) {
	t.Run("missing directory", func(t *testing.T) {
		_, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
		require.Error(t, err)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("no cue files", func(t *testing.T) {
		_, err := LoadDir(t.TempDir())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no CUE files found")
	})

	t.Run("syntax error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cue"), []byte("package test\n\ncategory: {"), 0644))
		_, err := LoadDir(dir)
		require.Error(t, err)
	})
}

func TestLoadCatalogValidationErrors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "rules.cue"), []byte(`
package test

rule: r: {template_key: "missing", priority: 1, match: attach_to: "project"}
`), 0644))

	_, err := LoadCatalog(dir)
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, ErrUnknownTemplate, verrs[0].Code)
}

func TestLoadShippedCatalog(t *testing.T) {
	cat, err := LoadCatalog(filepath.Join("..", "..", "catalog"))
	require.NoError(t, err)

	assert.NotEmpty(t, cat.Categories)
	assert.NotEmpty(t, cat.Deliverables)
	assert.NotEmpty(t, cat.Templates)
	assert.NotEmpty(t, cat.Rules)
}
