package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/taskplan/internal/ir"
)

func TestWorkspaceConfig_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	cfg, err := s.WorkspaceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.WorkspaceConfig{}, cfg, "missing config is the zero value")

	require.NoError(t, s.PutWorkspaceConfig(ctx, ir.WorkspaceConfig{Version: "ws-3", Name: "Studio"}))
	cfg, err = s.WorkspaceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, ir.WorkspaceConfig{Version: "ws-3", Name: "Studio"}, cfg)
}

func TestWorkspaceConfig_WeaklyTyped(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutWorkspaceConfigJSON(ctx, `{"version": 7, "name": "Studio", "theme": "dark"}`))

	cfg, err := s.WorkspaceConfig(ctx)
	require.NoError(t, err)
	assert.Equal(t, "7", cfg.Version)
	assert.Equal(t, "Studio", cfg.Name)
}

func TestWorkspaceConfig_Malformed(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutWorkspaceConfigJSON(ctx, `{"version":`))

	_, err := s.WorkspaceConfig(ctx)
	assert.Error(t, err)
}

func TestRecord_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Record(context.Background(), "qb://estimate/404")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ir.ErrNotFound)
}

func TestRecord_Upsert(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := ir.Record{URI: "rec-1", Source: "qb", Kind: "estimate", Customer: "A", Currency: "USD", SnapshotHash: "s1"}
	require.NoError(t, s.PutRecord(ctx, rec))
	rec.SnapshotHash = "s2"
	require.NoError(t, s.PutRecord(ctx, rec))

	got, err := s.Record(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)
}

func TestLineItems_OrderAndNulls(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seedRecord(t, s, "rec-1",
		ir.LineItem{URI: "li-b", CategoryKey: "furniture", DeliverableKey: "bench", Quantity: 2, Position: 2, ConfigJSON: `{"room":"hall"}`},
		ir.LineItem{URI: "li-a", CategoryKey: "furniture", DeliverableKey: "dining_table", GroupKey: strPtr("kitchen"), Title: strPtr("Table"), Quantity: 1, Position: 2},
		ir.LineItem{URI: "li-c", CategoryKey: "lighting", DeliverableKey: "pendant", Quantity: 0.5, Position: 1},
	)
	seedRecord(t, s, "rec-2", ir.LineItem{URI: "li-x", CategoryKey: "furniture", DeliverableKey: "bench"})

	items, err := s.LineItems(ctx, "rec-1")
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "li-c", items[0].URI)
	assert.Equal(t, "li-a", items[1].URI)
	assert.Equal(t, "li-b", items[2].URI)

	require.NotNil(t, items[1].GroupKey)
	assert.Equal(t, "kitchen", *items[1].GroupKey)
	assert.Equal(t, "Table", *items[1].Title)
	assert.Equal(t, "{}", items[1].ConfigJSON, "empty config is stored as {}")

	assert.Nil(t, items[2].GroupKey)
	assert.Nil(t, items[2].Title)
	assert.Equal(t, `{"room":"hall"}`, items[2].ConfigJSON)
	assert.Equal(t, 0.5, items[0].Quantity)
	assert.Equal(t, "rec-1", items[0].RecordURI)
}

func TestLineItems_EmptyNotNil(t *testing.T) {
	s := createTestStore(t)

	items, err := s.LineItems(context.Background(), "rec-none")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
}

func TestLineItems_RequiresRecord(t *testing.T) {
	s := createTestStore(t)

	err := s.PutLineItem(context.Background(), ir.LineItem{URI: "li-1", RecordURI: "missing", CategoryKey: "c", DeliverableKey: "d"})
	assert.Error(t, err, "foreign key must reject orphan line items")
}

func TestRegistries_IncludeInactive(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutCategory(ctx, ir.RegistryEntry{Key: "textiles", Label: "Textiles", IsActive: false}))
	require.NoError(t, s.PutCategory(ctx, ir.RegistryEntry{Key: "furniture", Label: "Furniture", IsActive: true}))
	require.NoError(t, s.PutDeliverable(ctx, ir.RegistryEntry{Key: "rug", Label: "Rug", CategoryKey: "textiles", IsActive: false}))
	require.NoError(t, s.PutDeliverable(ctx, ir.RegistryEntry{Key: "loose", Label: "Loose", IsActive: true}))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.RegistryEntry{
		{Key: "furniture", Label: "Furniture", IsActive: true},
		{Key: "textiles", Label: "Textiles", IsActive: false},
	}, cats)

	dels, err := s.Deliverables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []ir.RegistryEntry{
		{Key: "loose", Label: "Loose", IsActive: true},
		{Key: "rug", Label: "Rug", CategoryKey: "textiles", IsActive: false},
	}, dels)
}

func TestTemplates_ActiveOnly(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	pos := int64(10)

	active := ir.Template{
		Key: "dt.design", Title: "Design", Kind: "task", Scope: ir.KindDeliverable,
		CategoryKey: "furniture", DeliverableKey: "dining_table",
		DefaultPosition: &pos, DefaultState: "todo", IsActive: true,
	}
	require.NoError(t, s.PutTemplate(ctx, active))
	require.NoError(t, s.PutTemplate(ctx, ir.Template{Key: "old", Title: "Old", Kind: "task", Scope: ir.KindProject, IsActive: false}))
	require.NoError(t, s.PutTemplate(ctx, ir.Template{Key: "a.intake", Title: "Intake", Kind: "milestone", Scope: ir.KindProject, IsActive: true}))

	templates, err := s.Templates(ctx)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, "a.intake", templates[0].Key)
	assert.Equal(t, "todo", templates[0].DefaultState, "blank state defaults to todo")
	assert.Nil(t, templates[0].DefaultPosition)
	assert.Equal(t, active, templates[1])
}

func TestTemplates_RejectsBadScope(t *testing.T) {
	s := createTestStore(t)

	err := s.PutTemplate(context.Background(), ir.Template{Key: "t", Title: "T", Kind: "task", Scope: "room", IsActive: true})
	assert.Error(t, err)
}

func TestRules_ActiveOrderedWithRawMatch(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.PutRule(ctx, ir.Rule{
		ID: "b", TemplateKey: "t1", Priority: 50, IsActive: true,
		Match: ir.MatchCriteria{AttachTo: ir.KindDeliverable, FlagsAny: []string{ir.FlagRequiresDesign}},
	}))
	require.NoError(t, s.PutRule(ctx, ir.Rule{ID: "a", TemplateKey: "t2", Priority: 50, IsActive: true, MatchJSON: `{"attach_to":`}))
	require.NoError(t, s.PutRule(ctx, ir.Rule{ID: "z", TemplateKey: "t3", Priority: 100, IsActive: true, Match: ir.MatchCriteria{AttachTo: ir.KindProject}}))
	require.NoError(t, s.PutRule(ctx, ir.Rule{ID: "off", TemplateKey: "t4", Priority: 999, IsActive: false, Match: ir.MatchCriteria{AttachTo: ir.KindProject}}))

	rules, err := s.Rules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 3)

	assert.Equal(t, "z", rules[0].ID)
	assert.Equal(t, "a", rules[1].ID)
	assert.Equal(t, "b", rules[2].ID)

	assert.Equal(t, `{"attach_to":`, rules[1].MatchJSON, "raw match_json is stored verbatim")
	assert.Equal(t, `{"attach_to":"deliverable","flags_any":["requiresDesign"]}`, rules[2].MatchJSON)
	assert.Equal(t, `{"attach_to":"project"}`, rules[0].MatchJSON)
}

func TestImportCatalog_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cat := &ir.Catalog{
		Categories:   []ir.RegistryEntry{{Key: "furniture", Label: "Furniture", IsActive: true}},
		Deliverables: []ir.RegistryEntry{{Key: "dining_table", Label: "Dining Table", CategoryKey: "furniture", IsActive: true}},
		Templates:    []ir.Template{{Key: "t", Title: "T", Kind: "task", Scope: ir.KindProject, DefaultState: "todo", IsActive: true}},
		Rules:        []ir.Rule{{ID: "r", TemplateKey: "t", Priority: 1, IsActive: true, Match: ir.MatchCriteria{AttachTo: ir.KindProject}}},
	}

	require.NoError(t, s.ImportCatalog(ctx, cat))
	require.NoError(t, s.ImportCatalog(ctx, cat))

	for _, table := range []string{"categories", "deliverables", "templates", "rules"} {
		var count int
		require.NoError(t, s.DB().QueryRow("SELECT COUNT(*) FROM "+table).Scan(&count))
		assert.Equal(t, 1, count, table)
	}
}

func TestImportCatalog_Atomic(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	cat := &ir.Catalog{
		Categories: []ir.RegistryEntry{{Key: "furniture", Label: "Furniture", IsActive: true}},
		Templates:  []ir.Template{{Key: "bad", Title: "Bad", Kind: "task", Scope: "nowhere", IsActive: true}},
	}

	require.Error(t, s.ImportCatalog(ctx, cat))

	cats, err := s.Categories(ctx)
	require.NoError(t, err)
	assert.Empty(t, cats, "failed import must roll back earlier rows")
}
