package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/taskplan/internal/ir"
)

// WorkspaceConfig returns the stored workspace config. A store without one
// returns the zero WorkspaceConfig.
func (s *Store) WorkspaceConfig(ctx context.Context) (ir.WorkspaceConfig, error) {
	var doc string
	err := s.db.QueryRowContext(ctx, `SELECT config_json FROM workspace_config WHERE id = 1`).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.WorkspaceConfig{}, nil
	}
	if err != nil {
		return ir.WorkspaceConfig{}, fmt.Errorf("query workspace config: %w", err)
	}
	return unmarshalWorkspaceConfig(doc)
}

// Categories returns every category, active or not, ordered by key.
func (s *Store) Categories(ctx context.Context) ([]ir.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, label, is_active
		FROM categories
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	entries := []ir.RegistryEntry{}
	for rows.Next() {
		var e ir.RegistryEntry
		if err := rows.Scan(&e.Key, &e.Label, &e.IsActive); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return entries, nil
}

// Deliverables returns every deliverable, active or not, ordered by key.
func (s *Store) Deliverables(ctx context.Context) ([]ir.RegistryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, label, category_key, is_active
		FROM deliverables
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query deliverables: %w", err)
	}
	defer rows.Close()

	entries := []ir.RegistryEntry{}
	for rows.Next() {
		var e ir.RegistryEntry
		var categoryKey sql.NullString
		if err := rows.Scan(&e.Key, &e.Label, &categoryKey, &e.IsActive); err != nil {
			return nil, fmt.Errorf("scan deliverable: %w", err)
		}
		e.CategoryKey = categoryKey.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliverables: %w", err)
	}
	return entries, nil
}

// Record retrieves a single record by URI.
// Returns an error wrapping ErrNotFound if it does not exist.
func (s *Store) Record(ctx context.Context, uri string) (ir.Record, error) {
	var r ir.Record
	err := s.db.QueryRowContext(ctx, `
		SELECT uri, source, kind, customer, issued_at, due_at, currency, snapshot_hash
		FROM records
		WHERE uri = ?
	`, uri).Scan(
		&r.URI,
		&r.Source,
		&r.Kind,
		&r.Customer,
		&r.IssuedAt,
		&r.DueAt,
		&r.Currency,
		&r.SnapshotHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Record{}, fmt.Errorf("record %s: %w", uri, ErrNotFound)
	}
	if err != nil {
		return ir.Record{}, fmt.Errorf("query record %s: %w", uri, err)
	}
	return r, nil
}

// LineItems returns the line items of a record ordered by position, then uri.
//
// Returns an empty slice (not nil) if the record has no line items.
func (s *Store) LineItems(ctx context.Context, recordURI string) ([]ir.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT uri, record_uri, category_key, deliverable_key, group_key, title, quantity, position, config_json
		FROM line_items
		WHERE record_uri = ?
		ORDER BY position ASC, uri COLLATE BINARY ASC
	`, recordURI)
	if err != nil {
		return nil, fmt.Errorf("query line items: %w", err)
	}
	defer rows.Close()

	items := []ir.LineItem{}
	for rows.Next() {
		var li ir.LineItem
		var groupKey, title sql.NullString
		if err := rows.Scan(
			&li.URI,
			&li.RecordURI,
			&li.CategoryKey,
			&li.DeliverableKey,
			&groupKey,
			&title,
			&li.Quantity,
			&li.Position,
			&li.ConfigJSON,
		); err != nil {
			return nil, fmt.Errorf("scan line item: %w", err)
		}
		li.GroupKey = stringPtr(groupKey)
		li.Title = stringPtr(title)
		items = append(items, li)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate line items: %w", err)
	}
	return items, nil
}

// Templates returns active templates ordered by key.
func (s *Store) Templates(ctx context.Context) ([]ir.Template, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, title, kind, scope, category_key, deliverable_key, default_position, default_state, is_active
		FROM templates
		WHERE is_active = 1
		ORDER BY key COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query templates: %w", err)
	}
	defer rows.Close()

	templates := []ir.Template{}
	for rows.Next() {
		var t ir.Template
		var scope string
		var categoryKey, deliverableKey sql.NullString
		var position sql.NullInt64
		if err := rows.Scan(
			&t.Key,
			&t.Title,
			&t.Kind,
			&scope,
			&categoryKey,
			&deliverableKey,
			&position,
			&t.DefaultState,
			&t.IsActive,
		); err != nil {
			return nil, fmt.Errorf("scan template: %w", err)
		}
		t.Scope = ir.GroupKind(scope)
		t.CategoryKey = categoryKey.String
		t.DeliverableKey = deliverableKey.String
		t.DefaultPosition = int64Ptr(position)
		templates = append(templates, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate templates: %w", err)
	}
	return templates, nil
}

// Rules returns active rules ordered by priority descending, then id.
//
// Criteria are returned unparsed in MatchJSON; the planner decodes them so
// that one malformed row only skips that rule.
func (s *Store) Rules(ctx context.Context) ([]ir.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, template_key, priority, is_active, match_json
		FROM rules
		WHERE is_active = 1
		ORDER BY priority DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	rules := []ir.Rule{}
	for rows.Next() {
		var r ir.Rule
		if err := rows.Scan(&r.ID, &r.TemplateKey, &r.Priority, &r.IsActive, &r.MatchJSON); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		rules = append(rules, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}
	return rules, nil
}
