package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/taskplan/internal/ir"
)

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PutWorkspaceConfig replaces the workspace config document.
func (s *Store) PutWorkspaceConfig(ctx context.Context, cfg ir.WorkspaceConfig) error {
	doc, err := marshalWorkspaceConfig(cfg)
	if err != nil {
		return fmt.Errorf("put workspace config: %w", err)
	}
	return s.PutWorkspaceConfigJSON(ctx, doc)
}

// PutWorkspaceConfigJSON stores a raw workspace config document as given.
func (s *Store) PutWorkspaceConfigJSON(ctx context.Context, doc string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workspace_config (id, config_json)
		VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET config_json = excluded.config_json
	`, doc)
	if err != nil {
		return fmt.Errorf("put workspace config: %w", err)
	}
	return nil
}

// PutCategory upserts a category registry entry.
func (s *Store) PutCategory(ctx context.Context, e ir.RegistryEntry) error {
	return putCategory(ctx, s.db, e)
}

// PutDeliverable upserts a deliverable registry entry.
func (s *Store) PutDeliverable(ctx context.Context, e ir.RegistryEntry) error {
	return putDeliverable(ctx, s.db, e)
}

// PutTemplate upserts a template.
func (s *Store) PutTemplate(ctx context.Context, t ir.Template) error {
	return putTemplate(ctx, s.db, t)
}

// PutRule upserts a rule. When the rule carries raw MatchJSON it is stored
// verbatim; otherwise Match is stored as canonical JSON.
func (s *Store) PutRule(ctx context.Context, r ir.Rule) error {
	return putRule(ctx, s.db, r)
}

// PutRecord upserts a commercial record.
func (s *Store) PutRecord(ctx context.Context, r ir.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records
		(uri, source, kind, customer, issued_at, due_at, currency, snapshot_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(uri) DO UPDATE SET
			source = excluded.source,
			kind = excluded.kind,
			customer = excluded.customer,
			issued_at = excluded.issued_at,
			due_at = excluded.due_at,
			currency = excluded.currency,
			snapshot_hash = excluded.snapshot_hash
	`,
		r.URI,
		r.Source,
		r.Kind,
		r.Customer,
		r.IssuedAt,
		r.DueAt,
		r.Currency,
		r.SnapshotHash,
	)
	if err != nil {
		return fmt.Errorf("put record %s: %w", r.URI, err)
	}
	return nil
}

// PutLineItem upserts a line item.
//
// Note: The record referenced by RecordURI must exist (foreign key constraint).
func (s *Store) PutLineItem(ctx context.Context, li ir.LineItem) error {
	config := li.ConfigJSON
	if config == "" {
		config = "{}"
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO line_items
		(record_uri, uri, category_key, deliverable_key, group_key, title, quantity, position, config_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(record_uri, uri) DO UPDATE SET
			category_key = excluded.category_key,
			deliverable_key = excluded.deliverable_key,
			group_key = excluded.group_key,
			title = excluded.title,
			quantity = excluded.quantity,
			position = excluded.position,
			config_json = excluded.config_json
	`,
		li.RecordURI,
		li.URI,
		li.CategoryKey,
		li.DeliverableKey,
		nullStringPtr(li.GroupKey),
		nullStringPtr(li.Title),
		li.Quantity,
		li.Position,
		config,
	)
	if err != nil {
		return fmt.Errorf("put line item %s: %w", li.URI, err)
	}
	return nil
}

// ImportCatalog upserts every registry entry, template and rule of cat in
// a single transaction. Either all rows are written or none are.
func (s *Store) ImportCatalog(ctx context.Context, cat *ir.Catalog) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cat.Categories {
			if err := putCategory(ctx, tx, c); err != nil {
				return err
			}
		}
		for _, d := range cat.Deliverables {
			if err := putDeliverable(ctx, tx, d); err != nil {
				return err
			}
		}
		for _, t := range cat.Templates {
			if err := putTemplate(ctx, tx, t); err != nil {
				return err
			}
		}
		for _, r := range cat.Rules {
			if err := putRule(ctx, tx, r); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("import catalog: %w", err)
	}
	return nil
}

func putCategory(ctx context.Context, ex execer, e ir.RegistryEntry) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO categories (key, label, is_active)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			is_active = excluded.is_active
	`, e.Key, e.Label, e.IsActive)
	if err != nil {
		return fmt.Errorf("put category %s: %w", e.Key, err)
	}
	return nil
}

func putDeliverable(ctx context.Context, ex execer, e ir.RegistryEntry) error {
	_, err := ex.ExecContext(ctx, `
		INSERT INTO deliverables (key, label, category_key, is_active)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			label = excluded.label,
			category_key = excluded.category_key,
			is_active = excluded.is_active
	`, e.Key, e.Label, nullString(e.CategoryKey), e.IsActive)
	if err != nil {
		return fmt.Errorf("put deliverable %s: %w", e.Key, err)
	}
	return nil
}

func putTemplate(ctx context.Context, ex execer, t ir.Template) error {
	state := t.DefaultState
	if state == "" {
		state = "todo"
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO templates
		(key, title, kind, scope, category_key, deliverable_key, default_position, default_state, is_active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			title = excluded.title,
			kind = excluded.kind,
			scope = excluded.scope,
			category_key = excluded.category_key,
			deliverable_key = excluded.deliverable_key,
			default_position = excluded.default_position,
			default_state = excluded.default_state,
			is_active = excluded.is_active
	`,
		t.Key,
		t.Title,
		t.Kind,
		string(t.Scope),
		nullString(t.CategoryKey),
		nullString(t.DeliverableKey),
		nullInt64Ptr(t.DefaultPosition),
		state,
		t.IsActive,
	)
	if err != nil {
		return fmt.Errorf("put template %s: %w", t.Key, err)
	}
	return nil
}

func putRule(ctx context.Context, ex execer, r ir.Rule) error {
	matchJSON := r.MatchJSON
	if matchJSON == "" {
		var err error
		if matchJSON, err = marshalMatch(r.Match); err != nil {
			return fmt.Errorf("put rule %s: %w", r.ID, err)
		}
	}
	_, err := ex.ExecContext(ctx, `
		INSERT INTO rules (id, template_key, priority, is_active, match_json)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			template_key = excluded.template_key,
			priority = excluded.priority,
			is_active = excluded.is_active,
			match_json = excluded.match_json
	`, r.ID, r.TemplateKey, r.Priority, r.IsActive, matchJSON)
	if err != nil {
		return fmt.Errorf("put rule %s: %w", r.ID, err)
	}
	return nil
}
