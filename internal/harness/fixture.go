package harness

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/taskplan/internal/ir"
	"github.com/roach88/taskplan/internal/store"
)

// Fixture is the planning input shared by scenarios and import files: the
// workspace config, one record and its line items.
type Fixture struct {
	// Workspace is the workspace config. It is stored only when it names a
	// version or a name.
	Workspace WorkspaceFixture `yaml:"workspace,omitempty"`

	// Record is the commercial record to plan.
	Record RecordFixture `yaml:"record"`

	// LineItems belong to Record; their record_uri is implied.
	LineItems []LineItemFixture `yaml:"line_items,omitempty"`
}

// WorkspaceFixture describes the workspace config document.
type WorkspaceFixture struct {
	Version string `yaml:"version,omitempty"`
	Name    string `yaml:"name,omitempty"`
}

// RecordFixture describes a commercial record.
type RecordFixture struct {
	URI          string `yaml:"uri"`
	Source       string `yaml:"source,omitempty"`
	Kind         string `yaml:"kind,omitempty"`
	Customer     string `yaml:"customer,omitempty"`
	IssuedAt     string `yaml:"issued_at,omitempty"`
	DueAt        string `yaml:"due_at,omitempty"`
	Currency     string `yaml:"currency,omitempty"`
	SnapshotHash string `yaml:"snapshot_hash"`
}

// LineItemFixture describes one line item.
//
// Configuration is written either as a YAML mapping under config, which is
// stored as canonical JSON, or verbatim under config_json. The raw form
// exists so fixtures can carry malformed payloads.
type LineItemFixture struct {
	URI            string         `yaml:"uri"`
	CategoryKey    string         `yaml:"category_key"`
	DeliverableKey string         `yaml:"deliverable_key"`
	GroupKey       *string        `yaml:"group_key,omitempty"`
	Title          *string        `yaml:"title,omitempty"`
	Quantity       float64        `yaml:"quantity,omitempty"`
	Position       int64          `yaml:"position,omitempty"`
	Config         map[string]any `yaml:"config,omitempty"`
	ConfigJSON     *string        `yaml:"config_json,omitempty"`
}

// LoadFixture reads and parses a fixture YAML file.
// Unknown fields are rejected.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}

	var f Fixture
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := f.validate(); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return &f, nil
}

// validate checks that required fields are present.
func (f *Fixture) validate() error {
	if f.Record.URI == "" {
		return fmt.Errorf("record.uri is required")
	}
	if f.Record.SnapshotHash == "" {
		return fmt.Errorf("record.snapshot_hash is required")
	}

	seen := make(map[string]bool, len(f.LineItems))
	for i, li := range f.LineItems {
		if li.URI == "" {
			return fmt.Errorf("line_items[%d]: uri is required", i)
		}
		if seen[li.URI] {
			return fmt.Errorf("line_items[%d]: duplicate uri %q", i, li.URI)
		}
		seen[li.URI] = true
		if li.Config != nil && li.ConfigJSON != nil {
			return fmt.Errorf("line_items[%d]: config and config_json are mutually exclusive", i)
		}
	}
	return nil
}

// RecordValue converts the record fixture.
func (f *Fixture) RecordValue() ir.Record {
	r := f.Record
	return ir.Record{
		URI:          r.URI,
		Source:       r.Source,
		Kind:         r.Kind,
		Customer:     r.Customer,
		IssuedAt:     r.IssuedAt,
		DueAt:        r.DueAt,
		Currency:     r.Currency,
		SnapshotHash: r.SnapshotHash,
	}
}

// LineItemValues converts the line item fixtures, encoding structured
// config as canonical JSON.
func (f *Fixture) LineItemValues() ([]ir.LineItem, error) {
	items := make([]ir.LineItem, 0, len(f.LineItems))
	for _, li := range f.LineItems {
		config := ""
		switch {
		case li.ConfigJSON != nil:
			config = *li.ConfigJSON
		case li.Config != nil:
			data, err := ir.MarshalCanonical(li.Config)
			if err != nil {
				return nil, fmt.Errorf("line item %s: encode config: %w", li.URI, err)
			}
			config = string(data)
		}

		items = append(items, ir.LineItem{
			URI:            li.URI,
			RecordURI:      f.Record.URI,
			CategoryKey:    li.CategoryKey,
			DeliverableKey: li.DeliverableKey,
			GroupKey:       li.GroupKey,
			Title:          li.Title,
			Quantity:       li.Quantity,
			Position:       li.Position,
			ConfigJSON:     config,
		})
	}
	return items, nil
}

// Apply writes the fixture into st. Writes are upserts, so applying the
// same fixture twice is harmless.
func (f *Fixture) Apply(ctx context.Context, st *store.Store) error {
	if f.Workspace != (WorkspaceFixture{}) {
		cfg := ir.WorkspaceConfig{Version: f.Workspace.Version, Name: f.Workspace.Name}
		if err := st.PutWorkspaceConfig(ctx, cfg); err != nil {
			return err
		}
	}

	if err := st.PutRecord(ctx, f.RecordValue()); err != nil {
		return err
	}

	items, err := f.LineItemValues()
	if err != nil {
		return err
	}
	for _, li := range items {
		if err := st.PutLineItem(ctx, li); err != nil {
			return err
		}
	}
	return nil
}
