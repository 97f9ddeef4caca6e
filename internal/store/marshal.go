package store

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/go-viper/mapstructure/v2"

	"github.com/roach88/taskplan/internal/ir"
)

// marshalWorkspaceConfig converts a WorkspaceConfig to canonical JSON TEXT.
func marshalWorkspaceConfig(cfg ir.WorkspaceConfig) (string, error) {
	data, err := ir.MarshalCanonical(cfg)
	if err != nil {
		return "", fmt.Errorf("marshal workspace config: %w", err)
	}
	return string(data), nil
}

// unmarshalWorkspaceConfig decodes the stored workspace config document.
//
// The document is written by hand as often as by import, so decoding is
// weakly typed: a numeric version such as 3 decodes to "3". Unknown keys
// are ignored.
func unmarshalWorkspaceConfig(raw string) (ir.WorkspaceConfig, error) {
	var cfg ir.WorkspaceConfig

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil {
		return cfg, fmt.Errorf("unmarshal workspace config: %w", err)
	}

	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return cfg, fmt.Errorf("unmarshal workspace config: %w", err)
	}
	if err := md.Decode(doc); err != nil {
		return cfg, fmt.Errorf("unmarshal workspace config: %w", err)
	}
	return cfg, nil
}

// marshalMatch converts rule criteria to canonical JSON TEXT for the
// match_json column.
func marshalMatch(m ir.MatchCriteria) (string, error) {
	data, err := ir.MarshalCanonical(m)
	if err != nil {
		return "", fmt.Errorf("marshal match: %w", err)
	}
	return string(data), nil
}

// nullString maps "" to NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// nullStringPtr maps nil to NULL.
func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// nullInt64Ptr maps nil to NULL.
func nullInt64Ptr(n *int64) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *n, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func int64Ptr(ni sql.NullInt64) *int64 {
	if !ni.Valid {
		return nil
	}
	n := ni.Int64
	return &n
}
