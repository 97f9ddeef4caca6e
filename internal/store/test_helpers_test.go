package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taskplan/internal/ir"
)

// createTestStore creates a new file-backed store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

// seedRecord writes a record with the given line items.
func seedRecord(t *testing.T, s *Store, uri string, items ...ir.LineItem) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.PutRecord(ctx, ir.Record{
		URI:          uri,
		Source:       "quickbooks",
		Kind:         "estimate",
		Customer:     "Hollis Residence",
		SnapshotHash: "snap-" + uri,
	}))
	for _, li := range items {
		li.RecordURI = uri
		require.NoError(t, s.PutLineItem(ctx, li))
	}
}
