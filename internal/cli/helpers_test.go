package cli

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/taskplan/internal/config"
)

var (
	catalogDir   = filepath.Join("..", "..", "catalog")
	fixturePath  = filepath.Join("..", "..", "testdata", "fixtures", "hollis.yaml")
	scenariosDir = filepath.Join("..", "..", "testdata", "scenarios")
)

// testOptions returns root options pointing at a fresh database file and
// the shipped catalog.
func testOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	return &RootOptions{
		Format: format,
		Config: config.Config{
			DB:      filepath.Join(t.TempDir(), "test.db"),
			Catalog: catalogDir,
		},
	}
}

// importFixture runs the import command for the shipped fixture.
func importFixture(t *testing.T, opts *RootOptions) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewImportCommand(&RootOptions{Format: "text", Config: opts.Config})
	cmd.SetOut(buf)
	cmd.SetArgs([]string{fixturePath})
	require.NoError(t, cmd.Execute(), buf.String())
}
