package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/taskplan/internal/compiler"
	"github.com/roach88/taskplan/internal/harness"
	"github.com/roach88/taskplan/internal/store"
)

// ImportResult summarizes what an import wrote.
type ImportResult struct {
	DB           string `json:"db"`
	Catalog      string `json:"catalog"`
	Categories   int    `json:"categories"`
	Deliverables int    `json:"deliverables"`
	Templates    int    `json:"templates"`
	Rules        int    `json:"rules"`
	RecordURI    string `json:"record_uri,omitempty"`
	LineItems    int    `json:"line_items"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import [fixture.yaml]",
		Short: "Load the catalog and a record fixture into the database",
		Long: `Compile and validate the configured CUE catalog and upsert it into the
database. When a fixture file is given, its workspace config, record and
line items are written as well.

Imports are idempotent: running the same import twice leaves the same rows.

Examples:
  taskplan import
  taskplan import testdata/fixtures/hollis.yaml --db plans.db --catalog ./catalog`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixturePath := ""
			if len(args) == 1 {
				fixturePath = args[0]
			}
			return runImport(rootOpts, fixturePath, cmd)
		},
	}

	return cmd
}

func runImport(opts *RootOptions, fixturePath string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	cfg := opts.effectiveConfig()
	ctx := cmd.Context()
	log := opts.logger()

	cat, err := loadValidCatalog(cfg.Catalog)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load catalog", err)
		}
		var verrs compiler.ValidationErrors
		if errors.As(err, &verrs) {
			_ = formatter.Error(verrs[0].Code, verrs.Error(), verrs)
			return WrapExitError(ExitFailure, "catalog is invalid", err)
		}
		_ = formatter.Error(ErrCodeGeneric, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	var fixture *harness.Fixture
	if fixturePath != "" {
		if fixture, err = harness.LoadFixture(fixturePath); err != nil {
			_ = formatter.Error(ErrCodeLoadFailed, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to load fixture", err)
		}
	}

	st, err := store.Open(cfg.DB, store.WithLogger(opts.logger()))
	if err != nil {
		_ = formatter.Error("E_DB_OPEN", fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if err := st.ImportCatalog(ctx, cat); err != nil {
		_ = formatter.Error("E_IMPORT", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to import catalog", err)
	}
	log.Info("catalog imported", "db", cfg.DB, "catalog", cfg.Catalog,
		"templates", len(cat.Templates), "rules", len(cat.Rules))

	result := ImportResult{
		DB:           cfg.DB,
		Catalog:      cfg.Catalog,
		Categories:   len(cat.Categories),
		Deliverables: len(cat.Deliverables),
		Templates:    len(cat.Templates),
		Rules:        len(cat.Rules),
	}

	if fixture != nil {
		if err := fixture.Apply(ctx, st); err != nil {
			_ = formatter.Error("E_IMPORT", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to import fixture", err)
		}
		result.RecordURI = fixture.Record.URI
		result.LineItems = len(fixture.LineItems)
		log.Info("fixture imported", "record_uri", fixture.Record.URI, "line_items", len(fixture.LineItems))
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Imported catalog %s into %s (%d templates, %d rules)\n",
		result.Catalog, result.DB, result.Templates, result.Rules)
	if result.RecordURI != "" {
		fmt.Fprintf(w, "✓ Imported record %s (%d line items)\n", result.RecordURI, result.LineItems)
	}
	return nil
}
