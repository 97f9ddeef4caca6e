package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/taskplan/internal/engine"
	"github.com/roach88/taskplan/internal/ir"
	"github.com/roach88/taskplan/internal/store"
)

// PreviewOptions holds flags for the preview command.
type PreviewOptions struct {
	*RootOptions
	RecordURI string
}

// NewPreviewCommand creates the preview command.
func NewPreviewCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PreviewOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "preview --record-uri <uri>",
		Short: "Build the plan preview for a record",
		Long: `Classify a record's line items, derive its context groups and match
catalog rules against them. Nothing is written.

The preview is printed as canonical JSON unless --format text is given,
in which case groups, candidates and warnings are summarized.

Exit codes:
  0 - Preview built
  2 - Missing record URI, unknown record, or the preview could not be built

Examples:
  taskplan preview --record-uri qb://estimate/1001
  taskplan preview --record-uri qb://estimate/1001 --format text --db plans.db`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.RecordURI, "record-uri", "", "URI of the record to plan")

	return cmd
}

func runPreview(opts *PreviewOptions, cmd *cobra.Command) error {
	format := opts.Format
	if format == "" {
		format = "json"
	}
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	formatter.Format = format
	cfg := opts.effectiveConfig()

	if cfg.DB != ":memory:" {
		if _, err := os.Stat(cfg.DB); err != nil {
			msg := fmt.Sprintf("database not found: %s (run taskplan import first)", cfg.DB)
			_ = formatter.Error(ErrCodeNotFound, msg, nil)
			return WrapExitError(ExitCommandError, msg, err)
		}
	}

	st, err := store.Open(cfg.DB, store.WithLogger(opts.logger()))
	if err != nil {
		_ = formatter.Error("E_DB_OPEN", fmt.Sprintf("failed to open database: %v", err), nil)
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	planner := engine.New(st,
		engine.WithClassifyWorkers(cfg.Planner.ClassifyWorkers),
		engine.WithLogger(opts.logger()),
	)

	preview, err := planner.Preview(cmd.Context(), opts.RecordURI)
	if err != nil {
		return outputPreviewError(formatter, err)
	}

	formatter.VerboseLog("plan_id %s", preview.Debug.PlanID)

	if format == "text" {
		renderPreviewText(formatter.Writer, preview)
		return nil
	}

	data, err := ir.MarshalCanonical(preview)
	if err != nil {
		_ = formatter.Error(string(engine.ErrCodeInternal), engine.MsgBuildFailed, nil)
		return WrapExitError(ExitCommandError, engine.MsgBuildFailed, err)
	}
	fmt.Fprintln(formatter.Writer, string(data))
	return nil
}

// outputPreviewError reports a planner failure with the caller-facing
// message and, in verbose mode, the underlying cause.
func outputPreviewError(formatter *OutputFormatter, err error) error {
	var pe *engine.PlanError
	if !errors.As(err, &pe) {
		_ = formatter.Error(string(engine.ErrCodeInternal), engine.MsgBuildFailed, err.Error())
		return WrapExitError(ExitCommandError, engine.MsgBuildFailed, err)
	}

	var details any
	if pe.Err != nil {
		details = pe.Err.Error()
	}
	_ = formatter.Error(string(pe.Code), pe.Message, details)
	return WrapExitError(ExitCommandError, pe.Message, err)
}
