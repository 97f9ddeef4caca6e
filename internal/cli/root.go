package cli

import (
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/roach88/taskplan/internal/config"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text" | "" (command default)
	ConfigFile string

	// Config is loaded before any subcommand runs.
	Config config.Config

	// Logger is built from Config and Verbose. Nil means discard.
	Logger *slog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the taskplan CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "taskplan",
		Short: "taskplan - deterministic task plan previews",
		Long:  "Classifies a commercial record's line items, groups them into contexts and matches catalog rules to propose task templates.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}

			// The default config file is optional; an explicit one is not.
			cfg, err := config.Load(v, opts.ConfigFile, cmd.Flags().Changed("config"))
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to load config", err)
			}
			opts.Config = cfg

			level, _ := cfg.SlogLevel()
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.Logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			slog.SetDefault(opts.Logger)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "", "output format (json|text); preview defaults to json, other commands to text")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", config.DefaultConfigFile, "config file path")
	cmd.PersistentFlags().String("db", config.DefaultDB, "SQLite database path")
	cmd.PersistentFlags().String("catalog", config.DefaultCatalog, "CUE catalog directory")

	// Flag values override TASKPLAN_ environment variables and the config file.
	_ = v.BindPFlag("db", cmd.PersistentFlags().Lookup("db"))
	_ = v.BindPFlag("catalog", cmd.PersistentFlags().Lookup("catalog"))

	// Add subcommands
	cmd.AddCommand(NewPreviewCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewTestCommand(opts))

	return cmd
}

// logger returns the configured logger, or a discarding one when the
// command runs without the root (as in tests).
func (o *RootOptions) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// effectiveConfig returns Config with defaults filled in for fields that
// were never loaded.
func (o *RootOptions) effectiveConfig() config.Config {
	cfg := o.Config
	if cfg.DB == "" {
		cfg.DB = config.DefaultDB
	}
	if cfg.Catalog == "" {
		cfg.Catalog = config.DefaultCatalog
	}
	if cfg.Planner.ClassifyWorkers < 1 {
		cfg.Planner.ClassifyWorkers = config.DefaultClassifyWorkers
	}
	return cfg
}

// isValidFormat checks if the format is one of the allowed values.
// Empty selects the command's default.
func isValidFormat(format string) bool {
	return format == "" || slices.Contains(ValidFormats, format)
}
