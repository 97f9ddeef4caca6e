package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskplan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"), false)
	require.NoError(t, err)

	assert.Equal(t, Config{
		DB:      DefaultDB,
		Catalog: DefaultCatalog,
		Log:     LogConfig{Level: DefaultLogLevel},
		Planner: PlannerConfig{ClassifyWorkers: DefaultClassifyWorkers},
	}, cfg)
}

func TestLoad_MissingRequiredFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "absent.yaml"), true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read config")
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
db: /var/lib/taskplan/plan.db
catalog: ./rules
log:
  level: debug
planner:
  classify_workers: 8
`)

	cfg, err := Load(viper.New(), path, true)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/taskplan/plan.db", cfg.DB)
	assert.Equal(t, "./rules", cfg.Catalog)
	assert.Equal(t, 8, cfg.Planner.ClassifyWorkers)

	level, err := cfg.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "db: file.db\nplanner:\n  classify_workers: 2\n")
	t.Setenv("TASKPLAN_DB", "env.db")
	t.Setenv("TASKPLAN_PLANNER_CLASSIFY_WORKERS", "6")

	cfg, err := Load(viper.New(), path, true)
	require.NoError(t, err)
	assert.Equal(t, "env.db", cfg.DB)
	assert.Equal(t, 6, cfg.Planner.ClassifyWorkers)
}

func TestLoad_FlagOverridesEnv(t *testing.T) {
	t.Setenv("TASKPLAN_DB", "env.db")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("db", "", "database path")
	require.NoError(t, flags.Parse([]string{"--db", "flag.db"}))

	v := viper.New()
	require.NoError(t, v.BindPFlag("db", flags.Lookup("db")))

	cfg, err := Load(v, "", false)
	require.NoError(t, err)
	assert.Equal(t, "flag.db", cfg.DB)
}

func TestLoad_SchemaViolations(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "unknown top-level key",
			content: "database: x.db\n",
			want:    "config schema validation failed",
		},
		{
			name:    "bad log level",
			content: "log:\n  level: loud\n",
			want:    "log.level",
		},
		{
			name:    "zero workers",
			content: "planner:\n  classify_workers: 0\n",
			want:    "classify_workers",
		},
		{
			name:    "unknown planner key",
			content: "planner:\n  workers: 3\n",
			want:    "planner",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(viper.New(), writeConfig(t, tt.content), true)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestValidateSettings_StringWorkers(t *testing.T) {
	settings := map[string]any{
		"db":      "a.db",
		"catalog": "catalog",
		"planner": map[string]any{"classify_workers": "12"},
	}
	assert.NoError(t, ValidateSettings(settings))

	settings["planner"] = map[string]any{"classify_workers": "twelve"}
	assert.Error(t, ValidateSettings(settings))
}

func TestSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
		ok    bool
	}{
		{"", slog.LevelInfo, true},
		{"debug", slog.LevelDebug, true},
		{"WARN", slog.LevelWarn, true},
		{"error", slog.LevelError, true},
		{"chatty", slog.LevelInfo, false},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := Config{Log: LogConfig{Level: tt.level}}.SlogLevel()
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
