// Package config loads taskplan settings from a config file, TASKPLAN_
// environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/spf13/viper"
)

// Defaults.
const (
	DefaultConfigFile      = "taskplan.yaml"
	DefaultDB              = "taskplan.db"
	DefaultCatalog         = "catalog"
	DefaultLogLevel        = "info"
	DefaultClassifyWorkers = 4

	// EnvPrefix prefixes environment overrides: TASKPLAN_DB,
	// TASKPLAN_LOG_LEVEL, TASKPLAN_PLANNER_CLASSIFY_WORKERS.
	EnvPrefix = "TASKPLAN"
)

// Config is the root configuration.
type Config struct {
	DB      string        `json:"db"      mapstructure:"db"`
	Catalog string        `json:"catalog" mapstructure:"catalog"`
	Log     LogConfig     `json:"log"     mapstructure:"log"`
	Planner PlannerConfig `json:"planner" mapstructure:"planner"`
}

// LogConfig controls the slog handler installed by the CLI.
type LogConfig struct {
	Level string `json:"level" mapstructure:"level"`
}

// PlannerConfig tunes plan building.
type PlannerConfig struct {
	ClassifyWorkers int `json:"classify_workers" mapstructure:"classify_workers"`
}

// SlogLevel parses Log.Level. An empty level means info.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if c.Log.Level == "" {
		return slog.LevelInfo, nil
	}
	if err := level.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// SetDefaults registers defaults and environment lookup on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("db", DefaultDB)
	v.SetDefault("catalog", DefaultCatalog)
	v.SetDefault("log.level", DefaultLogLevel)
	v.SetDefault("planner.classify_workers", DefaultClassifyWorkers)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load reads the config file named by path (if any), validates the merged
// settings against the embedded schema and decodes them. Only config keys
// may be bound to flags on v; AllSettings is validated as a whole.
//
// A missing file is only an error when required is true; the default
// config file is optional.
func Load(v *viper.Viper, path string, required bool) (Config, error) {
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			if required || !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	if err := ValidateSettings(v.AllSettings()); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
