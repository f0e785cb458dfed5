package config

import (
	"time"

	"github.com/avdops/azmon-reconciler/internal/core/domain"
	"github.com/avdops/azmon-reconciler/internal/log"
)

type Config struct {
	Settings    SettingsConfig    `mapstructure:"settings"`
	Target      TargetConfig      `mapstructure:"target" validate:"required"`
	Definitions DefinitionsConfig `mapstructure:"definitions"`
	Reporting   ReportingConfig   `mapstructure:"reporting"`
}

type SettingsConfig struct {
	LogLevel     log.Level     `mapstructure:"log_level"`
	LogFormat    log.Format    `mapstructure:"log_format"`
	Concurrency  int           `mapstructure:"concurrency" validate:"gte=0,lte=64"`
	Policy       domain.Policy `mapstructure:"policy"`
	DryRun       bool          `mapstructure:"dry_run"`
	BulkTimeout  time.Duration `mapstructure:"bulk_timeout"`
	ApplyTimeout time.Duration `mapstructure:"apply_timeout"`
	RateLimitRPS int           `mapstructure:"rate_limit_rps"`
}

type TargetConfig struct {
	Subscription  string `mapstructure:"subscription" validate:"required"`
	ResourceGroup string `mapstructure:"resource_group" validate:"required"`
	Workspace     string `mapstructure:"workspace" validate:"required"`
	AlertEmail    string `mapstructure:"alert_email" validate:"required,email"`
	// NamePrefix scopes the bulk existence listing and is prepended to
	// every built-in definition name.
	NamePrefix string `mapstructure:"name_prefix"`
}

type DefinitionsConfig struct {
	// File optionally points at a YAML definitions document.
	File string `mapstructure:"file"`
	// Mode is how a file combines with the built-in catalog.
	Mode DefinitionsMode `mapstructure:"mode"`
	// MinSeverity filters out alert definitions less severe than this
	// level (Azure scale: 0 critical .. 4 verbose).
	MinSeverity int `mapstructure:"min_severity" validate:"gte=0,lte=4"`
}

type DefinitionsMode string

const (
	DefinitionsModeExtend  DefinitionsMode = "extend"
	DefinitionsModeReplace DefinitionsMode = "replace"
)

type ReportingConfig struct {
	NoColor bool `mapstructure:"no_color"`
	// OutputPath is the CSV export destination; empty disables export.
	OutputPath string `mapstructure:"output_path"`
}

func DefaultConfig() *Config {
	return &Config{
		Settings: SettingsConfig{
			LogLevel:     log.LevelInfo,
			LogFormat:    log.FormatText,
			Concurrency:  5,
			Policy:       domain.PolicyCreateOnly,
			BulkTimeout:  25 * time.Second,
			ApplyTimeout: 2 * time.Minute,
			RateLimitRPS: 10,
		},
		Definitions: DefinitionsConfig{
			Mode:        DefinitionsModeExtend,
			MinSeverity: 4,
		},
		Target: TargetConfig{
			NamePrefix: "avd-",
		},
		Reporting: ReportingConfig{
			OutputPath: "azmon-results.csv",
		},
	}
}
