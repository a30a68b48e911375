// Package config provides the settings types and defaults for c360cfg.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/c360/c360cfg/internal/log"
)

// Settings holds all configuration options for c360cfg itself. The
// configuration store that describes the processing job is separate
// (see package store).
type Settings struct {
	// Home is where output files are written. Default: the user's home.
	Home string `mapstructure:"home"`

	// Store is the configuration store document (YAML or JSON).
	// Default: <home>/.c360/store.yaml
	Store string `mapstructure:"store"`

	// HostFile holds the SPARK_MASTER* assignments.
	// Default: <home>/.bashrc
	HostFile string `mapstructure:"host_file"`

	// StrictMaster turns an unresolvable cluster master into a failure.
	StrictMaster bool `mapstructure:"strict_master"`

	// DryRun prints a diff instead of writing files.
	DryRun bool `mapstructure:"dry_run"`

	Debug   bool          `mapstructure:"debug"`
	LogFile string        `mapstructure:"log_file"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Tracing TracingConfig `mapstructure:"tracing"`
}

// WatchConfig configures the watch command.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

// TracingConfig holds distributed tracing configuration.
type TracingConfig struct {
	// Enabled controls whether tracing is active.
	// Default: false
	Enabled bool `mapstructure:"enabled"`

	// Exporter selects the trace export backend.
	// Options: "none", "file", "stdout", "otlp"
	// Default: "file"
	Exporter string `mapstructure:"exporter"`

	// FilePath is the output file for "file" exporter.
	// Default: ~/.config/c360cfg/traces/traces.jsonl
	FilePath string `mapstructure:"file_path"`

	// OTLPEndpoint is the collector endpoint for "otlp" exporter.
	// Default: "localhost:4317"
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`

	// SampleRate controls trace sampling (0.0 to 1.0).
	// Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate"`
}

// DefaultHome returns the user's home directory, or "." if unavailable.
func DefaultHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}

// DefaultSettingsPath returns ~/.config/c360cfg/config.yaml.
func DefaultSettingsPath() string {
	return filepath.Join(DefaultHome(), ".config", "c360cfg", "config.yaml")
}

// DefaultTracesFilePath returns the default path for trace file export.
func DefaultTracesFilePath() string {
	return filepath.Join(DefaultHome(), ".config", "c360cfg", "traces", "traces.jsonl")
}

// Defaults returns Settings with default values.
func Defaults() Settings {
	home := DefaultHome()
	return Settings{
		Home:     home,
		Store:    filepath.Join(home, ".c360", "store.yaml"),
		HostFile: filepath.Join(home, ".bashrc"),
		Watch: WatchConfig{
			Debounce: time.Second,
		},
		Tracing: TracingConfig{
			Enabled:      false,
			Exporter:     "file",
			FilePath:     DefaultTracesFilePath(),
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
	}
}

// Resolve fills paths left empty from the home directory, so that
// overriding home alone moves every derived location with it.
func (s Settings) Resolve() Settings {
	if s.Home == "" {
		s.Home = DefaultHome()
	}
	if s.Store == "" {
		s.Store = filepath.Join(s.Home, ".c360", "store.yaml")
	}
	if s.HostFile == "" {
		s.HostFile = filepath.Join(s.Home, ".bashrc")
	}
	return s
}

// Validate checks settings for errors.
func Validate(s Settings) error {
	if s.Home == "" {
		return fmt.Errorf("home is required")
	}
	if s.Watch.Debounce < 0 {
		return fmt.Errorf("watch.debounce must not be negative, got %s", s.Watch.Debounce)
	}
	return ValidateTracing(s.Tracing)
}

// ValidateTracing checks tracing configuration for errors.
// Returns nil if the configuration is valid (empty values use defaults).
func ValidateTracing(tracing TracingConfig) error {
	if tracing.SampleRate < 0.0 || tracing.SampleRate > 1.0 {
		return fmt.Errorf("tracing.sample_rate must be between 0.0 and 1.0, got %v", tracing.SampleRate)
	}

	if tracing.Exporter != "" {
		switch tracing.Exporter {
		case "none", "file", "stdout", "otlp":
		default:
			return fmt.Errorf("tracing.exporter must be \"none\", \"file\", \"stdout\", or \"otlp\", got %q", tracing.Exporter)
		}
	}

	if tracing.Enabled {
		if tracing.Exporter == "file" && tracing.FilePath == "" {
			return fmt.Errorf("tracing.file_path is required when exporter is \"file\"")
		}
		if tracing.Exporter == "otlp" && tracing.OTLPEndpoint == "" {
			return fmt.Errorf("tracing.otlp_endpoint is required when exporter is \"otlp\"")
		}
	}

	return nil
}

// DefaultConfigTemplate returns the default settings as a YAML string with comments.
func DefaultConfigTemplate() string {
	return `# c360cfg settings

# Directory receiving .c360cfg, .s3cfg, the transfer scripts and ~/.ssh keys
# (default: your home directory)
# home: /home/c360

# Configuration store describing the processing job (YAML or JSON)
# store: ~/.c360/store.yaml

# Host startup file with SPARK_MASTER_HOST / SPARK_MASTER_PORT / SPARK_MASTER
# host_file: ~/.bashrc

# Fail when no spark master address can be built (default: false, only logged)
strict_master: false

# Print a diff instead of writing files
dry_run: false

# Logging
debug: false
# log_file: /var/log/c360cfg.log

# Watch mode: delay before re-running after the store or host file changes
watch:
  debounce: 1s

# Distributed tracing of pipeline stages
# tracing:
#   enabled: false                 # Enable/disable tracing (default: false)
#   exporter: file                 # Export backend: none, file, stdout, otlp (default: file)
#   file_path: ~/.config/c360cfg/traces/traces.jsonl
#   otlp_endpoint: localhost:4317  # OTLP collector endpoint (for otlp exporter)
#   sample_rate: 1.0               # Trace sampling rate 0.0-1.0 (default: 1.0)
`
}

// WriteDefaultConfig creates a settings file at the given path with default settings and comments.
// Creates the parent directory if it doesn't exist.
func WriteDefaultConfig(configPath string) error {
	log.Debug(log.CatConfig, "Writing default config", "path", configPath)

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to create config directory", err, "dir", dir)
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(configPath, []byte(DefaultConfigTemplate()), 0o600); err != nil {
		log.ErrorErr(log.CatConfig, "Failed to write config file", err, "path", configPath)
		return fmt.Errorf("writing config file: %w", err)
	}

	log.Info(log.CatConfig, "Created default config", "path", configPath)
	return nil
}
