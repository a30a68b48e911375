package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/c360/c360cfg/internal/app"
	"github.com/c360/c360cfg/internal/config"
	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/tracing"
)

var (
	version   = "dev"
	cfgFile   string
	cfg       config.Settings
	configErr error
)

var rootCmd = &cobra.Command{
	Use:   "c360cfg",
	Short: "Generate the runtime configuration for a C360 processing job",
	Long: `Generate the runtime configuration for a C360 processing job.

Merges the process environment, the configuration store and built-in
defaults into ~/.c360cfg, writes the s3cmd client settings and SSH keys,
and emits download_files.sh / upload_files.sh to stage data between the
object store and the shared filesystem.

Examples:
  # Full run
  c360cfg --store /etc/c360/store.yaml

  # Show what would change without writing anything
  c360cfg --dry-run`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Flags bound to settings keys.
var settingFlags = map[string]string{
	"home":          "home",
	"store":         "store",
	"host-file":     "host_file",
	"strict-master": "strict_master",
	"dry-run":       "dry_run",
	"debug":         "debug",
	"log-file":      "log_file",
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "",
		"settings file (default: ~/.config/c360cfg/config.yaml)")
	pf.String("home", "", "directory receiving the generated files (default: your home)")
	pf.StringP("store", "s", "", "configuration store (default: <home>/.c360/store.yaml)")
	pf.String("host-file", "", "host startup file with the SPARK_MASTER assignments (default: <home>/.bashrc)")
	pf.Bool("strict-master", false, "fail when no spark master address can be built")
	pf.BoolP("dry-run", "n", false, "print a diff instead of writing files")
	pf.BoolP("debug", "d", false, "enable debug logging")
	pf.String("log-file", "", "also append log lines to this file")
}

func initConfig() {
	defaults := config.Defaults()
	viper.SetDefault("strict_master", defaults.StrictMaster)
	viper.SetDefault("dry_run", defaults.DryRun)
	viper.SetDefault("debug", defaults.Debug)
	viper.SetDefault("watch.debounce", defaults.Watch.Debounce)
	viper.SetDefault("tracing.enabled", defaults.Tracing.Enabled)
	viper.SetDefault("tracing.exporter", defaults.Tracing.Exporter)
	viper.SetDefault("tracing.file_path", defaults.Tracing.FilePath)
	viper.SetDefault("tracing.otlp_endpoint", defaults.Tracing.OTLPEndpoint)
	viper.SetDefault("tracing.sample_rate", defaults.Tracing.SampleRate)

	for flag, key := range settingFlags {
		_ = viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag))
	}

	viper.SetEnvPrefix("C360CFG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigFile(config.DefaultSettingsPath())
	}

	configErr = nil
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		missing := errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)
		// An explicit --config must exist; the default one is optional.
		if missing && cfgFile == "" {
			log.Debug(log.CatConfig, "No settings file, using defaults")
		} else {
			configErr = fmt.Errorf("reading settings: %w", err)
		}
	}

	cfg = config.Settings{}
	if err := viper.Unmarshal(&cfg); err != nil && configErr == nil {
		configErr = fmt.Errorf("decoding settings: %w", err)
	}
	cfg = cfg.Resolve()
}

// loadSettings validates the settings and applies the logging options.
// The returned cleanup closes the log file, if any.
func loadSettings() (func(), error) {
	if configErr != nil {
		return nil, configErr
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	if cfg.Debug {
		log.SetMinLevel(log.LevelDebug)
	}
	cleanup := func() {}
	if cfg.LogFile != "" {
		c, err := log.Init(cfg.LogFile)
		if err != nil {
			return nil, err
		}
		cleanup = c
	}
	log.Debug(log.CatConfig, "Settings loaded",
		"file", viper.ConfigFileUsed(),
		"home", cfg.Home,
		"store", cfg.Store,
		"host_file", cfg.HostFile)
	return cleanup, nil
}

// newTracer starts the tracing provider. The returned function flushes
// pending spans.
func newTracer() (*tracing.Provider, func(), error) {
	provider, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		Exporter:     cfg.Tracing.Exporter,
		FilePath:     cfg.Tracing.FilePath,
		OTLPEndpoint: cfg.Tracing.OTLPEndpoint,
		SampleRate:   cfg.Tracing.SampleRate,
		ServiceName:  tracing.DefaultServiceName,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initializing tracing: %w", err)
	}
	if provider.Enabled() {
		log.Debug(log.CatTrace, "Tracing enabled", "exporter", cfg.Tracing.Exporter, "sample_rate", cfg.Tracing.SampleRate)
	}
	return provider, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			log.ErrorErr(log.CatTrace, "Failed to flush traces", err)
		}
	}, nil
}

// pipelineOptions builds the options shared by every command.
func pipelineOptions(provider *tracing.Provider) app.Options {
	return app.Options{
		Settings:      cfg,
		ExecutableDir: app.ExecutableDir(),
		Tracer:        provider.Tracer(),
	}
}

func runRoot(cmd *cobra.Command, _ []string) error {
	cleanup, err := loadSettings()
	if err != nil {
		return err
	}
	defer cleanup()

	provider, flush, err := newTracer()
	if err != nil {
		return err
	}
	defer flush()

	res, err := app.Run(cmd.Context(), pipelineOptions(provider))
	if err != nil {
		return err
	}
	if cfg.DryRun {
		_, _ = fmt.Fprint(cmd.OutOrStdout(), res.Diff)
	}
	return nil
}

// Execute runs the root command
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		log.Error(log.CatConfig, "c360cfg failed", "error", err)
	}
	return err
}

// SetVersion sets the version string (called from main with ldflags)
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}
