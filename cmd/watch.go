package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/c360/c360cfg/internal/app"
	"github.com/c360/c360cfg/internal/config"
	"github.com/c360/c360cfg/internal/log"
	"github.com/c360/c360cfg/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Regenerate the configuration whenever the store or host file changes",
	Long: `Run the full pipeline once, then again each time the configuration store
or the host startup file changes. Failed passes are logged and watching
continues. Stop with Ctrl+C.`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := watcher.New(watchConfig(cfg))
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer func() { _ = w.Stop() }()

	changes, err := w.Start()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}

	return watchLoop(ctx, changes, func(ctx context.Context) {
		res, err := app.Run(ctx, pipelineOptions(provider))
		if err != nil {
			log.ErrorErr(log.CatWatcher, "Pass failed", err)
			return
		}
		if cfg.DryRun {
			_, _ = fmt.Fprint(cmd.OutOrStdout(), res.Diff)
		}
	})
}

// watchConfig watches the store and the host file. A zero debounce keeps
// the watcher default.
func watchConfig(s config.Settings) watcher.Config {
	wc := watcher.DefaultConfig(s.Store, s.HostFile)
	if s.Watch.Debounce > 0 {
		wc.DebounceDur = s.Watch.Debounce
	}
	return wc
}

// watchLoop runs pass once, then once per change until ctx is done.
func watchLoop(ctx context.Context, changes <-chan struct{}, pass func(context.Context)) error {
	pass(ctx)
	log.Info(log.CatWatcher, "Watching for changes", "store", cfg.Store, "host_file", cfg.HostFile)

	for {
		select {
		case <-ctx.Done():
			log.Info(log.CatWatcher, "Stopped watching")
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			log.Info(log.CatWatcher, "Change detected, regenerating")
			pass(ctx)
		}
	}
}
