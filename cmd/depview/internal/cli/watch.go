package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/depview/cmd/depview/internal/watch"
	"github.com/albertocavalcante/depview/pkg/metrics"
)

var watchFlags struct {
	debounce    int
	metricsAddr string
	verbose     bool
	json        bool
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-check targets when the manifest or source roots change",
	Long: `Watches targets.toml and every source root. A manifest change reloads and
re-checks all targets; a directory created or removed below a source root
re-checks the targets owning that root. Edits to file contents do not
affect fingerprints and are ignored.

Example output:

  $ depview watch

  depview: watching 3 targets (4 source roots) in /path/to/workspace
  depview: ready

  [14:32:15] ~ java-production:core needs rebuild
  [14:32:15] ~ java-tests:core needs rebuild
  [14:32:40] manifest reloaded, 3 targets

With --metrics-addr (or watch.metrics_addr in depview.toml) Prometheus
metrics are served on /metrics.

Press Ctrl+C to stop watching.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().IntVar(&watchFlags.debounce, "debounce", 0,
		"Debounce window in milliseconds (default from config, 500)")
	watchCmd.Flags().StringVar(&watchFlags.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show the directory and manifest changes that trigger a re-check")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")

	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cfg := workspace.cfg
	if cmd.Flags().Changed("debounce") {
		cfg.Watch.DebounceMs = watchFlags.debounce
	}
	if cmd.Flags().Changed("metrics-addr") {
		cfg.Watch.MetricsAddr = watchFlags.metricsAddr
	}

	var collector *metrics.Collector
	if cfg.Watch.MetricsAddr != "" {
		collector = metrics.New(true)
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	w, err := watch.New(watch.Config{
		Root:     workspace.root,
		Settings: cfg,
		Metrics:  collector,
		Writer:   cmd.OutOrStdout(),
		Verbose:  watchFlags.verbose,
		NoColor:  globalFlags.noColor,
		JSON:     watchFlags.json,
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}
