// Package cli implements the depview command-line interface.
package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/depview/cmd/depview/internal/incremental"
	"github.com/albertocavalcante/depview/cmd/depview/internal/manifest"
	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/config"
	"github.com/albertocavalcante/depview/pkg/fingerprint"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	GitCommit = "unknown"
)

// globalFlags holds persistent flags that apply to all commands
var globalFlags struct {
	verbosity int
	logFormat string
	root      string
	noColor   bool
}

// workspace is the state shared by commands, set up before each run.
var workspace struct {
	root string
	cfg  *config.Config
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "depview",
	Short: "Target fingerprints for incremental JVM builds",
	Long: `depview decides which build targets must be rebuilt.

Targets are declared in targets.toml. For each target depview renders a
canonical configuration (source roots, outputs, options, dependencies) and
compares it with the one saved after the last successful build.

Use 'depview usages' to encode and inspect dependency usage streams.`,
	SilenceUsage:      true,
	PersistentPreRunE: setupWorkspace,
	// Default behavior: show help
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// versionCmd shows version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "depview %s (%s)\n", Version, GitCommit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)

	// Global flags (persistent across all commands)
	rootCmd.PersistentFlags().IntVarP(&globalFlags.verbosity, "verbosity", "v", 1,
		"Verbosity level (0=error, 1=warn, 2=info, 3=debug, 4=trace)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.logFormat, "log-format", "text",
		"Log format (text, json)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.root, "root", "",
		"Workspace root (default: nearest parent with targets.toml, depview.toml or .git)")
	rootCmd.PersistentFlags().BoolVar(&globalFlags.noColor, "no-color", false,
		"Disable colored output")
}

// setupWorkspace resolves the workspace, loads configuration and applies
// logging settings. CLI flags override configuration.
func setupWorkspace(cmd *cobra.Command, _ []string) error {
	root := globalFlags.root
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to determine working directory: %w", err)
		}
		root = config.FindWorkspaceRoot(wd)
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("failed to resolve workspace root: %w", err)
	}

	cfg := config.LoadFrom(root)

	verbosity := cfg.LogVerbosity()
	if cmd.Flags().Changed("verbosity") {
		verbosity = globalFlags.verbosity
	}
	format := cfg.Log.Format
	if cmd.Flags().Changed("log-format") || format == "" {
		format = globalFlags.logFormat
	}
	if err := log.Init(verbosity, format); err != nil {
		return err
	}
	log.SetOutput(cmd.ErrOrStderr())

	if globalFlags.noColor {
		color.NoColor = true //nolint:reassign // library global
	}

	workspace.root = root
	workspace.cfg = cfg
	log.Debug("workspace loaded", "root", root)
	return nil
}

// loadTracker reads the manifest and builds a tracker for the enabled
// targets.
func loadTracker(opts ...incremental.Option) (*incremental.Tracker, error) {
	cfg := workspace.cfg
	m, err := manifest.Load(cfg.ManifestPath(workspace.root))
	if err != nil {
		if errors.Is(err, manifest.ErrNoManifest) {
			return nil, fmt.Errorf("%w (run 'depview init' to create one)", err)
		}
		return nil, err
	}

	state := fingerprint.NewTargetsState(cfg.DataDir(workspace.root))
	loaded, err := m.Build(cfg, state)
	if err != nil {
		return nil, err
	}

	opts = append([]incremental.Option{incremental.WithWorkers(cfg.WorkerCount())}, opts...)
	return incremental.NewTracker(state, loaded, opts...), nil
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// RootCmd returns the root command for testing.
func RootCmd() *cobra.Command {
	return rootCmd
}
