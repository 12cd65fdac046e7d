package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/depview/cmd/depview/internal/incremental"
)

var statusFlags struct {
	verbose bool
	json    bool
}

var statusCmd = &cobra.Command{
	Use:   "status [target...]",
	Short: "Show which targets need a rebuild",
	Long: `Shows the status of build targets in the workspace.

Compares the current configuration of each target against the one saved by
the last 'depview save' to identify targets that must be rebuilt. A target
without a saved configuration always needs a rebuild.

Targets are named "type:id" or by a bare id, which selects every type.

The --verbose flag also lists up-to-date targets with their digests.
The --json flag outputs the result as JSON for scripting.`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false,
		"Show up-to-date targets and digests")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for depview status.
type StatusOutput struct {
	UpToDate   bool                       `json:"up_to_date"`
	Rebuild    []string                   `json:"rebuild"`
	DirtyTypes []string                   `json:"dirty_types,omitempty"`
	Dirty      []incremental.TargetStatus `json:"dirty"`
	Clean      []incremental.TargetStatus `json:"clean,omitempty"`
	Failed     []incremental.TargetStatus `json:"failed,omitempty"`
	Stored     int                        `json:"stored_fingerprints"`
}

func newStatusOutput(report *incremental.Report, stored int) StatusOutput {
	return StatusOutput{
		UpToDate:   report.IsUpToDate(),
		Rebuild:    report.RebuildTargets(),
		DirtyTypes: report.DirtyTypes(),
		Dirty:      report.Dirty,
		Clean:      report.Clean,
		Failed:     report.Failed,
		Stored:     stored,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	tracker, err := loadTracker()
	if err != nil {
		return err
	}

	report, err := tracker.Status(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("failed to check targets: %w", err)
	}

	out := cmd.OutOrStdout()
	if statusFlags.json {
		return outputJSON(out, newStatusOutput(report, tracker.StoredFingerprintCount()))
	}
	printStatus(out, report, statusFlags.verbose)
	if statusFlags.verbose {
		if tracker.HasState() {
			fmt.Fprintf(out, "\n%d fingerprints stored\n", tracker.StoredFingerprintCount())
		} else {
			fmt.Fprintln(out, "\nNo fingerprints stored yet")
		}
	}
	return nil
}

func printStatus(w io.Writer, report *incremental.Report, verbose bool) {
	yellow := color.New(color.FgYellow)
	red := color.New(color.FgRed)
	green := color.New(color.FgGreen)

	if report.IsUpToDate() {
		green.Fprintf(w, "All %d targets are up to date\n", report.TotalTargets())
	} else {
		fmt.Fprintf(w, "Targets to rebuild (%d):\n", len(report.Dirty)+len(report.Failed))
		for _, s := range report.Dirty {
			reason := "configuration changed"
			if !s.Baseline {
				reason = "never built"
			}
			yellow.Fprintf(w, "  ~ %s", s.Target)
			fmt.Fprintf(w, " (%s)\n", reason)
		}
		for _, s := range report.Failed {
			red.Fprintf(w, "  ✗ %s", s.Target)
			fmt.Fprintf(w, ": %s\n", s.Error)
		}
	}

	if verbose && len(report.Clean) > 0 {
		fmt.Fprintf(w, "\nUp to date (%d):\n", len(report.Clean))
		for _, s := range report.Clean {
			fmt.Fprintf(w, "  %s %s\n", s.Target, s.Digest)
		}
	}

	if !report.IsUpToDate() {
		fmt.Fprintln(w, "\nRun 'depview save' after a successful build to record the new state")
	}
}

func outputJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
