package cli

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var saveFlags struct {
	strict bool
	json   bool
}

var saveCmd = &cobra.Command{
	Use:   "save [target...]",
	Short: "Record target configurations after a successful build",
	Long: `Saves the current configuration of each target (or only the named ones)
as the baseline for the next 'depview status'.

Run it after a build succeeded. A target whose configuration cannot be
saved stays dirty and is rebuilt next time; this is reported but is not an
error unless --strict is set (or build.strict in depview.toml).`,
	RunE: runSave,
}

func init() {
	saveCmd.Flags().BoolVar(&saveFlags.strict, "strict", false,
		"Fail if any fingerprint cannot be saved")
	saveCmd.Flags().BoolVar(&saveFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(saveCmd)
}

func runSave(cmd *cobra.Command, args []string) error {
	tracker, err := loadTracker()
	if err != nil {
		return err
	}

	result, err := tracker.Save(cmd.Context(), args...)
	if err != nil {
		return fmt.Errorf("failed to save fingerprints: %w", err)
	}

	out := cmd.OutOrStdout()
	if saveFlags.json {
		if err := outputJSON(out, result); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(out, "Saved %d fingerprints\n", len(result.Saved))
		failed := make([]string, 0, len(result.Failed))
		for name := range result.Failed {
			failed = append(failed, name)
		}
		slices.Sort(failed)
		red := color.New(color.FgRed)
		for _, name := range failed {
			red.Fprintf(cmd.ErrOrStderr(), "  ✗ %s", name)
			fmt.Fprintf(cmd.ErrOrStderr(), ": %s\n", result.Failed[name])
		}
	}

	if len(result.Failed) > 0 && strictSave(cmd) {
		return fmt.Errorf("%d fingerprints could not be saved", len(result.Failed))
	}
	return nil
}

// strictSave resolves --strict against build.strict from configuration.
func strictSave(cmd *cobra.Command) bool {
	if cmd.Flags().Changed("strict") {
		return saveFlags.strict
	}
	return workspace.cfg.IsStrict()
}
