package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [target...]",
	Short: "Drop saved target configurations",
	Long: `Removes the saved configuration of each target (or only the named ones).
The next 'depview status' reports them as never built.`,
	RunE: runClean,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	tracker, err := loadTracker()
	if err != nil {
		return err
	}

	selected, err := tracker.Select(args...)
	if err != nil {
		return err
	}
	if err := tracker.Clean(cmd.Context(), args...); err != nil {
		return fmt.Errorf("failed to clean fingerprints: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed fingerprints of %d targets\n", len(selected))
	return nil
}
