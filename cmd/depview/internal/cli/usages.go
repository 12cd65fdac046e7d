package cli

import (
	"bufio"
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/albertocavalcante/depview/internal/log"
	"github.com/albertocavalcante/depview/pkg/metrics"
	"github.com/albertocavalcante/depview/pkg/usage"
)

var usagesFlags struct {
	output string
}

var usagesCmd = &cobra.Command{
	Use:   "usages",
	Short: "Encode and inspect dependency usage streams",
	Long: `Work with usage streams: compact binary files recording which fields,
methods, classes and annotations of dependencies a target uses.`,
}

var usagesEncodeCmd = &cobra.Command{
	Use:   "encode <listing>",
	Short: "Encode a text usage listing into a usage stream",
	Long: `Reads a text listing with one usage per line and writes a usage stream.

Listing format (blank lines and lines starting with # are ignored):

  field        <owner> <name> <descriptor>
  field-assign <owner> <name> <descriptor>
  method       <owner> <name> <descriptor>
  meta-method  <owner> <name> <descriptor>
  class        <class>
  class-bound  <class>
  class-extends <class>
  class-new    <class>
  annotation   <class> [args=a,b] [targets=FIELD,METHOD]

Identical usages are stored once.`,
	Args: cobra.ExactArgs(1),
	RunE: runUsagesEncode,
}

var usagesDumpCmd = &cobra.Command{
	Use:   "dump <stream>",
	Short: "Print the usages recorded in a usage stream",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsagesDump,
}

func init() {
	usagesEncodeCmd.Flags().StringVarP(&usagesFlags.output, "output", "o", "",
		"Output file (default: listing name with .dvu extension)")

	usagesCmd.AddCommand(usagesEncodeCmd)
	usagesCmd.AddCommand(usagesDumpCmd)
	rootCmd.AddCommand(usagesCmd)
}

func runUsagesEncode(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := usagesFlags.output
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".dvu"
	}

	f, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open listing: %w", err)
	}
	defer f.Close()

	collector := metrics.New(false)
	ctx, err := usage.NewContext(usageOptions(collector)...)
	if err != nil {
		return err
	}
	defer ctx.Close()
	defer logInternStats(collector, ctx)

	usages, err := usage.ReadListing(ctx, f)
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	var buf bytes.Buffer
	if err := usage.WriteStream(&buf, ctx, usages); err != nil {
		return err
	}
	if err := writeFile(output, buf.Bytes()); err != nil {
		return err
	}

	log.Info("usage stream written", "path", output, "bytes", buf.Len())
	fmt.Fprintf(cmd.OutOrStdout(), "Encoded %d usages (%d distinct) to %s\n", len(usages), ctx.Len(), output)
	return nil
}

func runUsagesDump(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open usage stream: %w", err)
	}
	defer f.Close()

	collector := metrics.New(false)
	ctx, usages, err := usage.ReadStream(bufio.NewReader(f), usageOptions(collector)...)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	defer ctx.Close()
	defer logInternStats(collector, ctx)

	w := bufio.NewWriter(cmd.OutOrStdout())
	for _, u := range usages {
		if err := usage.Fprint(w, ctx.Names(), u); err != nil {
			return err
		}
	}
	return w.Flush()
}

func usageOptions(collector *metrics.Collector) []usage.Option {
	return []usage.Option{
		usage.WithDescriptorCacheSize(workspace.cfg.Usage.DescriptorCacheSize),
		usage.WithObserver(collector),
	}
}

// logInternStats reports at debug level how many intern requests were
// answered by an existing usage.
func logInternStats(collector *metrics.Collector, ctx *usage.Context) {
	if !log.Enabled(slog.LevelDebug) {
		return
	}
	hits, misses, err := collector.InternTotals()
	if err != nil {
		log.Warn("failed to read intern statistics", "error", err)
		return
	}
	log.Component("usage").Debug("intern statistics",
		"hits", hits,
		"misses", misses,
		"usages", ctx.Len(),
		"names", ctx.Names().Len(),
	)
}

// writeFile replaces path with data through a temp file.
func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
