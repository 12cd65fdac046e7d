package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/albertocavalcante/depview/cmd/depview/internal/detect"
	"github.com/albertocavalcante/depview/cmd/depview/internal/manifest"
	"github.com/albertocavalcante/depview/pkg/config"
	"github.com/albertocavalcante/depview/pkg/targets"
)

var initFlags struct {
	check  bool
	dryRun bool
}

var initCmd = &cobra.Command{
	Use:   "init [path]",
	Short: "Create targets.toml from the detected source sets",
	Long: `Initializes a workspace for depview.

This command will:
1. Detect source sets (src/main/java, src/test/kotlin, src/main/resources, ...)
2. Create targets.toml declaring one target per module and source set type
3. Create depview.toml with the default settings

Existing files are never overwritten.

Use --check to verify the manifest without making changes (useful for CI).
Use --dry-run to preview the files without writing them.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&initFlags.check, "check", false,
		"Check that the manifest exists and declares every detected target")
	initCmd.Flags().BoolVar(&initFlags.dryRun, "dry-run", false,
		"Show what would be created without writing")

	rootCmd.AddCommand(initCmd)
}

const configTemplate = `# depview settings. Values shown are the defaults.

[data]
# dir = ".depview/data"

[build]
# workers = 0       # 0 = number of CPUs
# strict = false    # fail 'depview save' when a fingerprint cannot be saved

[usage]
# descriptor_cache_size = 4096

[watch]
# debounce_ms = 500
# metrics_addr = "127.0.0.1:9464"

[log]
# verbosity = 1
# format = "text"
`

func runInit(cmd *cobra.Command, args []string) error {
	path := workspace.root
	if len(args) > 0 {
		path = args[0]
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	specs, err := detect.Targets(absPath)
	if err != nil {
		return fmt.Errorf("failed to detect targets: %w", err)
	}

	out := cmd.OutOrStdout()
	manifestFile := workspace.cfg.ManifestPath(absPath)
	configFile := filepath.Join(absPath, config.ConfigFileName)

	if initFlags.check {
		return runInitCheck(out, cmd.ErrOrStderr(), manifestFile, specs)
	}

	if len(specs) == 0 {
		fmt.Fprintln(out, "No source sets detected. Declare targets in targets.toml manually.")
		return nil
	}
	fmt.Fprintf(out, "Detected %d targets\n", len(specs))

	manifestContent, err := generateManifest(specs)
	if err != nil {
		return err
	}

	files := []initFile{
		{path: manifestFile, content: manifestContent},
		{path: configFile, content: configTemplate},
	}
	if initFlags.dryRun {
		runInitDryRun(out, files)
		return nil
	}
	return runInitApply(out, files)
}

type initFile struct {
	path    string
	content string
}

// generateManifest renders specs as targets.toml.
func generateManifest(specs []targets.Spec) (string, error) {
	var buf bytes.Buffer
	buf.WriteString("# Targets detected by 'depview init'.\n\n")
	if err := toml.NewEncoder(&buf).Encode(manifest.Manifest{Targets: specs}); err != nil {
		return "", fmt.Errorf("failed to encode manifest: %w", err)
	}
	return buf.String(), nil
}

func runInitCheck(out, errOut io.Writer, manifestFile string, detected []targets.Spec) error {
	var issues []string

	m, err := manifest.Load(manifestFile)
	if err != nil {
		issues = append(issues, err.Error())
	} else {
		declared := make(map[string]bool, len(m.Targets))
		for _, s := range m.Targets {
			declared[s.Type+":"+s.ID] = true
		}
		for _, s := range detected {
			if name := s.Type + ":" + s.ID; !declared[name] {
				issues = append(issues, fmt.Sprintf("%s not declared (sources: %s)", name, strings.Join(s.Sources, ", ")))
			}
		}
	}

	if len(issues) > 0 {
		fmt.Fprintln(errOut, "Workspace configuration issues:")
		for _, issue := range issues {
			fmt.Fprintf(errOut, "  - %s\n", issue)
		}
		return fmt.Errorf("workspace is not configured (%d issues)", len(issues))
	}

	fmt.Fprintf(out, "Workspace is properly configured (%d targets)\n", len(m.Targets))
	return nil
}

func runInitDryRun(out io.Writer, files []initFile) {
	for i, f := range files {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if fileExists(f.path) {
			fmt.Fprintf(out, "%s exists (would not modify)\n", f.path)
			continue
		}
		fmt.Fprintf(out, "Would create %s:\n", f.path)
		fmt.Fprintln(out, f.content)
	}
}

func runInitApply(out io.Writer, files []initFile) error {
	for _, f := range files {
		if fileExists(f.path) {
			fmt.Fprintf(out, "%s already exists (skipping)\n", filepath.Base(f.path))
			continue
		}
		if err := os.WriteFile(f.path, []byte(f.content), 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", filepath.Base(f.path), err)
		}
		fmt.Fprintf(out, "Created %s\n", f.path)
	}

	fmt.Fprintln(out, "\nNext steps:")
	fmt.Fprintln(out, "  1. Review the targets and add deps and options in targets.toml")
	fmt.Fprintln(out, "  2. Run 'depview status' to see which targets need a build")
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
