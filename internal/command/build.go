package command

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/compiler"
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/version"
)

var (
	buildOutFile         string
	buildOptimized       bool
	buildArtifactVersion int
)

func init() {
	buildCmd.Flags().StringVarP(&buildOutFile, "output", "o", "out.rune", "Output artifact path")
	buildCmd.Flags().BoolVar(&buildOptimized, "optimized", false, "Build with optimized linker flags")
	buildCmd.Flags().IntVar(&buildArtifactVersion, "artifact-version", int(compiler.ArtifactVersionZip), "Artifact packaging version: 1 (raw WASM) or 2 (ZIP)")

	rootCmd.AddCommand(buildCmd)
}

var buildCmd = &cobra.Command{
	Use:           "build <runefile>",
	Short:         "Compile a Runefile into a .rune artifact",
	Args:          cobra.ExactArgs(1),
	RunE:          runBuild,
	SilenceErrors: true,
}

func runBuild(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	cfg := compiler.BuildConfig{
		RunefilePath:  args[0],
		Optimized:     buildOptimized,
		Version:       compiler.ArtifactVersion(buildArtifactVersion),
		BuildVersion:  version.BuildVersionString(),
		ToolchainInfo: runtime.Version(),
	}

	slog.Info(fmt.Sprintf("Building %s", cfg.RunefilePath))
	art, bag, err := compiler.Build(cmd.Context(), cfg)
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	printDiagnostics(bag)
	if bag.HasErrors() {
		return fmt.Errorf("build: Runefile has %d diagnostic(s)", bag.Len())
	}

	if err := os.WriteFile(buildOutFile, art.Packaged, 0o644); err != nil {
		return fmt.Errorf("build: writing %s: %w", buildOutFile, err)
	}
	slog.Info(fmt.Sprintf("Wrote %s (%d bytes)", buildOutFile, len(art.Packaged)))
	return nil
}

// printDiagnostics logs every diagnostic in bag at a level matching its
// severity, so a successful build that still produced Warnings surfaces
// them instead of silently discarding the bag's non-fatal half.
func printDiagnostics(bag *diagnostics.Bag) {
	for _, d := range bag.All() {
		switch {
		case d.Severity >= diagnostics.Error:
			slog.Error(d.String())
		case d.Severity == diagnostics.Warning:
			slog.Warn(d.String())
		default:
			slog.Info(d.String())
		}
	}
}
