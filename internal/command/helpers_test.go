package command

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/compiler"
)

// executeAndResetCommand runs cmd with args against fresh stdout/stderr
// buffers, then restores its streams and flag defaults so the next test
// sees a clean rootCmd.
func executeAndResetCommand(ctx context.Context, cmd *cobra.Command, args []string) (string, string, error) {
	beforeOut, beforeErr := cmd.OutOrStdout(), cmd.ErrOrStderr()
	defer func() {
		cmd.SetOut(beforeOut)
		cmd.SetErr(beforeErr)
	}()

	nowOut, nowErr := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(nowOut)
	cmd.SetErr(nowErr)
	cmd.SetArgs(args)
	subCmd, err := cmd.ExecuteContextC(ctx)
	if subCmd != nil {
		subCmd.SetOut(nil)
		subCmd.SetErr(nil)
		subCmd.SetContext(nil)
		subCmd.SilenceUsage = false
		subCmd.Flags().VisitAll(func(f *pflag.Flag) {
			if f.Value.Type() == "stringArray" {
				_ = f.Value.(pflag.SliceValue).Replace(nil)
			} else {
				_ = f.Value.Set(f.DefValue)
			}
		})
	}
	return nowOut.String(), nowErr.String(), err
}

// fakeGoBuild stands in for the `go` binary codegen shells out to: it
// writes a minimal valid WASM header to the requested -o path, letting
// these tests exercise a full build without a real wasip1 toolchain.
func fakeGoBuild(t *testing.T) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake go build script is POSIX shell only")
	}
	dir := t.TempDir()
	script := filepath.Join(dir, "go")
	content := "#!/bin/sh\n" +
		"out=\"\"\n" +
		"while [ $# -gt 0 ]; do\n" +
		"  if [ \"$1\" = \"-o\" ]; then shift; out=\"$1\"; fi\n" +
		"  shift\n" +
		"done\n" +
		"printf '\\000asm\\001\\000\\000\\000' > \"$out\"\n"
	require.NoError(t, os.WriteFile(script, []byte(content), 0o755))
	return script
}

// buildArtifact compiles runefileContents into a .rune file on disk and
// returns its path, bypassing the CLI's `build` subcommand (which has no
// hook for substituting a fake `go` binary) while still exercising the same
// internal/compiler.Build path it calls.
func buildArtifact(t *testing.T, runefileContents string) string {
	t.Helper()
	dir := t.TempDir()
	runefile := filepath.Join(dir, "Runefile.yaml")
	require.NoError(t, os.WriteFile(runefile, []byte(runefileContents), 0o644))

	cfg := compiler.BuildConfig{
		RunefilePath:  runefile,
		ScratchDir:    t.TempDir(),
		BuildVersion:  "v0.0.1-test",
		ToolchainInfo: "go1.26.2",
		GoBuildPath:   fakeGoBuild(t),
	}
	art, bag, err := compiler.Build(context.Background(), cfg)
	require.NoError(t, err)
	require.False(t, bag.HasErrors(), "%v", bag.All())

	out := filepath.Join(dir, "out.rune")
	require.NoError(t, os.WriteFile(out, art.Packaged, 0o644))
	return out
}
