package codegen

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/parser"
)

// fakeGoBuild writes a tiny shell script standing in for `go build`: it
// writes a minimal valid WASM header to the requested -o path, so codegen's
// post-compile section embedding can be exercised without a real wasip1
// toolchain.
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

func buildTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	doc, _, err := parser.Parse([]byte(`
pipeline:
  raw:
    capability: RAW
    outputs:
      - u8[4]
  out:
    out: SERIAL
    inputs:
      - raw
`))
	require.NoError(t, err)
	g, bag := graph.Lower(doc)
	require.False(t, bag.HasErrors())
	return g
}

func TestGenerate_WritesProjectFiles(t *testing.T) {
	g := buildTestGraph(t)
	outDir := t.TempDir()
	cfg := Config{
		OutDir:        outDir,
		BuildVersion:  "v0.0.1-test",
		ToolchainInfo: "go1.26.2",
		GoBuildPath:   fakeGoBuild(t),
	}
	bag := diagnostics.NewBag()

	result, err := Generate(g, cfg, bag)
	require.NoError(t, err)
	require.NotEmpty(t, result.WASM)

	for _, f := range []string{"TOOLCHAIN", "build.config", "manifest.yaml", "main.go"} {
		_, err := os.Stat(filepath.Join(outDir, f))
		assert.NoErrorf(t, err, "expected %s to exist", f)
	}
}

func TestGenerate_EmbedsVersionAndGraphSections(t *testing.T) {
	g := buildTestGraph(t)
	outDir := t.TempDir()
	cfg := Config{
		OutDir:        outDir,
		BuildVersion:  "v0.0.1-test",
		ToolchainInfo: "go1.26.2",
		GoBuildPath:   fakeGoBuild(t),
	}
	bag := diagnostics.NewBag()

	result, err := Generate(g, cfg, bag)
	require.NoError(t, err)

	sections, err := artifact.ReadCustomSections(result.WASM)
	require.NoError(t, err)
	assert.Contains(t, sections, artifact.SectionVersion)
	assert.Contains(t, sections, artifact.SectionGraph)

	v, err := artifact.DecodeVersion(sections[artifact.SectionVersion])
	require.NoError(t, err)
	assert.Equal(t, "v0.0.1-test", v.BuildVersion)

	graphPayload, err := artifact.DecodeGraph(sections[artifact.SectionGraph])
	require.NoError(t, err)
	assert.Len(t, graphPayload.Nodes, 2)
}

func TestGenerate_NodeIterationIsDeterministic(t *testing.T) {
	g := buildTestGraph(t)

	run := func() []byte {
		outDir := t.TempDir()
		cfg := Config{OutDir: outDir, BuildVersion: "v1", ToolchainInfo: "go1.26.2", GoBuildPath: fakeGoBuild(t)}
		bag := diagnostics.NewBag()
		res, err := Generate(g, cfg, bag)
		require.NoError(t, err)
		return res.WASM
	}

	first := run()
	second := run()
	assert.Equal(t, first, second)
}
