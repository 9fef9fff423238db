// Package compiler orchestrates the four compile phases — Parse, Lower,
// Type-check, Codegen — into the single entry point `rune build` (and any
// other caller that needs a Runefile turned into a .rune artifact) drives.
// Each phase is a plain eager function; there is no incremental query
// framework, so Build simply recomputes every phase in sequence and stops
// before the next one once the accumulated diagnostics bag carries an
// Error-severity entry.
package compiler

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/codegen"
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/parser"
	"github.com/rune-sh/rune/internal/typecheck"
)

// ArtifactVersion selects the on-disk packaging of the compiled .rune file.
type ArtifactVersion int

const (
	// ArtifactVersionRaw writes the bare WASM binary, custom sections and
	// all, as the .rune file.
	ArtifactVersionRaw ArtifactVersion = 1
	// ArtifactVersionZip wraps the WASM binary in a ZIP archive (the
	// default), per spec.md §6.2.
	ArtifactVersionZip ArtifactVersion = 2
)

// BuildConfig controls one end-to-end compile.
type BuildConfig struct {
	// RunefilePath is the Runefile to compile. Resource paths declared
	// FromDisk are resolved relative to its directory.
	RunefilePath string
	// ScratchDir is where the generated Go project is written before it is
	// compiled to WebAssembly. When left empty, Build creates a temporary
	// directory and removes it when done.
	ScratchDir string
	// Optimized toggles the generated build's linker flags.
	Optimized bool
	// Version selects the artifact's on-disk packaging. Zero defaults to
	// ArtifactVersionZip.
	Version ArtifactVersion
	// BuildVersion and ToolchainInfo are embedded into the `.rune_version`
	// section.
	BuildVersion  string
	ToolchainInfo string
	// GoBuildPath overrides the `go` binary used to compile, for testing.
	GoBuildPath string
}

// Build runs Parse, Lower, Type-check and Codegen against cfg.RunefilePath
// in sequence. It returns as soon as any phase's diagnostics bag carries an
// Error-severity entry, with a nil *artifact.Artifact and the bag
// describing why; a non-nil error is reserved for failures the Runefile
// author couldn't have fixed (unreadable file, malformed YAML, a codegen or
// `go build` failure).
func Build(ctx context.Context, cfg BuildConfig) (*artifact.Artifact, *diagnostics.Bag, error) {
	bag := diagnostics.NewBag()

	src, err := os.ReadFile(cfg.RunefilePath)
	if err != nil {
		return nil, bag, fmt.Errorf("compiler: reading runefile: %w", err)
	}

	doc, parseBag, err := parser.Parse(src)
	bag.Extend(parseBag)
	if err != nil {
		return nil, bag, fmt.Errorf("compiler: %w", err)
	}
	if bag.HasErrors() {
		return nil, bag, nil
	}

	g, lowerBag := graph.Lower(doc)
	bag.Extend(lowerBag)
	if bag.HasErrors() {
		return nil, bag, nil
	}

	baseDir := filepath.Dir(cfg.RunefilePath)
	typecheck.Check(g, baseDir, bag)
	if bag.HasErrors() {
		return nil, bag, nil
	}

	scratchDir := cfg.ScratchDir
	if scratchDir == "" {
		dir, err := os.MkdirTemp("", "rune-build-*")
		if err != nil {
			return nil, bag, fmt.Errorf("compiler: creating scratch directory: %w", err)
		}
		defer os.RemoveAll(dir)
		scratchDir = dir
	}

	result, err := codegen.Generate(g, codegen.Config{
		OutDir:        scratchDir,
		Optimized:     cfg.Optimized,
		BuildVersion:  cfg.BuildVersion,
		ToolchainInfo: cfg.ToolchainInfo,
		GoBuildPath:   cfg.GoBuildPath,
	}, bag)
	if err != nil {
		return nil, bag, fmt.Errorf("compiler: %w", err)
	}
	if bag.HasErrors() {
		return nil, bag, nil
	}

	packaged := result.WASM
	if cfg.Version != ArtifactVersionRaw {
		packaged, err = artifact.Pack(result.WASM)
		if err != nil {
			return nil, bag, fmt.Errorf("compiler: %w", err)
		}
	}

	art, err := artifact.Load(packaged)
	if err != nil {
		return nil, bag, fmt.Errorf("compiler: %w", err)
	}
	return art, bag, nil
}
