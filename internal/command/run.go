/*
Apache Score
Copyright 2022 The Apache Software Foundation

This product includes software developed at
The Apache Software Foundation (http://www.apache.org/).
*/
package command

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/baseimage"
	"github.com/rune-sh/rune/internal/engine"
	"github.com/rune-sh/rune/internal/engine/wasmerengine"
	"github.com/rune-sh/rune/internal/engine/wazeroengine"
	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/registry"
	runtimepkg "github.com/rune-sh/rune/internal/runtime"
	"github.com/rune-sh/rune/internal/shape"
)

var (
	runInputs  []string
	runCapture bool
	runEngine  string
	runSeed    int64
)

func init() {
	runCmd.Flags().StringArrayVar(&runInputs, "input", nil, "Feed a RAW capability from a file: name=path")
	runCmd.Flags().BoolVar(&runCapture, "capture", false, "Print raw bytes captured by TENSOR sinks after the call")
	runCmd.Flags().StringVar(&runEngine, "engine", "wazero", "WASM engine backend: wazero or wasmer")
	runCmd.Flags().Int64Var(&runSeed, "seed", 1, "Seed for the default RAND capability")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:           "run <rune-file>",
	Short:         "Load a .rune artifact and invoke it once",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true
	ctx := cmd.Context()

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	art, err := artifact.Load(raw)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	graphBuf, ok := art.Sections[artifact.SectionGraph]
	if !ok {
		return fmt.Errorf("run: artifact has no %s section", artifact.SectionGraph)
	}
	g, err := artifact.DecodeGraph(graphBuf)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	inputs, err := parseInputFlags(runInputs)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	tensorByID := make(map[uint32]artifact.GraphTensor, len(g.Tensors))
	for _, t := range g.Tensors {
		tensorByID[t.ID] = t
	}
	nodes := sortedNodes(g.Nodes)

	capFactory, err := runCapabilityFactory(nodes, inputs, runSeed)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	modelFactory := runModelFactory(nodes, tensorByID)

	captured := &captureSink{}
	outFactory, err := runOutputFactory(nodes, tensorByID, cmd.OutOrStdout(), captured)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	resources, err := loadInlineResources(art)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	image := engine.Image{
		Resources:  resourceProvider(resources),
		Capability: capFactory,
		Output:     outFactory,
		Model:      modelFactory,
	}

	eng, err := selectEngine(runEngine)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}

	rt, err := runtimepkg.Load(ctx, eng, art.WASM, image)
	if err != nil {
		return fmt.Errorf("run: %w", err)
	}
	defer rt.Close(ctx)

	if err := rt.Call(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}

	if runCapture {
		for _, record := range captured.records {
			fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(record))
		}
	}
	return nil
}

func selectEngine(name string) (engine.Engine, error) {
	switch name {
	case "wazero":
		return wazeroengine.New(), nil
	case "wasmer":
		return wasmerengine.New(), nil
	default:
		return nil, fmt.Errorf("unknown --engine %q, want wazero or wasmer", name)
	}
}

func parseInputFlags(raw []string) (map[string]string, error) {
	out := map[string]string{}
	for _, entry := range raw {
		name, path, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("--input %q: want name=path", entry)
		}
		out[name] = path
	}
	return out, nil
}

// runCapabilityFactory builds the capability provider for `rune run`.
// request_capability calls arrive in the same ascending node-ID order
// codegen used to emit them in _manifest(), so popping capability nodes off
// a sorted queue lines each call up with the Runefile stage that issued it —
// which is what lets --input name=path target a specific RAW capability by
// name instead of by call order.
func runCapabilityFactory(nodes []artifact.GraphNode, inputs map[string]string, seed int64) (hostabi.CapabilityFactory, error) {
	var queue []artifact.GraphNode
	for _, n := range nodes {
		if n.Kind == "Capability" {
			queue = append(queue, n)
		}
	}
	idx := 0
	return func(kind hostabi.CapabilityKind) (registry.Capability, error) {
		if idx >= len(queue) {
			return nil, fmt.Errorf("request_capability called more times than the Runefile declares capability nodes")
		}
		node := queue[idx]
		idx++
		if path, ok := inputs[node.Name]; ok {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("reading --input %s: %w", node.Name, err)
			}
			return baseimage.NewRawCapability(data), nil
		}
		switch kind {
		case hostabi.CapabilityRand:
			return baseimage.NewRandCapability(seed), nil
		case hostabi.CapabilityRaw:
			return baseimage.NewRawCapability(nil), nil
		default:
			return nil, fmt.Errorf("no default provider for capability kind %d (node %q); pass --input %s=<path>", kind, node.Name, node.Name)
		}
	}, nil
}

// runModelFactory mirrors runCapabilityFactory's ordering invariant for
// rune_model_load calls: each Model node's declared input/output shapes,
// recovered from the compiled graph, are handed out in the graph section's
// node order, which is ascending node id.
func runModelFactory(nodes []artifact.GraphNode, tensorByID map[uint32]artifact.GraphTensor) hostabi.ModelFactory {
	var queue []artifact.GraphNode
	for _, n := range nodes {
		if n.Kind == "Model" {
			queue = append(queue, n)
		}
	}
	idx := 0
	return func(data []byte) (registry.Model, []shape.Shape, []shape.Shape, error) {
		if idx >= len(queue) {
			return nil, nil, nil, fmt.Errorf("rune_model_load called more times than the Runefile declares model nodes")
		}
		node := queue[idx]
		idx++
		ins, err := shapesFromIDs(node.Inputs, tensorByID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("model %q: %w", node.Name, err)
		}
		outs, err := shapesFromIDs(node.Outputs, tensorByID)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("model %q: %w", node.Name, err)
		}
		return baseimage.NoopModel{}, ins, outs, nil
	}
}

func shapesFromIDs(ids []uint32, tensorByID map[uint32]artifact.GraphTensor) ([]shape.Shape, error) {
	out := make([]shape.Shape, len(ids))
	for i, id := range ids {
		t, ok := tensorByID[id]
		if !ok {
			return nil, fmt.Errorf("no tensor %d in graph", id)
		}
		s, err := shape.Parse(t.Shape)
		if err != nil {
			return nil, fmt.Errorf("tensor %d: %w", id, err)
		}
		out[i] = s
	}
	return out, nil
}

// captureSink collects the raw bytes every TENSOR sink receives, for `rune
// run --capture` to print once the call completes.
type captureSink struct {
	records [][]byte
}

func (c *captureSink) Consume(data []byte) error {
	c.records = append(c.records, append([]byte(nil), data...))
	return nil
}

// runOutputFactory mirrors baseimage.OutputFactory's sequential-serving
// closure, but routes TENSOR sinks through captured so `rune run --capture`
// can print what they received after the call returns.
func runOutputFactory(nodes []artifact.GraphNode, tensorByID map[uint32]artifact.GraphTensor, w io.Writer, captured *captureSink) (hostabi.OutputFactory, error) {
	var specs []baseimage.SinkSpec
	for _, n := range nodes {
		if n.Kind != "Sink" {
			continue
		}
		var s shape.Shape
		if len(n.Inputs) > 0 {
			t, ok := tensorByID[n.Inputs[0]]
			if !ok {
				return nil, fmt.Errorf("sink %q: no tensor %d in graph", n.Name, n.Inputs[0])
			}
			parsed, err := shape.Parse(t.Shape)
			if err != nil {
				return nil, fmt.Errorf("sink %q: %w", n.Name, err)
			}
			s = parsed
		}
		specs = append(specs, baseimage.SinkSpec{Kind: n.Subkind, Shape: s})
	}
	idx := 0
	return func(kind hostabi.OutputKind) (registry.Output, error) {
		if idx >= len(specs) {
			return nil, fmt.Errorf("request_output called more times than there are declared sinks")
		}
		spec := specs[idx]
		idx++
		switch kind {
		case hostabi.OutputSerial:
			return baseimage.NewSerialOutput(w, spec.Shape), nil
		case hostabi.OutputTensor:
			return captured, nil
		default:
			return nil, fmt.Errorf("no provider for output kind %d", kind)
		}
	}, nil
}

func loadInlineResources(art *artifact.Artifact) (map[string][]byte, error) {
	out := map[string][]byte{}
	raw, ok := art.Sections[artifact.SectionResource]
	if !ok {
		return out, nil
	}
	for len(raw) > 0 {
		name, data, rest, err := artifact.DecodeInlineResource(raw)
		if err != nil {
			return nil, err
		}
		out[name] = data
		raw = rest
	}
	return out, nil
}

// resourceProvider implements hostabi.ResourceProvider over resources
// already materialized into memory at build time (spec.md §5's inline and
// from-disk resources are both baked into the artifact by the compiler, so
// `rune run` never reads the original Runefile's resource paths itself).
type resourceProvider map[string][]byte

func (r resourceProvider) Open(name string) (io.Reader, error) {
	data, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("resource %q not found in artifact", name)
	}
	return bytes.NewReader(data), nil
}
