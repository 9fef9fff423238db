// Package engine defines the uniform interface multiple WebAssembly
// execution backends implement so the rest of the toolchain never imports
// an engine-specific type. wazeroengine and wasmerengine both satisfy
// Engine/Runtime against the same Image and the same internal/hostabi
// Dispatcher.
package engine

import (
	"context"
	"log/slog"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/registry"
)

// Image bundles the host-function closures an engine wires up for a Rune
// instance at Load time: where capabilities/outputs/models come from, and
// where named resources are read from.
type Image struct {
	Resources  hostabi.ResourceProvider
	Capability hostabi.CapabilityFactory
	Output     hostabi.OutputFactory
	Model      hostabi.ModelFactory
	Logger     *slog.Logger
}

// CapabilityMeta is one capability node's kind and declared arguments, as
// recovered from a loaded Rune's `.rune_graph` section.
type CapabilityMeta struct {
	Name string
	Kind hostabi.CapabilityKind
	Args map[string]string
}

// OutputMeta is one sink node's kind, as recovered from `.rune_graph`.
type OutputMeta struct {
	Name string
	Kind hostabi.OutputKind
}

// ResourceMeta is one resource a Rune declared, named but without its bytes
// (those live in the `.rune_resource` section, read separately by callers
// that need them).
type ResourceMeta struct {
	Name string
}

// Engine loads a compiled .rune WASM binary against an Image, producing a
// Runtime ready to Call(). Loading registers the Host ABI import set and
// invokes the module's _manifest() export exactly once.
type Engine interface {
	Load(ctx context.Context, wasmBytes []byte, image Image) (Runtime, error)
}

// Runtime owns one loaded WASM instance. Call is not re-entrant: the caller
// must not invoke Call from two goroutines concurrently (internal/runtime.Runtime enforces this with a
// TryLock rather than relying on engine-side serialization).
type Runtime interface {
	// Call invokes the Rune's _call(0, 0, 0) entry point once.
	Call(ctx context.Context) error
	// Capabilities returns the node-id -> metadata map for every capability
	// node the Rune declares, recovered from the graph section at Load.
	Capabilities() map[uint32]CapabilityMeta
	// Outputs returns the node-id -> metadata map for every sink node.
	Outputs() map[uint32]OutputMeta
	// Resources returns the resources the Rune declared.
	Resources() []ResourceMeta
	// Inputs exposes the mutable backing buffer of every registered
	// capability that implements hostabi.BufferedCapability, keyed by the
	// id the capability was registered under. A caller (typically `rune
	// run --input`) writes into the returned slices between Calls to feed
	// deterministic data in place of whatever the capability would
	// otherwise generate.
	Inputs() map[uint32][]byte
	// Close releases the underlying WASM instance and its module.
	Close(ctx context.Context) error
}

// GraphMetadata recovers capability/output/resource metadata from a
// compiled Rune's custom sections, shared by every engine backend so the
// decoding logic itself isn't duplicated per engine.
func GraphMetadata(wasmBytes []byte) (caps map[uint32]CapabilityMeta, outs map[uint32]OutputMeta, resources []ResourceMeta, err error) {
	sections, err := artifact.ReadCustomSections(wasmBytes)
	if err != nil {
		return nil, nil, nil, err
	}
	caps = map[uint32]CapabilityMeta{}
	outs = map[uint32]OutputMeta{}

	raw, ok := sections[artifact.SectionGraph]
	if !ok {
		return caps, outs, nil, nil
	}
	g, err := artifact.DecodeGraph(raw)
	if err != nil {
		return nil, nil, nil, err
	}
	for _, node := range g.Nodes {
		switch node.Kind {
		case "Capability":
			caps[node.ID] = CapabilityMeta{Name: node.Name, Kind: hostabi.ParseCapabilityKind(node.Subkind), Args: node.Args}
		case "Sink":
			outs[node.ID] = OutputMeta{Name: node.Name, Kind: hostabi.ParseOutputKind(node.Subkind)}
		}
	}

	if raw, ok := sections[artifact.SectionResource]; ok {
		for len(raw) > 0 {
			name, _, rest, err := artifact.DecodeInlineResource(raw)
			if err != nil {
				return nil, nil, nil, err
			}
			resources = append(resources, ResourceMeta{Name: name})
			raw = rest
		}
	}
	return caps, outs, resources, nil
}

// InputsFromRegistry collects the mutable buffers of every registered
// capability that opts into hostabi.BufferedCapability, shared by every
// engine backend's Runtime.Inputs().
func InputsFromRegistry(reg *registry.Registry) map[uint32][]byte {
	out := map[uint32][]byte{}
	for id, impl := range reg.Capabilities() {
		if buffered, ok := impl.(hostabi.BufferedCapability); ok {
			out[id] = buffered.Buffer()
		}
	}
	return out
}
