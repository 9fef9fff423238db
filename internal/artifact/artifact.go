package artifact

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

const (
	SectionVersion  = ".rune_version"
	SectionGraph    = ".rune_graph"
	SectionResource = ".rune_resource"
)

// VersionInfo is the JSON payload of the `.rune_version` custom section.
type VersionInfo struct {
	BuildVersion string `json:"build_version"`
	Toolchain    string `json:"toolchain"`
}

// GraphNode is one node in the `.rune_graph` section's JSON serialization,
// shaped for inspection rather than recompilation.
type GraphNode struct {
	ID      uint32   `json:"id"`
	Name    string   `json:"name"`
	Kind    string   `json:"kind"`
	Inputs  []uint32 `json:"inputs"`
	Outputs []uint32 `json:"outputs"`
	// Subkind carries the node's variant: the capability/sink enum value
	// (RAND, RAW, SERIAL, ...) or the proc-block/model reference URI,
	// depending on Kind. Empty for kinds that have no variant.
	Subkind string            `json:"subkind,omitempty"`
	Args    map[string]string `json:"args,omitempty"`
}

// GraphTensor is one edge in the `.rune_graph` section's JSON serialization.
type GraphTensor struct {
	ID       uint32 `json:"id"`
	Shape    string `json:"shape"`
	Producer uint32 `json:"producer"`
}

// Graph is the full `.rune_graph` payload.
type Graph struct {
	Nodes   []GraphNode   `json:"nodes"`
	Tensors []GraphTensor `json:"tensors"`
}

// EncodeVersion serializes a VersionInfo for the `.rune_version` section.
func EncodeVersion(v VersionInfo) ([]byte, error) {
	return json.Marshal(v)
}

// DecodeVersion parses the `.rune_version` section payload.
func DecodeVersion(buf []byte) (VersionInfo, error) {
	var v VersionInfo
	if err := json.Unmarshal(buf, &v); err != nil {
		return VersionInfo{}, fmt.Errorf("artifact: malformed version section: %w", err)
	}
	return v, nil
}

// EncodeGraph serializes a Graph for the `.rune_graph` section.
func EncodeGraph(g Graph) ([]byte, error) {
	return json.Marshal(g)
}

// DecodeGraph parses the `.rune_graph` section payload.
func DecodeGraph(buf []byte) (Graph, error) {
	var g Graph
	if err := json.Unmarshal(buf, &g); err != nil {
		return Graph{}, fmt.Errorf("artifact: malformed graph section: %w", err)
	}
	return g, nil
}

// Artifact is a loaded .rune file: its raw WASM bytes (unwrapped from any
// ZIP packaging) plus whatever custom sections it carries. Packaged holds
// the exact bytes a writer should put on disk as the .rune file — WASM
// itself for the raw form, or the ZIP wrapper for the packaged form — so a
// builder doesn't need to re-derive which form it produced.
type Artifact struct {
	WASM     []byte
	Sections map[string][]byte
	Packaged []byte
}

// Load reads a .rune artifact from raw bytes, transparently handling both
// the raw-WASM form (magic `\0asm`) and the ZIP-packaged form per spec.md
// §6.2. Inspectors can call this regardless of which form produced the
// file.
func Load(raw []byte) (*Artifact, error) {
	wasmBytes, err := unwrap(raw)
	if err != nil {
		return nil, err
	}
	sections, err := ReadCustomSections(wasmBytes)
	if err != nil {
		return nil, err
	}
	return &Artifact{WASM: wasmBytes, Sections: sections, Packaged: raw}, nil
}

// unwrap returns the inner WASM bytes, sniffing the magic bytes to decide
// between raw WASM and a ZIP archive containing a single `.wasm` entry.
func unwrap(raw []byte) ([]byte, error) {
	if bytes.HasPrefix(raw, wasmMagic) {
		return raw, nil
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("artifact: input is neither raw WASM nor a valid ZIP: %w", err)
	}
	for _, f := range zr.File {
		if !hasWasmSuffix(f.Name) {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("artifact: opening %s in archive: %w", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("artifact: reading %s in archive: %w", f.Name, err)
		}
		if !bytes.HasPrefix(data, wasmMagic) {
			return nil, fmt.Errorf("artifact: %s in archive is not a WASM binary", f.Name)
		}
		return data, nil
	}
	return nil, fmt.Errorf("artifact: no .wasm entry found in archive")
}

func hasWasmSuffix(name string) bool {
	return len(name) >= 5 && name[len(name)-5:] == ".wasm"
}

// Pack re-wraps wasmBytes into a ZIP archive containing a single `inner.wasm`
// entry, the "newer format" artifact version described in spec.md §6.2.
func Pack(wasmBytes []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("inner.wasm")
	if err != nil {
		return nil, fmt.Errorf("artifact: creating zip entry: %w", err)
	}
	if _, err := w.Write(wasmBytes); err != nil {
		return nil, fmt.Errorf("artifact: writing zip entry: %w", err)
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("artifact: finalizing zip: %w", err)
	}
	return buf.Bytes(), nil
}
