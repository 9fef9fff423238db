// Package codegen turns a validated graph into a Go project that builds to
// a WebAssembly binary, embeds the three custom sections, and returns the
// resulting .rune bytes.
package codegen

import (
	"bytes"
	"fmt"
	"go/format"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/ids"
)

// Config controls one codegen invocation.
type Config struct {
	// OutDir is the directory the generated project is written to.
	OutDir string
	// Optimized toggles the build configuration's linker flags.
	Optimized bool
	// Verbose streams `go build`'s stdout and stderr to the process's own
	// when true; otherwise stderr is captured into the returned error.
	Verbose bool
	// BuildVersion is embedded into the `.rune_version` section.
	BuildVersion string
	// ToolchainInfo is embedded alongside BuildVersion.
	ToolchainInfo string
	// GoBuildPath overrides the `go` binary used to compile, for testing.
	GoBuildPath string
}

// Result is the output of a successful Generate call.
type Result struct {
	// WASM is the final artifact bytes, including all three custom
	// sections, before any ZIP repackaging.
	WASM []byte
}

// Generate writes the project files for g under cfg.OutDir, compiles them to
// WebAssembly, and embeds the three custom sections. File emission iterates
// entities by ascending id, and main.go emits node code in topological
// order with ties broken by ascending id, so identical inputs produce
// byte-identical manifests (Invariant 7).
func Generate(g *graph.Graph, cfg Config, bag *diagnostics.Bag) (*Result, error) {
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return nil, fmt.Errorf("codegen: creating output directory: %w", err)
	}

	if err := writeToolchainPin(cfg); err != nil {
		return nil, err
	}
	if err := writeBuildConfig(cfg); err != nil {
		return nil, err
	}
	if err := writeManifest(g, cfg); err != nil {
		return nil, err
	}
	if err := writeMain(g, cfg); err != nil {
		return nil, err
	}
	if err := writeModelFiles(g, cfg); err != nil {
		return nil, err
	}

	if err := gofmtDir(cfg); err != nil {
		bag.Warnf(nil, "codegen: gofmt unavailable or failed, skipping formatting: %v", err)
	}

	wasmBytes, err := compile(cfg)
	if err != nil {
		return nil, err
	}

	wasmBytes, err = embedSections(g, wasmBytes, cfg)
	if err != nil {
		return nil, err
	}

	return &Result{WASM: wasmBytes}, nil
}

func writeToolchainPin(cfg Config) error {
	content := fmt.Sprintf("go %s\n", goToolchainVersion())
	return os.WriteFile(filepath.Join(cfg.OutDir, "TOOLCHAIN"), []byte(content), 0o644)
}

func goToolchainVersion() string {
	return "1.26"
}

func writeBuildConfig(cfg Config) error {
	var flags string
	if cfg.Optimized {
		flags = `-ldflags="-s -w"`
	} else {
		flags = ""
	}
	content := fmt.Sprintf("GOOS=wasip1\nGOARCH=wasm\nLDFLAGS=%s\n", flags)
	return os.WriteFile(filepath.Join(cfg.OutDir, "build.config"), []byte(content), 0o644)
}

func writeManifest(g *graph.Graph, cfg Config) error {
	var buf bytes.Buffer
	buf.WriteString("module: generated-rune\n")
	buf.WriteString("dependencies:\n")
	seen := map[string]bool{}
	for _, nodeID := range g.NodeIDs() {
		node := g.Nodes[nodeID]
		if node.Kind == graph.NodeProcBlock && !seen[node.ProcBlockRef] {
			seen[node.ProcBlockRef] = true
			fmt.Fprintf(&buf, "  - %s\n", node.ProcBlockRef)
		}
	}
	return os.WriteFile(filepath.Join(cfg.OutDir, "manifest.yaml"), buf.Bytes(), 0o644)
}

// mainTemplate generates a self-contained WASI-target Go program: one
// go:wasmimport per Host ABI function, a byte buffer per tensor edge sized
// from its declared shape, and two entry points. _manifest runs once at load
// time and registers every capability/output/model. _call runs the pipeline
// once per invocation, in the topological order CallCode was assembled in.
//
// A proc-block stage is expected to resolve to a Go package at its declared
// import path exposing:
//
//	func Transform(args map[string]string, inputs [][]byte) ([][]byte, error)
//
// the Go-native analog of the original trait-object proc-block contract:
// inputs and outputs are raw tensor bytes in declared-shape order.
const mainTemplate = `// Code generated by rune. DO NOT EDIT.
package main

import (
{{- if .NeedsEmbed }}
	_ "embed"
{{- end }}
{{- if .NeedsBinary }}
	"encoding/binary"
{{- end }}
{{- if .NeedsUnsafe }}
	"unsafe"
{{- end }}
{{- range .Nodes }}
{{- if .ProcBlockImport }}
	{{ .ProcBlockAlias }} "{{ .ProcBlockImport }}"
{{- end }}
{{- end }}
)

//go:wasmimport env {{ .Imports.RequestCapability }}
func requestCapability(kind uint32) uint32

//go:wasmimport env {{ .Imports.RequestCapabilitySetParam }}
func requestCapabilitySetParam(id, keyPtr, keyLen, valPtr, valLen, valType uint32) uint32

//go:wasmimport env {{ .Imports.RequestOutput }}
func requestOutput(kind uint32) uint32

//go:wasmimport env {{ .Imports.ConsumeOutput }}
func consumeOutput(id, bufPtr, length uint32) uint32

//go:wasmimport env {{ .Imports.RequestProviderResponse }}
func requestProviderResponse(bufPtr, bufLen, id uint32) uint32

//go:wasmimport env {{ .Imports.RuneResourceOpen }}
func runeResourceOpen(namePtr, nameLen uint32) int32

//go:wasmimport env {{ .Imports.RuneResourceRead }}
func runeResourceRead(id int32, bufPtr, bufLen uint32) int32

//go:wasmimport env {{ .Imports.RuneModelLoad }}
func runeModelLoad(mimePtr, mimeLen, dataPtr, dataLen, inShapesPtr, nIn, outShapesPtr, nOut uint32) uint32

//go:wasmimport env {{ .Imports.RuneModelInfer }}
func runeModelInfer(id, inTensorsPtr, outTensorsPtr uint32) uint32

//go:wasmimport env {{ .Imports.Debug }}
func debugLog(bufPtr, length uint32) uint32

{{- if .NeedsUnsafe }}

func ptr32(p unsafe.Pointer) uint32 { return uint32(uintptr(p)) }
{{- end }}
{{- if .NeedsBinary }}

// writeTensorEntry fills the data_ptr field of the i-th 16-byte Tensor wire
// struct in buf. element_type/rank/dims are left zero: rune_model_infer
// sizes reads from the shapes recorded at rune_model_load time, not from
// this struct.
func writeTensorEntry(buf []byte, i int, data []byte) {
	off := i * 16
	var p uint32
	if len(data) > 0 {
		p = ptr32(unsafe.Pointer(&data[0]))
	}
	binary.LittleEndian.PutUint32(buf[off+12:off+16], p)
}
{{- end }}

// Tensor buffers, one per graph edge, sized from its declared shape.
var (
{{- range .Tensors }}
	tensor{{ .ID }} = make([]byte, {{ .Size }})
{{- end }}
)

var (
{{- range .Nodes }}
{{- if eq .KindTitle "Capability" }}
	capability{{ .ID }} uint32
{{- end }}
{{- if eq .KindTitle "Sink" }}
	output{{ .ID }} uint32
{{- end }}
{{- if eq .KindTitle "Model" }}
	model{{ .ID }} uint32
{{- end }}
{{- if .ArgsLiteral }}
	node{{ .ID }}Args = {{ .ArgsLiteral }}
{{- end }}
{{- end }}
)
{{- range .Nodes }}
{{- if .HasModelData }}

//go:embed {{ .ModelFile }}
var model{{ .ID }}Bytes []byte
{{- end }}
{{- if and (eq .KindTitle "Model") (not .HasModelData) }}

var model{{ .ID }}Bytes []byte
{{- end }}
{{- end }}

// _manifest is called once by the host at load time; it declares every
// capability and output this Rune needs, and loads every model, before the
// first _call.
//
//go:wasmexport _manifest
func _manifest() {
{{- range .Nodes }}
{{- if eq .KindTitle "Capability" }}
	capability{{ .ID }} = requestCapability({{ .CapabilityKindValue }})
{{- end }}
{{- if eq .KindTitle "Sink" }}
	output{{ .ID }} = requestOutput({{ .SinkKindValue }})
{{- end }}
{{- if eq .KindTitle "Model" }}
	model{{ .ID }} = loadModel{{ .ID }}()
{{- end }}
{{- end }}
}
{{- range .Nodes }}
{{- if eq .KindTitle "Model" }}

func loadModel{{ .ID }}() uint32 {
	mime := []byte("application/octet-stream")
	data := model{{ .ID }}Bytes
	inShapes := []string{ {{- range .ModelInputShapes }}"{{ . }}", {{- end }} }
	outShapes := []string{ {{- range .ModelOutputShapes }}"{{ . }}", {{- end }} }
	inPtrs := make([]uint32, len(inShapes)*2)
	for i, s := range inShapes {
		b := []byte(s)
		inPtrs[i*2] = ptr32(unsafe.Pointer(&b[0]))
		inPtrs[i*2+1] = uint32(len(b))
	}
	outPtrs := make([]uint32, len(outShapes)*2)
	for i, s := range outShapes {
		b := []byte(s)
		outPtrs[i*2] = ptr32(unsafe.Pointer(&b[0]))
		outPtrs[i*2+1] = uint32(len(b))
	}
	var inPtr, outPtr, dataPtr uint32
	if len(inPtrs) > 0 {
		inPtr = ptr32(unsafe.Pointer(&inPtrs[0]))
	}
	if len(outPtrs) > 0 {
		outPtr = ptr32(unsafe.Pointer(&outPtrs[0]))
	}
	if len(data) > 0 {
		dataPtr = ptr32(unsafe.Pointer(&data[0]))
	}
	return runeModelLoad(ptr32(unsafe.Pointer(&mime[0])), uint32(len(mime)), dataPtr, uint32(len(data)), inPtr, uint32(len(inShapes)), outPtr, uint32(len(outShapes)))
}
{{- end }}
{{- end }}

// _call drives one pass of the pipeline in the topological order the
// lowerer produced: read every registered capability, run proc-blocks and
// models, write every output. The three parameters are legacy and always
// zero.
//
//go:wasmexport _call
func _call(_, _, _ int32) int32 {
{{- range .Nodes }}
{{ .CallCode }}
{{- end }}
	return 0
}

func main() {}
`

type templateNode struct {
	ID                  uint32
	Name                string
	KindTitle           string
	CapabilityKindValue string
	SinkKindValue       string

	ModelFile         string
	HasModelData      bool
	ModelInputShapes  []string
	ModelOutputShapes []string

	ProcBlockImport string
	ProcBlockAlias  string
	ArgsLiteral     string

	CallCode string
}

type templateTensor struct {
	ID   uint32
	Size int
}

type templateImports struct {
	RequestCapability         string
	RequestCapabilitySetParam string
	RequestOutput             string
	ConsumeOutput             string
	RequestProviderResponse   string
	RuneResourceOpen          string
	RuneResourceRead          string
	RuneModelLoad             string
	RuneModelInfer            string
	Debug                     string
}

var mainImports = templateImports{
	RequestCapability:         hostabi.ImportRequestCapability,
	RequestCapabilitySetParam: hostabi.ImportRequestCapabilitySetParam,
	RequestOutput:             hostabi.ImportRequestOutput,
	ConsumeOutput:             hostabi.ImportConsumeOutput,
	RequestProviderResponse:   hostabi.ImportRequestProviderResponse,
	RuneResourceOpen:          hostabi.ImportRuneResourceOpen,
	RuneResourceRead:          hostabi.ImportRuneResourceRead,
	RuneModelLoad:             hostabi.ImportRuneModelLoad,
	RuneModelInfer:            hostabi.ImportRuneModelInfer,
	Debug:                     hostabi.ImportDebug,
}

func writeMain(g *graph.Graph, cfg Config) error {
	tmpl, err := template.New("main").Funcs(sprig.TxtFuncMap()).Parse(mainTemplate)
	if err != nil {
		return fmt.Errorf("codegen: parsing main template: %w", err)
	}

	tensors := make([]templateTensor, 0, len(g.TensorIDs()))
	for _, tid := range g.TensorIDs() {
		tensors = append(tensors, templateTensor{
			ID:   uint32(tid),
			Size: tensorBufferSize(g.Tensors[tid]),
		})
	}

	order := g.TopologicalOrder()
	nodes := make([]templateNode, 0, len(order))
	needsUnsafe, needsBinary, needsEmbed := false, false, false
	for _, id := range order {
		node := g.Nodes[id]
		tn := templateNode{
			ID:                  uint32(id),
			Name:                node.Name,
			KindTitle:           kindTitle(node.Kind),
			CapabilityKindValue: capabilityKindValue(node.CapabilityKind),
			SinkKindValue:       sinkKindValue(node.SinkKind),
		}

		switch node.Kind {
		case graph.NodeModel:
			tn.HasModelData = len(node.ModelData) > 0
			if tn.HasModelData {
				tn.ModelFile = "models/" + node.Name
				needsEmbed = true
			}
			tn.ModelInputShapes = tensorShapes(g, node.InputSlots)
			tn.ModelOutputShapes = tensorShapes(g, node.OutputSlots)
			needsUnsafe, needsBinary = true, true
		case graph.NodeProcBlock:
			tn.ProcBlockImport = node.ProcBlockRef
			tn.ProcBlockAlias = fmt.Sprintf("procblock%d", id)
			if len(node.Arguments.Keys()) > 0 {
				tn.ArgsLiteral = argsGoLiteral(node.Arguments)
			} else {
				tn.ArgsLiteral = "map[string]string{}"
			}
		case graph.NodeCapability, graph.NodeSink:
			needsUnsafe = true
		}

		tn.CallCode = nodeCallCode(node)
		nodes = append(nodes, tn)
	}

	data := struct {
		Nodes       []templateNode
		Tensors     []templateTensor
		NeedsUnsafe bool
		NeedsBinary bool
		NeedsEmbed  bool
		Imports     templateImports
	}{
		Nodes:       nodes,
		Tensors:     tensors,
		NeedsUnsafe: needsUnsafe,
		NeedsBinary: needsBinary,
		NeedsEmbed:  needsEmbed,
		Imports:     mainImports,
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return fmt.Errorf("codegen: executing main template: %w", err)
	}

	return os.WriteFile(filepath.Join(cfg.OutDir, "main.go"), buf.Bytes(), 0o644)
}

// tensorBufferSize computes a tensor's byte length from its declared shape.
// Dynamic or variable-length shapes (which have no fixed byte length) yield
// 0; the generated buffer is then empty and every call-site guards on
// len() > 0 before touching it.
func tensorBufferSize(t *graph.Tensor) int {
	if t.Shape.Dimensions.IsDynamic() {
		return 0
	}
	n := 1
	for _, d := range t.Shape.Dimensions.Dims() {
		extent, ok := d.Extent()
		if !ok {
			return 0
		}
		n *= extent
	}
	width := t.Shape.Element.ByteWidth()
	if width == 0 {
		width = 1
	}
	return n * width
}

func tensorShapes(g *graph.Graph, tensorIDs []ids.TensorID) []string {
	shapes := make([]string, 0, len(tensorIDs))
	for _, tid := range tensorIDs {
		if tid.IsError() {
			continue
		}
		shapes = append(shapes, g.Tensors[tid].Shape.String())
	}
	return shapes
}

// argsGoLiteral renders a node's declaration-ordered arguments as a Go map
// literal. Map literals don't preserve order at runtime, but codegen only
// ever needs lookup by key here, not iteration order.
func argsGoLiteral(args *graph.Arguments) string {
	var buf strings.Builder
	buf.WriteString("map[string]string{")
	for _, k := range args.Keys() {
		v, _ := args.Get(k)
		fmt.Fprintf(&buf, "%q: %q, ", k, v)
	}
	buf.WriteString("}")
	return buf.String()
}

// nodeCallCode renders the Go source executed for one node during _call.
func nodeCallCode(node *graph.Node) string {
	var buf strings.Builder
	switch node.Kind {
	case graph.NodeCapability:
		for _, tid := range node.OutputSlots {
			fmt.Fprintf(&buf, "\tif len(tensor%d) > 0 {\n\t\tif n := requestProviderResponse(ptr32(unsafe.Pointer(&tensor%d[0])), uint32(len(tensor%d)), capability%d); n == 0 {\n\t\t\treturn 1\n\t\t}\n\t}\n",
				tid, tid, tid, node.ID)
		}
	case graph.NodeProcBlock:
		inputs := make([]string, 0, len(node.InputSlots))
		for _, tid := range node.InputSlots {
			if tid.IsError() {
				continue
			}
			inputs = append(inputs, fmt.Sprintf("tensor%d", tid))
		}
		fmt.Fprintf(&buf, "\t{\n\t\touts, err := procblock%d.Transform(node%dArgs, [][]byte{%s})\n\t\tif err != nil {\n\t\t\treturn 1\n\t\t}\n",
			node.ID, node.ID, strings.Join(inputs, ", "))
		for i, tid := range node.OutputSlots {
			if tid.IsError() {
				continue
			}
			fmt.Fprintf(&buf, "\t\tif %d < len(outs) { copy(tensor%d, outs[%d]) }\n", i, tid, i)
		}
		buf.WriteString("\t}\n")
	case graph.NodeModel:
		fmt.Fprintf(&buf, "\t{\n\t\tinTensors := make([]byte, %d*16)\n", len(node.InputSlots))
		for i, tid := range node.InputSlots {
			if tid.IsError() {
				continue
			}
			fmt.Fprintf(&buf, "\t\twriteTensorEntry(inTensors, %d, tensor%d)\n", i, tid)
		}
		fmt.Fprintf(&buf, "\t\toutTensors := make([]byte, %d*16)\n", len(node.OutputSlots))
		for i, tid := range node.OutputSlots {
			if tid.IsError() {
				continue
			}
			fmt.Fprintf(&buf, "\t\twriteTensorEntry(outTensors, %d, tensor%d)\n", i, tid)
		}
		inPtr, outPtr := "0", "0"
		if len(node.InputSlots) > 0 {
			inPtr = "ptr32(unsafe.Pointer(&inTensors[0]))"
		}
		if len(node.OutputSlots) > 0 {
			outPtr = "ptr32(unsafe.Pointer(&outTensors[0]))"
		}
		fmt.Fprintf(&buf, "\t\tif runeModelInfer(model%d, %s, %s) != 0 {\n\t\t\treturn 1\n\t\t}\n\t}\n", node.ID, inPtr, outPtr)
	case graph.NodeSink:
		for _, tid := range node.InputSlots {
			if tid.IsError() {
				continue
			}
			fmt.Fprintf(&buf, "\tif len(tensor%d) > 0 {\n\t\tif consumeOutput(output%d, ptr32(unsafe.Pointer(&tensor%d[0])), uint32(len(tensor%d))) != 0 {\n\t\t\treturn 1\n\t\t}\n\t}\n",
				tid, node.ID, tid, tid)
		}
	}
	return buf.String()
}

func nodeSubkind(node *graph.Node) string {
	switch node.Kind {
	case graph.NodeCapability:
		return node.CapabilityKind
	case graph.NodeSink:
		return node.SinkKind
	case graph.NodeProcBlock:
		return node.ProcBlockRef
	case graph.NodeModel:
		return node.ModelRef
	default:
		return ""
	}
}

func kindTitle(k graph.NodeKind) string {
	switch k {
	case graph.NodeCapability:
		return "Capability"
	case graph.NodeProcBlock:
		return "ProcBlock"
	case graph.NodeModel:
		return "Model"
	case graph.NodeSink:
		return "Sink"
	default:
		return "Unknown"
	}
}

func capabilityKindValue(kind string) string {
	return strconv.FormatUint(uint64(hostabi.ParseCapabilityKind(kind)), 10)
}

func sinkKindValue(kind string) string {
	return strconv.FormatUint(uint64(hostabi.ParseOutputKind(kind)), 10)
}

func writeModelFiles(g *graph.Graph, cfg Config) error {
	modelsDir := filepath.Join(cfg.OutDir, "models")
	var any bool
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		if node.Kind != graph.NodeModel || len(node.ModelData) == 0 {
			continue
		}
		if !any {
			if err := os.MkdirAll(modelsDir, 0o755); err != nil {
				return fmt.Errorf("codegen: creating models directory: %w", err)
			}
			any = true
		}
		path := filepath.Join(modelsDir, node.Name)
		if err := os.WriteFile(path, node.ModelData, 0o644); err != nil {
			return fmt.Errorf("codegen: writing model file %s: %w", path, err)
		}
	}
	return nil
}

func gofmtDir(cfg Config) error {
	path := filepath.Join(cfg.OutDir, "main.go")
	src, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	formatted, err := format.Source(src)
	if err != nil {
		return fmt.Errorf("gofmt: %w", err)
	}
	return os.WriteFile(path, formatted, 0o644)
}

func compile(cfg Config) ([]byte, error) {
	goBin := cfg.GoBuildPath
	if goBin == "" {
		goBin = "go"
	}
	outPath := filepath.Join(cfg.OutDir, "rune.wasm")

	cmd := exec.Command(goBin, "build", "-o", outPath, ".")
	cmd.Dir = cfg.OutDir
	cmd.Env = append(os.Environ(), "GOOS=wasip1", "GOARCH=wasm")
	if cfg.Verbose {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}
	var stderr bytes.Buffer
	if !cfg.Verbose {
		cmd.Stderr = &stderr
	}
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("codegen: go build failed: %w: %s", err, stderr.String())
	}

	return os.ReadFile(outPath)
}

func embedSections(g *graph.Graph, wasmBytes []byte, cfg Config) ([]byte, error) {
	versionPayload, err := artifact.EncodeVersion(artifact.VersionInfo{
		BuildVersion: cfg.BuildVersion,
		Toolchain:    cfg.ToolchainInfo,
	})
	if err != nil {
		return nil, err
	}
	wasmBytes, err = artifact.AppendCustomSection(wasmBytes, artifact.SectionVersion, versionPayload)
	if err != nil {
		return nil, err
	}

	graphPayload, err := artifact.EncodeGraph(buildGraphPayload(g))
	if err != nil {
		return nil, err
	}
	wasmBytes, err = artifact.AppendCustomSection(wasmBytes, artifact.SectionGraph, graphPayload)
	if err != nil {
		return nil, err
	}

	for _, id := range g.ResourceIDs() {
		res := g.Resources[id]
		if res.Data == nil {
			continue
		}
		section := artifact.EncodeResourceSection(res.Name, res.Data)
		wasmBytes, err = artifact.AppendCustomSection(wasmBytes, artifact.SectionResource, section)
		if err != nil {
			return nil, err
		}
	}

	return wasmBytes, nil
}

func buildGraphPayload(g *graph.Graph) artifact.Graph {
	var out artifact.Graph
	for _, id := range g.NodeIDs() {
		node := g.Nodes[id]
		args := map[string]string{}
		for _, k := range node.Arguments.Keys() {
			v, _ := node.Arguments.Get(k)
			args[k] = v
		}
		inputs := make([]uint32, len(node.InputSlots))
		for i, t := range node.InputSlots {
			inputs[i] = uint32(t)
		}
		outputs := make([]uint32, len(node.OutputSlots))
		for i, t := range node.OutputSlots {
			outputs[i] = uint32(t)
		}
		out.Nodes = append(out.Nodes, artifact.GraphNode{
			ID:      uint32(id),
			Name:    node.Name,
			Kind:    kindTitle(node.Kind),
			Inputs:  inputs,
			Outputs: outputs,
			Subkind: nodeSubkind(node),
			Args:    args,
		})
	}
	for _, id := range g.TensorIDs() {
		tensor := g.Tensors[id]
		out.Tensors = append(out.Tensors, artifact.GraphTensor{
			ID:       uint32(id),
			Shape:    tensor.Shape.String(),
			Producer: uint32(tensor.Producer),
		})
	}
	return out
}
