// Package hostabi implements the Host ABI import functions shared by every
// engine backend. The functions are engine-agnostic: they operate on a
// Memory abstraction over the Rune's linear memory rather than any one
// engine's native module type, so wazeroengine and wasmerengine both wire
// the same Dispatcher behind their own memory-access primitives.
package hostabi

import (
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/rune-sh/rune/internal/hostabi/value"
	"github.com/rune-sh/rune/internal/hostabi/wire"
	"github.com/rune-sh/rune/internal/registry"
	"github.com/rune-sh/rune/internal/shape"
)

// Memory abstracts read/write access to a Rune's linear memory so the
// Dispatcher never imports an engine-specific module type.
type Memory interface {
	Read(offset, length uint32) ([]byte, bool)
	Write(offset uint32, data []byte) bool
}

// Import* name the "env" module functions every engine backend must expose
// under, and that generated guest code imports by the same literal name via
// go:wasmimport. Keeping them as constants lets codegen and the engine
// adapters share one source of truth instead of two copies of the same
// strings.
const (
	ImportRequestCapability         = "request_capability"
	ImportRequestCapabilitySetParam = "request_capability_set_param"
	ImportRequestOutput             = "request_output"
	ImportConsumeOutput             = "consume_output"
	ImportRequestProviderResponse   = "request_provider_response"
	ImportRuneResourceOpen          = "rune_resource_open"
	ImportRuneResourceRead          = "rune_resource_read"
	ImportRuneModelLoad             = "rune_model_load"
	ImportRuneModelInfer            = "rune_model_infer"
	ImportTfmPreloadModel           = "tfm_preload_model"
	ImportTfmModelInvoke            = "tfm_model_invoke"
	ImportDebug                     = "_debug"
)

// CapabilityKind enumerates request_capability's kind parameter.
type CapabilityKind uint32

const (
	CapabilityRand       CapabilityKind = 1
	CapabilitySound      CapabilityKind = 2
	CapabilityAccel      CapabilityKind = 3
	CapabilityImage      CapabilityKind = 4
	CapabilityRaw        CapabilityKind = 5
	CapabilityFloatImage CapabilityKind = 6
)

// OutputKind enumerates request_output's kind parameter.
type OutputKind uint32

const (
	OutputSerial OutputKind = 1
	OutputBLE    OutputKind = 2
	OutputPin    OutputKind = 3
	OutputWiFi   OutputKind = 4
	OutputTensor OutputKind = 5
)

// ParseCapabilityKind maps a Runefile capability name to its wire value,
// the same mapping the codegenerator bakes into generated request_capability
// calls. Unknown names return 0.
func ParseCapabilityKind(name string) CapabilityKind {
	switch name {
	case "RAND":
		return CapabilityRand
	case "SOUND":
		return CapabilitySound
	case "ACCEL":
		return CapabilityAccel
	case "IMAGE":
		return CapabilityImage
	case "RAW":
		return CapabilityRaw
	case "FLOAT_IMAGE":
		return CapabilityFloatImage
	default:
		return 0
	}
}

// ParseOutputKind maps a Runefile sink name to its wire value, the same
// mapping the codegenerator bakes into generated request_output calls.
// Unknown names return 0.
func ParseOutputKind(name string) OutputKind {
	switch name {
	case "SERIAL":
		return OutputSerial
	case "BLE":
		return OutputBLE
	case "PIN":
		return OutputPin
	case "WIFI":
		return OutputWiFi
	case "TENSOR":
		return OutputTensor
	default:
		return 0
	}
}

// ResourceProvider opens a named resource for streaming reads, backing
// rune_resource_open/rune_resource_read.
type ResourceProvider interface {
	Open(name string) (io.Reader, error)
}

// BufferedCapability is implemented by capabilities whose Generate reads
// from a plain byte buffer the host can overwrite between Calls, rather
// than one that synthesizes data on every Generate. internal/engine uses
// this to implement Runtime.Inputs().
type BufferedCapability interface {
	registry.Capability
	Buffer() []byte
}

// CapabilityFactory builds a Capability implementation for a requested kind.
type CapabilityFactory func(kind CapabilityKind) (registry.Capability, error)

// OutputFactory builds an Output implementation for a requested kind.
type OutputFactory func(kind OutputKind) (registry.Output, error)

// ChannelAware is implemented by outputs that need to know the id the
// registry allocated them under, e.g. baseimage's SerialOutput stamps its
// channel field into the JSON envelope it writes on Consume.
type ChannelAware interface {
	SetChannel(id uint32)
}

// Dispatcher implements every Host ABI import as a plain method taking a
// Memory view of the calling Rune's linear memory. Engines translate their
// native import-function callback signature into a Memory and a call into
// one of these methods.
type Dispatcher struct {
	Registry    *registry.Registry
	Resources   ResourceProvider
	Capability  CapabilityFactory
	Output      OutputFactory
	ModelFactory ModelFactory
	Logger      *slog.Logger

	mu            sync.Mutex
	openResources map[int32]io.Reader
	nextResource  int32

	models map[uint32]*loadedModel
}

type loadedModel struct {
	inShapes  []shape.Shape
	outShapes []shape.Shape
}

// NewDispatcher constructs a Dispatcher for one Rune instance's load/call
// cycle.
func NewDispatcher(reg *registry.Registry, resources ResourceProvider, capFactory CapabilityFactory, outFactory OutputFactory, modelFactory ModelFactory, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		Registry:      reg,
		Resources:     resources,
		Capability:    capFactory,
		Output:        outFactory,
		ModelFactory:  modelFactory,
		Logger:        logger,
		openResources: map[int32]io.Reader{},
		models:        map[uint32]*loadedModel{},
	}
}

// RequestCapability implements request_capability: (kind: u32) -> u32.
func (d *Dispatcher) RequestCapability(kind uint32) uint32 {
	impl, err := d.Capability(CapabilityKind(kind))
	if err != nil {
		d.Logger.Error("request_capability failed", "kind", kind, "error", err)
		return 0
	}
	return d.Registry.RegisterCapability(impl)
}

// RequestCapabilitySetParam implements request_capability_set_param.
func (d *Dispatcher) RequestCapabilitySetParam(mem Memory, id, keyPtr, keyLen, valPtr, valLen, valType uint32) uint32 {
	cap, err := d.Registry.Capability(id)
	if err != nil {
		d.Logger.Error("request_capability_set_param: unknown capability", "id", id)
		return 1
	}
	keyBytes, ok := mem.Read(keyPtr, keyLen)
	if !ok {
		return 1
	}
	valBytes, ok := mem.Read(valPtr, valLen)
	if !ok {
		return 1
	}
	v, err := value.DecodeTyped(value.Tag(valType), valBytes)
	if err != nil {
		d.Logger.Error("request_capability_set_param: bad value", "error", err)
		return 1
	}
	if err := cap.SetParameter(string(keyBytes), v); err != nil {
		d.Logger.Error("request_capability_set_param: rejected", "error", err)
		return 1
	}
	return 0
}

// RequestOutput implements request_output: (kind: u32) -> u32.
func (d *Dispatcher) RequestOutput(kind uint32) uint32 {
	impl, err := d.Output(OutputKind(kind))
	if err != nil {
		d.Logger.Error("request_output failed", "kind", kind, "error", err)
		return 0
	}
	id := d.Registry.RegisterOutput(impl)
	if ca, ok := impl.(ChannelAware); ok {
		ca.SetChannel(id)
	}
	return id
}

// ConsumeOutput implements consume_output: (id, buf_ptr, len) -> u32.
func (d *Dispatcher) ConsumeOutput(mem Memory, id, bufPtr, length uint32) uint32 {
	out, err := d.Registry.Output(id)
	if err != nil {
		d.Logger.Error("consume_output: unknown output", "id", id)
		return 1
	}
	data, ok := mem.Read(bufPtr, length)
	if !ok {
		return 1
	}
	if err := out.Consume(data); err != nil {
		d.Logger.Error("consume_output: rejected", "error", err)
		return 1
	}
	return 0
}

// RequestProviderResponse implements request_provider_response: fills
// buf_ptr..buf_len from capability id, returning bytes written.
func (d *Dispatcher) RequestProviderResponse(mem Memory, bufPtr, bufLen, id uint32) uint32 {
	cap, err := d.Registry.Capability(id)
	if err != nil {
		d.Logger.Error("request_provider_response: unknown capability", "id", id)
		return 0
	}
	buf := make([]byte, bufLen)
	n, err := cap.Generate(buf)
	if err != nil {
		d.Logger.Error("request_provider_response: generate failed", "error", err)
		return 0
	}
	if !mem.Write(bufPtr, buf[:n]) {
		return 0
	}
	return uint32(n)
}

// RuneResourceOpen implements rune_resource_open: (name_ptr, name_len) -> i32.
func (d *Dispatcher) RuneResourceOpen(mem Memory, namePtr, nameLen uint32) int32 {
	nameBytes, ok := mem.Read(namePtr, nameLen)
	if !ok {
		return -1
	}
	r, err := d.Resources.Open(string(nameBytes))
	if err != nil {
		d.Logger.Error("rune_resource_open failed", "name", string(nameBytes), "error", err)
		return -1
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.nextResource++
	handle := d.nextResource
	d.openResources[handle] = r
	return handle
}

// RuneResourceRead implements rune_resource_read: (id, buf_ptr, buf_len) -> i32.
// 0 means EOF, negative means error.
func (d *Dispatcher) RuneResourceRead(mem Memory, id int32, bufPtr, bufLen uint32) int32 {
	d.mu.Lock()
	r, ok := d.openResources[id]
	d.mu.Unlock()
	if !ok {
		return -1
	}
	buf := make([]byte, bufLen)
	n, err := r.Read(buf)
	if n > 0 {
		if !mem.Write(bufPtr, buf[:n]) {
			return -1
		}
	}
	if err == io.EOF {
		return int32(n)
	}
	if err != nil {
		d.Logger.Error("rune_resource_read failed", "id", id, "error", err)
		return -1
	}
	return int32(n)
}

// RuneModelLoad implements rune_model_load (v2): loads a model from
// data_ptr/data_len and records the declared input/output shapes for
// later validation by RuneModelInfer. Returns a model id, or 0 on failure.
func (d *Dispatcher) RuneModelLoad(mem Memory, mimePtr, mimeLen, dataPtr, dataLen, inShapesPtr, nIn, outShapesPtr, nOut uint32) uint32 {
	data, ok := mem.Read(dataPtr, dataLen)
	if !ok {
		return 0
	}
	inShapes, err := readShapeArray(mem, inShapesPtr, nIn)
	if err != nil {
		d.Logger.Error("rune_model_load: bad input shapes", "error", err)
		return 0
	}
	outShapes, err := readShapeArray(mem, outShapesPtr, nOut)
	if err != nil {
		d.Logger.Error("rune_model_load: bad output shapes", "error", err)
		return 0
	}

	modelFactory := d.ModelFactory
	if modelFactory == nil {
		d.Logger.Error("rune_model_load: no model factory configured")
		return 0
	}
	model, declaredIn, declaredOut, err := modelFactory(data)
	if err != nil {
		d.Logger.Error("rune_model_load failed", "error", err)
		return 0
	}
	for i := range inShapes {
		if i < len(declaredIn) && !shape.Equal(inShapes[i], declaredIn[i]) {
			d.Logger.Error("rune_model_load: input shape mismatch",
				"requested", inShapes[i].String(), "model_declares", declaredIn[i].String())
			return 0
		}
	}
	for i := range outShapes {
		if i < len(declaredOut) && !shape.Equal(outShapes[i], declaredOut[i]) {
			d.Logger.Error("rune_model_load: output shape mismatch",
				"requested", outShapes[i].String(), "model_declares", declaredOut[i].String())
			return 0
		}
	}

	id := d.Registry.RegisterModel(model)
	d.mu.Lock()
	d.models[id] = &loadedModel{inShapes: inShapes, outShapes: outShapes}
	d.mu.Unlock()
	return id
}

// TfmPreloadModel implements the legacy tfm_preload_model: (buf_ptr, len,
// n_in, n_out) -> u32. It assumes exactly one input and one output tensor,
// each n_in/n_out bytes long, since the legacy ABI carries no shape
// strings. Prefer RuneModelLoad for anything new.
func (d *Dispatcher) TfmPreloadModel(mem Memory, bufPtr, bufLen, nIn, nOut uint32) uint32 {
	data, ok := mem.Read(bufPtr, bufLen)
	if !ok {
		return 0
	}
	modelFactory := d.ModelFactory
	if modelFactory == nil {
		d.Logger.Error("tfm_preload_model: no model factory configured")
		return 0
	}
	model, _, _, err := modelFactory(data)
	if err != nil {
		d.Logger.Error("tfm_preload_model failed", "error", err)
		return 0
	}
	id := d.Registry.RegisterModel(model)
	d.mu.Lock()
	d.models[id] = &loadedModel{
		inShapes:  []shape.Shape{shape.New(shape.U8, int(nIn))},
		outShapes: []shape.Shape{shape.New(shape.U8, int(nOut))},
	}
	d.mu.Unlock()
	return id
}

// TfmModelInvoke implements the legacy tfm_model_invoke: (id, in_ptr,
// in_len, out_ptr, out_len) -> u32, a single-tensor call with no Tensor
// wire struct on either side.
func (d *Dispatcher) TfmModelInvoke(mem Memory, id, inPtr, inLen, outPtr, outLen uint32) uint32 {
	model, err := d.Registry.Model(id)
	if err != nil {
		d.Logger.Error("tfm_model_invoke: unknown model", "id", id)
		return 1
	}
	input, ok := mem.Read(inPtr, inLen)
	if !ok {
		return 1
	}
	output := make([]byte, outLen)
	if err := model.Infer([][]byte{input}, [][]byte{output}); err != nil {
		d.Logger.Error("tfm_model_invoke: inference failed", "error", err)
		return 1
	}
	if !mem.Write(outPtr, output) {
		return 1
	}
	return 0
}

// ModelFactory decodes raw model bytes into a registry.Model plus the
// shapes the model itself declares, for rune_model_load's mismatch check.
type ModelFactory func(data []byte) (model registry.Model, declaredInputs, declaredOutputs []shape.Shape, err error)

func readShapeArray(mem Memory, arrayPtr, count uint32) ([]shape.Shape, error) {
	shapes := make([]shape.Shape, count)
	for i := uint32(0); i < count; i++ {
		entry, ok := mem.Read(arrayPtr+8*i, 8)
		if !ok {
			return nil, fmt.Errorf("hostabi: truncated shape pointer array")
		}
		ptr := binary.LittleEndian.Uint32(entry[0:4])
		length := binary.LittleEndian.Uint32(entry[4:8])
		text, ok := mem.Read(ptr, length)
		if !ok {
			return nil, fmt.Errorf("hostabi: truncated shape string at index %d", i)
		}
		s, err := shape.Parse(string(text))
		if err != nil {
			return nil, fmt.Errorf("hostabi: shape %d: %w", i, err)
		}
		shapes[i] = s
	}
	return shapes, nil
}

// RuneModelInfer implements rune_model_infer: runs inference on a loaded
// model using the Tensor wire struct layout for both sides.
func (d *Dispatcher) RuneModelInfer(mem Memory, id uint32, inTensorsPtr, outTensorsPtr uint32) uint32 {
	model, err := d.Registry.Model(id)
	if err != nil {
		d.Logger.Error("rune_model_infer: unknown model", "id", id)
		return 1
	}

	d.mu.Lock()
	lm := d.models[id]
	d.mu.Unlock()
	if lm == nil {
		d.Logger.Error("rune_model_infer: model id not tracked by loader", "id", id)
		return 1
	}

	inputs, err := readTensorDataArray(mem, inTensorsPtr, lm.inShapes)
	if err != nil {
		d.Logger.Error("rune_model_infer: bad input tensors", "error", err)
		return 1
	}
	outputs := make([][]byte, len(lm.outShapes))
	for i, s := range lm.outShapes {
		outputs[i] = make([]byte, bufferSize(s))
	}

	if err := model.Infer(inputs, outputs); err != nil {
		d.Logger.Error("rune_model_infer: inference failed", "error", err)
		return 1
	}

	if err := writeTensorDataArray(mem, outTensorsPtr, outputs); err != nil {
		d.Logger.Error("rune_model_infer: writing outputs failed", "error", err)
		return 1
	}
	return 0
}

func bufferSize(s shape.Shape) int {
	n := 1
	for _, d := range s.Dimensions.Dims() {
		extent, ok := d.Extent()
		if !ok {
			return 0
		}
		n *= extent
	}
	width := s.Element.ByteWidth()
	if width == 0 {
		width = 1
	}
	return n * width
}

// readTensorDataArray reads `len(shapes)` Tensor wire structs
// ({element_type, rank, dims_ptr, data_ptr}, 16 bytes each) and returns each
// one's data bytes. The struct itself carries no explicit byte length, so
// the caller's declared shapes (from rune_model_load) size the reads.
func readTensorDataArray(mem Memory, arrayPtr uint32, shapes []shape.Shape) ([][]byte, error) {
	const entrySize = 16
	out := make([][]byte, len(shapes))
	for i, s := range shapes {
		entry, ok := mem.Read(arrayPtr+uint32(i*entrySize), entrySize)
		if !ok {
			return nil, fmt.Errorf("hostabi: truncated tensor struct array")
		}
		dataPtr := binary.LittleEndian.Uint32(entry[12:16])
		data, ok := mem.Read(dataPtr, uint32(bufferSize(s)))
		if !ok {
			return nil, fmt.Errorf("hostabi: truncated tensor data at index %d", i)
		}
		out[i] = data
	}
	return out, nil
}

func writeTensorDataArray(mem Memory, arrayPtr uint32, outputs [][]byte) error {
	const entrySize = 16
	for i, data := range outputs {
		entry, ok := mem.Read(arrayPtr+uint32(i*entrySize), entrySize)
		if !ok {
			return fmt.Errorf("hostabi: truncated tensor struct array")
		}
		dataPtr := binary.LittleEndian.Uint32(entry[12:16])
		if !mem.Write(dataPtr, data) {
			return fmt.Errorf("hostabi: failed writing tensor %d data", i)
		}
	}
	return nil
}

// Debug implements _debug: decodes a JSON log record and routes it through
// the Dispatcher's slog.Logger.
func (d *Dispatcher) Debug(mem Memory, bufPtr, length uint32) uint32 {
	buf, ok := mem.Read(bufPtr, length)
	if !ok {
		return 1
	}
	rec, err := wire.DecodeLogRecord(buf)
	if err != nil {
		d.Logger.Warn("_debug: malformed log record", "error", err)
		return 1
	}
	attrs := []any{"target", rec.Target}
	if rec.File != "" {
		attrs = append(attrs, "file", rec.File)
	}
	if rec.Line != nil {
		attrs = append(attrs, "line", *rec.Line)
	}
	switch rec.Level {
	case wire.LevelError:
		d.Logger.Error(rec.Message, attrs...)
	case wire.LevelWarn:
		d.Logger.Warn(rec.Message, attrs...)
	case wire.LevelDebug, wire.LevelTrace:
		d.Logger.Debug(rec.Message, attrs...)
	default:
		d.Logger.Info(rec.Message, attrs...)
	}
	return 0
}
