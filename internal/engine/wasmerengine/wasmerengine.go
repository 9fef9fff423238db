// Package wasmerengine implements internal/engine.Engine on top of
// wasmer-go, the JIT/native-class backend for throughput-sensitive hosts.
package wasmerengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wasmerio/wasmer-go/wasmer"

	"github.com/rune-sh/rune/internal/engine"
	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/registry"
	"github.com/rune-sh/rune/internal/util"
)

// Engine is an engine.Engine backed by wasmer's Cranelift/LLVM JIT.
type Engine struct{}

// New returns a wasmer-backed engine.Engine.
func New() *Engine { return &Engine{} }

// Load compiles and instantiates wasmBytes, registers the Host ABI import
// set, and calls _manifest() once.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte, image engine.Image) (engine.Runtime, error) {
	logger := util.DerefOr(image.Logger, *slog.Default())

	store := wasmer.NewStore(wasmer.NewEngine())
	module, err := wasmer.NewModule(store, wasmBytes)
	if err != nil {
		return nil, fmt.Errorf("wasmerengine: compiling module: %w", err)
	}

	reg := registry.New()
	dispatcher := hostabi.NewDispatcher(reg, image.Resources, image.Capability, image.Output, image.Model, &logger)

	mem := &memoryAdapter{}
	importObject := buildImportObject(store, dispatcher, mem)

	instance, err := wasmer.NewInstance(module, importObject)
	if err != nil {
		return nil, fmt.Errorf("wasmerengine: instantiating module: %w", err)
	}

	wasmMem, err := instance.Exports.GetMemory("memory")
	if err != nil {
		return nil, fmt.Errorf("wasmerengine: module exports no memory: %w", err)
	}
	mem.mem = wasmMem

	manifestFn, err := instance.Exports.GetFunction("_manifest")
	if err != nil {
		return nil, fmt.Errorf("wasmerengine: module has no _manifest export: %w", err)
	}
	if _, err := manifestFn(); err != nil {
		return nil, fmt.Errorf("wasmerengine: _manifest trapped: %w", err)
	}

	callFn, err := instance.Exports.GetFunction("_call")
	if err != nil {
		return nil, fmt.Errorf("wasmerengine: module has no _call export: %w", err)
	}

	r := &runtime{instance: instance, call: callFn, registry: reg}
	r.caps, r.outs, r.resources, err = engine.GraphMetadata(wasmBytes)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type runtime struct {
	instance *wasmer.Instance
	call     func(...interface{}) (interface{}, error)
	registry *registry.Registry

	caps      map[uint32]engine.CapabilityMeta
	outs      map[uint32]engine.OutputMeta
	resources []engine.ResourceMeta
}

func (r *runtime) Call(ctx context.Context) error {
	result, err := r.call(int32(0), int32(0), int32(0))
	if err != nil {
		return fmt.Errorf("wasmerengine: _call trapped: %w", err)
	}
	code, ok := result.(int32)
	if !ok {
		return fmt.Errorf("wasmerengine: _call returned unexpected result type %T", result)
	}
	if code != 0 {
		return fmt.Errorf("wasmerengine: _call returned error code %d", code)
	}
	return nil
}

func (r *runtime) Capabilities() map[uint32]engine.CapabilityMeta { return r.caps }
func (r *runtime) Outputs() map[uint32]engine.OutputMeta          { return r.outs }
func (r *runtime) Resources() []engine.ResourceMeta               { return r.resources }

func (r *runtime) Inputs() map[uint32][]byte {
	return engine.InputsFromRegistry(r.registry)
}

func (r *runtime) Close(ctx context.Context) error {
	r.instance.Close()
	return nil
}

// memoryAdapter satisfies hostabi.Memory over a wasmer.Memory's raw data
// slice. wasmer exposes linear memory as one contiguous []byte (Data()),
// unlike wazero's bounds-checked Read/Write, so this does its own bounds
// checking before slicing into it.
type memoryAdapter struct {
	mem *wasmer.Memory
}

func (m *memoryAdapter) Read(offset, length uint32) ([]byte, bool) {
	data := m.mem.Data()
	if uint64(offset)+uint64(length) > uint64(len(data)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, data[offset:offset+length])
	return out, true
}

func (m *memoryAdapter) Write(offset uint32, value []byte) bool {
	data := m.mem.Data()
	if uint64(offset)+uint64(len(value)) > uint64(len(data)) {
		return false
	}
	copy(data[offset:], value)
	return true
}

func buildImportObject(store *wasmer.Store, d *hostabi.Dispatcher, mem *memoryAdapter) *wasmer.ImportObject {
	i32 := wasmer.NewValueTypes(wasmer.I32)
	i32x2 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32)
	i32x3 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32)
	i32x4 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)
	i32x5 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)
	i32x6 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)
	i32x7 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)
	i32x8 := wasmer.NewValueTypes(wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32, wasmer.I32)

	importObject := wasmer.NewImportObject()
	importObject.Register("env", map[string]wasmer.IntoExtern{
		hostabi.ImportRequestCapability: wasmer.NewFunction(store, wasmer.NewFunctionType(i32, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RequestCapability(u32(args[0]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportRequestCapabilitySetParam: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x6, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RequestCapabilitySetParam(mem, u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3]), u32(args[4]), u32(args[5]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportRequestOutput: wasmer.NewFunction(store, wasmer.NewFunctionType(i32, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RequestOutput(u32(args[0]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportConsumeOutput: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x3, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.ConsumeOutput(mem, u32(args[0]), u32(args[1]), u32(args[2]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportRequestProviderResponse: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x3, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RequestProviderResponse(mem, u32(args[0]), u32(args[1]), u32(args[2]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportRuneResourceOpen: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x2, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RuneResourceOpen(mem, u32(args[0]), u32(args[1]))
			return []wasmer.Value{wasmer.NewI32(rc)}, nil
		}),
		hostabi.ImportRuneResourceRead: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x3, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RuneResourceRead(mem, args[0].I32(), u32(args[1]), u32(args[2]))
			return []wasmer.Value{wasmer.NewI32(rc)}, nil
		}),
		hostabi.ImportRuneModelLoad: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x8, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RuneModelLoad(mem, u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3]), u32(args[4]), u32(args[5]), u32(args[6]), u32(args[7]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportRuneModelInfer: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x3, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.RuneModelInfer(mem, u32(args[0]), u32(args[1]), u32(args[2]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportTfmPreloadModel: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x4, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.TfmPreloadModel(mem, u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportTfmModelInvoke: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x5, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.TfmModelInvoke(mem, u32(args[0]), u32(args[1]), u32(args[2]), u32(args[3]), u32(args[4]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
		hostabi.ImportDebug: wasmer.NewFunction(store, wasmer.NewFunctionType(i32x2, i32), func(args []wasmer.Value) ([]wasmer.Value, error) {
			rc := d.Debug(mem, u32(args[0]), u32(args[1]))
			return []wasmer.Value{wasmer.NewI32(int32(rc))}, nil
		}),
	})
	return importObject
}

func u32(v wasmer.Value) uint32 { return uint32(v.I32()) }

var _ engine.Engine = (*Engine)(nil)
