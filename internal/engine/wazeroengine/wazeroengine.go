// Package wazeroengine implements internal/engine.Engine on top of wazero,
// the portability-first, pure-Go interpreter backend.
package wazeroengine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/rune-sh/rune/internal/engine"
	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/registry"
	"github.com/rune-sh/rune/internal/util"
)

// Engine is an engine.Engine backed by wazero's interpreter runtime.
type Engine struct{}

// New returns a wazero-backed engine.Engine.
func New() *Engine { return &Engine{} }

// Load compiles and instantiates wasmBytes, registers the Host ABI import
// set, and calls _manifest() once.
func (e *Engine) Load(ctx context.Context, wasmBytes []byte, image engine.Image) (engine.Runtime, error) {
	logger := util.DerefOr(image.Logger, *slog.Default())

	cfg := wazero.NewRuntimeConfigInterpreter()
	rt := wazero.NewRuntimeWithConfig(ctx, cfg)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: instantiating WASI: %w", err)
	}

	reg := registry.New()
	dispatcher := hostabi.NewDispatcher(reg, image.Resources, image.Capability, image.Output, image.Model, &logger)

	if err := registerHostModule(ctx, rt, dispatcher); err != nil {
		rt.Close(ctx)
		return nil, err
	}

	mod, err := rt.Instantiate(ctx, wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: instantiating module: %w", err)
	}

	manifestFn := mod.ExportedFunction("_manifest")
	if manifestFn == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: module has no _manifest export")
	}
	if _, err := manifestFn.Call(ctx); err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: _manifest trapped: %w", err)
	}

	callFn := mod.ExportedFunction("_call")
	if callFn == nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("wazeroengine: module has no _call export")
	}

	r := &runtime{wazeroRuntime: rt, module: mod, call: callFn, registry: reg}
	r.caps, r.outs, r.resources, err = engine.GraphMetadata(wasmBytes)
	if err != nil {
		rt.Close(ctx)
		return nil, err
	}
	return r, nil
}

type runtime struct {
	wazeroRuntime wazero.Runtime
	module        api.Module
	call          api.Function
	registry      *registry.Registry

	caps      map[uint32]engine.CapabilityMeta
	outs      map[uint32]engine.OutputMeta
	resources []engine.ResourceMeta
}

func (r *runtime) Call(ctx context.Context) error {
	results, err := r.call.Call(ctx, 0, 0, 0)
	if err != nil {
		return fmt.Errorf("wazeroengine: _call trapped: %w", err)
	}
	if code := int32(uint32(results[0])); code != 0 {
		return fmt.Errorf("wazeroengine: _call returned error code %d", code)
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
	return r.wazeroRuntime.Close(ctx)
}

// memoryAdapter satisfies hostabi.Memory over a wazero api.Module's linear
// memory; wazero's own Memory.Read/Write already matches hostabi.Memory's
// signature exactly, so this is a thin named wrapper rather than real
// translation logic.
type memoryAdapter struct {
	mem api.Memory
}

func (m memoryAdapter) Read(offset, length uint32) ([]byte, bool) {
	return m.mem.Read(offset, length)
}

func (m memoryAdapter) Write(offset uint32, data []byte) bool {
	return m.mem.Write(offset, data)
}

func registerHostModule(ctx context.Context, rt wazero.Runtime, d *hostabi.Dispatcher) error {
	builder := rt.NewHostModuleBuilder("env")

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, kind uint32) uint32 {
		return d.RequestCapability(kind)
	}).Export(hostabi.ImportRequestCapability)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, id, keyPtr, keyLen, valPtr, valLen, valType uint32) uint32 {
		return d.RequestCapabilitySetParam(memoryAdapter{m.Memory()}, id, keyPtr, keyLen, valPtr, valLen, valType)
	}).Export(hostabi.ImportRequestCapabilitySetParam)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, kind uint32) uint32 {
		return d.RequestOutput(kind)
	}).Export(hostabi.ImportRequestOutput)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, id, bufPtr, length uint32) uint32 {
		return d.ConsumeOutput(memoryAdapter{m.Memory()}, id, bufPtr, length)
	}).Export(hostabi.ImportConsumeOutput)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, bufPtr, bufLen, id uint32) uint32 {
		return d.RequestProviderResponse(memoryAdapter{m.Memory()}, bufPtr, bufLen, id)
	}).Export(hostabi.ImportRequestProviderResponse)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, namePtr, nameLen uint32) int32 {
		return d.RuneResourceOpen(memoryAdapter{m.Memory()}, namePtr, nameLen)
	}).Export(hostabi.ImportRuneResourceOpen)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, id int32, bufPtr, bufLen uint32) int32 {
		return d.RuneResourceRead(memoryAdapter{m.Memory()}, id, bufPtr, bufLen)
	}).Export(hostabi.ImportRuneResourceRead)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, mimePtr, mimeLen, dataPtr, dataLen, inShapesPtr, nIn, outShapesPtr, nOut uint32) uint32 {
		return d.RuneModelLoad(memoryAdapter{m.Memory()}, mimePtr, mimeLen, dataPtr, dataLen, inShapesPtr, nIn, outShapesPtr, nOut)
	}).Export(hostabi.ImportRuneModelLoad)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, id, inTensorsPtr, outTensorsPtr uint32) uint32 {
		return d.RuneModelInfer(memoryAdapter{m.Memory()}, id, inTensorsPtr, outTensorsPtr)
	}).Export(hostabi.ImportRuneModelInfer)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, bufPtr, bufLen, nIn, nOut uint32) uint32 {
		return d.TfmPreloadModel(memoryAdapter{m.Memory()}, bufPtr, bufLen, nIn, nOut)
	}).Export(hostabi.ImportTfmPreloadModel)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, id, inPtr, inLen, outPtr, outLen uint32) uint32 {
		return d.TfmModelInvoke(memoryAdapter{m.Memory()}, id, inPtr, inLen, outPtr, outLen)
	}).Export(hostabi.ImportTfmModelInvoke)

	builder.NewFunctionBuilder().WithFunc(func(ctx context.Context, m api.Module, bufPtr, length uint32) uint32 {
		return d.Debug(memoryAdapter{m.Memory()}, bufPtr, length)
	}).Export(hostabi.ImportDebug)

	if _, err := builder.Instantiate(ctx); err != nil {
		return fmt.Errorf("wazeroengine: registering host module: %w", err)
	}
	return nil
}

var _ engine.Engine = (*Engine)(nil)
