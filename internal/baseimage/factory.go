package baseimage

import (
	"fmt"
	"io"

	"github.com/rune-sh/rune/internal/hostabi"
	"github.com/rune-sh/rune/internal/registry"
	"github.com/rune-sh/rune/internal/shape"
)

// CapabilityFactory returns a hostabi.CapabilityFactory that hands out a
// fresh RandCapability (seeded from seed) for RAND requests and a fresh
// RawCapability (empty until fed via Runtime.Inputs()) for RAW requests.
// Any other kind is rejected, since the base image carries no SOUND/ACCEL/
// IMAGE/FLOAT_IMAGE provider of its own.
func CapabilityFactory(seed int64) hostabi.CapabilityFactory {
	return func(kind hostabi.CapabilityKind) (registry.Capability, error) {
		switch kind {
		case hostabi.CapabilityRand:
			return NewRandCapability(seed), nil
		case hostabi.CapabilityRaw:
			return NewRawCapability(nil), nil
		default:
			return nil, fmt.Errorf("baseimage: no provider for capability kind %d", kind)
		}
	}
}

// SinkSpec describes one SERIAL/TENSOR sink node's declared input shape, as
// recovered from a compiled Rune's `.rune_graph` section, so OutputFactory
// can build a correctly-typed SerialOutput without seeing raw bytes first.
type SinkSpec struct {
	Kind  string // "SERIAL" or "TENSOR"
	Shape shape.Shape
}

// OutputFactory returns a hostabi.OutputFactory that serves `specs` in
// order: the i-th request_output call gets the i-th entry here. The Rune's
// generated _manifest() issues its request_output calls in the topological
// order its main.go was emitted in.
func OutputFactory(specs []SinkSpec, w io.Writer) hostabi.OutputFactory {
	next := 0
	return func(kind hostabi.OutputKind) (registry.Output, error) {
		if next >= len(specs) {
			return nil, fmt.Errorf("baseimage: request_output called more times than there are declared sinks")
		}
		spec := specs[next]
		next++
		switch kind {
		case hostabi.OutputSerial:
			return NewSerialOutput(w, spec.Shape), nil
		case hostabi.OutputTensor:
			return NewTensorOutput(), nil
		default:
			return nil, fmt.Errorf("baseimage: no provider for output kind %d", kind)
		}
	}
}

// StaticModelFactory returns a hostabi.ModelFactory that ignores the raw
// model bytes entirely and always hands back model with the given declared
// shapes — the pluggable inference function SPEC_FULL.md calls for, used
// to wire SineModel/ModuloModel/NoopModel in without a real TFLite
// decoder.
func StaticModelFactory(model registry.Model, declaredInputs, declaredOutputs []shape.Shape) hostabi.ModelFactory {
	return func(data []byte) (registry.Model, []shape.Shape, []shape.Shape, error) {
		return model, declaredInputs, declaredOutputs, nil
	}
}
