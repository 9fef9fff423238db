package baseimage

import (
	"encoding/binary"
	"fmt"
	"math"
)

// NoopModel copies its first input verbatim to its first output, truncating
// or zero-padding to fit. It is the default Model a base image wires in
// before any real inference backend (TFLite itself is out of scope) is
// plugged in.
type NoopModel struct{}

func (NoopModel) Infer(inputs [][]byte, outputs [][]byte) error {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil
	}
	copy(outputs[0], inputs[0])
	return nil
}

// SineModel is the test-only stand-in for spec.md §8 scenario 4's "sine
// model": single f32 in, single f32 out, y = sin(x).
type SineModel struct{}

func (SineModel) Infer(inputs [][]byte, outputs [][]byte) error {
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("baseimage: sine model expects exactly one input and one output")
	}
	x, err := decodeF32(inputs[0])
	if err != nil {
		return fmt.Errorf("baseimage: sine model: %w", err)
	}
	encodeF32(outputs[0], float32(math.Sin(float64(x))))
	return nil
}

// ModuloModel is the test-only stand-in used where a Runefile pipeline
// models a modulo operation as a Model node rather than a proc-block:
// single f32 in, single f32 out, y = x mod Divisor.
type ModuloModel struct {
	Divisor float32
}

func (m ModuloModel) Infer(inputs [][]byte, outputs [][]byte) error {
	if len(inputs) != 1 || len(outputs) != 1 {
		return fmt.Errorf("baseimage: modulo model expects exactly one input and one output")
	}
	x, err := decodeF32(inputs[0])
	if err != nil {
		return fmt.Errorf("baseimage: modulo model: %w", err)
	}
	encodeF32(outputs[0], float32(math.Mod(float64(x), float64(m.Divisor))))
	return nil
}

func decodeF32(buf []byte) (float32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("tensor too short for an f32 element: %d bytes", len(buf))
	}
	return math.Float32frombits(binary.LittleEndian.Uint32(buf[:4])), nil
}

func encodeF32(buf []byte, v float32) {
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(v))
}
