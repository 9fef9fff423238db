// Package tensor implements the typed, shaped byte buffer that flows across
// the Host ABI boundary and through the built-in image's proc-block-free
// plumbing (passthrough, modulo, the sine example pipeline).
package tensor

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/rune-sh/rune/internal/shape"
)

// Tensor is an ElementType+Dimensions shape paired with its raw little-endian
// element bytes. The byte slice is always exactly ElementCount()*ByteWidth()
// long for a FixedRank, non-UTF8 shape; UTF8 tensors store raw text bytes and
// ElementCount is not meaningful for them.
type Tensor struct {
	Shape shape.Shape
	Data  []byte
}

// New builds a Tensor, zero-filling Data to the size implied by s. It panics
// if s is Dynamic, ERROR, or carries any variable-length dimension, since
// no concrete buffer size could be computed in any of those cases.
func New(s shape.Shape) Tensor {
	if hasUnknownExtent(s.Dimensions) || s.IsError() {
		panic("tensor: cannot allocate a buffer for a dynamic, variable-length, or ERROR shape")
	}
	n := elementCount(s.Dimensions)
	width := s.Element.ByteWidth()
	if s.Element == shape.UTF8 {
		width = 1
	}
	return Tensor{Shape: s, Data: make([]byte, n*width)}
}

// hasUnknownExtent reports whether d's element count cannot be computed:
// either the rank itself is unknown (Dynamic), or a known-rank dimension's
// extent is variable-length.
func hasUnknownExtent(d shape.Dimensions) bool {
	if d.IsDynamic() {
		return true
	}
	for _, dim := range d.Dims() {
		if dim.IsVariable() {
			return true
		}
	}
	return false
}

func elementCount(d shape.Dimensions) int {
	if d.IsDynamic() {
		return 0
	}
	n := 1
	for _, dim := range d.Dims() {
		extent, ok := dim.Extent()
		if !ok {
			return 0
		}
		n *= extent
	}
	return n
}

// ElementCount returns the number of elements implied by the tensor's shape.
func (t Tensor) ElementCount() int {
	return elementCount(t.Shape.Dimensions)
}

// Uint8 returns the buffer reinterpreted as a []uint8. It panics if the
// tensor's element type is not U8.
func (t Tensor) Uint8() []uint8 {
	t.mustElement(shape.U8)
	return append([]byte(nil), t.Data...)
}

// Float32 returns the buffer reinterpreted as a []float32 in the host's
// native order, decoded from the tensor's little-endian wire bytes. It
// panics if the tensor's element type is not F32.
func (t Tensor) Float32() []float32 {
	t.mustElement(shape.F32)
	n := len(t.Data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(t.Data[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out
}

// Float64 returns the buffer reinterpreted as a []float64. It panics if the
// tensor's element type is not F64.
func (t Tensor) Float64() []float64 {
	t.mustElement(shape.F64)
	n := len(t.Data) / 8
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint64(t.Data[i*8 : i*8+8])
		out[i] = math.Float64frombits(bits)
	}
	return out
}

// Int32 returns the buffer reinterpreted as a []int32. It panics if the
// tensor's element type is not I32.
func (t Tensor) Int32() []int32 {
	t.mustElement(shape.I32)
	n := len(t.Data) / 4
	out := make([]int32, n)
	for i := 0; i < n; i++ {
		out[i] = int32(binary.LittleEndian.Uint32(t.Data[i*4 : i*4+4]))
	}
	return out
}

// String returns the buffer decoded as UTF-8 text. It panics if the tensor's
// element type is not UTF8.
func (t Tensor) String() string {
	t.mustElement(shape.UTF8)
	return string(t.Data)
}

func (t Tensor) mustElement(want shape.ElementType) {
	if t.Shape.Element != want {
		panic(fmt.Sprintf("tensor: element type is %s, not %s", t.Shape.Element, want))
	}
}

// FromFloat32 builds a Tensor of the given dimensions from float32 values,
// encoding them as little-endian F32 wire bytes.
func FromFloat32(dims shape.Dimensions, values []float32) Tensor {
	data := make([]byte, len(values)*4)
	for i, v := range values {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(v))
	}
	return Tensor{Shape: shape.Shape{Element: shape.F32, Dimensions: dims}, Data: data}
}

// FromUint8 builds a Tensor of the given dimensions from raw u8 values.
func FromUint8(dims shape.Dimensions, values []uint8) Tensor {
	return Tensor{Shape: shape.Shape{Element: shape.U8, Dimensions: dims}, Data: append([]byte(nil), values...)}
}
