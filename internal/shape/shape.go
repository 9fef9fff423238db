// Package shape implements the tensor shape language: an element type paired
// with a dimensions descriptor, and the exact round-trip textual form
// "<element>[<dim>, <dim>, ...]" used throughout Runefiles and diagnostics.
package shape

import (
	"fmt"
	"strconv"
	"strings"
)

// ElementType is the scalar type carried by every element of a tensor.
type ElementType string

const (
	U8   ElementType = "u8"
	I8   ElementType = "i8"
	U16  ElementType = "u16"
	I16  ElementType = "i16"
	U32  ElementType = "u32"
	I32  ElementType = "i32"
	U64  ElementType = "u64"
	I64  ElementType = "i64"
	F32  ElementType = "f32"
	F64  ElementType = "f64"
	UTF8 ElementType = "utf8"

	// Error is reserved for shapes that failed to parse; it is not a real
	// element type and must never reach codegen.
	Error ElementType = "ERROR"
)

// validElementTypes lists every ElementType accepted by Parse, in the order
// they should be tried/displayed.
var validElementTypes = []ElementType{U8, I8, U16, I16, U32, I32, U64, I64, F32, F64, UTF8}

// Valid reports whether e is one of the eleven recognized element types.
func (e ElementType) Valid() bool {
	for _, v := range validElementTypes {
		if e == v {
			return true
		}
	}
	return false
}

// ByteWidth returns the size in bytes of a single element, or 0 for UTF8
// (variable width) and Error.
func (e ElementType) ByteWidth() int {
	switch e {
	case U8, I8:
		return 1
	case U16, I16:
		return 2
	case U32, I32, F32:
		return 4
	case U64, I64, F64:
		return 8
	default:
		return 0
	}
}

// Dimension is one axis of a FixedRank shape: either a fixed extent or a
// variable-length marker (`_` in textual form).
type Dimension struct {
	variable bool
	extent   int
}

// Fixed returns a Dimension with a known positive extent.
func Fixed(extent int) Dimension {
	return Dimension{extent: extent}
}

// VariableLength returns a Dimension whose extent is not known until runtime.
func VariableLength() Dimension {
	return Dimension{variable: true}
}

// IsVariable reports whether this dimension is the `_` marker.
func (d Dimension) IsVariable() bool { return d.variable }

// Extent returns the fixed extent and true, or (0, false) if this dimension
// is variable-length.
func (d Dimension) Extent() (int, bool) {
	if d.variable {
		return 0, false
	}
	return d.extent, true
}

func (d Dimension) String() string {
	if d.variable {
		return "_"
	}
	return strconv.Itoa(d.extent)
}

// Dimensions is either Dynamic (rank itself unknown) or FixedRank, a known
// sequence of Dimension.
type Dimensions struct {
	dynamic bool
	dims    []Dimension
}

// Dynamic returns a Dimensions value whose rank is unknown.
func Dynamic() Dimensions {
	return Dimensions{dynamic: true}
}

// FixedRank returns a Dimensions value with a known, ordered sequence of
// dimensions. Rank is len(dims); an empty slice is a valid rank-0 shape.
func FixedRank(dims []Dimension) Dimensions {
	return Dimensions{dims: dims}
}

// IsDynamic reports whether the rank itself is unknown.
func (d Dimensions) IsDynamic() bool { return d.dynamic }

// Dims returns the fixed dimension sequence. It is empty when IsDynamic is
// true.
func (d Dimensions) Dims() []Dimension {
	return d.dims
}

// Rank returns len(Dims()), or -1 if dynamic.
func (d Dimensions) Rank() int {
	if d.dynamic {
		return -1
	}
	return len(d.dims)
}

func (d Dimensions) String() string {
	if d.dynamic {
		return "*"
	}
	parts := make([]string, len(d.dims))
	for i, dim := range d.dims {
		parts[i] = dim.String()
	}
	return strings.Join(parts, ", ")
}

// Shape is an (ElementType, Dimensions) pair describing a tensor edge.
type Shape struct {
	Element    ElementType
	Dimensions Dimensions
}

// ErrorShape is the sentinel shape assigned when parsing fails, per the
// parser's "unparseable shape -> ERROR type" failure mode.
var ErrorShape = Shape{Element: Error, Dimensions: Dynamic()}

// New constructs a fixed-rank Shape from an element type and a list of
// extents. A zero or negative extent panics; use VariableLength via Parse
// for the `_` marker instead.
func New(element ElementType, extents ...int) Shape {
	dims := make([]Dimension, len(extents))
	for i, e := range extents {
		if e <= 0 {
			panic(fmt.Sprintf("shape: non-positive fixed dimension %d", e))
		}
		dims[i] = Fixed(e)
	}
	return Shape{Element: element, Dimensions: FixedRank(dims)}
}

// String renders the canonical textual form "<element>[<dim>, <dim>, ...]".
// Parse(s.String()) always reproduces an equal Shape.
func (s Shape) String() string {
	return fmt.Sprintf("%s[%s]", s.Element, s.Dimensions.String())
}

// IsError reports whether this is the ERROR sentinel shape.
func (s Shape) IsError() bool {
	return s.Element == Error
}

// Parse decodes the canonical textual form "<element>[<dim>, <dim>, ...]".
// A bare "*" inside the brackets yields a Dynamic Dimensions (rank itself
// unknown); a "_" in dimension position is a VariableLength dimension
// within an otherwise known rank, so "f32[_]" is a rank-1 FixedRank shape,
// distinct from the rank-unknown "f32[*]". Any other malformed input
// yields (ErrorShape, err) so callers that only track diagnostics can
// discard err and still propagate ErrorShape.
func Parse(text string) (Shape, error) {
	open := strings.IndexByte(text, '[')
	if open < 0 || !strings.HasSuffix(text, "]") {
		return ErrorShape, fmt.Errorf("shape: missing brackets in %q", text)
	}
	elemStr := text[:open]
	element := ElementType(elemStr)
	if !element.Valid() {
		return ErrorShape, fmt.Errorf("shape: unknown element type %q", elemStr)
	}

	body := text[open+1 : len(text)-1]
	body = strings.TrimSpace(body)
	if body == "*" {
		return Shape{Element: element, Dimensions: Dynamic()}, nil
	}
	if body == "" {
		return Shape{Element: element, Dimensions: FixedRank(nil)}, nil
	}

	rawDims := strings.Split(body, ",")
	dims := make([]Dimension, len(rawDims))
	for i, raw := range rawDims {
		raw = strings.TrimSpace(raw)
		if raw == "_" {
			dims[i] = VariableLength()
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return ErrorShape, fmt.Errorf("shape: invalid dimension %q in %q", raw, text)
		}
		dims[i] = Fixed(n)
	}
	return Shape{Element: element, Dimensions: FixedRank(dims)}, nil
}

// Equal reports whether two shapes describe the same element type and
// dimension sequence. Two Dynamic dimensions are equal to each other
// regardless of element type's rank history.
func Equal(a, b Shape) bool {
	if a.Element != b.Element {
		return false
	}
	if a.Dimensions.IsDynamic() != b.Dimensions.IsDynamic() {
		return false
	}
	if a.Dimensions.IsDynamic() {
		return true
	}
	ad, bd := a.Dimensions.Dims(), b.Dimensions.Dims()
	if len(ad) != len(bd) {
		return false
	}
	for i := range ad {
		if ad[i] != bd[i] {
			return false
		}
	}
	return true
}
