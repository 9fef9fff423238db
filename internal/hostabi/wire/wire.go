// Package wire implements the binary layouts crossing the Host ABI boundary
// that are not themselves Values: the Tensor wire struct and the JSON log
// record emitted by _debug.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/rune-sh/rune/internal/shape"
	"github.com/rune-sh/rune/internal/tensor"
)

// ElementTypeTag is the wire-level element-type discriminant used by
// rune_model_infer's Tensor struct, distinct from shape.ElementType's
// textual form.
type ElementTypeTag uint32

const (
	TagInteger    ElementTypeTag = 1 // i32
	TagFloat      ElementTypeTag = 2 // f32
	TagByte       ElementTypeTag = 5 // u8
	TagShort      ElementTypeTag = 6 // i16
	TagSignedByte ElementTypeTag = 7 // i8
)

var tagToElement = map[ElementTypeTag]shape.ElementType{
	TagInteger:    shape.I32,
	TagFloat:      shape.F32,
	TagByte:       shape.U8,
	TagShort:      shape.I16,
	TagSignedByte: shape.I8,
}

var elementToTag = map[shape.ElementType]ElementTypeTag{
	shape.I32: TagInteger,
	shape.F32: TagFloat,
	shape.U8:  TagByte,
	shape.I16: TagShort,
	shape.I8:  TagSignedByte,
}

// ElementTypeFromTag maps a wire tag back to shape.ElementType.
func ElementTypeFromTag(tag ElementTypeTag) (shape.ElementType, error) {
	e, ok := tagToElement[tag]
	if !ok {
		return shape.Error, fmt.Errorf("wire: unknown element type tag %d", tag)
	}
	return e, nil
}

// TagFromElementType maps a shape.ElementType to its wire tag.
func TagFromElementType(e shape.ElementType) (ElementTypeTag, error) {
	t, ok := elementToTag[e]
	if !ok {
		return 0, fmt.Errorf("wire: element type %s has no tensor-wire tag", e)
	}
	return t, nil
}

// EncodeTensorHeader serializes the {element_type, rank, dims} portion of
// the Tensor wire struct, little-endian. The caller appends raw element
// data separately (it is read/written directly from/to linear memory).
func EncodeTensorHeader(t tensor.Tensor) ([]byte, error) {
	tag, err := TagFromElementType(t.Shape.Element)
	if err != nil {
		return nil, err
	}
	dims := t.Shape.Dimensions.Dims()
	buf := make([]byte, 8+4*len(dims))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(tag))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(len(dims)))
	for i, d := range dims {
		extent, ok := d.Extent()
		if !ok {
			return nil, fmt.Errorf("wire: cannot encode variable-length dimension %d on the wire", i)
		}
		binary.LittleEndian.PutUint32(buf[8+4*i:12+4*i], uint32(extent))
	}
	return buf, nil
}

// DecodeTensorHeader parses the {element_type, rank, dims} prefix produced
// by EncodeTensorHeader, returning the decoded Shape and the number of
// header bytes consumed.
func DecodeTensorHeader(buf []byte) (shape.Shape, int, error) {
	if len(buf) < 8 {
		return shape.ErrorShape, 0, fmt.Errorf("wire: tensor header truncated")
	}
	tag := ElementTypeTag(binary.LittleEndian.Uint32(buf[0:4]))
	rank := int(binary.LittleEndian.Uint32(buf[4:8]))
	want := 8 + 4*rank
	if len(buf) < want {
		return shape.ErrorShape, 0, fmt.Errorf("wire: tensor header truncated: want %d bytes, have %d", want, len(buf))
	}
	element, err := ElementTypeFromTag(tag)
	if err != nil {
		return shape.ErrorShape, 0, err
	}
	dims := make([]shape.Dimension, rank)
	for i := 0; i < rank; i++ {
		extent := binary.LittleEndian.Uint32(buf[8+4*i : 12+4*i])
		dims[i] = shape.Fixed(int(extent))
	}
	return shape.Shape{Element: element, Dimensions: shape.FixedRank(dims)}, want, nil
}

// LogLevel is one of the five severities a Rune's _debug call may report.
type LogLevel string

const (
	LevelError LogLevel = "Error"
	LevelWarn  LogLevel = "Warn"
	LevelInfo  LogLevel = "Info"
	LevelDebug LogLevel = "Debug"
	LevelTrace LogLevel = "Trace"
)

// LogRecord is the JSON object a Rune passes to _debug.
type LogRecord struct {
	Level      LogLevel `json:"level"`
	Message    string   `json:"message"`
	Target     string   `json:"target"`
	ModulePath string   `json:"module_path,omitempty"`
	File       string   `json:"file,omitempty"`
	Line       *uint32  `json:"line,omitempty"`
}

// DecodeLogRecord parses the JSON bytes a Rune passed to _debug.
func DecodeLogRecord(buf []byte) (LogRecord, error) {
	var rec LogRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return LogRecord{}, fmt.Errorf("wire: malformed log record: %w", err)
	}
	return rec, nil
}
