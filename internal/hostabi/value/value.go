// Package value implements the Value sum type exchanged across the Host ABI
// boundary: a small closed set of scalar kinds with a little-endian,
// type-tagged wire encoding.
package value

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Tag identifies which variant of Value a wire-encoded blob holds.
type Tag byte

const (
	TagByte    Tag = 0
	TagShort   Tag = 1
	TagInteger Tag = 2
	TagFloat   Tag = 3
)

func (t Tag) String() string {
	switch t {
	case TagByte:
		return "Byte"
	case TagShort:
		return "Short"
	case TagInteger:
		return "Integer"
	case TagFloat:
		return "Float"
	default:
		return "Unknown"
	}
}

// Value is a sum of {Byte(u8), Short(i16), Integer(i32), Float(f32)}, the
// parameter type accepted by request_capability_set_param.
type Value struct {
	tag    Tag
	byte_  uint8
	short  int16
	int_   int32
	float_ float32
}

func Byte(v uint8) Value    { return Value{tag: TagByte, byte_: v} }
func Short(v int16) Value   { return Value{tag: TagShort, short: v} }
func Integer(v int32) Value { return Value{tag: TagInteger, int_: v} }
func Float(v float32) Value { return Value{tag: TagFloat, float_: v} }

// Tag reports which variant v holds.
func (v Value) Tag() Tag { return v.tag }

// AsByte returns the Byte payload and whether v holds that variant.
func (v Value) AsByte() (uint8, bool) { return v.byte_, v.tag == TagByte }

// AsShort returns the Short payload and whether v holds that variant.
func (v Value) AsShort() (int16, bool) { return v.short, v.tag == TagShort }

// AsInteger returns the Integer payload and whether v holds that variant.
func (v Value) AsInteger() (int32, bool) { return v.int_, v.tag == TagInteger }

// AsFloat returns the Float payload and whether v holds that variant.
func (v Value) AsFloat() (float32, bool) { return v.float_, v.tag == TagFloat }

// Encode serializes v as a type tag byte followed by its little-endian
// payload: 1 byte for Byte, 2 for Short, 4 for Integer or Float.
func Encode(v Value) []byte {
	switch v.tag {
	case TagByte:
		return []byte{byte(TagByte), v.byte_}
	case TagShort:
		buf := make([]byte, 3)
		buf[0] = byte(TagShort)
		binary.LittleEndian.PutUint16(buf[1:], uint16(v.short))
		return buf
	case TagInteger:
		buf := make([]byte, 5)
		buf[0] = byte(TagInteger)
		binary.LittleEndian.PutUint32(buf[1:], uint32(v.int_))
		return buf
	case TagFloat:
		buf := make([]byte, 5)
		buf[0] = byte(TagFloat)
		binary.LittleEndian.PutUint32(buf[1:], math.Float32bits(v.float_))
		return buf
	default:
		panic(fmt.Sprintf("value: unknown tag %v", v.tag))
	}
}

// Decode parses the wire encoding produced by Encode.
func Decode(buf []byte) (Value, error) {
	if len(buf) < 1 {
		return Value{}, fmt.Errorf("value: empty buffer")
	}
	tag := Tag(buf[0])
	payload := buf[1:]
	switch tag {
	case TagByte:
		if len(payload) < 1 {
			return Value{}, fmt.Errorf("value: short Byte payload")
		}
		return Byte(payload[0]), nil
	case TagShort:
		if len(payload) < 2 {
			return Value{}, fmt.Errorf("value: short Short payload")
		}
		return Short(int16(binary.LittleEndian.Uint16(payload))), nil
	case TagInteger:
		if len(payload) < 4 {
			return Value{}, fmt.Errorf("value: short Integer payload")
		}
		return Integer(int32(binary.LittleEndian.Uint32(payload))), nil
	case TagFloat:
		if len(payload) < 4 {
			return Value{}, fmt.Errorf("value: short Float payload")
		}
		return Float(math.Float32frombits(binary.LittleEndian.Uint32(payload))), nil
	default:
		return Value{}, fmt.Errorf("value: unknown tag %d", buf[0])
	}
}

// DecodeTyped decodes a payload whose tag is known out-of-band, as used by
// request_capability_set_param's explicit val_type parameter (the tag is
// not repeated in val_ptr/val_len's bytes there).
func DecodeTyped(tag Tag, payload []byte) (Value, error) {
	return Decode(append([]byte{byte(tag)}, payload...))
}
