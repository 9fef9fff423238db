package baseimage

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/rune-sh/rune/internal/shape"
	"github.com/rune-sh/rune/internal/tensor"
)

// serialEnvelope is the exact JSON shape spec.md's passthrough scenario
// requires: elements, dimensions, type_name, and the channel (output) id.
type serialEnvelope struct {
	Elements   any    `json:"elements"`
	Dimensions []int  `json:"dimensions"`
	TypeName   string `json:"type_name"`
	Channel    uint32 `json:"channel"`
}

// SerialOutput writes one JSON tensor envelope per Consume call to Writer.
// It must be constructed knowing the element type and dimensions of the
// single input tensor it will receive, since consume_output carries only
// raw bytes — callers derive Shape from the compiled Rune's `.rune_graph`
// section before wiring this up.
type SerialOutput struct {
	Writer  io.Writer
	Shape   shape.Shape
	channel uint32
}

// NewSerialOutput returns a SerialOutput writing envelopes to w for tensors
// of shape s.
func NewSerialOutput(w io.Writer, s shape.Shape) *SerialOutput {
	return &SerialOutput{Writer: w, Shape: s}
}

// SetChannel implements hostabi.ChannelAware: the registry stamps the
// allocated output id in here so Consume can report it as "channel".
func (o *SerialOutput) SetChannel(id uint32) { o.channel = id }

func (o *SerialOutput) Consume(data []byte) error {
	t := tensor.Tensor{Shape: o.Shape, Data: data}
	elements, err := tensorElements(t)
	if err != nil {
		return fmt.Errorf("baseimage: serial output: %w", err)
	}
	envelope := serialEnvelope{
		Elements:   elements,
		Dimensions: dimensionExtents(o.Shape.Dimensions),
		TypeName:   string(o.Shape.Element),
		Channel:    o.channel,
	}
	enc, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("baseimage: serial output: encoding envelope: %w", err)
	}
	if _, err := o.Writer.Write(append(enc, '\n')); err != nil {
		return fmt.Errorf("baseimage: serial output: %w", err)
	}
	return nil
}

func tensorElements(t tensor.Tensor) (any, error) {
	switch t.Shape.Element {
	case shape.U8:
		vals := t.Uint8()
		out := make([]int, len(vals))
		for i, v := range vals {
			out[i] = int(v)
		}
		return out, nil
	case shape.I8:
		out := make([]int, len(t.Data))
		for i, b := range t.Data {
			out[i] = int(int8(b))
		}
		return out, nil
	case shape.I32:
		return t.Int32(), nil
	case shape.F32:
		return t.Float32(), nil
	case shape.F64:
		return t.Float64(), nil
	case shape.UTF8:
		return t.String(), nil
	default:
		return nil, fmt.Errorf("no JSON rendering for element type %s", t.Shape.Element)
	}
}

func dimensionExtents(d shape.Dimensions) []int {
	dims := d.Dims()
	out := make([]int, len(dims))
	for i, dim := range dims {
		extent, _ := dim.Extent()
		out[i] = extent
	}
	return out
}

// TensorOutput captures each Consume call's raw bytes verbatim, for `rune
// run --capture`. It streams one record per Call rather than aggregating:
// Records() returns every record seen so far in arrival order, and a
// caller wanting only the latest Call's output should look at the last
// entry.
type TensorOutput struct {
	records [][]byte
}

// NewTensorOutput returns an empty TensorOutput.
func NewTensorOutput() *TensorOutput { return &TensorOutput{} }

func (o *TensorOutput) Consume(data []byte) error {
	o.records = append(o.records, append([]byte(nil), data...))
	return nil
}

// Records returns every captured record in arrival order.
func (o *TensorOutput) Records() [][]byte {
	return o.records
}
