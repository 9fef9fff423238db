package baseimage

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/hostabi/value"
	"github.com/rune-sh/rune/internal/shape"
)

func TestRandCapability_Deterministic(t *testing.T) {
	a := NewRandCapability(42)
	b := NewRandCapability(42)

	bufA := make([]byte, 16)
	bufB := make([]byte, 16)
	n, err := a.Generate(bufA)
	require.NoError(t, err)
	require.Equal(t, 16, n)
	_, err = b.Generate(bufB)
	require.NoError(t, err)
	assert.Equal(t, bufA, bufB)
}

func TestRandCapability_Reseed(t *testing.T) {
	c := NewRandCapability(1)
	require.NoError(t, c.SetParameter("seed", value.Integer(99)))
	_, err := c.Generate(make([]byte, 4))
	require.NoError(t, err)
	assert.Error(t, c.SetParameter("n", value.Integer(1)))
}

func TestRawCapability_GenerateReflectsBuffer(t *testing.T) {
	c := NewRawCapability([]byte{1, 2, 3, 4})
	buf := make([]byte, 4)
	n, err := c.Generate(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte{1, 2, 3, 4}, buf)

	c.SetBuffer([]byte{9, 9})
	assert.Equal(t, []byte{9, 9}, c.Buffer())
}

func TestSerialOutput_WritesEnvelope(t *testing.T) {
	var buf bytes.Buffer
	s, err := shape.Parse("u8[4]")
	require.NoError(t, err)
	out := NewSerialOutput(&buf, s)
	out.SetChannel(7)

	require.NoError(t, out.Consume([]byte{1, 2, 3, 4}))

	var envelope serialEnvelope
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &envelope))
	assert.Equal(t, []any{float64(1), float64(2), float64(3), float64(4)}, envelope.Elements)
	assert.Equal(t, []int{4}, envelope.Dimensions)
	assert.Equal(t, "u8", envelope.TypeName)
	assert.Equal(t, uint32(7), envelope.Channel)
}

func TestTensorOutput_CapturesEachRecord(t *testing.T) {
	out := NewTensorOutput()
	require.NoError(t, out.Consume([]byte{1, 2}))
	require.NoError(t, out.Consume([]byte{3, 4}))
	assert.Equal(t, [][]byte{{1, 2}, {3, 4}}, out.Records())
}

func TestSineModel_Infer(t *testing.T) {
	in := make([]byte, 4)
	encodeF32(in, 0.8)
	out := make([]byte, 4)

	require.NoError(t, SineModel{}.Infer([][]byte{in}, [][]byte{out}))
	y, err := decodeF32(out)
	require.NoError(t, err)
	assert.InDelta(t, 0.717, y, 0.05)
}

func TestModuloModel_Infer(t *testing.T) {
	in := make([]byte, 4)
	encodeF32(in, 370)
	out := make([]byte, 4)

	require.NoError(t, ModuloModel{Divisor: 360}.Infer([][]byte{in}, [][]byte{out}))
	y, err := decodeF32(out)
	require.NoError(t, err)
	assert.InDelta(t, 10, y, 0.001)
}

func TestNoopModel_CopiesInput(t *testing.T) {
	in := []byte{1, 2, 3}
	out := make([]byte, 3)
	require.NoError(t, NoopModel{}.Infer([][]byte{in}, [][]byte{out}))
	assert.Equal(t, in, out)
}
