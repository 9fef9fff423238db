package hostabi

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/hostabi/value"
	"github.com/rune-sh/rune/internal/registry"
	"github.com/rune-sh/rune/internal/shape"
)

// fakeMemory is a flat byte slice standing in for a Rune's linear memory.
type fakeMemory struct {
	buf []byte
}

func newFakeMemory(size int) *fakeMemory {
	return &fakeMemory{buf: make([]byte, size)}
}

func (m *fakeMemory) Read(offset, length uint32) ([]byte, bool) {
	if uint64(offset)+uint64(length) > uint64(len(m.buf)) {
		return nil, false
	}
	out := make([]byte, length)
	copy(out, m.buf[offset:offset+length])
	return out, true
}

func (m *fakeMemory) Write(offset uint32, data []byte) bool {
	if uint64(offset)+uint64(len(data)) > uint64(len(m.buf)) {
		return false
	}
	copy(m.buf[offset:], data)
	return true
}

func (m *fakeMemory) put(offset uint32, data []byte) {
	copy(m.buf[offset:], data)
}

type fakeCapability struct {
	data     []byte
	lastName string
	lastVal  value.Value
}

func (c *fakeCapability) Generate(buf []byte) (int, error) {
	return copy(buf, c.data), nil
}

func (c *fakeCapability) SetParameter(name string, v value.Value) error {
	c.lastName, c.lastVal = name, v
	return nil
}

type fakeOutput struct{ received []byte }

func (o *fakeOutput) Consume(data []byte) error {
	o.received = append(o.received, data...)
	return nil
}

type fakeResourceProvider struct{ files map[string]string }

func (p *fakeResourceProvider) Open(name string) (io.Reader, error) {
	content, ok := p.files[name]
	if !ok {
		return nil, errors.New("not found")
	}
	return strings.NewReader(content), nil
}

func newTestDispatcher() (*Dispatcher, *fakeCapability, *fakeOutput) {
	cap := &fakeCapability{data: []byte{1, 2, 3, 4}}
	out := &fakeOutput{}
	d := NewDispatcher(
		registry.New(),
		&fakeResourceProvider{files: map[string]string{"greeting": "hello"}},
		func(kind CapabilityKind) (registry.Capability, error) { return cap, nil },
		func(kind OutputKind) (registry.Output, error) { return out, nil },
		nil,
		nil,
	)
	return d, cap, out
}

func TestDispatcher_RequestCapabilityAndGenerate(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(64)

	id := d.RequestCapability(uint32(CapabilityRaw))
	assert.Equal(t, uint32(1), id)

	n := d.RequestProviderResponse(mem, 0, 4, id)
	assert.Equal(t, uint32(4), n)

	data, ok := mem.Read(0, 4)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, data)
}

func TestDispatcher_SetParameter(t *testing.T) {
	d, cap, _ := newTestDispatcher()
	mem := newFakeMemory(64)

	id := d.RequestCapability(uint32(CapabilityRand))
	mem.put(0, []byte("n"))
	valBytes := value.Encode(value.Integer(42))[1:] // strip tag; passed out-of-band as val_type
	mem.put(8, valBytes)

	rc := d.RequestCapabilitySetParam(mem, id, 0, 1, 8, uint32(len(valBytes)), uint32(value.TagInteger))
	assert.Equal(t, uint32(0), rc)
	assert.Equal(t, "n", cap.lastName)
	v, ok := cap.lastVal.AsInteger()
	assert.True(t, ok)
	assert.Equal(t, int32(42), v)
}

func TestDispatcher_RequestOutputAndConsume(t *testing.T) {
	d, _, out := newTestDispatcher()
	mem := newFakeMemory(64)
	mem.put(0, []byte("hi!"))

	id := d.RequestOutput(uint32(OutputSerial))
	rc := d.ConsumeOutput(mem, id, 0, 3)
	assert.Equal(t, uint32(0), rc)
	assert.Equal(t, []byte("hi!"), out.received)
}

func TestDispatcher_ResourceOpenAndRead(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(64)
	mem.put(0, []byte("greeting"))

	handle := d.RuneResourceOpen(mem, 0, 8)
	require.Greater(t, handle, int32(0))

	n := d.RuneResourceRead(mem, handle, 20, 10)
	assert.Equal(t, int32(5), n)
	data, _ := mem.Read(20, 5)
	assert.Equal(t, []byte("hello"), data)
}

func TestDispatcher_ResourceOpenMissing(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(64)
	mem.put(0, []byte("nope"))
	handle := d.RuneResourceOpen(mem, 0, 4)
	assert.Equal(t, int32(-1), handle)
}

func TestDispatcher_Debug(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(128)
	rec := []byte(`{"level":"Info","message":"hi","target":"rune"}`)
	mem.put(0, rec)
	rc := d.Debug(mem, 0, uint32(len(rec)))
	assert.Equal(t, uint32(0), rc)
}

type fakeModel struct {
	declaredIn, declaredOut []shape.Shape
}

func (m *fakeModel) Infer(inputs [][]byte, outputs [][]byte) error {
	copy(outputs[0], inputs[0])
	return nil
}

func TestDispatcher_ModelLoadAcceptsMatchingShapes(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(256)

	inShape, _ := shape.Parse("f32[1]")
	outShape, _ := shape.Parse("f32[1]")
	d.ModelFactory = func(data []byte) (registry.Model, []shape.Shape, []shape.Shape, error) {
		return &fakeModel{}, []shape.Shape{inShape}, []shape.Shape{outShape}, nil
	}

	// lay out one shape-string "f32[1]" at offset 100
	shapeText := []byte("f32[1]")
	mem.put(100, shapeText)
	// shape descriptor {ptr, len} at offset 0
	mem.put(0, encodeU32(100))
	mem.put(4, encodeU32(uint32(len(shapeText))))

	id := d.RuneModelLoad(mem, 0, 0, 0, 0, 0, 1, 0, 1)
	require.NotEqual(t, uint32(0), id)
}

func TestDispatcher_ModelLoadRejectsOutputShapeMismatch(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(256)

	inShape, _ := shape.Parse("f32[1]")
	declaredOut, _ := shape.Parse("f32[1]")
	d.ModelFactory = func(data []byte) (registry.Model, []shape.Shape, []shape.Shape, error) {
		return &fakeModel{}, []shape.Shape{inShape}, []shape.Shape{declaredOut}, nil
	}

	// input shape string "f32[1]" at 100, requested output shape "u8[4]" at 120
	mem.put(100, []byte("f32[1]"))
	mem.put(0, encodeU32(100))
	mem.put(4, encodeU32(6))

	mem.put(120, []byte("u8[4]"))
	mem.put(8, encodeU32(120))
	mem.put(12, encodeU32(5))

	id := d.RuneModelLoad(mem, 0, 0, 0, 0, 0, 1, 8, 1)
	assert.Equal(t, uint32(0), id, "a requested output shape that disagrees with the model's declared shape must fail to load")
}

func encodeU32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestDispatcher_TfmPreloadAndInvoke(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(256)

	d.ModelFactory = func(data []byte) (registry.Model, []shape.Shape, []shape.Shape, error) {
		return &fakeModel{}, nil, nil, nil
	}

	modelBytes := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	mem.put(0, modelBytes)
	id := d.TfmPreloadModel(mem, 0, uint32(len(modelBytes)), 4, 4)
	require.NotEqual(t, uint32(0), id)

	mem.put(100, []byte{1, 2, 3, 4})
	rc := d.TfmModelInvoke(mem, id, 100, 4, 200, 4)
	assert.Equal(t, uint32(0), rc)
	out, ok := mem.Read(200, 4)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

type channelAwareOutput struct {
	fakeOutput
	channel uint32
}

func (o *channelAwareOutput) SetChannel(id uint32) { o.channel = id }

func TestDispatcher_RequestOutputStampsChannel(t *testing.T) {
	out := &channelAwareOutput{}
	d := NewDispatcher(
		registry.New(),
		nil,
		nil,
		func(kind OutputKind) (registry.Output, error) { return out, nil },
		nil,
		nil,
	)

	id := d.RequestOutput(uint32(OutputSerial))
	assert.Equal(t, id, out.channel)
}

func TestDispatcher_TfmModelInvokeUnknownID(t *testing.T) {
	d, _, _ := newTestDispatcher()
	mem := newFakeMemory(64)
	rc := d.TfmModelInvoke(mem, 999, 0, 0, 0, 0)
	assert.Equal(t, uint32(1), rc)
}
