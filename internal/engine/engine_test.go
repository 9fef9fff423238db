package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/hostabi/value"
	"github.com/rune-sh/rune/internal/registry"
)

func buildTestWASM(t *testing.T) []byte {
	wasmBytes := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}

	graphPayload, err := artifact.EncodeGraph(artifact.Graph{
		Nodes: []artifact.GraphNode{
			{ID: 1, Name: "raw", Kind: "Capability", Subkind: "RAW", Outputs: []uint32{1}},
			{ID: 2, Name: "out", Kind: "Sink", Subkind: "SERIAL", Inputs: []uint32{1}},
		},
		Tensors: []artifact.GraphTensor{{ID: 1, Shape: "u8[4]", Producer: 1}},
	})
	require.NoError(t, err)
	wasmBytes, err = artifact.AppendCustomSection(wasmBytes, artifact.SectionGraph, graphPayload)
	require.NoError(t, err)

	resourceSection := artifact.EncodeResourceSection("weights", []byte{1, 2, 3})
	wasmBytes, err = artifact.AppendCustomSection(wasmBytes, artifact.SectionResource, resourceSection)
	require.NoError(t, err)
	return wasmBytes
}

func TestGraphMetadata(t *testing.T) {
	caps, outs, resources, err := GraphMetadata(buildTestWASM(t))
	require.NoError(t, err)

	require.Contains(t, caps, uint32(1))
	assert.Equal(t, "raw", caps[1].Name)

	require.Contains(t, outs, uint32(2))
	assert.Equal(t, "out", outs[2].Name)

	require.Len(t, resources, 1)
	assert.Equal(t, "weights", resources[0].Name)
}

type fakeBufferedCapability struct{ buf []byte }

func (c *fakeBufferedCapability) Generate(buf []byte) (int, error) { return copy(buf, c.buf), nil }
func (c *fakeBufferedCapability) SetParameter(name string, v value.Value) error { return nil }
func (c *fakeBufferedCapability) Buffer() []byte                               { return c.buf }

func TestInputsFromRegistry_OnlyBufferedCapabilities(t *testing.T) {
	reg := registry.New()
	buffered := &fakeBufferedCapability{buf: []byte{9, 9}}
	id := reg.RegisterCapability(buffered)

	inputs := InputsFromRegistry(reg)
	require.Contains(t, inputs, id)
	assert.Equal(t, []byte{9, 9}, inputs[id])
}
