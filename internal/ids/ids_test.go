package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInterner_AllocIsMonotonic(t *testing.T) {
	in := NewInterner[NodeID]()
	a := in.Alloc()
	b := in.Alloc()
	c := in.Alloc()
	assert.Equal(t, NodeID(1), a)
	assert.Equal(t, NodeID(2), b)
	assert.Equal(t, NodeID(3), c)
	assert.Equal(t, 4, in.Len())
}

func TestErrorSentinels(t *testing.T) {
	assert.True(t, ErrorNode.IsError())
	assert.True(t, ErrorResource.IsError())
	assert.True(t, ErrorTensor.IsError())

	in := NewInterner[NodeID]()
	assert.False(t, in.Alloc().IsError())
}

func TestFamilyString(t *testing.T) {
	for _, tc := range []struct {
		f    Family
		want string
	}{
		{FamilyNode, "Node"},
		{FamilyResource, "Resource"},
		{FamilyTensor, "Tensor"},
		{FamilyType, "Type"},
		{Family(99), "Unknown"},
	} {
		assert.Equal(t, tc.want, tc.f.String())
	}
}

func TestIDStringers(t *testing.T) {
	assert.Equal(t, "Node#1", NodeID(1).String())
	assert.Equal(t, "Resource#2", ResourceID(2).String())
	assert.Equal(t, "Tensor#3", TensorID(3).String())
	assert.Equal(t, "Type#4", TypeID(4).String())
}
