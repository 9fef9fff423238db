package shape

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_RoundTrip(t *testing.T) {
	for _, text := range []string{
		"u8[4]",
		"f32[1, 1]",
		"f32[_]",
		"i16[2, _, 8]",
		"utf8[]",
		"f32[*]",
	} {
		t.Run(text, func(t *testing.T) {
			s, err := Parse(text)
			require.NoError(t, err)
			assert.Equal(t, text, s.String())
		})
	}
}

func TestParse_Dynamic(t *testing.T) {
	s, err := Parse("f32[*]")
	require.NoError(t, err)
	assert.True(t, s.Dimensions.IsDynamic())
	assert.Equal(t, -1, s.Dimensions.Rank())
}

// A rank-1 shape with a single variable-length dimension must not collide,
// textually or structurally, with a Dynamic (rank-unknown) shape.
func TestParse_VariableLengthDimensionIsNotDynamic(t *testing.T) {
	s, err := Parse("f32[_]")
	require.NoError(t, err)
	assert.False(t, s.Dimensions.IsDynamic())
	assert.Equal(t, 1, s.Dimensions.Rank())
	assert.NotEqual(t, "f32[*]", s.String())

	d, err := Parse("f32[*]")
	require.NoError(t, err)
	assert.NotEqual(t, s.String(), d.String())
	assert.False(t, Equal(s, d))
}

func TestParse_FixedRank(t *testing.T) {
	s, err := Parse("u8[1, 2, 3]")
	require.NoError(t, err)
	assert.False(t, s.Dimensions.IsDynamic())
	assert.Equal(t, 3, s.Dimensions.Rank())
	dims := s.Dimensions.Dims()
	ext, ok := dims[1].Extent()
	assert.True(t, ok)
	assert.Equal(t, 2, ext)
}

func TestParse_VariableLengthDimension(t *testing.T) {
	s, err := Parse("i32[2, _, 8]")
	require.NoError(t, err)
	dims := s.Dimensions.Dims()
	assert.True(t, dims[1].IsVariable())
	_, ok := dims[1].Extent()
	assert.False(t, ok)
}

func TestParse_Errors(t *testing.T) {
	for _, text := range []string{
		"bogus[4]",
		"u8 4]",
		"u8[4",
		"u8[4, x]",
		"u8[0]",
		"u8[-1]",
	} {
		t.Run(text, func(t *testing.T) {
			s, err := Parse(text)
			assert.Error(t, err)
			assert.True(t, s.IsError())
		})
	}
}

func TestNew(t *testing.T) {
	s := New(F32, 1, 1)
	assert.Equal(t, "f32[1, 1]", s.String())
}

func TestEqual(t *testing.T) {
	a, _ := Parse("u8[4]")
	b, _ := Parse("u8[4]")
	c, _ := Parse("u8[5]")
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))

	d1, _ := Parse("f32[*]")
	d2, _ := Parse("f32[*]")
	assert.True(t, Equal(d1, d2))
}

func TestElementType_ByteWidth(t *testing.T) {
	assert.Equal(t, 1, U8.ByteWidth())
	assert.Equal(t, 4, F32.ByteWidth())
	assert.Equal(t, 8, F64.ByteWidth())
	assert.Equal(t, 0, UTF8.ByteWidth())
	assert.Equal(t, 0, Error.ByteWidth())
}

func TestElementType_Valid(t *testing.T) {
	assert.True(t, U8.Valid())
	assert.False(t, Error.Valid())
	assert.False(t, ElementType("bogus").Valid())
}
