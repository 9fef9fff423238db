package value

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTrip(t *testing.T) {
	cases := []Value{
		Byte(0xFE),
		Short(-1234),
		Integer(-99999),
		Float(3.5),
	}
	for _, v := range cases {
		buf := Encode(v)
		got, err := Decode(buf)
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}
}

func TestEncode_TagPrefix(t *testing.T) {
	buf := Encode(Integer(1))
	assert.Equal(t, byte(TagInteger), buf[0])
	assert.Len(t, buf, 5)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode(nil)
	assert.Error(t, err)

	_, err = Decode([]byte{byte(TagInteger), 1, 2})
	assert.Error(t, err)

	_, err = Decode([]byte{99})
	assert.Error(t, err)
}

func TestAccessors(t *testing.T) {
	v := Float(1.25)
	f, ok := v.AsFloat()
	assert.True(t, ok)
	assert.Equal(t, float32(1.25), f)

	_, ok = v.AsByte()
	assert.False(t, ok)
}
