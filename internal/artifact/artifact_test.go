package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func minimalWASM() []byte {
	return append(append([]byte{}, wasmMagic...), 0x01, 0x00, 0x00, 0x00)
}

func TestAppendAndReadCustomSection(t *testing.T) {
	wasmBytes := minimalWASM()
	payload := []byte(`{"build_version":"v0.1.0"}`)

	out, err := AppendCustomSection(wasmBytes, SectionVersion, payload)
	require.NoError(t, err)

	sections, err := ReadCustomSections(out)
	require.NoError(t, err)
	assert.Equal(t, payload, sections[SectionVersion])
}

func TestAppendCustomSection_MultipleSections(t *testing.T) {
	wasmBytes := minimalWASM()
	out, err := AppendCustomSection(wasmBytes, SectionVersion, []byte("v1"))
	require.NoError(t, err)
	out, err = AppendCustomSection(out, SectionGraph, []byte("graph-json"))
	require.NoError(t, err)

	sections, err := ReadCustomSections(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), sections[SectionVersion])
	assert.Equal(t, []byte("graph-json"), sections[SectionGraph])
}

func TestAppendCustomSection_RejectsNonWASM(t *testing.T) {
	_, err := AppendCustomSection([]byte("not wasm"), SectionVersion, nil)
	assert.Error(t, err)
}

func TestResourceSection_RoundTrip(t *testing.T) {
	encoded := EncodeResourceSection("model.tflite", []byte{1, 2, 3, 4, 5})
	name, data, rest, err := DecodeInlineResource(encoded)
	require.NoError(t, err)
	assert.Equal(t, "model.tflite", name)
	assert.Equal(t, []byte{1, 2, 3, 4, 5}, data)
	assert.Empty(t, rest)
}

func TestResourceSection_MultipleConcatenated(t *testing.T) {
	a := EncodeResourceSection("a", []byte("aaa"))
	b := EncodeResourceSection("b", []byte("bb"))
	buf := append(a, b...)

	name1, data1, rest, err := DecodeInlineResource(buf)
	require.NoError(t, err)
	assert.Equal(t, "a", name1)
	assert.Equal(t, []byte("aaa"), data1)

	name2, data2, rest2, err := DecodeInlineResource(rest)
	require.NoError(t, err)
	assert.Equal(t, "b", name2)
	assert.Equal(t, []byte("bb"), data2)
	assert.Empty(t, rest2)
}

func TestDecodeInlineResource_Truncated(t *testing.T) {
	_, _, _, err := DecodeInlineResource([]byte{0, 0})
	assert.Error(t, err)
}

func TestVersionSection_RoundTrip(t *testing.T) {
	v := VersionInfo{BuildVersion: "v1.2.3", Toolchain: "go1.26.2"}
	buf, err := EncodeVersion(v)
	require.NoError(t, err)
	got, err := DecodeVersion(buf)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestLoad_RawWASM(t *testing.T) {
	wasmBytes := minimalWASM()
	out, err := AppendCustomSection(wasmBytes, SectionVersion, []byte("v1"))
	require.NoError(t, err)

	art, err := Load(out)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), art.Sections[SectionVersion])
}

func TestLoad_ZipPackaged(t *testing.T) {
	wasmBytes := minimalWASM()
	out, err := AppendCustomSection(wasmBytes, SectionGraph, []byte("g"))
	require.NoError(t, err)

	packed, err := Pack(out)
	require.NoError(t, err)

	art, err := Load(packed)
	require.NoError(t, err)
	assert.Equal(t, []byte("g"), art.Sections[SectionGraph])
}

func TestLoad_RejectsGarbage(t *testing.T) {
	_, err := Load([]byte("this is nothing at all"))
	assert.Error(t, err)
}
