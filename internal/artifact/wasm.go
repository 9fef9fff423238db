// Package artifact implements reading and writing the custom WebAssembly
// sections a compiled Rune carries, and the dual-format (raw WASM vs ZIP)
// artifact reader.
package artifact

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// wasmMagic is the four-byte header every WebAssembly binary module starts
// with.
var wasmMagic = []byte{0x00, 0x61, 0x73, 0x6d}

const customSectionID = 0x00

// AppendCustomSection appends one custom section (id 0, named `name`,
// carrying `payload`) to the end of a WASM module's section list. Custom
// sections are valid anywhere in a module per the WASM spec, so appending
// is sufficient; it never needs to parse the rest of the module.
func AppendCustomSection(wasmBytes []byte, name string, payload []byte) ([]byte, error) {
	if !bytes.HasPrefix(wasmBytes, wasmMagic) {
		return nil, fmt.Errorf("artifact: not a WASM binary (missing magic header)")
	}

	var body bytes.Buffer
	writeULEB128(&body, uint64(len(name)))
	body.WriteString(name)
	body.Write(payload)

	var out bytes.Buffer
	out.Write(wasmBytes)
	out.WriteByte(customSectionID)
	writeULEB128(&out, uint64(body.Len()))
	out.Write(body.Bytes())
	return out.Bytes(), nil
}

// Section is one parsed WASM module section.
type Section struct {
	ID      byte
	Name    string // non-empty only for custom sections (ID == 0)
	Payload []byte
}

// ReadCustomSections parses wasmBytes and returns every custom section
// keyed by name. Entries sharing a name are concatenated in file order
// rather than overwritten: codegen appends one `.rune_resource` section per
// declared resource under the same name, and DecodeInlineResource expects to
// walk all of them out of a single concatenated buffer.
func ReadCustomSections(wasmBytes []byte) (map[string][]byte, error) {
	if !bytes.HasPrefix(wasmBytes, wasmMagic) {
		return nil, fmt.Errorf("artifact: not a WASM binary (missing magic header)")
	}
	if len(wasmBytes) < 8 {
		return nil, fmt.Errorf("artifact: truncated WASM header")
	}

	sections := map[string][]byte{}
	r := bytes.NewReader(wasmBytes[8:])
	for r.Len() > 0 {
		id, err := r.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("artifact: reading section id: %w", err)
		}
		size, err := readULEB128(r)
		if err != nil {
			return nil, fmt.Errorf("artifact: reading section size: %w", err)
		}
		payload := make([]byte, size)
		if _, err := r.Read(payload); err != nil {
			return nil, fmt.Errorf("artifact: reading section payload: %w", err)
		}
		if id != customSectionID {
			continue
		}
		pr := bytes.NewReader(payload)
		nameLen, err := readULEB128(pr)
		if err != nil {
			return nil, fmt.Errorf("artifact: reading custom section name length: %w", err)
		}
		nameBytes := make([]byte, nameLen)
		if _, err := pr.Read(nameBytes); err != nil {
			return nil, fmt.Errorf("artifact: reading custom section name: %w", err)
		}
		rest := make([]byte, pr.Len())
		pr.Read(rest)
		sections[string(nameBytes)] = append(sections[string(nameBytes)], rest...)
	}
	return sections, nil
}

func writeULEB128(buf *bytes.Buffer, v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

func readULEB128(r *bytes.Reader) (uint64, error) {
	var result uint64
	var shift uint
	for {
		b, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			return result, nil
		}
		shift += 7
		if shift >= 64 {
			return 0, fmt.Errorf("artifact: LEB128 value overflow")
		}
	}
}

// EncodeResourceSection produces the bit-exact `.rune_resource` payload:
// name_len:u32-be, name, data_len:u32-be, data. Unlike the other custom
// sections it is not JSON, so it can be read without a JSON decoder.
func EncodeResourceSection(name string, data []byte) []byte {
	buf := make([]byte, 4+len(name)+4+len(data))
	binary.BigEndian.PutUint32(buf[0:4], uint32(len(name)))
	copy(buf[4:4+len(name)], name)
	off := 4 + len(name)
	binary.BigEndian.PutUint32(buf[off:off+4], uint32(len(data)))
	copy(buf[off+4:], data)
	return buf
}

// DecodeInlineResource is the exact inverse of EncodeResourceSection. It
// returns the resource's name, its data, and whatever bytes followed it
// (empty when buf held exactly one encoded resource, per Invariant 5).
func DecodeInlineResource(buf []byte) (name string, data []byte, rest []byte, err error) {
	if len(buf) < 4 {
		return "", nil, nil, fmt.Errorf("artifact: resource section truncated (name length)")
	}
	nameLen := binary.BigEndian.Uint32(buf[0:4])
	if uint64(4+nameLen) > uint64(len(buf)) {
		return "", nil, nil, fmt.Errorf("artifact: resource section truncated (name)")
	}
	name = string(buf[4 : 4+nameLen])
	off := 4 + nameLen
	if uint64(off+4) > uint64(len(buf)) {
		return "", nil, nil, fmt.Errorf("artifact: resource section truncated (data length)")
	}
	dataLen := binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	if uint64(off)+uint64(dataLen) > uint64(len(buf)) {
		return "", nil, nil, fmt.Errorf("artifact: resource section truncated (data)")
	}
	data = buf[off : off+dataLen]
	rest = buf[off+dataLen:]
	return name, data, rest, nil
}
