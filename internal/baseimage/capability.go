package baseimage

import (
	"fmt"
	"math/rand"

	"github.com/rune-sh/rune/internal/hostabi/value"
)

// RandCapability generates pseudo-random f32 bytes from a seeded source, so
// tests and `rune run` reproduce identical pipelines across runs unless a
// caller explicitly reseeds it. The "seed" parameter (Integer) reseeds it;
// any other parameter name is rejected.
type RandCapability struct {
	rng *rand.Rand
}

// NewRandCapability returns a RandCapability seeded with seed.
func NewRandCapability(seed int64) *RandCapability {
	return &RandCapability{rng: rand.New(rand.NewSource(seed))}
}

func (c *RandCapability) Generate(buf []byte) (int, error) {
	n, err := c.rng.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("baseimage: rand capability: %w", err)
	}
	return n, nil
}

func (c *RandCapability) SetParameter(name string, v value.Value) error {
	if name != "seed" {
		return fmt.Errorf("baseimage: rand capability: unknown parameter %q", name)
	}
	seed, ok := v.AsInteger()
	if !ok {
		return fmt.Errorf("baseimage: rand capability: seed must be an integer")
	}
	c.rng = rand.New(rand.NewSource(int64(seed)))
	return nil
}

// RawCapability serves Generate calls out of an in-memory buffer a host
// writes into directly — via its own Buffer() or through
// internal/engine.Runtime.Inputs() — instead of synthesizing data. It is
// the backing for `rune run --input name=path` and for local `RAW`
// capability testing.
type RawCapability struct {
	buf []byte
}

// NewRawCapability returns a RawCapability whose buffer is initialized to
// data (copied).
func NewRawCapability(data []byte) *RawCapability {
	return &RawCapability{buf: append([]byte(nil), data...)}
}

func (c *RawCapability) Generate(buf []byte) (int, error) {
	return copy(buf, c.buf), nil
}

func (c *RawCapability) SetParameter(name string, v value.Value) error {
	return fmt.Errorf("baseimage: raw capability: unknown parameter %q", name)
}

// Buffer returns the capability's mutable backing buffer, satisfying
// hostabi.BufferedCapability.
func (c *RawCapability) Buffer() []byte { return c.buf }

// SetBuffer replaces the backing buffer wholesale.
func (c *RawCapability) SetBuffer(data []byte) { c.buf = data }
