// Package runtime wraps one engine.Runtime with the non-reentrant call
// guard spec.md §5 describes: Call is documented non-reentrant, and this
// Runtime enforces it structurally rather than trusting callers.
package runtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rune-sh/rune/internal/engine"
)

// ErrBusy is returned by Call when another Call on the same Runtime is
// already in flight. A blocked caller inside one Call cannot itself be the
// source of concurrent calls on a single-threaded Rune, so TryLock exists
// to catch host-side misuse (two goroutines sharing one Runtime), not to
// serialize legitimate concurrent callers — those should use separate
// Runtime instances instead.
var ErrBusy = errors.New("runtime: call already in progress")

// TrapError wraps an error surfaced by the underlying engine.Runtime during
// Call, categorizing it per spec.md §7's runtime error taxonomy
// (Load/Host-call/Precondition at runtime).
type TrapError struct {
	Phase string // "load", "call"
	Err   error
}

func (e *TrapError) Error() string {
	return fmt.Sprintf("runtime: %s trapped: %v", e.Phase, e.Err)
}

func (e *TrapError) Unwrap() error { return e.Err }

// Runtime owns exactly one loaded engine.Runtime and serializes Call
// against itself.
type Runtime struct {
	mu       sync.Mutex
	delegate engine.Runtime
}

// Load compiles wasmBytes with eng and wraps the resulting engine.Runtime.
func Load(ctx context.Context, eng engine.Engine, wasmBytes []byte, image engine.Image) (*Runtime, error) {
	delegate, err := eng.Load(ctx, wasmBytes, image)
	if err != nil {
		return nil, &TrapError{Phase: "load", Err: err}
	}
	return &Runtime{delegate: delegate}, nil
}

// Call invokes the Rune's _call entry point once. It returns ErrBusy
// immediately, without blocking, if another Call is already running on
// this Runtime.
func (r *Runtime) Call(ctx context.Context) error {
	if !r.mu.TryLock() {
		return ErrBusy
	}
	defer r.mu.Unlock()

	if err := r.delegate.Call(ctx); err != nil {
		return &TrapError{Phase: "call", Err: err}
	}
	return nil
}

// Capabilities returns the node-id -> metadata map for every capability
// node the Rune declares. Safe to call at any time: the registry backing
// it is mutated only during load.
func (r *Runtime) Capabilities() map[uint32]engine.CapabilityMeta {
	return r.delegate.Capabilities()
}

// Outputs returns the node-id -> metadata map for every sink node.
func (r *Runtime) Outputs() map[uint32]engine.OutputMeta {
	return r.delegate.Outputs()
}

// Resources returns the resources the Rune declared.
func (r *Runtime) Resources() []engine.ResourceMeta {
	return r.delegate.Resources()
}

// Inputs exposes the mutable backing buffers of buffered capabilities. A
// caller must not mutate the returned buffers while a Call is in flight;
// Runtime enforces this by itself only via Call's mutex, not on Inputs, so
// callers feeding test data should do so between Calls.
func (r *Runtime) Inputs() map[uint32][]byte {
	return r.delegate.Inputs()
}

// Close releases the underlying engine.Runtime.
func (r *Runtime) Close(ctx context.Context) error {
	return r.delegate.Close(ctx)
}
