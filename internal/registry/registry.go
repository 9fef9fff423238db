// Package registry holds the per-Rune-instance capability, output and model
// tables a host allocates during _manifest() and reads during call(). The
// maps are mutated only at load time; Registry itself carries no goroutine
// affinity, so it is safe to move across goroutines between calls even
// though it must never be called concurrently on the same instance.
package registry

import (
	"fmt"
	"sync"

	"github.com/rune-sh/rune/internal/hostabi/value"
)

// Capability generates bytes into a caller-supplied buffer and accepts
// named parameters before the first call.
type Capability interface {
	Generate(buf []byte) (int, error)
	SetParameter(name string, v value.Value) error
}

// Output consumes bytes delivered by the Rune.
type Output interface {
	Consume(data []byte) error
}

// Model runs inference over one or more input tensors into one or more
// output tensors. Input/output tensor-shape lists are fixed at load.
type Model interface {
	Infer(inputs [][]byte, outputs [][]byte) error
}

// Registry is the per-Rune-instance id->implementation store for
// capabilities, outputs and models, each keyed by a monotonically
// increasing 32-bit id allocated on request.
type Registry struct {
	mu sync.Mutex

	capabilities map[uint32]Capability
	outputs      map[uint32]Output
	models       map[uint32]Model

	nextCapability uint32
	nextOutput     uint32
	nextModel      uint32
}

// New returns an empty Registry ready to accept _manifest()-time requests.
func New() *Registry {
	return &Registry{
		capabilities: map[uint32]Capability{},
		outputs:      map[uint32]Output{},
		models:       map[uint32]Model{},
	}
}

// RegisterCapability allocates an id for impl and stores it. Intended to be
// called only during _manifest().
func (r *Registry) RegisterCapability(impl Capability) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextCapability++
	id := r.nextCapability
	r.capabilities[id] = impl
	return id
}

// RegisterOutput allocates an id for impl and stores it.
func (r *Registry) RegisterOutput(impl Output) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextOutput++
	id := r.nextOutput
	r.outputs[id] = impl
	return id
}

// RegisterModel allocates an id for impl and stores it.
func (r *Registry) RegisterModel(impl Model) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextModel++
	id := r.nextModel
	r.models[id] = impl
	return id
}

// Capability looks up a previously registered capability by id.
func (r *Registry) Capability(id uint32) (Capability, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	impl, ok := r.capabilities[id]
	if !ok {
		return nil, fmt.Errorf("registry: no capability with id %d", id)
	}
	return impl, nil
}

// Capabilities returns a snapshot of every registered capability keyed by
// id, for engines that need to enumerate them (e.g. to expose mutable
// input buffers between calls).
func (r *Registry) Capabilities() map[uint32]Capability {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[uint32]Capability, len(r.capabilities))
	for id, impl := range r.capabilities {
		out[id] = impl
	}
	return out
}

// Output looks up a previously registered output by id.
func (r *Registry) Output(id uint32) (Output, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	impl, ok := r.outputs[id]
	if !ok {
		return nil, fmt.Errorf("registry: no output with id %d", id)
	}
	return impl, nil
}

// Model looks up a previously registered model by id.
func (r *Registry) Model(id uint32) (Model, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	impl, ok := r.models[id]
	if !ok {
		return nil, fmt.Errorf("registry: no model with id %d", id)
	}
	return impl, nil
}
