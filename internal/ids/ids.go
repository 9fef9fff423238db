// Package ids implements the interned, family-typed id scheme described by
// the data model: every lowered entity gets an opaque integer id that is
// stable within a build and totally ordered by creation within its family.
package ids

import "fmt"

// Family distinguishes the four id kinds at the type level so a NodeID can
// never be mistaken for a ResourceID even though both wrap a uint32.
type Family uint8

const (
	FamilyNode Family = iota
	FamilyResource
	FamilyTensor
	FamilyType
)

func (f Family) String() string {
	switch f {
	case FamilyNode:
		return "Node"
	case FamilyResource:
		return "Resource"
	case FamilyTensor:
		return "Tensor"
	case FamilyType:
		return "Type"
	default:
		return "Unknown"
	}
}

// id is the shared representation behind every family-specific id type.
type id uint32

// errorSentinel is reserved as the id assigned wherever wiring fails, per
// Invariant 3: an unresolved input slot is marked ERROR rather than left
// unset so downstream phases can still run to completion.
const errorSentinel id = 0

// NodeID identifies a pipeline stage (capability, proc-block, model, sink).
type NodeID id

// ResourceID identifies a named resource blob.
type ResourceID id

// TensorID identifies a directed tensor edge.
type TensorID id

// TypeID identifies an interned type (currently only used for diagnostics
// that need to name a type independently of any one tensor edge).
type TypeID id

// ErrorNode, ErrorResource and ErrorTensor are the reserved sentinel values
// used whenever a reference fails to resolve during lowering.
const (
	ErrorNode     = NodeID(errorSentinel)
	ErrorResource = ResourceID(errorSentinel)
	ErrorTensor   = TensorID(errorSentinel)
)

func (n NodeID) IsError() bool     { return n == ErrorNode }
func (r ResourceID) IsError() bool { return r == ErrorResource }
func (t TensorID) IsError() bool   { return t == ErrorTensor }

func (n NodeID) String() string     { return fmt.Sprintf("Node#%d", uint32(n)) }
func (r ResourceID) String() string { return fmt.Sprintf("Resource#%d", uint32(r)) }
func (t TensorID) String() string   { return fmt.Sprintf("Tensor#%d", uint32(t)) }
func (t TypeID) String() string     { return fmt.Sprintf("Type#%d", uint32(t)) }

// Interner allocates strictly increasing ids within one family for one
// build. The zero value is not valid: NewInterner must be used so that the
// first allocated id is 1 and 0 stays reserved for the ERROR sentinel.
type Interner[T ~uint32] struct {
	next T
}

// NewInterner returns an Interner whose first Alloc() call returns 1,
// leaving 0 reserved as the family's ERROR sentinel.
func NewInterner[T ~uint32]() *Interner[T] {
	return &Interner[T]{next: 1}
}

// Alloc returns the next id in creation order. Ids are never reused or
// mutated after allocation (per the Lifecycles note in the data model).
func (in *Interner[T]) Alloc() T {
	v := in.next
	in.next++
	return v
}

// Len reports how many ids (including the reserved sentinel) this interner
// has handed out capacity for, i.e. one past the highest allocated id.
func (in *Interner[T]) Len() int {
	return int(in.next)
}
