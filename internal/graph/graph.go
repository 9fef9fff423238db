// Package graph lowers a parsed Runefile document into the entity graph:
// Nodes, Tensor edges and Resources addressed by interned ids, per the data
// model's "avoid owning pointers, use a global id->entity store per family"
// design note.
package graph

import (
	"sort"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/ids"
	"github.com/rune-sh/rune/internal/parser"
	"github.com/rune-sh/rune/internal/shape"
)

// NodeKind mirrors parser.StageKind at the entity level.
type NodeKind int

const (
	NodeCapability NodeKind = iota
	NodeProcBlock
	NodeModel
	NodeSink
)

// Arguments is an insertion-ordered name->value map, since Runefile stage
// arguments are free-form and their declaration order matters for codegen
// determinism.
type Arguments struct {
	keys   []string
	values map[string]string
}

// NewArguments returns an empty Arguments map.
func NewArguments() *Arguments {
	return &Arguments{values: map[string]string{}}
}

// Set records name=value, appending name to Keys() the first time it is set.
func (a *Arguments) Set(name, value string) {
	if _, ok := a.values[name]; !ok {
		a.keys = append(a.keys, name)
	}
	a.values[name] = value
}

// Get returns the value for name and whether it was set.
func (a *Arguments) Get(name string) (string, bool) {
	v, ok := a.values[name]
	return v, ok
}

// Keys returns argument names in declaration order.
func (a *Arguments) Keys() []string {
	return a.keys
}

// Span locates a node's defining source position.
type Span struct {
	Line   int
	Column int
}

// Node is a lowered pipeline stage.
type Node struct {
	ID   ids.NodeID
	Name string
	Kind NodeKind

	Arguments *Arguments

	// InputSlots holds one TensorID per declared input, in positional
	// order; a slot that failed to resolve holds ids.ErrorTensor.
	InputSlots []ids.TensorID
	// DeclaredInputShapes optionally asserts the shape expected on each
	// input slot, parallel to InputSlots. An empty string means no
	// assertion was declared for that slot.
	DeclaredInputShapes []string
	// OutputSlots holds one TensorID per declared output, in positional
	// order.
	OutputSlots []ids.TensorID

	// CapabilityKind is set when Kind == NodeCapability: RAND/SOUND/ACCEL/
	// IMAGE/RAW/FLOAT_IMAGE.
	CapabilityKind string
	// ProcBlockRef is set when Kind == NodeProcBlock: the package reference
	// URI.
	ProcBlockRef string
	// ModelRef is set when Kind == NodeModel: the model file reference.
	ModelRef string
	// ModelData holds a model's bytes for codegen to embed under
	// models/<name>. No type-check pass reads the model file, so it stays
	// empty unless a caller sets it.
	ModelData []byte
	// SinkKind is set when Kind == NodeSink: SERIAL/TENSOR.
	SinkKind string

	// ArgsSchemaResource optionally names the resource holding a JSON
	// Schema document Arguments must validate against.
	ArgsSchemaResource string

	Span Span
}

// ResourceSource discriminates how a Resource's bytes are obtained.
type ResourceSource int

const (
	ResourceSourceNone ResourceSource = iota
	ResourceSourceFromDisk
	ResourceSourceInline
)

// Resource is a lowered named resource declaration.
type Resource struct {
	ID          ids.ResourceID
	Name        string
	ElementType shape.ElementType
	Source      ResourceSource
	Path        string // when Source == ResourceSourceFromDisk
	Inline      string // when Source == ResourceSourceInline

	// Data holds the materialized bytes, attached by the type-checker. Nil
	// until then, or permanently if the resource has no source (a
	// runtime-supplied input).
	Data []byte

	Span Span
}

// Consumer identifies one (node, input-slot) pair that reads a Tensor edge.
type Consumer struct {
	Node      ids.NodeID
	InputSlot int
}

// Tensor is a typed directed edge between a producer output slot and zero or
// more consumer input slots.
type Tensor struct {
	ID           ids.TensorID
	Shape        shape.Shape
	Producer     ids.NodeID
	ProducerSlot int
	Consumers    []Consumer
}

// Graph is the lowered entity store: per-family maps keyed by interned id,
// plus name tables for lookups during connection and diagnostics.
type Graph struct {
	Nodes     map[ids.NodeID]*Node
	Tensors   map[ids.TensorID]*Tensor
	Resources map[ids.ResourceID]*Resource

	NameToNode     map[string]ids.NodeID
	NameToResource map[string]ids.ResourceID

	nodeOrder     []ids.NodeID
	tensorOrder   []ids.TensorID
	resourceOrder []ids.ResourceID
}

// NodeIDs returns every node id in ascending (creation) order, the order
// codegen and inspection must iterate in for determinism.
func (g *Graph) NodeIDs() []ids.NodeID { return g.nodeOrder }

// TensorIDs returns every tensor id in ascending order.
func (g *Graph) TensorIDs() []ids.TensorID { return g.tensorOrder }

// ResourceIDs returns every resource id in ascending order.
func (g *Graph) ResourceIDs() []ids.ResourceID { return g.resourceOrder }

// Lower walks a parsed Document and produces its entity graph. It always
// returns a non-nil Graph, even when diagnostics report errors (Invariant 1:
// lowering is total).
func Lower(doc *parser.Document) (*Graph, *diagnostics.Bag) {
	bag := diagnostics.NewBag()
	l := &lowerer{
		doc: doc,
		g: &Graph{
			Nodes:          map[ids.NodeID]*Node{},
			Tensors:        map[ids.TensorID]*Tensor{},
			Resources:      map[ids.ResourceID]*Resource{},
			NameToNode:     map[string]ids.NodeID{},
			NameToResource: map[string]ids.ResourceID{},
		},
		nodeIDs:     ids.NewInterner[ids.NodeID](),
		resourceIDs: ids.NewInterner[ids.ResourceID](),
		tensorIDs:   ids.NewInterner[ids.TensorID](),
		bag:         bag,
	}
	l.registerNames()
	l.registerResources()
	l.registerStages()
	l.registerTensors()
	l.connectInputs()
	return l.g, bag
}

type lowerer struct {
	doc *parser.Document
	g   *Graph

	nodeIDs     *ids.Interner[ids.NodeID]
	resourceIDs *ids.Interner[ids.ResourceID]
	tensorIDs   *ids.Interner[ids.TensorID]

	bag *diagnostics.Bag
}

// sortedNames returns map keys in lexical order, used everywhere allocation
// order must be deterministic regardless of Go's randomized map iteration.
func sortedNames[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// registerNames allocates a NodeId per pipeline entry and a ResourceId per
// resource, in lexical name order, and builds the Name->Id tables.
func (l *lowerer) registerNames() {
	for _, name := range sortedNames(l.doc.Pipeline) {
		id := l.nodeIDs.Alloc()
		l.g.NameToNode[name] = id
		l.g.nodeOrder = append(l.g.nodeOrder, id)
	}
	for _, name := range sortedNames(l.doc.Resources) {
		id := l.resourceIDs.Alloc()
		l.g.NameToResource[name] = id
		l.g.resourceOrder = append(l.g.resourceOrder, id)
	}
}

// registerResources materializes Resource entities (source + element type).
func (l *lowerer) registerResources() {
	for _, name := range sortedNames(l.doc.Resources) {
		decl := l.doc.Resources[name]
		id := l.g.NameToResource[name]

		res := &Resource{
			ID:          id,
			Name:        name,
			ElementType: shape.ElementType(decl.ElementType),
			Span:        Span{Line: decl.Span.Line, Column: decl.Span.Column},
		}
		switch {
		case decl.HasPath:
			res.Source = ResourceSourceFromDisk
			res.Path = decl.Path
		case decl.HasInline:
			res.Source = ResourceSourceInline
			res.Inline = decl.Inline
		default:
			res.Source = ResourceSourceNone
		}
		l.g.Resources[id] = res
	}
}

// registerStages materializes Node entities (kind + arguments), deferring
// input-slot wiring to connectInputs.
func (l *lowerer) registerStages() {
	for _, name := range sortedNames(l.doc.Pipeline) {
		stage := l.doc.Pipeline[name]
		id := l.g.NameToNode[name]

		node := &Node{
			ID:                 id,
			Name:               name,
			Arguments:          NewArguments(),
			ArgsSchemaResource: stage.ArgsSchema,
			Span:               Span{Line: stage.Span.Line, Column: stage.Span.Column},
		}
		for _, arg := range stage.Args {
			node.Arguments.Set(arg.Name, arg.Value)
		}

		switch stage.Kind {
		case parser.StageCapability:
			node.Kind = NodeCapability
			node.CapabilityKind = stage.Capability
		case parser.StageProcBlock:
			node.Kind = NodeProcBlock
			node.ProcBlockRef = stage.ProcBlock
		case parser.StageModel:
			node.Kind = NodeModel
			node.ModelRef = stage.Model
		case parser.StageSink:
			node.Kind = NodeSink
			node.SinkKind = stage.Sink
		}

		node.InputSlots = make([]ids.TensorID, len(stage.Inputs))
		for i := range node.InputSlots {
			node.InputSlots[i] = ids.ErrorTensor
		}
		node.DeclaredInputShapes = make([]string, len(stage.Inputs))
		for i := range node.DeclaredInputShapes {
			if i < len(stage.InputTypes) {
				node.DeclaredInputShapes[i] = stage.InputTypes[i]
			}
		}

		l.g.Nodes[id] = node
	}
}

// registerTensors creates a Tensor edge for each declared output slot of
// each node, in node-id then slot-index order.
func (l *lowerer) registerTensors() {
	for _, nodeID := range l.g.nodeOrder {
		node := l.g.Nodes[nodeID]
		name := node.Name
		stage := l.doc.Pipeline[name]

		node.OutputSlots = make([]ids.TensorID, len(stage.Outputs))
		for slot, shapeText := range stage.Outputs {
			s, err := shape.Parse(shapeText)
			if err != nil {
				l.bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
					"unparseable shape %q on node %q output %d: %v", shapeText, name, slot, err)
			}
			tid := l.tensorIDs.Alloc()
			l.g.Tensors[tid] = &Tensor{
				ID:           tid,
				Shape:        s,
				Producer:     nodeID,
				ProducerSlot: slot,
			}
			l.g.tensorOrder = append(l.g.tensorOrder, tid)
			node.OutputSlots[slot] = tid
		}
	}
}

// connectInputs resolves each "inputs: [name.k]" reference to the producer's
// k-th output slot (default k=0), assigning that Tensor id to this node's
// input slot. Any failure emits a diagnostic and leaves ids.ErrorTensor.
func (l *lowerer) connectInputs() {
	for _, nodeID := range l.g.nodeOrder {
		node := l.g.Nodes[nodeID]
		stage := l.doc.Pipeline[node.Name]

		for slot, ref := range stage.Inputs {
			producerName, producerSlot, ok := splitInputRef(ref)
			if !ok {
				l.bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "invalid input reference"},
					"node %q input %d: malformed reference %q", node.Name, slot, ref)
				continue
			}

			producerID, known := l.g.NameToNode[producerName]
			if !known {
				l.bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "unresolved input"},
					"node %q input %d references unknown node %q", node.Name, slot, producerName)
				continue
			}

			producer := l.g.Nodes[producerID]
			if producerSlot < 0 || producerSlot >= len(producer.OutputSlots) {
				l.bag.Errorf(&diagnostics.Label{TargetID: nodeID, Message: "output index out of range"},
					"node %q input %d references %q output %d, but %q has %d output(s)",
					node.Name, slot, producerName, producerSlot, producerName, len(producer.OutputSlots))
				continue
			}

			tensorID := producer.OutputSlots[producerSlot]
			node.InputSlots[slot] = tensorID
			tensor := l.g.Tensors[tensorID]
			tensor.Consumers = append(tensor.Consumers, Consumer{Node: nodeID, InputSlot: slot})
		}
	}
}

// TopologicalOrder returns node ids ordered so that every node follows every
// node that produces one of its inputs, breaking ties by ascending id for
// determinism (Invariant 7). Callers must run CheckCycles first; if the
// graph does contain a cycle the returned order simply omits the nodes on
// it.
func (g *Graph) TopologicalOrder() []ids.NodeID {
	indegree := make(map[ids.NodeID]int, len(g.nodeOrder))
	dependents := make(map[ids.NodeID][]ids.NodeID, len(g.nodeOrder))
	for _, id := range g.nodeOrder {
		indegree[id] = 0
	}
	for _, id := range g.nodeOrder {
		node := g.Nodes[id]
		seen := map[ids.NodeID]bool{}
		for _, slot := range node.InputSlots {
			if slot.IsError() {
				continue
			}
			producer := g.Tensors[slot].Producer
			if !seen[producer] {
				seen[producer] = true
				indegree[id]++
				dependents[producer] = append(dependents[producer], id)
			}
		}
	}

	var ready []ids.NodeID
	for _, id := range g.nodeOrder {
		if indegree[id] == 0 {
			ready = append(ready, id)
		}
	}

	var order []ids.NodeID
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		next := ready[0]
		ready = ready[1:]
		order = append(order, next)
		for _, dep := range dependents[next] {
			indegree[dep]--
			if indegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}
	return order
}

// splitInputRef parses "name" or "name.index" into a node name and an
// output-slot index, defaulting the index to 0.
func splitInputRef(ref string) (name string, slot int, ok bool) {
	for i := len(ref) - 1; i >= 0; i-- {
		if ref[i] == '.' {
			idxStr := ref[i+1:]
			n := 0
			for _, c := range idxStr {
				if c < '0' || c > '9' {
					return ref, 0, true
				}
				n = n*10 + int(c-'0')
			}
			if idxStr == "" {
				return ref, 0, true
			}
			return ref[:i], n, true
		}
	}
	return ref, 0, true
}
