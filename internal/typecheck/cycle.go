package typecheck

import (
	"fmt"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/ids"
)

// CheckCycles runs DFS with a path stack over the directed graph whose edges
// are (node -> consumers of its outputs). On the first cycle found it emits
// exactly one Error diagnostic naming every node on the cycle in order, per
// spec.md §4.3 and the algorithm in the original Rust type-checker.
func CheckCycles(g *graph.Graph, bag *diagnostics.Bag) {
	adjacency := buildAdjacency(g)

	visited := map[ids.NodeID]bool{}
	var stack []ids.NodeID
	onStack := map[ids.NodeID]bool{}

	for _, nodeID := range g.NodeIDs() {
		if cycle := detectCycle(nodeID, adjacency, visited, onStack, &stack); cycle != nil {
			bag.Push(cycleDiagnostic(g, cycle))
			return
		}
	}
}

func buildAdjacency(g *graph.Graph) map[ids.NodeID][]ids.NodeID {
	adjacency := map[ids.NodeID][]ids.NodeID{}
	for _, nodeID := range g.NodeIDs() {
		node := g.Nodes[nodeID]
		seen := map[ids.NodeID]bool{}
		var consumers []ids.NodeID
		for _, tensorID := range node.OutputSlots {
			if tensorID.IsError() {
				continue
			}
			tensor := g.Tensors[tensorID]
			for _, c := range tensor.Consumers {
				if !seen[c.Node] {
					seen[c.Node] = true
					consumers = append(consumers, c.Node)
				}
			}
		}
		adjacency[nodeID] = consumers
	}
	return adjacency
}

// detectCycle returns the cycle (in traversal order, starting from the
// re-encountered node) or nil if none is reachable from start.
func detectCycle(node ids.NodeID, adjacency map[ids.NodeID][]ids.NodeID, visited, onStack map[ids.NodeID]bool, stack *[]ids.NodeID) []ids.NodeID {
	if onStack[node] {
		start := 0
		for i, n := range *stack {
			if n == node {
				start = i
				break
			}
		}
		cycle := append([]ids.NodeID(nil), (*stack)[start:]...)
		return cycle
	}
	if visited[node] {
		return nil
	}

	visited[node] = true
	onStack[node] = true
	*stack = append(*stack, node)

	for _, next := range adjacency[node] {
		if cycle := detectCycle(next, adjacency, visited, onStack, stack); cycle != nil {
			return cycle
		}
	}

	*stack = (*stack)[:len(*stack)-1]
	onStack[node] = false
	return nil
}

func cycleDiagnostic(g *graph.Graph, cycle []ids.NodeID) diagnostics.Diagnostic {
	first := cycle[0]
	firstName := g.Nodes[first].Name

	d := diagnostics.Diagnostic{
		Severity: diagnostics.Error,
		Message:  fmt.Sprintf("Cycle detected when checking %q", firstName),
		PrimaryLabel: &diagnostics.Label{
			TargetID: first,
			Message:  "declared here",
		},
	}

	for _, mid := range cycle[1:] {
		name := g.Nodes[mid].Name
		d.Labels = append(d.Labels, diagnostics.Label{
			TargetID: mid,
			Message:  fmt.Sprintf("... which passes data to %q...", name),
		})
	}
	d.Labels = append(d.Labels, diagnostics.Label{
		TargetID: first,
		Message:  fmt.Sprintf("... which passes data to %q, completing the cycle.", firstName),
	})

	return d
}
