package typecheck

import (
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/shape"
)

// CheckDeclaredInputShapes compares each node's optional per-slot declared
// input shape against the shape actually carried by the connected edge. The
// producer's shape is always treated as ground truth (spec.md §9): a
// mismatch never rewrites the edge, it only raises a Warning.
func CheckDeclaredInputShapes(g *graph.Graph, bag *diagnostics.Bag) {
	for _, nodeID := range g.NodeIDs() {
		node := g.Nodes[nodeID]
		for slot, declaredText := range node.DeclaredInputShapes {
			if declaredText == "" {
				continue
			}
			tensorID := node.InputSlots[slot]
			if tensorID.IsError() {
				continue
			}
			declared, err := shape.Parse(declaredText)
			if err != nil {
				bag.Warnf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
					"node %q input %d: unparseable declared shape %q", node.Name, slot, declaredText)
				continue
			}
			actual := g.Tensors[tensorID].Shape
			if !shape.Equal(declared, actual) {
				bag.Warnf(&diagnostics.Label{TargetID: nodeID, Message: "declared here"},
					"node %q input %d: declared shape %s does not match producer shape %s",
					node.Name, slot, declared.String(), actual.String())
			}
		}
	}
}
