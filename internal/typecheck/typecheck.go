// Package typecheck validates a lowered graph: cycle detection on the
// node-consumer graph and materialization of resource bytes from disk or
// inline sources.
package typecheck

import (
	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
)

// Check runs every type-check pass against g, resolving FromDisk/Inline
// resources relative to baseDir. It mutates g.Resources in place (attaching
// Data) and reports every problem found through bag.
func Check(g *graph.Graph, baseDir string, bag *diagnostics.Bag) {
	CheckCycles(g, bag)
	LoadResources(g, baseDir, bag)
	CheckDeclaredInputShapes(g, bag)
	CheckArgumentSchemas(g, bag)
}
