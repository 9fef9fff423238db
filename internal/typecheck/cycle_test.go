package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/parser"
)

const cyclicSrc = `
pipeline:
  a:
    proc-block: "pkg/a"
    inputs:
      - c
    outputs:
      - u8[1]
  b:
    proc-block: "pkg/b"
    inputs:
      - a
    outputs:
      - u8[1]
  c:
    proc-block: "pkg/c"
    inputs:
      - b
    outputs:
      - u8[1]
`

func TestCheckCycles_DetectsCycle(t *testing.T) {
	doc, _, err := parser.Parse([]byte(cyclicSrc))
	require.NoError(t, err)

	g, lbag := graph.Lower(doc)
	require.False(t, lbag.HasErrors())

	bag := diagnostics.NewBag()
	CheckCycles(g, bag)

	require.True(t, bag.HasErrors())
	require.Len(t, bag.All(), 1)
	d := bag.All()[0]
	assert.Contains(t, d.Message, "Cycle detected")

	aID, bID, cID := g.NameToNode["a"], g.NameToNode["b"], g.NameToNode["c"]

	require.NotNil(t, d.PrimaryLabel)
	assert.Equal(t, aID, d.PrimaryLabel.TargetID, "primary label must point at the node the cycle was detected from")

	require.Len(t, d.Labels, 3) // two intermediates + closing note
	assert.Equal(t, bID, d.Labels[0].TargetID, "first intermediate label must name b")
	assert.Contains(t, d.Labels[0].Message, `"b"`)
	assert.Equal(t, cID, d.Labels[1].TargetID, "second intermediate label must name c")
	assert.Contains(t, d.Labels[1].Message, `"c"`)
	assert.Equal(t, aID, d.Labels[2].TargetID, "closing label must return to a, completing the cycle")
	assert.Contains(t, d.Labels[2].Message, `"a"`)
	assert.Contains(t, d.Labels[2].Message, "completing the cycle")
}

func TestCheckCycles_Acyclic(t *testing.T) {
	doc, _, err := parser.Parse([]byte(passthroughSrc))
	require.NoError(t, err)

	g, _ := graph.Lower(doc)
	bag := diagnostics.NewBag()
	CheckCycles(g, bag)
	assert.False(t, bag.HasErrors())
}

const passthroughSrc = `
pipeline:
  raw:
    capability: RAW
    outputs:
      - u8[4]
  out:
    out: SERIAL
    inputs:
      - raw
`
