package typecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/diagnostics"
	"github.com/rune-sh/rune/internal/graph"
	"github.com/rune-sh/rune/internal/parser"
)

func TestCheckArgumentSchemas_ValidArgsPass(t *testing.T) {
	src := `
resources:
  normalize-schema:
    inline: |
      {"type": "object", "required": ["window"], "properties": {"window": {"type": "integer", "minimum": 1}}}
    type: utf8
pipeline:
  raw:
    capability: RAW
    outputs:
      - u8[4]
  normalize:
    proc-block: github.com/example/normalize
    args-schema: normalize-schema
    args:
      window: "8"
    inputs:
      - raw
    outputs:
      - u8[4]
`
	doc, _, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	g, bag := graph.Lower(doc)
	require.False(t, bag.HasErrors())

	LoadResources(g, t.TempDir(), bag)
	require.False(t, bag.HasErrors())

	CheckArgumentSchemas(g, bag)
	assert.False(t, bag.HasErrors(), "%v", bag.All())
}

func TestCheckArgumentSchemas_InvalidArgsFail(t *testing.T) {
	src := `
resources:
  normalize-schema:
    inline: |
      {"type": "object", "required": ["window"], "properties": {"window": {"type": "integer", "minimum": 1}}}
    type: utf8
pipeline:
  raw:
    capability: RAW
    outputs:
      - u8[4]
  normalize:
    proc-block: github.com/example/normalize
    args-schema: normalize-schema
    args:
      window: "0"
    inputs:
      - raw
    outputs:
      - u8[4]
`
	doc, _, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	g, bag := graph.Lower(doc)
	require.False(t, bag.HasErrors())

	LoadResources(g, t.TempDir(), bag)
	require.False(t, bag.HasErrors())

	CheckArgumentSchemas(g, bag)
	require.True(t, bag.HasErrors())
	found := false
	for _, d := range bag.All() {
		if d.Severity == diagnostics.Error {
			found = true
		}
	}
	assert.True(t, found, "%v", bag.All())
}

func TestCheckArgumentSchemas_UnknownResourceIsError(t *testing.T) {
	src := `
pipeline:
  raw:
    capability: RAW
    outputs:
      - u8[4]
  normalize:
    proc-block: github.com/example/normalize
    args-schema: missing-schema
    inputs:
      - raw
    outputs:
      - u8[4]
`
	doc, _, err := parser.Parse([]byte(src))
	require.NoError(t, err)
	g, bag := graph.Lower(doc)
	require.False(t, bag.HasErrors())

	CheckArgumentSchemas(g, bag)
	require.True(t, bag.HasErrors())
}
