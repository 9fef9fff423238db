package command

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rune-sh/rune/internal/artifact"
)

func TestGraphCommand_DOTIsDefault(t *testing.T) {
	path := buildArtifact(t, inspectFixture)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"graph", path})
	require.NoError(t, err)
	assert.Contains(t, stdout, "digraph rune {")
	assert.Contains(t, stdout, "shape=box")
	assert.Contains(t, stdout, "RAW")
	assert.Contains(t, stdout, "-> n")
}

func TestGraphCommand_JSON(t *testing.T) {
	path := buildArtifact(t, inspectFixture)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"graph", path, "--format", "json"})
	require.NoError(t, err)

	var g artifact.Graph
	require.NoError(t, json.Unmarshal([]byte(stdout), &g))
	assert.Len(t, g.Nodes, 2)
}

func TestGraphCommand_UnknownFormat(t *testing.T) {
	path := buildArtifact(t, inspectFixture)

	_, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"graph", path, "--format", "svg"})
	assert.Error(t, err)
}
