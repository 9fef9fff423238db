package command

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const modelInfoFixture = `
pipeline:
  rnd:
    capability: RAND
    outputs:
      - f32[1]
  mod:
    proc-block: github.com/example/modulo
    inputs:
      - rnd
    outputs:
      - f32[1]
  sine:
    model: sine.tflite
    inputs:
      - mod
    outputs:
      - f32[1]
  out:
    out: SERIAL
    inputs:
      - sine
`

func TestModelInfoCommand_Table(t *testing.T) {
	path := buildArtifact(t, modelInfoFixture)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"model-info", path})
	require.NoError(t, err)
	assert.Contains(t, stdout, "sine")
	assert.Contains(t, stdout, "sine.tflite")
	assert.Contains(t, stdout, "f32[1]")
}

func TestModelInfoCommand_JSON(t *testing.T) {
	path := buildArtifact(t, modelInfoFixture)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"model-info", path, "--format", "json"})
	require.NoError(t, err)

	var entries []modelInfoEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "sine", entries[0].Name)
	assert.Equal(t, "sine.tflite", entries[0].Model)
	assert.Equal(t, []string{"f32[1]"}, entries[0].Inputs)
	assert.Equal(t, []string{"f32[1]"}, entries[0].Outputs)
}

func TestModelInfoCommand_NoModelsIsEmpty(t *testing.T) {
	path := buildArtifact(t, inspectFixture)

	stdout, _, err := executeAndResetCommand(context.Background(), rootCmd, []string{"model-info", path, "--format", "json"})
	require.NoError(t, err)

	var entries []modelInfoEntry
	require.NoError(t, json.Unmarshal([]byte(stdout), &entries))
	assert.Empty(t, entries)
}
