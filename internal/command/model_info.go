package command

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/util"
)

var modelInfoFormat string

func init() {
	modelInfoCmd.Flags().StringVarP(&modelInfoFormat, "format", "f", "table", "Output format: table or json")
	rootCmd.AddCommand(modelInfoCmd)
}

var modelInfoCmd = &cobra.Command{
	Use:           "model-info <rune-file>",
	Short:         "Print declared input/output shapes for each model stage",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runModelInfo,
}

type modelInfoEntry struct {
	Name    string   `json:"name"`
	Model   string   `json:"model"`
	Inputs  []string `json:"inputs"`
	Outputs []string `json:"outputs"`
}

func runModelInfo(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("model-info: %w", err)
	}
	art, err := artifact.Load(raw)
	if err != nil {
		return fmt.Errorf("model-info: %w", err)
	}
	buf, ok := art.Sections[artifact.SectionGraph]
	if !ok {
		return fmt.Errorf("model-info: artifact has no %s section", artifact.SectionGraph)
	}
	g, err := artifact.DecodeGraph(buf)
	if err != nil {
		return fmt.Errorf("model-info: %w", err)
	}

	shapes := make(map[uint32]string, len(g.Tensors))
	for _, t := range g.Tensors {
		shapes[t.ID] = t.Shape
	}

	var entries []modelInfoEntry
	for _, n := range g.Nodes {
		if n.Kind != "Model" {
			continue
		}
		entries = append(entries, modelInfoEntry{
			Name:    n.Name,
			Model:   n.Subkind,
			Inputs:  shapesOf(n.Inputs, shapes),
			Outputs: shapesOf(n.Outputs, shapes),
		})
	}

	var formatter util.OutputFormatter
	switch modelInfoFormat {
	case "json":
		formatter = &util.JSONOutputFormatter[[]modelInfoEntry]{Data: entries, Out: cmd.OutOrStdout()}
	default:
		headers := []string{"Name", "Model", "Inputs", "Outputs"}
		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			rows = append(rows, []string{e.Name, e.Model, joinStrings(e.Inputs), joinStrings(e.Outputs)})
		}
		formatter = &util.TableOutputFormatter{Headers: headers, Rows: rows, Out: cmd.OutOrStdout()}
	}
	formatter.Display()
	return nil
}

func shapesOf(ids []uint32, shapes map[uint32]string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = shapes[id]
	}
	return out
}

func joinStrings(ss []string) string {
	return strings.Join(ss, ", ")
}
