package command

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/artifact"
)

var graphFormat string

func init() {
	graphCmd.Flags().StringVar(&graphFormat, "format", "dot", "Output format: dot or json")
	rootCmd.AddCommand(graphCmd)
}

var graphCmd = &cobra.Command{
	Use:           "graph <rune-file>",
	Short:         "Render a .rune artifact's node graph",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runGraph,
}

func runGraph(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	art, err := artifact.Load(raw)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}
	buf, ok := art.Sections[artifact.SectionGraph]
	if !ok {
		return fmt.Errorf("graph: artifact has no %s section", artifact.SectionGraph)
	}
	g, err := artifact.DecodeGraph(buf)
	if err != nil {
		return fmt.Errorf("graph: %w", err)
	}

	switch graphFormat {
	case "json":
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(g)
	case "dot":
		writeDOT(cmd.OutOrStdout(), g)
		return nil
	default:
		return fmt.Errorf("graph: unknown --format %q, want dot or json", graphFormat)
	}
}

// writeDOT renders g as a Graphviz digraph, a node per pipeline stage and an
// edge per tensor connecting producer to consumer.
func writeDOT(out interface{ Write([]byte) (int, error) }, g artifact.Graph) {
	fmt.Fprintln(out, "digraph rune {")
	for _, n := range sortedNodes(g.Nodes) {
		label := n.Name
		if n.Subkind != "" {
			label = fmt.Sprintf("%s\\n%s", n.Name, n.Subkind)
		}
		fmt.Fprintf(out, "  n%d [label=%q, shape=box];\n", n.ID, label)
	}
	tensorByID := make(map[uint32]artifact.GraphTensor, len(g.Tensors))
	for _, t := range g.Tensors {
		tensorByID[t.ID] = t
	}
	for _, n := range sortedNodes(g.Nodes) {
		for _, in := range n.Inputs {
			t := tensorByID[in]
			fmt.Fprintf(out, "  n%d -> n%d [label=%q];\n", t.Producer, n.ID, t.Shape)
		}
	}
	fmt.Fprintln(out, "}")
}

func sortedNodes(nodes []artifact.GraphNode) []artifact.GraphNode {
	out := append([]artifact.GraphNode(nil), nodes...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
