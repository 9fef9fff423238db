package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/artifact"
	"github.com/rune-sh/rune/internal/util"
)

var inspectFormat string

func init() {
	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "table", "Output format: table or json")
	rootCmd.AddCommand(inspectCmd)
}

var inspectCmd = &cobra.Command{
	Use:           "inspect <rune-file>",
	Short:         "Print the node graph and build metadata carried by a .rune artifact",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	RunE:          runInspect,
}

type inspectReport struct {
	Version artifact.VersionInfo `json:"version"`
	Graph   artifact.Graph       `json:"graph"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	cmd.SilenceUsage = true

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}
	art, err := artifact.Load(raw)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	var report inspectReport
	if buf, ok := art.Sections[artifact.SectionVersion]; ok {
		report.Version, err = artifact.DecodeVersion(buf)
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}
	}
	buf, ok := art.Sections[artifact.SectionGraph]
	if !ok {
		return fmt.Errorf("inspect: artifact has no %s section", artifact.SectionGraph)
	}
	report.Graph, err = artifact.DecodeGraph(buf)
	if err != nil {
		return fmt.Errorf("inspect: %w", err)
	}

	var formatter util.OutputFormatter
	switch inspectFormat {
	case "json":
		formatter = &util.JSONOutputFormatter[inspectReport]{Data: report, Out: cmd.OutOrStdout()}
	default:
		headers := []string{"ID", "Name", "Kind", "Subkind", "Inputs", "Outputs"}
		rows := make([][]string, 0, len(report.Graph.Nodes))
		for _, n := range report.Graph.Nodes {
			rows = append(rows, []string{
				strconv.FormatUint(uint64(n.ID), 10),
				n.Name,
				n.Kind,
				n.Subkind,
				joinUint32(n.Inputs),
				joinUint32(n.Outputs),
			})
		}
		formatter = &util.TableOutputFormatter{Headers: headers, Rows: rows, Out: cmd.OutOrStdout()}
	}
	formatter.Display()

	if inspectFormat != "json" {
		fmt.Fprintf(cmd.OutOrStdout(), "build: %s (toolchain: %s)\n", report.Version.BuildVersion, report.Version.Toolchain)
	}
	return nil
}

func joinUint32(ids []uint32) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatUint(uint64(id), 10)
	}
	return strings.Join(parts, ", ")
}
