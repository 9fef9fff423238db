/*
Apache Score
Copyright 2022 The Apache Software Foundation

This product includes software developed at
The Apache Software Foundation (http://www.apache.org/).
*/
package command

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rune-sh/rune/internal/logging"
	"github.com/rune-sh/rune/internal/version"
)

var (
	verbose bool

	rootCmd = &cobra.Command{
		Use:   "rune",
		Short: "Compile and run Runefile pipelines",
		Long: `Rune compiles a declarative Runefile pipeline description into a WebAssembly
.rune artifact and runs it against a pluggable host image.
Complete documentation is available in the Runefile reference.`,
		Version:           version.BuildVersionString(),
		PersistentPreRunE: setupLogging,
	}
)

func init() {
	rootCmd.SetVersionTemplate(`{{with .Name}}{{printf "%s " .}}{{end}}{{printf "%s" .Version}}
`)
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
}

func setupLogging(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handler := &logging.SimpleHandler{Writer: os.Stderr, Level: level}
	slog.SetDefault(slog.New(handler))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}
