package main

import (
	"errors"
	"os"

	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/spf13/cobra"
)

var (
	verbose   bool
	quiet     bool
	colorMode string
)

var rootCmd = &cobra.Command{
	Use:   "locus",
	Short: "Locus - find literal patterns in strings and structured records",
	Long: `Locus reports where a literal pattern occurs in string values, either in
scalar strings or in nested fields of structured records.

Input is read as a stream of items (NDJSON, a JSON array, or YAML documents)
and one output value is written per item.`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Quiet mode (errors only)")
	rootCmd.PersistentFlags().StringVar(&colorMode, "color", "auto", "Color output: auto, always, never")

	// Add subcommands
	rootCmd.AddCommand(strCmd)
	rootCmd.AddCommand(dataframeCmd)
	rootCmd.AddCommand(jobsCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(versionCmd)
}

// Execute runs the root command and renders any error to stderr.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		renderError(rootCmd, err)
	}
	return err
}

// newLogger returns the debug logger selected by --verbose.
func newLogger(cmd *cobra.Command) diag.DebugLogger {
	if verbose {
		return diag.NewWriterLogger(cmd.ErrOrStderr())
	}
	return diag.NoopLogger{}
}

// statusf prints a user-facing status line unless --quiet is set.
func statusf(cmd *cobra.Command, format string, args ...interface{}) {
	if quiet {
		return
	}
	cmd.PrintErrf(format, args...)
}

// sourcedError attaches the text a diagnostic span points into.
type sourcedError struct {
	err error
	src diag.Source
}

func (e *sourcedError) Error() string { return e.err.Error() }
func (e *sourcedError) Unwrap() error { return e.err }

func withSource(err error, src diag.Source) error {
	if err == nil {
		return nil
	}
	return &sourcedError{err: err, src: src}
}

// renderError prints err as a labeled diagnostic when it carries a source.
func renderError(cmd *cobra.Command, err error) {
	var src diag.Source
	var se *sourcedError
	if errors.As(err, &se) {
		src = se.src
	}
	diag.Render(cmd.ErrOrStderr(), err, src, diag.ColorEnabled(colorMode, os.Stderr))
}
