package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/spf13/cobra"
)

// newTestCmd returns a bare command reading stdin and capturing stdout and
// stderr.
func newTestCmd(t *testing.T, stdin string) (*cobra.Command, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)

	verbose = false
	quiet = false
	colorMode = "never"
	return cmd, &out, &errOut
}

// defaultInput mirrors the input flag defaults.
func defaultInput() inputOptions {
	return inputOptions{
		format:       codec.FormatAuto,
		outputFormat: codec.OutputJSON,
		workers:      1,
	}
}
