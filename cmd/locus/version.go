package main

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=... -X main.commit=...".
var (
	version = "dev"
	commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the version of Locus and the commands it serves",
	RunE:  runVersion,
}

// buildCommit falls back to the VCS revision stamped by the Go toolchain.
func buildCommit() string {
	if commit != "unknown" {
		return commit
	}
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return commit
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.revision" && s.Value != "" {
			return s.Value
		}
	}
	return commit
}

func runVersion(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Locus v%s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", buildCommit())
	fmt.Fprintf(out, "Commands: %s\n", strings.Join(command.Names(), ", "))
	fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	return nil
}
