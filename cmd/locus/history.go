package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/praetorian-inc/locus/pkg/datastore"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/store"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/spf13/cobra"
)

var (
	historyDB      string
	historyFormat  string
	historyCommand string
	historyJob     string
	historyLimit   int
	historyArchive string
	historyItem    string
)

// styles holds color formatters for history output
type styles struct {
	resultHeading *color.Color
	id            *color.Color
	command       *color.Color
	heading       *color.Color
	output        *color.Color
	metadata      *color.Color
}

// newStyles creates color formatters for history output
// enabled=false respects --color=never and the NO_COLOR env var
func newStyles(enabled bool) *styles {
	s := &styles{
		resultHeading: color.New(color.Bold, color.FgHiWhite),
		id:            color.New(color.FgHiGreen),
		command:       color.New(color.Bold, color.FgHiBlue),
		heading:       color.New(color.Bold),
		output:        color.New(color.FgYellow),
		metadata:      color.New(color.FgHiBlue),
	}

	if !enabled {
		s.resultHeading.DisableColor()
		s.id.DisableColor()
		s.command.DisableColor()
		s.heading.DisableColor()
		s.output.DisableColor()
		s.metadata.DisableColor()
	}

	return s
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded results",
	Long:  "Read results recorded with --db and print them, oldest first",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyDB, "db", "locus.db", "Path to the history database")
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format: human, json")
	historyCmd.Flags().StringVar(&historyCommand, "command", "", `Only show results of this command (e.g. "str index-of")`)
	historyCmd.Flags().StringVar(&historyJob, "job", "", "Only show results of this job")
	historyCmd.Flags().StringVar(&historyItem, "item", "", "Only show results for this item ID")
	historyCmd.Flags().StringVar(&historyArchive, "archive", "", "Show item content from this archive directory")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show at most this many results (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) error {
	if historyDB == store.MemoryPath {
		return fmt.Errorf("cannot read history from in-memory store")
	}
	if _, err := os.Stat(historyDB); err != nil {
		return fmt.Errorf("history database not found: %s", historyDB)
	}

	s, err := store.New(store.Config{Path: historyDB})
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer s.Close()

	all, err := loadResults(s, historyItem)
	if err != nil {
		return fmt.Errorf("retrieving results: %w", err)
	}
	results := filterResults(all, historyCommand, historyJob, historyLimit)

	var archive *datastore.ItemArchive
	if historyArchive != "" {
		archive = &datastore.ItemArchive{Root: historyArchive}
	}

	switch historyFormat {
	case "json":
		return outputHistoryJSON(cmd, results)
	case "human":
		return outputHistoryHuman(cmd, results, archive)
	default:
		return fmt.Errorf("unknown output format: %s", historyFormat)
	}
}

// loadResults reads every result, or only those of the item whose hex ID
// is given.
func loadResults(s store.Store, item string) ([]*types.Result, error) {
	if item == "" {
		return s.GetAllResults()
	}
	id, err := types.ParseItemID(item)
	if err != nil {
		return nil, fmt.Errorf("invalid --item: %w", err)
	}
	return s.GetResults(id)
}

// filterResults keeps results matching command and job, up to limit.
func filterResults(results []*types.Result, command, jobID string, limit int) []*types.Result {
	out := make([]*types.Result, 0, len(results))
	for _, r := range results {
		if command != "" && r.Command != command {
			continue
		}
		if jobID != "" && r.JobID != jobID {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// =============================================================================
// HELPERS
// =============================================================================

// formatOutput truncates rendered output to maxLen bytes, keeping the start.
func formatOutput(output string, maxLen int) string {
	if len(output) <= maxLen {
		return output
	}
	if maxLen <= 3 {
		return output[:maxLen]
	}
	return output[:maxLen-3] + "..."
}

func outputHistoryJSON(cmd *cobra.Command, results []*types.Result) error {
	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(results)
}

func outputHistoryHuman(cmd *cobra.Command, results []*types.Result, archive *datastore.ItemArchive) error {
	out := cmd.OutOrStdout()
	s := newStyles(diag.ColorEnabled(colorMode, os.Stdout))

	if len(results) == 0 {
		fmt.Fprintf(out, "No results recorded in %s\n", historyDB)
		return nil
	}

	total := len(results)
	for i, r := range results {
		// Result header - "Result N/M" in resultHeading style, "(id xyz)" with ID in id style
		fmt.Fprintf(out, "%s (%s %s)\n",
			s.resultHeading.Sprintf("Result %d/%d", i+1, total),
			s.heading.Sprint("id"),
			s.id.Sprint(r.ID))

		fmt.Fprintf(out, "%s %s %s\n",
			s.heading.Sprint("Command:"),
			s.command.Sprint(r.Command),
			s.metadata.Sprint(r.Options))

		if r.JobID != "" {
			fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Job:"), s.command.Sprint(r.JobID))
		}

		if r.Source != "" {
			fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Source:"), s.metadata.Sprint(r.Source))
		}

		fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Item:"), s.metadata.Sprint(r.ItemID.Hex()))

		if archive != nil {
			if content, err := archive.Get(r.ItemID); err == nil {
				fmt.Fprintf(out, "%s %s\n", s.heading.Sprint("Content:"), formatOutput(string(content), 500))
			}
		}

		fmt.Fprintf(out, "%s %s\n\n",
			s.heading.Sprint("Output:"),
			s.output.Sprint(formatOutput(r.Output.String(), 500)))
	}

	return nil
}
