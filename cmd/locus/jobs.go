package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/job"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/spf13/cobra"
)

var (
	jobsPath       string
	jobsInclude    string
	jobsExclude    string
	jobsListFormat string
	jobsRunInput   inputOptions
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "Manage and run saved searches",
	Long:  "Commands for listing, validating and running named index-of searches defined in YAML job files",
}

var jobsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List available jobs",
	Long:  "Display all available jobs with their IDs and names",
	RunE:  runJobsList,
}

var jobsValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check jobs against their examples",
	RunE:  runJobsValidate,
}

var jobsRunCmd = &cobra.Command{
	Use:   "run",
	Short: "Run jobs over input items",
	Long: `Run every selected job over every input item and print one result per
job and item. A job that fails on an item is reported in verbose mode and
skipped.`,
	RunE: runJobsRun,
}

func init() {
	jobsCmd.AddCommand(jobsListCmd)
	jobsCmd.AddCommand(jobsValidateCmd)
	jobsCmd.AddCommand(jobsRunCmd)

	jobsCmd.PersistentFlags().StringVar(&jobsPath, "jobs", "", "Path to a custom jobs file")
	jobsCmd.PersistentFlags().StringVar(&jobsInclude, "jobs-include", "", "Include jobs matching regex pattern (comma-separated)")
	jobsCmd.PersistentFlags().StringVar(&jobsExclude, "jobs-exclude", "", "Exclude jobs matching regex pattern (comma-separated)")
	jobsListCmd.Flags().StringVar(&jobsListFormat, "format", "table", "Output format: table, json")
	jobsRunInput.register(jobsRunCmd)
}

func loadJobs(path, include, exclude string) ([]*job.Job, error) {
	var jobs []*job.Job
	var err error

	if path != "" {
		// Custom jobs from file
		jobs, err = job.NewLoader().LoadFile(path)
		if err != nil {
			return nil, err
		}
	} else {
		// Builtin jobs
		jobs, err = engine.GetBuiltinJobs()
		if err != nil {
			return nil, err
		}
	}

	// Apply filtering if patterns specified
	if include != "" || exclude != "" {
		config := job.FilterConfig{
			Include: job.ParsePatterns(include),
			Exclude: job.ParsePatterns(exclude),
		}
		jobs, err = job.Filter(jobs, config)
		if err != nil {
			return nil, fmt.Errorf("filtering jobs: %w", err)
		}
	}

	return jobs, nil
}

func runJobsList(cmd *cobra.Command, args []string) error {
	jobs, err := loadJobs(jobsPath, jobsInclude, jobsExclude)
	if err != nil {
		return fmt.Errorf("loading jobs: %w", err)
	}

	switch jobsListFormat {
	case "json":
		return outputJobsJSON(cmd, jobs)
	case "table":
		return outputJobsTable(cmd, jobs)
	default:
		return fmt.Errorf("unknown output format: %s", jobsListFormat)
	}
}

func runJobsValidate(cmd *cobra.Command, args []string) error {
	jobs, err := loadJobs(jobsPath, jobsInclude, jobsExclude)
	if err != nil {
		return fmt.Errorf("loading jobs: %w", err)
	}

	if err := job.ValidateJobs(jobs); err != nil {
		return err
	}

	examples := 0
	for _, j := range jobs {
		examples += len(j.Examples)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d jobs valid (%d examples checked)\n", len(jobs), examples)
	return nil
}

func runJobsRun(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	jobs, err := loadJobs(jobsPath, jobsInclude, jobsExclude)
	if err != nil {
		return fmt.Errorf("loading jobs: %w", err)
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no jobs selected")
	}

	core, err := jobsRunInput.newCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	items, _, err := jobsRunInput.readAll(ctx, cmd)
	if err != nil {
		return err
	}

	results, summary, err := core.RunJobs(ctx, jobs, items)
	if err != nil {
		return fmt.Errorf("running jobs: %w", err)
	}

	enc, err := codec.NewEncoder(cmd.OutOrStdout(), jobsRunInput.outputFormat)
	if err != nil {
		return err
	}
	for _, r := range results {
		if err := enc.Encode(resultValue(r)); err != nil {
			return err
		}
	}
	if err := enc.Close(); err != nil {
		return err
	}

	statusf(cmd, "Jobs complete: %d results over %d items (%d failed", summary.Results, summary.Items, summary.Errors)
	if jobsRunInput.incremental {
		statusf(cmd, ", %d skipped", summary.Skipped)
	}
	statusf(cmd, ")\n")
	if jobsRunInput.db != "" {
		statusf(cmd, "Results stored in: %s\n", jobsRunInput.db)
	}
	return nil
}

// resultValue renders a job result as a record.
func resultValue(r *types.Result) types.Value {
	return types.RecordOf(
		[]string{"job", "item", "source", "output"},
		[]types.Value{
			types.String(r.JobID),
			types.String(r.ItemID.Hex()),
			types.String(r.Source),
			r.Output,
		},
	)
}

// =============================================================================
// HELPERS
// =============================================================================

// jobView is the JSON listing form of a job.
type jobView struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Options     indexof.Options `json:"options"`
	Categories  []string        `json:"categories,omitempty"`
}

func outputJobsJSON(cmd *cobra.Command, jobs []*job.Job) error {
	views := make([]jobView, len(jobs))
	for i, j := range jobs {
		views[i] = jobView{
			ID:          j.ID,
			Name:        j.Name,
			Description: j.Description,
			Options:     j.Options,
			Categories:  j.Categories,
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	return encoder.Encode(views)
}

func outputJobsTable(cmd *cobra.Command, jobs []*job.Job) error {
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "ID\tName\tPattern\tCategories\n")
	fmt.Fprintf(w, "--\t----\t-------\t----------\n")

	for _, j := range jobs {
		categories := ""
		if len(j.Categories) > 0 {
			categories = j.Categories[0]
			if len(j.Categories) > 1 {
				categories += fmt.Sprintf(" (+%d)", len(j.Categories)-1)
			}
		}
		fmt.Fprintf(w, "%s\t%s\t%q\t%s\n", j.ID, j.Name, j.Options.Pattern, categories)
	}

	return nil
}
