package main

import (
	"context"
	"fmt"

	"github.com/praetorian-inc/locus/pkg/argmax"
	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/enum"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/spf13/cobra"
)

var argMaxInput inputOptions

var dataframeCmd = &cobra.Command{
	Use:   "dataframe",
	Short: "Single-column table commands",
}

var argMaxCmd = &cobra.Command{
	Use:   "arg-max",
	Short: "Report the index of the largest value",
	Long: `Read a single-column table and report the row index of its largest
value as [{"arg_max": N}]. The first index wins on ties, and an empty table
gives an empty list.

A single input item that is a list or record is the table. Otherwise every
input item is one row.`,
	Example: `  echo '[1, 7, 3]' | locus dataframe arg-max
  printf '{"a": 1}\n{"a": 9}\n' | locus dataframe arg-max`,
	Args: cobra.NoArgs,
	RunE: runArgMax,
}

func init() {
	dataframeCmd.AddCommand(argMaxCmd)
	argMaxInput.register(argMaxCmd)
}

func runArgMax(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	core, err := argMaxInput.newCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	runner, err := core.Command(command.ArgMax, nil)
	if err != nil {
		return err
	}

	items, docs, err := argMaxInput.readAll(ctx, cmd)
	if err != nil {
		return err
	}

	values := make([]types.Value, len(items))
	for i, item := range items {
		values[i] = item.Value
	}
	table, err := tableItem(argmax.Collect(values), items, docs)
	if err != nil {
		return err
	}

	stats := &streamStats{items: 1}
	seen, err := runner.Seen(table)
	if err != nil {
		return err
	}
	if seen {
		stats.items, stats.skipped = 0, 1
		argMaxInput.reportStored(cmd, stats)
		return nil
	}

	out, err := runner.Apply(table)
	if err != nil {
		// Spans only identify a location when every row came from one document
		var src diag.Source
		if len(docs) == 1 {
			src = documentSource(docs[0])
		}
		return withSource(fmt.Errorf("processing table: %w", err), src)
	}

	enc, err := codec.NewEncoder(cmd.OutOrStdout(), argMaxInput.outputFormat)
	if err != nil {
		return err
	}
	if err := enc.Encode(out); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}

	argMaxInput.reportStored(cmd, stats)
	return nil
}

// tableItem identifies the collected table. A table taken whole from one
// item keeps that item's provenance.
func tableItem(table types.Value, items []engine.Item, docs []enum.Document) (engine.Item, error) {
	if len(items) == 1 {
		return engine.NewItem(table, items[0].Provenance)
	}
	var prov types.Provenance
	if len(docs) > 0 {
		prov = docs[0].Provenance(0)
	}
	return engine.NewItem(table, prov)
}
