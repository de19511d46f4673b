package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/praetorian-inc/locus/pkg/cellpath"
	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	indexOfRange string
	indexOfEnd   bool
	indexOfInput inputOptions
)

var strCmd = &cobra.Command{
	Use:   "str",
	Short: "String commands",
}

var indexOfCmd = &cobra.Command{
	Use:   "index-of <pattern> [cell-path...]",
	Short: "Find the byte offset of a literal pattern",
	Long: `Report the byte offset where a literal pattern first occurs in each input
string, or -1 when it does not occur.

With cell paths, the addressed string cells of records and tables are
replaced by their offsets and the rest of the value is passed through.`,
	Example: `  echo '"my_library.rb"' | locus str index-of '.' --end
  echo '".rb.rb"' | locus str index-of '.rb' --range 1,
  echo '"123456"' | locus str index-of '3' --range '[1, 4]'
  echo '{"name": "Cargo.toml"}' | locus str index-of '.' name`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndexOf,
}

func init() {
	strCmd.AddCommand(indexOfCmd)
	indexOfCmd.Flags().StringVarP(&indexOfRange, "range", "r", "", `Search window: "start,end" or a list such as "[1, 4]"`)
	indexOfCmd.Flags().BoolVarP(&indexOfEnd, "end", "e", false, "Report the last occurrence instead of the first")
	indexOfInput.register(indexOfCmd)
}

func runIndexOf(cmd *cobra.Command, args []string) error {
	opts := indexof.Options{
		Pattern: args[0],
		End:     indexOfEnd,
	}

	rangeSource := diag.Source{Name: "--range", Text: []byte(indexOfRange)}
	if indexOfRange != "" {
		r, err := parseRangeFlag(indexOfRange)
		if err != nil {
			return withSource(fmt.Errorf("invalid --range: %w", err), rangeSource)
		}
		opts.Range = r
	}

	paths, pathSource, err := parsePathArgs(args[1:])
	if err != nil {
		return withSource(err, pathSource)
	}
	opts.Paths = paths

	raw, err := json.Marshal(opts)
	if err != nil {
		return fmt.Errorf("encoding options: %w", err)
	}

	core, err := indexOfInput.newCore(cmd)
	if err != nil {
		return err
	}
	defer core.Close()

	runner, err := core.Prepare(command.IndexOf, raw, func(v types.Value) (types.Value, error) {
		return indexof.Apply(v, opts)
	})
	if err != nil {
		return err
	}

	pick := func(kind diag.Kind) (diag.Source, bool) {
		switch kind {
		case diag.KindTooManyIndexes, diag.KindInvalidStart, diag.KindInvalidEnd:
			return rangeSource, true
		case diag.KindPathTraversal:
			return pathSource, true
		}
		return diag.Source{}, false
	}

	stats, err := indexOfInput.runStream(context.Background(), cmd, runner, pick)
	if err != nil {
		return err
	}
	indexOfInput.reportStored(cmd, stats)
	return nil
}

// parseRangeFlag reads --range. A value starting with "[" is a YAML flow
// list; anything else is "start,end" text. Spans point into text.
func parseRangeFlag(text string) (*rangespec.RawRange, error) {
	if !strings.HasPrefix(strings.TrimSpace(text), "[") {
		r := rangespec.Text(text).WithSpan(types.Span{Start: 0, End: len(text)})
		return &r, nil
	}

	var node yaml.Node
	if err := yaml.Unmarshal([]byte(text), &node); err != nil {
		return nil, fmt.Errorf("parsing list: %w", err)
	}
	v, err := codec.FromYAMLNode(&node, []byte(text))
	if err != nil {
		return nil, err
	}
	r, err := rangespec.FromValue(v)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// parsePathArgs parses cell path arguments. Spans point into the arguments
// joined with single spaces, which is the returned source text.
func parsePathArgs(args []string) ([]cellpath.Path, diag.Source, error) {
	src := diag.Source{Name: "cell path", Text: []byte(strings.Join(args, " "))}

	var paths []cellpath.Path
	offset := 0
	for _, arg := range args {
		p, err := cellpath.ParseAt(arg, offset)
		if err != nil {
			return nil, src, err
		}
		paths = append(paths, p)
		offset += len(arg) + 1
	}
	return paths, src, nil
}
