package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dustin/go-humanize"
	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/datastore"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/enum"
	"github.com/praetorian-inc/locus/pkg/store"
	"github.com/praetorian-inc/locus/pkg/stream"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/spf13/cobra"
)

// inputOptions are the flags shared by commands that read items.
type inputOptions struct {
	paths         []string
	format        string
	outputFormat  string
	workers       int
	db            string
	archive       string
	incremental   bool
	includeHidden bool
	maxFileSize   string
}

func (o *inputOptions) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVarP(&o.paths, "input", "i", nil, "Input files or directories (default: stdin)")
	f.StringVar(&o.format, "format", codec.FormatAuto, "Input format: auto, json, yaml")
	f.StringVarP(&o.outputFormat, "output-format", "o", codec.OutputJSON, "Output format: json, pretty, yaml")
	f.IntVar(&o.workers, "workers", 1, "Items processed in parallel (0 = one per CPU)")
	f.StringVar(&o.db, "db", "", "Record results in this history database")
	f.StringVar(&o.archive, "archive", "", "Keep a copy of every processed item in this directory")
	f.BoolVar(&o.incremental, "incremental", false, "Skip items already recorded in --db")
	f.BoolVar(&o.includeHidden, "include-hidden", false, "Include hidden files and directories")
	f.StringVar(&o.maxFileSize, "max-file-size", "10MiB", "Maximum input file size (e.g. 512KB, 10MiB; 0 = no limit)")
}

// newCore opens the history store selected by --db. Without --db nothing
// is recorded.
func (o *inputOptions) newCore(cmd *cobra.Command) (*engine.Core, error) {
	if o.incremental && o.db == "" {
		return nil, fmt.Errorf("--incremental requires --db")
	}

	var archive *datastore.ItemArchive
	if o.archive != "" {
		var err error
		if archive, err = datastore.Open(o.archive); err != nil {
			return nil, err
		}
	}

	s, err := openHistory(o.db)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	core, err := engine.NewCore(engine.Config{
		Store:       s,
		Logger:      newLogger(cmd),
		Workers:     o.workers,
		Incremental: o.incremental,
		Archive:     archive,
	})
	if err != nil {
		s.Close()
		return nil, err
	}
	return core, nil
}

// openHistory opens the history database at path, or a store that keeps
// nothing when path is empty.
func openHistory(path string) (store.Store, error) {
	if path == "" {
		return store.Discard{}, nil
	}
	return store.New(store.Config{Path: path})
}

func (o *inputOptions) enumerator(cmd *cobra.Command) (enum.Enumerator, error) {
	var maxSize uint64
	if o.maxFileSize != "" {
		var err error
		if maxSize, err = humanize.ParseBytes(o.maxFileSize); err != nil {
			return nil, fmt.Errorf("invalid --max-file-size: %w", err)
		}
	}
	return enum.New(enum.Config{
		Paths:         o.paths,
		IncludeHidden: o.includeHidden,
		MaxFileSize:   int64(maxSize),
		Logger:        newLogger(cmd),
	}, cmd.InOrStdin()), nil
}

// documentSource names an input document for diagnostics.
func documentSource(doc enum.Document) diag.Source {
	name := doc.Path
	if name == enum.StdinPath {
		name = "stdin"
	}
	return diag.Source{Name: name, Text: doc.Content}
}

// sourcePicker returns the source a diagnostic of the given kind points
// into, when that is not the input document.
type sourcePicker func(kind diag.Kind) (diag.Source, bool)

func noSources(diag.Kind) (diag.Source, bool) { return diag.Source{}, false }

// streamStats counts processed items.
type streamStats struct {
	items   int
	skipped int
}

// decodeItems reads every item of doc, dropping items the runner has
// already seen.
func (o *inputOptions) decodeItems(doc enum.Document, runner *engine.Runner, stats *streamStats) ([]engine.Item, error) {
	dec, err := codec.NewDecoder(bytes.NewReader(doc.Content), o.format)
	if err != nil {
		return nil, err
	}

	var items []engine.Item
	for i := 0; ; i++ {
		v, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("reading item %d: %w", i, err)
		}
		item, err := engine.NewItem(v, doc.Provenance(i))
		if err != nil {
			return nil, err
		}
		if runner != nil {
			seen, err := runner.Seen(item)
			if err != nil {
				return nil, err
			}
			if seen {
				stats.skipped++
				continue
			}
		}
		items = append(items, item)
	}
}

// runStream applies runner to every item of every input document and
// writes one output per item, in input order.
func (o *inputOptions) runStream(ctx context.Context, cmd *cobra.Command, runner *engine.Runner, pick sourcePicker) (*streamStats, error) {
	enc, err := codec.NewEncoder(cmd.OutOrStdout(), o.outputFormat)
	if err != nil {
		return nil, err
	}

	stats := &streamStats{}
	e, err := o.enumerator(cmd)
	if err != nil {
		return nil, err
	}
	err = e.Enumerate(ctx, func(doc enum.Document) error {
		var err error
		if o.workers == 1 {
			err = o.streamDocument(ctx, doc, runner, enc, stats)
		} else {
			err = o.parallelDocument(ctx, doc, runner, enc, stats)
		}
		if err == nil {
			return nil
		}

		docSrc := documentSource(doc)
		src := docSrc
		if s, ok := pick(diag.KindOf(err)); ok {
			src = s
		}
		return withSource(fmt.Errorf("processing %s: %w", docSrc.Name, err), src)
	})
	if err != nil {
		return nil, err
	}

	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("writing output: %w", err)
	}
	return stats, nil
}

// streamDocument decodes and processes one item at a time.
func (o *inputOptions) streamDocument(ctx context.Context, doc enum.Document, runner *engine.Runner, enc *codec.Encoder, stats *streamStats) error {
	dec, err := codec.NewDecoder(bytes.NewReader(doc.Content), o.format)
	if err != nil {
		return err
	}

	index := 0
	var current engine.Item
	next := func() (types.Value, error) {
		for {
			v, err := dec.Next()
			if err != nil {
				return v, err
			}
			item, err := engine.NewItem(v, doc.Provenance(index))
			index++
			if err != nil {
				return v, err
			}
			seen, err := runner.Seen(item)
			if err != nil {
				return v, err
			}
			if seen {
				stats.skipped++
				continue
			}
			current = item
			return v, nil
		}
	}
	apply := func(types.Value) (types.Value, error) {
		return runner.Apply(current)
	}
	emit := func(v types.Value) error {
		stats.items++
		return enc.Encode(v)
	}
	return stream.Process(ctx, next, apply, emit)
}

// parallelDocument decodes a whole document, then processes its items on
// the worker pool.
func (o *inputOptions) parallelDocument(ctx context.Context, doc enum.Document, runner *engine.Runner, enc *codec.Encoder, stats *streamStats) error {
	items, err := o.decodeItems(doc, runner, stats)
	if err != nil {
		return err
	}

	outputs, err := stream.ProcessOrdered(ctx, items, o.workers, runner.Apply)
	if err != nil {
		return err
	}
	for _, out := range outputs {
		stats.items++
		if err := enc.Encode(out); err != nil {
			return err
		}
	}
	return nil
}

// readAll decodes every item of every input document.
func (o *inputOptions) readAll(ctx context.Context, cmd *cobra.Command) ([]engine.Item, []enum.Document, error) {
	var items []engine.Item
	var docs []enum.Document
	e, err := o.enumerator(cmd)
	if err != nil {
		return nil, nil, err
	}
	err = e.Enumerate(ctx, func(doc enum.Document) error {
		docItems, err := o.decodeItems(doc, nil, nil)
		if err != nil {
			src := documentSource(doc)
			return withSource(fmt.Errorf("processing %s: %w", src.Name, err), src)
		}
		items = append(items, docItems...)
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return items, docs, nil
}

// reportStored prints where results were recorded.
func (o *inputOptions) reportStored(cmd *cobra.Command, stats *streamStats) {
	if o.db == "" {
		return
	}
	if o.incremental {
		statusf(cmd, "Processed %d items (%d skipped)\n", stats.items, stats.skipped)
	} else {
		statusf(cmd, "Processed %d items\n", stats.items)
	}
	statusf(cmd, "Results stored in: %s\n", o.db)
}
