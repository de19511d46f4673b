// Package locus finds literal patterns in strings and structured records.
//
// # Basic Usage
//
// Search a string directly:
//
//	idx, err := locus.IndexOfString("my_library.rb", ".", locus.Options{End: true})
//	// idx == 10
//
// Search string cells of a record:
//
//	path, _ := locus.ParsePath("name")
//	out, err := locus.IndexOf(record, locus.Options{Pattern: ".", Paths: []locus.Path{path}})
//
// # Saved Searches
//
// A Searcher runs named jobs over many items at once:
//
//	searcher, err := locus.NewSearcher()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer searcher.Close()
//
//	results, err := searcher.Run(ctx, items)
//	for _, r := range results {
//	    fmt.Printf("%s: %s\n", r.JobID, r.Output)
//	}
package locus

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/praetorian-inc/locus/pkg/argmax"
	"github.com/praetorian-inc/locus/pkg/cellpath"
	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/engine"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/job"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"github.com/praetorian-inc/locus/pkg/store"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Re-export commonly used types for convenience.
// Users can import just "github.com/praetorian-inc/locus" without subpackages.
type (
	// Value is a structured value: a string, number, list, record and so on.
	Value = types.Value

	// Options configures one index-of search.
	Options = indexof.Options

	// Path addresses a cell inside a structured value.
	Path = cellpath.Path

	// Range is an unresolved search window.
	Range = rangespec.RawRange

	// Job is a named, saved search.
	Job = job.Job

	// Result records one job applied to one item.
	Result = types.Result

	// Error is a diagnostic carrying a kind, a label and a source span.
	Error = diag.Error
)

// Re-export diagnostic sentinels for use with errors.Is.
var (
	ErrTooManyIndexes = diag.ErrTooManyIndexes
	ErrInvalidStart   = diag.ErrInvalidStart
	ErrInvalidEnd     = diag.ErrInvalidEnd
	ErrType           = diag.ErrType
	ErrPathTraversal  = diag.ErrPathTraversal
)

// IndexOf runs index-of over input. Without paths input must be a string
// and the result is an int; with paths each addressed cell is replaced by
// its result.
func IndexOf(input Value, opts Options) (Value, error) {
	return indexof.Apply(input, opts)
}

// IndexOfString returns the byte offset of pattern in s, or -1. Only the
// Range and End fields of opts are used.
func IndexOfString(s, pattern string, opts Options) (int64, error) {
	opts.Pattern = pattern
	opts.Paths = nil
	out, err := indexof.Apply(types.String(s), opts)
	if err != nil {
		return 0, err
	}
	idx, _ := out.AsInt()
	return idx, nil
}

// ArgMax returns the row index of the largest value of a single-column
// table as a one-row table, or an empty table for empty input.
func ArgMax(table Value) (Value, error) {
	return argmax.Apply(table)
}

// ParsePath parses dotted cell path text such as "meta.tags.0".
func ParsePath(text string) (Path, error) {
	return cellpath.Parse(text)
}

// ParseRange builds a range from "start,end" text. Either side may be
// empty or negative.
func ParseRange(text string) *Range {
	r := rangespec.Text(text).WithSpan(types.Span{Start: 0, End: len(text)})
	return &r
}

// Decode reads every item from r. format is "auto", "json" or "yaml".
func Decode(r io.Reader, format string) ([]Value, error) {
	dec, err := codec.NewDecoder(r, format)
	if err != nil {
		return nil, err
	}

	var items []Value
	for {
		v, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return items, nil
		}
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
}

// Searcher runs saved searches over items.
type Searcher struct {
	core   *engine.Core
	config *searcherConfig
	mu     sync.RWMutex
}

// searcherConfig holds searcher configuration.
type searcherConfig struct {
	jobs    []*Job
	workers int
}

// Option configures a Searcher.
type Option func(*searcherConfig)

// WithJobs uses custom jobs instead of the builtin jobs.
func WithJobs(jobs []*Job) Option {
	return func(c *searcherConfig) {
		c.jobs = jobs
	}
}

// WithWorkers sets the number of items searched in parallel.
// Default is one per CPU.
func WithWorkers(workers int) Option {
	return func(c *searcherConfig) {
		c.workers = workers
	}
}

// NewSearcher creates a Searcher with the given options.
//
// By default the searcher runs every builtin job and keeps results in
// memory only.
func NewSearcher(opts ...Option) (*Searcher, error) {
	config := &searcherConfig{}
	for _, opt := range opts {
		opt(config)
	}

	if config.jobs == nil {
		jobs, err := engine.GetBuiltinJobs()
		if err != nil {
			return nil, fmt.Errorf("loading builtin jobs: %w", err)
		}
		config.jobs = jobs
	}

	core, err := engine.NewCore(engine.Config{Store: store.Discard{}, Workers: config.workers})
	if err != nil {
		return nil, fmt.Errorf("creating core: %w", err)
	}

	return &Searcher{core: core, config: config}, nil
}

// Run applies every job to every item and returns the results in item
// order, then job order. Jobs that fail on an item produce no result.
func (s *Searcher) Run(ctx context.Context, values []Value) ([]*Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]engine.Item, len(values))
	for i, v := range values {
		item, err := engine.NewItem(v, types.RequestProvenance{Source: "library", Index: i})
		if err != nil {
			return nil, err
		}
		items[i] = item
	}

	results, _, err := s.core.RunJobs(ctx, s.config.jobs, items)
	return results, err
}

// RunString runs every job over a single string.
func (s *Searcher) RunString(ctx context.Context, content string) ([]*Result, error) {
	return s.Run(ctx, []Value{types.String(content)})
}

// Close releases searcher resources.
func (s *Searcher) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.core.Close()
}

// JobCount returns the number of jobs loaded.
func (s *Searcher) JobCount() int {
	return len(s.config.jobs)
}

// Jobs returns a copy of the loaded jobs.
func (s *Searcher) Jobs() []*Job {
	jobs := make([]*Job, len(s.config.jobs))
	copy(jobs, s.config.jobs)
	return jobs
}

// LoadJobsFromFile loads jobs from a YAML file.
// Use this with WithJobs to create a searcher with custom jobs.
func LoadJobsFromFile(path string) ([]*Job, error) {
	return job.NewLoader().LoadFile(path)
}

// LoadBuiltinJobs returns all builtin jobs.
//
// Example:
//
//	jobs, err := locus.LoadBuiltinJobs()
//	if err != nil {
//	    return err
//	}
//
//	// Keep only path jobs
//	var pathJobs []*locus.Job
//	for _, j := range jobs {
//	    if strings.HasPrefix(j.ID, "path.") {
//	        pathJobs = append(pathJobs, j)
//	    }
//	}
//	searcher, err := locus.NewSearcher(locus.WithJobs(pathJobs))
func LoadBuiltinJobs() ([]*Job, error) {
	return engine.GetBuiltinJobs()
}

// DecodeString is Decode over a string.
func DecodeString(s, format string) ([]Value, error) {
	return Decode(strings.NewReader(s), format)
}
