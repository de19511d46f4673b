package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/praetorian-inc/locus/pkg/datastore"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/job"
	"github.com/praetorian-inc/locus/pkg/prefilter"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"github.com/praetorian-inc/locus/pkg/store"
	"github.com/praetorian-inc/locus/pkg/stream"
	"github.com/praetorian-inc/locus/pkg/types"
)

var (
	// cachedBuiltinJobs holds builtin jobs loaded once per process
	cachedBuiltinJobs []*job.Job
	cachedJobsErr     error
	cacheOnce         sync.Once
)

// loadBuiltinJobsCached loads builtin jobs once and caches them
func loadBuiltinJobsCached() ([]*job.Job, error) {
	cacheOnce.Do(func() {
		cachedBuiltinJobs, cachedJobsErr = job.NewLoader().LoadBuiltin()
	})
	return cachedBuiltinJobs, cachedJobsErr
}

// GetBuiltinJobs returns the built-in jobs (cached)
func GetBuiltinJobs() ([]*job.Job, error) {
	return loadBuiltinJobsCached()
}

// Config configures a Core.
type Config struct {
	// Store records results. Nil uses a fresh in-memory store.
	Store store.Store

	// Logger receives progress messages. Nil discards them.
	Logger diag.DebugLogger

	// Workers is the number of items processed in parallel by RunJobs.
	// 0 uses one per CPU.
	Workers int

	// Incremental skips items already present in the store.
	Incremental bool

	// Archive keeps a copy of every recorded item. Optional.
	Archive *datastore.ItemArchive
}

// Core runs registered commands and jobs over items and records results.
type Core struct {
	store       store.Store
	logger      diag.DebugLogger
	workers     int
	incremental bool
	archive     *datastore.ItemArchive
}

// NewCore creates a Core.
func NewCore(cfg Config) (*Core, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = diag.NoopLogger{}
	}

	s := cfg.Store
	if s == nil {
		var err error
		s, err = store.New(store.Config{Path: store.MemoryPath})
		if err != nil {
			return nil, fmt.Errorf("creating store: %w", err)
		}
	}

	return &Core{
		store:       s,
		logger:      logger,
		workers:     cfg.Workers,
		incremental: cfg.Incremental,
		archive:     cfg.Archive,
	}, nil
}

// Store returns the store results are recorded in.
func (c *Core) Store() store.Store {
	return c.store
}

// Close releases the store.
func (c *Core) Close() error {
	if c.store != nil {
		return c.store.Close()
	}
	return nil
}

// Runner applies one configured command to items.
type Runner struct {
	core    *Core
	name    string
	options string
	fn      command.Func
}

// Command prepares the registered command name with raw JSON options.
func (c *Core) Command(name string, opts json.RawMessage) (*Runner, error) {
	fn, err := command.New(name, opts)
	if err != nil {
		return nil, err
	}
	return c.Prepare(name, opts, fn)
}

// Prepare wraps fn, an already built command, so its results are recorded
// under name with opts as their options.
func (c *Core) Prepare(name string, opts json.RawMessage, fn command.Func) (*Runner, error) {
	canonical, err := canonicalJSON(opts)
	if err != nil {
		return nil, fmt.Errorf("canonicalizing %s options: %w", name, err)
	}

	c.logger.Log("prepared %s with options %s", name, canonical)
	return &Runner{core: c, name: name, options: canonical, fn: fn}, nil
}

// Seen reports whether item should be skipped in incremental mode.
func (r *Runner) Seen(item Item) (bool, error) {
	if !r.core.incremental {
		return false, nil
	}
	return r.core.store.ItemExists(item.ID)
}

// Apply runs the command on item and records the result. Safe for
// concurrent use when the store is.
func (r *Runner) Apply(item Item) (types.Value, error) {
	out, err := r.fn(item.Value)
	if err != nil {
		return types.Value{}, err
	}

	result := &types.Result{
		ID:      types.ComputeResultID(r.name, r.options, item.ID),
		ItemID:  item.ID,
		Command: r.name,
		Options: r.options,
		Output:  out,
	}
	if err := r.core.record(item, result); err != nil {
		return types.Value{}, err
	}
	return out, nil
}

// Run applies the registered command name to every item in order and
// returns one output per item. The first failure aborts the run.
func (c *Core) Run(ctx context.Context, name string, opts json.RawMessage, items []Item) ([]types.Value, error) {
	runner, err := c.Command(name, opts)
	if err != nil {
		return nil, err
	}

	outputs := make([]types.Value, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out, err := runner.Apply(item)
		if err != nil {
			return nil, &stream.ItemError{Index: i, Err: err}
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

// RunJobs runs every job over every item. Job failures on an item are
// logged and skipped, so one bad item does not stop the run. Results come
// back grouped by item, in item order, then job order.
func (c *Core) RunJobs(ctx context.Context, jobs []*job.Job, items []Item) ([]*types.Result, *JobSummary, error) {
	prepared := make([]preparedJob, len(jobs))
	for i, j := range jobs {
		opts, err := j.OptionsJSON()
		if err != nil {
			return nil, nil, fmt.Errorf("encoding options of job %s: %w", j.ID, err)
		}
		fn, err := command.New(command.IndexOf, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("preparing job %s: %w", j.ID, err)
		}
		prepared[i] = preparedJob{job: j, options: string(opts), fn: fn}
	}

	pf := prefilter.New(jobs)
	c.logger.Log("running %d jobs over %d items", len(jobs), len(items))

	summary := &JobSummary{Items: len(items)}
	var mu sync.Mutex

	perItem, err := stream.ProcessOrdered(ctx, items, c.workers, func(item Item) ([]*types.Result, error) {
		if c.incremental {
			seen, err := c.store.ItemExists(item.ID)
			if err != nil {
				return nil, err
			}
			if seen {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				return nil, nil
			}
		}

		results, failures, err := c.runJobsOnItem(prepared, pf, item)
		if err != nil {
			return nil, err
		}

		mu.Lock()
		summary.Results += len(results)
		summary.Errors += failures
		mu.Unlock()
		return results, nil
	})
	if err != nil {
		return nil, nil, err
	}

	var all []*types.Result
	for _, results := range perItem {
		all = append(all, results...)
	}
	return all, summary, nil
}

type preparedJob struct {
	job     *job.Job
	options string
	fn      command.Func
}

// runJobsOnItem returns the results of every job that succeeded on item and
// the number that failed. Only store errors are returned as errors.
func (c *Core) runJobsOnItem(jobs []preparedJob, pf *prefilter.Prefilter, item Item) ([]*types.Result, int, error) {
	var candidates map[*job.Job]bool
	if s, ok := item.Value.AsString(); ok {
		hits := pf.Filter([]byte(s))
		candidates = make(map[*job.Job]bool, len(hits))
		for _, j := range hits {
			candidates[j] = true
		}
	}

	var results []*types.Result
	failures := 0
	for _, pj := range jobs {
		out, err := applyJob(pj, item.Value, candidates)
		if err != nil {
			c.logger.Log("job %s failed on item %s: %v", pj.job.ID, item.ID, err)
			failures++
			continue
		}

		result := &types.Result{
			ID:      types.ComputeResultID(command.IndexOf, pj.options, item.ID),
			ItemID:  item.ID,
			Command: command.IndexOf,
			Options: pj.options,
			JobID:   pj.job.ID,
			Output:  out,
		}
		if err := c.record(item, result); err != nil {
			return nil, 0, err
		}
		results = append(results, result)
	}
	return results, failures, nil
}

// applyJob runs pj on v. When the prefilter has ruled the job out for a
// string item, the range is still validated but the search is skipped.
func applyJob(pj preparedJob, v types.Value, candidates map[*job.Job]bool) (types.Value, error) {
	if candidates != nil && !candidates[pj.job] {
		if _, ok := prefilter.Keyword(pj.job); ok {
			s, _ := v.AsString()
			if _, err := rangespec.Resolve(pj.job.Options.Range, len(s)); err != nil {
				return types.Value{}, err
			}
			return types.Int(-1).WithSpan(v.Span), nil
		}
	}
	return pj.fn(v)
}

// record stores item, its provenance and result.
func (c *Core) record(item Item, result *types.Result) error {
	if item.Provenance != nil {
		result.Source = item.Provenance.Path()
	}
	if err := c.store.AddItem(item.ID, item.Size); err != nil {
		return fmt.Errorf("recording item: %w", err)
	}
	if c.archive != nil {
		if _, err := c.archive.StoreValue(item.Value); err != nil {
			return fmt.Errorf("archiving item: %w", err)
		}
	}
	if item.Provenance != nil {
		if err := c.store.AddProvenance(item.ID, item.Provenance); err != nil {
			return fmt.Errorf("recording provenance: %w", err)
		}
	}
	if err := c.store.AddResult(result); err != nil {
		return fmt.Errorf("recording result: %w", err)
	}
	return nil
}

// canonicalJSON compacts raw options so equivalent requests hash alike.
// Missing options are recorded as "{}".
func canonicalJSON(raw json.RawMessage) (string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return "{}", nil
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return "", err
	}
	return buf.String(), nil
}
