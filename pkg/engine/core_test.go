package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/praetorian-inc/locus/pkg/command"
	"github.com/praetorian-inc/locus/pkg/datastore"
	"github.com/praetorian-inc/locus/pkg/diag"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/job"
	"github.com/praetorian-inc/locus/pkg/store"
	"github.com/praetorian-inc/locus/pkg/stream"
	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItems(t *testing.T, values ...types.Value) []Item {
	t.Helper()
	items := make([]Item, len(values))
	for i, v := range values {
		item, err := NewItem(v, types.StdinProvenance{Index: i})
		require.NoError(t, err)
		items[i] = item
	}
	return items
}

func newCore(t *testing.T, cfg Config) *Core {
	t.Helper()
	core, err := NewCore(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { core.Close() })
	return core
}

func TestNewItem_IdentityFollowsContent(t *testing.T) {
	a, err := NewItem(types.String("x"), types.StdinProvenance{})
	require.NoError(t, err)
	b, err := NewItem(types.String("x"), types.FileProvenance{FilePath: "in.json"})
	require.NoError(t, err)
	c, err := NewItem(types.String("y"), nil)
	require.NoError(t, err)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, int64(3), a.Size) // "x" with quotes
}

func TestRun_IndexOf(t *testing.T) {
	core := newCore(t, Config{})
	items := newItems(t, types.String("my_library.rb"), types.String("Makefile"))

	out, err := core.Run(context.Background(), command.IndexOf, json.RawMessage(`{"pattern": ".", "end": true}`), items)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.True(t, out[0].Equal(types.Int(10)))
	assert.True(t, out[1].Equal(types.Int(-1)))

	results, err := core.Store().GetAllResults()
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, command.IndexOf, results[0].Command)
	assert.Equal(t, `{"pattern":".","end":true}`, results[0].Options)
	assert.Equal(t, items[0].ID, results[0].ItemID)
	assert.Equal(t, "-", results[0].Source)
	assert.Empty(t, results[0].JobID)
}

func TestRun_ArgMax(t *testing.T) {
	core := newCore(t, Config{})
	items := newItems(t, types.List(types.Int(1), types.Int(7), types.Int(7)))

	out, err := core.Run(context.Background(), command.ArgMax, nil, items)
	require.NoError(t, err)
	require.Len(t, out, 1)

	want := types.List(types.RecordOf([]string{"arg_max"}, []types.Value{types.Uint(1)}))
	assert.True(t, out[0].Equal(want), "got %s", out[0])

	results, err := core.Store().GetAllResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "{}", results[0].Options)
}

func TestRun_UnknownCommand(t *testing.T) {
	core := newCore(t, Config{})

	_, err := core.Run(context.Background(), "str reverse", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown command "str reverse"`)
}

func TestRun_BadOptions(t *testing.T) {
	core := newCore(t, Config{})

	_, err := core.Run(context.Background(), command.IndexOf, json.RawMessage(`{"patern": "x"}`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding str index-of options")
}

func TestRun_FirstErrorAborts(t *testing.T) {
	core := newCore(t, Config{})
	items := newItems(t, types.String("a.b"), types.Int(5), types.String("c.d"))

	_, err := core.Run(context.Background(), command.IndexOf, json.RawMessage(`{"pattern": "."}`), items)
	require.Error(t, err)

	var itemErr *stream.ItemError
	require.True(t, errors.As(err, &itemErr))
	assert.Equal(t, 1, itemErr.Index)
	assert.True(t, errors.Is(err, diag.ErrType))

	// Only the item before the failure was recorded
	results, err := core.Store().GetAllResults()
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRun_CanceledContext(t *testing.T) {
	core := newCore(t, Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := core.Run(ctx, command.IndexOf, json.RawMessage(`{"pattern": "."}`), newItems(t, types.String("a")))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunner_Seen(t *testing.T) {
	s := store.NewMemory()
	items := newItems(t, types.String("a.b"))

	plain := newCore(t, Config{Store: s})
	runner, err := plain.Command(command.IndexOf, json.RawMessage(`{"pattern": "."}`))
	require.NoError(t, err)
	_, err = runner.Apply(items[0])
	require.NoError(t, err)

	seen, err := runner.Seen(items[0])
	require.NoError(t, err)
	assert.False(t, seen, "non-incremental runners never skip")

	incremental := &Core{store: s, logger: diag.NoopLogger{}, incremental: true}
	runner, err = incremental.Command(command.IndexOf, json.RawMessage(`{"pattern": "."}`))
	require.NoError(t, err)

	seen, err = runner.Seen(items[0])
	require.NoError(t, err)
	assert.True(t, seen)

	other := newItems(t, types.String("new"))
	seen, err = runner.Seen(other[0])
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestGetBuiltinJobs_Cached(t *testing.T) {
	first, err := GetBuiltinJobs()
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := GetBuiltinJobs()
	require.NoError(t, err)
	assert.Same(t, first[0], second[0])
}

func resultsByJob(results []*types.Result) map[string]types.Value {
	out := make(map[string]types.Value, len(results))
	for _, r := range results {
		out[r.JobID] = r.Output
	}
	return out
}

func TestRunJobs_Builtin(t *testing.T) {
	jobs, err := GetBuiltinJobs()
	require.NoError(t, err)

	core := newCore(t, Config{Workers: 2})
	items := newItems(t, types.String("my_library.rb"))

	results, summary, err := core.RunJobs(context.Background(), jobs, items)
	require.NoError(t, err)

	got := resultsByJob(results)
	assert.True(t, got["path.extension"].Equal(types.Int(10)))
	assert.True(t, got["path.basename"].Equal(types.Int(-1)))
	assert.True(t, got["path.relative"].Equal(types.Int(-1)))
	assert.True(t, got["text.ruby-suffix"].Equal(types.Int(10)))
	assert.True(t, got["text.digit-window"].Equal(types.Int(-1)))

	// The record job cannot traverse a plain string
	_, ok := got["text.record-name"]
	assert.False(t, ok)

	assert.Equal(t, 1, summary.Items)
	assert.Equal(t, 5, summary.Results)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, 0, summary.Skipped)

	stored, err := core.Store().GetAllResults()
	require.NoError(t, err)
	assert.Len(t, stored, 5)
}

func TestRunJobs_RecordItem(t *testing.T) {
	jobs, err := GetBuiltinJobs()
	require.NoError(t, err)
	filtered, err := job.Filter(jobs, job.FilterConfig{Include: []string{`^text\.record-name$`}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	core := newCore(t, Config{})
	item := types.RecordOf([]string{"name", "size"}, []types.Value{types.String("Cargo.toml"), types.Int(12)})

	results, summary, err := core.RunJobs(context.Background(), filtered, newItems(t, item))
	require.NoError(t, err)
	require.Len(t, results, 1)

	want := types.RecordOf([]string{"name", "size"}, []types.Value{types.Int(5), types.Int(12)})
	assert.True(t, results[0].Output.Equal(want), "got %s", results[0].Output)
	assert.Equal(t, "text.record-name", results[0].JobID)
	assert.Equal(t, 0, summary.Errors)
}

func TestRunJobs_SkippedJobStillValidatesRange(t *testing.T) {
	jobs, err := GetBuiltinJobs()
	require.NoError(t, err)
	filtered, err := job.Filter(jobs, job.FilterConfig{Include: []string{`^text\.digit-window$`}})
	require.NoError(t, err)
	require.Len(t, filtered, 1)

	var logged []string
	core := newCore(t, Config{Logger: logFunc(func(msg string) { logged = append(logged, msg) }), Workers: 1})

	// "ab" has no "3", but the range [1, 4] is still checked against it
	results, summary, err := core.RunJobs(context.Background(), filtered, newItems(t, types.String("ab")))
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 1, summary.Errors)

	found := false
	for _, msg := range logged {
		if strings.Contains(msg, "text.digit-window failed") {
			found = true
		}
	}
	assert.True(t, found, "expected failure to be logged, got %v", logged)
}

func TestRunJobs_Incremental(t *testing.T) {
	jobs, err := GetBuiltinJobs()
	require.NoError(t, err)

	s := store.NewMemory()
	items := newItems(t, types.String("a.rb"), types.String("b/c"))

	first := newCore(t, Config{Store: s, Incremental: true})
	_, summary, err := first.RunJobs(context.Background(), jobs, items[:1])
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Skipped)

	second := &Core{store: s, logger: diag.NoopLogger{}, incremental: true, workers: 1}
	results, summary, err := second.RunJobs(context.Background(), jobs, items)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Skipped)
	for _, r := range results {
		assert.Equal(t, items[1].ID, r.ItemID)
	}
}

func TestRunJobs_ResultsInItemOrder(t *testing.T) {
	jobs, err := GetBuiltinJobs()
	require.NoError(t, err)
	filtered, err := job.Filter(jobs, job.FilterConfig{Include: []string{`^path\.extension$`}})
	require.NoError(t, err)

	values := make([]types.Value, 20)
	for i := range values {
		values[i] = types.String(string(rune('a'+i)) + ".txt")
	}
	items := newItems(t, values...)

	core := newCore(t, Config{Workers: 4})
	results, _, err := core.RunJobs(context.Background(), filtered, items)
	require.NoError(t, err)
	require.Len(t, results, len(items))
	for i, r := range results {
		assert.Equal(t, items[i].ID, r.ItemID)
		assert.True(t, r.Output.Equal(types.Int(1)))
	}
}

type logFunc func(string)

func (f logFunc) Log(format string, args ...interface{}) {
	f(fmt.Sprintf(format, args...))
}

func TestPrepare_RecordsGivenOptions(t *testing.T) {
	core := newCore(t, Config{})
	calls := 0
	runner, err := core.Prepare("str index-of", json.RawMessage(`{ "pattern" : "z" }`), func(v types.Value) (types.Value, error) {
		calls++
		return types.Int(7), nil
	})
	require.NoError(t, err)

	out, err := runner.Apply(newItems(t, types.String("abc"))[0])
	require.NoError(t, err)
	assert.True(t, out.Equal(types.Int(7)))
	assert.Equal(t, 1, calls)

	results, err := core.Store().GetAllResults()
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, `{"pattern":"z"}`, results[0].Options)
}

func TestPrepare_InvalidOptions(t *testing.T) {
	core := newCore(t, Config{})
	_, err := core.Prepare("str index-of", json.RawMessage(`{`), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "canonicalizing str index-of options")
}

func TestRunner_ArchivesItems(t *testing.T) {
	archive, err := datastore.Open(t.TempDir())
	require.NoError(t, err)
	core := newCore(t, Config{Archive: archive})

	runner, err := core.Command(command.IndexOf, json.RawMessage(`{"pattern":"."}`))
	require.NoError(t, err)

	items := newItems(t, types.String("a.b"))
	_, err = runner.Apply(items[0])
	require.NoError(t, err)

	got, err := archive.GetValue(items[0].ID)
	require.NoError(t, err)
	assert.True(t, got.Equal(types.String("a.b")))
}

func TestRunJobs_ParallelWorkersAgreeWithSearch(t *testing.T) {
	patterns := []string{"alpha", "beta", "gamma", "delta", "eps", "zeta", "eta", "theta"}
	jobs := make([]*job.Job, len(patterns))
	for i, p := range patterns {
		jobs[i] = &job.Job{ID: "find." + p, Name: p, Options: indexof.Options{Pattern: p}}
	}

	values := make([]types.Value, 2000)
	for i := range values {
		// Each item carries a rotating subset of the patterns.
		var sb strings.Builder
		for j, p := range patterns {
			if (i+j)%3 == 0 {
				fmt.Fprintf(&sb, "%d-%s/", i, p)
			}
		}
		values[i] = types.String(sb.String())
	}
	items := newItems(t, values...)

	core := newCore(t, Config{Workers: 8})
	results, summary, err := core.RunJobs(context.Background(), jobs, items)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Errors)
	require.Len(t, results, len(items)*len(jobs))

	for i, r := range results {
		item := i / len(jobs)
		s, _ := values[item].AsString()
		want := strings.Index(s, patterns[i%len(jobs)])
		require.Equal(t, items[item].ID, r.ItemID)
		require.True(t, r.Output.Equal(types.Int(int64(want))), "item %d job %s: got %v want %d", item, r.JobID, r.Output, want)
	}
}
