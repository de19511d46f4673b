package prefilter

import (
	"sync"
	"testing"

	"github.com/praetorian-inc/locus/pkg/cellpath"
	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func search(id, pattern string, paths ...string) *job.Job {
	j := &job.Job{ID: id, Name: id, Options: indexof.Options{Pattern: pattern}}
	for _, p := range paths {
		parsed, err := cellpath.Parse(p)
		if err != nil {
			panic(err)
		}
		j.Options.Paths = append(j.Options.Paths, parsed)
	}
	return j
}

func jobIDs(jobs []*job.Job) []string {
	out := make([]string, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.ID)
	}
	return out
}

func TestPrefilter_JobsWithMatchingKeywords(t *testing.T) {
	pf := New([]*job.Job{
		search("ext", ".rb"),
		search("slash", "/"),
	})

	filtered := pf.Filter([]byte("my_library.rb"))

	require.Len(t, filtered, 1)
	assert.Equal(t, "ext", filtered[0].ID)
}

func TestPrefilter_JobsWithoutKeywords(t *testing.T) {
	pf := New([]*job.Job{
		search("empty", ""),
		search("column", ".", "name"),
	})

	filtered := pf.Filter([]byte("no match here"))
	assert.ElementsMatch(t, []string{"empty", "column"}, jobIDs(filtered))
}

func TestPrefilter_NonMatchingKeywords(t *testing.T) {
	pf := New([]*job.Job{search("ext", ".rb"), search("slash", "/")})
	assert.Empty(t, pf.Filter([]byte("Makefile")))
}

func TestPrefilter_MixedJobs(t *testing.T) {
	pf := New([]*job.Job{
		search("ext", ".rb"),
		search("column", ".", "name"),
		search("slash", "/"),
	})

	filtered := pf.Filter([]byte("lib.rb"))
	assert.ElementsMatch(t, []string{"ext", "column"}, jobIDs(filtered))
}

func TestPrefilter_SharedKeyword(t *testing.T) {
	pf := New([]*job.Job{search("first", "/"), search("last", "/")})

	filtered := pf.Filter([]byte("/a/b"))
	assert.ElementsMatch(t, []string{"first", "last"}, jobIDs(filtered))
}

func TestPrefilter_EmptyContent(t *testing.T) {
	pf := New([]*job.Job{search("ext", ".rb"), search("column", ".", "name")})

	filtered := pf.Filter([]byte(""))
	require.Len(t, filtered, 1)
	assert.Equal(t, "column", filtered[0].ID)
}

func TestPrefilter_CaseSensitive(t *testing.T) {
	pf := New([]*job.Job{search("ext", ".RB")})

	assert.Empty(t, pf.Filter([]byte("lib.rb")))
	assert.Len(t, pf.Filter([]byte("LIB.RB")), 1)
}

func TestPrefilter_ConcurrentFilter(t *testing.T) {
	pf := New([]*job.Job{search("ext", ".rb"), search("slash", "/"), search("dash", "-")})

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				assert.ElementsMatch(t, []string{"ext", "slash"}, jobIDs(pf.Filter([]byte("lib/a.rb"))))
				assert.ElementsMatch(t, []string{"dash"}, jobIDs(pf.Filter([]byte("a-b"))))
			}
		}()
	}
	wg.Wait()
}

func TestPrefilter_NoJobs(t *testing.T) {
	pf := New([]*job.Job{})
	assert.Empty(t, pf.Filter([]byte("test content")))
}

func TestKeyword(t *testing.T) {
	kw, ok := Keyword(search("a", ".rb"))
	assert.True(t, ok)
	assert.Equal(t, ".rb", kw)

	_, ok = Keyword(search("b", ""))
	assert.False(t, ok)

	_, ok = Keyword(search("c", ".", "name"))
	assert.False(t, ok)
}
