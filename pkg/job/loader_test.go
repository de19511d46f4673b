package job

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/praetorian-inc/locus/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Valid(t *testing.T) {
	data := `searches:
  - id: path.basename
    name: Last Path Separator
    description: last slash
    pattern: /
    end: true
    range: "1,"
    paths:
      - files.path
    examples:
      - input: {files: [{path: /a/b}]}
        want: {files: [{path: 2}]}
    categories: [path]
`
	jobs, err := NewLoader().Load([]byte(data))
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	j := jobs[0]
	assert.Equal(t, "path.basename", j.ID)
	assert.Equal(t, "Last Path Separator", j.Name)
	assert.Equal(t, "last slash", j.Description)
	assert.Equal(t, "/", j.Options.Pattern)
	assert.True(t, j.Options.End)
	require.NotNil(t, j.Options.Range)
	assert.Equal(t, "1,", j.Options.Range.String())
	require.Len(t, j.Options.Paths, 1)
	assert.Equal(t, "files.path", j.Options.Paths[0].String())
	assert.Equal(t, []string{"path"}, j.Categories)
	assert.NotEmpty(t, j.StructuralID)

	require.Len(t, j.Examples, 1)
	want := types.RecordOf([]string{"files"}, []types.Value{
		types.List(types.RecordOf([]string{"path"}, []types.Value{types.Int(2)})),
	})
	assert.True(t, j.Examples[0].Want.Equal(want))
}

func TestLoad_ListRange(t *testing.T) {
	jobs, err := NewLoader().Load([]byte("searches:\n  - id: a\n    name: A\n    pattern: x\n    range: [1, 4]\n"))
	require.NoError(t, err)
	assert.Equal(t, "[1, 4]", jobs[0].Options.Range.String())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid yaml", "this is not valid yaml: [[["},
		{"no searches", "searches: []"},
		{"missing pattern", "searches:\n  - id: a\n    name: A\n"},
		{"bad range type", "searches:\n  - id: a\n    name: A\n    pattern: x\n    range: {a: 1}\n"},
		{"bad path", "searches:\n  - id: a\n    name: A\n    pattern: x\n    paths: [\"a..b\"]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewLoader().Load([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yml")
	require.NoError(t, os.WriteFile(path, []byte("searches:\n  - id: c\n    name: C\n    pattern: c\n"), 0o644))

	jobs, err := NewLoader().LoadFile(path)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "c", jobs[0].ID)

	_, err = NewLoader().LoadFile(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorContains(t, err, "failed to read file")
}

func TestLoadBuiltin_CustomFS(t *testing.T) {
	fsys := fstest.MapFS{
		"jobs/a.yml":     {Data: []byte("searches:\n  - id: a\n    name: A\n    pattern: a\n")},
		"jobs/b.yml":     {Data: []byte("searches:\n  - id: b\n    name: B\n    pattern: b\n  - id: c\n    name: C\n    pattern: c\n")},
		"jobs/notes.txt": {Data: []byte("ignored")},
	}

	jobs, err := NewLoaderWithFS(fsys).LoadBuiltin()
	require.NoError(t, err)

	var ids []string
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, ids)
}

func TestLoadBuiltin(t *testing.T) {
	jobs, err := NewLoader().LoadBuiltin()
	require.NoError(t, err)
	assert.NotEmpty(t, jobs)
}

func TestBuiltinJobs_Validate(t *testing.T) {
	jobs, err := NewLoader().LoadBuiltin()
	require.NoError(t, err)

	for _, j := range jobs {
		t.Run(j.ID, func(t *testing.T) {
			assert.NotEmpty(t, j.Examples, "built-in jobs document their behavior with examples")
			assert.NoError(t, ValidateJob(j))
		})
	}
	assert.NoError(t, ValidateJobs(jobs))
}

func TestStructuralID_IgnoresNaming(t *testing.T) {
	a, err := NewLoader().Load([]byte("searches:\n  - id: a\n    name: A\n    pattern: x\n    end: true\n"))
	require.NoError(t, err)
	b, err := NewLoader().Load([]byte("searches:\n  - id: b\n    name: B\n    pattern: x\n    end: true\n"))
	require.NoError(t, err)
	c, err := NewLoader().Load([]byte("searches:\n  - id: a\n    name: A\n    pattern: x\n"))
	require.NoError(t, err)

	assert.Equal(t, a[0].StructuralID, b[0].StructuralID)
	assert.NotEqual(t, a[0].StructuralID, c[0].StructuralID)
}
