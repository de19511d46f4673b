package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetJobs() {
	jobsPath = ""
	jobsInclude = ""
	jobsExclude = ""
	jobsListFormat = "table"
	jobsRunInput = defaultInput()
}

const customJobs = `searches:
  - id: custom.colon
    name: First Colon
    pattern: ":"
    examples:
      - input: "a:b"
        want: 1
`

func TestRunJobsList(t *testing.T) {
	resetJobs()

	cmd, out, _ := newTestCmd(t, "")
	require.NoError(t, runJobsList(cmd, nil))

	output := out.String()
	assert.Contains(t, output, "ID")
	assert.Contains(t, output, "Pattern")
	assert.Contains(t, output, "path.extension")
	assert.Contains(t, output, "text.record-name")
}

func TestRunJobsListJSON(t *testing.T) {
	resetJobs()
	jobsListFormat = "json"
	jobsInclude = `^path\.`

	cmd, out, _ := newTestCmd(t, "")
	require.NoError(t, runJobsList(cmd, nil))

	var views []jobView
	require.NoError(t, json.Unmarshal(out.Bytes(), &views))
	require.Len(t, views, 3)
	for _, v := range views {
		assert.True(t, strings.HasPrefix(v.ID, "path."), v.ID)
	}
}

func TestRunJobsList_UnknownFormat(t *testing.T) {
	resetJobs()
	jobsListFormat = "xml"

	cmd, _, _ := newTestCmd(t, "")
	err := runJobsList(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format: xml")
}

func TestRunJobsValidate(t *testing.T) {
	resetJobs()

	cmd, out, _ := newTestCmd(t, "")
	require.NoError(t, runJobsValidate(cmd, nil))
	assert.Contains(t, out.String(), "jobs valid")
}

func TestRunJobsValidate_CustomFile(t *testing.T) {
	resetJobs()
	jobsPath = filepath.Join(t.TempDir(), "jobs.yml")
	broken := strings.Replace(customJobs, "want: 1", "want: 2", 1)
	require.NoError(t, os.WriteFile(jobsPath, []byte(broken), 0644))

	cmd, _, _ := newTestCmd(t, "")
	err := runJobsValidate(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "custom.colon")
}

func TestRunJobsRun(t *testing.T) {
	resetJobs()
	jobsPath = filepath.Join(t.TempDir(), "jobs.yml")
	require.NoError(t, os.WriteFile(jobsPath, []byte(customJobs), 0644))

	cmd, out, errOut := newTestCmd(t, "\"a:b\"\n\"none\"\n")
	require.NoError(t, runJobsRun(cmd, nil))

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)

	var first struct {
		Job    string `json:"job"`
		Item   string `json:"item"`
		Source string `json:"source"`
		Output int    `json:"output"`
	}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "custom.colon", first.Job)
	assert.Equal(t, "-", first.Source)
	assert.Equal(t, 1, first.Output)
	assert.Len(t, first.Item, 40)

	assert.Contains(t, lines[1], `"output":-1`)
	assert.Contains(t, errOut.String(), "Jobs complete: 2 results over 2 items (0 failed)")
}

func TestRunJobsRun_Builtin(t *testing.T) {
	resetJobs()
	jobsInclude = `^path\.extension$,^text\.record-name$`

	cmd, out, errOut := newTestCmd(t, `{"name": "Cargo.toml"}`)
	require.NoError(t, runJobsRun(cmd, nil))

	// path.extension cannot run on a record; text.record-name can
	assert.Equal(t, 1, strings.Count(out.String(), "\n"))
	assert.Contains(t, out.String(), `"job":"text.record-name"`)
	assert.Contains(t, out.String(), `"output":{"name":5}`)
	assert.Contains(t, errOut.String(), "(1 failed)")
}

func TestRunJobsRun_NoJobs(t *testing.T) {
	resetJobs()
	jobsInclude = `^nothing-matches$`

	cmd, _, _ := newTestCmd(t, `"x"`)
	err := runJobsRun(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no jobs selected")
}

func TestRunJobsRun_BadFilter(t *testing.T) {
	resetJobs()
	jobsInclude = `(`

	cmd, _, _ := newTestCmd(t, `"x"`)
	err := runJobsRun(cmd, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "filtering jobs")
}
