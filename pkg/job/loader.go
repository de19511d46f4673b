package job

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/praetorian-inc/locus/pkg/cellpath"
	"github.com/praetorian-inc/locus/pkg/codec"
	"github.com/praetorian-inc/locus/pkg/rangespec"
	"gopkg.in/yaml.v3"
)

// Loader handles loading jobs from YAML files.
type Loader struct {
	fs fs.FS // embedded filesystem for built-in jobs
}

// NewLoader creates a loader with built-in jobs from the embedded filesystem.
func NewLoader() *Loader {
	return &Loader{fs: builtinJobsFS}
}

// NewLoaderWithFS creates a loader with a custom filesystem.
func NewLoaderWithFS(fsys fs.FS) *Loader {
	return &Loader{fs: fsys}
}

// Load parses every job in a YAML job file.
func (l *Loader) Load(data []byte) ([]*Job, error) {
	var file yamlJobsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(file.Searches) == 0 {
		return nil, fmt.Errorf("no searches found in YAML")
	}

	jobs := make([]*Job, 0, len(file.Searches))
	for _, yj := range file.Searches {
		j, err := convertYAMLJob(yj)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}
	return jobs, nil
}

// LoadFile loads jobs from a YAML file path.
func (l *Loader) LoadFile(path string) ([]*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}
	jobs, err := l.Load(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return jobs, nil
}

// LoadBuiltin loads all built-in jobs from the embedded filesystem.
func (l *Loader) LoadBuiltin() ([]*Job, error) {
	var jobs []*Job

	err := fs.WalkDir(l.fs, "jobs", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".yml" {
			return nil
		}

		data, err := fs.ReadFile(l.fs, path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		loaded, err := l.Load(data)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path, err)
		}
		jobs = append(jobs, loaded...)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

// convertYAMLJob converts yamlJob to Job and computes StructuralID.
func convertYAMLJob(yj yamlJob) (*Job, error) {
	if yj.Pattern == nil {
		return nil, fmt.Errorf("job %q: pattern is required", yj.ID)
	}

	j := &Job{
		ID:          yj.ID,
		Name:        yj.Name,
		Description: yj.Description,
		Categories:  yj.Categories,
	}
	j.Options.Pattern = *yj.Pattern
	j.Options.End = yj.End

	if yj.Range.Kind != 0 {
		v, err := codec.FromYAMLNode(&yj.Range, nil)
		if err != nil {
			return nil, fmt.Errorf("job %q: range: %w", yj.ID, err)
		}
		r, err := rangespec.FromValue(v)
		if err != nil {
			return nil, fmt.Errorf("job %q: range: %w", yj.ID, err)
		}
		j.Options.Range = &r
	}

	for _, text := range yj.Paths {
		p, err := cellpath.Parse(text)
		if err != nil {
			return nil, fmt.Errorf("job %q: path %q: %w", yj.ID, text, err)
		}
		j.Options.Paths = append(j.Options.Paths, p)
	}

	for i, ye := range yj.Examples {
		input, err := codec.FromYAMLNode(&ye.Input, nil)
		if err != nil {
			return nil, fmt.Errorf("job %q: example %d input: %w", yj.ID, i, err)
		}
		want, err := codec.FromYAMLNode(&ye.Want, nil)
		if err != nil {
			return nil, fmt.Errorf("job %q: example %d want: %w", yj.ID, i, err)
		}
		j.Examples = append(j.Examples, Example{Input: input, Want: want})
	}

	j.StructuralID = j.ComputeStructuralID()
	return j, nil
}
