package job

import "gopkg.in/yaml.v3"

// yamlJob is the on-disk form of a Job. Range and example values are kept
// as nodes so they decode into spanned values.
type yamlJob struct {
	ID          string        `yaml:"id"`
	Name        string        `yaml:"name"`
	Description string        `yaml:"description,omitempty"`
	Pattern     *string       `yaml:"pattern"`
	Range       yaml.Node     `yaml:"range,omitempty"`
	End         bool          `yaml:"end,omitempty"`
	Paths       []string      `yaml:"paths,omitempty"`
	Examples    []yamlExample `yaml:"examples,omitempty"`
	Categories  []string      `yaml:"categories,omitempty"`
}

type yamlExample struct {
	Input yaml.Node `yaml:"input"`
	Want  yaml.Node `yaml:"want"`
}

// yamlJobsFile is the top-level structure of a job file.
type yamlJobsFile struct {
	Searches []yamlJob `yaml:"searches"`
}
