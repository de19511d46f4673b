package job

import (
	"fmt"
	"strings"

	"github.com/dlclark/regexp2"
)

// FilterConfig specifies include and exclude patterns for job filtering.
type FilterConfig struct {
	Include []string // Regex patterns - only matching jobs included
	Exclude []string // Regex patterns - matching jobs excluded
}

// ParsePatterns splits a comma-separated string into individual patterns.
// Patterns are trimmed of whitespace.
func ParsePatterns(patterns string) []string {
	if patterns == "" {
		return []string{}
	}

	parts := strings.Split(patterns, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// Filter applies include and exclude patterns to job IDs.
// Include is applied first, then exclude. Empty include means "include all".
// Patterns use RE2 syntax.
func Filter(jobs []*Job, config FilterConfig) ([]*Job, error) {
	if len(jobs) == 0 {
		return jobs, nil
	}

	include, err := compileAll(config.Include)
	if err != nil {
		return nil, err
	}
	exclude, err := compileAll(config.Exclude)
	if err != nil {
		return nil, err
	}

	filtered := jobs
	if len(include) > 0 {
		filtered, err = keep(filtered, include, true)
		if err != nil {
			return nil, err
		}
	}
	if len(exclude) > 0 {
		filtered, err = keep(filtered, exclude, false)
		if err != nil {
			return nil, err
		}
	}
	return filtered, nil
}

func compileAll(patterns []string) ([]*regexp2.Regexp, error) {
	var out []*regexp2.Regexp
	for _, pattern := range patterns {
		re, err := regexp2.Compile(pattern, regexp2.RE2)
		if err != nil {
			return nil, fmt.Errorf("invalid regex pattern %q: %w", pattern, err)
		}
		out = append(out, re)
	}
	return out, nil
}

// keep returns the jobs whose ID matching any of regexes equals want.
func keep(jobs []*Job, regexes []*regexp2.Regexp, want bool) ([]*Job, error) {
	result := make([]*Job, 0)
	for _, j := range jobs {
		matched, err := matchesAny(j.ID, regexes)
		if err != nil {
			return nil, err
		}
		if matched == want {
			result = append(result, j)
		}
	}
	return result, nil
}

func matchesAny(id string, regexes []*regexp2.Regexp) (bool, error) {
	for _, re := range regexes {
		ok, err := re.MatchString(id)
		if err != nil {
			return false, fmt.Errorf("matching %q against %q: %w", id, re.String(), err)
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
