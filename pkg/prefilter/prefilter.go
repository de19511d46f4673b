package prefilter

import (
	"github.com/cloudflare/ahocorasick"
	"github.com/praetorian-inc/locus/pkg/job"
)

// Prefilter uses Aho-Corasick to find, in one pass over an item, which
// scalar jobs have their pattern present at all.
type Prefilter struct {
	matcher       *ahocorasick.Matcher
	keywords      []string              // keyword at each index
	keywordJobs   map[string][]*job.Job // keyword -> jobs searching for it
	noKeywordJobs []*job.Job            // jobs that must always run
}

// New creates a prefilter from jobs. Jobs with cell paths or an empty
// pattern have no usable keyword and are always returned by Filter.
func New(jobs []*job.Job) *Prefilter {
	pf := &Prefilter{
		keywordJobs:   make(map[string][]*job.Job),
		noKeywordJobs: make([]*job.Job, 0),
	}

	keywordSet := make(map[string]bool)
	for _, j := range jobs {
		keyword, ok := Keyword(j)
		if !ok {
			pf.noKeywordJobs = append(pf.noKeywordJobs, j)
			continue
		}
		if !keywordSet[keyword] {
			keywordSet[keyword] = true
			pf.keywords = append(pf.keywords, keyword)
		}
		pf.keywordJobs[keyword] = append(pf.keywordJobs[keyword], j)
	}

	if len(pf.keywords) > 0 {
		pf.matcher = ahocorasick.NewStringMatcher(pf.keywords)
	}

	return pf
}

// Keyword returns the literal a job needs present in a scalar item.
func Keyword(j *job.Job) (string, bool) {
	if len(j.Options.Paths) > 0 || j.Options.Pattern == "" {
		return "", false
	}
	return j.Options.Pattern, true
}

// Filter returns jobs whose pattern occurs in content, plus jobs that
// always run. A job left out cannot find its pattern anywhere in content.
// Safe for concurrent use.
func (pf *Prefilter) Filter(content []byte) []*job.Job {
	result := make([]*job.Job, 0, len(pf.noKeywordJobs))
	result = append(result, pf.noKeywordJobs...)

	if pf.matcher == nil {
		return result
	}

	hits := pf.matcher.MatchThreadSafe(content)

	seen := make(map[*job.Job]bool)
	for _, j := range pf.noKeywordJobs {
		seen[j] = true
	}

	for _, hit := range hits {
		keyword := pf.keywords[hit]
		for _, j := range pf.keywordJobs[keyword] {
			if !seen[j] {
				seen[j] = true
				result = append(result, j)
			}
		}
	}

	return result
}
