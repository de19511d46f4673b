// Package job loads named index-of searches from YAML job files.
package job

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"

	"github.com/praetorian-inc/locus/pkg/indexof"
	"github.com/praetorian-inc/locus/pkg/types"
)

// Job is a named, reusable index-of search.
type Job struct {
	ID           string          // e.g., "path.extension"
	Name         string          // human-readable name
	Description  string          // optional
	Options      indexof.Options // what to search for and where
	StructuralID string          // SHA-1 of the canonical options (computed)
	Examples     []Example       // expected results, checked by Validate
	Categories   []string        // classification tags
}

// Example pairs an input with the result the job must produce for it.
type Example struct {
	Input types.Value
	Want  types.Value
}

// ComputeStructuralID hashes the job's canonical options. Jobs with the
// same search share a StructuralID regardless of their ID or name.
func (j *Job) ComputeStructuralID() string {
	data, err := json.Marshal(j.Options)
	if err != nil {
		return ""
	}
	h := sha1.New()
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// OptionsJSON returns the options in the form the command registry accepts.
func (j *Job) OptionsJSON() (json.RawMessage, error) {
	return json.Marshal(j.Options)
}
