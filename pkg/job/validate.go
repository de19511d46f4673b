package job

import (
	"fmt"

	"github.com/praetorian-inc/locus/pkg/indexof"
)

// ValidateJob checks required fields and runs the job's examples.
func ValidateJob(j *Job) error {
	if j == nil {
		return fmt.Errorf("job is nil")
	}
	if j.ID == "" {
		return fmt.Errorf("job ID is required")
	}
	if j.Name == "" {
		return fmt.Errorf("job name is required")
	}

	expectedID := j.ComputeStructuralID()
	if j.StructuralID != "" && j.StructuralID != expectedID {
		return fmt.Errorf("job %s has inconsistent StructuralID: got %s, expected %s",
			j.ID, j.StructuralID, expectedID)
	}

	for i, ex := range j.Examples {
		got, err := indexof.Apply(ex.Input, j.Options)
		if err != nil {
			return fmt.Errorf("job %s example %d: %w", j.ID, i, err)
		}
		if !got.Equal(ex.Want) {
			return fmt.Errorf("job %s example %d: got %s, want %s", j.ID, i, got, ex.Want)
		}
	}
	return nil
}

// ValidateJobs validates every job and rejects duplicate IDs.
func ValidateJobs(jobs []*Job) error {
	seen := make(map[string]bool, len(jobs))
	for _, j := range jobs {
		if err := ValidateJob(j); err != nil {
			return err
		}
		if seen[j.ID] {
			return fmt.Errorf("duplicate job ID %s", j.ID)
		}
		seen[j.ID] = true
	}
	return nil
}
