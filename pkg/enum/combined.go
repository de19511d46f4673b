package enum

import (
	"context"
)

// CombinedEnumerator runs multiple enumerators sequentially and yields each
// document path at most once, so a file named twice is read once.
type CombinedEnumerator struct {
	enumerators []Enumerator
}

// NewCombinedEnumerator creates a CombinedEnumerator that wraps the provided
// enumerators. They are run in order.
func NewCombinedEnumerator(enumerators ...Enumerator) *CombinedEnumerator {
	return &CombinedEnumerator{enumerators: enumerators}
}

// Enumerate runs each child enumerator in sequence, passing documents with
// a path not seen before to callback.
func (c *CombinedEnumerator) Enumerate(ctx context.Context, callback func(doc Document) error) error {
	seen := make(map[string]bool)

	for _, e := range c.enumerators {
		err := e.Enumerate(ctx, func(doc Document) error {
			if seen[doc.Path] {
				return nil
			}
			seen[doc.Path] = true
			return callback(doc)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// splitStdin groups paths into runs separated by StdinPath entries.
// Each run is a filesystem enumerator; each StdinPath reads stdin.
func splitStdin(config Config, stdin func() Enumerator) []Enumerator {
	var out []Enumerator
	var run []string
	flush := func() {
		if len(run) == 0 {
			return
		}
		c := config
		c.Paths = run
		out = append(out, NewFilesystemEnumerator(c))
		run = nil
	}

	for _, p := range config.Paths {
		if p == StdinPath {
			flush()
			out = append(out, stdin())
			continue
		}
		run = append(run, p)
	}
	flush()
	return out
}
