// Package stream drives a command over a sequence of items.
package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/praetorian-inc/locus/pkg/types"
	"golang.org/x/sync/errgroup"
)

// Func transforms one item.
type Func func(input types.Value) (types.Value, error)

// ItemError reports which item failed.
type ItemError struct {
	Index int
	Err   error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Process pulls items from next until it returns io.EOF, applies fn to each
// and hands the results to emit in input order. The first error from next,
// fn or emit stops processing.
func Process(ctx context.Context, next func() (types.Value, error), fn Func, emit func(types.Value) error) error {
	for i := 0; ; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		item, err := next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("reading item %d: %w", i, err)
		}

		out, err := fn(item)
		if err != nil {
			return &ItemError{Index: i, Err: err}
		}
		if err := emit(out); err != nil {
			return err
		}
	}
}

// ProcessOrdered applies fn to items on up to workers goroutines and
// returns the results in input order. workers <= 0 uses one per CPU.
//
// On failure the error of the lowest failing index is returned, the same
// error Process would report. Items after a known failure are skipped.
func ProcessOrdered[T, R any](ctx context.Context, items []T, workers int, fn func(T) (R, error)) ([]R, error) {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(items) {
		workers = len(items)
	}

	results := make([]R, len(items))

	var mu sync.Mutex
	firstErr := -1
	errs := make(map[int]error)

	failed := func(i int) bool {
		mu.Lock()
		defer mu.Unlock()
		return firstErr >= 0 && i > firstErr
	}

	g, ctx := errgroup.WithContext(ctx)
	indexes := make(chan int, workers*2)

	g.Go(func() error {
		defer close(indexes)
		for i := range items {
			select {
			case indexes <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := range indexes {
				if failed(i) {
					continue
				}
				out, err := fn(items[i])
				if err != nil {
					mu.Lock()
					errs[i] = err
					if firstErr < 0 || i < firstErr {
						firstErr = i
					}
					mu.Unlock()
					continue
				}
				results[i] = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if firstErr >= 0 {
		return nil, &ItemError{Index: firstErr, Err: errs[firstErr]}
	}
	return results, nil
}
