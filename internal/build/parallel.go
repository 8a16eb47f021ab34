package build

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type orderedResult[R any] struct {
	Value R
	Err   error
}

// runOrdered applies fn to items, at most limit at a time, and returns one
// result per item in input order. A failing item does not stop the others.
// Items still queued when ctx is done get ctx.Err().
func runOrdered[T any, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []orderedResult[R] {
	if len(items) == 0 {
		return nil
	}
	results := make([]orderedResult[R], len(items))

	var g errgroup.Group
	g.SetLimit(max(limit, 1))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			results[i].Value, results[i].Err = fn(ctx, item)
			return nil
		})
	}
	_ = g.Wait()
	return results
}
