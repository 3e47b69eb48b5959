// Package dataset is the in-process execution engine of the batch pipelines.
//
// A Dataset is an ordered list of partitions. Row-wise transforms (Filter, Map,
// MapPartitions, LeftJoin probing) run one goroutine per partition on a bounded pool and
// keep partition boundaries. Grouping transforms (Distinct, DistinctBy, Sort) gather every
// partition in order and return a single partition.
package dataset

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Engine bounds the number of partitions processed concurrently.
type Engine struct {
	parallelism int
}

// NewEngine returns an Engine running at most parallelism partitions at a time.
// Values below 1 fall back to runtime.NumCPU().
func NewEngine(parallelism int) *Engine {
	if parallelism < 1 {
		parallelism = runtime.NumCPU()
	}
	return &Engine{parallelism: parallelism}
}

// Parallelism returns the pool size.
func (e *Engine) Parallelism() int {
	return e.parallelism
}

// Run calls fn for every index in [0, n) on the bounded pool and waits for all of them.
// The first error cancels the context handed to the remaining calls and is returned.
func (e *Engine) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.parallelism)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(gctx, i)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
