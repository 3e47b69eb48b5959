package dataset

import (
	"context"
	"sort"
)

// Dataset is an immutable, partitioned collection of rows.
type Dataset[T any] struct {
	partitions [][]T
}

// FromPartitions wraps partitions without copying them.
func FromPartitions[T any](partitions [][]T) *Dataset[T] {
	return &Dataset[T]{partitions: partitions}
}

// FromSlice returns a single-partition Dataset.
func FromSlice[T any](rows []T) *Dataset[T] {
	return &Dataset[T]{partitions: [][]T{rows}}
}

// Partitions returns the partitions in order.
func (d *Dataset[T]) Partitions() [][]T {
	return d.partitions
}

// NumPartitions returns the number of partitions.
func (d *Dataset[T]) NumPartitions() int {
	return len(d.partitions)
}

// Count returns the total number of rows.
func (d *Dataset[T]) Count() int {
	n := 0
	for _, p := range d.partitions {
		n += len(p)
	}
	return n
}

// Collect concatenates the partitions in order.
func (d *Dataset[T]) Collect() []T {
	out := make([]T, 0, d.Count())
	for _, p := range d.partitions {
		out = append(out, p...)
	}
	return out
}

// MapPartitions applies fn to every partition concurrently. fn receives the partition index.
func MapPartitions[T, U any](ctx context.Context, e *Engine, d *Dataset[T], fn func(partition int, rows []T) ([]U, error)) (*Dataset[U], error) {
	out := make([][]U, len(d.partitions))
	err := e.Run(ctx, len(d.partitions), func(ctx context.Context, i int) error {
		rows, err := fn(i, d.partitions[i])
		if err != nil {
			return err
		}
		out[i] = rows
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromPartitions(out), nil
}

// Map applies fn to every row, keeping partitioning and row order.
func Map[T, U any](ctx context.Context, e *Engine, d *Dataset[T], fn func(T) U) (*Dataset[U], error) {
	return MapPartitions(ctx, e, d, func(_ int, rows []T) ([]U, error) {
		out := make([]U, len(rows))
		for i, r := range rows {
			out[i] = fn(r)
		}
		return out, nil
	})
}

// Filter keeps the rows for which keep returns true, preserving order.
func Filter[T any](ctx context.Context, e *Engine, d *Dataset[T], keep func(T) bool) (*Dataset[T], error) {
	return MapPartitions(ctx, e, d, func(_ int, rows []T) ([]T, error) {
		out := make([]T, 0, len(rows))
		for _, r := range rows {
			if keep(r) {
				out = append(out, r)
			}
		}
		return out, nil
	})
}

// Distinct keeps the first occurrence of every distinct row.
func Distinct[T comparable](d *Dataset[T]) *Dataset[T] {
	return DistinctBy(d, func(r T) T { return r }, false)
}

// DistinctBy keeps one row per key. With keepLast the last row in input order wins,
// otherwise the first. Output order follows the first occurrence of each key.
func DistinctBy[T any, K comparable](d *Dataset[T], key func(T) K, keepLast bool) *Dataset[T] {
	index := make(map[K]int)
	out := make([]T, 0)
	for _, p := range d.partitions {
		for _, r := range p {
			k := key(r)
			if pos, seen := index[k]; seen {
				if keepLast {
					out[pos] = r
				}
				continue
			}
			index[k] = len(out)
			out = append(out, r)
		}
	}
	return FromSlice(out)
}

// Sort orders every row with less. The sort is stable.
func Sort[T any](d *Dataset[T], less func(a, b T) bool) *Dataset[T] {
	rows := d.Collect()
	sort.SliceStable(rows, func(i, j int) bool { return less(rows[i], rows[j]) })
	return FromSlice(rows)
}
