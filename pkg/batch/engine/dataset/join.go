package dataset

import (
	"context"
	"sync/atomic"
)

// JoinStats reports the shape of a LeftJoin.
type JoinStats struct {
	// Matched is the number of left rows with at least one match.
	Matched int
	// Unmatched is the number of left rows with no match.
	Unmatched int
	// Fanout is the number of left rows that matched more than one right row.
	Fanout int
	// Rows is the number of output rows.
	Rows int
}

// LeftJoin joins every left row against the right rows with an equal key.
//
// A key function returning ok == false marks a null key, which never matches. A left row
// with no match yields one output row built with combine(l, nil); otherwise one output row
// per match, in right input order. The right side is hashed once; left partitions are
// probed concurrently and keep their boundaries.
func LeftJoin[L, R any, K comparable, O any](
	ctx context.Context,
	e *Engine,
	left *Dataset[L],
	right *Dataset[R],
	leftKey func(L) (K, bool),
	rightKey func(R) (K, bool),
	combine func(l L, r *R) O,
) (*Dataset[O], JoinStats, error) {
	table := make(map[K][]R)
	for _, p := range right.partitions {
		for _, r := range p {
			if k, ok := rightKey(r); ok {
				table[k] = append(table[k], r)
			}
		}
	}

	var matched, unmatched, fanout, rows int64
	out, err := MapPartitions(ctx, e, left, func(_ int, lrows []L) ([]O, error) {
		res := make([]O, 0, len(lrows))
		for _, l := range lrows {
			var candidates []R
			if k, ok := leftKey(l); ok {
				candidates = table[k]
			}
			switch len(candidates) {
			case 0:
				atomic.AddInt64(&unmatched, 1)
				res = append(res, combine(l, nil))
				continue
			case 1:
				atomic.AddInt64(&matched, 1)
			default:
				atomic.AddInt64(&matched, 1)
				atomic.AddInt64(&fanout, 1)
			}
			for i := range candidates {
				res = append(res, combine(l, &candidates[i]))
			}
		}
		atomic.AddInt64(&rows, int64(len(res)))
		return res, nil
	})
	if err != nil {
		return nil, JoinStats{}, err
	}
	return out, JoinStats{
		Matched:   int(matched),
		Unmatched: int(unmatched),
		Fanout:    int(fanout),
		Rows:      int(rows),
	}, nil
}
