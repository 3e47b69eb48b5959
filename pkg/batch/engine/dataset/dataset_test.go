package dataset_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

func TestFilterAndMapKeepPartitions(t *testing.T) {
	ctx := context.Background()
	e := dataset.NewEngine(2)
	ds := dataset.FromPartitions([][]int{{1, 2, 3}, {}, {4, 5, 6}})

	even, err := dataset.Filter(ctx, e, ds, func(v int) bool { return v%2 == 0 })
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2}, {}, {4, 6}}, even.Partitions())

	doubled, err := dataset.Map(ctx, e, even, func(v int) int { return v * 10 })
	require.NoError(t, err)
	assert.Equal(t, []int{20, 40, 60}, doubled.Collect())
	assert.Equal(t, 3, doubled.NumPartitions())
}

func TestMapPartitionsReceivesIndex(t *testing.T) {
	ds := dataset.FromPartitions([][]string{{"a", "b"}, {"c"}})
	tagged, err := dataset.MapPartitions(context.Background(), dataset.NewEngine(0), ds, func(p int, rows []string) ([]int64, error) {
		out := make([]int64, len(rows))
		for i := range rows {
			out[i] = int64(p)<<33 | int64(i)
		}
		return out, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{0, 1, 1 << 33}, tagged.Collect())
}

func TestEngineBoundsConcurrency(t *testing.T) {
	e := dataset.NewEngine(2)
	var running, peak int32
	err := e.Run(context.Background(), 8, func(ctx context.Context, i int) error {
		n := atomic.AddInt32(&running, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return nil
	})
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
}

func TestEngineStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	err := dataset.NewEngine(1).Run(context.Background(), 3, func(ctx context.Context, i int) error {
		if i == 0 {
			return boom
		}
		return nil
	})
	assert.ErrorIs(t, err, boom)
}

func TestEngineHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	called := false
	err := dataset.NewEngine(1).Run(ctx, 3, func(ctx context.Context, i int) error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

type pair struct {
	key   string
	value int
}

func TestDistinct(t *testing.T) {
	ds := dataset.FromPartitions([][]pair{{{"a", 1}, {"b", 2}}, {{"a", 1}, {"a", 3}}})

	assert.Equal(t, []pair{{"a", 1}, {"b", 2}, {"a", 3}}, dataset.Distinct(ds).Collect())

	first := dataset.DistinctBy(ds, func(p pair) string { return p.key }, false)
	assert.Equal(t, []pair{{"a", 1}, {"b", 2}}, first.Collect())

	last := dataset.DistinctBy(ds, func(p pair) string { return p.key }, true)
	assert.Equal(t, []pair{{"a", 3}, {"b", 2}}, last.Collect())
}

func TestSortIsStable(t *testing.T) {
	ds := dataset.FromPartitions([][]pair{{{"b", 1}, {"a", 2}}, {{"b", 0}, {"a", 1}}})
	sorted := dataset.Sort(ds, func(x, y pair) bool { return x.key < y.key })
	assert.Equal(t, []pair{{"a", 2}, {"a", 1}, {"b", 1}, {"b", 0}}, sorted.Collect())
	assert.Equal(t, 1, sorted.NumPartitions())
}

type event struct {
	id   int
	song string
}

type song struct {
	id    string
	title string
}

type joined struct {
	eventID int
	songID  *string
}

func TestLeftJoin(t *testing.T) {
	events := dataset.FromPartitions([][]event{
		{{1, "Hit"}, {2, "Unknown"}},
		{{3, "Dup"}, {4, ""}},
	})
	songs := dataset.FromSlice([]song{{"S1", "Hit"}, {"S2", "Dup"}, {"S3", "Dup"}, {"S4", ""}})

	nonEmpty := func(s string) (string, bool) { return s, s != "" }
	out, stats, err := dataset.LeftJoin(context.Background(), dataset.NewEngine(2), events, songs,
		func(e event) (string, bool) { return nonEmpty(e.song) },
		func(s song) (string, bool) { return nonEmpty(s.title) },
		func(e event, s *song) joined {
			j := joined{eventID: e.id}
			if s != nil {
				id := s.id
				j.songID = &id
			}
			return j
		})
	require.NoError(t, err)

	rows := out.Collect()
	require.Len(t, rows, 5)
	assert.Equal(t, 1, rows[0].eventID)
	assert.Equal(t, "S1", *rows[0].songID)
	assert.Nil(t, rows[1].songID, "join miss keeps the row with a null key")
	assert.Equal(t, "S2", *rows[2].songID)
	assert.Equal(t, "S3", *rows[3].songID)
	assert.Nil(t, rows[4].songID, "empty keys never match")

	assert.Equal(t, dataset.JoinStats{Matched: 2, Unmatched: 2, Fanout: 1, Rows: 5}, stats)
	assert.Equal(t, 2, out.NumPartitions())
}
