package transform_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/internal/transform"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

func TestAssignSongplayIDs_UniqueAndIncreasingWithinPartition(t *testing.T) {
	plays := dataset.FromPartitions([][]model.RawEventRecord{
		{{}, {}, {}},
		{},
		{{}, {}},
	})
	keyed, err := transform.AssignSongplayIDs(context.Background(), engine, plays)
	require.NoError(t, err)

	seen := map[int64]bool{}
	for _, part := range keyed.Partitions() {
		for i, k := range part {
			assert.False(t, seen[k.SongplayID], "duplicate id %d", k.SongplayID)
			seen[k.SongplayID] = true
			if i > 0 {
				assert.Greater(t, k.SongplayID, part[i-1].SongplayID)
			}
		}
	}
	assert.Len(t, seen, 5)
	assert.Equal(t, int64(0), keyed.Partitions()[0][0].SongplayID)
	assert.Equal(t, int64(2)<<33|1, keyed.Partitions()[2][1].SongplayID)

	again, err := transform.AssignSongplayIDs(context.Background(), engine, plays)
	require.NoError(t, err)
	assert.Equal(t, keyed.Collect(), again.Collect())
}

func joinFixture() (*dataset.Dataset[model.RawEventRecord], *dataset.Dataset[model.RawSongRecord]) {
	plays := dataset.FromPartitions([][]model.RawEventRecord{
		{
			{Page: "NextSong", Song: str("Test Song"), Artist: str("Test Artist"), Ts: 1542241826796, UserID: "7", Level: "free", SessionID: 100, Location: "X", UserAgent: "Y"},
			{Page: "NextSong", Song: str("Unknown"), Artist: str("Nobody"), Ts: 1542241826796, UserID: "8"},
		},
		{
			{Page: "NextSong", Song: str("Dup"), Artist: str("Twin"), Ts: 1541106106796, UserID: "9"},
			{Page: "NextSong", Ts: 1541106106796, UserID: "10"},
			{Page: "NextSong", Song: str("test song"), Artist: str("Test Artist"), Ts: 1541106106796, UserID: "11"},
		},
	})
	songs := dataset.FromSlice([]model.RawSongRecord{
		{SongID: "S1", Title: str("Test Song"), ArtistID: "A1", ArtistName: str("Test Artist"), Year: 2000, Duration: 180},
		{SongID: "S9", Title: str("Dup"), ArtistID: "A9", ArtistName: str("Twin")},
		{SongID: "S3", Title: str("Dup"), ArtistID: "A3", ArtistName: str("Twin")},
		{SongID: "S0", ArtistID: "A0"},
	})
	return plays, songs
}

func TestBuildSongplays_FanoutIsReported(t *testing.T) {
	plays, songs := joinFixture()
	out, stats, err := transform.BuildSongplays(context.Background(), engine, plays, songs, time.UTC, config.JoinFanout)
	require.NoError(t, err)

	rows := out.Collect()
	require.Len(t, rows, 6)
	assert.Equal(t, dataset.JoinStats{Matched: 2, Unmatched: 3, Fanout: 1, Rows: 6}, stats)

	first := rows[0]
	require.NotNil(t, first.SongID)
	assert.Equal(t, "S1", *first.SongID)
	assert.Equal(t, "A1", *first.ArtistID)
	assert.Equal(t, int32(2018), first.Year)
	assert.Equal(t, int32(11), first.Month)
	assert.Equal(t, int64(1542241826796), first.StartTime)

	assert.Nil(t, rows[1].SongID, "no match yields null song")
	assert.Nil(t, rows[1].ArtistID)

	// Both fan-out rows keep the event's surrogate key.
	assert.Equal(t, rows[2].SongplayID, rows[3].SongplayID)
	assert.Equal(t, []string{"S9", "S3"}, []string{*rows[2].SongID, *rows[3].SongID})

	assert.Nil(t, rows[4].SongID, "null title and artist never match")
	assert.Nil(t, rows[5].SongID, "matching is case-sensitive")
}

func TestBuildSongplays_LowestSongIDIsOneRowPerEvent(t *testing.T) {
	plays, songs := joinFixture()
	out, stats, err := transform.BuildSongplays(context.Background(), engine, plays, songs, time.UTC, config.JoinLowestSongID)
	require.NoError(t, err)

	rows := out.Collect()
	require.Len(t, rows, plays.Count())
	assert.Equal(t, 0, stats.Fanout)
	require.NotNil(t, rows[2].SongID)
	assert.Equal(t, "S3", *rows[2].SongID)
	assert.Equal(t, "A3", *rows[2].ArtistID)
}

func TestBuildSongplays_EveryEventYieldsARow(t *testing.T) {
	plays, songs := joinFixture()
	out, _, err := transform.BuildSongplays(context.Background(), engine, plays, songs, time.UTC, config.JoinFanout)
	require.NoError(t, err)

	ids := map[int64]bool{}
	for _, sp := range out.Collect() {
		ids[sp.SongplayID] = true
		assert.Equal(t, transform.SongplayPartition(sp), []string{"2018", "11"})
	}
	assert.Len(t, ids, plays.Count())
}

func TestBuildSongplays_EmptyStringsJoinNullsDoNot(t *testing.T) {
	plays := dataset.FromSlice([]model.RawEventRecord{
		{Page: "NextSong", Song: str(""), Artist: str(""), Ts: 1542241826796, UserID: "1"},
		{Page: "NextSong", Song: str(""), Ts: 1542241826796, UserID: "2"},
	})
	songs := dataset.FromSlice([]model.RawSongRecord{
		{SongID: "S5", Title: str(""), ArtistID: "A5", ArtistName: str("")},
		{SongID: "S4", ArtistID: "A4", ArtistName: str("")},
	})

	for _, policy := range []string{config.JoinFanout, config.JoinLowestSongID} {
		out, stats, err := transform.BuildSongplays(context.Background(), engine, plays, songs, time.UTC, policy)
		require.NoError(t, err, policy)

		rows := out.Collect()
		require.Len(t, rows, 2, policy)
		require.NotNil(t, rows[0].SongID, policy)
		assert.Equal(t, "S5", *rows[0].SongID, policy)
		assert.Nil(t, rows[1].SongID, policy)
		assert.Equal(t, 1, stats.Matched, policy)
		assert.Equal(t, 1, stats.Unmatched, policy)
	}
}
