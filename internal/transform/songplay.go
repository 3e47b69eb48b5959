package transform

import (
	"context"
	"time"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

// rowIndexBits is the width of the row counter inside a songplay_id.
const rowIndexBits = 33

// KeyedEvent is a play event carrying its surrogate songplay_id.
type KeyedEvent struct {
	SongplayID int64
	Event      model.RawEventRecord
}

// SongplayID composes the surrogate key of the row-th event of a partition.
func SongplayID(partition, row int) int64 {
	return int64(partition)<<rowIndexBits | int64(row)
}

// AssignSongplayIDs keys every event with SongplayID(partition, row). Keys are unique,
// increasing within a partition, and identical for identical input.
func AssignSongplayIDs(ctx context.Context, e *dataset.Engine, plays *dataset.Dataset[model.RawEventRecord]) (*dataset.Dataset[KeyedEvent], error) {
	return dataset.MapPartitions(ctx, e, plays, func(partition int, rows []model.RawEventRecord) ([]KeyedEvent, error) {
		out := make([]KeyedEvent, len(rows))
		for i, r := range rows {
			out[i] = KeyedEvent{SongplayID: SongplayID(partition, i), Event: r}
		}
		return out, nil
	})
}

type songKey struct {
	Title  string
	Artist string
}

// matchKey returns the join key. A null title or artist never matches; "" matches "".
func matchKey(title, artist *string) (songKey, bool) {
	if title == nil || artist == nil {
		return songKey{}, false
	}
	return songKey{Title: *title, Artist: *artist}, true
}

// LowestSongIDPerMatch keeps, for every (title, artist_name) pair, the song with the lowest song_id.
func LowestSongIDPerMatch(songs *dataset.Dataset[model.RawSongRecord]) *dataset.Dataset[model.RawSongRecord] {
	var matchable [][]model.RawSongRecord
	for _, part := range songs.Partitions() {
		var keep []model.RawSongRecord
		for _, s := range part {
			if _, ok := matchKey(s.Title, s.ArtistName); ok {
				keep = append(keep, s)
			}
		}
		matchable = append(matchable, keep)
	}
	sorted := dataset.Sort(dataset.FromPartitions(matchable), func(a, b model.RawSongRecord) bool { return a.SongID < b.SongID })
	return dataset.DistinctBy(sorted, func(s model.RawSongRecord) songKey {
		k, _ := matchKey(s.Title, s.ArtistName)
		return k
	}, false)
}

// BuildSongplays keys the play events, then left-joins them with the songs on
// event.song == song.title and event.artist == song.artist_name.
//
// With config.JoinFanout an event matching n songs yields n rows sharing one songplay_id;
// with config.JoinLowestSongID it always yields one. The returned stats report matches,
// misses and fan-out.
func BuildSongplays(
	ctx context.Context,
	e *dataset.Engine,
	plays *dataset.Dataset[model.RawEventRecord],
	songs *dataset.Dataset[model.RawSongRecord],
	loc *time.Location,
	policy string,
) (*dataset.Dataset[model.Songplay], dataset.JoinStats, error) {
	if err := ValidateJoinPolicy(policy); err != nil {
		return nil, dataset.JoinStats{}, err
	}
	keyed, err := AssignSongplayIDs(ctx, e, plays)
	if err != nil {
		return nil, dataset.JoinStats{}, err
	}
	if policy == config.JoinLowestSongID {
		songs = LowestSongIDPerMatch(songs)
	}

	return dataset.LeftJoin(ctx, e, keyed, songs,
		func(k KeyedEvent) (songKey, bool) { return matchKey(k.Event.Song, k.Event.Artist) },
		func(s model.RawSongRecord) (songKey, bool) { return matchKey(s.Title, s.ArtistName) },
		func(k KeyedEvent, s *model.RawSongRecord) model.Songplay {
			return newSongplay(k, s, loc)
		},
	)
}

func newSongplay(k KeyedEvent, s *model.RawSongRecord, loc *time.Location) model.Songplay {
	t := EpochMillisToLocal(k.Event.Ts, loc)
	sp := model.Songplay{
		SongplayID: k.SongplayID,
		StartTime:  t.UnixMilli(),
		UserID:     k.Event.UserID,
		Level:      k.Event.Level,
		SessionID:  k.Event.SessionID,
		Location:   k.Event.Location,
		UserAgent:  k.Event.UserAgent,
		Year:       int32(t.Year()),
		Month:      int32(t.Month()),
	}
	if s != nil {
		songID, artistID := s.SongID, s.ArtistID
		sp.SongID = &songID
		sp.ArtistID = &artistID
	}
	return sp
}
