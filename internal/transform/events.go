package transform

import (
	"cmp"
	"context"
	"time"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

// PlayPage is the page value of a song play event.
const PlayPage = "NextSong"

// IsPlay reports whether the event is a song play.
func IsPlay(e model.RawEventRecord) bool {
	return e.Page == PlayPage
}

// FilterPlays keeps exactly the events whose page is "NextSong".
func FilterPlays(ctx context.Context, e *dataset.Engine, raw *dataset.Dataset[model.RawEventRecord]) (*dataset.Dataset[model.RawEventRecord], error) {
	return dataset.Filter(ctx, e, raw, IsPlay)
}

// ExtractUsers projects play events onto the users dimension, deduplicates them by policy
// and orders them by user_id, then the remaining columns.
func ExtractUsers(ctx context.Context, e *dataset.Engine, plays *dataset.Dataset[model.RawEventRecord], policy string) (*dataset.Dataset[model.User], error) {
	if err := ValidateDedupPolicy(policy); err != nil {
		return nil, err
	}
	projected, err := dataset.Map(ctx, e, plays, func(r model.RawEventRecord) model.User {
		return model.User{
			UserID:    r.UserID,
			FirstName: r.FirstName,
			LastName:  r.LastName,
			Gender:    r.Gender,
			Level:     r.Level,
		}
	})
	if err != nil {
		return nil, err
	}

	var deduped *dataset.Dataset[model.User]
	if policy == config.DedupNaturalKey {
		deduped = dataset.DistinctBy(projected, func(u model.User) string { return u.UserID }, true)
	} else {
		deduped = dataset.Distinct(projected)
	}
	return dataset.Sort(deduped, func(a, b model.User) bool {
		return cmp.Or(
			cmp.Compare(a.UserID, b.UserID),
			cmp.Compare(a.FirstName, b.FirstName),
			cmp.Compare(a.LastName, b.LastName),
			cmp.Compare(a.Gender, b.Gender),
			cmp.Compare(a.Level, b.Level),
		) < 0
	}), nil
}

// EpochMillisToLocal converts epoch milliseconds to a datetime in loc, keeping the
// fractional second (ts/1000 seconds).
func EpochMillisToLocal(ts int64, loc *time.Location) time.Time {
	return time.UnixMilli(ts).In(loc)
}

// DecomposeTime returns the time dimension row of t. Calendar fields are read in t's
// location; week is the ISO 8601 week and weekday runs from 1 (Sunday) to 7 (Saturday).
func DecomposeTime(t time.Time) model.Time {
	_, week := t.ISOWeek()
	return model.Time{
		StartTime: t.UnixMilli(),
		Hour:      int32(t.Hour()),
		Day:       int32(t.Day()),
		Week:      int32(week),
		Month:     int32(t.Month()),
		Year:      int32(t.Year()),
		Weekday:   int32(t.Weekday()) + 1,
	}
}

// ExtractTimes derives one time row per distinct play timestamp, ordered by start_time.
// It is always deduplicated by the full tuple.
func ExtractTimes(ctx context.Context, e *dataset.Engine, plays *dataset.Dataset[model.RawEventRecord], loc *time.Location) (*dataset.Dataset[model.Time], error) {
	times, err := dataset.Map(ctx, e, plays, func(r model.RawEventRecord) model.Time {
		return DecomposeTime(EpochMillisToLocal(r.Ts, loc))
	})
	if err != nil {
		return nil, err
	}
	return dataset.Sort(dataset.Distinct(times), func(a, b model.Time) bool {
		return a.StartTime < b.StartTime
	}), nil
}
