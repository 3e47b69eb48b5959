package transform

import (
	"cmp"
	"context"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
)

// ExtractSongs projects raw song records onto the songs dimension, deduplicates them by
// policy and orders them by song_id, then the remaining columns.
func ExtractSongs(ctx context.Context, e *dataset.Engine, raw *dataset.Dataset[model.RawSongRecord], policy string) (*dataset.Dataset[model.Song], error) {
	if err := ValidateDedupPolicy(policy); err != nil {
		return nil, err
	}
	projected, err := dataset.Map(ctx, e, raw, func(r model.RawSongRecord) model.Song {
		return model.Song{
			SongID:   r.SongID,
			Title:    stringValue(r.Title),
			ArtistID: r.ArtistID,
			Year:     r.Year,
			Duration: r.Duration,
		}
	})
	if err != nil {
		return nil, err
	}

	var deduped *dataset.Dataset[model.Song]
	if policy == config.DedupNaturalKey {
		deduped = dataset.DistinctBy(projected, func(s model.Song) string { return s.SongID }, true)
	} else {
		deduped = dataset.Distinct(projected)
	}
	return dataset.Sort(deduped, func(a, b model.Song) bool { return compareSongs(a, b) < 0 }), nil
}

func compareSongs(a, b model.Song) int {
	return cmp.Or(
		cmp.Compare(a.SongID, b.SongID),
		cmp.Compare(a.Title, b.Title),
		cmp.Compare(a.ArtistID, b.ArtistID),
		cmp.Compare(a.Year, b.Year),
		cmp.Compare(a.Duration, b.Duration),
	)
}

type artistTuple struct {
	ArtistID  string
	Name      string
	Location  string
	Latitude  nullableValue
	Longitude nullableValue
}

// ExtractArtists projects raw song records onto the artists dimension, deduplicates them
// by policy and orders them by artist_id, then the remaining columns.
func ExtractArtists(ctx context.Context, e *dataset.Engine, raw *dataset.Dataset[model.RawSongRecord], policy string) (*dataset.Dataset[model.Artist], error) {
	if err := ValidateDedupPolicy(policy); err != nil {
		return nil, err
	}
	projected, err := dataset.Map(ctx, e, raw, func(r model.RawSongRecord) model.Artist {
		return model.Artist{
			ArtistID:  r.ArtistID,
			Name:      stringValue(r.ArtistName),
			Location:  r.ArtistLocation,
			Latitude:  r.ArtistLatitude,
			Longitude: r.ArtistLongitude,
		}
	})
	if err != nil {
		return nil, err
	}

	var deduped *dataset.Dataset[model.Artist]
	if policy == config.DedupNaturalKey {
		deduped = dataset.DistinctBy(projected, func(a model.Artist) string { return a.ArtistID }, true)
	} else {
		// Coordinates are pointers, so the tuple is compared by value.
		deduped = dataset.DistinctBy(projected, func(a model.Artist) artistTuple {
			return artistTuple{a.ArtistID, a.Name, a.Location, nullable(a.Latitude), nullable(a.Longitude)}
		}, false)
	}
	return dataset.Sort(deduped, func(a, b model.Artist) bool { return compareArtists(a, b) < 0 }), nil
}

func compareArtists(a, b model.Artist) int {
	return cmp.Or(
		cmp.Compare(a.ArtistID, b.ArtistID),
		cmp.Compare(a.Name, b.Name),
		cmp.Compare(a.Location, b.Location),
		compareNullable(a.Latitude, b.Latitude),
		compareNullable(a.Longitude, b.Longitude),
	)
}
