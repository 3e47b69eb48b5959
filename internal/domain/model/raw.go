// Package model defines the records of the song-play pipelines: the raw source records
// and the rows of the star schema tables.
package model

import (
	"github.com/tigerroll/datalake/pkg/batch/component/step/reader"
)

// RawSongRecord is one line of the song metadata source. Title and ArtistName stay nil
// when the member is null or missing so the songplay join can tell null from "".
type RawSongRecord struct {
	SongID          string
	Title           *string
	ArtistID        string
	ArtistName      *string
	ArtistLocation  string
	ArtistLatitude  *float64
	ArtistLongitude *float64
	Year            int32
	Duration        float64
	NumSongs        int64
}

// DecodeRawSong maps the members of a song_data object onto a RawSongRecord.
func DecodeRawSong(f *reader.Fields) RawSongRecord {
	return RawSongRecord{
		SongID:          f.String("song_id"),
		Title:           f.StringPtr("title"),
		ArtistID:        f.String("artist_id"),
		ArtistName:      f.StringPtr("artist_name"),
		ArtistLocation:  f.String("artist_location"),
		ArtistLatitude:  f.Float64Ptr("artist_latitude"),
		ArtistLongitude: f.Float64Ptr("artist_longitude"),
		Year:            f.Int32("year"),
		Duration:        f.Float64("duration"),
		NumSongs:        f.Int64("num_songs"),
	}
}

// RawEventRecord is one line of the user activity log.
type RawEventRecord struct {
	Artist        *string
	Auth          string
	FirstName     string
	Gender        string
	ItemInSession int64
	LastName      string
	Length        *float64
	Level         string
	Location      string
	Method        string
	Page          string
	Registration  *float64
	SessionID     int64
	Song          *string
	Status        int64
	Ts            int64
	UserAgent     string
	UserID        string
}

// DecodeRawEvent maps the members of a log_data object onto a RawEventRecord.
func DecodeRawEvent(f *reader.Fields) RawEventRecord {
	return RawEventRecord{
		Artist:        f.StringPtr("artist"),
		Auth:          f.String("auth"),
		FirstName:     f.String("firstName"),
		Gender:        f.String("gender"),
		ItemInSession: f.Int64("itemInSession"),
		LastName:      f.String("lastName"),
		Length:        f.Float64Ptr("length"),
		Level:         f.String("level"),
		Location:      f.String("location"),
		Method:        f.String("method"),
		Page:          f.String("page"),
		Registration:  f.Float64Ptr("registration"),
		SessionID:     f.Int64("sessionId"),
		Song:          f.StringPtr("song"),
		Status:        f.Int64("status"),
		Ts:            f.Int64("ts"),
		UserAgent:     f.String("userAgent"),
		UserID:        f.String("userId"),
	}
}
