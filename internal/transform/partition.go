package transform

import (
	"strconv"

	"github.com/tigerroll/datalake/internal/domain/model"
)

// Partition columns of the partitioned tables, outermost first.
var (
	SongPartitionColumns     = []string{"year", "artist_id"}
	TimePartitionColumns     = []string{"year", "month"}
	SongplayPartitionColumns = []string{"year", "month"}
)

// SongPartition returns the partition values of a song row.
func SongPartition(s model.Song) []string {
	return []string{strconv.Itoa(int(s.Year)), s.ArtistID}
}

// TimePartition returns the partition values of a time row.
func TimePartition(t model.Time) []string {
	return []string{strconv.Itoa(int(t.Year)), strconv.Itoa(int(t.Month))}
}

// SongplayPartition returns the partition values of a songplay row.
func SongplayPartition(sp model.Songplay) []string {
	return []string{strconv.Itoa(int(sp.Year)), strconv.Itoa(int(sp.Month))}
}
