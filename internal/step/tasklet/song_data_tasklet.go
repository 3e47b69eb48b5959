package tasklet

import (
	"context"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/internal/transform"
	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	batchmodel "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// SongDataTasklet builds the songs and artists dimensions from the song metadata.
type SongDataTasklet struct {
	baseTasklet
}

// NewSongDataTasklet creates a new SongDataTasklet. Unknown dedup policies are rejected here.
func NewSongDataTasklet(deps Dependencies) (*SongDataTasklet, error) {
	base, err := newBaseTasklet("SongDataTasklet", deps)
	if err != nil {
		return nil, err
	}
	if err := transform.ValidateDedupPolicy(base.cfg.Dedup.Policy); err != nil {
		return nil, err
	}
	return &SongDataTasklet{baseTasklet: base}, nil
}

// Execute reads song_data, then writes songs partitioned by (year, artist_id) and artists.
func (t *SongDataTasklet) Execute(ctx context.Context, stepExecution *batchmodel.StepExecution) (batchmodel.ExitStatus, error) {
	raw, err := t.readSongData(ctx, stepExecution)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	songs, err := transform.ExtractSongs(ctx, t.engine, raw, t.cfg.Dedup.Policy)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	if err := writeTable(ctx, &t.baseTasklet, stepExecution, model.TableSongs,
		transform.SongPartitionColumns, transform.SongPartition, songs); err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	artists, err := transform.ExtractArtists(ctx, t.engine, raw, t.cfg.Dedup.Policy)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	if err := writeTable(ctx, &t.baseTasklet, stepExecution, model.TableArtists, nil, nil, artists); err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	logger.Infof("%s: %d song records -> %d songs, %d artists.", t.name, raw.Count(), songs.Count(), artists.Count())
	return batchmodel.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*SongDataTasklet)(nil)
