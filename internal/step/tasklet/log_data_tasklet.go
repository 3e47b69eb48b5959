package tasklet

import (
	"context"
	"fmt"
	"time"

	"github.com/tigerroll/datalake/internal/domain/model"
	"github.com/tigerroll/datalake/internal/transform"
	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	batchmodel "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// LogDataTasklet builds the users and time dimensions and the songplays fact from the
// play events, joining them against a fresh read of the song metadata.
type LogDataTasklet struct {
	baseTasklet
	location *time.Location
}

// NewLogDataTasklet creates a new LogDataTasklet. The configured timezone is loaded here,
// and unknown dedup or join policies are rejected.
func NewLogDataTasklet(deps Dependencies) (*LogDataTasklet, error) {
	base, err := newBaseTasklet("LogDataTasklet", deps)
	if err != nil {
		return nil, err
	}
	if err := transform.ValidateDedupPolicy(base.cfg.Dedup.Policy); err != nil {
		return nil, err
	}
	if err := transform.ValidateJoinPolicy(base.cfg.Join.Policy); err != nil {
		return nil, err
	}
	tz := deps.Config.Surfin.System.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, exception.NewBatchError(base.name, fmt.Sprintf("invalid timezone '%s'", tz), err, false, false)
	}
	return &LogDataTasklet{baseTasklet: base, location: loc}, nil
}

// Execute reads log_data, keeps the NextSong events and writes users, time and songplays.
func (t *LogDataTasklet) Execute(ctx context.Context, stepExecution *batchmodel.StepExecution) (batchmodel.ExitStatus, error) {
	raw, err := t.readLogData(ctx, stepExecution)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	plays, err := transform.FilterPlays(ctx, t.engine, raw)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	stepExecution.FilterCount += raw.Count() - plays.Count()

	users, err := transform.ExtractUsers(ctx, t.engine, plays, t.cfg.Dedup.Policy)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	if err := writeTable(ctx, &t.baseTasklet, stepExecution, model.TableUsers, nil, nil, users); err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	times, err := transform.ExtractTimes(ctx, t.engine, plays, t.location)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	if err := writeTable(ctx, &t.baseTasklet, stepExecution, model.TableTime,
		transform.TimePartitionColumns, transform.TimePartition, times); err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	songs, err := t.readSongData(ctx, stepExecution)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	songplays, stats, err := transform.BuildSongplays(ctx, t.engine, plays, songs, t.location, t.cfg.Join.Policy)
	if err != nil {
		return batchmodel.ExitStatusFailed, err
	}
	t.ec.Put(ECKeyFanoutEvents, stats.Fanout)
	t.ec.Put(ECKeyUnmatchedEvents, stats.Unmatched)
	if stats.Fanout > 0 {
		logger.Warnf("%s: %d events matched more than one song; songplays holds %d rows for %d events (join policy '%s').",
			t.name, stats.Fanout, stats.Rows, plays.Count(), t.cfg.Join.Policy)
		t.recorder.RecordJoinFanout(ctx, stepExecution.StepName, stats.Fanout)
		t.tracer.RecordEvent(ctx, "songplay.fanout", map[string]interface{}{"events": stats.Fanout})
	}
	if err := writeTable(ctx, &t.baseTasklet, stepExecution, model.TableSongplays,
		transform.SongplayPartitionColumns, transform.SongplayPartition, songplays); err != nil {
		return batchmodel.ExitStatusFailed, err
	}

	logger.Infof("%s: %d events, %d plays -> %d users, %d time rows, %d songplays (%d matched, %d unmatched).",
		t.name, raw.Count(), plays.Count(), users.Count(), times.Count(), songplays.Count(), stats.Matched, stats.Unmatched)
	return batchmodel.ExitStatusCompleted, nil
}

var _ port.Tasklet = (*LogDataTasklet)(nil)
