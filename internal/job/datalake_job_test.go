package job_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/datalake/internal/job"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	localstorage "github.com/tigerroll/datalake/pkg/batch/adapter/storage/local"
	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/datalake/pkg/batch/core/job/runner"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	"github.com/tigerroll/datalake/pkg/batch/infrastructure/repository/inmemory"
)

type stepRecorder struct {
	steps []string
}

func (r *stepRecorder) BeforeStep(ctx context.Context, se *model.StepExecution) {
	r.steps = append(r.steps, se.StepName)
}

func (r *stepRecorder) AfterStep(ctx context.Context, se *model.StepExecution) {}

func newParams(t *testing.T, cfg *config.Config, listener port.StepExecutionListener) job.DatalakeJobParams {
	t.Helper()
	return job.DatalakeJobParams{
		Config:        cfg,
		Resolver:      storage.NewConnectionResolver([]storage.StorageProvider{localstorage.NewLocalProvider(cfg)}, cfg),
		Engine:        dataset.NewEngine(2),
		JobRepository: inmemory.NewInMemoryJobRepository(),
		StepListeners: []port.StepExecutionListener{listener},
	}
}

func localConfig(t *testing.T) (*config.Config, string) {
	t.Helper()
	in := t.TempDir()
	cfg := config.NewConfig()
	cfg.Surfin.Adapter.Storage["input"] = map[string]interface{}{"type": "local", "base_dir": in}
	cfg.Surfin.Adapter.Storage["output"] = map[string]interface{}{"type": "local", "base_dir": t.TempDir()}
	return cfg, in
}

func TestDatalakeJob_RunsStepsInOrder(t *testing.T) {
	cfg, in := localConfig(t)
	songDir := filepath.Join(in, "song_data", "A", "A", "A")
	require.NoError(t, os.MkdirAll(songDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(songDir, "TRA.json"),
		[]byte(`{"song_id":"S1","title":"Test Song","artist_id":"A1","artist_name":"Test Artist","year":2000,"duration":180.0}`), 0o644))

	rec := &stepRecorder{}
	p := newParams(t, cfg, rec)
	j, err := job.NewDatalakeJob(p)
	require.NoError(t, err)
	assert.Equal(t, job.JobName, j.JobName())

	je := model.NewJobExecution(job.JobName)
	require.NoError(t, p.JobRepository.SaveJobExecution(context.Background(), je))
	jobRunner.NewSimpleJobRunner(p.JobRepository).Run(context.Background(), j, je)

	assert.Equal(t, model.BatchStatusCompleted, je.Status)
	assert.Equal(t, []string{job.SongDataStepName, job.LogDataStepName}, rec.steps)
	require.Len(t, je.StepExecutions, 2)
	assert.Equal(t, 2, je.StepExecutions[0].WriteCount)
}

func TestDatalakeJob_FailingStepStopsTheJob(t *testing.T) {
	cfg, _ := localConfig(t)
	cfg.Surfin.Adapter.Storage["output"] = map[string]interface{}{"type": "local"}

	rec := &stepRecorder{}
	p := newParams(t, cfg, rec)
	j, err := job.NewDatalakeJob(p)
	require.NoError(t, err)

	je := model.NewJobExecution(job.JobName)
	require.NoError(t, p.JobRepository.SaveJobExecution(context.Background(), je))
	jobRunner.NewSimpleJobRunner(p.JobRepository).Run(context.Background(), j, je)

	assert.Equal(t, model.BatchStatusFailed, je.Status)
	assert.Equal(t, []string{job.SongDataStepName}, rec.steps)
	assert.NotEmpty(t, je.Failures)
}

func TestNewDatalakeJob_RejectsBadTimezone(t *testing.T) {
	cfg, _ := localConfig(t)
	cfg.Surfin.System.Timezone = "Nowhere/Special"
	_, err := job.NewDatalakeJob(newParams(t, cfg, &stepRecorder{}))
	assert.Error(t, err)
}
