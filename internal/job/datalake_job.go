// Package job assembles datalakeJob from its two tasklet steps.
package job

import (
	"go.uber.org/fx"

	"github.com/tigerroll/datalake/internal/step/tasklet"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	port "github.com/tigerroll/datalake/pkg/batch/core/application/port"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	repository "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	jobRunner "github.com/tigerroll/datalake/pkg/batch/core/job/runner"
	metrics "github.com/tigerroll/datalake/pkg/batch/core/metrics"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	taskletStep "github.com/tigerroll/datalake/pkg/batch/engine/step/tasklet"
)

// Job and step names. The job is launched by surfin.batch.job_name.
const (
	JobName          = "datalakeJob"
	SongDataStepName = "songDataStep"
	LogDataStepName  = "logDataStep"
)

// DatalakeJobParams defines the dependencies of NewDatalakeJob.
type DatalakeJobParams struct {
	fx.In
	Config        *config.Config
	Resolver      storage.StorageConnectionResolver
	Engine        *dataset.Engine
	JobRepository repository.JobRepository
	Recorder      metrics.MetricRecorder
	Tracer        metrics.Tracer
	JobListeners  []port.JobExecutionListener  `group:"job_listeners"`
	StepListeners []port.StepExecutionListener `group:"step_listeners"`
}

// NewDatalakeJob builds the job: songDataStep, then logDataStep. A failing step stops the job.
func NewDatalakeJob(p DatalakeJobParams) (port.Job, error) {
	deps := tasklet.Dependencies{
		Config:   p.Config,
		Resolver: p.Resolver,
		Engine:   p.Engine,
		Recorder: p.Recorder,
		Tracer:   p.Tracer,
	}
	songData, err := tasklet.NewSongDataTasklet(deps)
	if err != nil {
		return nil, err
	}
	logData, err := tasklet.NewLogDataTasklet(deps)
	if err != nil {
		return nil, err
	}

	steps := []port.Step{
		taskletStep.NewTaskletStep(SongDataStepName, songData, p.JobRepository, p.StepListeners, p.Recorder, p.Tracer),
		taskletStep.NewTaskletStep(LogDataStepName, logData, p.JobRepository, p.StepListeners, p.Recorder, p.Tracer),
	}
	return jobRunner.NewSimpleJob(JobName, JobName, steps, p.JobRepository, p.JobListeners, p.Tracer), nil
}
