// Package app boots the datalake batch application with uber-fx and runs datalakeJob once.
package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	appJob "github.com/tigerroll/datalake/internal/job"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage/gcs"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage/local"
	"github.com/tigerroll/datalake/pkg/batch/adapter/storage/s3"
	usecase "github.com/tigerroll/datalake/pkg/batch/core/application/usecase"
	config "github.com/tigerroll/datalake/pkg/batch/core/config"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	jobRunner "github.com/tigerroll/datalake/pkg/batch/core/job/runner"
	"github.com/tigerroll/datalake/pkg/batch/engine/dataset"
	"github.com/tigerroll/datalake/pkg/batch/infrastructure/metrics"
	"github.com/tigerroll/datalake/pkg/batch/infrastructure/repository"
	batchlistener "github.com/tigerroll/datalake/pkg/batch/listener"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// Options carries what the command line hands to RunApplication.
type Options struct {
	EmbeddedConfig config.EmbeddedConfig
	EnvFilePath    string
	ConfigFilePath string
	Overrides      config.Overrides
}

// Outcome is filled in by the job execution hook and read once the application stops.
type Outcome struct {
	Execution *model.JobExecution
	Err       error
}

// NewEngine provides the dataset engine sized by datalake.engine.parallelism.
func NewEngine(cfg *config.Config) *dataset.Engine {
	logger.Debugf("Dataset engine parallelism: %d", cfg.EffectiveParallelism())
	return dataset.NewEngine(cfg.EffectiveParallelism())
}

// Modules returns every module of the application except the job execution hook.
func Modules() fx.Option {
	return fx.Options(
		logger.Module,
		config.Module,
		metrics.Module,
		repository.Module,

		storage.Module,
		local.Module,
		s3.Module,
		gcs.Module,

		fx.Provide(NewEngine),
		batchlistener.Module,
		jobRunner.Module,
		usecase.Module,
		appJob.Module,
	)
}

// RunApplication loads the configuration, runs the configured job to completion and stops.
// It returns an error when the application cannot start or the job does not complete.
func RunApplication(appCtx context.Context, opts Options) error {
	outcome := &Outcome{}
	app := fx.New(
		fx.Supply(
			opts.EmbeddedConfig,
			opts.Overrides,
			fx.Annotate(opts.EnvFilePath, fx.ResultTags(`name:"envFilePath"`)),
			fx.Annotate(opts.ConfigFilePath, fx.ResultTags(`name:"configFilePath"`)),
			fx.Annotate(
				appCtx,
				fx.As(new(context.Context)),
				fx.ResultTags(`name:"appCtx"`),
			),
			outcome,
		),
		Modules(),
		fx.Invoke(fx.Annotate(startJobExecution, fx.ParamTags(
			"",              // lc fx.Lifecycle
			"",              // shutdowner fx.Shutdowner
			"",              // jobLauncher usecase.JobLauncher
			"",              // cfg *config.Config
			"",              // outcome *Outcome
			`name:"appCtx"`, // appCtx context.Context
		))),
	)
	if err := app.Err(); err != nil {
		return exception.NewBatchError("app", "failed to build application", err, false, false)
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), app.StartTimeout())
	defer cancelStart()
	if err := app.Start(startCtx); err != nil {
		return exception.NewBatchError("app", "failed to start application", err, false, false)
	}

	// The job observes appCtx itself and shuts the application down once it has an outcome.
	sig := <-app.Wait()
	logger.Debugf("Shutdown signal received (exit code %d).", sig.ExitCode)

	stopCtx, cancelStop := context.WithTimeout(context.Background(), app.StopTimeout())
	defer cancelStop()
	if err := app.Stop(stopCtx); err != nil {
		logger.Warnf("Application stop reported an error: %v", err)
	}
	logger.Sync()

	return outcome.result()
}

func (o *Outcome) result() error {
	if o.Err != nil {
		return o.Err
	}
	if o.Execution == nil {
		return exception.NewBatchError("app", "job did not run", nil, false, false)
	}
	if o.Execution.Status != model.BatchStatusCompleted {
		return exception.NewBatchError("app",
			fmt.Sprintf("job '%s' (ID: %s) finished with status %s", o.Execution.JobName, o.Execution.ID, o.Execution.Status),
			nil, false, false)
	}
	return nil
}

// startJobExecution is invoked by Fx to run the job once the application has started.
func startJobExecution(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	jobLauncher usecase.JobLauncher,
	cfg *config.Config,
	outcome *Outcome,
	appCtx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go runJob(appCtx, jobLauncher, cfg.Surfin.Batch.JobName, shutdowner, outcome)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Infof("Application stopping.")
			return nil
		},
	})
}

func runJob(appCtx context.Context, jobLauncher usecase.JobLauncher, jobName string, shutdowner fx.Shutdowner, outcome *Outcome) {
	exitCode := 1
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic recovered in job execution: %v", r)
			outcome.Err = exception.NewBatchError("app", fmt.Sprintf("panic in job '%s': %v", jobName, r), nil, false, false)
		}
		logger.Infof("Requesting application shutdown after job completion.")
		if err := shutdowner.Shutdown(fx.ExitCode(exitCode)); err != nil {
			logger.Errorf("Failed to shutdown application: %v", err)
		}
	}()

	logger.Infof("Starting job execution for job '%s'...", jobName)
	jobExecution, err := jobLauncher.Launch(appCtx, jobName)
	outcome.Execution = jobExecution
	if err != nil {
		logger.Errorf("Failed to launch job '%s': %v", jobName, err)
		outcome.Err = err
		return
	}
	if jobExecution.Status == model.BatchStatusCompleted {
		exitCode = 0
	}
	logger.Infof("Job '%s' (Execution ID: %s) finished with status: %s, ExitStatus: %s",
		jobName, jobExecution.ID, jobExecution.Status, jobExecution.ExitStatus)
}
