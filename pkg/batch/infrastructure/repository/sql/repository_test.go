package sql_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gormadapter "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm"
	_ "github.com/tigerroll/datalake/pkg/batch/adapter/database/gorm/sqlite"
	"github.com/tigerroll/datalake/pkg/batch/core/config"
	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	"github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	sqlrepo "github.com/tigerroll/datalake/pkg/batch/infrastructure/repository/sql"
)

func setupSQLiteRepository(t *testing.T) *sqlrepo.SQLJobRepository {
	t.Helper()
	db, err := gormadapter.Open(config.RepositoryConfig{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "metadata.db"),
		Pool: config.PoolConfig{MaxOpenConns: 1},
	})
	require.NoError(t, err)

	repo, err := sqlrepo.NewSQLJobRepository(db)
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// TestSQLiteJobRepository_Lifecycle walks a job execution through the states the runner produces.
func TestSQLiteJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepository(t)

	je := model.NewJobExecution("datalakeJob")
	require.NoError(t, repo.SaveJobExecution(ctx, je))

	je.MarkAsStarted()
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	songStep := model.NewStepExecution(model.NewID(), je, "songDataStep")
	songStep.MarkAsStarted()
	require.NoError(t, repo.SaveStepExecution(ctx, songStep))

	songStep.ReadCount = 71
	songStep.WriteCount = 140
	songStep.SkipReadCount = 1
	songStep.ExecutionContext.Put("malformedLines", 1)
	songStep.MarkAsCompleted()
	require.NoError(t, repo.UpdateStepExecution(ctx, songStep))

	logStep := model.NewStepExecution(model.NewID(), je, "logDataStep")
	logStep.StartTime = songStep.StartTime.Add(time.Second)
	logStep.MarkAsStarted()
	require.NoError(t, repo.SaveStepExecution(ctx, logStep))
	logStep.MarkAsFailed(errors.New("upload failed"))
	require.NoError(t, repo.UpdateStepExecution(ctx, logStep))

	je.MarkAsFailed(errors.New("upload failed"))
	require.NoError(t, repo.UpdateJobExecution(ctx, je))

	found, err := repo.FindJobExecutionByID(ctx, je.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BatchStatusFailed, found.Status)
	assert.Equal(t, 1, found.ExitCode)
	assert.NotNil(t, found.EndTime)
	assert.Contains(t, found.Failures, "upload failed")

	require.Len(t, found.StepExecutions, 2)
	assert.Equal(t, "songDataStep", found.StepExecutions[0].StepName)
	assert.Equal(t, model.BatchStatusCompleted, found.StepExecutions[0].Status)
	assert.Equal(t, 140, found.StepExecutions[0].WriteCount)
	malformed, ok := found.StepExecutions[0].ExecutionContext.GetInt("malformedLines")
	assert.True(t, ok)
	assert.Equal(t, 1, malformed)
	assert.Equal(t, model.BatchStatusFailed, found.StepExecutions[1].Status)

	se, err := repo.FindStepExecutionByID(ctx, logStep.ID)
	require.NoError(t, err)
	assert.Equal(t, je.ID, se.JobExecutionID)
}

func TestSQLiteJobRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepository(t)

	_, err := repo.FindJobExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)

	_, err = repo.FindStepExecutionByID(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrStepExecutionNotFound)

	err = repo.UpdateJobExecution(ctx, model.NewJobExecution("datalakeJob"))
	assert.ErrorIs(t, err, repository.ErrJobExecutionNotFound)
}

func TestSQLiteJobRepository_FindByJobName(t *testing.T) {
	ctx := context.Background()
	repo := setupSQLiteRepository(t)

	older := model.NewJobExecution("datalakeJob")
	older.CreateTime = time.Now().Add(-time.Hour)
	newer := model.NewJobExecution("datalakeJob")
	for _, je := range []*model.JobExecution{older, newer, model.NewJobExecution("otherJob")} {
		require.NoError(t, repo.SaveJobExecution(ctx, je))
	}

	executions, err := repo.FindJobExecutionsByJobName(ctx, "datalakeJob")
	require.NoError(t, err)
	require.Len(t, executions, 2)
	assert.Equal(t, newer.ID, executions[0].ID)
	assert.Equal(t, older.ID, executions[1].ID)
}
