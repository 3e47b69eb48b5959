// Package sql implements the JobRepository on top of gorm.
// The schema is created with AutoMigrate when the repository is constructed.
package sql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	model "github.com/tigerroll/datalake/pkg/batch/core/domain/model"
	repository "github.com/tigerroll/datalake/pkg/batch/core/domain/repository"
	"github.com/tigerroll/datalake/pkg/batch/support/util/exception"
	"github.com/tigerroll/datalake/pkg/batch/support/util/logger"
)

// SQLJobRepository implements the repository.JobRepository interface.
type SQLJobRepository struct {
	db *gorm.DB
}

var _ repository.JobRepository = (*SQLJobRepository)(nil)

// NewSQLJobRepository migrates the metadata schema and returns a repository bound to db.
func NewSQLJobRepository(db *gorm.DB) (*SQLJobRepository, error) {
	if err := db.AutoMigrate(&JobExecutionEntity{}, &StepExecutionEntity{}); err != nil {
		return nil, exception.NewBatchError("SQLJobRepository", "failed to migrate job repository schema", err, false, false)
	}
	logger.Debugf("Job repository schema is up to date.")
	return &SQLJobRepository{db: db}, nil
}

// --- JobExecution implementation ---

func (r *SQLJobRepository) SaveJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.SaveJobExecution"
	if err := r.db.WithContext(ctx).Create(fromDomainJobExecution(jobExecution)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save JobExecution (ID: %s)", jobExecution.ID), err, false, true)
	}
	return nil
}

func (r *SQLJobRepository) UpdateJobExecution(ctx context.Context, jobExecution *model.JobExecution) error {
	const op = "SQLJobRepository.UpdateJobExecution"
	entity := fromDomainJobExecution(jobExecution)
	result := r.db.WithContext(ctx).Model(&JobExecutionEntity{ID: entity.ID}).Select("*").Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update JobExecution (ID: %s)", jobExecution.ID), result.Error, false, true)
	}
	if result.RowsAffected == 0 {
		return exception.NewBatchError(op, fmt.Sprintf("JobExecution (ID: %s) not found for update", jobExecution.ID), repository.ErrJobExecutionNotFound, false, false)
	}
	return nil
}

func (r *SQLJobRepository) FindJobExecutionByID(ctx context.Context, id string) (*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionByID"

	var entity JobExecutionEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrJobExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecution (ID: %s)", id), err, false, true)
	}
	je := toDomainJobExecution(&entity)

	var steps []StepExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_execution_id = ?", id).Order("start_time asc").Find(&steps).Error; err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to load StepExecutions of JobExecution (ID: %s)", id), err, false, true)
	}
	for i := range steps {
		se := toDomainStepExecution(&steps[i])
		se.JobExecution = je
		je.StepExecutions = append(je.StepExecutions, se)
	}
	return je, nil
}

func (r *SQLJobRepository) FindJobExecutionsByJobName(ctx context.Context, jobName string) ([]*model.JobExecution, error) {
	const op = "SQLJobRepository.FindJobExecutionsByJobName"

	var entities []JobExecutionEntity
	if err := r.db.WithContext(ctx).Where("job_name = ?", jobName).Order("create_time desc").Find(&entities).Error; err != nil {
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find JobExecutions of job '%s'", jobName), err, false, true)
	}
	executions := make([]*model.JobExecution, 0, len(entities))
	for i := range entities {
		executions = append(executions, toDomainJobExecution(&entities[i]))
	}
	return executions, nil
}

// --- StepExecution implementation ---

func (r *SQLJobRepository) SaveStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.SaveStepExecution"
	if err := r.db.WithContext(ctx).Create(fromDomainStepExecution(stepExecution)).Error; err != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to save StepExecution (ID: %s)", stepExecution.ID), err, false, true)
	}
	return nil
}

func (r *SQLJobRepository) UpdateStepExecution(ctx context.Context, stepExecution *model.StepExecution) error {
	const op = "SQLJobRepository.UpdateStepExecution"
	entity := fromDomainStepExecution(stepExecution)
	result := r.db.WithContext(ctx).Model(&StepExecutionEntity{ID: entity.ID}).Select("*").Updates(entity)
	if result.Error != nil {
		return exception.NewBatchError(op, fmt.Sprintf("failed to update StepExecution (ID: %s)", stepExecution.ID), result.Error, false, true)
	}
	if result.RowsAffected == 0 {
		return exception.NewBatchError(op, fmt.Sprintf("StepExecution (ID: %s) not found for update", stepExecution.ID), repository.ErrStepExecutionNotFound, false, false)
	}
	return nil
}

func (r *SQLJobRepository) FindStepExecutionByID(ctx context.Context, id string) (*model.StepExecution, error) {
	const op = "SQLJobRepository.FindStepExecutionByID"

	var entity StepExecutionEntity
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&entity).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrStepExecutionNotFound
		}
		return nil, exception.NewBatchError(op, fmt.Sprintf("failed to find StepExecution (ID: %s)", id), err, false, true)
	}
	return toDomainStepExecution(&entity), nil
}

// Close closes the underlying database handle.
func (r *SQLJobRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
