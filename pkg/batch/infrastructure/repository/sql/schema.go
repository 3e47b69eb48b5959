package sql

import (
	"time"

	"github.com/tigerroll/datalake/pkg/batch/core/domain/model"
)

// JobExecutionEntity is the persistence model of a JobExecution.
type JobExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	JobName          string `gorm:"index;size:255"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus  `gorm:"size:20"`
	ExitStatus       model.ExitStatus `gorm:"size:20"`
	ExitCode         int
	Failures         model.FailureList `gorm:"type:text"`
	CreateTime       time.Time         `gorm:"index"`
	LastUpdated      time.Time
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
	CurrentStepName  string                 `gorm:"size:255"`
}

func (JobExecutionEntity) TableName() string {
	return "batch_job_execution"
}

// StepExecutionEntity is the persistence model of a StepExecution.
type StepExecutionEntity struct {
	ID               string `gorm:"primaryKey;size:36"`
	StepName         string `gorm:"size:255"`
	JobExecutionID   string `gorm:"index;size:36"`
	StartTime        time.Time
	EndTime          *time.Time
	Status           model.JobStatus   `gorm:"size:20"`
	ExitStatus       model.ExitStatus  `gorm:"size:20"`
	Failures         model.FailureList `gorm:"type:text"`
	ReadCount        int
	WriteCount       int
	FilterCount      int
	SkipReadCount    int
	ExecutionContext model.ExecutionContext `gorm:"type:text"`
	LastUpdated      time.Time
}

func (StepExecutionEntity) TableName() string {
	return "batch_step_execution"
}
