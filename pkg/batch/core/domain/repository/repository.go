// Package repository defines the persistence port for batch execution metadata.
package repository

import "errors"

// ErrJobExecutionNotFound is the error returned when a JobExecution is not found.
var ErrJobExecutionNotFound = errors.New("job execution not found")

// ErrStepExecutionNotFound is the error returned when a StepExecution is not found.
var ErrStepExecutionNotFound = errors.New("step execution not found")

// JobRepository persists and retrieves job and step execution metadata.
// It embeds the per-entity interfaces to separate concerns.
type JobRepository interface {
	JobExecution
	StepExecution

	// Close releases resources (such as database connections) used by the repository.
	Close() error
}
