package scheduler

import "errors"

var (
	// ErrSchedulerNotRunning is returned when trying to submit a job to a stopped scheduler
	ErrSchedulerNotRunning = errors.New("scheduler is not running")

	// ErrJobQueueFull is returned when the job queue is full
	ErrJobQueueFull = errors.New("job queue is full")

	// ErrInvalidConfig is returned when configuration is invalid
	ErrInvalidConfig = errors.New("invalid scheduler configuration")

	// ErrSyncAlreadyQueued is returned when a sync for the same tenant and
	// entity type is already queued or running
	ErrSyncAlreadyQueued = errors.New("sync already queued for this tenant and entity type")

	// ErrUnknownEntityType is returned when no engine is registered for the
	// job's entity type
	ErrUnknownEntityType = errors.New("no sync engine registered for entity type")
)
