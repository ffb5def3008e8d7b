package scheduler

import (
	"time"

	"github.com/google/uuid"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// JobStatus represents the lifecycle state of a sync job
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusSuccess   JobStatus = "SUCCESS"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// SyncJob is one queued sync for a tenant and entity type
type SyncJob struct {
	ID         uuid.UUID
	TenantID   uuid.UUID
	EntityType domain.EntityType

	// Incremental filters the fetch by the stored cursor; full syncs also
	// reconcile deletions
	Incremental bool

	Status      JobStatus
	Error       string
	EnqueuedAt  time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	ItemsProcessed int
	ItemsSkipped   int
	ItemsDeleted   int
}

// NewSyncJob creates a pending sync job
func NewSyncJob(tenantID uuid.UUID, entityType domain.EntityType, incremental bool) *SyncJob {
	return &SyncJob{
		ID:          uuid.New(),
		TenantID:    tenantID,
		EntityType:  entityType,
		Incremental: incremental,
		Status:      JobStatusPending,
		EnqueuedAt:  time.Now(),
	}
}

// DedupKey is the stable queue-dedup key; at most one job per key may be
// queued or running at a time.
func (j *SyncJob) DedupKey() string {
	return "sync:" + j.TenantID.String() + ":" + j.EntityType.String()
}

// Start marks the job as running
func (j *SyncJob) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful and records its counters
func (j *SyncJob) Complete(processed, skipped, deleted int) {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
	j.ItemsProcessed = processed
	j.ItemsSkipped = skipped
	j.ItemsDeleted = deleted
}

// Fail marks the job as failed
func (j *SyncJob) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// Cancel marks the job as cancelled
func (j *SyncJob) Cancel() {
	now := time.Now()
	j.Status = JobStatusCancelled
	j.CompletedAt = &now
}
