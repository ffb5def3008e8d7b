package scheduler

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// Progress and cancellation flags outlive the job slightly so late pollers
// still see the final state.
const handleStateTTL = time.Hour

// HandleFactory creates per-job progress handles
type HandleFactory interface {
	Handle(jobID uuid.UUID) domain.JobHandle
}

// RedisHandleFactory creates redis-backed job handles
type RedisHandleFactory struct {
	client *redis.Client
}

// NewRedisHandleFactory creates a RedisHandleFactory
func NewRedisHandleFactory(client *redis.Client) *RedisHandleFactory {
	return &RedisHandleFactory{client: client}
}

// Handle creates a handle for the given job
func (f *RedisHandleFactory) Handle(jobID uuid.UUID) domain.JobHandle {
	return &redisJobHandle{client: f.client, jobID: jobID}
}

// RequestCancel flags a running job for cooperative cancellation. The engine
// notices on its next page boundary.
func (f *RedisHandleFactory) RequestCancel(ctx context.Context, jobID uuid.UUID) error {
	return f.client.Set(ctx, cancelKey(jobID), "1", handleStateTTL).Err()
}

// Progress returns the last reported progress percentage, or 0 when the job
// has not reported yet.
func (f *RedisHandleFactory) Progress(ctx context.Context, jobID uuid.UUID) (int, error) {
	val, err := f.client.Get(ctx, progressKey(jobID)).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}

// redisJobHandle stores progress and polls the cancellation flag in redis so
// any worker process can observe and cancel any job.
type redisJobHandle struct {
	client *redis.Client
	jobID  uuid.UUID
}

func (h *redisJobHandle) UpdateProgress(ctx context.Context, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return h.client.Set(ctx, progressKey(h.jobID), strconv.Itoa(percent), handleStateTTL).Err()
}

func (h *redisJobHandle) IsActive(ctx context.Context) bool {
	n, err := h.client.Exists(ctx, cancelKey(h.jobID)).Result()
	if err != nil {
		// Treat flag-store outages as active; cancellation is advisory
		return true
	}
	return n == 0
}

func progressKey(jobID uuid.UUID) string { return "job:progress:" + jobID.String() }
func cancelKey(jobID uuid.UUID) string   { return "job:cancel:" + jobID.String() }

var _ domain.JobHandle = (*redisJobHandle)(nil)
