// Package sync implements the entity synchronization pipeline: a paginated
// fetch/validate/upsert/reconcile control loop shared by the order, product
// and review engines, each with its own post-upsert heuristics.
package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
)

// EngineConfig tunes the shared control loop
type EngineConfig struct {
	// PageSize is the nominal remote page size
	PageSize int
	// ChunkSize bounds the number of rows per upsert transaction so a chunk
	// commits well within the transaction timeout under load
	ChunkSize int
	// RecentOrderWindow bounds "created" event emission so historical
	// backfills do not flood the bus
	RecentOrderWindow time.Duration
	// VariationConcurrency bounds parallel variation fetches per page
	VariationConcurrency int
	// MatchLookback is the review matcher's candidate window
	MatchLookback time.Duration
}

// DefaultEngineConfig returns the engines' default tuning
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		PageSize:             50,
		ChunkSize:            100,
		RecentOrderWindow:    7 * 24 * time.Hour,
		VariationConcurrency: 5,
		MatchLookback:        180 * 24 * time.Hour,
	}
}

// Result summarizes one sync job
type Result struct {
	ItemsProcessed int
	ItemsSkipped   int
	ItemsDeleted   int
}

// PageOutcome reports what one page produced
type PageOutcome struct {
	Processed int
	Skipped   int
	// SeenIDs are the remote IDs observed on the page, fed into
	// reconciliation on full syncs
	SeenIDs []int64
}

// Run is the per-job state of one entity specialization. A new run is
// created per sync so concurrent jobs for different tenants never share
// state.
type Run interface {
	// ProcessPage validates, upserts and runs side effects for one page.
	// Per-record failures are counted as skipped, never fatal.
	ProcessPage(ctx context.Context, records []json.RawMessage) (*PageOutcome, error)

	// Reconcile deletes local records absent from the observed remote set.
	// Called only on full syncs, after the fetch loop.
	Reconcile(ctx context.Context, seen map[int64]struct{}) (int64, error)

	// Finalize runs entity-specific post-loop maintenance
	Finalize(ctx context.Context) error
}

// Processor is one entity specialization of the control loop
type Processor interface {
	EntityType() domain.EntityType
	NewRun(tenantID uuid.UUID) Run
}

// Engine drives the shared paginated control loop for one entity type
type Engine struct {
	processor Processor
	platform  domain.PlatformClient
	cursors   domain.SyncCursorRepository
	logger    *zap.Logger
	cfg       EngineConfig
}

// NewEngine creates a sync engine around an entity processor
func NewEngine(
	processor Processor,
	platform domain.PlatformClient,
	cursors domain.SyncCursorRepository,
	cfg EngineConfig,
	logger *zap.Logger,
) *Engine {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	return &Engine{
		processor: processor,
		platform:  platform,
		cursors:   cursors,
		logger:    logger,
		cfg:       cfg,
	}
}

// Sync runs one sync job for the tenant. Incremental syncs filter by the
// stored cursor; full syncs fetch everything and reconcile deletions.
// The job handle is optional; when present it receives per-page progress and
// is polled for cooperative cancellation.
func (e *Engine) Sync(ctx context.Context, tenantID uuid.UUID, incremental bool, handle domain.JobHandle) (*Result, error) {
	entityType := e.processor.EntityType()
	startedAt := time.Now()

	var modifiedAfter *time.Time
	if incremental {
		cursor, err := e.cursors.Get(ctx, tenantID, entityType)
		if err != nil {
			return nil, fmt.Errorf("load cursor: %w", err)
		}
		if cursor != nil {
			t := cursor.LastSyncedAt
			modifiedAfter = &t
		}
	}

	e.logger.Info("sync started",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entity_type", entityType.String()),
		zap.Bool("incremental", incremental),
	)

	run := e.processor.NewRun(tenantID)
	result := &Result{}
	seen := make(map[int64]struct{})

	page := 1
	totalPages := 1
	for page <= totalPages {
		if handle != nil && !handle.IsActive(ctx) {
			return nil, shared.ErrSyncCancelled
		}

		rawPage, err := e.platform.FetchPage(ctx, tenantID, entityType, domain.PageRequest{
			Page:          page,
			PerPage:       e.cfg.PageSize,
			ModifiedAfter: modifiedAfter,
		})
		if err != nil {
			// Remote fetch errors fail the job; the queue layer's retry
			// policy governs re-attempts
			return nil, fmt.Errorf("fetch %s page %d: %w", entityType, page, err)
		}
		if rawPage.TotalPages > 0 {
			totalPages = rawPage.TotalPages
		}

		outcome, err := run.ProcessPage(ctx, rawPage.Records)
		if err != nil {
			return nil, fmt.Errorf("process %s page %d: %w", entityType, page, err)
		}
		result.ItemsProcessed += outcome.Processed
		result.ItemsSkipped += outcome.Skipped
		for _, id := range outcome.SeenIDs {
			seen[id] = struct{}{}
		}

		if handle != nil {
			percent := page * 100 / totalPages
			if err := handle.UpdateProgress(ctx, percent); err != nil {
				e.logger.Warn("progress update failed", zap.Error(err))
			}
		}

		// A short page only means validation skipped records; only the
		// remote-reported total page count terminates the loop
		page++
	}

	if !incremental {
		deleted, err := run.Reconcile(ctx, seen)
		if err != nil {
			return nil, fmt.Errorf("reconcile %s: %w", entityType, err)
		}
		result.ItemsDeleted = int(deleted)
	}

	if err := run.Finalize(ctx); err != nil {
		return nil, fmt.Errorf("finalize %s: %w", entityType, err)
	}

	if err := e.cursors.Save(ctx, &domain.SyncCursor{
		TenantID:     tenantID,
		EntityType:   entityType,
		LastSyncedAt: startedAt,
	}); err != nil {
		return nil, fmt.Errorf("save cursor: %w", err)
	}

	e.logger.Info("sync finished",
		zap.String("tenant_id", tenantID.String()),
		zap.String("entity_type", entityType.String()),
		zap.Int("processed", result.ItemsProcessed),
		zap.Int("skipped", result.ItemsSkipped),
		zap.Int("deleted", result.ItemsDeleted),
	)
	return result, nil
}

// upsertChunked writes items in transaction-bounded chunks. A failing chunk
// falls back to per-item writes so one bad record cannot sink its neighbors;
// individual failures are logged and counted as skipped. Returns the items
// that were actually written.
func upsertChunked[T any](
	ctx context.Context,
	items []T,
	chunkSize int,
	upsert func(ctx context.Context, chunk []T) error,
	logger *zap.Logger,
) (written []T, skipped int) {
	for start := 0; start < len(items); start += chunkSize {
		end := start + chunkSize
		if end > len(items) {
			end = len(items)
		}
		chunk := items[start:end]
		if err := upsert(ctx, chunk); err == nil {
			written = append(written, chunk...)
			continue
		}
		for _, item := range chunk {
			if err := upsert(ctx, []T{item}); err != nil {
				logger.Warn("record upsert failed, skipping", zap.Error(err))
				skipped++
				continue
			}
			written = append(written, item)
		}
	}
	return written, skipped
}

// orphanedIDs returns local IDs absent from the observed remote set
func orphanedIDs(local []int64, seen map[int64]struct{}) []int64 {
	var orphans []int64
	for _, id := range local {
		if _, ok := seen[id]; !ok {
			orphans = append(orphans, id)
		}
	}
	return orphans
}
