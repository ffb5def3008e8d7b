package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// SyncMetrics tracks entity sync throughput and stock consumption activity.
type SyncMetrics struct {
	meter metric.Meter

	pagesFetched     *Counter
	recordsProcessed *Counter
	recordsSkipped   *Counter
	recordsDeleted   *Counter
	jobsTotal        *Counter
	jobDuration      *Histogram
	pageDuration     *Histogram

	ordersConsumed    *Counter
	componentsMoved   *Counter
	cascadeRecomputes *Counter
}

// NewSyncMetrics creates a SyncMetrics instance over the given meter.
func NewSyncMetrics(meter metric.Meter) (*SyncMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}

	sm := &SyncMetrics{meter: meter}

	var err error
	sm.pagesFetched, err = NewCounter(meter,
		"storebridge_sync_pages_fetched_total",
		"Total remote pages fetched during sync",
		"{pages}")
	if err != nil {
		return nil, err
	}

	sm.recordsProcessed, err = NewCounter(meter,
		"storebridge_sync_records_processed_total",
		"Total records validated and upserted",
		"{records}")
	if err != nil {
		return nil, err
	}

	sm.recordsSkipped, err = NewCounter(meter,
		"storebridge_sync_records_skipped_total",
		"Total records skipped due to validation failures",
		"{records}")
	if err != nil {
		return nil, err
	}

	sm.recordsDeleted, err = NewCounter(meter,
		"storebridge_sync_records_deleted_total",
		"Total local records removed during reconciliation",
		"{records}")
	if err != nil {
		return nil, err
	}

	sm.jobsTotal, err = NewCounter(meter,
		"storebridge_sync_jobs_total",
		"Total sync jobs by final status",
		"{jobs}")
	if err != nil {
		return nil, err
	}

	sm.jobDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storebridge_sync_job_duration_seconds",
		Description: "Duration of sync jobs",
		Unit:        "s",
		Boundaries:  SyncDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.pageDuration, err = NewHistogram(meter, HistogramOpts{
		Name:        "storebridge_sync_page_duration_seconds",
		Description: "Duration of a single page fetch and persist",
		Unit:        "s",
		Boundaries:  PageDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	sm.ordersConsumed, err = NewCounter(meter,
		"storebridge_bom_orders_processed_total",
		"Orders consumed or restored by the stock engine",
		"{orders}")
	if err != nil {
		return nil, err
	}

	sm.componentsMoved, err = NewCounter(meter,
		"storebridge_bom_components_moved_total",
		"Component stock movements recorded",
		"{movements}")
	if err != nil {
		return nil, err
	}

	sm.cascadeRecomputes, err = NewCounter(meter,
		"storebridge_bom_cascade_recomputes_total",
		"Parent availability recomputes triggered by component changes",
		"{recomputes}")
	if err != nil {
		return nil, err
	}

	return sm, nil
}

// RecordPage records one fetched remote page.
func (sm *SyncMetrics) RecordPage(ctx context.Context, tenantID uuid.UUID, entityType string, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrEntityType.String(entityType),
	}
	sm.pagesFetched.Inc(ctx, attrs...)
	sm.pageDuration.RecordDuration(ctx, d, attrs...)
}

// RecordJob records a completed sync job with its final status and counters.
func (sm *SyncMetrics) RecordJob(ctx context.Context, tenantID uuid.UUID, entityType, status string, d time.Duration, processed, skipped, deleted int) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrEntityType.String(entityType),
	}
	sm.jobsTotal.Inc(ctx, append(attrs, AttrJobStatus.String(status))...)
	sm.jobDuration.RecordDuration(ctx, d, attrs...)
	if processed > 0 {
		sm.recordsProcessed.Add(ctx, int64(processed), attrs...)
	}
	if skipped > 0 {
		sm.recordsSkipped.Add(ctx, int64(skipped), attrs...)
	}
	if deleted > 0 {
		sm.recordsDeleted.Add(ctx, int64(deleted), attrs...)
	}
}

// RecordConsumption records one order processed by the stock engine along with
// the number of component movements it produced.
func (sm *SyncMetrics) RecordConsumption(ctx context.Context, tenantID uuid.UUID, direction string, components int) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrDirection.String(direction),
	}
	sm.ordersConsumed.Inc(ctx, attrs...)
	if components > 0 {
		sm.componentsMoved.Add(ctx, int64(components), attrs...)
	}
}

// RecordCascade records parent availability recomputes.
func (sm *SyncMetrics) RecordCascade(ctx context.Context, tenantID uuid.UUID, parents int) {
	if parents <= 0 {
		return
	}
	sm.cascadeRecomputes.Add(ctx, int64(parents),
		AttrTenantID.String(tenantID.String()))
}
