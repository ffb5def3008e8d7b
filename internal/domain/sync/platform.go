package sync

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Platform Errors
// ---------------------------------------------------------------------------

var (
	// ErrPlatformNotConfigured indicates no credentials exist for the tenant
	ErrPlatformNotConfigured = errors.New("sync: platform not configured for tenant")
	// ErrPlatformAuthFailed indicates a 401/403 from the platform; writes
	// must stop until credentials are refreshed
	ErrPlatformAuthFailed = errors.New("sync: platform authentication failed")
	// ErrPlatformRateLimited indicates a 429 from the platform
	ErrPlatformRateLimited = errors.New("sync: platform rate limited")
	// ErrPlatformUnavailable indicates a 5xx or transport failure
	ErrPlatformUnavailable = errors.New("sync: platform temporarily unavailable")
	// ErrPlatformInvalidResponse indicates a malformed platform response
	ErrPlatformInvalidResponse = errors.New("sync: invalid platform response")
	// ErrPlatformNotFound indicates the remote resource does not exist
	ErrPlatformNotFound = errors.New("sync: platform resource not found")
	// ErrPlatformInvalidID indicates a malformed remote identifier
	ErrPlatformInvalidID = errors.New("sync: invalid platform identifier")
)

// IsRetryablePlatformError reports whether a platform error is transient.
// Auth failures, missing resources and malformed identifiers never are.
func IsRetryablePlatformError(err error) bool {
	switch {
	case errors.Is(err, ErrPlatformAuthFailed),
		errors.Is(err, ErrPlatformNotFound),
		errors.Is(err, ErrPlatformInvalidID),
		errors.Is(err, ErrPlatformNotConfigured):
		return false
	default:
		return true
	}
}

// ---------------------------------------------------------------------------
// Platform Client Port
// ---------------------------------------------------------------------------

// PageRequest describes one paginated fetch against the remote platform
type PageRequest struct {
	// Page is the 1-based page number
	Page int
	// PerPage is the nominal page size
	PerPage int
	// ModifiedAfter filters to records modified since the cursor; nil for a
	// full sync
	ModifiedAfter *time.Time
}

// RawPage is one page of undecoded remote records plus the remote-reported
// total page count. TotalPages drives both progress reporting and loop
// termination; batch-size heuristics are unreliable because validation skips
// shrink pages.
type RawPage struct {
	Records    []json.RawMessage
	TotalPages int
}

// PlatformClient is the remote commerce API consumed by the sync engines.
// Implementations classify HTTP failures into the platform error taxonomy
// above.
type PlatformClient interface {
	// FetchPage fetches one page of the given entity collection
	FetchPage(ctx context.Context, tenantID uuid.UUID, entityType EntityType, req PageRequest) (*RawPage, error)

	// FetchVariationsPage fetches one page of variations for a variable
	// product
	FetchVariationsPage(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, req PageRequest) (*RawPage, error)

	// PushProductStock writes a product's stock quantity back to the platform
	PushProductStock(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, quantity int) error

	// PushVariationStock writes a variation's stock quantity back to the
	// platform
	PushVariationStock(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64, quantity int) error
}

// ---------------------------------------------------------------------------
// Job Handle Port
// ---------------------------------------------------------------------------

// JobHandle is the per-job progress and cancellation surface provided by the
// queue layer. The engines poll IsActive once per page.
type JobHandle interface {
	// UpdateProgress reports progress as a 0-100 percentage
	UpdateProgress(ctx context.Context, percent int) error
	// IsActive returns false once cancellation has been requested
	IsActive(ctx context.Context) bool
}
