package sync

import (
	"context"

	"github.com/google/uuid"
)

// SearchIndex is the external search/index service. Calls are best-effort:
// the engines log failures and continue, a failed index write must not fail
// a sync.
type SearchIndex interface {
	// Upsert indexes or reindexes one record
	Upsert(ctx context.Context, tenantID uuid.UUID, entityType EntityType, remoteID int64, doc any) error
	// DeleteBatch removes index entries for reconciled-away records
	DeleteBatch(ctx context.Context, tenantID uuid.UUID, entityType EntityType, remoteIDs []int64) error
}

// ScoreCalculator computes the denormalized product scores. Pure functions
// over a product record; failures here are impossible by construction.
type ScoreCalculator interface {
	// SEOScore scores listing quality from 0 to 100
	SEOScore(p *Product) int
	// ComplianceScore scores marketplace compliance from 0 to 100
	ComplianceScore(p *Product) int
}

// EmbeddingGenerator feeds upserted products to the semantic-search
// embedding pipeline. Best-effort, called per batch.
type EmbeddingGenerator interface {
	GenerateBatch(ctx context.Context, tenantID uuid.UUID, products []*Product) error
}
