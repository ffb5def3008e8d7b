package search

import (
	"context"

	"github.com/google/uuid"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// NoopSearchIndex is the index used when no search endpoint is configured.
// All operations succeed without doing anything.
type NoopSearchIndex struct{}

// NewNoopSearchIndex creates a NoopSearchIndex
func NewNoopSearchIndex() *NoopSearchIndex {
	return &NoopSearchIndex{}
}

// Upsert is a no-op that always succeeds
func (s *NoopSearchIndex) Upsert(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteID int64, doc any) error {
	return nil
}

// DeleteBatch is a no-op that always succeeds
func (s *NoopSearchIndex) DeleteBatch(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteIDs []int64) error {
	return nil
}

var _ domain.SearchIndex = (*NoopSearchIndex)(nil)

// NoopEmbeddingGenerator accepts batches without generating anything. Used
// until the embedding pipeline is wired to a real model endpoint.
type NoopEmbeddingGenerator struct{}

// NewNoopEmbeddingGenerator creates a NoopEmbeddingGenerator
func NewNoopEmbeddingGenerator() *NoopEmbeddingGenerator {
	return &NoopEmbeddingGenerator{}
}

// GenerateBatch is a no-op that always succeeds
func (g *NoopEmbeddingGenerator) GenerateBatch(ctx context.Context, tenantID uuid.UUID, products []*domain.Product) error {
	return nil
}

var _ domain.EmbeddingGenerator = (*NoopEmbeddingGenerator)(nil)
