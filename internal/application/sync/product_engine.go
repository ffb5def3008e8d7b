package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

// ProductEngine is the product specialization of the sync control loop.
// Variable products trigger a secondary paginated variation fetch, run in
// bounded parallel batches to cap remote API concurrency. Variation IDs are
// tracked separately from product IDs so reconciliation can orphan-delete
// stale variations without touching their still-valid parents.
type ProductEngine struct {
	products   domain.ProductRepository
	variations domain.VariationRepository
	validator  domain.RecordValidator
	search     domain.SearchIndex
	scores     domain.ScoreCalculator
	embeddings domain.EmbeddingGenerator
	platform   domain.PlatformClient
	cfg        EngineConfig
	logger     *zap.Logger
}

// NewProductEngine creates the product sync processor
func NewProductEngine(
	products domain.ProductRepository,
	variations domain.VariationRepository,
	validator domain.RecordValidator,
	search domain.SearchIndex,
	scores domain.ScoreCalculator,
	embeddings domain.EmbeddingGenerator,
	platform domain.PlatformClient,
	cfg EngineConfig,
	logger *zap.Logger,
) *ProductEngine {
	return &ProductEngine{
		products:   products,
		variations: variations,
		validator:  validator,
		search:     search,
		scores:     scores,
		embeddings: embeddings,
		platform:   platform,
		cfg:        cfg,
		logger:     logger,
	}
}

// EntityType returns the entity type this processor handles
func (e *ProductEngine) EntityType() domain.EntityType {
	return domain.EntityTypeProducts
}

// NewRun creates per-job state for one tenant
func (e *ProductEngine) NewRun(tenantID uuid.UUID) Run {
	return &productRun{
		engine:        e,
		tenantID:      tenantID,
		seenVariation: make(map[int64]struct{}),
	}
}

type productRun struct {
	engine   *ProductEngine
	tenantID uuid.UUID

	mu            sync.Mutex
	seenVariation map[int64]struct{}
}

// ProcessPage validates and upserts one page of products, runs the scoring
// and indexing side effects, and fans out variation fetches for variable
// products.
func (r *productRun) ProcessPage(ctx context.Context, records []json.RawMessage) (*PageOutcome, error) {
	e := r.engine
	out := &PageOutcome{}

	var incoming []*domain.Product
	for _, raw := range records {
		rec, issues := e.validator.ValidateProduct(raw)
		if rec != nil {
			out.SeenIDs = append(out.SeenIDs, rec.ID)
		}
		if len(issues) > 0 {
			out.Skipped++
			e.logger.Debug("invalid product record skipped",
				zap.String("tenant_id", r.tenantID.String()),
				zap.Any("issues", issues),
			)
			continue
		}
		p := productFromRecord(r.tenantID, rec)
		p.SEOScore = e.scores.SEOScore(p)
		p.ComplianceScore = e.scores.ComplianceScore(p)
		incoming = append(incoming, p)
	}
	if len(incoming) == 0 {
		return out, nil
	}

	written, skipped := upsertChunked(ctx, incoming, e.cfg.ChunkSize,
		func(ctx context.Context, chunk []*domain.Product) error {
			return e.products.UpsertBatch(ctx, r.tenantID, chunk)
		}, e.logger)
	out.Processed += len(written)
	out.Skipped += skipped

	for _, p := range written {
		if err := e.search.Upsert(ctx, r.tenantID, domain.EntityTypeProducts, p.RemoteID, p); err != nil {
			e.logger.Warn("product index write failed",
				zap.Int64("remote_id", p.RemoteID),
				zap.Error(err),
			)
		}
	}
	if err := e.embeddings.GenerateBatch(ctx, r.tenantID, written); err != nil {
		e.logger.Warn("embedding generation failed", zap.Error(err))
	}

	if err := r.syncVariations(ctx, written); err != nil {
		return nil, err
	}
	return out, nil
}

// syncVariations fetches variations for every variable product on the page,
// at most VariationConcurrency products in flight at once.
func (r *productRun) syncVariations(ctx context.Context, products []*domain.Product) error {
	e := r.engine

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.VariationConcurrency)
	for _, p := range products {
		if !p.HasVariations() {
			continue
		}
		p := p
		g.Go(func() error {
			return r.syncProductVariations(gctx, p)
		})
	}
	return g.Wait()
}

// syncProductVariations runs the paginated variation fetch for one product
func (r *productRun) syncProductVariations(ctx context.Context, parent *domain.Product) error {
	e := r.engine

	page := 1
	totalPages := 1
	for page <= totalPages {
		rawPage, err := e.platform.FetchVariationsPage(ctx, r.tenantID, parent.RemoteID, domain.PageRequest{
			Page:    page,
			PerPage: e.cfg.PageSize,
		})
		if err != nil {
			return fmt.Errorf("fetch variations for product %d page %d: %w", parent.RemoteID, page, err)
		}
		if rawPage.TotalPages > 0 {
			totalPages = rawPage.TotalPages
		}

		var incoming []*domain.ProductVariation
		for _, raw := range rawPage.Records {
			rec, issues := e.validator.ValidateVariation(raw)
			if rec != nil {
				r.mu.Lock()
				r.seenVariation[rec.ID] = struct{}{}
				r.mu.Unlock()
			}
			if len(issues) > 0 {
				e.logger.Debug("invalid variation record skipped",
					zap.Int64("product_remote_id", parent.RemoteID),
					zap.Any("issues", issues),
				)
				continue
			}
			incoming = append(incoming, variationFromRecord(r.tenantID, parent.RemoteID, rec))
		}

		if len(incoming) > 0 {
			_, skipped := upsertChunked(ctx, incoming, e.cfg.ChunkSize,
				func(ctx context.Context, chunk []*domain.ProductVariation) error {
					return e.variations.UpsertBatch(ctx, r.tenantID, chunk)
				}, e.logger)
			if skipped > 0 {
				e.logger.Warn("variation upserts skipped",
					zap.Int64("product_remote_id", parent.RemoteID),
					zap.Int("skipped", skipped),
				)
			}
		}
		page++
	}
	return nil
}

// Reconcile orphan-deletes stale products and, independently, stale
// variations.
func (r *productRun) Reconcile(ctx context.Context, seen map[int64]struct{}) (int64, error) {
	e := r.engine

	local, err := e.products.AllRemoteIDs(ctx, r.tenantID)
	if err != nil {
		return 0, err
	}
	var deleted int64
	if orphans := orphanedIDs(local, seen); len(orphans) > 0 {
		deleted, err = e.products.DeleteByRemoteIDs(ctx, r.tenantID, orphans)
		if err != nil {
			return 0, err
		}
		if err := e.search.DeleteBatch(ctx, r.tenantID, domain.EntityTypeProducts, orphans); err != nil {
			e.logger.Warn("product index delete failed", zap.Error(err))
		}
	}

	localVariations, err := e.variations.AllRemoteIDs(ctx, r.tenantID)
	if err != nil {
		return deleted, err
	}
	r.mu.Lock()
	seenVariation := r.seenVariation
	r.mu.Unlock()
	if orphans := orphanedIDs(localVariations, seenVariation); len(orphans) > 0 {
		n, err := e.variations.DeleteByRemoteIDs(ctx, r.tenantID, orphans)
		if err != nil {
			return deleted, err
		}
		deleted += n
	}
	return deleted, nil
}

// Finalize is a no-op for products
func (r *productRun) Finalize(ctx context.Context) error {
	return nil
}

// productFromRecord converts a validated wire record into the local
// projection. An empty price string means "not priced at this level" and
// maps to nil, never zero; a nil stock quantity means stock tracking is
// disabled and stays nil.
func productFromRecord(tenantID uuid.UUID, rec *domain.ProductRecord) *domain.Product {
	return &domain.Product{
		TenantID:         tenantID,
		RemoteID:         rec.ID,
		Name:             rec.Name,
		SKU:              rec.SKU,
		Type:             domain.ProductType(rec.Type),
		Price:            parsePrice(rec.Price),
		StockStatus:      domain.MapStockStatus(rec.StockStatus),
		StockQuantity:    rec.StockQuantity,
		RawPayload:       rec.Raw,
		RemoteCreatedAt:  domain.ParseRemoteTime(rec.DateCreated),
		RemoteModifiedAt: domain.ParseRemoteTime(rec.DateModified),
	}
}

// variationFromRecord converts a validated variation record
func variationFromRecord(tenantID uuid.UUID, productRemoteID int64, rec *domain.VariationRecord) *domain.ProductVariation {
	return &domain.ProductVariation{
		TenantID:         tenantID,
		ProductRemoteID:  productRemoteID,
		RemoteID:         rec.ID,
		SKU:              rec.SKU,
		Price:            parsePrice(rec.Price),
		StockStatus:      domain.MapStockStatus(rec.StockStatus),
		StockQuantity:    rec.StockQuantity,
		RawPayload:       rec.Raw,
		RemoteCreatedAt:  domain.ParseRemoteTime(rec.DateCreated),
		RemoteModifiedAt: domain.ParseRemoteTime(rec.DateModified),
	}
}

// parsePrice maps an empty or malformed wire price to nil
func parsePrice(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}
