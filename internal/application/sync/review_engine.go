package sync

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
)

// ReviewEngine is the review specialization of the sync control loop. Its
// distinguishing work is the scored review-to-order matching heuristic, run
// per page against a bounded candidate projection.
type ReviewEngine struct {
	reviews   domain.ReviewRepository
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	validator domain.RecordValidator
	cfg       EngineConfig
	logger    *zap.Logger
}

// NewReviewEngine creates the review sync processor
func NewReviewEngine(
	reviews domain.ReviewRepository,
	orders domain.OrderRepository,
	customers domain.CustomerRepository,
	validator domain.RecordValidator,
	cfg EngineConfig,
	logger *zap.Logger,
) *ReviewEngine {
	return &ReviewEngine{
		reviews:   reviews,
		orders:    orders,
		customers: customers,
		validator: validator,
		cfg:       cfg,
		logger:    logger,
	}
}

// EntityType returns the entity type this processor handles
func (e *ReviewEngine) EntityType() domain.EntityType {
	return domain.EntityTypeReviews
}

// NewRun creates per-job state for one tenant
func (e *ReviewEngine) NewRun(tenantID uuid.UUID) Run {
	return &reviewRun{engine: e, tenantID: tenantID}
}

type reviewRun struct {
	engine   *ReviewEngine
	tenantID uuid.UUID
}

// ProcessPage validates the page, runs the matching heuristic against a
// page-wide candidate window, and upserts the matched reviews.
func (r *reviewRun) ProcessPage(ctx context.Context, records []json.RawMessage) (*PageOutcome, error) {
	e := r.engine
	out := &PageOutcome{}

	var incoming []*domain.Review
	for _, raw := range records {
		rec, issues := e.validator.ValidateReview(raw)
		if rec != nil {
			out.SeenIDs = append(out.SeenIDs, rec.ID)
		}
		if len(issues) > 0 {
			out.Skipped++
			e.logger.Debug("invalid review record skipped",
				zap.String("tenant_id", r.tenantID.String()),
				zap.Any("issues", issues),
			)
			continue
		}
		incoming = append(incoming, reviewFromRecord(r.tenantID, rec))
	}
	if len(incoming) == 0 {
		return out, nil
	}

	if err := r.matchPage(ctx, incoming); err != nil {
		return nil, err
	}

	written, skipped := upsertChunked(ctx, incoming, e.cfg.ChunkSize,
		func(ctx context.Context, chunk []*domain.Review) error {
			return e.reviews.UpsertBatch(ctx, r.tenantID, chunk)
		}, e.logger)
	out.Processed += len(written)
	out.Skipped += skipped
	return out, nil
}

// matchPage runs the scored matching heuristic for one page of reviews. The
// candidate projection is fetched once for the whole page, spanning every
// review's lookback window, and indexed by product ID so per-review work is
// a map lookup plus a small scoring pass.
func (r *reviewRun) matchPage(ctx context.Context, reviews []*domain.Review) error {
	e := r.engine

	earliest, latest := reviews[0].RemoteCreatedAt, reviews[0].RemoteCreatedAt
	for _, rv := range reviews[1:] {
		if rv.RemoteCreatedAt.Before(earliest) {
			earliest = rv.RemoteCreatedAt
		}
		if rv.RemoteCreatedAt.After(latest) {
			latest = rv.RemoteCreatedAt
		}
	}
	from := earliest.Add(-e.cfg.MatchLookback)

	candidates, err := e.orders.FindMatchCandidates(ctx, r.tenantID, from, latest)
	if err != nil {
		return err
	}
	idx := buildCandidateIndex(candidates)

	// Resolve reviewers once per distinct email on the page
	resolved := make(map[string]*domain.Customer)
	for _, rv := range reviews {
		email := domain.NormalizeEmail(rv.ReviewerEmail)
		if email == "" {
			continue
		}
		if _, ok := resolved[email]; ok {
			continue
		}
		customer, err := e.customers.FindByEmail(ctx, r.tenantID, email)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				resolved[email] = nil
				continue
			}
			return err
		}
		resolved[email] = customer
	}

	for _, rv := range reviews {
		customer := resolved[domain.NormalizeEmail(rv.ReviewerEmail)]
		if customer != nil {
			id := customer.RemoteID
			rv.CustomerRemoteID = &id
		}

		match := matchReview(rv, idx, customer, e.cfg.MatchLookback)
		if match == nil {
			rv.MatchStatus = domain.MatchStatusUnmatched
			if rv.ReviewerEmail != "" {
				e.logger.Info("review unmatched despite known reviewer email",
					zap.String("tenant_id", r.tenantID.String()),
					zap.Int64("review_remote_id", rv.RemoteID),
					zap.Int64("product_remote_id", rv.ProductRemoteID),
				)
			}
			continue
		}
		orderID := match.OrderRemoteID
		rv.OrderRemoteID = &orderID
		rv.MatchStatus = domain.MatchStatusMatched
		e.logger.Debug("review matched",
			zap.Int64("review_remote_id", rv.RemoteID),
			zap.Int64("order_remote_id", orderID),
			zap.Int("score", match.Score),
		)
	}
	return nil
}

// Reconcile deletes reviews whose remote counterpart no longer exists
func (r *reviewRun) Reconcile(ctx context.Context, seen map[int64]struct{}) (int64, error) {
	e := r.engine
	local, err := e.reviews.AllRemoteIDs(ctx, r.tenantID)
	if err != nil {
		return 0, err
	}
	orphans := orphanedIDs(local, seen)
	if len(orphans) == 0 {
		return 0, nil
	}
	return e.reviews.DeleteByRemoteIDs(ctx, r.tenantID, orphans)
}

// Finalize is a no-op for reviews
func (r *reviewRun) Finalize(ctx context.Context) error {
	return nil
}

// reviewFromRecord converts a validated wire record into the local projection
func reviewFromRecord(tenantID uuid.UUID, rec *domain.ReviewRecord) *domain.Review {
	return &domain.Review{
		TenantID:        tenantID,
		RemoteID:        rec.ID,
		ProductRemoteID: rec.ProductID,
		Rating:          rec.Rating,
		Content:         rec.Review,
		Status:          rec.Status,
		ReviewerName:    rec.ReviewerName,
		ReviewerEmail:   rec.ReviewerEmail,
		MatchStatus:     domain.MatchStatusUnmatched,
		RawPayload:      rec.Raw,
		RemoteCreatedAt: domain.ParseRemoteTime(rec.DateCreated),
	}
}
