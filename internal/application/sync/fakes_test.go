package sync

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/storebridge/backend/internal/domain/shared"
	domain "github.com/storebridge/backend/internal/domain/sync"
)

// ---------------------------------------------------------------------------
// Validator
// ---------------------------------------------------------------------------

// stubValidator decodes records with plain JSON unmarshalling and flags only
// the structural failures the tests exercise.
type stubValidator struct{}

func (stubValidator) ValidateOrder(raw json.RawMessage) (*domain.OrderRecord, []domain.ValidationIssue) {
	var rec domain.OrderRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, []domain.ValidationIssue{{Field: "", Message: err.Error()}}
	}
	rec.Raw = raw
	if rec.Status == "" {
		return &rec, []domain.ValidationIssue{{Field: "status", Message: "This field is required"}}
	}
	return &rec, nil
}

func (stubValidator) ValidateProduct(raw json.RawMessage) (*domain.ProductRecord, []domain.ValidationIssue) {
	var rec domain.ProductRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, []domain.ValidationIssue{{Field: "", Message: err.Error()}}
	}
	rec.Raw = raw
	if rec.Name == "" {
		return &rec, []domain.ValidationIssue{{Field: "name", Message: "This field is required"}}
	}
	return &rec, nil
}

func (stubValidator) ValidateVariation(raw json.RawMessage) (*domain.VariationRecord, []domain.ValidationIssue) {
	var rec domain.VariationRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, []domain.ValidationIssue{{Field: "", Message: err.Error()}}
	}
	rec.Raw = raw
	if rec.ID <= 0 {
		return &rec, []domain.ValidationIssue{{Field: "id", Message: "This field is required"}}
	}
	return &rec, nil
}

func (stubValidator) ValidateReview(raw json.RawMessage) (*domain.ReviewRecord, []domain.ValidationIssue) {
	var rec domain.ReviewRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, []domain.ValidationIssue{{Field: "", Message: err.Error()}}
	}
	rec.Raw = raw
	if rec.ProductID <= 0 {
		return &rec, []domain.ValidationIssue{{Field: "product_id", Message: "This field is required"}}
	}
	return &rec, nil
}

// ---------------------------------------------------------------------------
// Platform
// ---------------------------------------------------------------------------

type memPlatform struct {
	mu sync.Mutex

	// pages holds the entity collection, one slice per page (1-based)
	pages [][]json.RawMessage
	// variationPages maps product remote ID to its variation pages
	variationPages map[int64][][]json.RawMessage

	fetchErr    error
	fetchCalls  []domain.PageRequest
	pushedStock map[string]int
	pushErr     error
}

func newMemPlatform() *memPlatform {
	return &memPlatform{
		variationPages: make(map[int64][][]json.RawMessage),
		pushedStock:    make(map[string]int),
	}
}

func (p *memPlatform) FetchPage(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, req domain.PageRequest) (*domain.RawPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	p.fetchCalls = append(p.fetchCalls, req)

	total := len(p.pages)
	if total == 0 {
		return &domain.RawPage{TotalPages: 1}, nil
	}
	if req.Page > total {
		return &domain.RawPage{TotalPages: total}, nil
	}
	return &domain.RawPage{Records: p.pages[req.Page-1], TotalPages: total}, nil
}

func (p *memPlatform) FetchVariationsPage(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, req domain.PageRequest) (*domain.RawPage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pages := p.variationPages[productRemoteID]
	total := len(pages)
	if total == 0 {
		return &domain.RawPage{TotalPages: 1}, nil
	}
	if req.Page > total {
		return &domain.RawPage{TotalPages: total}, nil
	}
	return &domain.RawPage{Records: pages[req.Page-1], TotalPages: total}, nil
}

func (p *memPlatform) PushProductStock(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, quantity int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushErr != nil {
		return p.pushErr
	}
	p.pushedStock[productKey(productRemoteID)] = quantity
	return nil
}

func (p *memPlatform) PushVariationStock(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64, quantity int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pushErr != nil {
		return p.pushErr
	}
	p.pushedStock[variationKey(productRemoteID, variationRemoteID)] = quantity
	return nil
}

func productKey(id int64) string {
	return "product:" + strconv.FormatInt(id, 10)
}

func variationKey(pid, vid int64) string {
	return "variation:" + strconv.FormatInt(pid, 10) + ":" + strconv.FormatInt(vid, 10)
}

// ---------------------------------------------------------------------------
// Repositories
// ---------------------------------------------------------------------------

type memCursorRepo struct {
	mu      sync.Mutex
	cursors map[string]*domain.SyncCursor
	saveErr error
}

func newMemCursorRepo() *memCursorRepo {
	return &memCursorRepo{cursors: make(map[string]*domain.SyncCursor)}
}

func cursorKey(tenantID uuid.UUID, entityType domain.EntityType) string {
	return tenantID.String() + ":" + entityType.String()
}

func (r *memCursorRepo) Get(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType) (*domain.SyncCursor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursors[cursorKey(tenantID, entityType)], nil
}

func (r *memCursorRepo) Save(ctx context.Context, cursor *domain.SyncCursor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.cursors[cursorKey(cursor.TenantID, cursor.EntityType)] = cursor
	return nil
}

type memOrderRepo struct {
	mu     sync.Mutex
	orders map[int64]*domain.Order

	candidates []domain.OrderMatchCandidate
	guests     []domain.GuestOrder

	upsertErr     error
	linkedCalls   []linkCall
	deletedIDs    []int64
	upsertBatches int
}

type linkCall struct {
	customerRemoteID int64
	orderRemoteIDs   []int64
}

func newMemOrderRepo() *memOrderRepo {
	return &memOrderRepo{orders: make(map[int64]*domain.Order)}
}

func (r *memOrderRepo) FindStatuses(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (map[int64]domain.OrderStatus, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[int64]domain.OrderStatus)
	for _, id := range remoteIDs {
		if o, ok := r.orders[id]; ok {
			out[id] = o.Status
		}
	}
	return out, nil
}

func (r *memOrderRepo) FindByRemoteID(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*domain.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[remoteID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return o, nil
}

func (r *memOrderRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, orders []*domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.upsertErr != nil {
		return r.upsertErr
	}
	r.upsertBatches++
	for _, o := range orders {
		r.orders[o.RemoteID] = o
	}
	return nil
}

func (r *memOrderRepo) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.orders))
	for id := range r.orders {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memOrderRepo) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range remoteIDs {
		if _, ok := r.orders[id]; ok {
			delete(r.orders, id)
			deleted++
		}
	}
	r.deletedIDs = append(r.deletedIDs, remoteIDs...)
	return deleted, nil
}

func (r *memOrderRepo) FindMatchCandidates(ctx context.Context, tenantID uuid.UUID, from, to time.Time) ([]domain.OrderMatchCandidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.candidates, nil
}

func (r *memOrderRepo) FindGuestOrders(ctx context.Context, tenantID uuid.UUID) ([]domain.GuestOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.guests, nil
}

func (r *memOrderRepo) LinkCustomer(ctx context.Context, tenantID uuid.UUID, customerRemoteID int64, orderRemoteIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.linkedCalls = append(r.linkedCalls, linkCall{customerRemoteID, orderRemoteIDs})
	return int64(len(orderRemoteIDs)), nil
}

type memCustomerRepo struct {
	mu      sync.Mutex
	byEmail map[string]*domain.Customer

	recomputeErr   error
	recomputeCalls int
}

func newMemCustomerRepo() *memCustomerRepo {
	return &memCustomerRepo{byEmail: make(map[string]*domain.Customer)}
}

func (r *memCustomerRepo) FindByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.Customer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return c, nil
}

func (r *memCustomerRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, customers []*domain.Customer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range customers {
		r.byEmail[domain.NormalizeEmail(c.Email)] = c
	}
	return nil
}

func (r *memCustomerRepo) RecomputeOrderCounts(ctx context.Context, tenantID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recomputeCalls++
	return r.recomputeErr
}

type memProductRepo struct {
	mu       sync.Mutex
	products map[int64]*domain.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[int64]*domain.Product)}
}

func (r *memProductRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, products []*domain.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range products {
		r.products[p.RemoteID] = p
	}
	return nil
}

func (r *memProductRepo) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.products))
	for id, p := range r.products {
		if p.Internal {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memProductRepo) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range remoteIDs {
		if _, ok := r.products[id]; ok {
			delete(r.products, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memProductRepo) GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[remoteID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return p.StockQuantity, nil
}

func (r *memProductRepo) SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[remoteID]
	if !ok {
		return shared.ErrNotFound
	}
	q := quantity
	p.StockQuantity = &q
	return nil
}

type memVariationRepo struct {
	mu         sync.Mutex
	variations map[int64]*domain.ProductVariation
}

func newMemVariationRepo() *memVariationRepo {
	return &memVariationRepo{variations: make(map[int64]*domain.ProductVariation)}
}

func (r *memVariationRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, variations []*domain.ProductVariation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range variations {
		r.variations[v.RemoteID] = v
	}
	return nil
}

func (r *memVariationRepo) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.variations))
	for id := range r.variations {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memVariationRepo) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range remoteIDs {
		if _, ok := r.variations[id]; ok {
			delete(r.variations, id)
			deleted++
		}
	}
	return deleted, nil
}

func (r *memVariationRepo) GetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64) (*int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variations[remoteID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return v.StockQuantity, nil
}

func (r *memVariationRepo) SetStockQuantity(ctx context.Context, tenantID uuid.UUID, remoteID int64, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.variations[remoteID]
	if !ok {
		return shared.ErrNotFound
	}
	q := quantity
	v.StockQuantity = &q
	return nil
}

type memReviewRepo struct {
	mu      sync.Mutex
	reviews map[int64]*domain.Review
}

func newMemReviewRepo() *memReviewRepo {
	return &memReviewRepo{reviews: make(map[int64]*domain.Review)}
}

func (r *memReviewRepo) UpsertBatch(ctx context.Context, tenantID uuid.UUID, reviews []*domain.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rv := range reviews {
		r.reviews[rv.RemoteID] = rv
	}
	return nil
}

func (r *memReviewRepo) AllRemoteIDs(ctx context.Context, tenantID uuid.UUID) ([]int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]int64, 0, len(r.reviews))
	for id := range r.reviews {
		ids = append(ids, id)
	}
	return ids, nil
}

func (r *memReviewRepo) DeleteByRemoteIDs(ctx context.Context, tenantID uuid.UUID, remoteIDs []int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var deleted int64
	for _, id := range remoteIDs {
		if _, ok := r.reviews[id]; ok {
			delete(r.reviews, id)
			deleted++
		}
	}
	return deleted, nil
}

// ---------------------------------------------------------------------------
// Sinks and bus
// ---------------------------------------------------------------------------

type memSearch struct {
	mu       sync.Mutex
	upserts  map[int64]any
	deletes  []int64
	upsertFn func() error
}

func newMemSearch() *memSearch {
	return &memSearch{upserts: make(map[int64]any)}
}

func (s *memSearch) Upsert(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteID int64, doc any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertFn != nil {
		if err := s.upsertFn(); err != nil {
			return err
		}
	}
	s.upserts[remoteID] = doc
	return nil
}

func (s *memSearch) DeleteBatch(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteIDs []int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, remoteIDs...)
	return nil
}

type fixedScores struct {
	seo        int
	compliance int
}

func (s fixedScores) SEOScore(p *domain.Product) int        { return s.seo }
func (s fixedScores) ComplianceScore(p *domain.Product) int { return s.compliance }

type memEmbeddings struct {
	mu      sync.Mutex
	batches [][]*domain.Product
}

func (e *memEmbeddings) GenerateBatch(ctx context.Context, tenantID uuid.UUID, products []*domain.Product) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.batches = append(e.batches, products)
	return nil
}

type memBus struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (b *memBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, events...)
	return nil
}

func (b *memBus) byType(eventType string) []shared.DomainEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range b.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// ---------------------------------------------------------------------------
// Job handle
// ---------------------------------------------------------------------------

type memHandle struct {
	mu        sync.Mutex
	progress  []int
	cancelAt  int // cancel once this many IsActive polls have happened; 0 never
	activeSeen int
}

func (h *memHandle) UpdateProgress(ctx context.Context, percent int) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.progress = append(h.progress, percent)
	return nil
}

func (h *memHandle) IsActive(ctx context.Context) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.activeSeen++
	return h.cancelAt == 0 || h.activeSeen <= h.cancelAt
}
