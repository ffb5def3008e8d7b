package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
)

type reviewEngineFixture struct {
	engine    *ReviewEngine
	reviews   *memReviewRepo
	orders    *memOrderRepo
	customers *memCustomerRepo
}

func newReviewEngineFixture(t *testing.T) *reviewEngineFixture {
	t.Helper()
	reviews := newMemReviewRepo()
	orders := newMemOrderRepo()
	customers := newMemCustomerRepo()

	engine := NewReviewEngine(reviews, orders, customers, stubValidator{},
		DefaultEngineConfig(), zap.NewNop())
	return &reviewEngineFixture{
		engine:    engine,
		reviews:   reviews,
		orders:    orders,
		customers: customers,
	}
}

func reviewJSON(id, productID int64, email string, created time.Time) json.RawMessage {
	return json.RawMessage(fmt.Sprintf(
		`{"id":%d,"product_id":%d,"rating":5,"review":"Great","status":"approved",`+
			`"reviewer":"Jane Doe","reviewer_email":%q,"date_created":%q}`,
		id, productID, email, created.Format("2006-01-02T15:04:05")))
}

func TestReviewRun_ProcessPage_MatchesByCustomerAccount(t *testing.T) {
	f := newReviewEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)
	reviewAt := time.Now().UTC().Truncate(time.Second)

	orderCandidate := candidate(300, reviewAt.Add(-72*time.Hour), 55)
	orderCandidate.CustomerRemoteID = int64Ptr(7)
	f.orders.candidates = []domain.OrderMatchCandidate{orderCandidate}
	f.customers.byEmail["jane@example.com"] = &domain.Customer{
		TenantID: tenantID,
		RemoteID: 7,
		Email:    "jane@example.com",
	}

	out, err := run.ProcessPage(context.Background(), []json.RawMessage{
		reviewJSON(1, 55, "Jane+news@Example.com", reviewAt),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)

	stored := f.reviews.reviews[1]
	require.NotNil(t, stored)
	assert.Equal(t, domain.MatchStatusMatched, stored.MatchStatus)
	require.NotNil(t, stored.OrderRemoteID)
	assert.Equal(t, int64(300), *stored.OrderRemoteID)
	require.NotNil(t, stored.CustomerRemoteID)
	assert.Equal(t, int64(7), *stored.CustomerRemoteID)
}

func TestReviewRun_ProcessPage_GuestMatchesByBillingEmail(t *testing.T) {
	f := newReviewEngineFixture(t)
	run := f.engine.NewRun(uuid.New())
	reviewAt := time.Now().UTC().Truncate(time.Second)

	orderCandidate := candidate(301, reviewAt.Add(-72*time.Hour), 55)
	orderCandidate.BillingEmail = "bob@example.com"
	f.orders.candidates = []domain.OrderMatchCandidate{orderCandidate}

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{
		reviewJSON(2, 55, "bob@example.com", reviewAt),
	})
	require.NoError(t, err)

	stored := f.reviews.reviews[2]
	require.NotNil(t, stored)
	assert.Equal(t, domain.MatchStatusMatched, stored.MatchStatus)
	require.NotNil(t, stored.OrderRemoteID)
	assert.Equal(t, int64(301), *stored.OrderRemoteID)
	// No local account for the reviewer
	assert.Nil(t, stored.CustomerRemoteID)
}

func TestReviewRun_ProcessPage_NoCandidateStaysUnmatched(t *testing.T) {
	f := newReviewEngineFixture(t)
	run := f.engine.NewRun(uuid.New())
	reviewAt := time.Now().UTC().Truncate(time.Second)

	_, err := run.ProcessPage(context.Background(), []json.RawMessage{
		reviewJSON(3, 55, "nobody@example.com", reviewAt),
	})
	require.NoError(t, err)

	stored := f.reviews.reviews[3]
	require.NotNil(t, stored)
	assert.Equal(t, domain.MatchStatusUnmatched, stored.MatchStatus)
	assert.Nil(t, stored.OrderRemoteID)
}

func TestReviewRun_ProcessPage_InvalidRecordSkippedButObserved(t *testing.T) {
	f := newReviewEngineFixture(t)
	run := f.engine.NewRun(uuid.New())
	reviewAt := time.Now().UTC().Truncate(time.Second)

	out, err := run.ProcessPage(context.Background(), []json.RawMessage{
		json.RawMessage(`{"id":4,"rating":5}`), // no product_id
		reviewJSON(5, 55, "", reviewAt),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Processed)
	assert.Equal(t, 1, out.Skipped)
	assert.Equal(t, []int64{4, 5}, out.SeenIDs)
	assert.NotContains(t, f.reviews.reviews, int64(4))
}

func TestReviewRun_Reconcile_DeletesOrphans(t *testing.T) {
	f := newReviewEngineFixture(t)
	tenantID := uuid.New()
	run := f.engine.NewRun(tenantID)

	for _, id := range []int64{1, 2} {
		f.reviews.reviews[id] = &domain.Review{TenantID: tenantID, RemoteID: id}
	}

	deleted, err := run.Reconcile(context.Background(), map[int64]struct{}{1: {}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.NotContains(t, f.reviews.reviews, int64(2))
}

func TestReviewFromRecord(t *testing.T) {
	tenantID := uuid.New()
	rec := &domain.ReviewRecord{
		ID:            9,
		ProductID:     55,
		Rating:        4,
		Review:        "Solid",
		Status:        "approved",
		ReviewerName:  "Jane Doe",
		ReviewerEmail: "jane@example.com",
		DateCreated:   "2026-05-01T10:00:00",
		Raw:           json.RawMessage(`{"id":9}`),
	}

	rv := reviewFromRecord(tenantID, rec)
	assert.Equal(t, tenantID, rv.TenantID)
	assert.Equal(t, int64(9), rv.RemoteID)
	assert.Equal(t, int64(55), rv.ProductRemoteID)
	assert.Equal(t, 4, rv.Rating)
	assert.Equal(t, domain.MatchStatusUnmatched, rv.MatchStatus)
	assert.Equal(t, time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC), rv.RemoteCreatedAt)
}
