package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/config"
)

func newTestIndex(t *testing.T, handler http.HandlerFunc) (*HTTPSearchIndex, *httptest.Server) {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	index := NewHTTPSearchIndex(config.SearchConfig{
		Endpoint:       server.URL,
		APIKey:         "test-key",
		RequestTimeout: 5 * time.Second,
	}, zap.NewNop())
	return index, server
}

func TestHTTPSearchIndex_Upsert(t *testing.T) {
	t.Run("posts the document with auth", func(t *testing.T) {
		tenantID := uuid.New()
		var gotPath, gotAuth string
		var gotBody map[string]any

		index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotAuth = r.Header.Get("Authorization")
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusOK)
		})

		err := index.Upsert(context.Background(), tenantID, domain.EntityTypeProducts, 55, map[string]string{"name": "Desk"})

		require.NoError(t, err)
		assert.Equal(t, "/documents", gotPath)
		assert.Equal(t, "Bearer test-key", gotAuth)
		assert.Equal(t, tenantID.String(), gotBody["tenant_id"])
		assert.Equal(t, "products", gotBody["entity_type"])
	})

	t.Run("surfaces service errors", func(t *testing.T) {
		index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		})

		err := index.Upsert(context.Background(), uuid.New(), domain.EntityTypeProducts, 55, nil)

		assert.Error(t, err)
	})
}

func TestHTTPSearchIndex_DeleteBatch(t *testing.T) {
	t.Run("empty batch skips the request", func(t *testing.T) {
		called := false
		index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
			called = true
		})

		err := index.DeleteBatch(context.Background(), uuid.New(), domain.EntityTypeProducts, nil)

		assert.NoError(t, err)
		assert.False(t, called)
	})

	t.Run("posts remote IDs to the delete endpoint", func(t *testing.T) {
		var gotPath string
		var gotBody map[string]any

		index, _ := newTestIndex(t, func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusOK)
		})

		err := index.DeleteBatch(context.Background(), uuid.New(), domain.EntityTypeProducts, []int64{55, 56})

		require.NoError(t, err)
		assert.Equal(t, "/documents/delete", gotPath)
		assert.Len(t, gotBody["remote_ids"], 2)
	})
}
