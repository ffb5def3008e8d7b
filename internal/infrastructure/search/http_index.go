// Package search provides the external search index sink. Index writes are
// best-effort from the engines' point of view; a failed write is logged and
// never fails a sync.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/config"
)

// HTTPSearchIndex pushes documents to an external search service over its
// JSON document API.
type HTTPSearchIndex struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	logger     *zap.Logger
}

// NewHTTPSearchIndex creates an index client from configuration
func NewHTTPSearchIndex(cfg config.SearchConfig, logger *zap.Logger) *HTTPSearchIndex {
	return &HTTPSearchIndex{
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		logger:     logger,
	}
}

// indexDocument is the wire shape of one index write
type indexDocument struct {
	TenantID   string `json:"tenant_id"`
	EntityType string `json:"entity_type"`
	RemoteID   int64  `json:"remote_id"`
	Document   any    `json:"document"`
}

// Upsert indexes or reindexes one record
func (s *HTTPSearchIndex) Upsert(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteID int64, doc any) error {
	payload := indexDocument{
		TenantID:   tenantID.String(),
		EntityType: entityType.String(),
		RemoteID:   remoteID,
		Document:   doc,
	}
	return s.post(ctx, "/documents", payload)
}

// DeleteBatch removes index entries for reconciled-away records
func (s *HTTPSearchIndex) DeleteBatch(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, remoteIDs []int64) error {
	if len(remoteIDs) == 0 {
		return nil
	}
	payload := struct {
		TenantID   string  `json:"tenant_id"`
		EntityType string  `json:"entity_type"`
		RemoteIDs  []int64 `json:"remote_ids"`
	}{
		TenantID:   tenantID.String(),
		EntityType: entityType.String(),
		RemoteIDs:  remoteIDs,
	}
	return s.post(ctx, "/documents/delete", payload)
}

func (s *HTTPSearchIndex) post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("search: encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("search: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("search: request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 400 {
		return fmt.Errorf("search: index service returned status %d", resp.StatusCode)
	}
	return nil
}

var _ domain.SearchIndex = (*HTTPSearchIndex)(nil)
