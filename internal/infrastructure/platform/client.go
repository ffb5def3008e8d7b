// Package platform implements the remote commerce API client consumed by the
// sync engines. HTTP failures are classified into the domain's platform error
// taxonomy so callers can distinguish retryable from fatal conditions.
package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	domain "github.com/storebridge/backend/internal/domain/sync"
	"github.com/storebridge/backend/internal/infrastructure/config"
)

// totalPagesHeader is the response header carrying the collection's total
// page count. Loop termination and progress reporting depend on it.
const totalPagesHeader = "X-WP-TotalPages"

// Client implements domain.PlatformClient against the store's REST API.
// Store credentials are held per tenant; requests for a tenant without a
// configured store fail with ErrPlatformNotConfigured.
type Client struct {
	httpClient       *http.Client
	maxResponseBytes int64
	logger           *zap.Logger

	mu      sync.RWMutex
	configs map[uuid.UUID]*StoreConfig
}

// NewClient creates a platform client
func NewClient(cfg config.PlatformConfig, logger *zap.Logger) *Client {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	maxBytes := cfg.MaxResponseBytes
	if maxBytes <= 0 {
		maxBytes = 10 << 20
	}
	return &Client{
		httpClient:       &http.Client{Timeout: timeout},
		maxResponseBytes: maxBytes,
		logger:           logger,
		configs:          make(map[uuid.UUID]*StoreConfig),
	}
}

// SetStoreConfig registers or replaces a tenant's store credentials
func (c *Client) SetStoreConfig(tenantID uuid.UUID, cfg *StoreConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs[tenantID] = cfg
	return nil
}

// ActiveTenantIDs lists the tenants with registered store credentials.
// Feeds the scheduled sync trigger.
func (c *Client) ActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uuid.UUID, 0, len(c.configs))
	for id := range c.configs {
		ids = append(ids, id)
	}
	return ids, nil
}

// storeConfig retrieves the tenant's store credentials
func (c *Client) storeConfig(tenantID uuid.UUID) (*StoreConfig, error) {
	c.mu.RLock()
	cfg, ok := c.configs[tenantID]
	c.mu.RUnlock()
	if !ok {
		return nil, domain.ErrPlatformNotConfigured
	}
	return cfg, nil
}

// collectionPath maps an entity type to its REST collection
func collectionPath(entityType domain.EntityType) string {
	switch entityType {
	case domain.EntityTypeOrders:
		return "/orders"
	case domain.EntityTypeReviews:
		return "/products/reviews"
	default:
		return "/products"
	}
}

// FetchPage fetches one page of the given entity collection
func (c *Client) FetchPage(ctx context.Context, tenantID uuid.UUID, entityType domain.EntityType, req domain.PageRequest) (*domain.RawPage, error) {
	return c.fetchCollection(ctx, tenantID, collectionPath(entityType), req)
}

// FetchVariationsPage fetches one page of a variable product's variations
func (c *Client) FetchVariationsPage(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, req domain.PageRequest) (*domain.RawPage, error) {
	path := fmt.Sprintf("/products/%d/variations", productRemoteID)
	return c.fetchCollection(ctx, tenantID, path, req)
}

// PushProductStock writes a product's stock quantity back to the store
func (c *Client) PushProductStock(ctx context.Context, tenantID uuid.UUID, productRemoteID int64, quantity int) error {
	if productRemoteID <= 0 {
		return fmt.Errorf("%w: product id %d", domain.ErrPlatformInvalidID, productRemoteID)
	}
	path := fmt.Sprintf("/products/%d", productRemoteID)
	return c.pushStock(ctx, tenantID, path, quantity)
}

// PushVariationStock writes a variation's stock quantity back to the store
func (c *Client) PushVariationStock(ctx context.Context, tenantID uuid.UUID, productRemoteID, variationRemoteID int64, quantity int) error {
	if productRemoteID <= 0 || variationRemoteID <= 0 {
		return fmt.Errorf("%w: variation %d/%d", domain.ErrPlatformInvalidID, productRemoteID, variationRemoteID)
	}
	path := fmt.Sprintf("/products/%d/variations/%d", productRemoteID, variationRemoteID)
	return c.pushStock(ctx, tenantID, path, quantity)
}

// fetchCollection performs one paginated GET and decodes the record array
func (c *Client) fetchCollection(ctx context.Context, tenantID uuid.UUID, path string, req domain.PageRequest) (*domain.RawPage, error) {
	cfg, err := c.storeConfig(tenantID)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("page", strconv.Itoa(req.Page))
	query.Set("per_page", strconv.Itoa(req.PerPage))
	query.Set("orderby", "id")
	query.Set("order", "asc")
	if req.ModifiedAfter != nil {
		query.Set("modified_after", req.ModifiedAfter.UTC().Format("2006-01-02T15:04:05"))
	}

	body, header, err := c.doRequest(ctx, cfg, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}

	var records []json.RawMessage
	if err := json.Unmarshal(body, &records); err != nil {
		return nil, fmt.Errorf("%w: decode collection: %v", domain.ErrPlatformInvalidResponse, err)
	}

	totalPages, err := strconv.Atoi(header.Get(totalPagesHeader))
	if err != nil || totalPages < 0 {
		return nil, fmt.Errorf("%w: missing %s header", domain.ErrPlatformInvalidResponse, totalPagesHeader)
	}

	return &domain.RawPage{Records: records, TotalPages: totalPages}, nil
}

// pushStock PUTs a stock quantity update
func (c *Client) pushStock(ctx context.Context, tenantID uuid.UUID, path string, quantity int) error {
	cfg, err := c.storeConfig(tenantID)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(map[string]int{"stock_quantity": quantity})
	if err != nil {
		return fmt.Errorf("encode stock payload: %w", err)
	}

	_, _, err = c.doRequest(ctx, cfg, http.MethodPut, path, nil, payload)
	return err
}

// doRequest performs one authenticated request against the store API and
// classifies failures. Response bodies are capped to bound memory on
// misbehaving stores.
func (c *Client) doRequest(ctx context.Context, cfg *StoreConfig, method, path string, query url.Values, body []byte) ([]byte, http.Header, error) {
	endpoint := cfg.BaseURL + cfg.BasePath + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(cfg.ConsumerKey, cfg.ConsumerSecret)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrPlatformUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: read response: %v", domain.ErrPlatformUnavailable, err)
	}

	if err := classifyStatus(resp.StatusCode); err != nil {
		c.logger.Debug("platform request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
		)
		return nil, nil, fmt.Errorf("%w: %s %s returned %d", err, method, path, resp.StatusCode)
	}
	return respBody, resp.Header, nil
}

// classifyStatus maps an HTTP status to the platform error taxonomy
func classifyStatus(status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return domain.ErrPlatformAuthFailed
	case status == http.StatusNotFound:
		return domain.ErrPlatformNotFound
	case status == http.StatusTooManyRequests:
		return domain.ErrPlatformRateLimited
	case status >= 500:
		return domain.ErrPlatformUnavailable
	default:
		return domain.ErrPlatformInvalidResponse
	}
}

var _ domain.PlatformClient = (*Client)(nil)
