package platform

import "errors"

// StoreConfig holds per-tenant credentials for the remote commerce store
type StoreConfig struct {
	// BaseURL is the store's root URL, e.g. https://shop.example.com
	BaseURL string
	// BasePath is the REST API mount point
	BasePath string
	// ConsumerKey and ConsumerSecret are the store's REST API credentials
	ConsumerKey    string
	ConsumerSecret string
}

const defaultBasePath = "/wp-json/wc/v3"

// Errors for store configuration
var (
	ErrConfigMissingBaseURL = errors.New("platform: base URL is required")
	ErrConfigMissingKey     = errors.New("platform: consumer key is required")
	ErrConfigMissingSecret  = errors.New("platform: consumer secret is required")
)

// Validate validates the store configuration and fills defaults
func (c *StoreConfig) Validate() error {
	if c.BaseURL == "" {
		return ErrConfigMissingBaseURL
	}
	if c.ConsumerKey == "" {
		return ErrConfigMissingKey
	}
	if c.ConsumerSecret == "" {
		return ErrConfigMissingSecret
	}
	if c.BasePath == "" {
		c.BasePath = defaultBasePath
	}
	return nil
}
