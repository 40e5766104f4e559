package extraction

import (
	"errors"
	"time"
)

// ProviderConfig holds connection settings for the document extraction provider
type ProviderConfig struct {
	// Endpoint is the provider's extraction URL
	Endpoint string
	// APIKey authenticates requests to the provider
	APIKey string
	// Timeout bounds one extraction call end to end
	Timeout time.Duration
}

// Validate checks the configuration for required fields
func (c *ProviderConfig) Validate() error {
	if c.Endpoint == "" {
		return errors.New("extraction: endpoint is required")
	}
	if c.Timeout <= 0 {
		return errors.New("extraction: timeout must be positive")
	}
	return nil
}
