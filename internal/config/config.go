package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/localmind/indexd/internal/types"
	env "github.com/netflix/go-env"
)

// Type alias for Config
type Config = types.Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	var config Config

	_, err := env.UnmarshalFromEnviron(&config)
	if err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	// Parse SupportedExts from pipe-separated string
	if config.SupportedExtsStr != "" {
		exts := strings.Split(config.SupportedExtsStr, "|")
		config.SupportedExts = make([]string, 0, len(exts))
		for _, ext := range exts {
			trimmed := strings.ToLower(strings.TrimSpace(ext))
			if trimmed == "" {
				continue
			}
			if !strings.HasPrefix(trimmed, ".") {
				trimmed = "." + trimmed
			}
			config.SupportedExts = append(config.SupportedExts, trimmed)
		}
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

// validateConfig validates configuration values and adjusts them to safe ranges
func validateConfig(config *Config) error {
	if strings.TrimSpace(config.WatchedRoot) == "" {
		return fmt.Errorf("INDEXD_WATCHED_ROOT cannot be empty")
	}

	if strings.TrimSpace(config.StatusFilePath) == "" {
		return fmt.Errorf("INDEXD_STATUS_FILE cannot be empty")
	}

	// Validate concurrency limits
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if config.Concurrency > 20 {
		config.Concurrency = 20
	}

	// Validate scan interval
	if config.ScanIntervalMinutes < 1 {
		config.ScanIntervalMinutes = 1
	}

	if config.IngestTimeout <= 0 {
		return fmt.Errorf("INDEXD_INGEST_TIMEOUT must be positive")
	}

	if len(config.SupportedExts) == 0 {
		return fmt.Errorf("INDEXD_EXTENSIONS must include at least one extension")
	}

	// Validate OpenSearch configuration if endpoint is provided
	if config.OpenSearchEndpoint != "" {
		if err := validateOpenSearchConfig(config); err != nil {
			return fmt.Errorf("OpenSearch configuration validation failed: %w", err)
		}
	}

	return nil
}

// validateOpenSearchConfig validates OpenSearch-specific configuration
func validateOpenSearchConfig(config *Config) error {
	parsedURL, err := url.Parse(config.OpenSearchEndpoint)
	if err != nil {
		return fmt.Errorf("invalid OPENSEARCH_ENDPOINT URL format: %w", err)
	}

	if parsedURL.Scheme == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include scheme (http:// or https://)")
	}

	if !strings.HasPrefix(parsedURL.Scheme, "http") {
		return fmt.Errorf("OPENSEARCH_ENDPOINT scheme must be http or https")
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("OPENSEARCH_ENDPOINT must include a valid host")
	}

	if config.OpenSearchIndex == "" {
		return fmt.Errorf("OPENSEARCH_INDEX is required when OpenSearch is enabled")
	}

	if config.OpenSearchRegion == "" {
		return fmt.Errorf("OPENSEARCH_REGION is required when OpenSearch is enabled")
	}

	if config.OpenSearchRateLimit <= 0 {
		config.OpenSearchRateLimit = 10.0
	}
	if config.OpenSearchRateBurst <= 0 {
		config.OpenSearchRateBurst = 20
	}

	return nil
}
