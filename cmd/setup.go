package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	appconfig "github.com/localmind/indexd/internal/config"
	"github.com/localmind/indexd/internal/discovery"
	"github.com/localmind/indexd/internal/embedding/bedrock"
	"github.com/localmind/indexd/internal/ingest"
	"github.com/localmind/indexd/internal/statustore"
	"github.com/localmind/indexd/internal/types"
	"github.com/localmind/indexd/internal/workflow"
)

// loadConfig reads .env (when present) and resolves the environment
// configuration.
func loadConfig() (*types.Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}

	cfg, err := appconfig.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// openDiscovery builds the status tracker and discovery service. A status
// table that cannot be read due to an I/O error aborts startup; corruption
// is recovered inside the tracker.
func openDiscovery(cfg *types.Config) (*statustore.Tracker, *discovery.Service, *discovery.Scanner, error) {
	scanner := discovery.NewScanner(cfg.WatchedRoot, cfg.SupportedExts)
	if err := scanner.ValidateRoot(); err != nil {
		return nil, nil, nil, fmt.Errorf("watched root is not usable: %w", err)
	}

	tracker, err := statustore.NewTracker(cfg.StatusFilePath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open status table: %w", err)
	}

	return tracker, discovery.NewService(tracker, scanner), scanner, nil
}

// buildIngestor creates the OpenSearch ingestor, with a Bedrock embedding
// client attached when embedding is enabled.
func buildIngestor(ctx context.Context, cfg *types.Config) (workflow.Ingestor, error) {
	var embedder ingest.EmbeddingClient
	if cfg.EmbeddingEnabled {
		client, err := bedrock.SharedClient(ctx, cfg.EmbeddingModelID, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create embedding client: %w", err)
		}
		embedder = client
	}

	indexer, err := ingest.NewIndexer(ctx, ingest.Config{
		Endpoint:          cfg.OpenSearchEndpoint,
		Index:             cfg.OpenSearchIndex,
		Region:            cfg.OpenSearchRegion,
		InsecureSkipTLS:   cfg.OpenSearchInsecureSkipTLS,
		RateLimit:         cfg.OpenSearchRateLimit,
		RateBurst:         cfg.OpenSearchRateBurst,
		ConnectionTimeout: cfg.OpenSearchConnectionTimeout,
		RequestTimeout:    cfg.OpenSearchRequestTimeout,
	}, embedder)
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch ingestor: %w", err)
	}
	return indexer, nil
}
