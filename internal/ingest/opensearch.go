// Package ingest pushes file content into the downstream OpenSearch index
// and removes documents for files deleted from the watched store.
package ingest

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/google/uuid"
	opensearch "github.com/opensearch-project/opensearch-go/v4"
	"github.com/opensearch-project/opensearch-go/v4/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v4/signer/awsv2"
	"golang.org/x/time/rate"
)

// EmbeddingClient produces an embedding vector for document content.
// It is optional; without one, documents are indexed text-only.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float64, error)
}

// Config holds OpenSearch connection settings.
type Config struct {
	Endpoint          string
	Index             string
	Region            string
	InsecureSkipTLS   bool
	RateLimit         float64
	RateBurst         int
	ConnectionTimeout time.Duration
	RequestTimeout    time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
}

// Indexer implements document ingestion against an OpenSearch index.
type Indexer struct {
	client    *opensearchapi.Client
	limiter   *rate.Limiter
	embedder  EmbeddingClient
	index     string
	maxRetry  int
	retryWait time.Duration
}

// document is the indexed representation of a watched file.
type document struct {
	RelativePath string    `json:"relative_path"`
	Filename     string    `json:"filename"`
	Extension    string    `json:"extension"`
	Content      string    `json:"content"`
	IndexedAt    time.Time `json:"indexed_at"`
	Embedding    []float64 `json:"embedding,omitempty"`
}

// NewIndexer creates an Indexer using SigV4 request signing. embedder may be
// nil to disable embedding generation.
func NewIndexer(ctx context.Context, cfg Config, embedder EmbeddingClient) (*Indexer, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("OpenSearch endpoint is required")
	}
	if cfg.Index == "" {
		return nil, fmt.Errorf("OpenSearch index name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 10
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = 5
	}
	if cfg.ConnectionTimeout == 0 {
		cfg.ConnectionTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = 1 * time.Second
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	signer, err := requestsigner.NewSignerWithService(awsCfg, "es")
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS signer: %w", err)
	}

	transport := &http.Transport{
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipTLS,
		},
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   5,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: cfg.RequestTimeout,
	}

	osClient, err := opensearchapi.NewClient(opensearchapi.Config{
		Client: opensearch.Config{
			Addresses: []string{cfg.Endpoint},
			Signer:    signer,
			Transport: transport,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create OpenSearch client: %w", err)
	}

	return &Indexer{
		client:    osClient,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		embedder:  embedder,
		index:     cfg.Index,
		maxRetry:  cfg.MaxRetries,
		retryWait: cfg.RetryDelay,
	}, nil
}

// DocumentID returns the deterministic document ID for a relative path.
// The same path always maps to the same ID, so re-indexing overwrites the
// previous document instead of duplicating it.
func DocumentID(relativePath string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(relativePath)).String()
}

// Ingest indexes the content of one file under its deterministic document ID.
func (x *Indexer) Ingest(ctx context.Context, relativePath string, content string) error {
	doc := document{
		RelativePath: relativePath,
		Filename:     baseName(relativePath),
		Extension:    extensionOf(relativePath),
		Content:      content,
		IndexedAt:    time.Now().UTC(),
	}

	if x.embedder != nil {
		embedding, err := x.embedder.GenerateEmbedding(ctx, doc.Content)
		if err != nil {
			return fmt.Errorf("embedding generation failed for %s: %w", relativePath, err)
		}
		doc.Embedding = embedding
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document for %s: %w", relativePath, err)
	}

	return x.withRetry(ctx, func() error {
		req := opensearchapi.IndexReq{
			Index:      x.index,
			DocumentID: DocumentID(relativePath),
			Body:       strings.NewReader(string(body)),
		}
		_, err := x.client.Index(ctx, req)
		return err
	})
}

// Remove deletes the document for a file. A missing document is treated as
// success so removals stay idempotent across retried cycles.
func (x *Indexer) Remove(ctx context.Context, relativePath string) error {
	err := x.withRetry(ctx, func() error {
		_, err := x.client.Document.Delete(ctx, opensearchapi.DocumentDeleteReq{
			Index:      x.index,
			DocumentID: DocumentID(relativePath),
		})
		if err != nil && isNotFound(err) {
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to delete document for %s: %w", relativePath, err)
	}
	return nil
}

// ValidateConnection checks cluster health to confirm the endpoint is usable.
func (x *Indexer) ValidateConnection(ctx context.Context) error {
	if err := x.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait failed: %w", err)
	}

	resp, err := x.client.Cluster.Health(ctx, &opensearchapi.ClusterHealthReq{})
	if err != nil {
		return fmt.Errorf("OpenSearch health check failed: %w", err)
	}
	if resp.Status == "red" {
		return fmt.Errorf("OpenSearch cluster status is red")
	}
	return nil
}

// withRetry runs op under the rate limiter with exponential backoff on
// retryable failures.
func (x *Indexer) withRetry(ctx context.Context, op func() error) error {
	var lastErr error
	for attempt := 0; attempt < x.maxRetry; attempt++ {
		if err := x.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait failed: %w", err)
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isRetryable(lastErr) {
			return lastErr
		}

		delay := x.retryWait * time.Duration(1<<attempt)
		log.Printf("WARNING: OpenSearch request failed (attempt %d/%d), retrying in %v: %v",
			attempt+1, x.maxRetry, delay, lastErr)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("request failed after %d attempts: %w", x.maxRetry, lastErr)
}

func isNotFound(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "not_found") || strings.Contains(msg, "404")
}

func isRetryable(err error) bool {
	msg := err.Error()
	for _, marker := range []string{"timeout", "connection reset", "connection refused", "429", "503"} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func baseName(relativePath string) string {
	if idx := strings.LastIndex(relativePath, "/"); idx >= 0 {
		return relativePath[idx+1:]
	}
	return relativePath
}

func extensionOf(relativePath string) string {
	name := baseName(relativePath)
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return strings.ToLower(name[idx:])
	}
	return ""
}
