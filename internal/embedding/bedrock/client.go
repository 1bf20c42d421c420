// Package bedrock provides an embedding client backed by Amazon Bedrock
// Titan text embedding models.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// titanEmbeddingRequest is the request payload for Titan embedding models.
type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

// titanEmbeddingResponse is the response payload from Titan embedding models.
type titanEmbeddingResponse struct {
	Embedding           []float64 `json:"embedding"`
	InputTextTokenCount int       `json:"inputTextTokenCount"`
}

// Client generates text embeddings via the Bedrock runtime API.
type Client struct {
	runtime *bedrockruntime.Client
	modelID string
	region  string
}

// NewClient creates a Bedrock embedding client for the given model and region.
func NewClient(ctx context.Context, modelID, region string) (*Client, error) {
	if modelID == "" {
		return nil, fmt.Errorf("embedding model ID is required")
	}
	if region == "" {
		return nil, fmt.Errorf("AWS region is required")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &Client{
		runtime: bedrockruntime.NewFromConfig(awsCfg),
		modelID: modelID,
		region:  region,
	}, nil
}

// GenerateEmbedding returns the embedding vector for the given text.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float64, error) {
	if text == "" {
		return nil, fmt.Errorf("input text is empty")
	}

	body, err := json.Marshal(titanEmbeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	output, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("bedrock invoke failed for model %s: %w", c.modelID, err)
	}

	var resp titanEmbeddingResponse
	if err := json.Unmarshal(output.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal embedding response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned by model %s", c.modelID)
	}

	return resp.Embedding, nil
}

// ValidateConnection verifies the client can reach Bedrock by generating a
// small test embedding.
func (c *Client) ValidateConnection(ctx context.Context) error {
	if _, err := c.GenerateEmbedding(ctx, "connection test"); err != nil {
		return fmt.Errorf("bedrock connection validation failed: %w", err)
	}
	return nil
}

// Dimensions returns the output vector dimension for the configured model,
// or 0 when the model is unknown.
func (c *Client) Dimensions() int {
	dims := map[string]int{
		"amazon.titan-embed-text-v2:0": 1024,
		"amazon.titan-embed-text-v1":   1536,
	}
	return dims[c.modelID]
}

// ModelID returns the configured model identifier.
func (c *Client) ModelID() string {
	return c.modelID
}

var (
	poolMu sync.Mutex
	pool   = make(map[string]*Client)
)

// SharedClient returns a process-wide client for the model/region pair,
// creating it on first use. Repeated callers share AWS connections.
func SharedClient(ctx context.Context, modelID, region string) (*Client, error) {
	key := modelID + "|" + region

	poolMu.Lock()
	defer poolMu.Unlock()

	if c, ok := pool[key]; ok {
		return c, nil
	}

	c, err := NewClient(ctx, modelID, region)
	if err != nil {
		return nil, err
	}
	pool[key] = c
	log.Printf("Created Bedrock embedding client for model %s in %s", modelID, region)
	return c, nil
}
