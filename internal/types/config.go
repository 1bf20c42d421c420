package types

import "time"

// Config holds all environment-driven configuration for indexd.
type Config struct {
	// Watched tree and status table
	WatchedRoot      string `json:"watched_root" env:"INDEXD_WATCHED_ROOT,default=./documents"`
	StatusFilePath   string `json:"status_file_path" env:"INDEXD_STATUS_FILE,default=index_status.csv"`
	SupportedExtsStr string `json:"-" env:"INDEXD_EXTENSIONS,default=.md|.markdown|.txt|.csv|.pdf|.docx"`
	SupportedExts    []string

	// Cycle behaviour
	ScanIntervalMinutes int           `json:"scan_interval_minutes" env:"INDEXD_SCAN_INTERVAL_MINUTES,default=5"`
	Concurrency         int           `json:"concurrency" env:"INDEXD_CONCURRENCY,default=4"`
	IngestTimeout       time.Duration `json:"ingest_timeout" env:"INDEXD_INGEST_TIMEOUT,default=120s"`

	// Cycle metrics history (sqlite)
	MetricsDBPath string `json:"metrics_db_path" env:"INDEXD_METRICS_DB,default="`

	// Ingestion backend (OpenSearch)
	OpenSearchEndpoint          string        `json:"opensearch_endpoint" env:"OPENSEARCH_ENDPOINT"`
	OpenSearchIndex             string        `json:"opensearch_index" env:"OPENSEARCH_INDEX,default=indexd-documents"`
	OpenSearchRegion            string        `json:"opensearch_region" env:"OPENSEARCH_REGION,default=us-east-1"`
	OpenSearchInsecureSkipTLS   bool          `json:"opensearch_insecure_skip_tls" env:"OPENSEARCH_INSECURE_SKIP_TLS,default=false"`
	OpenSearchRateLimit         float64       `json:"opensearch_rate_limit" env:"OPENSEARCH_RATE_LIMIT,default=10.0"`
	OpenSearchRateBurst         int           `json:"opensearch_rate_burst" env:"OPENSEARCH_RATE_BURST,default=20"`
	OpenSearchConnectionTimeout time.Duration `json:"opensearch_connection_timeout" env:"OPENSEARCH_CONNECTION_TIMEOUT,default=30s"`
	OpenSearchRequestTimeout    time.Duration `json:"opensearch_request_timeout" env:"OPENSEARCH_REQUEST_TIMEOUT,default=60s"`

	// Embedding model (AWS Bedrock)
	EmbeddingEnabled bool   `json:"embedding_enabled" env:"INDEXD_EMBEDDING_ENABLED,default=false"`
	EmbeddingModelID string `json:"embedding_model_id" env:"INDEXD_EMBEDDING_MODEL,default=amazon.titan-embed-text-v2:0"`
	AWSRegion        string `json:"aws_region" env:"AWS_REGION,default=us-east-1"`

	// OpenTelemetry
	OTelEnabled              bool    `json:"otel_enabled" env:"OTEL_ENABLED,default=false"`
	OTelServiceName          string  `json:"otel_service_name" env:"OTEL_SERVICE_NAME,default=indexd"`
	OTelExporterOTLPEndpoint string  `json:"otel_exporter_otlp_endpoint" env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTelExporterOTLPProtocol string  `json:"otel_exporter_otlp_protocol" env:"OTEL_EXPORTER_OTLP_PROTOCOL,default=http/protobuf"`
	OTelResourceAttributes   string  `json:"otel_resource_attributes" env:"OTEL_RESOURCE_ATTRIBUTES"`
	OTelTracesSampler        string  `json:"otel_traces_sampler" env:"OTEL_TRACES_SAMPLER,default=always_on"`
	OTelTracesSamplerArg     float64 `json:"otel_traces_sampler_arg" env:"OTEL_TRACES_SAMPLER_ARG,default=1.0"`
}

// ScanInterval returns the scan interval as a duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMinutes) * time.Minute
}
