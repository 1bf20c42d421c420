package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "./documents", cfg.WatchedRoot)
	assert.Equal(t, "index_status.csv", cfg.StatusFilePath)
	assert.Equal(t, 5, cfg.ScanIntervalMinutes)
	assert.Equal(t, 4, cfg.Concurrency)
	assert.Equal(t, 120*time.Second, cfg.IngestTimeout)
	assert.Contains(t, cfg.SupportedExts, ".md")
	assert.Contains(t, cfg.SupportedExts, ".txt")
	assert.Equal(t, 5*time.Minute, cfg.ScanInterval())
}

func TestLoad_ExtensionParsing(t *testing.T) {
	t.Setenv("INDEXD_EXTENSIONS", "md| TXT |.csv")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{".md", ".txt", ".csv"}, cfg.SupportedExts)
}

func TestLoad_ConcurrencyClamped(t *testing.T) {
	t.Setenv("INDEXD_CONCURRENCY", "100")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 20, cfg.Concurrency)

	t.Setenv("INDEXD_CONCURRENCY", "0")

	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.Concurrency)
}

func TestLoad_InvalidOpenSearchEndpoint(t *testing.T) {
	t.Setenv("OPENSEARCH_ENDPOINT", "not-a-url")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENSEARCH_ENDPOINT")
}

func TestLoad_ValidOpenSearchEndpoint(t *testing.T) {
	t.Setenv("OPENSEARCH_ENDPOINT", "https://search.example.com:9200")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "indexd-documents", cfg.OpenSearchIndex)
	assert.Equal(t, "us-east-1", cfg.OpenSearchRegion)
}
