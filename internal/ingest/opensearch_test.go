package ingest

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentID_Deterministic(t *testing.T) {
	id1 := DocumentID("docs/guide.md")
	id2 := DocumentID("docs/guide.md")
	assert.Equal(t, id1, id2)

	other := DocumentID("docs/other.md")
	assert.NotEqual(t, id1, other)
}

func TestDocumentID_ValidUUID(t *testing.T) {
	id := DocumentID("notes/readme.txt")
	require.Len(t, id, 36)
	assert.Contains(t, id, "-")
}

func TestExtensionOf(t *testing.T) {
	assert.Equal(t, ".md", extensionOf("docs/guide.md"))
	assert.Equal(t, ".txt", extensionOf("README.TXT"))
	assert.Equal(t, "", extensionOf("Makefile"))
	assert.Equal(t, ".csv", extensionOf("data.v2.csv"))
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "guide.md", baseName("docs/nested/guide.md"))
	assert.Equal(t, "top.md", baseName("top.md"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, isNotFound(errors.New("status: 404 Not Found")))
	assert.True(t, isNotFound(errors.New(`{"result":"not_found"}`)))
	assert.False(t, isNotFound(errors.New("connection refused")))
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(errors.New("request timeout exceeded")))
	assert.True(t, isRetryable(errors.New("429 Too Many Requests")))
	assert.False(t, isRetryable(errors.New("index_not_found_exception")))
}

func TestNewIndexer_RequiresConfig(t *testing.T) {
	_, err := NewIndexer(context.Background(), Config{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "endpoint")

	_, err = NewIndexer(context.Background(), Config{Endpoint: "https://example.com"}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "index")
}
