package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestMockEmbedder(t *testing.T) {
	e := NewMockEmbedder(32)
	ctx := context.Background()

	a, err := e.Embed(ctx, "Steady practice calms the mind")
	require.NoError(t, err)
	b, _ := e.Embed(ctx, "steady PRACTICE calms the mind")
	c, _ := e.Embed(ctx, "the conch of Arjuna")
	assert.Len(t, a, 32)
	assert.Equal(t, a, b, "embedding should ignore case")

	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-5)

	wide := NewMockEmbedder(256)
	base, _ := wide.Embed(ctx, "Steady practice calms the mind")
	related, _ := wide.Embed(ctx, "practice calms the restless mind")
	unrelated, _ := wide.Embed(ctx, "the conch of Arjuna")
	assert.Greater(t, cosine(base, related), cosine(base, unrelated))
	assert.Len(t, c, 32)

	assert.Equal(t, 64, NewMockEmbedder(0).Dimensions())
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/embeddings", r.URL.Path)
		var req ollamaEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nomic-embed-text", req.Model)
		if strings.Contains(req.Prompt, "fail") {
			http.Error(w, "model not loaded", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer srv.Close()

	e := NewOllamaEmbedder(srv.URL, "", 3)
	ctx := context.Background()

	vec, err := e.Embed(ctx, "karma yoga")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vec)
	assert.Equal(t, "ollama:nomic-embed-text", e.Name())

	batch, err := e.EmbedBatch(ctx, []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, batch, 2)

	_, err = e.Embed(ctx, "please fail")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")

	wrongDims := NewOllamaEmbedder(srv.URL, "", 768)
	_, err = wrongDims.Embed(ctx, "karma")
	assert.Error(t, err)
}

func TestNew(t *testing.T) {
	e, err := New(Config{Provider: "mock", Dimensions: 16, CacheSize: 4})
	require.NoError(t, err)
	_, cached := e.(*CachedEmbedder)
	assert.True(t, cached)
	assert.Equal(t, 16, e.Dimensions())

	e, err = New(Config{Provider: "ollama", BaseURL: "http://127.0.0.1:1"})
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimensions())

	t.Setenv("TEST_MISSING_GEMINI_KEY", "")
	_, err = New(Config{Provider: "gemini", APIKeyEnv: "TEST_MISSING_GEMINI_KEY"})
	assert.Error(t, err)

	_, err = New(Config{Provider: "word2vec"})
	assert.Error(t, err)
}
