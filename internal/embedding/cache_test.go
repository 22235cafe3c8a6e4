package embedding

import (
	"context"
	"errors"
	"testing"
)

func TestEmbeddingCache_GetSet(t *testing.T) {
	c := NewEmbeddingCache(2)
	if v, ok := c.Get("a"); ok || v != nil {
		t.Fatal("expected miss")
	}
	c.Set("a", []float32{1, 2, 3})
	v, ok := c.Get("a")
	if !ok || len(v) != 3 || v[0] != 1 {
		t.Errorf("Get: got %v, %v", v, ok)
	}
	c.Set("b", []float32{4, 5})
	c.Get("a")               // a is now most recent
	c.Set("c", []float32{6}) // evicts b
	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Error("expected a to remain")
	}
	if _, ok := c.Get("c"); !ok {
		t.Error("expected c to be present")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

// countingEmbedder records how many texts reach the provider.
type countingEmbedder struct {
	*MockEmbedder
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return c.MockEmbedder.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	c.calls += len(texts)
	if c.err != nil {
		return nil, c.err
	}
	return c.MockEmbedder.EmbedBatch(ctx, texts)
}

func TestCachedEmbedder(t *testing.T) {
	inner := &countingEmbedder{MockEmbedder: NewMockEmbedder(8)}
	e := NewCachedEmbedder(inner, 10)
	ctx := context.Background()

	first, err := e.Embed(ctx, "steady practice")
	if err != nil {
		t.Fatal(err)
	}
	second, _ := e.Embed(ctx, "steady practice")
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if &first[0] != &second[0] {
		t.Error("expected cached slice on second call")
	}

	batch, err := e.EmbedBatch(ctx, []string{"steady practice", "inner peace", "duty"})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 3 || batch[0] == nil || batch[2] == nil {
		t.Fatalf("batch = %v", batch)
	}
	if inner.calls != 3 {
		t.Errorf("inner calls = %d, want 3 (only misses embedded)", inner.calls)
	}
	if e.Name() != "mock" || e.Dimensions() != 8 {
		t.Errorf("Name/Dimensions not delegated: %s %d", e.Name(), e.Dimensions())
	}

	inner.err = errors.New("provider down")
	if _, err := e.Embed(ctx, "uncached"); err == nil {
		t.Error("expected provider error")
	}
}
