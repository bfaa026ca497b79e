package openai

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// EmbeddingCounter records where an embedding came from.
type EmbeddingCounter interface {
	IncEmbedding(source string)
}

// CachedEmbedder memoizes embeddings by input text. Query embeddings for
// repeated questions are served without another API call.
type CachedEmbedder struct {
	next    Embedder
	cache   *expirable.LRU[string, []float32]
	metrics EmbeddingCounter
}

func NewCachedEmbedder(next Embedder, size int, ttl time.Duration, metrics EmbeddingCounter) *CachedEmbedder {
	if size <= 0 {
		size = 256
	}
	return &CachedEmbedder{
		next:    next,
		cache:   expirable.NewLRU[string, []float32](size, nil, ttl),
		metrics: metrics,
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if v, hit := c.cache.Get(text); hit {
		c.count("cache")
		return v, nil
	}
	v, err := c.next.Embed(ctx, text)
	if err != nil {
		c.count("error")
		return nil, err
	}
	c.count("remote")
	c.cache.Add(text, v)
	return v, nil
}

// Len reports the number of cached entries.
func (c *CachedEmbedder) Len() int {
	return c.cache.Len()
}

func (c *CachedEmbedder) count(source string) {
	if c.metrics != nil {
		c.metrics.IncEmbedding(source)
	}
}
