package index

import (
	"context"
	"hash/fnv"
	"math"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/memory"
	"github.com/patrickmn/go-cache"
)

type (
	// Embedder interface for generating embeddings
	Embedder interface {
		Embed(ctx context.Context, texts ...string) ([][]float32, error)
	}

	// GenkitEmbedder implements Embedder using genkit functionality
	GenkitEmbedder struct {
		genkit   *genkit.Genkit
		provider string
		name     string
	}

	// HashEmbedder produces deterministic unit vectors from hashed tokens.
	// Texts sharing words land near each other, which is enough for offline
	// use and tests; it carries no semantics beyond token overlap.
	HashEmbedder struct {
		dimension int
	}

	// CachedEmbedder reuses embeddings of identical text for ttl.
	CachedEmbedder struct {
		next  Embedder
		cache *cache.Cache
	}
)

var (
	_ Embedder = (*GenkitEmbedder)(nil)
	_ Embedder = (*HashEmbedder)(nil)
	_ Embedder = (*CachedEmbedder)(nil)
)

// NewGenkitEmbedder creates a new embedder using genkit
func NewGenkitEmbedder(g *genkit.Genkit, provider, name string) *GenkitEmbedder {
	return &GenkitEmbedder{genkit: g, provider: provider, name: name}
}

// Embed generates embeddings for the given texts
func (e *GenkitEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	embedder := genkit.LookupEmbedder(e.genkit, e.provider, e.name)
	if embedder == nil {
		return nil, errors.Errorf("embedder %s/%s is not registered", e.provider, e.name)
	}

	resp, err := ai.Embed(ctx, embedder, ai.WithTextDocs(texts...))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to embed %d texts", len(texts))
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, errors.Errorf("embedder returned %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	embeddings := make([][]float32, len(resp.Embeddings))
	for i, embedding := range resp.Embeddings {
		embeddings[i] = embedding.Embedding
	}

	return embeddings, nil
}

func NewHashEmbedder(dimension int) *HashEmbedder {
	return &HashEmbedder{dimension: dimension}
}

func (h *HashEmbedder) Embed(_ context.Context, texts ...string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		vec := make([]float32, h.dimension)
		for _, token := range memory.Tokenize(text) {
			hash := fnv.New64a()
			_, _ = hash.Write([]byte(token))
			sum := hash.Sum64()
			sign := float32(1)
			if sum&(1<<63) != 0 {
				sign = -1
			}
			vec[sum%uint64(h.dimension)] += sign
		}
		embeddings[i] = normalize(vec)
	}
	return embeddings, nil
}

func (h *HashEmbedder) Dimension() int {
	return h.dimension
}

func NewCachedEmbedder(next Embedder, ttl time.Duration) *CachedEmbedder {
	return &CachedEmbedder{
		next:  next,
		cache: cache.New(ttl, ttl*2),
	}
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts ...string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	var (
		missing    []string
		missingIdx []int
	)
	for i, text := range texts {
		if v, ok := c.cache.Get(text); ok {
			embeddings[i] = v.([]float32)
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return embeddings, nil
	}

	fresh, err := c.next.Embed(ctx, missing...)
	if err != nil {
		return nil, err
	}
	for j, emb := range fresh {
		embeddings[missingIdx[j]] = emb
		c.cache.SetDefault(missing[j], emb)
	}
	return embeddings, nil
}

func embedOne(ctx context.Context, embedder Embedder, text string) ([]float32, error) {
	embeddings, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(embeddings) != 1 || len(embeddings[0]) == 0 {
		return nil, errors.Errorf("embedder returned no embedding")
	}
	return embeddings[0], nil
}

// normalize converts embedding to unit vector.
func normalize(vec []float32) []float32 {
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}

	norm = math.Sqrt(norm)
	for i, v := range vec {
		vec[i] = float32(float64(v) / norm)
	}
	return vec
}
