package index

import (
	"context"
	"sort"
	"sync"

	"github.com/habiliai/agentmemory/errors"
	"gonum.org/v1/gonum/floats"
)

type (
	// InMemoryIndex is an exact nearest-neighbor index held in process memory.
	InMemoryIndex struct {
		embedder Embedder

		mu      sync.RWMutex
		// vectors is keyed by embedding ref
		vectors map[string]*vectorEntry
	}

	vectorEntry struct {
		recordID string
		userID   string
		vector   []float64
	}
)

var (
	_ Index = (*InMemoryIndex)(nil)
)

func NewInMemoryIndex(embedder Embedder) *InMemoryIndex {
	return &InMemoryIndex{
		embedder: embedder,
		vectors:  make(map[string]*vectorEntry),
	}
}

func (idx *InMemoryIndex) Upsert(ctx context.Context, ref, recordID, userID, text string) error {
	embedding, err := embedOne(ctx, idx.embedder, text)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to embed record %s", recordID)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.vectors[ref] = &vectorEntry{
		recordID: recordID,
		userID:   userID,
		vector:   toUnitFloat64(embedding),
	}
	return nil
}

func (idx *InMemoryIndex) Delete(_ context.Context, ref string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.vectors, ref)
	return nil
}

func (idx *InMemoryIndex) Query(_ context.Context, embedding []float32, userID string, k int) ([]Hit, error) {
	if len(embedding) == 0 {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "query embedding is empty")
	}
	if k <= 0 {
		return []Hit{}, nil
	}
	query := toUnitFloat64(embedding)

	idx.mu.RLock()
	hits := make([]Hit, 0, len(idx.vectors))
	for ref, entry := range idx.vectors {
		if entry.userID != userID || len(entry.vector) != len(query) {
			continue
		}
		hits = append(hits, Hit{
			Ref:      ref,
			RecordID: entry.recordID,
			Score:    floats.Dot(query, entry.vector),
		})
	}
	idx.mu.RUnlock()

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Ref < hits[j].Ref
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (idx *InMemoryIndex) Count(_ context.Context, userID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	n := 0
	for _, entry := range idx.vectors {
		if entry.userID == userID {
			n++
		}
	}
	return n, nil
}

func (idx *InMemoryIndex) Ping(context.Context) error {
	return nil
}

func (idx *InMemoryIndex) Close() error {
	return nil
}

func toUnitFloat64(vec []float32) []float64 {
	out := make([]float64, len(vec))
	for i, v := range vec {
		out[i] = float64(v)
	}
	if norm := floats.Norm(out, 2); norm > 0 {
		floats.Scale(1/norm, out)
	}
	return out
}
