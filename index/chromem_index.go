package index

import (
	"context"
	"strings"
	"sync"

	"github.com/habiliai/agentmemory/errors"
	chromem "github.com/philippgille/chromem-go"
)

const (
	chromemUserKey          = "user_id"
	chromemRecordKey        = "record_id"
	chromemCollectionPrefix = "user_"
)

// ChromemIndex keeps one chromem-go collection per user, so queries never
// cross users and need no metadata filter.
type ChromemIndex struct {
	db       *chromem.DB
	embedder Embedder

	mu          sync.RWMutex
	collections map[string]*chromem.Collection
	// owners maps embedding ref -> user id so Delete can find the collection
	owners map[string]string
}

var (
	_ Index = (*ChromemIndex)(nil)
)

// NewChromemIndex creates an in-memory chromem index, or a persistent one when path is set.
func NewChromemIndex(path string, embedder Embedder) (*ChromemIndex, error) {
	var (
		db  *chromem.DB
		err error
	)
	if path == "" {
		db = chromem.NewDB()
	} else if db, err = chromem.NewPersistentDB(path, false); err != nil {
		return nil, errors.Wrapf(err, "failed to open chromem db at %s", path)
	}

	idx := &ChromemIndex{
		db:          db,
		embedder:    embedder,
		collections: make(map[string]*chromem.Collection),
		owners:      make(map[string]string),
	}

	// reattach persisted collections; their record owners are learned lazily
	for name := range db.ListCollections() {
		userID, ok := strings.CutPrefix(name, chromemCollectionPrefix)
		if !ok {
			continue
		}
		if col := db.GetCollection(name, idx.embeddingFunc()); col != nil {
			idx.collections[userID] = col
		}
	}

	return idx, nil
}

func (idx *ChromemIndex) embeddingFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return embedOne(ctx, idx.embedder, text)
	}
}

func (idx *ChromemIndex) collection(userID string) (*chromem.Collection, error) {
	idx.mu.RLock()
	col, ok := idx.collections[userID]
	idx.mu.RUnlock()
	if ok {
		return col, nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()
	if col, ok := idx.collections[userID]; ok {
		return col, nil
	}

	col, err := idx.db.GetOrCreateCollection(
		chromemCollectionPrefix+userID,
		map[string]string{chromemUserKey: userID},
		idx.embeddingFunc(),
	)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to create collection for %s", userID)
	}
	idx.collections[userID] = col
	return col, nil
}

func (idx *ChromemIndex) Upsert(ctx context.Context, ref, recordID, userID, text string) error {
	col, err := idx.collection(userID)
	if err != nil {
		return err
	}

	// AddDocument overwrites a document with the same id
	if err := col.AddDocument(ctx, chromem.Document{
		ID:      ref,
		Content: text,
		Metadata: map[string]string{
			chromemUserKey:   userID,
			chromemRecordKey: recordID,
		},
	}); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to index record %s", recordID)
	}

	idx.mu.Lock()
	idx.owners[ref] = userID
	idx.mu.Unlock()
	return nil
}

func (idx *ChromemIndex) Delete(ctx context.Context, ref string) error {
	idx.mu.RLock()
	userID, ok := idx.owners[ref]
	cols := make([]*chromem.Collection, 0, 1)
	if ok {
		if col, found := idx.collections[userID]; found {
			cols = append(cols, col)
		}
	} else {
		for _, col := range idx.collections {
			cols = append(cols, col)
		}
	}
	idx.mu.RUnlock()

	for _, col := range cols {
		if err := col.Delete(ctx, nil, nil, ref); err != nil {
			return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to delete vector %s from index", ref)
		}
	}

	idx.mu.Lock()
	delete(idx.owners, ref)
	idx.mu.Unlock()
	return nil
}

func (idx *ChromemIndex) Query(ctx context.Context, embedding []float32, userID string, k int) ([]Hit, error) {
	idx.mu.RLock()
	col, ok := idx.collections[userID]
	idx.mu.RUnlock()
	if !ok || k <= 0 {
		return []Hit{}, nil
	}

	// chromem-go requires nResults <= collection size
	n := min(k, col.Count())
	if n == 0 {
		return []Hit{}, nil
	}

	results, err := col.QueryEmbedding(ctx, embedding, n, nil, nil)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to query chromem")
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		hits = append(hits, Hit{
			Ref:      r.ID,
			RecordID: r.Metadata[chromemRecordKey],
			Score:    float64(r.Similarity),
		})
	}
	return hits, nil
}

func (idx *ChromemIndex) Count(_ context.Context, userID string) (int, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	col, ok := idx.collections[userID]
	if !ok {
		return 0, nil
	}
	return col.Count(), nil
}

func (idx *ChromemIndex) Ping(context.Context) error {
	return nil
}

func (idx *ChromemIndex) Close() error {
	return nil
}
