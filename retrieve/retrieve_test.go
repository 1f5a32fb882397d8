package retrieve_test

import (
	"context"
	"slices"
	"testing"
	"time"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/index"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store    memory.Store
	index    index.Index
	embedder index.Embedder
}

func newFixture(t *testing.T, candidates ...memory.Candidate) *fixture {
	t.Helper()

	embedder := index.NewHashEmbedder(64)
	f := &fixture{
		store:    memory.NewInMemoryStore(),
		index:    index.NewInMemoryIndex(embedder),
		embedder: embedder,
	}

	clock := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)
	w := memory.NewWriter(f.store, f.index,
		memory.WithWriterLogger(mylog.Discard()),
		memory.WithClock(func() time.Time {
			clock = clock.Add(time.Minute)
			return clock
		}),
	)
	_, err := w.Reconcile(t.Context(), "alice", slices.Values(candidates))
	require.NoError(t, err)
	return f
}

func (f *fixture) retriever(conf *config.RetrievalConfig) *retrieve.Retriever {
	return retrieve.NewRetriever(f.store, f.index, f.embedder, conf, mylog.Discard())
}

func TestRetrieveFallsBackToText(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryTool, Key: "editor", Value: "VS Code", Confidence: 0.9},
	)
	conf := config.NewRetrievalConfig()
	conf.MinSimilarity = 0.99

	results, err := f.retriever(conf).Retrieve(t.Context(), "What is my name?", "alice", 0)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "Sarah", results[0].Record.Value)
	assert.Equal(t, retrieve.StageText, results[0].Stage)
}

func TestRetrieveVectorFirst(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryWork, Key: "employer", Value: "Sarah works at Tech Corp", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.9},
	)

	results, err := f.retriever(config.NewRetrievalConfig()).Retrieve(t.Context(), "Sarah works at Tech Corp", "alice", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, retrieve.StageVector, results[0].Stage)
	assert.Equal(t, "employer", results[0].Record.Key)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)

	ids := make(map[string]int)
	for _, r := range results {
		ids[r.Record.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "record %s returned twice", id)
	}
}

func TestRetrieveIgnoresUnpublishedVectors(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryWork, Key: "employer", Value: "Sarah works at Tech Corp", Confidence: 0.9},
	)
	rec, err := f.store.Get(t.Context(), "alice", memory.CategoryWork, "employer")
	require.NoError(t, err)

	// a vector staged for the record by a write that has not been published
	require.NoError(t, f.index.Upsert(t.Context(), "staged-ref", rec.ID, "alice", "Acme Industries"))

	conf := config.NewRetrievalConfig()
	conf.MinSimilarity = 0.99
	results, err := f.retriever(conf).Retrieve(t.Context(), "Acme Industries", "alice", 5)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, retrieve.StageVector, r.Stage, "record matched through a vector it does not point at")
	}

	results, err = f.retriever(conf).Retrieve(t.Context(), "Sarah works at Tech Corp", "alice", 5)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, retrieve.StageVector, results[0].Stage)
	assert.Equal(t, rec.ID, results[0].Record.ID)
}

func TestRetrieveFallsBackToCategory(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryTool, Key: "editor", Value: "VS Code", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryTool, Key: "os", Value: "Arch Linux", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.9},
	)

	results, err := f.retriever(config.NewRetrievalConfig()).Retrieve(t.Context(), "Which app do I like?", "alice", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, retrieve.StageCategory, r.Stage)
		assert.Equal(t, memory.CategoryTool, r.Record.Category)
	}
	assert.Equal(t, "os", results[0].Record.Key, "most recently updated first")
}

func TestRetrieveCapsAtTopK(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryTool, Key: "editor", Value: "VS Code", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryTool, Key: "os", Value: "Arch Linux", Confidence: 0.9},
		memory.Candidate{Category: memory.CategoryTool, Key: "language", Value: "Go", Confidence: 0.9},
	)

	results, err := f.retriever(config.NewRetrievalConfig()).Retrieve(t.Context(), "Which tools do I use?", "alice", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieveNothing(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.9},
	)
	r := f.retriever(config.NewRetrievalConfig())

	results, err := r.Retrieve(t.Context(), "Tell me a joke", "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	results, err = r.Retrieve(t.Context(), "What is my name?", "bob", 5)
	require.NoError(t, err)
	assert.Empty(t, results, "other users' memories are invisible")

	results, err = r.Retrieve(t.Context(), "   ", "alice", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
}

type brokenIndex struct {
	index.Index
}

func (brokenIndex) Query(context.Context, []float32, string, int) ([]index.Hit, error) {
	return nil, errors.Mark(errors.New("vec0 is gone"), errors.ErrStoreUnavailable)
}

type brokenStore struct {
	memory.Store
}

func (brokenStore) ListAll(context.Context, string) ([]*memory.Record, error) {
	return nil, errors.Mark(errors.New("database is locked"), errors.ErrStoreUnavailable)
}

func TestRetrieveSkipsBrokenIndex(t *testing.T) {
	f := newFixture(t,
		memory.Candidate{Category: memory.CategoryPersonal, Key: "name", Value: "Sarah", Confidence: 0.9},
	)
	r := retrieve.NewRetriever(f.store, brokenIndex{f.index}, f.embedder, config.NewRetrievalConfig(), mylog.Discard())

	results, err := r.Retrieve(t.Context(), "What is my name?", "alice", 5)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, retrieve.StageText, results[0].Stage)
}

func TestRetrieveSurfacesStoreFailure(t *testing.T) {
	f := newFixture(t)
	r := retrieve.NewRetriever(brokenStore{f.store}, f.index, f.embedder, config.NewRetrievalConfig(), mylog.Discard())

	_, err := r.Retrieve(t.Context(), "What is my name?", "alice", 5)
	assert.ErrorIs(t, err, errors.ErrStoreUnavailable)
}
