package index_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/index"
	"github.com/habiliai/agentmemory/internal/db"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dim = 64

func newIndexes(t *testing.T) map[string]index.Index {
	embedder := index.NewHashEmbedder(dim)

	chromemIdx, err := index.NewChromemIndex("", embedder)
	require.NoError(t, err)

	gdb, err := db.OpenSqlite(filepath.Join(t.TempDir(), "index.db"), mylog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseDB(gdb) })
	sqliteIdx, err := index.NewSqliteIndex(gdb, embedder, dim)
	require.NoError(t, err)

	return map[string]index.Index{
		"memory":     index.NewInMemoryIndex(embedder),
		"chromem":    chromemIdx,
		"sqlite-vec": sqliteIdx,
	}
}

func TestIndexes(t *testing.T) {
	for name, idx := range newIndexes(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			embedder := index.NewHashEmbedder(dim)

			require.NoError(t, idx.Upsert(ctx, "v1", "r1", "alice", "Sarah works at Tech Corp"))
			require.NoError(t, idx.Upsert(ctx, "v2", "r2", "alice", "VS Code"))
			require.NoError(t, idx.Upsert(ctx, "v3", "r3", "bob", "Sarah works at Tech Corp"))

			q, err := embedder.Embed(ctx, "Sarah works at Tech Corp")
			require.NoError(t, err)

			hits, err := idx.Query(ctx, q[0], "alice", 5)
			require.NoError(t, err)
			require.NotEmpty(t, hits)
			assert.Equal(t, "v1", hits[0].Ref)
			assert.Equal(t, "r1", hits[0].RecordID)
			assert.InDelta(t, 1.0, hits[0].Score, 1e-3)
			for _, h := range hits {
				assert.NotEqual(t, "r3", h.RecordID, "hits must stay within the user")
			}

			n, err := idx.Count(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			// re-upsert under the same ref replaces the vector
			require.NoError(t, idx.Upsert(ctx, "v1", "r1", "alice", "VS Code"))
			n, err = idx.Count(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 2, n)

			// a new ref for the same record sits beside the old one until dropped
			require.NoError(t, idx.Upsert(ctx, "v1b", "r1", "alice", "Sarah works at Tech Corp"))
			n, err = idx.Count(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 3, n)
			hits, err = idx.Query(ctx, q[0], "alice", 1)
			require.NoError(t, err)
			require.Len(t, hits, 1)
			assert.Equal(t, "v1b", hits[0].Ref)
			assert.Equal(t, "r1", hits[0].RecordID)
			require.NoError(t, idx.Delete(ctx, "v1"))

			require.NoError(t, idx.Delete(ctx, "v2"))
			n, err = idx.Count(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, 1, n)

			hits, err = idx.Query(ctx, q[0], "nobody", 5)
			require.NoError(t, err)
			assert.Empty(t, hits)

			require.NoError(t, idx.Ping(ctx))
		})
	}
}

type failingEmbedder struct{}

func (failingEmbedder) Embed(context.Context, ...string) ([][]float32, error) {
	return nil, errors.New("embedding endpoint down")
}

func TestUpsertEmbeddingFailure(t *testing.T) {
	idx := index.NewInMemoryIndex(failingEmbedder{})
	err := idx.Upsert(t.Context(), "v1", "r1", "alice", "anything")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrStoreUnavailable))
}
