package memory_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/db"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStores(t *testing.T) map[string]memory.Store {
	gdb, err := db.OpenSqlite(filepath.Join(t.TempDir(), "memory.db"), mylog.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.CloseDB(gdb) })

	sqliteStore, err := memory.NewSqliteStore(gdb)
	require.NoError(t, err)

	return map[string]memory.Store{
		"memory": memory.NewInMemoryStore(),
		"sqlite": sqliteStore,
	}
}

func TestStores(t *testing.T) {
	base := time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			_, err := store.Get(ctx, "alice", memory.CategoryPersonal, "name")
			require.ErrorIs(t, err, errors.ErrNotFound)

			name := &memory.Record{
				ID: "r1", UserID: "alice", Category: memory.CategoryPersonal, Key: "name",
				Value: "Sarah", Confidence: 0.9, CreatedAt: base, UpdatedAt: base,
			}
			employer := &memory.Record{
				ID: "r2", UserID: "alice", Category: memory.CategoryWork, Key: "employer",
				Value: "Sarah works at Tech Corp", Confidence: 0.8, CreatedAt: base, UpdatedAt: base.Add(time.Minute),
			}
			other := &memory.Record{
				ID: "r3", UserID: "bob", Category: memory.CategoryPersonal, Key: "name",
				Value: "Bob", CreatedAt: base, UpdatedAt: base,
			}
			for _, r := range []*memory.Record{name, employer, other} {
				require.NoError(t, store.Put(ctx, r))
			}

			got, err := store.Get(ctx, "alice", memory.CategoryPersonal, "name")
			require.NoError(t, err)
			assert.Equal(t, "Sarah", got.Value)
			assert.True(t, base.Equal(got.UpdatedAt))

			// callers must not be able to mutate stored state
			got.Value = "mutated"
			again, err := store.Get(ctx, "alice", memory.CategoryPersonal, "name")
			require.NoError(t, err)
			assert.Equal(t, "Sarah", again.Value)

			all, err := store.ListAll(ctx, "alice")
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "r2", all[0].ID, "most recently updated first")

			work, err := store.ListByCategory(ctx, "alice", memory.CategoryWork)
			require.NoError(t, err)
			require.Len(t, work, 1)
			assert.Equal(t, "employer", work[0].Key)

			byIDs, err := store.GetByIDs(ctx, "alice", []string{"r2", "r3", "missing", "r1"})
			require.NoError(t, err)
			require.Len(t, byIDs, 2, "r3 belongs to bob")
			assert.Equal(t, "r2", byIDs[0].ID)
			assert.Equal(t, "r1", byIDs[1].ID)

			// overwrite in place
			updated := *name
			updated.Value = "Sara"
			updated.UpdatedAt = base.Add(time.Hour)
			require.NoError(t, store.Put(ctx, &updated))
			got, err = store.Get(ctx, "alice", memory.CategoryPersonal, "name")
			require.NoError(t, err)
			assert.Equal(t, "Sara", got.Value)
			assert.Equal(t, "r1", got.ID)

			// a second record for the same slot is rejected
			dup := *name
			dup.ID = "r9"
			assert.Error(t, store.Put(ctx, &dup))

			require.NoError(t, store.Delete(ctx, "r1"))
			_, err = store.Get(ctx, "alice", memory.CategoryPersonal, "name")
			require.ErrorIs(t, err, errors.ErrNotFound)
			require.NoError(t, store.Delete(ctx, "r1"))

			require.NoError(t, store.Ping(ctx))
		})
	}
}

func TestStorePutValidation(t *testing.T) {
	for name, store := range newStores(t) {
		t.Run(name, func(t *testing.T) {
			err := store.Put(t.Context(), &memory.Record{ID: "x"})
			assert.ErrorIs(t, err, errors.ErrInvalidParams)
		})
	}
}
