//go:build !without_sqlite

package index

import (
	"context"
	"fmt"

	sqlite_vec "github.com/asg017/sqlite-vec-go-bindings/cgo"
	"github.com/habiliai/agentmemory/errors"
	"gorm.io/gorm"
)

type (
	// SqliteIndex implements Index using SQLite with sqlite-vec extension.
	// Vectors live in a vec0 table partitioned by user; a plain table maps
	// each vector ref to its record and owner.
	SqliteIndex struct {
		db       *gorm.DB
		embedder Embedder
		vecDim   int
	}

	SqliteEmbeddingOwner struct {
		Ref      string `gorm:"primaryKey"`
		RecordID string `gorm:"not null;index"`
		UserID   string `gorm:"not null;index"`
	}
)

var (
	_ Index = (*SqliteIndex)(nil)
)

func (SqliteEmbeddingOwner) TableName() string {
	return "memory_embedding_owners"
}

// NewSqliteIndex creates the vector tables on db. The db must have been opened
// with sqlite-vec registered (see internal/db.OpenSqlite).
func NewSqliteIndex(db *gorm.DB, embedder Embedder, dimension int) (*SqliteIndex, error) {
	if err := db.AutoMigrate(&SqliteEmbeddingOwner{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate embedding owner table")
	}

	createTableSQL := fmt.Sprintf(`
		CREATE VIRTUAL TABLE IF NOT EXISTS memory_embeddings USING vec0(
			ref TEXT PRIMARY KEY,
			user_id TEXT partition key,
			embedding float[%d] distance_metric=cosine
		);
	`, dimension)
	if err := db.Exec(createTableSQL).Error; err != nil {
		return nil, errors.Wrapf(err, "failed to create memory_embeddings table")
	}

	return &SqliteIndex{
		db:       db,
		embedder: embedder,
		vecDim:   dimension,
	}, nil
}

func (s *SqliteIndex) Upsert(ctx context.Context, ref, recordID, userID, text string) error {
	embedding, err := embedOne(ctx, s.embedder, text)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to embed record %s", recordID)
	}
	if len(embedding) != s.vecDim {
		return errors.Wrapf(errors.ErrInvalidConfig, "embedding has %d dimensions, index expects %d", len(embedding), s.vecDim)
	}

	serializedEmbedding, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return errors.Wrapf(err, "failed to serialize embedding")
	}

	// vec0 does not support UPDATE, so replace via DELETE + INSERT
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM memory_embeddings WHERE ref = ?", ref).Error; err != nil {
			return errors.Wrapf(err, "failed to delete existing vector")
		}
		if err := tx.Exec(
			"INSERT INTO memory_embeddings (ref, user_id, embedding) VALUES (?, ?, ?)",
			ref, userID, serializedEmbedding,
		).Error; err != nil {
			return errors.Wrapf(err, "failed to insert memory vector")
		}
		return tx.Save(&SqliteEmbeddingOwner{Ref: ref, RecordID: recordID, UserID: userID}).Error
	}); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to index record %s", recordID)
	}

	return nil
}

func (s *SqliteIndex) Delete(ctx context.Context, ref string) error {
	if err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM memory_embeddings WHERE ref = ?", ref).Error; err != nil {
			return errors.Wrapf(err, "failed to delete memory vector")
		}
		return tx.Delete(&SqliteEmbeddingOwner{}, "ref = ?", ref).Error
	}); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to delete vector %s from index", ref)
	}
	return nil
}

func (s *SqliteIndex) Query(ctx context.Context, embedding []float32, userID string, k int) ([]Hit, error) {
	if k <= 0 {
		return []Hit{}, nil
	}

	serializedQuery, err := sqlite_vec.SerializeFloat32(embedding)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to serialize query embedding")
	}

	rows, err := s.db.WithContext(ctx).Raw(`
		SELECT knn.ref, o.record_id, knn.distance
		FROM (
			SELECT ref, distance
			FROM memory_embeddings
			WHERE embedding MATCH ?
				AND k = ?
				AND user_id = ?
		) knn
		JOIN memory_embedding_owners o ON o.ref = knn.ref
		ORDER BY knn.distance
	`, serializedQuery, k, userID).Rows()
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to query memory vectors")
	}
	defer rows.Close()

	hits := make([]Hit, 0, k)
	for rows.Next() {
		var (
			ref, recordID string
			distance      float64
		)
		if err := rows.Scan(&ref, &recordID, &distance); err != nil {
			return nil, errors.Wrapf(err, "failed to scan memory vector")
		}
		// cosine distance is 1 - cosine similarity
		hits = append(hits, Hit{Ref: ref, RecordID: recordID, Score: 1 - distance})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to iterate memory vectors")
	}

	return hits, nil
}

func (s *SqliteIndex) Count(ctx context.Context, userID string) (int, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&SqliteEmbeddingOwner{}).Where("user_id = ?", userID).Count(&n).Error; err != nil {
		return 0, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to count memory vectors")
	}
	return int(n), nil
}

func (s *SqliteIndex) Ping(ctx context.Context) error {
	var vecVersion string
	if err := s.db.WithContext(ctx).Raw("SELECT vec_version()").Row().Scan(&vecVersion); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "sqlite-vec is not available")
	}
	return nil
}

// Close is a no-op; the connection belongs to whoever opened it.
func (s *SqliteIndex) Close() error {
	return nil
}
