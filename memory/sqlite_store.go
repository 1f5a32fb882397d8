//go:build !without_sqlite

package memory

import (
	"context"
	"time"

	"github.com/habiliai/agentmemory/errors"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

type (
	// SqliteStore implements Store on a gorm SQLite connection.
	SqliteStore struct {
		db *gorm.DB
	}

	SqliteMemoryRecord struct {
		ID             string    `gorm:"primaryKey"`
		UserID         string    `gorm:"not null;uniqueIndex:idx_memories_slot,priority:1"`
		Category       string    `gorm:"not null;uniqueIndex:idx_memories_slot,priority:2"`
		Key            string    `gorm:"column:memory_key;not null;uniqueIndex:idx_memories_slot,priority:3"`
		Value          string    `gorm:"not null"`
		Confidence     float64   `gorm:"not null;default:0"`
		ConversationID string    `gorm:"not null;default:''"`
		EmbeddingRef   string    `gorm:"not null;default:''"`
		CreatedAt      time.Time `gorm:"autoCreateTime:false"`
		UpdatedAt      time.Time `gorm:"autoUpdateTime:false;index"`
	}
)

var (
	_ Store = (*SqliteStore)(nil)
)

func (SqliteMemoryRecord) TableName() string {
	return "memories"
}

// NewSqliteStore migrates the memories table on db. The caller owns db.
func NewSqliteStore(db *gorm.DB) (*SqliteStore, error) {
	if err := db.AutoMigrate(&SqliteMemoryRecord{}); err != nil {
		return nil, errors.Wrapf(err, "failed to migrate memories table")
	}
	return &SqliteStore{db: db}, nil
}

func (s *SqliteStore) Get(ctx context.Context, userID string, category Category, key string) (*Record, error) {
	var row SqliteMemoryRecord
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND memory_key = ?", userID, string(category), key).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory %s/%s not found", category, key)
	} else if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to get memory")
	}
	return row.toRecord(), nil
}

func (s *SqliteStore) GetByIDs(ctx context.Context, userID string, ids []string) ([]*Record, error) {
	if len(ids) == 0 {
		return []*Record{}, nil
	}

	var rows []SqliteMemoryRecord
	if err := s.db.WithContext(ctx).
		Where("user_id = ? AND id IN ?", userID, ids).
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to get memories by ids")
	}

	// keep the caller's order
	byID := lo.SliceToMap(rows, func(row SqliteMemoryRecord) (string, *Record) {
		return row.ID, row.toRecord()
	})
	results := make([]*Record, 0, len(rows))
	for _, id := range ids {
		if r, ok := byID[id]; ok {
			results = append(results, r)
		}
	}
	return results, nil
}

func (s *SqliteStore) Put(ctx context.Context, record *Record) error {
	if record == nil || record.ID == "" || record.UserID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "record id and user id are required")
	}

	row := newSqliteMemoryRecord(record)
	if err := s.db.WithContext(ctx).Save(&row).Error; err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to save memory record")
	}
	return nil
}

func (s *SqliteStore) Delete(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&SqliteMemoryRecord{}, "id = ?", id).Error; err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to delete memory record")
	}
	return nil
}

func (s *SqliteStore) ListByCategory(ctx context.Context, userID string, category Category) ([]*Record, error) {
	return s.list(ctx, s.db.Where("user_id = ? AND category = ?", userID, string(category)))
}

func (s *SqliteStore) ListAll(ctx context.Context, userID string) ([]*Record, error) {
	return s.list(ctx, s.db.Where("user_id = ?", userID))
}

func (s *SqliteStore) list(ctx context.Context, tx *gorm.DB) ([]*Record, error) {
	var rows []SqliteMemoryRecord
	if err := tx.WithContext(ctx).
		Order("updated_at DESC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to list memories")
	}
	return lo.Map(rows, func(row SqliteMemoryRecord, _ int) *Record {
		return row.toRecord()
	}), nil
}

func (s *SqliteStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to get db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to ping sqlite")
	}
	return nil
}

// Close is a no-op; the connection belongs to whoever opened it.
func (s *SqliteStore) Close() error {
	return nil
}

func newSqliteMemoryRecord(r *Record) SqliteMemoryRecord {
	return SqliteMemoryRecord{
		ID:             r.ID,
		UserID:         r.UserID,
		Category:       string(r.Category),
		Key:            r.Key,
		Value:          r.Value,
		Confidence:     r.Confidence,
		ConversationID: r.ConversationID,
		EmbeddingRef:   r.EmbeddingRef,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

func (row SqliteMemoryRecord) toRecord() *Record {
	return &Record{
		ID:             row.ID,
		UserID:         row.UserID,
		Category:       Category(row.Category),
		Key:            row.Key,
		Value:          row.Value,
		Confidence:     row.Confidence,
		ConversationID: row.ConversationID,
		EmbeddingRef:   row.EmbeddingRef,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}
}
