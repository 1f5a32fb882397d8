package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/habiliai/agentmemory/errors"
	"github.com/samber/lo"
)

type (
	// Store is the durable table of memory records. Implementations must be
	// strongly consistent within one user's rows.
	Store interface {
		// Get returns errors.ErrNotFound when the slot is empty.
		Get(ctx context.Context, userID string, category Category, key string) (*Record, error)
		GetByIDs(ctx context.Context, userID string, ids []string) ([]*Record, error)
		Put(ctx context.Context, record *Record) error
		Delete(ctx context.Context, id string) error
		ListByCategory(ctx context.Context, userID string, category Category) ([]*Record, error)
		// ListAll returns the user's records, most recently updated first.
		ListAll(ctx context.Context, userID string) ([]*Record, error)
		Ping(ctx context.Context) error
		Close() error
	}

	// InMemoryStore is a Store kept in process memory. Records are copied on
	// the way in and out so callers never share state with the store.
	InMemoryStore struct {
		mu      sync.RWMutex
		records map[string]*Record
		// slots maps userID -> slot key -> record id
		slots map[string]map[string]string
	}
)

var (
	_ Store = (*InMemoryStore)(nil)
)

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]*Record),
		slots:   make(map[string]map[string]string),
	}
}

func (s *InMemoryStore) Get(_ context.Context, userID string, category Category, key string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.slots[userID][string(category)+"/"+key]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "memory %s/%s not found", category, key)
	}
	return s.records[id].Clone(), nil
}

func (s *InMemoryStore) GetByIDs(_ context.Context, userID string, ids []string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Record, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.records[id]; ok && r.UserID == userID {
			results = append(results, r.Clone())
		}
	}
	return results, nil
}

func (s *InMemoryStore) Put(_ context.Context, record *Record) error {
	if record == nil || record.ID == "" || record.UserID == "" {
		return errors.Wrapf(errors.ErrInvalidParams, "record id and user id are required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a record moving slots must not leave its old slot pointing at it
	if prev, ok := s.records[record.ID]; ok && prev.SlotKey() != record.SlotKey() {
		delete(s.slots[prev.UserID], prev.SlotKey())
	}

	slots, ok := s.slots[record.UserID]
	if !ok {
		slots = make(map[string]string)
		s.slots[record.UserID] = slots
	}
	if id, ok := slots[record.SlotKey()]; ok && id != record.ID {
		return errors.Errorf("memory %s already holds record %s", record.SlotKey(), id)
	}

	slots[record.SlotKey()] = record.ID
	s.records[record.ID] = record.Clone()
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[id]
	if !ok {
		return nil
	}
	delete(s.slots[r.UserID], r.SlotKey())
	delete(s.records, id)
	return nil
}

func (s *InMemoryStore) ListByCategory(ctx context.Context, userID string, category Category) ([]*Record, error) {
	all, err := s.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	return lo.Filter(all, func(r *Record, _ int) bool {
		return r.Category == category
	}), nil
}

func (s *InMemoryStore) ListAll(_ context.Context, userID string) ([]*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Record, 0, len(s.slots[userID]))
	for _, id := range s.slots[userID] {
		results = append(results, s.records[id].Clone())
	}
	SortByRecency(results)
	return results, nil
}

func (s *InMemoryStore) Ping(context.Context) error {
	return nil
}

func (s *InMemoryStore) Close() error {
	return nil
}

// SortByRecency orders records by UpdatedAt descending, breaking ties by ID.
func SortByRecency(records []*Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].ID < records[j].ID
	})
}
