package memory

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/keylock"
	"github.com/habiliai/agentmemory/internal/metrics"
	"github.com/habiliai/agentmemory/internal/mylog"
)

type (
	// VectorIndex is the part of the embedding index the writer keeps in sync.
	VectorIndex interface {
		Upsert(ctx context.Context, ref, recordID, userID, text string) error
		Delete(ctx context.Context, ref string) error
	}

	// Writer is the only component that mutates records. Every write holds the
	// per-slot lock for its (user, category, key). A new value is embedded
	// under a fresh ref first and the record pointing at that ref is published
	// with a single store write, so a reader sees either the old record with
	// its old vector or the new record with its new one.
	Writer struct {
		store  Store
		index  VectorIndex
		locker keylock.Locker
		logger *slog.Logger
		now    func() time.Time
	}

	WriterOption func(*Writer)

	ReconcileOption func(*reconcileOptions)

	reconcileOptions struct {
		conversationID string
	}
)

func WithClock(now func() time.Time) WriterOption {
	return func(w *Writer) {
		w.now = now
	}
}

func WithLocker(locker keylock.Locker) WriterOption {
	return func(w *Writer) {
		w.locker = locker
	}
}

func WithWriterLogger(logger *slog.Logger) WriterOption {
	return func(w *Writer) {
		w.logger = logger
	}
}

// WithConversationID stamps created and updated records with the conversation they came from.
func WithConversationID(id string) ReconcileOption {
	return func(o *reconcileOptions) {
		o.conversationID = id
	}
}

func NewWriter(store Store, index VectorIndex, opts ...WriterOption) *Writer {
	w := &Writer{
		store:  store,
		index:  index,
		locker: keylock.NewLocal(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = mylog.OrDefault(w.logger)
	return w
}

// Reconcile writes candidates for userID. Duplicate slots within one call
// collapse to the last candidate; the earlier ones are reported as skipped.
// It stops at the first store or index failure and returns the results so far
// together with an error marked errors.ErrStoreUnavailable.
func (w *Writer) Reconcile(ctx context.Context, userID string, candidates iter.Seq[Candidate], opts ...ReconcileOption) ([]WriteResult, error) {
	if userID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id is required")
	}
	var o reconcileOptions
	for _, opt := range opts {
		opt(&o)
	}

	var all []Candidate
	for c := range candidates {
		all = append(all, c)
	}

	last := make(map[string]int, len(all))
	for i, c := range all {
		last[c.SlotKey()] = i
	}

	results := make([]WriteResult, 0, len(all))
	for i, c := range all {
		if last[c.SlotKey()] != i {
			results = append(results, WriteResult{Candidate: c, Outcome: OutcomeSkipped})
			metrics.WritesTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
			continue
		}

		result, err := w.reconcileOne(ctx, userID, c, o)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		metrics.WritesTotal.WithLabelValues(string(result.Outcome)).Inc()
	}

	return results, nil
}

func (w *Writer) reconcileOne(ctx context.Context, userID string, c Candidate, o reconcileOptions) (WriteResult, error) {
	unlock, err := w.locker.Lock(ctx, keylock.Key(userID, string(c.Category), c.Key))
	if err != nil {
		return WriteResult{}, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to lock %s", c.SlotKey())
	}
	defer unlock()

	prev, err := w.store.Get(ctx, userID, c.Category, c.Key)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return WriteResult{}, errors.Wrapf(err, "failed to look up %s", c.SlotKey())
	}

	if prev != nil && prev.Value == c.Value {
		return WriteResult{Candidate: c, Outcome: OutcomeSkipped, RecordID: prev.ID}, nil
	}

	now := w.now().UTC()
	var (
		record  *Record
		outcome Outcome
	)
	if prev == nil {
		id := uuid.NewString()
		record = &Record{
			ID:        id,
			UserID:    userID,
			Category:  c.Category,
			Key:       c.Key,
			CreatedAt: now,
		}
		outcome = OutcomeCreated
	} else {
		record = prev.Clone()
		outcome = OutcomeUpdated
	}
	record.Value = c.Value
	record.Confidence = c.Confidence
	record.UpdatedAt = now
	if o.conversationID != "" {
		record.ConversationID = o.conversationID
	}

	var staleRef string
	if prev != nil {
		staleRef = prev.EmbeddingRef
	}
	record.EmbeddingRef = uuid.NewString()

	// nothing points at the new vector until the record is put
	if err := w.index.Upsert(ctx, record.EmbeddingRef, record.ID, userID, record.Value); err != nil {
		return WriteResult{}, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to index %s", c.SlotKey())
	}
	if err := w.store.Put(ctx, record); err != nil {
		metrics.AbortedWritesTotal.Inc()
		w.dropVector(ctx, record.EmbeddingRef)
		return WriteResult{}, errors.Wrapf(err, "failed to write %s", c.SlotKey())
	}
	if staleRef != "" {
		w.dropVector(ctx, staleRef)
	}

	w.logger.Debug("memory written",
		slog.String("user_id", userID),
		slog.String("slot", c.SlotKey()),
		slog.String("outcome", string(outcome)),
	)
	return WriteResult{Candidate: c, Outcome: outcome, RecordID: record.ID}, nil
}

// dropVector removes a vector no record points at. A leftover vector is
// ignored by retrieval, so failures are only logged. The caller's ctx may
// already be done, so the delete runs on a fresh one.
func (w *Writer) dropVector(ctx context.Context, ref string) {
	if err := w.index.Delete(context.WithoutCancel(ctx), ref); err != nil {
		w.logger.Warn("failed to drop unreferenced vector",
			slog.String("ref", ref),
			mylog.Err(err),
		)
	}
}

// Forget deletes every record of userID whose value contains content,
// case-insensitively. The record goes first so no reader sees it without its
// vector; the vector is dropped afterwards.
func (w *Writer) Forget(ctx context.Context, userID, content, reason string) ([]*Record, error) {
	content = strings.TrimSpace(content)
	if userID == "" || content == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id and content are required")
	}

	records, err := w.store.ListAll(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list memories")
	}

	needle := strings.ToLower(content)
	var deleted []*Record
	for _, r := range records {
		if !strings.Contains(strings.ToLower(r.Value), needle) {
			continue
		}
		ok, err := w.forgetOne(ctx, r, needle)
		if err != nil {
			return deleted, err
		}
		if ok {
			deleted = append(deleted, r)
		}
	}

	w.logger.Info("memories forgotten",
		slog.String("user_id", userID),
		slog.Int("count", len(deleted)),
		slog.String("reason", reason),
	)
	return deleted, nil
}

func (w *Writer) forgetOne(ctx context.Context, r *Record, needle string) (bool, error) {
	unlock, err := w.locker.Lock(ctx, keylock.Key(r.UserID, string(r.Category), r.Key))
	if err != nil {
		return false, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to lock %s", r.SlotKey())
	}
	defer unlock()

	// the slot may have been rewritten since it was listed
	cur, err := w.store.Get(ctx, r.UserID, r.Category, r.Key)
	if errors.Is(err, errors.ErrNotFound) {
		return false, nil
	} else if err != nil {
		return false, errors.Wrapf(err, "failed to look up %s", r.SlotKey())
	}
	if cur.ID != r.ID || !strings.Contains(strings.ToLower(cur.Value), needle) {
		return false, nil
	}

	if err := w.store.Delete(ctx, r.ID); err != nil {
		return false, errors.Wrapf(err, "failed to delete %s", r.ID)
	}
	if cur.EmbeddingRef != "" {
		w.dropVector(ctx, cur.EmbeddingRef)
	}
	return true, nil
}
