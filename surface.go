package agentmemory

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/samber/lo"
)

const MaxSearchLimit = 20

type (
	ListOption func(*listOptions)

	listOptions struct {
		category memory.Category
		limit    int
	}

	Stats struct {
		UserID            string                  `json:"user_id"`
		Total             int                     `json:"total"`
		ByCategory        map[memory.Category]int `json:"by_category"`
		AverageConfidence float64                 `json:"average_confidence"`
		Indexed           int                     `json:"indexed"`
		// InSync is true when the index holds exactly one vector per record.
		InSync bool `json:"in_sync"`
	}

	HealthStatus string

	ComponentHealth struct {
		Status string `json:"status"`
		Error  string `json:"error,omitempty"`
	}

	Health struct {
		Status     HealthStatus               `json:"status"`
		Components map[string]ComponentHealth `json:"components"`
	}
)

const (
	HealthHealthy HealthStatus = "healthy"
	HealthPartial HealthStatus = "partial"
	HealthFailed  HealthStatus = "failed"

	ComponentOK       = "ok"
	ComponentDown     = "down"
	ComponentDisabled = "disabled"
)

// WithCategory restricts a listing to one category.
func WithCategory(category memory.Category) ListOption {
	return func(o *listOptions) {
		o.category = category
	}
}

// WithLimit caps a listing. Zero or less means no limit.
func WithLimit(limit int) ListOption {
	return func(o *listOptions) {
		o.limit = limit
	}
}

// ExtractMemories returns the validated candidates found in utterance
// without storing them.
func (e *Engine) ExtractMemories(ctx context.Context, userID, utterance string) []memory.Candidate {
	return slices.Collect(e.extractor.Extract(ctx, utterance, userID))
}

// Remember extracts candidates from utterance and reconciles them into the
// user's records, bypassing intent classification.
func (e *Engine) Remember(ctx context.Context, userID, utterance string, opts ...ProcessOption) ([]memory.WriteResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(utterance) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id and message are required")
	}
	var o processOptions
	for _, opt := range opts {
		opt(&o)
	}

	writes, err := e.writer.Reconcile(ctx, userID, e.extractor.Extract(ctx, utterance, userID), memory.WithConversationID(o.conversationID))
	if err != nil {
		return writes, err
	}
	if writes == nil {
		writes = []memory.WriteResult{}
	}
	return writes, nil
}

// SearchMemories runs the retrieval waterfall for query. limit is clamped to
// MaxSearchLimit; zero or less uses the configured default.
func (e *Engine) SearchMemories(ctx context.Context, userID, query string, limit int) ([]retrieve.Result, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" || strings.TrimSpace(query) == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id and query are required")
	}
	return e.retriever.Retrieve(ctx, query, userID, min(limit, MaxSearchLimit))
}

// ListMemories returns the user's records, most recently updated first.
func (e *Engine) ListMemories(ctx context.Context, userID string, opts ...ListOption) ([]*memory.Record, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id is required")
	}
	var o listOptions
	for _, opt := range opts {
		opt(&o)
	}

	var (
		records []*memory.Record
		err     error
	)
	if o.category != "" {
		category, ok := memory.ParseCategory(string(o.category))
		if !ok {
			return nil, errors.Wrapf(errors.ErrInvalidParams, "unknown category %q", o.category)
		}
		records, err = e.store.ListByCategory(ctx, userID, category)
	} else {
		records, err = e.store.ListAll(ctx, userID)
	}
	if err != nil {
		return nil, err
	}

	if o.limit > 0 && len(records) > o.limit {
		records = records[:o.limit]
	}
	return records, nil
}

// ForgetMemories deletes every record of the user whose value contains content.
func (e *Engine) ForgetMemories(ctx context.Context, userID, content, reason string) ([]*memory.Record, error) {
	deleted, err := e.writer.Forget(ctx, strings.TrimSpace(userID), content, reason)
	if err != nil {
		return deleted, err
	}
	if deleted == nil {
		deleted = []*memory.Record{}
	}
	return deleted, nil
}

func (e *Engine) Stats(ctx context.Context, userID string) (*Stats, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, errors.Wrapf(errors.ErrInvalidParams, "user id is required")
	}

	records, err := e.store.ListAll(ctx, userID)
	if err != nil {
		return nil, err
	}
	indexed, err := e.index.Count(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Stats{
		UserID: userID,
		Total:  len(records),
		ByCategory: lo.CountValuesBy(records, func(r *memory.Record) memory.Category {
			return r.Category
		}),
		AverageConfidence: lo.MeanBy(records, func(r *memory.Record) float64 {
			return r.Confidence
		}),
		Indexed: indexed,
		InSync:  indexed == len(records),
	}, nil
}

// Health pings the store and the index and reports the oracle breaker. A
// down store fails the engine; a down index or oracle only degrades it.
func (e *Engine) Health(ctx context.Context) Health {
	h := Health{
		Status:     HealthHealthy,
		Components: make(map[string]ComponentHealth, 3),
	}

	h.Components["store"] = componentHealth(e.store.Ping(ctx))
	h.Components["index"] = componentHealth(e.index.Ping(ctx))
	switch {
	case e.oracle == nil:
		h.Components["oracle"] = ComponentHealth{Status: ComponentDisabled}
	case e.guarded != nil && e.guarded.Breaker().State() == oracle.BreakerOpen:
		h.Components["oracle"] = ComponentHealth{Status: ComponentDown, Error: "circuit breaker open"}
	default:
		h.Components["oracle"] = ComponentHealth{Status: ComponentOK}
	}

	switch {
	case h.Components["store"].Status == ComponentDown:
		h.Status = HealthFailed
	case h.Components["index"].Status == ComponentDown, h.Components["oracle"].Status == ComponentDown:
		h.Status = HealthPartial
	}

	if h.Status != HealthHealthy {
		e.logger.Warn("memory engine unhealthy",
			slog.String("status", string(h.Status)),
			slog.Any("components", h.Components),
		)
	}
	return h
}

func componentHealth(err error) ComponentHealth {
	if err != nil {
		return ComponentHealth{Status: ComponentDown, Error: err.Error()}
	}
	return ComponentHealth{Status: ComponentOK}
}
