package retrieve

import (
	"context"
	"log/slog"
	"strings"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/index"
	"github.com/habiliai/agentmemory/internal/metrics"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/samber/lo"
)

type (
	Stage string

	Result struct {
		Record *memory.Record `json:"record"`
		Score  float64        `json:"score"`
		Stage  Stage          `json:"stage"`
	}

	// Retriever finds a user's records relevant to a query. It tries nearest
	// neighbors first, then keyword matching, then the category the query is
	// about, each stage only filling what the previous ones left.
	Retriever struct {
		store           memory.Store
		index           index.Index
		embedder        index.Embedder
		topK            int
		minSimilarity   float64
		candidateFactor int
		logger          *slog.Logger
	}
)

const (
	StageVector   Stage = "vector"
	StageText     Stage = "text"
	StageCategory Stage = "category"
)

func NewRetriever(store memory.Store, idx index.Index, embedder index.Embedder, conf *config.RetrievalConfig, logger *slog.Logger) *Retriever {
	return &Retriever{
		store:           store,
		index:           idx,
		embedder:        embedder,
		topK:            conf.TopK,
		minSimilarity:   conf.MinSimilarity,
		candidateFactor: max(conf.CandidateFactor, 1),
		logger:          mylog.OrDefault(logger),
	}
}

// Retrieve returns at most topK results, most relevant first, each record at
// most once. topK <= 0 uses the configured default. Only store failures are
// returned as errors; finding nothing is an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query, userID string, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = r.topK
	}
	if strings.TrimSpace(query) == "" || userID == "" {
		return []Result{}, nil
	}

	c := collector{topK: topK, seen: make(map[string]struct{})}

	vectorResults, err := r.vectorStage(ctx, query, userID, topK)
	if err != nil {
		return nil, err
	}
	c.add(vectorResults)

	if !c.full() {
		textResults, err := r.textStage(ctx, query, userID)
		if err != nil {
			return nil, err
		}
		c.add(textResults)
	}

	if !c.full() {
		categoryResults, err := r.categoryStage(ctx, query, userID)
		if err != nil {
			return nil, err
		}
		c.add(categoryResults)
	}

	for stage, n := range c.perStage {
		metrics.RetrievalHitsTotal.WithLabelValues(string(stage)).Add(float64(n))
	}
	r.logger.Debug("memories retrieved",
		slog.String("user_id", userID),
		slog.Int(string(StageVector), c.perStage[StageVector]),
		slog.Int(string(StageText), c.perStage[StageText]),
		slog.Int(string(StageCategory), c.perStage[StageCategory]),
	)
	return c.results, nil
}

func (r *Retriever) vectorStage(ctx context.Context, query, userID string, topK int) ([]Result, error) {
	embeddings, err := r.embedder.Embed(ctx, query)
	if err != nil || len(embeddings) != 1 {
		r.logger.Warn("skipping vector search, query embedding failed",
			slog.String("user_id", userID),
			mylog.Err(err),
		)
		return nil, nil
	}

	hits, err := r.index.Query(ctx, embeddings[0], userID, topK*r.candidateFactor)
	if err != nil {
		r.logger.Warn("skipping vector search, index query failed",
			slog.String("user_id", userID),
			mylog.Err(err),
		)
		return nil, nil
	}

	hits = lo.Filter(hits, func(h index.Hit, _ int) bool {
		return h.Score >= r.minSimilarity
	})
	if len(hits) == 0 {
		return nil, nil
	}

	records, err := r.store.GetByIDs(ctx, userID, lo.Map(hits, func(h index.Hit, _ int) string {
		return h.RecordID
	}))
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to resolve vector hits")
	}
	byID := lo.KeyBy(records, func(rec *memory.Record) string {
		return rec.ID
	})

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		// vectors of deleted records and of superseded or not yet published
		// values stay in the index until the writer drops them
		if rec, ok := byID[h.RecordID]; ok && rec.EmbeddingRef == h.Ref {
			results = append(results, Result{Record: rec, Score: h.Score, Stage: StageVector})
		}
	}
	return results, nil
}

func (r *Retriever) textStage(ctx context.Context, query, userID string) ([]Result, error) {
	terms := QueryTerms(query)
	if len(terms) == 0 {
		return nil, nil
	}

	records, err := r.store.ListAll(ctx, userID)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to list memories for text search")
	}

	var results []Result
	for _, rec := range records {
		if score := TextScore(terms, rec); score > 0 {
			results = append(results, Result{Record: rec, Score: score, Stage: StageText})
		}
	}
	sortByScore(results)
	return results, nil
}

func (r *Retriever) categoryStage(ctx context.Context, query, userID string) ([]Result, error) {
	category, ok := memory.InferCategory(query)
	if !ok {
		return nil, nil
	}

	records, err := r.store.ListByCategory(ctx, userID, category)
	if err != nil {
		return nil, errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to list %s memories", category)
	}
	return lo.Map(records, func(rec *memory.Record, _ int) Result {
		return Result{Record: rec, Stage: StageCategory}
	}), nil
}

type collector struct {
	topK     int
	seen     map[string]struct{}
	results  []Result
	perStage map[Stage]int
}

func (c *collector) add(results []Result) {
	if c.perStage == nil {
		c.perStage = make(map[Stage]int)
	}
	for _, res := range results {
		if c.full() {
			return
		}
		if _, ok := c.seen[res.Record.ID]; ok {
			continue
		}
		c.seen[res.Record.ID] = struct{}{}
		c.results = append(c.results, res)
		c.perStage[res.Stage]++
	}
}

func (c *collector) full() bool {
	return len(c.results) >= c.topK
}
