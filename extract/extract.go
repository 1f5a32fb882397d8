package extract

import (
	"context"
	"iter"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/internal/stringutils"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/samber/lo"
)

// Extractor turns an utterance into validated memory candidates.
type Extractor struct {
	oracle          oracle.Oracle
	minConfidence   float64
	patternFallback bool
	logger          *slog.Logger
}

func NewExtractor(o oracle.Oracle, conf *config.ExtractConfig, logger *slog.Logger) *Extractor {
	return &Extractor{
		oracle:          o,
		minConfidence:   conf.MinConfidence,
		patternFallback: conf.PatternFallback,
		logger:          mylog.OrDefault(logger),
	}
}

// Extract returns the candidates found in utterance. Nothing runs until the
// sequence is first ranged over, and it can be ranged over only once; later
// iterations yield nothing.
func (e *Extractor) Extract(ctx context.Context, utterance, userID string) iter.Seq[memory.Candidate] {
	var consumed atomic.Bool
	return func(yield func(memory.Candidate) bool) {
		if consumed.Swap(true) {
			return
		}
		for _, c := range e.extract(ctx, utterance, userID) {
			if !yield(c) {
				return
			}
		}
	}
}

func (e *Extractor) extract(ctx context.Context, utterance, userID string) []memory.Candidate {
	if strings.TrimSpace(utterance) == "" {
		return nil
	}
	if e.oracle == nil {
		return e.fallback(utterance)
	}

	payload := oracle.ExtractPayload{
		Utterance: utterance,
		Categories: lo.Map(memory.Categories, func(c memory.Category, _ int) string {
			return string(c)
		}),
		Keys: memory.KeyVocabulary,
	}
	var out oracle.ExtractResult
	if err := e.oracle.Invoke(ctx, oracle.TaskExtract, payload, &out); err != nil {
		if errors.Is(err, errors.ErrOracleMalformed) {
			e.logger.Warn("discarding malformed extraction",
				slog.String("user_id", userID),
				mylog.Err(err),
			)
			return nil
		}
		e.logger.Warn("oracle extraction unavailable",
			slog.String("user_id", userID),
			slog.Bool("pattern_fallback", e.patternFallback),
			mylog.Err(err),
		)
		return e.fallback(utterance)
	}

	candidates := make([]memory.Candidate, 0, len(out.Memories))
	for _, m := range out.Memories {
		c, ok := e.validate(m)
		if !ok {
			e.logger.Debug("dropping invalid candidate",
				slog.String("category", m.Category),
				slog.String("key", m.Key),
				slog.Float64("confidence", m.Confidence),
			)
			continue
		}
		candidates = append(candidates, c)
	}
	return candidates
}

func (e *Extractor) fallback(utterance string) []memory.Candidate {
	if !e.patternFallback {
		return nil
	}
	return lo.Filter(MatchPatterns(utterance), func(c memory.Candidate, _ int) bool {
		return c.Confidence >= e.minConfidence
	})
}

func (e *Extractor) validate(m oracle.ExtractedMemory) (memory.Candidate, bool) {
	category, ok := memory.ParseCategory(m.Category)
	if !ok {
		return memory.Candidate{}, false
	}
	value := stringutils.CleanValue(m.Value)
	if value == "" {
		return memory.Candidate{}, false
	}
	key := memory.NormalizeKey(m.Key)
	if key == "" {
		return memory.Candidate{}, false
	}
	confidence := min(m.Confidence, 1)
	if confidence < e.minConfidence {
		return memory.Candidate{}, false
	}
	return memory.Candidate{
		Category:   category,
		Key:        key,
		Value:      value,
		Confidence: confidence,
	}, true
}
