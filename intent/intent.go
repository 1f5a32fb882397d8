package intent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/metrics"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/oracle"
)

type (
	Intent string
	Source string

	Result struct {
		Intent     Intent  `json:"intent"`
		Confidence float64 `json:"confidence"`
		Source     Source  `json:"source"`
	}

	// Classifier decides what an utterance asks of the memory engine. The
	// oracle is consulted first; the rules always produce an answer.
	Classifier struct {
		oracle        oracle.Oracle
		minConfidence float64
		logger        *slog.Logger
	}
)

const (
	MemoryQuery      Intent = "memory_query"
	InformationShare Intent = "information_share"
	GeneralChat      Intent = "general_chat"

	SourceOracle Source = "oracle"
	SourceRules  Source = "rules"
)

var Intents = []Intent{MemoryQuery, InformationShare, GeneralChat}

func ParseIntent(s string) (Intent, bool) {
	i := Intent(strings.ToLower(strings.TrimSpace(s)))
	switch i {
	case MemoryQuery, InformationShare, GeneralChat:
		return i, true
	default:
		return "", false
	}
}

// NewClassifier builds a Classifier. o may be nil, in which case only the
// rules run.
func NewClassifier(o oracle.Oracle, conf *config.IntentConfig, logger *slog.Logger) *Classifier {
	return &Classifier{
		oracle:        o,
		minConfidence: conf.MinConfidence,
		logger:        mylog.OrDefault(logger),
	}
}

// Classify never fails; when the oracle cannot be used the rules decide.
func (c *Classifier) Classify(ctx context.Context, utterance, userID string) Result {
	result, ok := c.classifyWithOracle(ctx, utterance, userID)
	if !ok {
		result = ClassifyRules(utterance)
	}
	metrics.ClassificationsTotal.WithLabelValues(string(result.Intent), string(result.Source)).Inc()
	return result
}

func (c *Classifier) classifyWithOracle(ctx context.Context, utterance, userID string) (Result, bool) {
	if c.oracle == nil || strings.TrimSpace(utterance) == "" {
		return Result{}, false
	}

	payload := oracle.ClassifyPayload{
		Utterance: utterance,
		Intents:   []string{string(MemoryQuery), string(InformationShare), string(GeneralChat)},
	}
	var out oracle.ClassifyResult
	if err := c.oracle.Invoke(ctx, oracle.TaskClassify, payload, &out); err != nil {
		level := slog.LevelWarn
		if errors.Is(err, errors.ErrOracleUnavailable) {
			level = slog.LevelInfo
		}
		c.logger.Log(ctx, level, "oracle classification failed, using rules",
			slog.String("user_id", userID),
			mylog.Err(err),
		)
		return Result{}, false
	}

	i, ok := ParseIntent(out.Intent)
	if !ok {
		c.logger.Warn("oracle returned an unknown intent, using rules",
			slog.String("user_id", userID),
			slog.String("intent", out.Intent),
		)
		return Result{}, false
	}
	confidence := min(out.Confidence, 1)
	if confidence < c.minConfidence {
		c.logger.Debug("oracle classification below threshold, using rules",
			slog.String("intent", string(i)),
			slog.Float64("confidence", confidence),
		)
		return Result{}, false
	}

	return Result{Intent: i, Confidence: confidence, Source: SourceOracle}, true
}
