package answer

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/samber/lo"
)

type (
	Answer struct {
		Text          string   `json:"text"`
		SupportingIDs []string `json:"supporting_ids"`
		Found         bool     `json:"found"`
		// Grounded is false when Text is a record value returned verbatim.
		Grounded bool `json:"grounded"`
	}

	// Synthesizer pulls the span that answers a query out of retrieved
	// records. An answer is only trusted when it can be found in a record.
	Synthesizer struct {
		oracle     oracle.Oracle
		minOverlap float64
		logger     *slog.Logger
	}
)

func NewSynthesizer(o oracle.Oracle, conf *config.AnswerConfig, logger *slog.Logger) *Synthesizer {
	return &Synthesizer{
		oracle:     o,
		minOverlap: conf.MinOverlap,
		logger:     mylog.OrDefault(logger),
	}
}

// Synthesize answers query from records, which are ordered most relevant
// first. It falls back to the first record's value whenever the oracle
// cannot produce a grounded answer.
func (s *Synthesizer) Synthesize(ctx context.Context, query string, records []*memory.Record) Answer {
	if len(records) == 0 {
		return Answer{Found: false}
	}
	if s.oracle == nil {
		return verbatim(records)
	}

	payload := oracle.SynthesizePayload{
		Query: query,
		Records: lo.Map(records, func(r *memory.Record, _ int) oracle.SynthesizeRecord {
			return oracle.SynthesizeRecord{
				ID:       r.ID,
				Category: string(r.Category),
				Key:      r.Key,
				Value:    r.Value,
			}
		}),
	}
	var out oracle.SynthesizeResult
	if err := s.oracle.Invoke(ctx, oracle.TaskSynthesize, payload, &out); err != nil {
		s.logger.Warn("oracle synthesis failed, answering verbatim", mylog.Err(err))
		return verbatim(records)
	}

	text := strings.TrimSpace(out.Answer)
	if !out.Found || text == "" {
		s.logger.Debug("oracle found no answer in retrieved records, answering verbatim",
			slog.Int("records", len(records)),
		)
		return verbatim(records)
	}

	ids := s.ground(text, records, out.RecordIDs)
	if len(ids) == 0 {
		s.logger.Warn("discarding ungrounded answer",
			slog.String("answer", text),
		)
		return verbatim(records)
	}

	return Answer{
		Text:          text,
		SupportingIDs: ids,
		Found:         true,
		Grounded:      true,
	}
}

// ground returns the ids of records that contain text. Ids the oracle named
// win when any of them ground the answer.
func (s *Synthesizer) ground(text string, records []*memory.Record, named []string) []string {
	grounding := lo.FilterMap(records, func(r *memory.Record, _ int) (string, bool) {
		return r.ID, Grounded(text, r.Value, s.minOverlap)
	})

	preferred := lo.Filter(grounding, func(id string, _ int) bool {
		return slices.Contains(named, id)
	})
	if len(preferred) > 0 {
		return preferred
	}
	return grounding
}

func verbatim(records []*memory.Record) Answer {
	return Answer{
		Text:          records[0].Value,
		SupportingIDs: []string{records[0].ID},
		Found:         true,
		Grounded:      false,
	}
}
