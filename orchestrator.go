package agentmemory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/intent"
	"github.com/habiliai/agentmemory/internal/metrics"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/samber/lo"
)

type (
	Outcome string

	// Response is what a single turn produces. It is always populated, also
	// when a collaborator failed along the way.
	Response struct {
		Response      string               `json:"response"`
		Outcome       Outcome              `json:"outcome"`
		Intent        intent.Intent        `json:"intent,omitempty"`
		Confidence    float64              `json:"confidence"`
		Writes        []memory.WriteResult `json:"writes,omitempty"`
		SupportingIDs []string             `json:"supporting_ids,omitempty"`
		Memories      []*memory.Record     `json:"memories,omitempty"`
	}

	ProcessOption func(*processOptions)

	processOptions struct {
		conversationID string
	}
)

const (
	OutcomeMemoryStored    Outcome = "memory_stored"
	OutcomeMemoryUnchanged Outcome = "memory_unchanged"
	OutcomeMemoryNotStored Outcome = "memory_not_stored"
	OutcomeAnswered        Outcome = "answered"
	OutcomeNotFound        Outcome = "not_found"
	OutcomeChat            Outcome = "chat"
	OutcomeDegraded        Outcome = "degraded"
	OutcomeInvalidRequest  Outcome = "invalid_request"
)

const (
	replyGreeting       = "Hello! How can I help you today?"
	replyClarify        = "I'd be happy to help! Could you provide more details about what you're looking for?"
	replyAcknowledge    = "I understand. How can I assist you further?"
	replyNotFound       = "I don't have any specific information about that yet. If you share details about it, I'll remember it for future conversations!"
	replyVerbatimPrefix = "Based on what I remember: "
	replyStored         = "Got it! I'll remember that."
	replyUnchanged      = "Thanks! I already have that noted."
	replyNothingToStore = "Thanks for sharing! I didn't find anything specific to remember in that."
	replyNotStored      = "Thanks for sharing! I couldn't save that right now, so it won't be remembered."
	replyPartlyStored   = "I saved part of that, but couldn't save everything right now. You may want to tell me the rest again later."
	replyDegraded       = "I'm having trouble reaching my memory right now. Please try again in a moment."
	replyInvalidRequest = "A user id is required."
)

// WithConversationID records which conversation stored memories came from.
func WithConversationID(id string) ProcessOption {
	return func(o *processOptions) {
		o.conversationID = id
	}
}

// ProcessAndChat handles one user utterance end to end. It never fails:
// collaborator errors turn into the degraded outcomes of the returned response.
func (e *Engine) ProcessAndChat(ctx context.Context, userID, utterance string, opts ...ProcessOption) *Response {
	var o processOptions
	for _, opt := range opts {
		opt(&o)
	}

	resp := e.process(ctx, strings.TrimSpace(userID), utterance, o)
	metrics.TurnsTotal.WithLabelValues(string(resp.Intent), string(resp.Outcome)).Inc()
	return resp
}

func (e *Engine) process(ctx context.Context, userID, utterance string, o processOptions) *Response {
	if userID == "" {
		return &Response{Response: replyInvalidRequest, Outcome: OutcomeInvalidRequest}
	}

	classified := e.classifier.Classify(ctx, utterance, userID)
	e.logger.Debug("utterance classified",
		slog.String("user_id", userID),
		slog.String("intent", string(classified.Intent)),
		slog.Float64("confidence", classified.Confidence),
		slog.String("source", string(classified.Source)),
	)

	var resp *Response
	switch classified.Intent {
	case intent.InformationShare:
		resp = e.share(ctx, userID, utterance, o)
	case intent.MemoryQuery:
		resp = e.query(ctx, userID, utterance)
	default:
		resp = e.chat(ctx, userID, utterance)
	}
	resp.Intent = classified.Intent
	resp.Confidence = classified.Confidence
	return resp
}

func (e *Engine) share(ctx context.Context, userID, utterance string, o processOptions) *Response {
	candidates := e.extractor.Extract(ctx, utterance, userID)
	writes, err := e.writer.Reconcile(ctx, userID, candidates, memory.WithConversationID(o.conversationID))
	if err != nil {
		e.logger.Error("failed to store memories",
			slog.String("user_id", userID),
			slog.Int("written", len(writes)),
			mylog.Err(err),
		)
		// writes that landed before the failure stay committed
		if landed(writes) {
			return &Response{Response: replyPartlyStored, Outcome: OutcomeMemoryStored, Writes: writes}
		}
		return &Response{Response: replyNotStored, Outcome: OutcomeMemoryNotStored, Writes: writes}
	}

	switch {
	case len(writes) == 0:
		return &Response{Response: replyNothingToStore, Outcome: OutcomeMemoryNotStored, Writes: writes}
	case landed(writes):
		return &Response{Response: replyStored, Outcome: OutcomeMemoryStored, Writes: writes}
	default:
		return &Response{Response: replyUnchanged, Outcome: OutcomeMemoryUnchanged, Writes: writes}
	}
}

func landed(writes []memory.WriteResult) bool {
	return lo.SomeBy(writes, func(w memory.WriteResult) bool {
		return w.Outcome == memory.OutcomeCreated || w.Outcome == memory.OutcomeUpdated
	})
}

func (e *Engine) query(ctx context.Context, userID, utterance string) *Response {
	results, err := e.retriever.Retrieve(ctx, utterance, userID, 0)
	if err != nil {
		e.logger.Error("failed to retrieve memories",
			slog.String("user_id", userID),
			mylog.Err(err),
		)
		return &Response{Response: replyDegraded, Outcome: OutcomeDegraded}
	}

	records := lo.Map(results, func(r retrieve.Result, _ int) *memory.Record {
		return r.Record
	})
	ans := e.synthesizer.Synthesize(ctx, utterance, records)
	if !ans.Found {
		return &Response{Response: replyNotFound, Outcome: OutcomeNotFound}
	}

	text := ans.Text
	if !ans.Grounded {
		text = replyVerbatimPrefix + text
	}
	return &Response{
		Response:      text,
		Outcome:       OutcomeAnswered,
		SupportingIDs: ans.SupportingIDs,
		Memories:      records,
	}
}

func (e *Engine) chat(ctx context.Context, userID, utterance string) *Response {
	if e.oracle != nil && strings.TrimSpace(utterance) != "" {
		var out oracle.ChatResult
		err := e.oracle.Invoke(ctx, oracle.TaskChat, oracle.ChatPayload{Utterance: utterance}, &out)
		if err == nil && strings.TrimSpace(out.Reply) != "" {
			return &Response{Response: strings.TrimSpace(out.Reply), Outcome: OutcomeChat}
		}
		if err == nil {
			err = errors.Wrapf(errors.ErrOracleMalformed, "empty chat reply")
		}
		e.logger.Warn("falling back to canned chat reply",
			slog.String("user_id", userID),
			mylog.Err(err),
		)
	}
	return &Response{Response: cannedReply(utterance), Outcome: OutcomeChat}
}

func cannedReply(utterance string) string {
	switch {
	case intent.IsGreeting(utterance):
		return replyGreeting
	case intent.IsWhQuestion(utterance):
		return replyClarify
	default:
		return replyAcknowledge
	}
}
