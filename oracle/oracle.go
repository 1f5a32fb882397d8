// Package oracle is the boundary to the language model. Every component that
// asks the model something goes through Oracle.Invoke with one of four task
// kinds and gets back either a decoded result or a typed failure:
// errors.ErrOracleUnavailable when no usable answer arrived in time, or
// errors.ErrOracleMalformed when an answer arrived but did not decode.
package oracle

import (
	"context"
)

type TaskKind string

const (
	TaskClassify   TaskKind = "classify"
	TaskExtract    TaskKind = "extract"
	TaskSynthesize TaskKind = "synthesize"
	TaskChat       TaskKind = "chat"
)

type (
	Oracle interface {
		// Invoke runs task kind on payload and decodes the answer into out,
		// which must be a pointer to the result type matching kind.
		Invoke(ctx context.Context, kind TaskKind, payload any, out any) error
	}

	ClassifyPayload struct {
		Utterance string   `json:"utterance"`
		Intents   []string `json:"intents"`
	}

	ClassifyResult struct {
		Intent     string  `json:"intent" jsonschema:"required,description=One of the offered intents"`
		Confidence float64 `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
	}

	ExtractPayload struct {
		Utterance  string   `json:"utterance"`
		Categories []string `json:"categories"`
		Keys       []string `json:"keys"`
	}

	ExtractedMemory struct {
		Category   string  `json:"category" jsonschema:"required"`
		Key        string  `json:"key" jsonschema:"required,description=Short snake_case label such as name or employer"`
		Value      string  `json:"value" jsonschema:"required,description=The fact as the user stated it"`
		Confidence float64 `json:"confidence" jsonschema:"required,minimum=0,maximum=1"`
	}

	ExtractResult struct {
		Memories []ExtractedMemory `json:"memories"`
	}

	SynthesizeRecord struct {
		ID       string `json:"id"`
		Category string `json:"category"`
		Key      string `json:"key"`
		Value    string `json:"value"`
	}

	SynthesizePayload struct {
		Query   string             `json:"query"`
		Records []SynthesizeRecord `json:"records"`
	}

	SynthesizeResult struct {
		Answer    string   `json:"answer" jsonschema:"description=The shortest span of a record value that answers the question"`
		RecordIDs []string `json:"record_ids" jsonschema:"description=Ids of the records the answer was taken from"`
		Found     bool     `json:"found" jsonschema:"required"`
	}

	ChatPayload struct {
		Utterance string `json:"utterance"`
	}

	ChatResult struct {
		Reply string `json:"reply" jsonschema:"required"`
	}
)
