package memory

import (
	"time"
)

type (
	Category string

	// Record is a persisted fact about a user. At most one record exists per
	// (UserID, Category, Key); a newer value overwrites it in place.
	Record struct {
		ID             string    `json:"id"`
		UserID         string    `json:"user_id"`
		Category       Category  `json:"category"`
		Key            string    `json:"key"`
		Value          string    `json:"value"`
		Confidence     float64   `json:"confidence"`
		ConversationID string    `json:"conversation_id,omitempty"`
		EmbeddingRef   string    `json:"embedding_ref,omitempty"`
		CreatedAt      time.Time `json:"created_at"`
		UpdatedAt      time.Time `json:"updated_at"`
	}

	// Candidate is a transient extraction. It is either reconciled into a Record or discarded.
	Candidate struct {
		Category   Category `json:"category" jsonschema:"enum=preference,enum=tool,enum=personal,enum=work,enum=other,description=The category of the fact"`
		Key        string   `json:"key" jsonschema:"description=Short snake_case label of what the value answers (e.g. name, employer, editor)"`
		Value      string   `json:"value" jsonschema:"description=The fact itself, as stated by the user"`
		Confidence float64  `json:"confidence" jsonschema:"minimum=0,maximum=1,description=Confidence that the fact was stated (0.0~1.0)"`
	}

	Outcome string

	WriteResult struct {
		Candidate Candidate `json:"candidate"`
		Outcome   Outcome   `json:"outcome"`
		RecordID  string    `json:"record_id,omitempty"`
	}
)

const (
	CategoryPreference Category = "preference"
	CategoryTool       Category = "tool"
	CategoryPersonal   Category = "personal"
	CategoryWork       Category = "work"
	CategoryOther      Category = "other"

	OutcomeCreated Outcome = "created"
	OutcomeUpdated Outcome = "updated"
	OutcomeSkipped Outcome = "skipped"
)

var Categories = []Category{
	CategoryPreference,
	CategoryTool,
	CategoryPersonal,
	CategoryWork,
	CategoryOther,
}

func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}

// SlotKey identifies the slot a candidate or record occupies for one user.
func (c Candidate) SlotKey() string {
	return string(c.Category) + "/" + c.Key
}

func (r *Record) SlotKey() string {
	return string(r.Category) + "/" + r.Key
}
