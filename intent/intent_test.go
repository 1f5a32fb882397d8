package intent_test

import (
	"testing"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/intent"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/habiliai/agentmemory/oracle/oracletest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyOffline(t *testing.T) {
	c := intent.NewClassifier(oracletest.Unavailable(), config.NewIntentConfig(), mylog.Discard())

	tests := map[string]intent.Intent{
		"Hi there!":           intent.GeneralChat,
		"I use VS Code":       intent.InformationShare,
		"What tool do I use?": intent.MemoryQuery,
	}
	for utterance, want := range tests {
		got := c.Classify(t.Context(), utterance, "alice")
		assert.Equal(t, want, got.Intent, utterance)
		assert.Equal(t, intent.SourceRules, got.Source, utterance)
	}
}

func TestClassifyWithoutOracle(t *testing.T) {
	c := intent.NewClassifier(nil, config.NewIntentConfig(), mylog.Discard())
	got := c.Classify(t.Context(), "I use VS Code", "alice")
	assert.Equal(t, intent.InformationShare, got.Intent)
}

func TestClassifyWithOracle(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		want   intent.Intent
		source intent.Source
	}{
		{
			name:   "confident answer is used",
			raw:    `{"intent":"Memory_Query","confidence":0.93}`,
			want:   intent.MemoryQuery,
			source: intent.SourceOracle,
		},
		{
			name:   "low confidence falls back",
			raw:    `{"intent":"memory_query","confidence":0.4}`,
			want:   intent.InformationShare,
			source: intent.SourceRules,
		},
		{
			name:   "unknown intent falls back",
			raw:    `{"intent":"small_talk","confidence":0.99}`,
			want:   intent.InformationShare,
			source: intent.SourceRules,
		},
		{
			name:   "malformed output falls back",
			raw:    `{"intent": 3`,
			want:   intent.InformationShare,
			source: intent.SourceRules,
		},
		{
			name:   "empty output falls back",
			raw:    ``,
			want:   intent.InformationShare,
			source: intent.SourceRules,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := oracletest.NewScripted(map[oracle.TaskKind]string{oracle.TaskClassify: tt.raw})
			c := intent.NewClassifier(o, config.NewIntentConfig(), mylog.Discard())

			got := c.Classify(t.Context(), "I use VS Code", "alice")
			assert.Equal(t, tt.want, got.Intent)
			assert.Equal(t, tt.source, got.Source)
			require.Equal(t, 1, o.Calls(oracle.TaskClassify))
		})
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	o := oracletest.NewScripted(map[oracle.TaskKind]string{
		oracle.TaskClassify: `{"intent":"general_chat","confidence":7}`,
	})
	c := intent.NewClassifier(o, config.NewIntentConfig(), mylog.Discard())
	got := c.Classify(t.Context(), "Tell me a joke", "alice")
	assert.Equal(t, 1.0, got.Confidence)
}

func TestClassifySkipsOracleForEmptyInput(t *testing.T) {
	o := oracletest.NewScripted(nil)
	c := intent.NewClassifier(o, config.NewIntentConfig(), mylog.Discard())
	got := c.Classify(t.Context(), "  ", "alice")
	assert.Equal(t, intent.GeneralChat, got.Intent)
	assert.Equal(t, 0, o.Calls(oracle.TaskClassify))
}
