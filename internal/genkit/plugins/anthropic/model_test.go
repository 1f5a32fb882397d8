package anthropic

import (
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/firebase/genkit/go/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMessageParams(t *testing.T) {
	params, err := buildMessageParams(&ai.ModelRequest{
		Messages: []*ai.Message{
			ai.NewSystemTextMessage("be brief"),
			ai.NewUserTextMessage("Where do I work?"),
		},
		Config: &ai.GenerationCommonConfig{MaxOutputTokens: 256, Temperature: 0.2},
	}, "claude-3-5-haiku-latest")
	require.NoError(t, err)

	assert.Equal(t, anthropic.Model("claude-3-5-haiku-latest"), params.Model)
	assert.EqualValues(t, 256, params.MaxTokens)
	require.Len(t, params.System, 1)
	assert.Equal(t, "be brief", params.System[0].Text)
	require.Len(t, params.Messages, 1)
	assert.Equal(t, anthropic.MessageParamRoleUser, params.Messages[0].Role)
}

func TestBuildMessageParamsDefaultsMaxTokens(t *testing.T) {
	params, err := buildMessageParams(&ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("hi")},
	}, "claude-3-5-haiku-latest")
	require.NoError(t, err)
	assert.EqualValues(t, defaultMaxTokens, params.MaxTokens)
}

func TestConvertMessagesRejectsToolRole(t *testing.T) {
	_, _, err := convertMessages([]*ai.Message{{Role: ai.RoleTool}})
	assert.Error(t, err)
}

func TestStripCodeFence(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{`{"found":true}`, `{"found":true}`},
		{"```json\n{\"found\":true}\n```", `{"found":true}`},
		{"```\n{\"found\":false}\n```", `{"found":false}`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, stripCodeFence(tt.in))
	}
}
