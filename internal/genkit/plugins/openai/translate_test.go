package openai

import (
	"testing"

	"github.com/firebase/genkit/go/ai"
	goopenai "github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTranslateCandidate(t *testing.T) {
	tests := []struct {
		name     string
		choice   goopenai.ChatCompletionChoice
		jsonMode bool
		want     *ai.ModelResponse
	}{
		{
			name: "text",
			choice: goopenai.ChatCompletionChoice{
				Message:      goopenai.ChatCompletionMessage{Content: "Hello! How can I help you today?"},
				FinishReason: "length",
			},
			want: &ai.ModelResponse{
				FinishReason: ai.FinishReasonLength,
				Message: &ai.Message{
					Role:    ai.RoleModel,
					Content: []*ai.Part{ai.NewTextPart("Hello! How can I help you today?")},
				},
			},
		},
		{
			name: "json",
			choice: goopenai.ChatCompletionChoice{
				Message:      goopenai.ChatCompletionMessage{Content: `{"intent":"general_chat","confidence":0.9}`},
				FinishReason: "stop",
			},
			jsonMode: true,
			want: &ai.ModelResponse{
				FinishReason: ai.FinishReasonStop,
				Message: &ai.Message{
					Role:    ai.RoleModel,
					Content: []*ai.Part{ai.NewDataPart(`{"intent":"general_chat","confidence":0.9}`)},
				},
			},
		},
		{
			name: "blocked",
			choice: goopenai.ChatCompletionChoice{
				Message:      goopenai.ChatCompletionMessage{Content: ""},
				FinishReason: "content_filter",
			},
			want: &ai.ModelResponse{
				FinishReason: ai.FinishReasonBlocked,
				Message: &ai.Message{
					Role:    ai.RoleModel,
					Content: []*ai.Part{ai.NewTextPart("")},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r ai.ModelResponse
			translateCandidate(tt.choice, tt.jsonMode, &r)
			assert.Equal(t, tt.want, &r)
		})
	}
}

func TestConvertMessages(t *testing.T) {
	msgs, err := convertMessages([]*ai.Message{
		ai.NewSystemTextMessage("be brief"),
		ai.NewUserMessage(ai.NewTextPart("What is "), ai.NewTextPart("my name?")),
		ai.NewModelTextMessage("Sarah"),
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.NotNil(t, msgs[0].OfSystem)
	require.NotNil(t, msgs[1].OfUser)
	assert.Equal(t, "What is my name?", msgs[1].OfUser.Content.OfString.Value)
	assert.NotNil(t, msgs[2].OfAssistant)

	_, err = convertMessages([]*ai.Message{{Role: ai.RoleTool}})
	assert.Error(t, err)
}

func TestConvertRequestJSONMode(t *testing.T) {
	req, err := convertRequest(goopenai.ChatModelGPT4oMini, &ai.ModelRequest{
		Messages: []*ai.Message{ai.NewUserTextMessage("hi")},
		Output:   &ai.ModelOutputConfig{Format: ai.OutputFormatJSON},
	})
	require.NoError(t, err)
	assert.NotNil(t, req.ResponseFormat.OfJSONObject)
	assert.Equal(t, goopenai.ChatModelGPT4oMini, req.Model)

	_, err = convertRequest(goopenai.ChatModelGPT4oMini, &ai.ModelRequest{
		Output: &ai.ModelOutputConfig{Format: "yaml"},
	})
	assert.Error(t, err)
}
