package openai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/firebase/genkit/go/ai"
	goopenai "github.com/openai/openai-go"
	"github.com/openai/openai-go/shared"
)

func convertRequest(model string, input *ai.ModelRequest) (goopenai.ChatCompletionNewParams, error) {
	messages, err := convertMessages(input.Messages)
	if err != nil {
		return goopenai.ChatCompletionNewParams{}, err
	}

	req := goopenai.ChatCompletionNewParams{
		Model:    goopenai.ChatModel(model),
		Messages: messages,
	}

	if input.Config != nil {
		jsonBytes, err := json.Marshal(input.Config)
		if err != nil {
			return goopenai.ChatCompletionNewParams{}, err
		}
		var c ai.GenerationCommonConfig
		if err := json.Unmarshal(jsonBytes, &c); err == nil {
			if c.MaxOutputTokens != 0 {
				req.MaxCompletionTokens = goopenai.Int(int64(c.MaxOutputTokens))
			}
			if c.Temperature != 0 {
				req.Temperature = goopenai.Float(c.Temperature)
			}
			if c.TopP != 0 {
				req.TopP = goopenai.Float(c.TopP)
			}
		}
	}

	if input.Output != nil && input.Output.Format != "" {
		switch input.Output.Format {
		case ai.OutputFormatJSON:
			req.ResponseFormat = goopenai.ChatCompletionNewParamsResponseFormatUnion{
				OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
			}
		case ai.OutputFormatText:
			req.ResponseFormat = goopenai.ChatCompletionNewParamsResponseFormatUnion{
				OfText: &shared.ResponseFormatTextParam{},
			}
		default:
			return goopenai.ChatCompletionNewParams{}, fmt.Errorf("unknown output format in a request: %s", input.Output.Format)
		}
	}

	return req, nil
}

// convertMessages flattens each message to its text. The memory tasks never
// send media or tools.
func convertMessages(messages []*ai.Message) ([]goopenai.ChatCompletionMessageParamUnion, error) {
	var msgs []goopenai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		text := messageText(m)
		switch m.Role {
		case ai.RoleSystem:
			msgs = append(msgs, goopenai.SystemMessage(text))
		case ai.RoleUser:
			msgs = append(msgs, goopenai.UserMessage(text))
		case ai.RoleModel:
			msgs = append(msgs, goopenai.AssistantMessage(text))
		default:
			return nil, fmt.Errorf("unsupported message role: %s", m.Role)
		}
	}
	return msgs, nil
}

func messageText(m *ai.Message) string {
	var sb strings.Builder
	for _, p := range m.Content {
		if p.IsText() || p.IsData() {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func translateResponse(resp *goopenai.ChatCompletion, jsonMode bool) *ai.ModelResponse {
	r := &ai.ModelResponse{}
	translateCandidate(resp.Choices[0], jsonMode, r)

	r.Usage = &ai.GenerationUsage{
		InputTokens:  int(resp.Usage.PromptTokens),
		OutputTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:  int(resp.Usage.TotalTokens),
	}
	r.Custom = resp
	return r
}

func translateCandidate(choice goopenai.ChatCompletionChoice, jsonMode bool, r *ai.ModelResponse) {
	switch choice.FinishReason {
	case "stop", "tool_calls":
		r.FinishReason = ai.FinishReasonStop
	case "length":
		r.FinishReason = ai.FinishReasonLength
	case "content_filter":
		r.FinishReason = ai.FinishReasonBlocked
	case "function_call":
		r.FinishReason = ai.FinishReasonOther
	default:
		r.FinishReason = ai.FinishReasonUnknown
	}

	m := &ai.Message{
		Role: ai.RoleModel,
	}
	if jsonMode {
		m.Content = append(m.Content, ai.NewDataPart(choice.Message.Content))
	} else {
		m.Content = append(m.Content, ai.NewTextPart(choice.Message.Content))
	}
	r.Message = m
}
