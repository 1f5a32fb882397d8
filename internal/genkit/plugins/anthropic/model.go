package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
)

const defaultMaxTokens = 1024

var textOnly = ai.ModelSupports{
	Multiturn:  true,
	SystemRole: true,
}

// DefineModel creates and registers a text generation model with Genkit.
func DefineModel(g *genkit.Genkit, client *anthropic.Client, modelName, apiModelName string) ai.Model {
	caps := textOnly
	meta := &ai.ModelInfo{
		Label:    labelPrefix + " - " + modelName,
		Supports: &caps,
	}

	return genkit.DefineModel(
		g,
		provider,
		modelName,
		meta,
		func(ctx context.Context, req *ai.ModelRequest, _ core.StreamCallback[*ai.ModelResponseChunk]) (*ai.ModelResponse, error) {
			return generate(ctx, client, req, apiModelName)
		},
	)
}

func generate(ctx context.Context, client *anthropic.Client, genRequest *ai.ModelRequest, apiModelName string) (*ai.ModelResponse, error) {
	params, err := buildMessageParams(genRequest, apiModelName)
	if err != nil {
		return nil, err
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("anthropic message generation failed: %w", err)
	}

	jsonMode := genRequest.Output != nil && genRequest.Output.Format == ai.OutputFormatJSON
	r := translateResponse(*resp, jsonMode)
	r.Request = genRequest
	return r, nil
}

func buildMessageParams(genRequest *ai.ModelRequest, apiModelName string) (anthropic.MessageNewParams, error) {
	messages, systems, err := convertMessages(genRequest.Messages)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(apiModelName),
		Messages:  messages,
		MaxTokens: defaultMaxTokens,
	}
	for _, system := range systems {
		if strings.TrimSpace(system) == "" {
			continue
		}
		params.System = append(params.System, anthropic.TextBlockParam{
			Text: system,
		})
	}

	if genRequest.Config != nil {
		jsonBytes, err := json.Marshal(genRequest.Config)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		var config ai.GenerationCommonConfig
		if err := json.Unmarshal(jsonBytes, &config); err != nil {
			return anthropic.MessageNewParams{}, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		if config.MaxOutputTokens > 0 {
			params.MaxTokens = int64(config.MaxOutputTokens)
		}
		if config.Temperature > 0 {
			params.Temperature = anthropic.Float(config.Temperature)
		}
		if config.TopP > 0 {
			params.TopP = anthropic.Float(config.TopP)
		}
		if len(config.StopSequences) > 0 {
			params.StopSequences = config.StopSequences
		}
	}

	return params, nil
}

func convertMessages(messages []*ai.Message) ([]anthropic.MessageParam, []string, error) {
	var (
		systems           []string
		anthropicMessages []anthropic.MessageParam
	)

	for _, msg := range messages {
		var blocks []anthropic.ContentBlockParamUnion
		for _, part := range msg.Content {
			if (part.IsText() || part.IsData()) && part.Text != "" {
				blocks = append(blocks, anthropic.NewTextBlock(part.Text))
			}
		}

		switch msg.Role {
		case ai.RoleSystem:
			for _, part := range msg.Content {
				if part.IsText() && part.Text != "" {
					systems = append(systems, part.Text)
				}
			}
		case ai.RoleUser:
			anthropicMessages = append(anthropicMessages, anthropic.NewUserMessage(blocks...))
		case ai.RoleModel:
			anthropicMessages = append(anthropicMessages, anthropic.NewAssistantMessage(blocks...))
		default:
			return nil, nil, fmt.Errorf("unsupported message role: %s", msg.Role)
		}
	}

	return anthropicMessages, systems, nil
}

func translateResponse(resp anthropic.Message, jsonMode bool) *ai.ModelResponse {
	r := &ai.ModelResponse{}

	var sb strings.Builder
	for _, content := range resp.Content {
		if block, ok := content.AsAny().(anthropic.TextBlock); ok {
			sb.WriteString(block.Text)
		}
	}

	m := &ai.Message{
		Role: ai.RoleModel,
	}
	if jsonMode {
		m.Content = []*ai.Part{ai.NewDataPart(stripCodeFence(sb.String()))}
	} else {
		m.Content = []*ai.Part{ai.NewTextPart(sb.String())}
	}
	r.Message = m

	switch resp.StopReason {
	case anthropic.StopReasonEndTurn, anthropic.StopReasonStopSequence, anthropic.StopReasonToolUse:
		r.FinishReason = ai.FinishReasonStop
	case anthropic.StopReasonMaxTokens:
		r.FinishReason = ai.FinishReasonLength
	default:
		if resp.StopReason != "" {
			r.FinishReason = ai.FinishReasonOther
		}
	}

	if resp.Usage.InputTokens > 0 || resp.Usage.OutputTokens > 0 {
		r.Usage = &ai.GenerationUsage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
			TotalTokens:  int(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		}
	}

	return r
}

// stripCodeFence removes a ```json fence Claude sometimes wraps JSON in.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
