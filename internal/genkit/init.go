package genkit

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/genkit/plugins/anthropic"
	"github.com/habiliai/agentmemory/internal/genkit/plugins/openai"
)

// NewGenkit initializes genkit with a plugin per provider that has an API key.
// OpenAI is registered whenever its key is present so that embeddings work
// with an Anthropic oracle.
func NewGenkit(ctx context.Context, oracleConf *config.OracleConfig, logConf *config.LogConfig, logger *slog.Logger) (*genkit.Genkit, error) {
	var (
		plugins      []genkit.Plugin
		defaultModel string
	)
	if oracleConf.OpenAIAPIKey != "" {
		plugins = append(plugins, &openai.Plugin{
			APIKey: oracleConf.OpenAIAPIKey,
		})
		defaultModel = "openai/gpt-4o-mini"
	}
	if oracleConf.AnthropicAPIKey != "" {
		plugins = append(plugins, &anthropic.Plugin{
			APIKey:         oracleConf.AnthropicAPIKey,
			RequestTimeout: oracleConf.Timeout,
		})
		if defaultModel == "" || oracleConf.Provider == config.ProviderAnthropic {
			defaultModel = "anthropic/claude-3.5-haiku"
		}
	}

	var (
		g   *genkit.Genkit
		err error
	)
	if defaultModel != "" {
		g, err = genkit.Init(ctx, genkit.WithPlugins(plugins...), genkit.WithDefaultModel(defaultModel))
	} else {
		g, err = genkit.Init(ctx, genkit.WithPlugins(plugins...))
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to init genkit")
	}

	genkit.RegisterSpanProcessor(g,
		&loggingSpanProcessor{
			verbose: logConf.TraceVerbose,
			logger:  logger,
		},
	)

	return g, nil
}
