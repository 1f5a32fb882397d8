package oracle

import (
	"context"
	"log/slog"
	"strings"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/internal/mylog"
)

// GenkitOracle answers tasks with structured generation on a genkit model.
type GenkitOracle struct {
	genkit *genkit.Genkit
	models []string
	logger *slog.Logger
}

var (
	_ Oracle = (*GenkitOracle)(nil)

	// fallbackModels are tried in order when the configured model is not registered.
	fallbackModels = []string{
		"openai/gpt-4o-mini",
		"anthropic/claude-3.5-haiku",
	}
)

func NewGenkitOracle(g *genkit.Genkit, conf *config.OracleConfig, logger *slog.Logger) *GenkitOracle {
	model := conf.Model
	if model != "" && !strings.Contains(model, "/") {
		model = conf.Provider + "/" + model
	}

	var models []string
	if model != "" {
		models = append(models, model)
	}
	models = append(models, fallbackModels...)

	return &GenkitOracle{
		genkit: g,
		models: models,
		logger: mylog.OrDefault(logger),
	}
}

func (o *GenkitOracle) Invoke(ctx context.Context, kind TaskKind, payload any, out any) error {
	prompt, err := RenderPrompt(kind, payload)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrInvalidParams), "failed to render %s prompt", kind)
	}

	model, err := o.lookupModel()
	if err != nil {
		return err
	}

	resp, err := genkit.Generate(ctx, o.genkit,
		ai.WithModel(model),
		ai.WithPrompt(prompt),
		ai.WithOutputType(out),
	)
	if err != nil {
		return errors.Wrapf(errors.Mark(err, errors.ErrOracleUnavailable), "failed to generate %s", kind)
	}

	if err := resp.Output(out); err != nil {
		o.logger.Debug("oracle output did not decode",
			slog.String("task", string(kind)),
			slog.String("text", resp.Text()),
			mylog.Err(err),
		)
		return errors.Wrapf(errors.Mark(err, errors.ErrOracleMalformed), "failed to decode %s output", kind)
	}

	return nil
}

func (o *GenkitOracle) lookupModel() (ai.Model, error) {
	for _, name := range o.models {
		provider, modelName, ok := strings.Cut(name, "/")
		if !ok {
			continue
		}
		if model := genkit.LookupModel(o.genkit, provider, modelName); model != nil {
			return model, nil
		}
	}
	return nil, errors.Wrapf(errors.ErrOracleUnavailable, "no model registered among %s; set OPENAI_API_KEY or ANTHROPIC_API_KEY", strings.Join(o.models, ", "))
}
