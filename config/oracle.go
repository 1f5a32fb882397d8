package config

import (
	"time"

	"github.com/habiliai/agentmemory/errors"
)

const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderNone      = "none"
	ProviderHash      = "hash"
)

type (
	OracleConfig struct {
		// Provider picks the genkit plugin backing the oracle: openai, anthropic or none.
		// With none every component runs on its deterministic fallback.
		// Default: openai
		Provider string `yaml:"provider" json:"provider"`

		// Model is the genkit model name, with or without the provider prefix.
		// Default: gpt-4o-mini
		Model string `yaml:"model" json:"model"`

		OpenAIAPIKey    string `yaml:"openaiApiKey" json:"-"`
		AnthropicAPIKey string `yaml:"anthropicApiKey" json:"-"`

		// Timeout bounds a single attempt.
		// Default: 15s
		Timeout time.Duration `yaml:"timeout" json:"timeout"`

		// MaxRetries is the number of retries after the first attempt for transient failures.
		// Default: 1
		MaxRetries int `yaml:"maxRetries" json:"maxRetries"`

		// RetryBackoff is the wait before the first retry, doubled for each further one.
		// Default: 500ms
		RetryBackoff time.Duration `yaml:"retryBackoff" json:"retryBackoff"`

		Breaker BreakerConfig `yaml:"breaker" json:"breaker"`
	}

	BreakerConfig struct {
		// FailureThreshold consecutive unavailable results open the breaker.
		// Default: 5
		FailureThreshold int `yaml:"failureThreshold" json:"failureThreshold"`

		// SuccessThreshold successes while half-open close it again.
		// Default: 1
		SuccessThreshold int `yaml:"successThreshold" json:"successThreshold"`

		// CoolDown is how long the breaker stays open.
		// Default: 30s
		CoolDown time.Duration `yaml:"coolDown" json:"coolDown"`
	}

	EmbeddingConfig struct {
		// Provider is openai for genkit embeddings or hash for the deterministic offline embedder.
		// Default: openai
		Provider string `yaml:"provider" json:"provider"`

		// Model is the embedder name registered on genkit.
		// Default: text-embedding-3-small
		Model string `yaml:"model" json:"model"`

		// Dimension must match the embedder output; sqlite-vec tables are created with it.
		// Default: 1536
		Dimension int `yaml:"dimension" json:"dimension"`

		// CacheTTL controls how long embeddings of identical text are reused. Zero disables the cache.
		// Default: 10m
		CacheTTL time.Duration `yaml:"cacheTTL" json:"cacheTTL"`
	}
)

func NewOracleConfig() *OracleConfig {
	return &OracleConfig{
		Provider:     ProviderOpenAI,
		Model:        "gpt-4o-mini",
		Timeout:      15 * time.Second,
		MaxRetries:   1,
		RetryBackoff: 500 * time.Millisecond,
		Breaker: BreakerConfig{
			FailureThreshold: 5,
			SuccessThreshold: 1,
			CoolDown:         30 * time.Second,
		},
	}
}

func (c *OracleConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic, ProviderNone:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown oracle provider %q", c.Provider)
	}
	if c.Timeout <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "oracle timeout must be positive")
	}
	if c.MaxRetries < 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "oracle maxRetries must not be negative")
	}
	if c.Breaker.FailureThreshold <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "breaker failureThreshold must be positive")
	}
	return nil
}

func NewEmbeddingConfig() *EmbeddingConfig {
	return &EmbeddingConfig{
		Provider:  ProviderOpenAI,
		Model:     "text-embedding-3-small",
		Dimension: 1536,
		CacheTTL:  10 * time.Minute,
	}
}

func (c *EmbeddingConfig) Validate() error {
	switch c.Provider {
	case ProviderOpenAI, ProviderHash:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown embedding provider %q", c.Provider)
	}
	if c.Dimension <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "embedding dimension must be positive")
	}
	return nil
}
