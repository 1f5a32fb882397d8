package config

import (
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/habiliai/agentmemory/errors"
	"github.com/joho/godotenv"
)

type Config struct {
	Log       LogConfig       `yaml:"log" json:"log"`
	Oracle    OracleConfig    `yaml:"oracle" json:"oracle"`
	Embedding EmbeddingConfig `yaml:"embedding" json:"embedding"`
	Store     StoreConfig     `yaml:"store" json:"store"`
	Lock      LockConfig      `yaml:"lock" json:"lock"`
	Intent    IntentConfig    `yaml:"intent" json:"intent"`
	Extract   ExtractConfig   `yaml:"extract" json:"extract"`
	Retrieval RetrievalConfig `yaml:"retrieval" json:"retrieval"`
	Answer    AnswerConfig    `yaml:"answer" json:"answer"`
	Server    ServerConfig    `yaml:"server" json:"server"`
}

func NewConfig() *Config {
	return &Config{
		Log:       *NewLogConfig(),
		Oracle:    *NewOracleConfig(),
		Embedding: *NewEmbeddingConfig(),
		Store:     *NewStoreConfig(),
		Lock:      *NewLockConfig(),
		Intent:    *NewIntentConfig(),
		Extract:   *NewExtractConfig(),
		Retrieval: *NewRetrievalConfig(),
		Answer:    *NewAnswerConfig(),
		Server:    *NewServerConfig(),
	}
}

func (c *Config) Validate() error {
	for _, v := range []interface{ Validate() error }{
		&c.Oracle, &c.Embedding, &c.Store, &c.Lock, &c.Retrieval,
	} {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Load reads defaults, then the YAML file at path (if any), then the environment.
// A .env file in the working directory is loaded into the environment first.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.Wrapf(err, "failed to load .env")
		}
	}

	conf := NewConfig()
	if path != "" {
		yamlBytes, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read file %s", path)
		}
		if err := yaml.Unmarshal(yamlBytes, conf); err != nil {
			return nil, errors.Wrapf(err, "failed to unmarshal file %s", path)
		}
	}

	if err := conf.applyEnv(); err != nil {
		return nil, err
	}

	if err := conf.Validate(); err != nil {
		return nil, err
	}

	return conf, nil
}

func (c *Config) applyEnv() error {
	setString := func(dst *string, name string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}

	setString(&c.Oracle.OpenAIAPIKey, "OPENAI_API_KEY")
	setString(&c.Oracle.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	setString(&c.Log.LogLevel, "LOG_LEVEL")
	setString(&c.Log.LogHandler, "LOG_HANDLER")
	setString(&c.Oracle.Provider, "AGENTMEMORY_ORACLE_PROVIDER")
	setString(&c.Oracle.Model, "AGENTMEMORY_ORACLE_MODEL")
	setString(&c.Embedding.Provider, "AGENTMEMORY_EMBEDDING_PROVIDER")
	setString(&c.Embedding.Model, "AGENTMEMORY_EMBEDDING_MODEL")
	setString(&c.Store.Driver, "AGENTMEMORY_STORE_DRIVER")
	setString(&c.Store.SqlitePath, "AGENTMEMORY_SQLITE_PATH")
	setString(&c.Store.Index, "AGENTMEMORY_INDEX")
	setString(&c.Store.ChromemPath, "AGENTMEMORY_CHROMEM_PATH")
	setString(&c.Lock.Driver, "AGENTMEMORY_LOCK_DRIVER")
	setString(&c.Lock.RedisAddr, "AGENTMEMORY_REDIS_ADDR")
	setString(&c.Lock.RedisPassword, "AGENTMEMORY_REDIS_PASSWORD")
	setString(&c.Server.Addr, "AGENTMEMORY_ADDR")

	if v := os.Getenv("AGENTMEMORY_EMBEDDING_DIMENSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidConfig, "AGENTMEMORY_EMBEDDING_DIMENSION: %v", err)
		}
		c.Embedding.Dimension = n
	}
	if v := os.Getenv("AGENTMEMORY_ORACLE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(errors.ErrInvalidConfig, "AGENTMEMORY_ORACLE_TIMEOUT: %v", err)
		}
		c.Oracle.Timeout = d
	}

	return nil
}
