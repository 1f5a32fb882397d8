package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigDefaults(t *testing.T) {
	conf := config.NewConfig()

	require.NoError(t, conf.Validate())
	assert.Equal(t, config.ProviderOpenAI, conf.Oracle.Provider)
	assert.Equal(t, 15*time.Second, conf.Oracle.Timeout)
	assert.Equal(t, 1, conf.Oracle.MaxRetries)
	assert.Equal(t, 5, conf.Retrieval.TopK)
	assert.InDelta(t, 0.75, conf.Retrieval.MinSimilarity, 1e-9)
	assert.True(t, conf.Extract.PatternFallback)
	assert.Equal(t, config.LockDriverLocal, conf.Lock.Driver)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "agentmemory.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
oracle:
  provider: anthropic
  model: claude-3.5-haiku
  timeout: 3s
  maxRetries: 1
  breaker:
    failureThreshold: 2
store:
  driver: memory
  index: chromem
retrieval:
  topK: 3
`), 0o644))

	t.Setenv("AGENTMEMORY_EMBEDDING_PROVIDER", "hash")
	t.Setenv("AGENTMEMORY_EMBEDDING_DIMENSION", "64")

	conf, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, config.ProviderAnthropic, conf.Oracle.Provider)
	assert.Equal(t, "claude-3.5-haiku", conf.Oracle.Model)
	assert.Equal(t, 3*time.Second, conf.Oracle.Timeout)
	assert.Equal(t, 2, conf.Oracle.Breaker.FailureThreshold)
	assert.Equal(t, config.DriverMemory, conf.Store.Driver)
	assert.Equal(t, config.IndexChromem, conf.Store.Index)
	assert.Equal(t, 3, conf.Retrieval.TopK)
	assert.Equal(t, config.ProviderHash, conf.Embedding.Provider)
	assert.Equal(t, 64, conf.Embedding.Dimension)

	// untouched sections keep their defaults
	assert.Equal(t, 500*time.Millisecond, conf.Oracle.RetryBackoff)
	assert.InDelta(t, 0.8, conf.Answer.MinOverlap, 1e-9)
}

func TestValidate(t *testing.T) {
	t.Run("sqlite-vec needs sqlite", func(t *testing.T) {
		conf := config.NewConfig()
		conf.Store.Driver = config.DriverMemory
		conf.Store.Index = config.IndexSqliteVec
		assert.True(t, errors.Is(conf.Validate(), errors.ErrInvalidConfig))
	})

	t.Run("redis lock needs an address", func(t *testing.T) {
		conf := config.NewConfig()
		conf.Lock.Driver = config.LockDriverRedis
		assert.True(t, errors.Is(conf.Validate(), errors.ErrInvalidConfig))
	})

	t.Run("unknown oracle provider", func(t *testing.T) {
		conf := config.NewConfig()
		conf.Oracle.Provider = "cohere"
		assert.True(t, errors.Is(conf.Validate(), errors.ErrInvalidConfig))
	})
}
