package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/habiliai/agentmemory/errors"
)

const (
	DriverSqlite    = "sqlite"
	DriverMemory    = "memory"
	IndexSqliteVec  = "sqlite-vec"
	IndexChromem    = "chromem"
	IndexMemory     = "memory"
	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

type (
	StoreConfig struct {
		// Driver is sqlite or memory.
		// Default: sqlite
		Driver string `yaml:"driver" json:"driver"`

		// SqlitePath specifies the file path for the SQLite database
		// Default: ~/.agentmemory/memory.db
		SqlitePath string `yaml:"sqlitePath" json:"sqlitePath"`

		// Index is the embedding index backend: sqlite-vec, chromem or memory.
		// sqlite-vec requires the sqlite driver.
		// Default: sqlite-vec
		Index string `yaml:"index" json:"index"`

		// ChromemPath persists the chromem index when set; empty keeps it in memory.
		ChromemPath string `yaml:"chromemPath" json:"chromemPath"`
	}

	LockConfig struct {
		// Driver is local (in-process) or redis (shared between processes).
		// Default: local
		Driver string `yaml:"driver" json:"driver"`

		RedisAddr     string `yaml:"redisAddr" json:"redisAddr"`
		RedisPassword string `yaml:"redisPassword" json:"-"`
		RedisDB       int    `yaml:"redisDB" json:"redisDB"`

		// TTL bounds how long a crashed holder can keep a redis lock.
		// Default: 10s
		TTL time.Duration `yaml:"ttl" json:"ttl"`

		// RetryInterval is the polling interval while waiting for a redis lock.
		// Default: 25ms
		RetryInterval time.Duration `yaml:"retryInterval" json:"retryInterval"`
	}

	IntentConfig struct {
		// MinConfidence below which an oracle classification is replaced by the rules.
		// Default: 0.7
		MinConfidence float64 `yaml:"minConfidence" json:"minConfidence"`
	}

	ExtractConfig struct {
		// MinConfidence below which a candidate is discarded.
		// Default: 0.5
		MinConfidence float64 `yaml:"minConfidence" json:"minConfidence"`

		// PatternFallback enables first-person pattern extraction while the oracle is unavailable.
		// Default: true
		PatternFallback bool `yaml:"patternFallback" json:"patternFallback"`
	}

	RetrievalConfig struct {
		// TopK is the default number of records returned by a search.
		// Default: 5
		TopK int `yaml:"topK" json:"topK"`

		// MinSimilarity filters vector hits.
		// Default: 0.75
		MinSimilarity float64 `yaml:"minSimilarity" json:"minSimilarity"`

		// CandidateFactor multiplies TopK for the nearest-neighbor fetch before filtering.
		// Default: 2
		CandidateFactor int `yaml:"candidateFactor" json:"candidateFactor"`
	}

	AnswerConfig struct {
		// MinOverlap is the share of answer tokens that must appear in a record value to count as grounded.
		// Default: 0.8
		MinOverlap float64 `yaml:"minOverlap" json:"minOverlap"`
	}
)

func NewStoreConfig() *StoreConfig {
	path := "memory.db"
	if home, err := os.UserHomeDir(); err == nil {
		path = filepath.Join(home, ".agentmemory", "memory.db")
	}
	return &StoreConfig{
		Driver:     DriverSqlite,
		SqlitePath: path,
		Index:      IndexSqliteVec,
	}
}

func (c *StoreConfig) Validate() error {
	switch c.Driver {
	case DriverSqlite:
		if c.SqlitePath == "" {
			return errors.Wrapf(errors.ErrInvalidConfig, "sqlitePath is required")
		}
	case DriverMemory:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown store driver %q", c.Driver)
	}
	switch c.Index {
	case IndexSqliteVec:
		if c.Driver != DriverSqlite {
			return errors.Wrapf(errors.ErrInvalidConfig, "sqlite-vec index requires the sqlite store driver")
		}
	case IndexChromem, IndexMemory:
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown index %q", c.Index)
	}
	return nil
}

func NewLockConfig() *LockConfig {
	return &LockConfig{
		Driver:        LockDriverLocal,
		TTL:           10 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

func (c *LockConfig) Validate() error {
	switch c.Driver {
	case LockDriverLocal:
	case LockDriverRedis:
		if c.RedisAddr == "" {
			return errors.Wrapf(errors.ErrInvalidConfig, "redisAddr is required for the redis lock driver")
		}
		if c.TTL <= 0 || c.RetryInterval <= 0 {
			return errors.Wrapf(errors.ErrInvalidConfig, "lock ttl and retryInterval must be positive")
		}
	default:
		return errors.Wrapf(errors.ErrInvalidConfig, "unknown lock driver %q", c.Driver)
	}
	return nil
}

func NewIntentConfig() *IntentConfig {
	return &IntentConfig{MinConfidence: 0.7}
}

func NewExtractConfig() *ExtractConfig {
	return &ExtractConfig{
		MinConfidence:   0.5,
		PatternFallback: true,
	}
}

func NewRetrievalConfig() *RetrievalConfig {
	return &RetrievalConfig{
		TopK:            5,
		MinSimilarity:   0.75,
		CandidateFactor: 2,
	}
}

func (c *RetrievalConfig) Validate() error {
	if c.TopK <= 0 {
		return errors.Wrapf(errors.ErrInvalidConfig, "retrieval topK must be positive")
	}
	if c.MinSimilarity < -1 || c.MinSimilarity > 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "retrieval minSimilarity must be within [-1, 1]")
	}
	if c.CandidateFactor < 1 {
		return errors.Wrapf(errors.ErrInvalidConfig, "retrieval candidateFactor must be at least 1")
	}
	return nil
}

func NewAnswerConfig() *AnswerConfig {
	return &AnswerConfig{MinOverlap: 0.8}
}
