package agentmemory

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/habiliai/agentmemory/answer"
	"github.com/habiliai/agentmemory/config"
	"github.com/habiliai/agentmemory/errors"
	"github.com/habiliai/agentmemory/extract"
	"github.com/habiliai/agentmemory/index"
	"github.com/habiliai/agentmemory/intent"
	"github.com/habiliai/agentmemory/internal/db"
	mygenkit "github.com/habiliai/agentmemory/internal/genkit"
	"github.com/habiliai/agentmemory/internal/keylock"
	"github.com/habiliai/agentmemory/internal/mylog"
	"github.com/habiliai/agentmemory/memory"
	"github.com/habiliai/agentmemory/oracle"
	"github.com/habiliai/agentmemory/retrieve"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type (
	// Engine is the memory engine a conversational agent talks to. It owns
	// the record store, the embedding index and the oracle, and routes each
	// utterance to storing, answering or chatting.
	Engine struct {
		conf     *config.Config
		logger   *slog.Logger
		store    memory.Store
		index    index.Index
		embedder index.Embedder
		oracle   oracle.Oracle
		guarded  *oracle.Guarded
		locker   keylock.Locker

		classifier  *intent.Classifier
		extractor   *extract.Extractor
		writer      *memory.Writer
		retriever   *retrieve.Retriever
		synthesizer *answer.Synthesizer

		closers []func() error
	}
	Option func(*Engine)
)

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithOracle replaces the genkit oracle. The oracle is used as given, without
// retries or a breaker around it.
func WithOracle(o oracle.Oracle) Option {
	return func(e *Engine) {
		e.oracle = o
	}
}

func WithStore(store memory.Store) Option {
	return func(e *Engine) {
		e.store = store
	}
}

func WithIndex(idx index.Index) Option {
	return func(e *Engine) {
		e.index = idx
	}
}

func WithEmbedder(embedder index.Embedder) Option {
	return func(e *Engine) {
		e.embedder = embedder
	}
}

func WithLocker(locker keylock.Locker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// NewEngine builds an engine from conf, or from defaults when conf is nil.
// Collaborators passed as options take precedence over the ones conf describes.
func NewEngine(ctx context.Context, conf *config.Config, opts ...Option) (*Engine, error) {
	if conf == nil {
		conf = config.NewConfig()
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{conf: conf}
	for _, opt := range opts {
		opt(e)
	}

	if e.logger == nil {
		e.logger = mylog.NewLogger(conf.Log.LogLevel, conf.Log.LogHandler)
	}

	if err := e.init(ctx); err != nil {
		if closeErr := e.Close(); closeErr != nil {
			e.logger.Warn("failed to release engine resources", mylog.Err(closeErr))
		}
		return nil, err
	}

	e.classifier = intent.NewClassifier(e.oracle, &conf.Intent, e.logger)
	e.extractor = extract.NewExtractor(e.oracle, &conf.Extract, e.logger)
	e.writer = memory.NewWriter(e.store, e.index,
		memory.WithLocker(e.locker),
		memory.WithWriterLogger(e.logger),
	)
	e.retriever = retrieve.NewRetriever(e.store, e.index, e.embedder, &conf.Retrieval, e.logger)
	e.synthesizer = answer.NewSynthesizer(e.oracle, &conf.Answer, e.logger)

	e.logger.Info("memory engine ready",
		slog.String("store", conf.Store.Driver),
		slog.String("index", conf.Store.Index),
		slog.String("lock", conf.Lock.Driver),
		slog.String("oracle", conf.Oracle.Provider),
		slog.Bool("oracle_enabled", e.oracle != nil),
	)

	return e, nil
}

func (e *Engine) init(ctx context.Context) error {
	conf := e.conf

	var g *genkit.Genkit
	needGenkit := (e.oracle == nil && conf.Oracle.Provider != config.ProviderNone) ||
		(e.embedder == nil && conf.Embedding.Provider == config.ProviderOpenAI)
	if needGenkit {
		var err error
		g, err = mygenkit.NewGenkit(ctx, &conf.Oracle, &conf.Log, e.logger)
		if err != nil {
			return err
		}
	}

	if e.embedder == nil {
		switch conf.Embedding.Provider {
		case config.ProviderHash:
			e.embedder = index.NewHashEmbedder(conf.Embedding.Dimension)
		default:
			e.embedder = index.NewGenkitEmbedder(g, config.ProviderOpenAI, conf.Embedding.Model)
		}
		if conf.Embedding.CacheTTL > 0 {
			e.embedder = index.NewCachedEmbedder(e.embedder, conf.Embedding.CacheTTL)
		}
	}

	var sqlDB *gorm.DB
	if (e.store == nil && conf.Store.Driver == config.DriverSqlite) ||
		(e.index == nil && conf.Store.Index == config.IndexSqliteVec) {
		var err error
		sqlDB, err = db.OpenSqlite(conf.Store.SqlitePath, e.logger)
		if err != nil {
			return errors.Mark(err, errors.ErrStoreUnavailable)
		}
		e.closers = append(e.closers, func() error {
			return db.CloseDB(sqlDB)
		})
	}

	if e.store == nil {
		switch conf.Store.Driver {
		case config.DriverSqlite:
			store, err := memory.NewSqliteStore(sqlDB)
			if err != nil {
				return err
			}
			e.store = store
		default:
			e.store = memory.NewInMemoryStore()
		}
		e.closers = append(e.closers, e.store.Close)
	}

	if e.index == nil {
		switch conf.Store.Index {
		case config.IndexSqliteVec:
			idx, err := index.NewSqliteIndex(sqlDB, e.embedder, conf.Embedding.Dimension)
			if err != nil {
				return err
			}
			e.index = idx
		case config.IndexChromem:
			idx, err := index.NewChromemIndex(conf.Store.ChromemPath, e.embedder)
			if err != nil {
				return err
			}
			e.index = idx
		default:
			e.index = index.NewInMemoryIndex(e.embedder)
		}
		e.closers = append(e.closers, e.index.Close)
	}

	if e.locker == nil {
		switch conf.Lock.Driver {
		case config.LockDriverRedis:
			client := redis.NewClient(&redis.Options{
				Addr:     conf.Lock.RedisAddr,
				Password: conf.Lock.RedisPassword,
				DB:       conf.Lock.RedisDB,
			})
			if err := client.Ping(ctx).Err(); err != nil {
				_ = client.Close()
				return errors.Wrapf(errors.Mark(err, errors.ErrStoreUnavailable), "failed to reach redis at %s", conf.Lock.RedisAddr)
			}
			e.locker = keylock.NewRedis(client, conf.Lock.TTL, conf.Lock.RetryInterval, e.logger)
			e.closers = append(e.closers, client.Close)
		default:
			e.locker = keylock.NewLocal()
		}
	}

	if e.oracle == nil && conf.Oracle.Provider != config.ProviderNone {
		e.guarded = oracle.NewGuarded(oracle.NewGenkitOracle(g, &conf.Oracle, e.logger), &conf.Oracle, e.logger)
		e.oracle = e.guarded
	}

	return nil
}

// Close releases what the engine opened itself, in reverse order. Stores and
// indexes passed in as options are left to the caller.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	e.closers = nil
	if len(errs) > 0 {
		return errors.Wrapf(errs[0], "failed to close engine (%d errors)", len(errs))
	}
	return nil
}

func (e *Engine) Logger() *slog.Logger {
	return e.logger
}
