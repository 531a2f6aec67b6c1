package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"knowledgebot/internal/ai"
	"knowledgebot/internal/app"
	"knowledgebot/internal/cache"
	"knowledgebot/internal/config"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
	mysqlClient "knowledgebot/internal/platform/mysql"
	rabbitmqClient "knowledgebot/internal/platform/rabbitmq"
	redisClient "knowledgebot/internal/platform/redis"
	"knowledgebot/internal/platform/sqlite"
	"knowledgebot/internal/repository"
	"knowledgebot/internal/vectorindex"
	"knowledgebot/internal/vectorindex/chromem"
	"knowledgebot/internal/vectorindex/gormindex"
	"knowledgebot/internal/vectorindex/qdrant"
	"knowledgebot/internal/worker"
)

// App holds every long-lived client and service of the process.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	MySQL  *gorm.DB
	SQLite *sql.DB
	Redis  *redis.Client
	MQConn *amqp.Connection

	Index        *app.KnowledgeIndex
	Ingest       *app.IngestService
	RAG          *app.RAGService
	Chat         *app.ChatService
	IngestWorker *worker.IngestWorker

	StartedAt time.Time

	closers []func() error
}

// Load reads configuration and builds the application.
func Load(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}
	return New(ctx, cfg, NewLogger(cfg.Log, os.Stderr))
}

// New connects the configured backends and wires the services. Redis and
// RabbitMQ are only dialed when enabled.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}
	ready := false
	defer func() {
		if !ready {
			_ = a.Close()
		}
	}()

	var err error

	if cfg.UsesMySQL() {
		a.MySQL, err = mysqlClient.New(ctx, mysqlClient.Options{
			DSN:          cfg.MySQLDSN(),
			MaxOpenConns: cfg.MySQL.MaxOpenConns,
			MaxIdleConns: cfg.MySQL.MaxIdleConns,
			Models:       []any{&model.KnowledgeDocument{}, &model.VectorRecord{}},
		})
		if err != nil {
			return nil, err
		}
		a.addCloser(func() error {
			sqlDB, err := a.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		})
	}

	embedder, completer, err := a.newProvider(ctx)
	if err != nil {
		return nil, err
	}

	index, err := a.newVectorIndex()
	if err != nil {
		return nil, err
	}

	store, err := a.newDocumentStore(ctx)
	if err != nil {
		return nil, err
	}

	var publisher app.IngestPublisher
	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
		if err != nil {
			return nil, err
		}
		a.addCloser(a.MQConn.Close)
		publisher = rabbitmqClient.NewIngestPublisher(a.MQConn, cfg.RabbitMQ.IngestQueue)
	}

	var historyCache app.HistoryCache
	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, redisClient.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		a.addCloser(a.Redis.Close)
		historyCache = cache.NewHistoryCache(
			a.Redis,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			cfg.Redis.HistoryMaxTurns,
		)
	}

	systemPrompt, err := loadSystemPrompt(cfg.Knowledge.SystemPromptFile)
	if err != nil {
		return nil, err
	}

	chunker := newChunker(cfg.Knowledge)

	a.Index = app.NewKnowledgeIndex(embedder, index, cfg.Knowledge.Namespace, logger.With("component", "knowledge_index"))
	a.Ingest = app.NewIngestService(a.Index, store, publisher, chunker, knowledge.NewTagExtractor(nil), logger.With("component", "ingest"))
	a.RAG = app.NewRAGService(a.Index, completer, app.RAGConfig{
		Model:            cfg.LLM.Model,
		Temperature:      cfg.LLM.Temperature,
		MaxTokens:        cfg.LLM.MaxTokens,
		TopK:             cfg.Knowledge.TopK,
		MaxContextLength: cfg.Knowledge.MaxContextLength,
		HistoryWindow:    cfg.Knowledge.HistoryWindow,
		SystemPrompt:     systemPrompt,
	}, logger.With("component", "rag"))
	a.Chat = app.NewChatService(a.RAG, historyCache, logger.With("component", "chat"))

	if a.MQConn != nil && cfg.RabbitMQ.RunWorker {
		a.IngestWorker = worker.NewIngestWorker(a.MQConn, a.Ingest, cfg.RabbitMQ.IngestQueue, logger)
		if err := a.IngestWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start ingest worker failed: %w", err)
		}
	}

	logger.Info("application ready",
		"llm_provider", cfg.LLM.Provider,
		"vector_index", cfg.VectorIndex.Backend,
		"store", cfg.Store.Backend,
		"namespace", a.Index.Namespace(),
		"redis", cfg.Redis.Enabled,
		"rabbitmq", cfg.RabbitMQ.Enabled,
	)
	ready = true
	return a, nil
}

func (a *App) newProvider(ctx context.Context) (app.Embedder, app.Completer, error) {
	llm := a.Config.LLM
	switch llm.Provider {
	case config.ProviderGemini:
		if llm.GeminiAPIKey == "" {
			return nil, nil, errors.New("gemini provider requires GEMINI_API_KEY")
		}
		client, err := ai.NewGeminiClient(ctx, llm.GeminiAPIKey, llm.EmbeddingModel, llm.EmbeddingBatchSize)
		if err != nil {
			return nil, nil, fmt.Errorf("create gemini client failed: %w", err)
		}
		a.addCloser(client.Close)
		return client, client, nil
	default:
		if llm.APIKey == "" {
			a.Logger.Warn("llm api key is empty, requests will be rejected by the provider")
		}
		api := ai.NewOpenAICompatibleClient(llm.BaseURL, llm.APIKey, llm.Timeout())
		return ai.NewEmbeddingClient(api, llm.EmbeddingModel, llm.EmbeddingBatchSize), api, nil
	}
}

func (a *App) newVectorIndex() (vectorindex.Index, error) {
	vc := a.Config.VectorIndex
	switch vc.Backend {
	case config.BackendQdrant:
		return qdrant.New(qdrant.Config{
			URL:              vc.QdrantURL,
			APIKey:           vc.QdrantAPIKey,
			CollectionPrefix: vc.QdrantCollectionPrefix,
			Timeout:          time.Duration(vc.QdrantTimeoutSeconds) * time.Second,
		}), nil
	case config.BackendMySQL:
		return gormindex.New(repository.NewVectorRecordRepository(a.MySQL)), nil
	default:
		if vc.ChromemPath == "" {
			return chromem.New(), nil
		}
		index, err := chromem.NewPersistent(vc.ChromemPath, vc.ChromemCompress)
		if err != nil {
			return nil, fmt.Errorf("open chromem index failed: %w", err)
		}
		return index, nil
	}
}

func (a *App) newDocumentStore(ctx context.Context) (app.DocumentStore, error) {
	if a.Config.Store.Backend == config.BackendMySQL {
		return repository.NewKnowledgeDocumentRepository(a.MySQL), nil
	}
	db, err := sqlite.Open(ctx, a.Config.Store.SQLitePath)
	if err != nil {
		return nil, err
	}
	a.SQLite = db
	a.addCloser(db.Close)
	return repository.NewSQLDocumentRepository(db), nil
}

func newChunker(cfg config.KnowledgeConfig) *knowledge.Chunker {
	return knowledge.NewChunker(
		knowledge.WithChunkOptions(knowledge.ChunkOptions{
			MaxChunkSize: cfg.MaxChunkSize,
			Overlap:      knowledge.OverlapOf(cfg.ChunkOverlap),
		}),
		knowledge.WithSectionTitles(knowledge.SectionTitles{
			Intro:   cfg.IntroTitle,
			Content: cfg.ContentTitle,
		}),
	)
}

func loadSystemPrompt(path string) (string, error) {
	if path == "" {
		return app.DefaultSystemPrompt, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read system prompt failed: %w", err)
	}
	return string(b), nil
}

func (a *App) addCloser(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close stops the worker and releases clients in reverse order of creation.
func (a *App) Close() error {
	if a.IngestWorker != nil {
		a.IngestWorker.Close()
	}
	var closeErr error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			closeErr = errors.Join(closeErr, err)
		}
	}
	a.closers = nil
	return closeErr
}
