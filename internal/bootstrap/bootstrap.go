// Package bootstrap builds the service graph shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

const (
	modelStatusTTL = 30 * time.Second
	staleAfter     = 10 * time.Minute
	queueSize      = 100
)

type Options struct {
	// Background builds the job queue and worker so stored résumés are indexed
	// asynchronously. The worker is not started. Without it callers index
	// through Indexer directly.
	Background bool
}

type Container struct {
	DB      *gorm.DB
	Resumes repositories.ResumeRepository
	Users   repositories.UserRepository

	Storage     services.StorageService
	Extractor   services.TextExtractor
	Analyzer    services.Analyzer
	Embedder    services.Embedder
	VectorIndex services.VectorIndex
	Events      services.EventPublisher
	Indexer     services.Indexer
	Ingest      services.IngestService
	Search      services.SearchService
	ModelStatus services.ModelStatusService
	Auth        services.AuthService

	Queue  services.JobQueue
	Worker services.Worker
}

func Build(ctx context.Context, cfg *config.Config, opts Options) (*Container, error) {
	c := &Container{}

	db, err := config.InitDatabase(cfg)
	if err != nil {
		return nil, err
	}
	c.DB = db
	c.Resumes = repositories.NewResumeRepository(db)
	c.Users = repositories.NewUserRepository(db)
	log.Println("✅ Repositories initialized successfully")

	if c.Storage, err = newStorage(ctx, cfg); err != nil {
		return nil, err
	}
	if err := c.Storage.EnsureReady(ctx); err != nil {
		return nil, fmt.Errorf("failed to prepare %s storage: %w", cfg.Storage.Backend, err)
	}
	log.Printf("✅ Storage ready (%s)\n", cfg.Storage.Backend)

	openRouter, gemini, err := newLLMClients(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.Embedding.Provider == "openai" {
		c.Embedder = openRouter
	} else {
		c.Embedder = gemini
	}

	if c.VectorIndex, err = newVectorIndex(cfg, db); err != nil {
		return nil, err
	}
	if err := c.VectorIndex.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize %s vector index: %w", cfg.Vector.Backend, err)
	}
	log.Printf("✅ Vector index ready (%s)\n", cfg.Vector.Backend)

	c.Events = newPublisher(cfg)

	retry := services.RetryPolicy{
		MaxAttempts:  cfg.Worker.RetryMaxAttempts,
		InitialDelay: cfg.Worker.RetryInitialDelay,
	}
	c.Extractor = services.NewTextExtractor()
	c.Analyzer = services.NewAnalyzer(cfg.Analyzer.Mode, openRouter, gemini, retry)
	c.ModelStatus = services.NewModelStatusService(cfg.Analyzer.Mode, openRouter, gemini, modelStatusTTL)

	var scorer services.RelevanceScorer
	switch {
	case openRouter != nil:
		scorer = services.NewRelevanceScorer(openRouter, services.ScoreSourceFor(openRouter.Provider()), retry)
	case gemini != nil:
		scorer = services.NewRelevanceScorer(gemini, services.ScoreSourceFor(gemini.Provider()), retry)
	}

	c.Indexer = services.NewIndexer(services.IndexerDeps{
		Resumes:     c.Resumes,
		Storage:     c.Storage,
		Extractor:   c.Extractor,
		Chunker:     services.NewTextChunker(),
		Embedder:    c.Embedder,
		VectorIndex: c.VectorIndex,
		Events:      c.Events,
	}, cfg.Worker.RetryMaxAttempts, staleAfter)

	var jobs services.JobEnqueuer
	if opts.Background {
		if c.Queue, err = newQueue(ctx, cfg); err != nil {
			return nil, err
		}
		c.Worker = services.NewWorker(c.Resumes, c.Indexer, c.Queue, services.WorkerOptions{
			Concurrency:       cfg.Worker.Concurrency,
			RetryInitialDelay: cfg.Worker.RetryInitialDelay,
			PollInterval:      cfg.Worker.PollInterval,
			StaleAfter:        staleAfter,
		})
		jobs = c.Worker
		log.Printf("✅ Worker initialized (%s queue)\n", cfg.Queue.Backend)
	}

	c.Ingest = services.NewIngestService(services.IngestDeps{
		Resumes:     c.Resumes,
		Storage:     c.Storage,
		Extractor:   c.Extractor,
		Analyzer:    c.Analyzer,
		VectorIndex: c.VectorIndex,
		Events:      c.Events,
		Jobs:        jobs,
	}, cfg.Storage.MaxFileSize)

	c.Search = services.NewSearchService(services.SearchDeps{
		Resumes:     c.Resumes,
		Scorer:      scorer,
		Embedder:    c.Embedder,
		VectorIndex: c.VectorIndex,
	}, cfg.Analyzer.ScoringConcurrency)

	c.Auth = services.NewAuthService(c.Users, cfg.Auth.JWTSecret, cfg.Auth.ExpirationHours, cfg.Auth.BcryptCost)
	if cfg.AuthEnabled() {
		if err := c.Auth.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
			return nil, fmt.Errorf("failed to create admin user: %w", err)
		}
	} else {
		log.Println("⚠️  JWT_SECRET not set, authentication is disabled")
	}

	log.Printf("✅ Services initialized (analyzer: %s)\n", c.Analyzer.Name())
	return c, nil
}

// Close stops the worker and releases broker connections.
func (c *Container) Close() error {
	if c.Worker != nil {
		c.Worker.Stop()
	}

	var errs []error
	if c.Queue != nil {
		errs = append(errs, c.Queue.Close())
	}
	if c.Events != nil {
		errs = append(errs, c.Events.Close())
	}
	if c.DB != nil {
		if sqlDB, err := c.DB.DB(); err == nil {
			errs = append(errs, sqlDB.Close())
		}
	}
	return errors.Join(errs...)
}

func newStorage(ctx context.Context, cfg *config.Config) (services.StorageService, error) {
	if cfg.Storage.Backend != "s3" {
		return services.NewStorageService(cfg.Storage.UploadPath), nil
	}
	store, err := services.NewS3StorageService(ctx, services.S3Options{
		Bucket:    cfg.Storage.S3Bucket,
		Region:    cfg.Storage.S3Region,
		Endpoint:  cfg.Storage.S3Endpoint,
		AccessKey: cfg.Storage.S3AccessKey,
		SecretKey: cfg.Storage.S3SecretKey,
		Prefix:    cfg.Storage.S3Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
	}
	return store, nil
}

// newLLMClients returns whichever providers have an API key. Either may be nil.
func newLLMClients(cfg *config.Config) (services.OpenRouterService, services.GeminiService, error) {
	var openRouter services.OpenRouterService
	if cfg.OpenRouter.APIKey != "" {
		openRouter = services.NewOpenRouterService(
			cfg.OpenRouter.APIKey,
			cfg.OpenRouter.BaseURL,
			cfg.OpenRouter.Model,
			cfg.OpenRouter.EmbeddingModel,
		)
		log.Printf("✅ OpenRouter client ready (%s)\n", cfg.OpenRouter.Model)
	}

	var gemini services.GeminiService
	if cfg.Gemini.APIKey != "" {
		var err error
		gemini, err = services.NewGeminiService(cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.EmbedModel)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize Gemini AI: %w", err)
		}
		log.Printf("✅ Gemini client ready (%s)\n", cfg.Gemini.Model)
	}

	return openRouter, gemini, nil
}

func newVectorIndex(cfg *config.Config, db *gorm.DB) (services.VectorIndex, error) {
	switch cfg.Vector.Backend {
	case "qdrant":
		index, err := services.NewQdrantService(cfg.Vector.QdrantURL, cfg.Vector.QdrantAPIKey, cfg.Vector.QdrantCollection)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Qdrant: %w", err)
		}
		return index, nil
	case "pgvector":
		return services.NewPgVectorIndex(db), nil
	default:
		return services.NewNoopVectorIndex(), nil
	}
}

func newQueue(ctx context.Context, cfg *config.Config) (services.JobQueue, error) {
	if cfg.Queue.Backend != "redis" {
		return services.NewMemoryQueue(queueSize), nil
	}
	queue, err := services.NewRedisQueue(ctx, cfg.Queue.RedisAddr, cfg.Queue.RedisPassword, cfg.Queue.RedisDB, cfg.Queue.RedisQueue)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis queue: %w", err)
	}
	return queue, nil
}

// newPublisher falls back to logging events when RabbitMQ is not configured or unreachable.
func newPublisher(cfg *config.Config) services.EventPublisher {
	if cfg.Events.RabbitMQURL == "" {
		return services.NewLogPublisher()
	}
	publisher, err := services.NewRabbitPublisher(cfg.Events.RabbitMQURL, cfg.Events.Exchange)
	if err != nil {
		log.Printf("⚠️  RabbitMQ unavailable, logging events instead: %v\n", err)
		return services.NewLogPublisher()
	}
	log.Printf("✅ Publishing resume events to exchange %s\n", cfg.Events.Exchange)
	return publisher
}
