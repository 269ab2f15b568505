package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	AnalyzerModeAuto   = "auto"
	AnalyzerModeAPI    = "api"
	AnalyzerModeGemini = "gemini"
	AnalyzerModeRegex  = "regex"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Analyzer   AnalyzerConfig
	OpenRouter OpenRouterConfig
	Gemini     GeminiConfig
	Embedding  EmbeddingConfig
	Vector     VectorConfig
	Storage    StorageConfig
	Queue      QueueConfig
	Events     EventsConfig
	Auth       AuthConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port        string
	Env         string
	StaticDir   string
	CORSOrigins []string
	// RateLimit is requests per minute per client on analyze and auth routes.
	RateLimit int
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type AnalyzerConfig struct {
	Mode               string
	ScoringConcurrency int
}

type OpenRouterConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	EmbeddingModel string
}

type GeminiConfig struct {
	APIKey     string
	Model      string
	EmbedModel string
}

type EmbeddingConfig struct {
	Provider string
}

type VectorConfig struct {
	Backend          string
	QdrantURL        string
	QdrantAPIKey     string
	QdrantCollection string
}

type StorageConfig struct {
	Backend     string
	UploadPath  string
	MaxFileSize int64
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Prefix    string
}

type QueueConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisQueue    string
}

type EventsConfig struct {
	RabbitMQURL string
	Exchange    string
}

type AuthConfig struct {
	Required        bool
	JWTSecret       string
	ExpirationHours int
	BcryptCost      int
	AdminUsername   string
	AdminPassword   string
}

type WorkerConfig struct {
	Concurrency       int
	RetryMaxAttempts  int
	RetryInitialDelay time.Duration
	PollInterval      time.Duration
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using default values.")
	}

	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "3000"),
			Env:         getEnv("ENV", "development"),
			StaticDir:   getEnv("STATIC_DIR", "./dist"),
			CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"*"}),
			RateLimit:   getEnvAsInt("RATE_LIMIT_PER_MINUTE", 30),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "resumatch"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Analyzer: AnalyzerConfig{
			Mode:               strings.ToLower(getEnv("ANALYZER_MODE", AnalyzerModeAuto)),
			ScoringConcurrency: getEnvAsInt("SCORING_CONCURRENCY", 4),
		},
		OpenRouter: OpenRouterConfig{
			APIKey:         strings.TrimPrefix(getEnv("OPENROUTER_API_KEY", ""), "Bearer "),
			BaseURL:        getEnv("OPENROUTER_BASE_URL", "https://openrouter.ai/api/v1"),
			Model:          getEnv("OPENROUTER_MODEL", "mistralai/mistral-7b-instruct:free"),
			EmbeddingModel: getEnv("OPENROUTER_EMBEDDING_MODEL", "text-embedding-3-small"),
		},
		Gemini: GeminiConfig{
			APIKey:     getEnv("GEMINI_API_KEY", ""),
			Model:      getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			EmbedModel: getEnv("GEMINI_EMBED_MODEL", "text-embedding-004"),
		},
		Embedding: EmbeddingConfig{
			Provider: strings.ToLower(getEnv("EMBEDDING_PROVIDER", "gemini")),
		},
		Vector: VectorConfig{
			Backend:          strings.ToLower(getEnv("VECTOR_BACKEND", "none")),
			QdrantURL:        getEnv("QDRANT_URL", "http://localhost:6334"),
			QdrantAPIKey:     getEnv("QDRANT_API_KEY", ""),
			QdrantCollection: getEnv("QDRANT_COLLECTION", "resumatch_resumes"),
		},
		Storage: StorageConfig{
			Backend:     strings.ToLower(getEnv("STORAGE_BACKEND", "local")),
			UploadPath:  getEnv("UPLOAD_PATH", "./storage/resumes"),
			MaxFileSize: getEnvAsInt64("MAX_FILE_SIZE", 10485760),
			S3Bucket:    getEnv("S3_BUCKET", ""),
			S3Region:    getEnv("S3_REGION", "us-east-1"),
			S3Endpoint:  getEnv("S3_ENDPOINT", ""),
			S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
			S3SecretKey: getEnv("S3_SECRET_KEY", ""),
			S3Prefix:    getEnv("S3_PREFIX", "resumes/"),
		},
		Queue: QueueConfig{
			Backend:       strings.ToLower(getEnv("QUEUE_BACKEND", "memory")),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			RedisQueue:    getEnv("REDIS_QUEUE", "resumatch:indexing"),
		},
		Events: EventsConfig{
			RabbitMQURL: getEnv("RABBITMQ_URL", ""),
			Exchange:    getEnv("RABBITMQ_EXCHANGE", "resume_events"),
		},
		Auth: AuthConfig{
			Required:        getEnvAsBool("AUTH_REQUIRED", false),
			JWTSecret:       getEnv("JWT_SECRET", ""),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			BcryptCost:      getEnvAsInt("BCRYPT_COST", 12),
			AdminUsername:   getEnv("ADMIN_USERNAME", ""),
			AdminPassword:   getEnv("ADMIN_PASSWORD", ""),
		},
		Worker: WorkerConfig{
			Concurrency:       getEnvAsInt("WORKER_CONCURRENCY", 3),
			RetryMaxAttempts:  getEnvAsInt("RETRY_MAX_ATTEMPTS", 3),
			RetryInitialDelay: getEnvAsDuration("RETRY_INITIAL_DELAY", "2s"),
			PollInterval:      getEnvAsDuration("WORKER_POLL_INTERVAL", "10s"),
		},
	}
}

// Validate reports the first setting that would make the server misbehave at runtime.
func (c *Config) Validate() error {
	switch c.Analyzer.Mode {
	case AnalyzerModeAuto, AnalyzerModeAPI, AnalyzerModeGemini, AnalyzerModeRegex:
	default:
		return fmt.Errorf("invalid ANALYZER_MODE %q (expected auto, api, gemini or regex)", c.Analyzer.Mode)
	}

	if c.Analyzer.Mode == AnalyzerModeAPI && c.OpenRouter.APIKey == "" {
		return fmt.Errorf("ANALYZER_MODE=api requires OPENROUTER_API_KEY")
	}
	if c.Analyzer.Mode == AnalyzerModeGemini && c.Gemini.APIKey == "" {
		return fmt.Errorf("ANALYZER_MODE=gemini requires GEMINI_API_KEY")
	}

	switch c.Embedding.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("invalid EMBEDDING_PROVIDER %q (expected gemini or openai)", c.Embedding.Provider)
	}

	switch c.Vector.Backend {
	case "none":
	case "qdrant", "pgvector":
		if c.Embedding.Provider == "gemini" && c.Gemini.APIKey == "" {
			return fmt.Errorf("VECTOR_BACKEND=%s with EMBEDDING_PROVIDER=gemini requires GEMINI_API_KEY", c.Vector.Backend)
		}
		if c.Embedding.Provider == "openai" && c.OpenRouter.APIKey == "" {
			return fmt.Errorf("VECTOR_BACKEND=%s with EMBEDDING_PROVIDER=openai requires OPENROUTER_API_KEY", c.Vector.Backend)
		}
	default:
		return fmt.Errorf("invalid VECTOR_BACKEND %q (expected none, qdrant or pgvector)", c.Vector.Backend)
	}

	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("STORAGE_BACKEND=s3 requires S3_BUCKET")
		}
	default:
		return fmt.Errorf("invalid STORAGE_BACKEND %q (expected local or s3)", c.Storage.Backend)
	}

	switch c.Queue.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("invalid QUEUE_BACKEND %q (expected memory or redis)", c.Queue.Backend)
	}

	if c.Auth.Required && c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_REQUIRED=true requires JWT_SECRET")
	}
	if c.Auth.BcryptCost < 10 || c.Auth.BcryptCost > 14 {
		return fmt.Errorf("bcrypt cost out of range: %d (must be 10-14)", c.Auth.BcryptCost)
	}

	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1")
	}

	return nil
}

// AuthEnabled is true when tokens can be issued, even if not every route demands one.
func (c *Config) AuthEnabled() bool {
	return c.Auth.JWTSecret != ""
}

func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
		c.Database.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}

// getEnvAsList splits a comma separated value, dropping empty items.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}
