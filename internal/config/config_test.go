package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Equal(t, AnalyzerModeAuto, cfg.Analyzer.Mode)
	assert.Equal(t, "local", cfg.Storage.Backend)
	assert.Equal(t, "memory", cfg.Queue.Backend)
	assert.Equal(t, "none", cfg.Vector.Backend)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize)
	assert.Equal(t, 2*time.Second, cfg.Worker.RetryInitialDelay)
	assert.False(t, cfg.Auth.Required)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	require.NoError(t, cfg.Validate())
}

func TestLoad_ReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ANALYZER_MODE", "REGEX")
	t.Setenv("OPENROUTER_API_KEY", "Bearer sk-test")
	t.Setenv("AUTH_REQUIRED", "true")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WORKER_POLL_INTERVAL", "30s")
	t.Setenv("MAX_FILE_SIZE", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")

	cfg := Load()

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, AnalyzerModeRegex, cfg.Analyzer.Mode)
	assert.Equal(t, "sk-test", cfg.OpenRouter.APIKey, "Bearer prefix should be stripped")
	assert.True(t, cfg.Auth.Required)
	assert.Equal(t, 30*time.Second, cfg.Worker.PollInterval)
	assert.Equal(t, int64(10485760), cfg.Storage.MaxFileSize, "invalid ints fall back to the default")
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
	assert.True(t, cfg.AuthEnabled())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{
			name:    "unknown analyzer mode",
			mutate:  func(c *Config) { c.Analyzer.Mode = "llama_cpp" },
			wantErr: "invalid ANALYZER_MODE",
		},
		{
			name:    "api mode without key",
			mutate:  func(c *Config) { c.Analyzer.Mode = AnalyzerModeAPI },
			wantErr: "requires OPENROUTER_API_KEY",
		},
		{
			name:    "s3 without bucket",
			mutate:  func(c *Config) { c.Storage.Backend = "s3" },
			wantErr: "requires S3_BUCKET",
		},
		{
			name:    "auth required without secret",
			mutate:  func(c *Config) { c.Auth.Required = true },
			wantErr: "requires JWT_SECRET",
		},
		{
			name:    "bcrypt cost too low",
			mutate:  func(c *Config) { c.Auth.BcryptCost = 9 },
			wantErr: "bcrypt cost out of range",
		},
		{
			name: "vector backend without embedding key",
			mutate: func(c *Config) {
				c.Vector.Backend = "qdrant"
			},
			wantErr: "requires GEMINI_API_KEY",
		},
		{
			name:    "unknown queue backend",
			mutate:  func(c *Config) { c.Queue.Backend = "kafka" },
			wantErr: "invalid QUEUE_BACKEND",
		},
		{
			name: "pgvector with openai embeddings",
			mutate: func(c *Config) {
				c.Vector.Backend = "pgvector"
				c.Embedding.Provider = "openai"
				c.OpenRouter.APIKey = "sk"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			cfg.Gemini.APIKey = ""
			cfg.OpenRouter.APIKey = ""
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestGetDatabaseDSN(t *testing.T) {
	cfg := &Config{Database: DatabaseConfig{
		Host: "db", Port: "5433", User: "u", Password: "p", DBName: "resumatch", SSLMode: "require",
	}}

	assert.Equal(t, "host=db port=5433 user=u password=p dbname=resumatch sslmode=require", cfg.GetDatabaseDSN())
}
