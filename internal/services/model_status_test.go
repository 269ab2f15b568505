package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/models"
)

func TestModelStatus(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		mode       string
		openRouter LLMClient
		gemini     LLMClient
		want       models.ModelStatus
	}{
		{
			name: "regex mode",
			mode: config.AnalyzerModeRegex,
			want: models.ModelStatus{Status: "available", Message: "Using regex-based analysis (no LLM)", Mode: "regex"},
		},
		{
			name:       "api mode ready",
			mode:       config.AnalyzerModeAPI,
			openRouter: &fakeLLM{},
			want:       models.ModelStatus{Status: "available", Message: "Ready for AI Analysis", Mode: "api"},
		},
		{
			name:       "api mode missing model",
			mode:       config.AnalyzerModeAPI,
			openRouter: &fakeLLM{model: "vendor/missing", checkErr: fmt.Errorf("models.get: %w", ErrModelNotFound)},
			want: models.ModelStatus{
				Status:  "unavailable",
				Message: "OpenRouter API is available but model vendor/missing was not found",
				Mode:    "api",
			},
		},
		{
			name:       "api mode unreachable",
			mode:       config.AnalyzerModeAPI,
			openRouter: &fakeLLM{checkErr: errors.New("dial tcp: timeout")},
			want: models.ModelStatus{
				Status:        "available",
				Message:       "Using fallback analysis (API connection error)",
				UsingFallback: true,
				Mode:          "fallback",
			},
		},
		{
			name: "gemini mode not configured",
			mode: config.AnalyzerModeGemini,
			want: models.ModelStatus{Status: "unavailable", Message: "Gemini API is not configured", Mode: "gemini"},
		},
		{
			name:       "auto prefers a live gemini over a broken openrouter",
			mode:       config.AnalyzerModeAuto,
			openRouter: &fakeLLM{checkErr: errors.New("boom")},
			gemini:     &fakeLLM{provider: "gemini"},
			want:       models.ModelStatus{Status: "available", Message: "Ready for AI Analysis", Mode: "gemini"},
		},
		{
			name: "auto without llms",
			mode: config.AnalyzerModeAuto,
			want: models.ModelStatus{Status: "available", Message: "Using regex-based analysis (no LLM)", UsingFallback: true, Mode: "regex"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewModelStatusService(tt.mode, tt.openRouter, tt.gemini, time.Minute)
			assert.Equal(t, tt.want, svc.Status(ctx))
		})
	}
}

func TestModelStatus_CachesResult(t *testing.T) {
	llm := &fakeLLM{}
	svc := NewModelStatusService(config.AnalyzerModeAPI, llm, nil, time.Minute).(*modelStatusService)

	first := svc.Status(context.Background())
	llm.checkErr = errors.New("down")
	assert.Equal(t, first, svc.Status(context.Background()), "cached result is served within the ttl")

	svc.expiresAt = time.Time{}
	assert.True(t, svc.Status(context.Background()).UsingFallback)
}

// blockingLLM holds CheckModel until release is closed.
type blockingLLM struct {
	*fakeLLM
	checks  atomic.Int32
	started chan struct{}
	release chan struct{}
}

func (b *blockingLLM) CheckModel(ctx context.Context) error {
	if b.checks.Add(1) == 1 {
		close(b.started)
	}
	<-b.release
	return nil
}

func TestModelStatus_SharesSlowCheck(t *testing.T) {
	llm := &blockingLLM{fakeLLM: &fakeLLM{}, started: make(chan struct{}), release: make(chan struct{})}
	svc := NewModelStatusService(config.AnalyzerModeAPI, llm, nil, time.Minute).(*modelStatusService)

	var wg sync.WaitGroup
	results := make([]models.ModelStatus, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = svc.Status(context.Background())
		}()
	}

	select {
	case <-llm.started:
	case <-time.After(2 * time.Second):
		t.Fatal("model check never started")
	}

	locked := make(chan struct{})
	go func() {
		svc.mu.Lock()
		svc.mu.Unlock()
		close(locked)
	}()
	select {
	case <-locked:
	case <-time.After(2 * time.Second):
		t.Fatal("cache lock held while the model check runs")
	}

	// let the remaining callers join the in-flight check
	time.Sleep(50 * time.Millisecond)
	close(llm.release)
	wg.Wait()

	assert.Equal(t, int32(1), llm.checks.Load())
	for _, st := range results {
		require.Equal(t, "Ready for AI Analysis", st.Message)
	}

	before := llm.checks.Load()
	svc.Status(context.Background())
	assert.Equal(t, before, llm.checks.Load(), "later callers are served from the cache")
}
