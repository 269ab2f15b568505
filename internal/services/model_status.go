package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"golang.org/x/sync/singleflight"

	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/models"
)

const (
	statusAvailable   = "available"
	statusUnavailable = "unavailable"

	modeFallback = "fallback"

	regexStatusMessage = "Using regex-based analysis (no LLM)"
)

type ModelStatusService interface {
	Status(ctx context.Context) models.ModelStatus
}

type modelStatusService struct {
	mode       string
	openRouter LLMClient
	gemini     LLMClient
	ttl        time.Duration
	now        func() time.Time
	group      singleflight.Group

	mu        sync.Mutex
	cached    models.ModelStatus
	expiresAt time.Time
}

// NewModelStatusService reports whether analysis runs on a live model. Results
// are cached for ttl and concurrent callers share one model check.
func NewModelStatusService(mode string, openRouter, gemini LLMClient, ttl time.Duration) ModelStatusService {
	return &modelStatusService{
		mode:       mode,
		openRouter: openRouter,
		gemini:     gemini,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (s *modelStatusService) Status(ctx context.Context) models.ModelStatus {
	s.mu.Lock()
	if s.now().Before(s.expiresAt) {
		cached := s.cached
		s.mu.Unlock()
		return cached
	}
	s.mu.Unlock()

	// the shared check outlives any single caller's request
	v, _, _ := s.group.Do("status", func() (interface{}, error) {
		st := s.check(context.WithoutCancel(ctx))

		s.mu.Lock()
		s.cached = st
		s.expiresAt = s.now().Add(s.ttl)
		s.mu.Unlock()
		return st, nil
	})
	return v.(models.ModelStatus)
}

func (s *modelStatusService) check(ctx context.Context) models.ModelStatus {
	switch s.mode {
	case config.AnalyzerModeRegex:
		return models.ModelStatus{Status: statusAvailable, Message: regexStatusMessage, UsingFallback: false, Mode: config.AnalyzerModeRegex}
	case config.AnalyzerModeAPI:
		return checkClient(ctx, s.openRouter, "OpenRouter", config.AnalyzerModeAPI)
	case config.AnalyzerModeGemini:
		return checkClient(ctx, s.gemini, "Gemini", config.AnalyzerModeGemini)
	}

	if s.openRouter != nil {
		if st := checkClient(ctx, s.openRouter, "OpenRouter", config.AnalyzerModeAPI); isLive(st) {
			return st
		}
	}
	if s.gemini != nil {
		if st := checkClient(ctx, s.gemini, "Gemini", config.AnalyzerModeGemini); isLive(st) {
			return st
		}
	}
	return models.ModelStatus{Status: statusAvailable, Message: regexStatusMessage, UsingFallback: true, Mode: config.AnalyzerModeRegex}
}

func isLive(st models.ModelStatus) bool {
	return st.Status == statusAvailable && !st.UsingFallback
}

func checkClient(ctx context.Context, client LLMClient, name, mode string) models.ModelStatus {
	if client == nil {
		return models.ModelStatus{
			Status:        statusUnavailable,
			Message:       fmt.Sprintf("%s API is not configured", name),
			UsingFallback: false,
			Mode:          mode,
		}
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := client.CheckModel(ctx)
	switch {
	case err == nil:
		return models.ModelStatus{Status: statusAvailable, Message: "Ready for AI Analysis", UsingFallback: false, Mode: mode}
	case errors.Is(err, ErrModelNotFound):
		return models.ModelStatus{
			Status:        statusUnavailable,
			Message:       fmt.Sprintf("%s API is available but model %s was not found", name, client.Model()),
			UsingFallback: false,
			Mode:          mode,
		}
	default:
		return models.ModelStatus{
			Status:        statusAvailable,
			Message:       fmt.Sprintf("Using fallback analysis (%s)", describeCheckError(err)),
			UsingFallback: true,
			Mode:          modeFallback,
		}
	}
}

func describeCheckError(err error) string {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode != 0 {
		return fmt.Sprintf("API status code %d", apiErr.StatusCode)
	}
	return "API connection error"
}
