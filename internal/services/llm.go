package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"
)

var ErrModelNotFound = errors.New("model not found")

type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	MaxTokens   int
	JSON        bool
}

// LLMClient is a chat-completion provider.
type LLMClient interface {
	Provider() string
	Model() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	// CheckModel returns nil when the configured model can serve requests.
	CheckModel(ctx context.Context) error
}

type RetryPolicy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// CompleteWithRetry retries failed completions with exponential delay.
func CompleteWithRetry(ctx context.Context, client LLMClient, req CompletionRequest, policy RetryPolicy) (string, error) {
	maxAttempts := policy.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := policy.InitialDelay

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := client.Complete(ctx, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt == maxAttempts {
			break
		}

		log.Printf("⚠️ %s attempt %d failed: %v. Retrying...\n", client.Provider(), attempt, err)

		select {
		case <-ctx.Done():
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}

	return "", fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```JSON", "")
	text = strings.ReplaceAll(text, "```", "")
	text = strings.TrimSpace(text)

	startObj := strings.Index(text, "{")
	startArr := strings.Index(text, "[")
	endObj := strings.LastIndex(text, "}")
	endArr := strings.LastIndex(text, "]")

	if startObj != -1 && endObj != -1 && endObj > startObj {
		return text[startObj : endObj+1]
	} else if startArr != -1 && endArr != -1 && endArr > startArr {
		return text[startArr : endArr+1]
	}

	return text
}

func truncateRunes(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
