package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"theagentvikram/resumatch/internal/models"
)

const relevanceSchema = `{
  "type": "object",
  "required": ["score", "reason"],
  "properties": {
    "score":  {"type": "number"},
    "reason": {"type": "string"}
  }
}`

var relevanceSchemaLoader = mustSchema(relevanceSchema)

func mustSchema(schema string) *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schema))
	if err != nil {
		panic(fmt.Sprintf("invalid built-in schema: %v", err))
	}
	return s
}

// RelevanceScorer asks an LLM how well a résumé fits a job query.
type RelevanceScorer interface {
	Source() string
	Score(ctx context.Context, query string, resumeText string) (MatchScore, error)
}

type relevanceScorer struct {
	client  LLMClient
	source  string
	prompts *PromptBuilder
	retry   RetryPolicy
}

func NewRelevanceScorer(client LLMClient, source string, retry RetryPolicy) RelevanceScorer {
	return &relevanceScorer{
		client:  client,
		source:  source,
		prompts: NewPromptBuilder(),
		retry:   retry,
	}
}

func (s *relevanceScorer) Source() string { return s.source }

func (s *relevanceScorer) Score(ctx context.Context, query string, resumeText string) (MatchScore, error) {
	raw, err := CompleteWithRetry(ctx, s.client, s.prompts.BuildRelevancePrompt(query, resumeText), s.retry)
	if err != nil {
		return MatchScore{}, err
	}

	score, reason, err := parseRelevance(raw)
	if err != nil {
		return MatchScore{}, err
	}

	return MatchScore{Score: score, Reason: reason, Source: s.source}, nil
}

// parseRelevance validates a {"score", "reason"} reply and clamps the score.
func parseRelevance(raw string) (int, string, error) {
	body := extractJSON(raw)

	result, err := relevanceSchemaLoader.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return 0, "", fmt.Errorf("relevance response is not valid JSON: %w", err)
	}
	if !result.Valid() {
		var problems []string
		for _, desc := range result.Errors() {
			problems = append(problems, desc.String())
		}
		return 0, "", fmt.Errorf("relevance response failed validation: %s", strings.Join(problems, "; "))
	}

	var parsed struct {
		Score  float64 `json:"score"`
		Reason string  `json:"reason"`
	}
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return 0, "", fmt.Errorf("failed to decode relevance response: %w", err)
	}

	reason := strings.TrimSpace(parsed.Reason)
	if reason == "" {
		reason = "No reason provided."
	}
	return clampScore(int(math.Round(parsed.Score))), reason, nil
}

// ScoreSourceFor maps an LLM provider name to the score source it reports.
func ScoreSourceFor(provider string) string {
	if provider == "gemini" {
		return models.ScoreSourceGemini
	}
	return models.ScoreSourceOpenRouter
}
