package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"theagentvikram/resumatch/internal/config"
	"theagentvikram/resumatch/internal/models"
)

var ErrAnalyzerUnavailable = errors.New("resume analysis service is unavailable")

type AnalysisResult struct {
	Summary        string
	Skills         []string
	Experience     int
	EducationLevel string
	Category       string
	Source         string
}

func (r *AnalysisResult) Response() models.AnalysisResponse {
	skills := r.Skills
	if skills == nil {
		skills = []string{}
	}
	return models.AnalysisResponse{
		Summary:        r.Summary,
		Skills:         skills,
		Experience:     r.Experience,
		EducationLevel: r.EducationLevel,
		Category:       r.Category,
		Source:         r.Source,
	}
}

type Analyzer interface {
	Name() string
	Analyze(ctx context.Context, text string) (*AnalysisResult, error)
}

// NewAnalyzer builds the analyzer chain for the configured mode. Nil clients are
// treated as not configured.
func NewAnalyzer(mode string, openRouter, gemini LLMClient, retry RetryPolicy) Analyzer {
	var llms []Analyzer
	if openRouter != nil {
		llms = append(llms, NewLLMAnalyzer(openRouter, AnalysisSourceOpenRouter, retry))
	}
	if gemini != nil {
		llms = append(llms, NewLLMAnalyzer(gemini, AnalysisSourceGemini, retry))
	}

	switch mode {
	case config.AnalyzerModeRegex:
		return NewRegexAnalyzer()
	case config.AnalyzerModeAPI:
		if openRouter == nil {
			return &chainAnalyzer{}
		}
		return &chainAnalyzer{analyzers: llms[:1]}
	case config.AnalyzerModeGemini:
		if gemini == nil {
			return &chainAnalyzer{}
		}
		return &chainAnalyzer{analyzers: llms[len(llms)-1:]}
	default:
		return &chainAnalyzer{analyzers: append(llms, NewRegexAnalyzer())}
	}
}

// chainAnalyzer returns the first successful result of its analyzers.
type chainAnalyzer struct {
	analyzers []Analyzer
}

func (c *chainAnalyzer) Name() string {
	names := make([]string, 0, len(c.analyzers))
	for _, a := range c.analyzers {
		names = append(names, a.Name())
	}
	return strings.Join(names, ",")
}

func (c *chainAnalyzer) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	var lastErr error
	for _, a := range c.analyzers {
		result, err := a.Analyze(ctx, text)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("⚠️ %s analysis failed, trying next analyzer: %v\n", a.Name(), err)
		lastErr = err
	}

	if lastErr == nil {
		return nil, ErrAnalyzerUnavailable
	}
	return nil, fmt.Errorf("%w: %v", ErrAnalyzerUnavailable, lastErr)
}

type llmAnalyzer struct {
	client  LLMClient
	source  string
	prompts *PromptBuilder
	retry   RetryPolicy
}

func NewLLMAnalyzer(client LLMClient, source string, retry RetryPolicy) Analyzer {
	return &llmAnalyzer{
		client:  client,
		source:  source,
		prompts: NewPromptBuilder(),
		retry:   retry,
	}
}

func (a *llmAnalyzer) Name() string { return a.source }

func (a *llmAnalyzer) Analyze(ctx context.Context, text string) (*AnalysisResult, error) {
	log.Printf("🤖 Analyzing resume with %s (%s)\n", a.client.Provider(), a.client.Model())

	raw, err := CompleteWithRetry(ctx, a.client, a.prompts.BuildAnalysisPrompt(text), a.retry)
	if err != nil {
		return nil, err
	}

	result, err := parseAnalysis(raw)
	if err != nil {
		return nil, err
	}
	result.Source = a.source
	return result, nil
}

var (
	bareKey      = regexp.MustCompile(`([{,]\s*)([A-Za-z_][A-Za-z0-9_]*)\s*:`)
	firstInteger = regexp.MustCompile(`\d+`)
)

// parseAnalysis turns a model reply into an AnalysisResult, repairing the
// usual JSON mistakes and filling in missing fields.
func parseAnalysis(raw string) (*AnalysisResult, error) {
	body := extractJSON(raw)

	var fields map[string]any
	if err := json.Unmarshal([]byte(body), &fields); err != nil {
		repaired := strings.ReplaceAll(body, "'", `"`)
		repaired = bareKey.ReplaceAllString(repaired, `$1"$2":`)
		if err := json.Unmarshal([]byte(repaired), &fields); err != nil {
			return nil, fmt.Errorf("failed to parse analysis response: %w", err)
		}
	}

	return &AnalysisResult{
		Summary:        strings.TrimSpace(stringField(fields, "summary")),
		Skills:         skillsField(fields["skills"]),
		Experience:     experienceField(fields["experience"]),
		EducationLevel: StandardizeEducation(stringField(fields, "educationLevel", "education_level", "education")),
		Category:       strings.TrimSpace(stringField(fields, "category")),
	}, nil
}

func stringField(fields map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := fields[k].(string); ok {
			return s
		}
	}
	return ""
}

func skillsField(v any) []string {
	var skills []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					skills = append(skills, s)
				}
			}
		}
	case string:
		for _, s := range strings.Split(t, ",") {
			if s = strings.TrimSpace(s); s != "" {
				skills = append(skills, s)
			}
		}
	}
	if skills == nil {
		skills = []string{}
	}
	return skills
}

func experienceField(v any) int {
	switch t := v.(type) {
	case float64:
		return int(models.ParseYears(strconv.FormatFloat(t, 'f', -1, 64)))
	case string:
		if m := firstInteger.FindString(t); m != "" {
			return int(models.ParseYears(m))
		}
	}
	return 0
}

// StandardizeEducation maps free-form education strings onto the fixed levels.
func StandardizeEducation(level string) string {
	l := strings.ToLower(strings.TrimSpace(level))
	switch {
	case l == "":
		return ""
	case strings.Contains(l, "master"):
		return "Master's"
	case strings.Contains(l, "phd"), strings.Contains(l, "ph.d"), strings.Contains(l, "doctor"):
		return "PhD"
	case strings.Contains(l, "bachelor"), l == "bs", l == "ba", strings.HasPrefix(l, "b.s"), strings.HasPrefix(l, "b.a"):
		return "Bachelor's"
	case strings.Contains(l, "associate"):
		return "Associate's"
	case strings.Contains(l, "high school"):
		return "High School"
	default:
		return strings.TrimSpace(level)
	}
}
