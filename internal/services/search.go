package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
)

var (
	ErrEmptyQuery             = errors.New("search query cannot be empty")
	ErrSemanticSearchDisabled = errors.New("semantic search is not enabled on this server")
	ErrUnknownSearchType      = errors.New("unknown search type")
)

// minScoringTextLength is the shortest résumé text worth sending to the LLM.
const minScoringTextLength = 50

type SearchService interface {
	Search(ctx context.Context, req models.SearchRequest, ownerID *uuid.UUID) ([]models.SearchResult, error)
}

type SearchDeps struct {
	Resumes     repositories.ResumeRepository
	Scorer      RelevanceScorer
	Embedder    Embedder
	VectorIndex VectorIndex
}

type searchService struct {
	deps        SearchDeps
	concurrency int
}

func NewSearchService(deps SearchDeps, concurrency int) SearchService {
	if concurrency < 1 {
		concurrency = 1
	}
	if deps.VectorIndex == nil {
		deps.VectorIndex = NewNoopVectorIndex()
	}
	return &searchService{deps: deps, concurrency: concurrency}
}

type scoredResume struct {
	resume *models.Resume
	score  MatchScore
}

func (s *searchService) Search(ctx context.Context, req models.SearchRequest, ownerID *uuid.UUID) ([]models.SearchResult, error) {
	req.Normalize()
	if req.Query == "" {
		return nil, ErrEmptyQuery
	}

	filter := models.ResumeFilter{
		OwnerID:        ownerID,
		MinExperience:  req.Filters.MinExperience,
		EducationLevel: req.Filters.EducationLevel,
		Category:       req.Filters.Category,
		Skills:         req.Filters.Skills,
	}

	var scored []scoredResume
	var err error

	switch req.SearchType {
	case models.SearchTypeResumeMatching:
		scored, err = s.keywordSearch(ctx, req.Query, filter)
	case models.SearchTypeAIAnalysis:
		scored, err = s.aiSearch(ctx, req.Query, filter)
	case models.SearchTypeSemantic:
		scored, err = s.semanticSearch(ctx, req.Query, filter, req.Limit)
	default:
		return nil, fmt.Errorf("%q: %w", req.SearchType, ErrUnknownSearchType)
	}
	if err != nil {
		return nil, err
	}

	sortScored(scored)
	if req.Limit > 0 && len(scored) > req.Limit {
		scored = scored[:req.Limit]
	}

	results := make([]models.SearchResult, 0, len(scored))
	for _, sr := range scored {
		resp := models.NewResumeResponse(sr.resume)
		score := sr.score.Score
		resp.MatchScore = &score
		results = append(results, models.SearchResult{
			ResumeResponse: resp,
			MatchReason:    sr.score.Reason,
			ScoreSource:    sr.score.Source,
		})
	}

	log.Printf("🔍 %s search for %q returned %d results\n", req.SearchType, req.Query, len(results))
	return results, nil
}

func (s *searchService) keywordSearch(ctx context.Context, query string, filter models.ResumeFilter) ([]scoredResume, error) {
	resumes, err := s.deps.Resumes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredResume, 0, len(resumes))
	for i := range resumes {
		scored = append(scored, scoredResume{resume: &resumes[i], score: KeywordMatchScore(query, &resumes[i])})
	}
	return scored, nil
}

func (s *searchService) aiSearch(ctx context.Context, query string, filter models.ResumeFilter) ([]scoredResume, error) {
	resumes, err := s.deps.Resumes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	scored := make([]scoredResume, len(resumes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range resumes {
		resume := &resumes[i]
		g.Go(func() error {
			scored[i] = scoredResume{resume: resume, score: s.scoreWithLLM(gctx, query, resume)}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return scored, nil
}

// scoreWithLLM never fails: anything that prevents LLM scoring falls back to
// the keyword score with the cause in front of the reason.
func (s *searchService) scoreWithLLM(ctx context.Context, query string, resume *models.Resume) MatchScore {
	var cause string
	switch {
	case s.deps.Scorer == nil:
		cause = "AI scoring unavailable"
	case utf8.RuneCountInString(strings.TrimSpace(resume.Text)) < minScoringTextLength:
		cause = "Resume text too short for AI scoring"
	default:
		score, err := s.deps.Scorer.Score(ctx, query, resume.Text)
		if err == nil {
			return score
		}
		log.Printf("⚠️ AI scoring failed for resume %s: %v\n", resume.ID, err)
		cause = "AI scoring failed"
	}

	fallback := KeywordMatchScore(query, resume)
	fallback.Reason = cause + "; " + fallback.Reason
	fallback.Source = models.ScoreSourceKeywordFallback
	return fallback
}

func (s *searchService) semanticSearch(ctx context.Context, query string, filter models.ResumeFilter, limit int) ([]scoredResume, error) {
	if !s.deps.VectorIndex.Enabled() || s.deps.Embedder == nil {
		return nil, ErrSemanticSearchDisabled
	}

	vec, err := s.deps.Embedder.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	searchLimit := limit
	if searchLimit <= 0 {
		searchLimit = 50
	}
	hits, err := s.deps.VectorIndex.Search(ctx, vec, searchLimit)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]VectorHit, len(hits))
	for _, h := range hits {
		byID[h.ResumeID] = h
	}

	resumes, err := s.deps.Resumes.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	var scored []scoredResume
	for i := range resumes {
		hit, ok := byID[resumes[i].ID]
		if !ok {
			continue
		}
		scored = append(scored, scoredResume{resume: &resumes[i], score: similarityScore(hit)})
	}
	return scored, nil
}

func similarityScore(hit VectorHit) MatchScore {
	pct := clampScore(int(math.Round(float64(hit.Score) * 100)))
	reason := fmt.Sprintf("Semantic similarity: %d%%.", pct)
	if snippet := strings.Join(strings.Fields(hit.Snippet), " "); snippet != "" {
		if utf8.RuneCountInString(snippet) > 160 {
			snippet = truncateRunes(snippet, 160) + "..."
		}
		reason += fmt.Sprintf(" Closest passage: %q", snippet)
	}
	return MatchScore{Score: pct, Reason: reason, Source: models.ScoreSourceVectorSimilarity}
}

// sortScored orders by score, newest upload first on ties.
func sortScored(scored []scoredResume) {
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score.Score != scored[j].score.Score {
			return scored[i].score.Score > scored[j].score.Score
		}
		return scored[i].resume.CreatedAt.After(scored[j].resume.CreatedAt)
	})
}
