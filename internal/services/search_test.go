package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"theagentvikram/resumatch/internal/models"
)

// stubScorer answers by résumé text; texts it does not know fail.
type stubScorer struct {
	scores map[string]MatchScore
}

func (s *stubScorer) Source() string { return models.ScoreSourceOpenRouter }

func (s *stubScorer) Score(ctx context.Context, query, text string) (MatchScore, error) {
	if score, ok := s.scores[text]; ok {
		return score, nil
	}
	return MatchScore{}, errors.New("model overloaded")
}

var (
	pythonText    = "Python backend engineer with Django and PostgreSQL experience at several startups."
	marketingText = "Marketing lead running SEO programmes and brand campaigns for consumer products."
)

func searchFixture() (*fakeResumeRepo, *models.Resume, *models.Resume, *models.Resume) {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	python := &models.Resume{
		ID: uuid.New(), Summary: "Python backend engineer", Skills: pq.StringArray{"Python", "Django"},
		Experience: 6, EducationLevel: "Bachelor's", Text: pythonText, CreatedAt: t0,
	}
	marketing := &models.Resume{
		ID: uuid.New(), Summary: "Marketing lead", Skills: pq.StringArray{"SEO"},
		Experience: 2, EducationLevel: "Master's", Text: marketingText, CreatedAt: t0.Add(time.Hour),
	}
	tiny := &models.Resume{ID: uuid.New(), Text: "tiny", CreatedAt: t0.Add(2 * time.Hour)}
	return newFakeResumeRepo(python, marketing, tiny), python, marketing, tiny
}

func resultIDs(results []models.SearchResult) []string {
	ids := make([]string, 0, len(results))
	for _, r := range results {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSearch_Keyword(t *testing.T) {
	repo, python, marketing, tiny := searchFixture()
	svc := NewSearchService(SearchDeps{Resumes: repo}, 2)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: " Python engineer ", SearchType: "resume_matching"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{python.ID.String(), marketing.ID.String(), tiny.ID.String()}, resultIDs(results))
	assert.Equal(t, []int{39, 25, 20}, []int{results[0].Score(), results[1].Score(), results[2].Score()})
	for _, r := range results {
		assert.Equal(t, models.ScoreSourceKeyword, r.ScoreSource)
	}
}

func TestSearch_LimitAndOwner(t *testing.T) {
	repo, python, _, _ := searchFixture()
	owner := uuid.New()
	python.OwnerID = &owner
	svc := NewSearchService(SearchDeps{Resumes: repo}, 2)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "python", SearchType: "resume_matching", Limit: 2}, nil)
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = svc.Search(context.Background(), models.SearchRequest{Query: "python", SearchType: "resume_matching"}, &owner)
	require.NoError(t, err)
	assert.Equal(t, []string{python.ID.String()}, resultIDs(results))
}

func TestSearch_TiesPreferNewest(t *testing.T) {
	t0 := time.Now()
	older := &models.Resume{ID: uuid.New(), EducationLevel: "PhD", CreatedAt: t0}
	newer := &models.Resume{ID: uuid.New(), EducationLevel: "PhD", CreatedAt: t0.Add(time.Minute)}
	svc := NewSearchService(SearchDeps{Resumes: newFakeResumeRepo(older, newer)}, 1)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "zzz", SearchType: "resume_matching"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{newer.ID.String(), older.ID.String()}, resultIDs(results))
}

func TestSearch_AIWithFallbacks(t *testing.T) {
	repo, python, marketing, tiny := searchFixture()
	scorer := &stubScorer{scores: map[string]MatchScore{
		pythonText: {Score: 90, Reason: "Great fit.", Source: models.ScoreSourceOpenRouter},
	}}
	svc := NewSearchService(SearchDeps{Resumes: repo, Scorer: scorer}, 3)

	// search_type defaults to ai_analysis
	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "Python engineer"}, nil)
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := make(map[string]models.SearchResult)
	for _, r := range results {
		byID[r.ID] = r
	}

	assert.Equal(t, python.ID.String(), results[0].ID)
	assert.Equal(t, 90, byID[python.ID.String()].Score())
	assert.Equal(t, "Great fit.", byID[python.ID.String()].MatchReason)
	assert.Equal(t, models.ScoreSourceOpenRouter, byID[python.ID.String()].ScoreSource)

	failed := byID[marketing.ID.String()]
	assert.Equal(t, models.ScoreSourceKeywordFallback, failed.ScoreSource)
	assert.True(t, strings.HasPrefix(failed.MatchReason, "AI scoring failed; "), failed.MatchReason)
	assert.Equal(t, 25, failed.Score())

	short := byID[tiny.ID.String()]
	assert.Equal(t, models.ScoreSourceKeywordFallback, short.ScoreSource)
	assert.True(t, strings.HasPrefix(short.MatchReason, "Resume text too short for AI scoring; "), short.MatchReason)
}

func TestSearch_AIWithoutScorer(t *testing.T) {
	repo, _, _, _ := searchFixture()
	svc := NewSearchService(SearchDeps{Resumes: repo}, 2)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "python", SearchType: "ai_analysis"}, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, models.ScoreSourceKeywordFallback, r.ScoreSource)
		assert.True(t, strings.HasPrefix(r.MatchReason, "AI scoring unavailable; "))
	}
}

func TestSearch_Semantic(t *testing.T) {
	repo, python, marketing, _ := searchFixture()
	index := newFakeVectorIndex()
	index.hits = []VectorHit{
		{ResumeID: marketing.ID, Score: 0.82, Snippet: "Marketing   lead\nrunning SEO"},
		{ResumeID: python.ID, Score: 0.4},
		{ResumeID: python.ID, Score: 0.1},
		{ResumeID: uuid.New(), Score: 0.99},
	}
	svc := NewSearchService(SearchDeps{Resumes: repo, Embedder: &fakeEmbedder{}, VectorIndex: index}, 2)

	results, err := svc.Search(context.Background(), models.SearchRequest{Query: "brand marketing", SearchType: "semantic"}, nil)
	require.NoError(t, err)

	require.Equal(t, []string{marketing.ID.String(), python.ID.String()}, resultIDs(results))
	assert.Equal(t, 82, results[0].Score())
	assert.Equal(t, `Semantic similarity: 82%. Closest passage: "Marketing lead running SEO"`, results[0].MatchReason)
	assert.Equal(t, models.ScoreSourceVectorSimilarity, results[0].ScoreSource)
	assert.Equal(t, 40, results[1].Score())
	assert.Equal(t, "Semantic similarity: 40%.", results[1].MatchReason)
}

func TestSearch_Errors(t *testing.T) {
	repo, _, _, _ := searchFixture()
	svc := NewSearchService(SearchDeps{Resumes: repo}, 1)
	ctx := context.Background()

	_, err := svc.Search(ctx, models.SearchRequest{Query: "   "}, nil)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	_, err = svc.Search(ctx, models.SearchRequest{Query: "go", SearchType: "vibes"}, nil)
	assert.ErrorIs(t, err, ErrUnknownSearchType)

	_, err = svc.Search(ctx, models.SearchRequest{Query: "go", SearchType: "semantic"}, nil)
	assert.ErrorIs(t, err, ErrSemanticSearchDisabled)

	repo.listErr = errors.New("db down")
	_, err = svc.Search(ctx, models.SearchRequest{Query: "go", SearchType: "resume_matching"}, nil)
	assert.ErrorContains(t, err, "db down")
}

func TestSimilarityScore_TruncatesSnippet(t *testing.T) {
	score := similarityScore(VectorHit{Score: 1.2, Snippet: strings.Repeat("a", 200)})
	assert.Equal(t, 100, score.Score)
	assert.Contains(t, score.Reason, strings.Repeat("a", 160)+"...")
	assert.NotContains(t, score.Reason, strings.Repeat("a", 161))
}
