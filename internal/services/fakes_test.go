package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
)

// fakeResumeRepo is an in-memory ResumeRepository.
type fakeResumeRepo struct {
	mu        sync.Mutex
	resumes   map[uuid.UUID]*models.Resume
	listErr   error
	createErr error
}

func newFakeResumeRepo(resumes ...*models.Resume) *fakeResumeRepo {
	r := &fakeResumeRepo{resumes: make(map[uuid.UUID]*models.Resume)}
	for _, res := range resumes {
		r.resumes[res.ID] = res
	}
	return r
}

func (r *fakeResumeRepo) get(id uuid.UUID) *models.Resume {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return nil
	}
	cp := *res
	return &cp
}

func (r *fakeResumeRepo) Create(ctx context.Context, resume *models.Resume) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if resume.ID == uuid.Nil {
		resume.ID = uuid.New()
	}
	if resume.CreatedAt.IsZero() {
		resume.CreatedAt = time.Now()
	}
	resume.UpdatedAt = resume.CreatedAt
	cp := *resume
	r.resumes[resume.ID] = &cp
	return nil
}

func (r *fakeResumeRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	if res := r.get(id); res != nil {
		return res, nil
	}
	return nil, repositories.ErrResumeNotFound
}

func (r *fakeResumeRepo) List(ctx context.Context, filter models.ResumeFilter) ([]models.Resume, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []models.Resume
	for _, res := range r.resumes {
		if filter.OwnerID != nil && (res.OwnerID == nil || *res.OwnerID != *filter.OwnerID) {
			continue
		}
		if filter.MinExperience != nil && res.Experience < *filter.MinExperience {
			continue
		}
		if filter.Category != "" && !strings.EqualFold(res.Category, filter.Category) {
			continue
		}
		if filter.Status != "" && res.Status != filter.Status {
			continue
		}
		out = append(out, *res)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeResumeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.resumes)
}

func (r *fakeResumeRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.resumes[id]; !ok {
		return repositories.ErrResumeNotFound
	}
	delete(r.resumes, id)
	return nil
}

func (r *fakeResumeRepo) mutate(id uuid.UUID, fn func(*models.Resume)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return repositories.ErrResumeNotFound
	}
	fn(res)
	res.UpdatedAt = time.Now()
	return nil
}

func (r *fakeResumeRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReviewStatus) error {
	return r.mutate(id, func(res *models.Resume) { res.Status = status })
}

func (r *fakeResumeRepo) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	return r.mutate(id, func(res *models.Resume) { res.Text = text })
}

func (r *fakeResumeRepo) ClaimForProcessing(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.resumes[id]
	if !ok {
		return false, nil
	}
	if res.ProcessingStatus != models.ProcessingQueued &&
		!(res.ProcessingStatus == models.ProcessingProcessing && res.UpdatedAt.Before(staleBefore)) {
		return false, nil
	}
	res.ProcessingStatus = models.ProcessingProcessing
	res.Attempts++
	res.UpdatedAt = time.Now()
	return true, nil
}

func (r *fakeResumeRepo) MarkIndexed(ctx context.Context, id uuid.UUID) error {
	return r.mutate(id, func(res *models.Resume) {
		res.ProcessingStatus = models.ProcessingIndexed
		res.ProcessingError = nil
		res.Attempts = 0
	})
}

func (r *fakeResumeRepo) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.mutate(id, func(res *models.Resume) {
		res.ProcessingStatus = models.ProcessingFailed
		res.ProcessingError = &errorMsg
	})
}

func (r *fakeResumeRepo) Requeue(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.mutate(id, func(res *models.Resume) {
		res.ProcessingStatus = models.ProcessingQueued
		res.ProcessingError = &errorMsg
	})
}

func (r *fakeResumeRepo) ResetIndexing(ctx context.Context, id uuid.UUID, clearText bool) error {
	return r.mutate(id, func(res *models.Resume) {
		res.ProcessingStatus = models.ProcessingQueued
		res.ProcessingError = nil
		res.Attempts = 0
		if clearText {
			res.Text = ""
		}
	})
}

func (r *fakeResumeRepo) FindPendingIndexing(ctx context.Context, queuedBefore, staleBefore time.Time, limit int) ([]models.Resume, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Resume
	for _, res := range r.resumes {
		if (res.ProcessingStatus == models.ProcessingQueued && res.UpdatedAt.Before(queuedBefore)) ||
			(res.ProcessingStatus == models.ProcessingProcessing && res.UpdatedAt.Before(staleBefore)) {
			out = append(out, *res)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (r *fakeResumeRepo) DistinctSkills(ctx context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, res := range r.resumes {
		out = append(out, res.Skills...)
	}
	return out, nil
}

// fakeLLM replays canned replies in order; the last one repeats.
type fakeLLM struct {
	mu       sync.Mutex
	provider string
	model    string
	replies  []string
	errs     []error
	checkErr error
	calls    int
	prompts  []CompletionRequest
}

func (f *fakeLLM) Provider() string {
	if f.provider == "" {
		return "openrouter"
	}
	return f.provider
}

func (f *fakeLLM) Model() string {
	if f.model == "" {
		return "test-model"
	}
	return f.model
}

func (f *fakeLLM) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.prompts = append(f.prompts, req)

	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply configured")
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *fakeLLM) CheckModel(ctx context.Context) error { return f.checkErr }

func (f *fakeLLM) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeEmbedder returns a fixed vector per text.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *fakeEmbedder) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeVectorIndex records upserts and answers searches with canned hits.
type fakeVectorIndex struct {
	mu      sync.Mutex
	chunks  map[uuid.UUID][]string
	hits    []VectorHit
	deleted []uuid.UUID
}

func newFakeVectorIndex() *fakeVectorIndex {
	return &fakeVectorIndex{chunks: make(map[uuid.UUID][]string)}
}

func (f *fakeVectorIndex) Enabled() bool                  { return true }
func (f *fakeVectorIndex) Init(ctx context.Context) error { return nil }

func (f *fakeVectorIndex) UpsertResume(ctx context.Context, id uuid.UUID, chunks []string, embeddings [][]float32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.chunks[id] = chunks
	return nil
}

func (f *fakeVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]VectorHit, error) {
	return bestHitPerResume(f.hits, limit), nil
}

func (f *fakeVectorIndex) DeleteResume(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	delete(f.chunks, id)
	return nil
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []ResumeEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event ResumeEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingEnqueuer struct {
	ids []uuid.UUID
}

func (r *recordingEnqueuer) EnqueueJob(id uuid.UUID) { r.ids = append(r.ids, id) }
