package services

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
)

var ErrVectorIndexDisabled = errors.New("vector index is disabled")

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

type VectorHit struct {
	ResumeID uuid.UUID
	Score    float32
	Snippet  string
}

// VectorIndex stores chunk embeddings per résumé.
type VectorIndex interface {
	Enabled() bool
	Init(ctx context.Context) error
	// UpsertResume replaces every chunk previously stored for the résumé.
	UpsertResume(ctx context.Context, resumeID uuid.UUID, chunks []string, embeddings [][]float32) error
	// Search returns at most limit résumés, best first, each scored by its closest chunk.
	Search(ctx context.Context, vector []float32, limit int) ([]VectorHit, error)
	DeleteResume(ctx context.Context, resumeID uuid.UUID) error
}

type noopVectorIndex struct{}

// NewNoopVectorIndex is used when VECTOR_BACKEND=none.
func NewNoopVectorIndex() VectorIndex {
	return noopVectorIndex{}
}

func (noopVectorIndex) Enabled() bool                  { return false }
func (noopVectorIndex) Init(ctx context.Context) error { return nil }

func (noopVectorIndex) UpsertResume(ctx context.Context, resumeID uuid.UUID, chunks []string, embeddings [][]float32) error {
	return nil
}

func (noopVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]VectorHit, error) {
	return nil, ErrVectorIndexDisabled
}

func (noopVectorIndex) DeleteResume(ctx context.Context, resumeID uuid.UUID) error { return nil }

// bestHitPerResume keeps the highest scoring hit for every résumé, best first.
func bestHitPerResume(hits []VectorHit, limit int) []VectorHit {
	best := make(map[uuid.UUID]VectorHit)
	for _, h := range hits {
		if cur, ok := best[h.ResumeID]; !ok || h.Score > cur.Score {
			best[h.ResumeID] = h
		}
	}

	out := make([]VectorHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ResumeID.String() < out[j].ResumeID.String()
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
