package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"theagentvikram/resumatch/internal/models"
)

type pgVectorIndex struct {
	db *gorm.DB
}

// NewPgVectorIndex stores chunk embeddings in the resume_chunks table.
func NewPgVectorIndex(db *gorm.DB) VectorIndex {
	return &pgVectorIndex{db: db}
}

func (p *pgVectorIndex) Enabled() bool { return true }

// Init adds the cosine HNSW index; the table itself is migrated at startup.
func (p *pgVectorIndex) Init(ctx context.Context) error {
	err := p.db.WithContext(ctx).Exec(
		"CREATE INDEX IF NOT EXISTS idx_resume_chunks_embedding ON resume_chunks USING hnsw (embedding vector_cosine_ops)",
	).Error
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}
	return nil
}

func (p *pgVectorIndex) UpsertResume(ctx context.Context, resumeID uuid.UUID, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("got %d chunks but %d embeddings", len(chunks), len(embeddings))
	}

	return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("resume_id = ?", resumeID).Delete(&models.ResumeChunk{}).Error; err != nil {
			return fmt.Errorf("failed to clear chunks: %w", err)
		}
		if len(chunks) == 0 {
			return nil
		}

		rows := make([]models.ResumeChunk, 0, len(chunks))
		for i, text := range chunks {
			rows = append(rows, models.ResumeChunk{
				ResumeID:   resumeID,
				ChunkIndex: i,
				Content:    text,
				Embedding:  pgvector.NewVector(embeddings[i]),
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to insert chunks: %w", err)
		}
		return nil
	})
}

type chunkMatch struct {
	ResumeID uuid.UUID
	Content  string
	Score    float32
}

func (p *pgVectorIndex) Search(ctx context.Context, vector []float32, limit int) ([]VectorHit, error) {
	if limit <= 0 {
		limit = 20
	}

	query := pgvector.NewVector(vector)
	var matches []chunkMatch
	err := p.db.WithContext(ctx).Raw(`
		SELECT resume_id, content, 1 - (embedding <=> ?) AS score
		FROM resume_chunks
		ORDER BY embedding <=> ?
		LIMIT ?`, query, query, limit*5).
		Scan(&matches).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	hits := make([]VectorHit, 0, len(matches))
	for _, m := range matches {
		hits = append(hits, VectorHit{ResumeID: m.ResumeID, Score: m.Score, Snippet: m.Content})
	}
	return bestHitPerResume(hits, limit), nil
}

func (p *pgVectorIndex) DeleteResume(ctx context.Context, resumeID uuid.UUID) error {
	if err := p.db.WithContext(ctx).Where("resume_id = ?", resumeID).Delete(&models.ResumeChunk{}).Error; err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	return nil
}
