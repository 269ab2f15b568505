package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
)

// EmbeddingDimensions is shared by every embedder and vector backend.
const EmbeddingDimensions = 768

type ResumeChunk struct {
	ID         uuid.UUID       `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	ResumeID   uuid.UUID       `gorm:"type:uuid;not null;index" json:"resume_id"`
	ChunkIndex int             `gorm:"not null" json:"chunk_index"`
	Content    string          `gorm:"type:text" json:"content"`
	Embedding  pgvector.Vector `gorm:"type:vector(768)" json:"-"`
	CreatedAt  time.Time       `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
}

func (ResumeChunk) TableName() string {
	return "resume_chunks"
}
