package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
)

var (
	ErrEmptyFile    = errors.New("uploaded file is empty")
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
)

type IngestInput struct {
	Filename    string
	ContentType string
	Data        []byte
	OwnerID     *uuid.UUID
	// Metadata holds fields the user reviewed after analysis; nil means analyze now.
	Metadata *models.ResumeMetadata
}

// JobEnqueuer hands a stored résumé to background indexing.
type JobEnqueuer interface {
	EnqueueJob(resumeID uuid.UUID)
}

type IngestService interface {
	Ingest(ctx context.Context, in IngestInput) (*models.Resume, error)
	Delete(ctx context.Context, resumeID uuid.UUID) error
}

type IngestDeps struct {
	Resumes     repositories.ResumeRepository
	Storage     StorageService
	Extractor   TextExtractor
	Analyzer    Analyzer
	VectorIndex VectorIndex
	Events      EventPublisher
	Jobs        JobEnqueuer
}

type ingestService struct {
	deps        IngestDeps
	maxFileSize int64
}

func NewIngestService(deps IngestDeps, maxFileSize int64) IngestService {
	if deps.VectorIndex == nil {
		deps.VectorIndex = NewNoopVectorIndex()
	}
	return &ingestService{deps: deps, maxFileSize: maxFileSize}
}

func (s *ingestService) Ingest(ctx context.Context, in IngestInput) (*models.Resume, error) {
	if len(in.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if s.maxFileSize > 0 && int64(len(in.Data)) > s.maxFileSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", in.Filename, len(in.Data), ErrFileTooLarge)
	}
	if !IsSupportedFile(in.Filename) {
		return nil, ErrUnsupportedFormat
	}

	text, err := s.deps.Extractor.Extract(in.Filename, in.Data)
	if err != nil {
		return nil, err
	}

	meta := in.Metadata
	if meta == nil {
		analysis, err := s.deps.Analyzer.Analyze(ctx, text)
		if err != nil {
			return nil, err
		}
		meta = &models.ResumeMetadata{
			Summary:        analysis.Summary,
			Skills:         analysis.Skills,
			Experience:     models.Years(analysis.Experience),
			EducationLevel: analysis.EducationLevel,
			Category:       analysis.Category,
		}
	}

	contentType := in.ContentType
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = ContentTypeFor(in.Filename)
	}

	id := uuid.New()
	key := s.deps.Storage.BuildKey(id, in.Filename)
	if err := s.deps.Storage.SaveFile(ctx, key, in.Data, contentType); err != nil {
		return nil, err
	}

	resume := &models.Resume{
		ID:               id,
		OwnerID:          in.OwnerID,
		Name:             strings.TrimSpace(meta.Name),
		Filename:         in.Filename,
		StorageKey:       key,
		ContentType:      contentType,
		Size:             int64(len(in.Data)),
		Summary:          strings.TrimSpace(meta.Summary),
		Skills:           cleanSkills(meta.Skills),
		Experience:       int(meta.Experience),
		EducationLevel:   StandardizeEducation(meta.EducationLevel),
		Category:         strings.TrimSpace(meta.Category),
		Status:           models.StatusPending,
		ProcessingStatus: models.ProcessingQueued,
		Text:             text,
	}

	if err := s.deps.Resumes.Create(ctx, resume); err != nil {
		if delErr := s.deps.Storage.DeleteFile(ctx, key); delErr != nil {
			log.Printf("⚠️ Failed to clean up %s after insert error: %v\n", key, delErr)
		}
		return nil, err
	}

	log.Printf("✅ Resume %s stored (%s, %d bytes)\n", id, in.Filename, len(in.Data))

	event := NewResumeEvent(EventResumeUploaded, id)
	event.Filename = in.Filename
	publishEvent(ctx, s.deps.Events, event)

	if s.deps.Jobs != nil {
		s.deps.Jobs.EnqueueJob(id)
	}

	return resume, nil
}

func (s *ingestService) Delete(ctx context.Context, resumeID uuid.UUID) error {
	resume, err := s.deps.Resumes.FindByID(ctx, resumeID)
	if err != nil {
		return err
	}

	if err := s.deps.Resumes.Delete(ctx, resumeID); err != nil {
		return err
	}

	if resume.StorageKey != "" {
		if err := s.deps.Storage.DeleteFile(ctx, resume.StorageKey); err != nil {
			log.Printf("⚠️ Failed to delete stored file for %s: %v\n", resumeID, err)
		}
	}
	if err := s.deps.VectorIndex.DeleteResume(ctx, resumeID); err != nil {
		log.Printf("⚠️ Failed to delete vectors for %s: %v\n", resumeID, err)
	}

	event := NewResumeEvent(EventResumeDeleted, resumeID)
	event.Filename = resume.Filename
	publishEvent(ctx, s.deps.Events, event)

	log.Printf("🗑️  Resume %s deleted\n", resumeID)
	return nil
}

func cleanSkills(skills []string) pq.StringArray {
	out := pq.StringArray{}
	seen := make(map[string]bool)
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}
