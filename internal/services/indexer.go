package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
)

// RetryableError marks an indexing failure that was put back in the queue.
type RetryableError struct {
	Attempt int
	Err     error
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("attempt %d failed: %v", e.Attempt, e.Err)
}

func (e *RetryableError) Unwrap() error { return e.Err }

type Indexer interface {
	IndexResume(ctx context.Context, resumeID uuid.UUID) error
}

type IndexerDeps struct {
	Resumes     repositories.ResumeRepository
	Storage     StorageService
	Extractor   TextExtractor
	Chunker     TextChunker
	Embedder    Embedder
	VectorIndex VectorIndex
	Events      EventPublisher
}

type indexer struct {
	deps        IndexerDeps
	maxAttempts int
	staleAfter  time.Duration
}

// NewIndexer builds the background indexing step. Jobs stuck in processing for
// longer than staleAfter may be claimed again.
func NewIndexer(deps IndexerDeps, maxAttempts int, staleAfter time.Duration) Indexer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if deps.VectorIndex == nil {
		deps.VectorIndex = NewNoopVectorIndex()
	}
	return &indexer{
		deps:        deps,
		maxAttempts: maxAttempts,
		staleAfter:  staleAfter,
	}
}

func (ix *indexer) IndexResume(ctx context.Context, resumeID uuid.UUID) error {
	claimed, err := ix.deps.Resumes.ClaimForProcessing(ctx, resumeID, time.Now().Add(-ix.staleAfter))
	if err != nil {
		return fmt.Errorf("failed to claim resume: %w", err)
	}
	if !claimed {
		log.Printf("⏭️  Resume %s is not waiting for indexing, skipping\n", resumeID)
		return nil
	}

	log.Printf("🔄 Indexing resume %s\n", resumeID)

	resume, err := ix.deps.Resumes.FindByID(ctx, resumeID)
	if err != nil {
		return fmt.Errorf("failed to load resume: %w", err)
	}

	if err := ix.index(ctx, resume); err != nil {
		return ix.fail(ctx, resume, err)
	}

	if err := ix.deps.Resumes.MarkIndexed(ctx, resumeID); err != nil {
		return fmt.Errorf("failed to mark resume indexed: %w", err)
	}

	event := NewResumeEvent(EventResumeIndexed, resumeID)
	event.Filename = resume.Filename
	publishEvent(ctx, ix.deps.Events, event)

	log.Printf("✅ Resume %s indexed\n", resumeID)
	return nil
}

func (ix *indexer) index(ctx context.Context, resume *models.Resume) error {
	text := resume.Text
	if text == "" {
		data, err := ix.deps.Storage.ReadFile(ctx, resume.StorageKey)
		if err != nil {
			return fmt.Errorf("failed to read stored file: %w", err)
		}

		text, err = ix.deps.Extractor.Extract(resume.Filename, data)
		if err != nil {
			return fmt.Errorf("failed to extract text: %w", err)
		}

		if err := ix.deps.Resumes.UpdateText(ctx, resume.ID, text); err != nil {
			return err
		}
	}

	if !ix.deps.VectorIndex.Enabled() {
		return nil
	}
	if ix.deps.Embedder == nil {
		return errors.New("vector index is enabled but no embedder is configured")
	}

	chunks := ix.deps.Chunker.ChunkText(text, DefaultChunkSize, DefaultChunkOverlap)
	embeddings := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, chunk := range chunks {
		g.Go(func() error {
			vec, err := ix.deps.Embedder.GenerateEmbedding(gctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed chunk %d: %w", i, err)
			}
			embeddings[i] = vec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if err := ix.deps.VectorIndex.UpsertResume(ctx, resume.ID, chunks, embeddings); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}

	log.Printf("📚 Stored %d chunks for resume %s\n", len(chunks), resume.ID)
	return nil
}

// fail requeues the résumé while attempts remain, otherwise marks it failed.
func (ix *indexer) fail(ctx context.Context, resume *models.Resume, cause error) error {
	// the claim incremented attempts in the database
	attempt := resume.Attempts

	if attempt < ix.maxAttempts && isRetryable(cause) {
		if err := ix.deps.Resumes.Requeue(ctx, resume.ID, cause.Error()); err != nil {
			log.Printf("❌ Failed to requeue resume %s: %v\n", resume.ID, err)
			return cause
		}
		log.Printf("⚠️ Indexing resume %s failed (attempt %d/%d): %v\n", resume.ID, attempt, ix.maxAttempts, cause)
		return &RetryableError{Attempt: attempt, Err: cause}
	}

	if err := ix.deps.Resumes.MarkFailed(ctx, resume.ID, cause.Error()); err != nil {
		log.Printf("❌ Failed to mark resume %s failed: %v\n", resume.ID, err)
	}

	event := NewResumeEvent(EventResumeFailed, resume.ID)
	event.Filename = resume.Filename
	event.Error = cause.Error()
	publishEvent(ctx, ix.deps.Events, event)

	return cause
}

// isRetryable is false for failures that another attempt cannot fix.
func isRetryable(err error) bool {
	return !errors.Is(err, ErrUnsupportedFormat) &&
		!errors.Is(err, ErrNoTextExtracted) &&
		!errors.Is(err, ErrFileNotFound)
}
