package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"theagentvikram/resumatch/internal/models"
)

var ErrResumeNotFound = errors.New("resume not found")

type ResumeRepository interface {
	Create(ctx context.Context, resume *models.Resume) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error)
	List(ctx context.Context, filter models.ResumeFilter) ([]models.Resume, error)
	Delete(ctx context.Context, id uuid.UUID) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReviewStatus) error
	UpdateText(ctx context.Context, id uuid.UUID, text string) error
	ClaimForProcessing(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error)
	MarkIndexed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error
	Requeue(ctx context.Context, id uuid.UUID, errorMsg string) error
	// ResetIndexing queues the résumé again with a fresh retry budget. With
	// clearText the stored text is dropped so indexing extracts it again.
	ResetIndexing(ctx context.Context, id uuid.UUID, clearText bool) error
	FindPendingIndexing(ctx context.Context, queuedBefore, staleBefore time.Time, limit int) ([]models.Resume, error)
	DistinctSkills(ctx context.Context) ([]string, error)
}

type resumeRepository struct {
	db *gorm.DB
}

func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

func (r *resumeRepository) Create(ctx context.Context, resume *models.Resume) error {
	if err := r.db.WithContext(ctx).Create(resume).Error; err != nil {
		return fmt.Errorf("failed to create resume: %w", err)
	}
	return nil
}

func (r *resumeRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Resume, error) {
	var resume models.Resume
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("resume %s: %w", id, ErrResumeNotFound)
		}
		return nil, fmt.Errorf("failed to find resume: %w", err)
	}
	return &resume, nil
}

func (r *resumeRepository) List(ctx context.Context, filter models.ResumeFilter) ([]models.Resume, error) {
	q := r.db.WithContext(ctx).Model(&models.Resume{})

	if filter.OwnerID != nil {
		q = q.Where("owner_id = ?", *filter.OwnerID)
	}
	if filter.MinExperience != nil {
		q = q.Where("experience >= ?", *filter.MinExperience)
	}
	if filter.EducationLevel != "" {
		q = q.Where("LOWER(education_level) = LOWER(?)", filter.EducationLevel)
	}
	if filter.Category != "" {
		q = q.Where("LOWER(category) = LOWER(?)", filter.Category)
	}
	if len(filter.Skills) > 0 {
		wanted := make(pq.StringArray, 0, len(filter.Skills))
		for _, s := range filter.Skills {
			if s = strings.TrimSpace(s); s != "" {
				wanted = append(wanted, strings.ToLower(s))
			}
		}
		if len(wanted) > 0 {
			q = q.Where("EXISTS (SELECT 1 FROM unnest(skills) AS s WHERE LOWER(s) = ANY(?))", wanted)
		}
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var resumes []models.Resume
	if err := q.Order("created_at DESC").Find(&resumes).Error; err != nil {
		return nil, fmt.Errorf("failed to list resumes: %w", err)
	}
	return resumes, nil
}

func (r *resumeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Resume{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete resume: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrResumeNotFound)
	}
	return nil
}

func (r *resumeRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReviewStatus) error {
	return r.update(ctx, id, map[string]interface{}{
		"status": status,
	})
}

func (r *resumeRepository) UpdateText(ctx context.Context, id uuid.UUID, text string) error {
	return r.update(ctx, id, map[string]interface{}{
		"text": text,
	})
}

// ClaimForProcessing moves a queued (or stale processing) résumé to processing.
// It returns false when another worker already owns the job.
func (r *resumeRepository) ClaimForProcessing(ctx context.Context, id uuid.UUID, staleBefore time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("id = ?", id).
		Where("processing_status = ? OR (processing_status = ? AND updated_at < ?)",
			models.ProcessingQueued, models.ProcessingProcessing, staleBefore).
		Updates(map[string]interface{}{
			"processing_status": models.ProcessingProcessing,
			"attempts":          gorm.Expr("attempts + 1"),
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return false, fmt.Errorf("failed to claim resume: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (r *resumeRepository) MarkIndexed(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]interface{}{
		"processing_status": models.ProcessingIndexed,
		"processing_error":  nil,
		"attempts":          0,
	})
}

func (r *resumeRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(ctx, id, map[string]interface{}{
		"processing_status": models.ProcessingFailed,
		"processing_error":  errorMsg,
	})
}

func (r *resumeRepository) Requeue(ctx context.Context, id uuid.UUID, errorMsg string) error {
	return r.update(ctx, id, map[string]interface{}{
		"processing_status": models.ProcessingQueued,
		"processing_error":  errorMsg,
	})
}

func (r *resumeRepository) ResetIndexing(ctx context.Context, id uuid.UUID, clearText bool) error {
	updates := map[string]interface{}{
		"processing_status": models.ProcessingQueued,
		"processing_error":  nil,
		"attempts":          0,
	}
	if clearText {
		updates["text"] = ""
	}
	return r.update(ctx, id, updates)
}

func (r *resumeRepository) FindPendingIndexing(ctx context.Context, queuedBefore, staleBefore time.Time, limit int) ([]models.Resume, error) {
	var resumes []models.Resume
	err := r.db.WithContext(ctx).
		Select("id", "processing_status", "attempts", "updated_at", "created_at").
		Where("(processing_status = ? AND updated_at < ?) OR (processing_status = ? AND updated_at < ?)",
			models.ProcessingQueued, queuedBefore, models.ProcessingProcessing, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&resumes).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending resumes: %w", err)
	}
	return resumes, nil
}

func (r *resumeRepository) DistinctSkills(ctx context.Context) ([]string, error) {
	var skills []string
	err := r.db.WithContext(ctx).
		Raw("SELECT DISTINCT unnest(skills) AS skill FROM resumes ORDER BY skill").
		Scan(&skills).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list skills: %w", err)
	}
	return skills, nil
}

func (r *resumeRepository) update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	updates["updated_at"] = time.Now()

	result := r.db.WithContext(ctx).Model(&models.Resume{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update resume: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("resume %s: %w", id, ErrResumeNotFound)
	}
	return nil
}
