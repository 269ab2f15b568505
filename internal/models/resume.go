package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type Resume struct {
	ID               uuid.UUID        `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	OwnerID          *uuid.UUID       `gorm:"type:uuid;index" json:"owner_id,omitempty"`
	Name             string           `gorm:"type:text" json:"name"`
	Filename         string           `gorm:"type:text" json:"filename"`
	StorageKey       string           `gorm:"type:text" json:"-"`
	ContentType      string           `gorm:"type:text" json:"content_type"`
	Size             int64            `json:"size"`
	Summary          string           `gorm:"type:text" json:"summary"`
	Skills           pq.StringArray   `gorm:"type:text[]" json:"skills"`
	Experience       int              `gorm:"not null;default:0" json:"experience"`
	EducationLevel   string           `gorm:"type:text" json:"educationLevel"`
	Category         string           `gorm:"type:text;index" json:"category"`
	Status           ReviewStatus     `gorm:"not null;default:'pending'" json:"status"`
	ProcessingStatus ProcessingStatus `gorm:"not null;default:'queued';index" json:"processing_status"`
	ProcessingError  *string          `gorm:"type:text" json:"processing_error,omitempty"`
	Attempts         int              `gorm:"not null;default:0" json:"-"`
	Text             string           `gorm:"type:text" json:"-"`
	CreatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"upload_date"`
	UpdatedAt        time.Time        `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Resume) TableName() string {
	return "resumes"
}

// DownloadURL is the API path that streams the stored file.
func (r *Resume) DownloadURL() string {
	return fmt.Sprintf("/api/resumes/download/%s", r.ID)
}

// DisplayName falls back to the uploaded filename when no name was given.
func (r *Resume) DisplayName() string {
	if r.Name != "" {
		return r.Name
	}
	return r.Filename
}

// ResumeFilter narrows List queries. Zero values mean "no constraint".
type ResumeFilter struct {
	OwnerID        *uuid.UUID
	MinExperience  *int
	EducationLevel string
	Category       string
	Skills         []string
	Status         ReviewStatus
	Limit          int
}
