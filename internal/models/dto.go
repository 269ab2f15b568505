package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type ResumeResponse struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	Filename         string   `json:"filename"`
	Size             int64    `json:"size"`
	DownloadURL      string   `json:"download_url"`
	UploadDate       string   `json:"upload_date"`
	Status           string   `json:"status"`
	ProcessingStatus string   `json:"processing_status"`
	ProcessingError  *string  `json:"processing_error,omitempty"`
	Summary          string   `json:"summary"`
	Skills           []string `json:"skills"`
	Experience       int      `json:"experience"`
	EducationLevel   string   `json:"educationLevel"`
	Category         string   `json:"category"`
	MatchScore       *int     `json:"match_score,omitempty"`
}

func NewResumeResponse(r *Resume) ResumeResponse {
	skills := []string(r.Skills)
	if skills == nil {
		skills = []string{}
	}

	return ResumeResponse{
		ID:               r.ID.String(),
		Name:             r.DisplayName(),
		Filename:         r.Filename,
		Size:             r.Size,
		DownloadURL:      r.DownloadURL(),
		UploadDate:       r.CreatedAt.UTC().Format(time.RFC3339),
		Status:           string(r.Status),
		ProcessingStatus: string(r.ProcessingStatus),
		ProcessingError:  r.ProcessingError,
		Summary:          r.Summary,
		Skills:           skills,
		Experience:       r.Experience,
		EducationLevel:   r.EducationLevel,
		Category:         r.Category,
	}
}

func NewResumeResponses(resumes []Resume) []ResumeResponse {
	out := make([]ResumeResponse, 0, len(resumes))
	for i := range resumes {
		out = append(out, NewResumeResponse(&resumes[i]))
	}
	return out
}

type SearchResult struct {
	ResumeResponse
	MatchReason string `json:"match_reason"`
	ScoreSource string `json:"score_source"`
}

// Score returns the match score, treating a missing one as zero.
func (s SearchResult) Score() int {
	if s.MatchScore == nil {
		return 0
	}
	return *s.MatchScore
}

type SearchFilters struct {
	MinExperience  *int     `json:"minExperience,omitempty" validate:"omitempty,gte=0,lte=60"`
	EducationLevel string   `json:"educationLevel,omitempty"`
	Category       string   `json:"category,omitempty"`
	Skills         []string `json:"skills,omitempty"`
}

type SearchRequest struct {
	Query      string        `json:"query" validate:"required,max=2000"`
	Filters    SearchFilters `json:"filters"`
	SearchType string        `json:"search_type" validate:"omitempty,oneof=ai_analysis resume_matching semantic"`
	Limit      int           `json:"limit" validate:"gte=0,lte=200"`
}

// Normalize trims the query and applies the default search mode.
func (r *SearchRequest) Normalize() {
	r.Query = strings.TrimSpace(r.Query)
	r.SearchType = strings.TrimSpace(strings.ToLower(r.SearchType))
	if r.SearchType == "" {
		r.SearchType = SearchTypeAIAnalysis
	}
}

type StatusUpdateRequest struct {
	Status ReviewStatus `json:"status" validate:"required,oneof=pending reviewed rejected"`
}

type AnalyzeTextRequest struct {
	Text string `json:"text"`
}

type AnalysisResponse struct {
	Summary        string   `json:"summary"`
	Skills         []string `json:"skills"`
	Experience     int      `json:"experience"`
	EducationLevel string   `json:"educationLevel"`
	Category       string   `json:"category"`
	Source         string   `json:"source"`
}

type ModelStatus struct {
	Status        string `json:"status"`
	Message       string `json:"message"`
	UsingFallback bool   `json:"using_fallback"`
	Mode          string `json:"mode"`
}

type BulkUploadFailure struct {
	Filename string `json:"filename"`
	Error    string `json:"error"`
}

type BulkUploadResponse struct {
	Uploaded []ResumeResponse    `json:"uploaded"`
	Failed   []BulkUploadFailure `json:"failed"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     Role   `json:"role" validate:"omitempty,oneof=recruiter applicant"`
}

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ResumeMetadata is the editable analysis the upload form sends alongside the file.
type ResumeMetadata struct {
	Name           string   `json:"name"`
	Summary        string   `json:"summary"`
	Skills         []string `json:"skills"`
	Experience     Years    `json:"experience"`
	EducationLevel string   `json:"educationLevel"`
	Category       string   `json:"category"`
}

// Years accepts 5, 5.5, "5", "5+" and "" when decoding.
type Years int

func (y *Years) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*y = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*y = ParseYears(s)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("experience must be a number or numeric string: %w", err)
	}
	*y = Years(clampYears(f))
	return nil
}

// ParseYears reads strings such as "5", "5+" or "3.5"; anything else is zero.
func ParseYears(s string) Years {
	s = strings.TrimSpace(strings.ReplaceAll(s, "+", ""))
	if s == "" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return Years(clampYears(f))
}

func clampYears(f float64) int {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 80 {
		return 80
	}
	return int(f)
}
