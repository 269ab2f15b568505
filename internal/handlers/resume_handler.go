package handlers

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"theagentvikram/resumatch/internal/middleware"
	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

type ResumeHandler struct {
	resumeRepo repositories.ResumeRepository
	storage    services.StorageService
	ingest     services.IngestService
}

func NewResumeHandler(
	resumeRepo repositories.ResumeRepository,
	storage services.StorageService,
	ingest services.IngestService,
) *ResumeHandler {
	return &ResumeHandler{
		resumeRepo: resumeRepo,
		storage:    storage,
		ingest:     ingest,
	}
}

type listQuery struct {
	MinExperience  *int   `query:"minExperience" validate:"omitempty,gte=0,lte=60"`
	EducationLevel string `query:"educationLevel"`
	Category       string `query:"category"`
	Skills         string `query:"skills"`
	Status         string `query:"status" validate:"omitempty,oneof=pending reviewed rejected"`
	Limit          int    `query:"limit" validate:"gte=0,lte=500"`
}

// HandleListUser handles GET /api/resumes/user
func (h *ResumeHandler) HandleListUser(c *fiber.Ctx) error {
	resumes, err := h.resumeRepo.List(c.UserContext(), models.ResumeFilter{OwnerID: ownerOf(c)})
	if err != nil {
		return respondError(c, err, "Failed to fetch resumes")
	}
	return c.JSON(models.NewResumeResponses(resumes))
}

// HandleList handles GET /api/resumes
func (h *ResumeHandler) HandleList(c *fiber.Ctx) error {
	var q listQuery
	if err := c.QueryParser(&q); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid query parameters",
		})
	}
	if err := validate.Struct(q); err != nil {
		return validationError(c, err)
	}

	resumes, err := h.resumeRepo.List(c.UserContext(), models.ResumeFilter{
		MinExperience:  q.MinExperience,
		EducationLevel: strings.TrimSpace(q.EducationLevel),
		Category:       strings.TrimSpace(q.Category),
		Skills:         splitList(q.Skills),
		Status:         models.ReviewStatus(q.Status),
		Limit:          q.Limit,
	})
	if err != nil {
		return respondError(c, err, "Failed to fetch resumes")
	}
	return c.JSON(models.NewResumeResponses(resumes))
}

// HandleGet handles GET /api/resumes/:id
func (h *ResumeHandler) HandleGet(c *fiber.Ctx) error {
	resume, err := h.lookup(c)
	if err != nil {
		return respondError(c, err, "Failed to fetch resume")
	}
	return c.JSON(models.NewResumeResponse(resume))
}

// HandleDownload handles GET /api/resumes/download/:id
func (h *ResumeHandler) HandleDownload(c *fiber.Ctx) error {
	resume, err := h.lookup(c)
	if err != nil {
		return respondError(c, err, "Failed to fetch resume")
	}

	data, err := h.storage.ReadFile(c.UserContext(), resume.StorageKey)
	if err != nil {
		return respondError(c, err, "Failed to read resume file")
	}

	contentType := resume.ContentType
	if contentType == "" {
		contentType = services.ContentTypeFor(resume.Filename)
	}
	c.Attachment(resume.Filename)
	c.Set(fiber.HeaderContentType, contentType)
	return c.Send(data)
}

// HandleUpdateStatus handles PATCH /api/resumes/:id/status
func (h *ResumeHandler) HandleUpdateStatus(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return respondError(c, errInvalidResumeID, "")
	}

	var req models.StatusUpdateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}
	if err := validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	if err := h.resumeRepo.UpdateStatus(c.UserContext(), id, req.Status); err != nil {
		return respondError(c, err, "Failed to update resume status")
	}

	resume, err := h.resumeRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return respondError(c, err, "Failed to fetch resume")
	}
	return c.JSON(models.NewResumeResponse(resume))
}

// HandleDelete handles DELETE /api/resumes/:id
func (h *ResumeHandler) HandleDelete(c *fiber.Ctx) error {
	resume, err := h.lookup(c)
	if err != nil {
		return respondError(c, err, "Failed to fetch resume")
	}

	if err := h.ingest.Delete(c.UserContext(), resume.ID); err != nil {
		return respondError(c, err, "Failed to delete resume")
	}

	return c.JSON(fiber.Map{
		"status":  "success",
		"message": fmt.Sprintf("Resume %s deleted successfully", resume.ID),
	})
}

// lookup loads the résumé named by :id. Applicants only see their own; anything
// else is reported as not found.
func (h *ResumeHandler) lookup(c *fiber.Ctx) (*models.Resume, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, errInvalidResumeID
	}

	resume, err := h.resumeRepo.FindByID(c.UserContext(), id)
	if err != nil {
		return nil, err
	}

	if !canAccess(middleware.CurrentClaims(c), resume) {
		return nil, fmt.Errorf("resume %s: %w", id, repositories.ErrResumeNotFound)
	}
	return resume, nil
}

func canAccess(claims *services.Claims, resume *models.Resume) bool {
	if claims == nil || claims.Role.IsStaff() {
		return true
	}
	return resume.OwnerID != nil && *resume.OwnerID == claims.UserID
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
