package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"theagentvikram/resumatch/internal/middleware"
	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/services"
)

const (
	// MaxBulkFiles caps a single bulk upload request.
	MaxBulkFiles = 20

	bulkUploadConcurrency = 4
)

type UploadHandler struct {
	ingest      services.IngestService
	maxFileSize int64
}

func NewUploadHandler(ingest services.IngestService, maxFileSize int64) *UploadHandler {
	return &UploadHandler{
		ingest:      ingest,
		maxFileSize: maxFileSize,
	}
}

// HandleUpload handles POST /api/resumes/upload
func (h *UploadHandler) HandleUpload(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No file provided. Please upload a resume as 'file'.",
		})
	}

	var metadata *models.ResumeMetadata
	if raw := c.FormValue("metadata"); raw != "" {
		metadata = &models.ResumeMetadata{}
		if err := json.Unmarshal([]byte(raw), metadata); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": fmt.Sprintf("Invalid metadata: %v", err),
			})
		}
	}

	resume, err := h.store(c.UserContext(), ownerOf(c), file, metadata)
	if err != nil {
		return respondError(c, err, "Failed to upload resume")
	}

	return c.Status(fiber.StatusCreated).JSON(models.NewResumeResponse(resume))
}

// HandleBulkUpload handles POST /api/resumes/upload-bulk. Every file is analyzed
// on its own; one bad file does not fail the batch.
func (h *UploadHandler) HandleBulkUpload(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "failed to parse multipart form",
		})
	}

	files := form.File["files"]
	if len(files) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No files provided. Please upload resumes as 'files'.",
		})
	}
	if len(files) > MaxBulkFiles {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": fmt.Sprintf("Too many files. Max per request: %d", MaxBulkFiles),
		})
	}

	ctx, owner := c.UserContext(), ownerOf(c)
	uploaded := make([]*models.Resume, len(files))
	failures := make([]error, len(files))

	g := new(errgroup.Group)
	g.SetLimit(bulkUploadConcurrency)
	for i, file := range files {
		g.Go(func() error {
			uploaded[i], failures[i] = h.store(ctx, owner, file, nil)
			return nil
		})
	}
	_ = g.Wait()

	resp := models.BulkUploadResponse{
		Uploaded: []models.ResumeResponse{},
		Failed:   []models.BulkUploadFailure{},
	}
	for i, file := range files {
		if failures[i] != nil {
			_, message := classifyError(failures[i])
			if message == "" {
				message = "Failed to upload resume"
			}
			resp.Failed = append(resp.Failed, models.BulkUploadFailure{Filename: file.Filename, Error: message})
			continue
		}
		resp.Uploaded = append(resp.Uploaded, models.NewResumeResponse(uploaded[i]))
	}

	status := fiber.StatusCreated
	if len(resp.Uploaded) == 0 {
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(resp)
}

func (h *UploadHandler) store(ctx context.Context, owner *uuid.UUID, file *multipart.FileHeader, metadata *models.ResumeMetadata) (*models.Resume, error) {
	data, err := readFormFile(file, h.maxFileSize)
	if err != nil {
		return nil, err
	}

	return h.ingest.Ingest(ctx, services.IngestInput{
		Filename:    file.Filename,
		ContentType: file.Header.Get(fiber.HeaderContentType),
		Data:        data,
		OwnerID:     owner,
		Metadata:    metadata,
	})
}

// ownerOf returns the signed-in caller's ID, or nil for anonymous requests.
func ownerOf(c *fiber.Ctx) *uuid.UUID {
	if claims := middleware.CurrentClaims(c); claims != nil {
		id := claims.UserID
		return &id
	}
	return nil
}
