package handlers

import (
	"strings"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/services"
)

// minAnalyzeTextLength is the shortest pasted text worth analyzing, in characters.
const minAnalyzeTextLength = 20

type AnalyzeHandler struct {
	analyzer    services.Analyzer
	extractor   services.TextExtractor
	modelStatus services.ModelStatusService
	maxFileSize int64
}

func NewAnalyzeHandler(
	analyzer services.Analyzer,
	extractor services.TextExtractor,
	modelStatus services.ModelStatusService,
	maxFileSize int64,
) *AnalyzeHandler {
	return &AnalyzeHandler{
		analyzer:    analyzer,
		extractor:   extractor,
		modelStatus: modelStatus,
		maxFileSize: maxFileSize,
	}
}

// HandleAnalyze handles POST /api/resumes/analyze. Pasted text wins over an uploaded file.
func (h *AnalyzeHandler) HandleAnalyze(c *fiber.Ctx) error {
	text, provided, err := h.textInput(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if provided {
		if utf8.RuneCountInString(strings.TrimSpace(text)) < minAnalyzeTextLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Text input is too short or empty",
			})
		}
	} else {
		file, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "No file or text provided",
			})
		}
		if !services.IsSupportedFile(file.Filename) {
			return respondError(c, services.ErrUnsupportedFormat, "")
		}

		data, err := readFormFile(file, h.maxFileSize)
		if err != nil {
			return respondError(c, err, "Failed to process the file")
		}
		if len(data) == 0 {
			return respondError(c, services.ErrEmptyFile, "")
		}

		text, err = h.extractor.Extract(file.Filename, data)
		if err != nil {
			return respondError(c, err, "Failed to process the file")
		}
	}

	result, err := h.analyzer.Analyze(c.UserContext(), text)
	if err != nil {
		return respondError(c, err, "Failed to analyze resume")
	}

	return c.JSON(result.Response())
}

// textInput finds text sent as JSON {"text": ...}, a multipart "text" field or a raw body.
func (h *AnalyzeHandler) textInput(c *fiber.Ctx) (string, bool, error) {
	contentType := strings.ToLower(c.Get(fiber.HeaderContentType))

	switch {
	case strings.HasPrefix(contentType, fiber.MIMEApplicationJSON):
		var req models.AnalyzeTextRequest
		if err := c.BodyParser(&req); err != nil {
			return "", false, err
		}
		return req.Text, true, nil
	case strings.HasPrefix(contentType, fiber.MIMEMultipartForm):
		if text := c.FormValue("text"); text != "" {
			return text, true, nil
		}
		return "", false, nil
	case len(c.Body()) > 0:
		return string(c.Body()), true, nil
	}
	return "", false, nil
}

// HandleModelStatus handles GET /api/model/status
func (h *AnalyzeHandler) HandleModelStatus(c *fiber.Ctx) error {
	return c.JSON(h.modelStatus.Status(c.UserContext()))
}
