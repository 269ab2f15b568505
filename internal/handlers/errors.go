package handlers

import (
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

var errInvalidResumeID = errors.New("Invalid resume ID format")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		for _, tag := range []string{"json", "query", "form"} {
			name := strings.SplitN(field.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return ""
	})
	return v
}

// errorStatuses maps service errors to HTTP statuses. Order matters for wrapped errors.
var errorStatuses = []struct {
	err    error
	status int
}{
	{errInvalidResumeID, fiber.StatusBadRequest},
	{repositories.ErrResumeNotFound, fiber.StatusNotFound},
	{repositories.ErrUserNotFound, fiber.StatusNotFound},
	{services.ErrFileNotFound, fiber.StatusNotFound},
	{services.ErrFileTooLarge, fiber.StatusRequestEntityTooLarge},
	{services.ErrEmptyFile, fiber.StatusBadRequest},
	{services.ErrUnsupportedFormat, fiber.StatusBadRequest},
	{services.ErrNoTextExtracted, fiber.StatusUnprocessableEntity},
	{services.ErrEmptyQuery, fiber.StatusBadRequest},
	{services.ErrUnknownSearchType, fiber.StatusBadRequest},
	{services.ErrSemanticSearchDisabled, fiber.StatusBadRequest},
	{services.ErrInvalidUsername, fiber.StatusBadRequest},
	{repositories.ErrUsernameTaken, fiber.StatusConflict},
	{services.ErrInvalidCredentials, fiber.StatusUnauthorized},
	{services.ErrInvalidToken, fiber.StatusUnauthorized},
	{services.ErrAnalyzerUnavailable, fiber.StatusServiceUnavailable},
	{services.ErrAuthDisabled, fiber.StatusServiceUnavailable},
}

// classifyError returns the status and client-facing message for err. Unknown
// errors are reported as 500 with an empty message.
func classifyError(err error) (int, string) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return fiber.StatusInternalServerError, ""
}

// respondError writes {"error": ...}. Internal failures are logged and reported
// with the fallback message only.
func respondError(c *fiber.Ctx, err error, fallback string) error {
	status, message := classifyError(err)
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ %s: %v\n", fallback, err)
		message = fallback
	}
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// validationMessage turns validator errors into one readable line.
func validationMessage(err error) string {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err.Error()
	}

	messages := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", fe.Field()))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of: %s", fe.Field(), fe.Param()))
		case "min", "gte":
			messages = append(messages, fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param()))
		case "max", "lte":
			messages = append(messages, fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param()))
		default:
			messages = append(messages, fmt.Sprintf("%s is invalid", fe.Field()))
		}
	}
	return strings.Join(messages, "; ")
}

func validationError(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": validationMessage(err),
	})
}

// readFormFile loads an uploaded part, refusing files over maxSize before reading them.
func readFormFile(file *multipart.FileHeader, maxSize int64) ([]byte, error) {
	if maxSize > 0 && file.Size > maxSize {
		return nil, fmt.Errorf("%s is %d bytes: %w", file.Filename, file.Size, services.ErrFileTooLarge)
	}

	f, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}

// NotFound answers unmatched API routes.
func NotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": fmt.Sprintf("Route %s %s not found", c.Method(), c.Path()),
	})
}
