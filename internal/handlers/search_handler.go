package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"theagentvikram/resumatch/internal/models"
	"theagentvikram/resumatch/internal/repositories"
	"theagentvikram/resumatch/internal/services"
)

type SearchHandler struct {
	search     services.SearchService
	resumeRepo repositories.ResumeRepository
}

func NewSearchHandler(search services.SearchService, resumeRepo repositories.ResumeRepository) *SearchHandler {
	return &SearchHandler{
		search:     search,
		resumeRepo: resumeRepo,
	}
}

type searchQuery struct {
	Query          string `query:"query"`
	SearchType     string `query:"search_type"`
	Limit          int    `query:"limit"`
	MinExperience  *int   `query:"minExperience"`
	EducationLevel string `query:"educationLevel"`
	Category       string `query:"category"`
	Skills         string `query:"skills"`
}

func (q searchQuery) request() models.SearchRequest {
	return models.SearchRequest{
		Query:      q.Query,
		SearchType: q.SearchType,
		Limit:      q.Limit,
		Filters: models.SearchFilters{
			MinExperience:  q.MinExperience,
			EducationLevel: q.EducationLevel,
			Category:       q.Category,
			Skills:         splitList(q.Skills),
		},
	}
}

// HandleSearch handles GET and POST /api/resumes/search. GET reads query
// parameters, POST a JSON SearchRequest.
func (h *SearchHandler) HandleSearch(c *fiber.Ctx) error {
	var req models.SearchRequest

	if c.Method() == fiber.MethodGet {
		var q searchQuery
		if err := c.QueryParser(&q); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid query parameters",
			})
		}
		req = q.request()
	} else if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	req.Normalize()
	if err := validate.Struct(req); err != nil {
		return validationError(c, err)
	}

	results, err := h.search.Search(c.UserContext(), req, nil)
	if err != nil {
		return respondError(c, err, "Failed to search resumes")
	}
	return c.JSON(results)
}

// HandleSkills handles GET /api/skills?q=
func (h *SearchHandler) HandleSkills(c *fiber.Ctx) error {
	stored, err := h.resumeRepo.DistinctSkills(c.UserContext())
	if err != nil {
		return respondError(c, err, "Failed to fetch skills")
	}

	prefix := strings.TrimSpace(c.Query("q"))
	return c.JSON(services.MergeSkills(prefix, services.SkillCatalog(), stored))
}
