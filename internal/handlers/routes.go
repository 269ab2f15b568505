package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"theagentvikram/resumatch/internal/middleware"
	"theagentvikram/resumatch/internal/models"
)

// Routes groups the handlers mounted on the API.
type Routes struct {
	System  *SystemHandler
	Analyze *AnalyzeHandler
	Upload  *UploadHandler
	Resumes *ResumeHandler
	Search  *SearchHandler
	Auth    *AuthHandler

	Tokens       middleware.TokenValidator
	AuthRequired bool
	// RateLimit is requests per minute per client on analyze and auth routes; 0 disables it.
	RateLimit int
}

func (r *Routes) Register(app *fiber.App) {
	staff := middleware.RequireRole(models.RoleRecruiter, models.RoleAdmin)
	signedIn := middleware.RequireRole()
	limited := r.rateLimiter()

	app.Get("/", r.System.HandleRoot)

	authGroup := app.Group("/auth", middleware.Authenticate(r.Tokens, false))
	authGroup.Post("/register", limited, r.Auth.HandleRegister)
	authGroup.Post("/login", limited, r.Auth.HandleLogin)
	authGroup.Post("/logout", r.Auth.HandleLogout)
	authGroup.Get("/me", r.Auth.HandleMe)

	api := app.Group("/api")
	api.Get("/health", r.System.HandleHealth)
	api.Get("/model/status", r.Analyze.HandleModelStatus)

	api.Use(middleware.Authenticate(r.Tokens, r.AuthRequired))
	api.Get("/skills", r.Search.HandleSkills)

	resumes := api.Group("/resumes")
	resumes.Post("/analyze", limited, signedIn, r.Analyze.HandleAnalyze)
	resumes.Post("/upload", signedIn, r.Upload.HandleUpload)
	resumes.Post("/upload-bulk", signedIn, r.Upload.HandleBulkUpload)
	resumes.Get("/user", signedIn, r.Resumes.HandleListUser)
	resumes.Get("/search", staff, r.Search.HandleSearch)
	resumes.Post("/search", staff, r.Search.HandleSearch)
	resumes.Get("/download/:id", signedIn, r.Resumes.HandleDownload)
	resumes.Get("/", staff, r.Resumes.HandleList)
	resumes.Get("/:id", signedIn, r.Resumes.HandleGet)
	resumes.Patch("/:id/status", staff, r.Resumes.HandleUpdateStatus)
	resumes.Delete("/:id", signedIn, r.Resumes.HandleDelete)

	api.All("/*", NotFound)
}

func (r *Routes) rateLimiter() fiber.Handler {
	if r.RateLimit <= 0 {
		return func(c *fiber.Ctx) error { return c.Next() }
	}
	return limiter.New(limiter.Config{
		Max:        r.RateLimit,
		Expiration: time.Minute,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
			})
		},
	})
}
