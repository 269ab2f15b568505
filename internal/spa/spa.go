package spa

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/filesystem"
)

const indexFile = "index.html"

// Register serves the built frontend from dir. Unknown paths get index.html so
// client-side routes survive a reload. It returns false when there is no build.
func Register(app *fiber.App, dir string) bool {
	if !HasBuild(dir) {
		log.Printf("⚠️ No frontend build found in %s, serving the API only\n", dir)
		return false
	}

	app.Use(filesystem.New(filesystem.Config{
		Root:         http.Dir(dir),
		Index:        indexFile,
		NotFoundFile: indexFile,
		MaxAge:       3600,
	}))

	log.Printf("✅ Serving frontend from %s\n", dir)
	return true
}

// HasBuild reports whether dir holds a frontend build with an index.html.
func HasBuild(dir string) bool {
	if dir == "" {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, indexFile))
	return err == nil && !info.IsDir()
}
