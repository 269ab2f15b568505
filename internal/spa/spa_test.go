package spa

import (
	"io"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, app *fiber.App, path string) (int, string) {
	t.Helper()
	resp, err := app.Test(httptest.NewRequest(fiber.MethodGet, path, nil))
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestRegister_ServesAssetsWithIndexFallback(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<div id=root></div>"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log(1)"), 0o644))

	assert.True(t, HasBuild(dir))

	app := fiber.New()
	require.True(t, Register(app, dir))

	code, body := get(t, app, "/assets/app.js")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "console.log(1)", body)

	code, body = get(t, app, "/recruiter/dashboard")
	assert.Equal(t, fiber.StatusOK, code)
	assert.Equal(t, "<div id=root></div>", body)
}

func TestRegister_WithoutBuild(t *testing.T) {
	app := fiber.New()
	assert.False(t, Register(app, ""))
	assert.False(t, Register(app, t.TempDir()))
	assert.False(t, Register(app, filepath.Join(t.TempDir(), "missing")))

	code, _ := get(t, app, "/anything")
	assert.Equal(t, fiber.StatusNotFound, code)
}
