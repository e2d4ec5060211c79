package web

import (
	"bytes"
	"embed"
	"io/fs"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"github.com/rag-console/console/pkg/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// newViews loads every page and partial from the embedded templates. Pages
// are looked up by their define name, so "console" is the console page.
func newViews() (*html.Engine, error) {
	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, err
	}
	engine := html.NewFileSystem(http.FS(sub), ".html")
	if err := engine.Load(); err != nil {
		return nil, err
	}
	return engine, nil
}

// renderString executes a template into a string, for the websocket feed.
func (s *Server) renderString(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := s.views.Render(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// render sets the status and renders through the app's view engine, which
// buffers the page so a template error never sends half a document.
func (s *Server) render(c *fiber.Ctx, status int, name string, data any) error {
	if err := c.Status(status).Render(name, data); err != nil {
		logger.Error("Failed to render template", zap.String("template", name), zap.Error(err))
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to render page")
	}
	return nil
}
