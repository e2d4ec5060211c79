package validation

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func TestMiddleware(t *testing.T) {
	app := fiber.New()
	app.Use(Middleware(Config{MaxFieldLength: 20}))
	app.Post("/console/knowledge", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Post("/console/scraping/jobs", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/console", func(c *fiber.Ctx) error { return c.SendString("ok") })

	tests := []struct {
		name        string
		method      string
		path        string
		contentType string
		body        string
		want        int
	}{
		{"form accepted", "POST", "/console/knowledge", fiber.MIMEApplicationForm, url.Values{"url": {"docs"}}.Encode(), fiber.StatusOK},
		{"json rejected", "POST", "/console/scraping/jobs", fiber.MIMEApplicationJSON, `{}`, fiber.StatusUnsupportedMediaType},
		{"oversized field", "POST", "/console/scraping/jobs", fiber.MIMEApplicationForm, url.Values{"urls": {strings.Repeat("a", 21)}}.Encode(), fiber.StatusRequestEntityTooLarge},
		{"scraping urls unchecked", "POST", "/console/scraping/jobs", fiber.MIMEApplicationForm, url.Values{"urls": {"not a url"}}.Encode(), fiber.StatusOK},
		{"gets pass", "GET", "/console", fiber.MIMEApplicationJSON, "", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", tt.contentType)
			resp, err := app.Test(req)
			if err != nil {
				t.Fatal(err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("expected %d, got %d", tt.want, resp.StatusCode)
			}
		})
	}
}
