package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type Config struct {
	MaxFieldLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware guards the console's form posts: only form encodings are
// accepted and no urlencoded field may exceed MaxFieldLength. Field contents
// are checked by the handlers, which report problems as flash alerts.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 10000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{fiber.MIMEApplicationForm, fiber.MIMEMultipartForm}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get(fiber.HeaderContentType)
		if contentType != "" && !allowedType(contentType, cfg.AllowedContentTypes) {
			cfg.Logger.Warn("Rejected content type",
				zap.String("path", c.Path()),
				zap.String("content_type", contentType),
			)
			return c.Status(fiber.StatusUnsupportedMediaType).SendString("Unsupported content type")
		}

		tooLong := ""
		c.Request().PostArgs().VisitAll(func(key, value []byte) {
			if tooLong == "" && len(value) > cfg.MaxFieldLength {
				tooLong = string(key)
			}
		})
		if tooLong != "" {
			cfg.Logger.Warn("Rejected oversized field",
				zap.String("path", c.Path()),
				zap.String("field", tooLong),
			)
			return c.Status(fiber.StatusRequestEntityTooLarge).SendString("Field too long")
		}

		return c.Next()
	}
}

func allowedType(contentType string, allowed []string) bool {
	for _, t := range allowed {
		if strings.HasPrefix(strings.ToLower(contentType), t) {
			return true
		}
	}
	return false
}
