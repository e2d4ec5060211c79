package web

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/middleware/auth"
	"github.com/rag-console/console/internal/settings"
)

func (s *Server) saveSettings(c *fiber.Ctx) error {
	sess := auth.Current(c)
	editor := sess.Workspace.Settings
	sess.Workspace.Dashboard.SelectTab(console.TabSettings)

	cfg, err := settingsFromForm(c)
	if err == nil {
		err = editor.Save(c.UserContext(), cfg)
	} else {
		editor.Update(cfg)
	}

	var verr *settings.ValidationError
	switch {
	case err == nil:
		sess.AddFlash("success", "Settings saved successfully")
	case errors.As(err, &verr):
		for _, f := range verr.Fields {
			sess.AddFlash("error", f.Field+": "+f.Message)
		}
	case errors.Is(err, console.ErrSaveInProgress):
		sess.AddFlash("error", "A save is already in progress")
	default:
		flashResult(sess, err, "")
	}
	return back(c)
}

// toggleSecret keeps the values typed so far, then flips one field's
// visibility.
func (s *Server) toggleSecret(c *fiber.Ctx) error {
	sess := auth.Current(c)
	editor := sess.Workspace.Settings
	sess.Workspace.Dashboard.SelectTab(console.TabSettings)

	if cfg, err := settingsFromForm(c); err == nil {
		editor.Update(cfg)
	}
	if _, err := editor.ToggleSecret(c.Params("field")); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Unknown field")
	}
	return back(c)
}

// testConnection probes one service with the values currently in the form.
func (s *Server) testConnection(c *fiber.Ctx) error {
	sess := auth.Current(c)
	editor := sess.Workspace.Settings
	sess.Workspace.Dashboard.SelectTab(console.TabSettings)

	cfg, err := settingsFromForm(c)
	if err != nil {
		sess.AddFlash("error", err.Error())
		return back(c)
	}
	editor.Update(cfg)

	_, err = editor.TestConnection(c.UserContext(), c.Params("service"))
	switch {
	case errors.Is(err, console.ErrUnknownService):
		return fiber.NewError(fiber.StatusNotFound, "Unknown service")
	case errors.Is(err, console.ErrTestInProgress):
		sess.AddFlash("error", "A test is already running for this service")
	}
	return back(c)
}

// settingsFromForm reads the settings form. Number fields that do not parse
// are reported the way validation failures are, and left at zero.
func settingsFromForm(c *fiber.Ctx) (settings.Settings, error) {
	f := formReader{c: c}
	var cfg settings.Settings

	cfg.Telegram.BotToken = f.secret("telegram.botToken")
	cfg.Telegram.WebhookURL = f.text("telegram.webhookUrl")

	cfg.LLM.APIURL = f.text("llm.apiUrl")
	cfg.LLM.APIKey = f.secret("llm.apiKey")
	cfg.LLM.Model = f.text("llm.model")

	cfg.Reranker.APIURL = f.text("reranker.apiUrl")
	cfg.Reranker.APIKey = f.secret("reranker.apiKey")

	cfg.Embedding.Model = f.text("embedding.model")

	cfg.RAG.TopK = f.number("rag.topK")
	cfg.RAG.TopRerank = f.number("rag.topRerank")
	cfg.RAG.MaxConversationHistory = f.number("rag.maxConversationHistory")

	cfg.Scraping.Delay = f.number("scraping.delay")
	cfg.Scraping.MaxDepth = f.number("scraping.maxDepth")
	cfg.Scraping.UserAgent = f.text("scraping.userAgent")

	cfg.Redis.Host = f.text("redis.host")
	cfg.Redis.Port = f.number("redis.port")
	cfg.Redis.Password = f.secret("redis.password")
	cfg.Redis.DB = f.number("redis.db")

	cfg.Milvus.Host = f.text("milvus.host")
	cfg.Milvus.Port = f.number("milvus.port")
	cfg.Milvus.Username = f.text("milvus.username")
	cfg.Milvus.Password = f.secret("milvus.password")

	cfg.System.Debug = c.FormValue("system.debug") != ""
	cfg.System.LogLevel = f.text("system.logLevel")

	if len(f.errs) > 0 {
		return cfg, &settings.ValidationError{Fields: f.errs}
	}
	return cfg, nil
}

type formReader struct {
	c    *fiber.Ctx
	errs []settings.FieldError
}

func (f *formReader) text(key string) string {
	return strings.TrimSpace(f.c.FormValue(key))
}

// Secrets are taken verbatim.
func (f *formReader) secret(key string) string {
	return f.c.FormValue(key)
}

func (f *formReader) number(key string) int {
	raw := f.text(key)
	n, err := strconv.Atoi(raw)
	if err != nil {
		f.errs = append(f.errs, settings.FieldError{Field: key, Message: "must be a whole number"})
		return 0
	}
	return n
}
