// Package web serves the console's pages. Every page is rendered on the
// server from the session's view containers; the only script on the site is
// the scraping tab's websocket feed.
package web

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/template/html/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/microcosm-cc/bluemonday"

	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/internal/middleware/auth"
	"github.com/rag-console/console/internal/session"
)

const (
	loginPath   = "/login"
	consolePath = "/console"
)

type Config struct {
	CookieName   string
	SecureCookie bool
	// LoginLimit and FormGuard are optional middleware for the login form
	// and for the console's form posts.
	LoginLimit fiber.Handler
	FormGuard  fiber.Handler
}

type Server struct {
	cfg      Config
	sessions *session.Manager
	views    *html.Engine
	policy   *bluemonday.Policy
}

func NewServer(cfg Config, sessions *session.Manager) (*Server, error) {
	if cfg.CookieName == "" {
		cfg.CookieName = "rag_console_session"
	}
	views, err := newViews()
	if err != nil {
		return nil, fmt.Errorf("failed to load templates: %w", err)
	}
	return &Server{
		cfg:      cfg,
		sessions: sessions,
		views:    views,
		policy:   bluemonday.StrictPolicy(),
	}, nil
}

// Views is the template engine the fiber app must be created with.
func (s *Server) Views() fiber.Views {
	return s.views
}

// Register mounts every console route on app. The app has to be created
// with Views as its view engine.
func (s *Server) Register(app *fiber.App) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})
	app.Get("/metrics", metrics.MetricsHandler())

	app.Get("/", s.root)

	login := app.Group(loginPath)
	if s.cfg.LoginLimit != nil {
		login.Use(s.cfg.LoginLimit)
	}
	login.Get("", s.loginForm)
	login.Post("", s.login)
	app.Post("/logout", s.logout)

	con := app.Group(consolePath, auth.RequireSession(s.sessions, s.cfg.CookieName, loginPath))
	if s.cfg.FormGuard != nil {
		con.Use(s.cfg.FormGuard)
	}

	con.Get("", s.consolePage)
	con.Post("/tab/:tab", s.selectTab)
	con.Post("/retry", s.retry)

	con.Post("/knowledge", s.addSource)
	con.Post("/knowledge/:id/sync", s.syncSource)

	con.Post("/scraping/jobs", s.startJob)
	con.Post("/scraping/jobs/:id/cancel", s.cancelJob)
	con.Get("/scraping/jobs/:id", s.jobDetail)
	con.Get("/scraping/ws", requireUpgrade, websocket.New(s.scrapingFeed))

	con.Post("/settings", s.saveSettings)
	con.Post("/settings/secrets/:field", s.toggleSecret)
	con.Post("/settings/test/:service", s.testConnection)
}

func (s *Server) root(c *fiber.Ctx) error {
	if _, err := s.sessions.Get(c.Cookies(s.cfg.CookieName)); err == nil {
		return c.Redirect(consolePath, fiber.StatusSeeOther)
	}
	return c.Redirect(loginPath, fiber.StatusSeeOther)
}

func requireUpgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// back redirects to the console after a form post.
func back(c *fiber.Ctx) error {
	return c.Redirect(consolePath, fiber.StatusSeeOther)
}
