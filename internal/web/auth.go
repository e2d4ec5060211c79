package web

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/session"
	"github.com/rag-console/console/pkg/logger"
)

const pageTitle = "RAG Chatbot Admin"

func (s *Server) loginForm(c *fiber.Ctx) error {
	if _, err := s.sessions.Get(c.Cookies(s.cfg.CookieName)); err == nil {
		return back(c)
	}
	return s.render(c, fiber.StatusOK, "login", loginPage{Title: pageTitle})
}

func (s *Server) login(c *fiber.Ctx) error {
	username := c.FormValue("username")
	sess, err := s.sessions.Login(username, c.FormValue("password"))
	if errors.Is(err, session.ErrInvalidCredentials) {
		return s.render(c, fiber.StatusUnauthorized, "login", loginPage{
			Title:    pageTitle,
			Username: username,
			Error:    err.Error(),
		})
	}
	if err != nil {
		return err
	}

	if sess.Workspace != nil && sess.Workspace.Settings != nil {
		if err := sess.Workspace.Settings.Load(c.UserContext()); err != nil {
			logger.Warn("Failed to load stored settings", zap.Error(err))
		}
	}

	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    sess.ID,
		Path:     "/",
		HTTPOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: fiber.CookieSameSiteLaxMode,
		Expires:  time.Now().Add(12 * time.Hour),
	})
	return back(c)
}

func (s *Server) logout(c *fiber.Ctx) error {
	if id := c.Cookies(s.cfg.CookieName); id != "" {
		s.sessions.Logout(id)
	}
	c.ClearCookie(s.cfg.CookieName)
	return c.Redirect(loginPath, fiber.StatusSeeOther)
}
