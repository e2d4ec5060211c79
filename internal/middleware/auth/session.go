package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/rag-console/console/internal/session"
)

// SessionKey is the Locals key holding the *session.Session.
const SessionKey = "session"

// SessionGetter looks up a session by id.
type SessionGetter interface {
	Get(id string) (*session.Session, error)
}

// RequireSession redirects to the login page unless the request carries the
// cookie of a live, authenticated session. The session is stored in Locals.
func RequireSession(sessions SessionGetter, cookieName, loginPath string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(cookieName)
		if id == "" {
			return c.Redirect(loginPath, fiber.StatusSeeOther)
		}

		s, err := sessions.Get(id)
		if err != nil || !s.Authenticated {
			c.ClearCookie(cookieName)
			return c.Redirect(loginPath, fiber.StatusSeeOther)
		}

		c.Locals(SessionKey, s)
		return c.Next()
	}
}

// Current returns the session stored by RequireSession, or nil.
func Current(c *fiber.Ctx) *session.Session {
	s, _ := c.Locals(SessionKey).(*session.Session)
	return s
}
