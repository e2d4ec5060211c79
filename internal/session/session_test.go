package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rag-console/console/internal/console"
)

func TestLogin_AcceptsDemoCredentials(t *testing.T) {
	built := 0
	m := NewManager(func() *Workspace {
		built++
		return &Workspace{}
	})

	s, err := m.Login("admin", "admin123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if !s.Authenticated || s.Username != "admin" || s.ID == "" {
		t.Errorf("unexpected session %+v", s)
	}
	if built != 1 || s.Workspace == nil {
		t.Error("expected a workspace per session")
	}

	got, err := m.Get(s.ID)
	if err != nil || got != s {
		t.Errorf("Get returned %v, %v", got, err)
	}
	if m.Count() != 1 {
		t.Errorf("expected 1 session, got %d", m.Count())
	}
}

func TestLogin_RejectsWrongCredentials(t *testing.T) {
	m := NewManager(nil)

	cases := []struct{ user, pass string }{
		{"admin", "wrong"},
		{"root", "admin123"},
		{"", ""},
		{"Admin", "admin123"},
	}
	for _, c := range cases {
		s, err := m.Login(c.user, c.pass)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Login(%q, %q): expected ErrInvalidCredentials, got %v", c.user, c.pass, err)
		}
		if s != nil {
			t.Errorf("Login(%q, %q) returned a session", c.user, c.pass)
		}
	}
	if ErrInvalidCredentials.Error() != "Invalid username or password" {
		t.Errorf("unexpected message %q", ErrInvalidCredentials.Error())
	}
	if m.Count() != 0 {
		t.Error("rejected logins must not create sessions")
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	m := NewManager(func() *Workspace { return &Workspace{} })

	a, _ := m.Login("admin", "admin123")
	b, _ := m.Login("admin", "admin123")
	if a.ID == b.ID {
		t.Fatal("expected distinct session ids")
	}
	if a.Workspace == b.Workspace {
		t.Error("sessions must not share views")
	}
}

func TestLogout_UnmountsScraping(t *testing.T) {
	scraping := console.NewScraping(nil, time.Hour, nil)
	m := NewManager(func() *Workspace {
		return &Workspace{Scraping: scraping}
	})

	s, _ := m.Login("admin", "admin123")
	m.Logout(s.ID)

	if _, err := m.Get(s.ID); !errors.Is(err, ErrNoSession) {
		t.Errorf("expected ErrNoSession after logout, got %v", err)
	}
	if scraping.State().Mounted {
		t.Error("scraping view still mounted after logout")
	}

	// Logging out an unknown session is a no-op.
	m.Logout("missing")
}

func TestClose_DropsEverySession(t *testing.T) {
	m := NewManager(func() *Workspace { return &Workspace{} })
	m.Login("admin", "admin123")
	m.Login("admin", "admin123")

	m.Close(context.Background())
	if m.Count() != 0 {
		t.Errorf("expected no sessions after Close, got %d", m.Count())
	}
}

func TestFlashes(t *testing.T) {
	s := &Session{}
	s.AddFlash("error", "Failed to cancel job")
	s.AddFlash("success", "Settings saved")

	got := s.TakeFlashes()
	if len(got) != 2 || got[0].Message != "Failed to cancel job" || got[1].Kind != "success" {
		t.Errorf("unexpected flashes %+v", got)
	}
	if len(s.TakeFlashes()) != 0 {
		t.Error("flashes should be cleared once taken")
	}
}
