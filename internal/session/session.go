package session

import (
	"context"
	"crypto/subtle"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/pkg/logger"
)

// Demo credentials. This is a UI gate, not a security boundary.
const (
	demoUsername = "admin"
	demoPassword = "admin123"
)

var (
	ErrInvalidCredentials = errors.New("Invalid username or password")
	ErrNoSession          = errors.New("session not found")
)

// Workspace is the set of views owned by one logged-in browser.
type Workspace struct {
	Dashboard *console.Dashboard
	Scraping  *console.Scraping
	Settings  *console.SettingsEditor
}

// WorkspaceFactory builds fresh views for a new session.
type WorkspaceFactory func() *Workspace

type Session struct {
	ID            string
	Username      string
	Authenticated bool
	CreatedAt     time.Time
	Workspace     *Workspace

	mu    sync.Mutex
	flash []Flash
}

// Flash is a one-shot message shown on the next page render.
type Flash struct {
	Kind    string
	Message string
}

func (s *Session) AddFlash(kind, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flash = append(s.flash, Flash{Kind: kind, Message: message})
}

// TakeFlashes returns pending messages and clears them.
func (s *Session) TakeFlashes() []Flash {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.flash
	s.flash = nil
	return out
}

// Manager keeps sessions in memory. Restarting the process logs everyone out.
type Manager struct {
	newWorkspace WorkspaceFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(newWorkspace WorkspaceFactory) *Manager {
	return &Manager{
		newWorkspace: newWorkspace,
		sessions:     make(map[string]*Session),
	}
}

// Login compares against the demo credentials and, on a match, creates an
// authenticated session with its own views.
func (m *Manager) Login(username, password string) (*Session, error) {
	if !checkCredentials(username, password) {
		metrics.LoginAttempts.WithLabelValues("rejected").Inc()
		logger.Info("Login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}

	s := &Session{
		ID:            uuid.New().String(),
		Username:      username,
		Authenticated: true,
		CreatedAt:     time.Now(),
	}
	if m.newWorkspace != nil {
		s.Workspace = m.newWorkspace()
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()

	metrics.LoginAttempts.WithLabelValues("accepted").Inc()
	metrics.ActiveSessions.Inc()
	logger.Info("Login accepted", zap.String("username", username), zap.String("session_id", s.ID))
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNoSession
	}
	return s, nil
}

// Logout drops the session and tears down its views.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return
	}
	closeWorkspace(s.Workspace)
	metrics.ActiveSessions.Dec()
	logger.Info("Logged out", zap.String("session_id", id))
}

// Close tears down every session, for shutdown.
func (m *Manager) Close(ctx context.Context) {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if ctx.Err() != nil {
			return
		}
		closeWorkspace(s.Workspace)
		metrics.ActiveSessions.Dec()
	}
}

func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func closeWorkspace(w *Workspace) {
	if w == nil {
		return
	}
	if w.Scraping != nil {
		w.Scraping.Unmount()
	}
	if w.Dashboard != nil {
		w.Dashboard.Close()
	}
}

func checkCredentials(username, password string) bool {
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(demoUsername)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(password), []byte(demoPassword)) == 1
	return userOK && passOK
}
