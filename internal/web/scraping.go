package web

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/apiclient"
	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/middleware/auth"
	"github.com/rag-console/console/internal/session"
	"github.com/rag-console/console/pkg/logger"
)

func (s *Server) startJob(c *fiber.Ctx) error {
	sess := auth.Current(c)
	settings := console.DefaultJobSettings()
	if v, err := strconv.Atoi(c.FormValue("max_depth")); err == nil && v > 0 {
		settings.MaxDepth = v
	}
	if v, err := strconv.Atoi(c.FormValue("max_pages")); err == nil && v > 0 {
		settings.MaxPages = v
	}
	if v, err := strconv.Atoi(c.FormValue("delay")); err == nil && v >= 0 {
		settings.Delay = v
	}

	job, err := sess.Workspace.Scraping.StartJob(c.UserContext(), c.FormValue("urls"), settings)
	switch {
	case errors.Is(err, console.ErrNoURLs):
		sess.AddFlash("error", "Please enter at least one URL")
	case err != nil:
		flashResult(sess, err, "")
	default:
		sess.AddFlash("success", "Scraping job "+job.JobID+" started")
	}
	return back(c)
}

func (s *Server) cancelJob(c *fiber.Ctx) error {
	sess := auth.Current(c)
	err := sess.Workspace.Scraping.CancelJob(c.UserContext(), c.Params("id"))
	flashResult(sess, err, "Cancellation requested")
	return back(c)
}

func (s *Server) jobDetail(c *fiber.Ctx) error {
	sess := auth.Current(c)
	id := c.Params("id")

	job, err := sess.Workspace.Scraping.Job(c.UserContext(), id)
	if err != nil {
		status := fiber.StatusBadGateway
		var statusErr *apiclient.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == fiber.StatusNotFound {
			status = fiber.StatusNotFound
		}
		return s.render(c, status, "job", jobPage{Title: pageTitle, Error: "Failed to load job " + id})
	}

	row := newJobRow(*job)
	return s.render(c, fiber.StatusOK, "job", jobPage{Title: "Job " + id, Row: &row})
}

type feedMessage struct {
	Type string `json:"type"`
	HTML string `json:"html"`
}

// scrapingFeed mounts the session's scraping view for as long as the socket
// is open and pushes the rendered job table after every refresh. Only the
// latest list is kept when the client reads slower than the poll. The
// socket is closed when its mount ends: another feed of the same session
// replaced it, or the session left the scraping tab.
func (s *Server) scrapingFeed(conn *websocket.Conn) {
	sess, _ := conn.Locals(auth.SessionKey).(*session.Session)
	if sess == nil || sess.Workspace == nil {
		conn.Close()
		return
	}
	view := sess.Workspace.Scraping
	query := conn.Query("q")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := make(chan []apiclient.ScrapingJob, 1)
	var pushMu sync.Mutex
	unsubscribe := view.Subscribe(func(jobs []apiclient.ScrapingJob) {
		pushMu.Lock()
		defer pushMu.Unlock()
		select {
		case <-updates:
		default:
		}
		updates <- jobs
	})

	mount := view.Mount(ctx)
	logger.Info("Scraping feed opened", zap.String("session_id", sess.ID))

	defer func() {
		unsubscribe()
		mount.Release()
		conn.Close()
		logger.Info("Scraping feed closed", zap.String("session_id", sess.ID))
	}()

	// The client never sends anything; reading only detects the close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-mount.Done():
			return
		case jobs := <-updates:
			html, err := s.renderString("jobs_table", newJobsTable(false, jobs, query))
			if err != nil {
				logger.Error("Failed to render job table", zap.Error(err))
				return
			}
			if err := conn.WriteJSON(feedMessage{Type: "jobs", HTML: html}); err != nil {
				logger.Debug("Scraping feed write failed", zap.Error(err))
				return
			}
		}
	}
}
