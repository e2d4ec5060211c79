package web

import (
	"errors"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/middleware/auth"
	"github.com/rag-console/console/internal/session"
)

var formValidator = validator.New()

// consolePage loads the dashboard on its first view and then renders
// whichever tab the session has selected. Mutations and retry reload it.
func (s *Server) consolePage(c *fiber.Ctx) error {
	sess := auth.Current(c)
	ws := sess.Workspace
	ctx := c.UserContext()

	state := ws.Dashboard.State()
	if !state.Loaded && state.Error == "" {
		// A failure shows up as the banner; the page renders either way.
		_ = ws.Dashboard.Load(ctx)
		state = ws.Dashboard.State()
	}
	switch state.ActiveTab {
	case console.TabKnowledge:
		ws.Dashboard.LoadKnowledgeStats(ctx)
		state = ws.Dashboard.State()
	case console.TabScraping:
		// A mounted feed keeps the list current already.
		if !ws.Scraping.State().Mounted {
			ws.Scraping.Refresh(ctx)
		}
	}

	scraping := ws.Scraping.State()
	page := consolePage{
		Title:         pageTitle,
		Username:      sess.Username,
		Flashes:       sess.TakeFlashes(),
		Tabs:          tabLinks(state.ActiveTab),
		ActiveTab:     state.ActiveTab,
		Dashboard:     state,
		Conversations: conversationRows(s.policy, state.Conversations),
		Jobs:          newJobsTable(scraping.Loading, scraping.Jobs, c.Query("q")),
		JobDefaults:   console.DefaultJobSettings(),
		Settings:      newSettingsForm(ws.Settings),
	}
	return s.render(c, fiber.StatusOK, "console", page)
}

func (s *Server) selectTab(c *fiber.Ctx) error {
	sess := auth.Current(c)
	if err := sess.Workspace.Dashboard.SelectTab(c.Params("tab")); err != nil {
		return fiber.NewError(fiber.StatusNotFound, "Unknown tab")
	}
	// Leaving the scraping tab ends its mount, which closes any open feed.
	if c.Params("tab") != console.TabScraping {
		sess.Workspace.Scraping.Unmount()
	}
	return back(c)
}

func (s *Server) retry(c *fiber.Ctx) error {
	_ = auth.Current(c).Workspace.Dashboard.Retry(c.UserContext())
	return back(c)
}

// addSource requires an absolute http(s) URL; anything else is reported
// the way a failed add is.
func (s *Server) addSource(c *fiber.Ctx) error {
	sess := auth.Current(c)
	sourceURL := strings.TrimSpace(c.FormValue("url"))
	if err := formValidator.Var(sourceURL, "required,http_url"); err != nil {
		sess.AddFlash("error", "Please enter a valid http(s) URL")
		return back(c)
	}
	depth, _ := strconv.Atoi(c.FormValue("max_depth"))
	pages, _ := strconv.Atoi(c.FormValue("max_pages"))

	err := sess.Workspace.Dashboard.AddSource(c.UserContext(), sourceURL, depth, pages)
	flashResult(sess, err, "Knowledge source added")
	return back(c)
}

func (s *Server) syncSource(c *fiber.Ctx) error {
	sess := auth.Current(c)
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid source id")
	}

	err = sess.Workspace.Dashboard.SyncSource(c.UserContext(), id)
	flashResult(sess, err, "Sync started")
	return back(c)
}

// flashResult turns an action outcome into the alert shown on the next page.
func flashResult(sess *session.Session, err error, success string) {
	if err == nil {
		sess.AddFlash("success", success)
		return
	}
	var actionErr *console.ActionError
	if errors.As(err, &actionErr) {
		sess.AddFlash("error", actionErr.Message)
		return
	}
	sess.AddFlash("error", "Something went wrong. Please try again.")
}
