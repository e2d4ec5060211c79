package web

import (
	"html/template"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/rag-console/console/internal/apiclient"
	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/session"
	"github.com/rag-console/console/internal/settings"
)

var tabLabels = map[string]string{
	console.TabOverview:      "Overview",
	console.TabConversations: "Conversations",
	console.TabKnowledge:     "Knowledge Base",
	console.TabScraping:      "Scraping",
	console.TabSettings:      "Settings",
}

var serviceLabels = map[string]string{
	"telegram": "Telegram bot",
	"webhook":  "webhook",
	"llm":      "LLM",
	"reranker": "reranker",
	"redis":    "Redis",
	"milvus":   "Milvus",
	"scraping": "user agent",
}

var secretLabels = map[string]string{
	settings.SecretTelegramToken:  "Bot token",
	settings.SecretLLMKey:         "API key",
	settings.SecretRerankerKey:    "API key",
	settings.SecretRedisPassword:  "Password",
	settings.SecretMilvusPassword: "Password",
}

var logLevels = []string{"DEBUG", "INFO", "WARNING", "ERROR"}

type loginPage struct {
	Title    string
	Username string
	Error    string
}

type consolePage struct {
	Title         string
	Username      string
	Flashes       []session.Flash
	Tabs          []tabLink
	ActiveTab     string
	Dashboard     console.DashboardState
	Conversations []conversationRow
	Jobs          jobsTable
	JobDefaults   console.JobSettings
	Settings      settingsForm
}

type tabLink struct {
	ID     string
	Label  string
	Active bool
}

type conversationRow struct {
	ID      int
	User    string
	Message template.HTML
	Time    string
	Status  string
}

type jobsTable struct {
	Loading bool
	Query   string
	Rows    []jobRow
}

type jobRow struct {
	Job     apiclient.ScrapingJob
	View    console.StatusView
	Percent int
}

type jobPage struct {
	Title string
	Error string
	Row   *jobRow
}

type settingsForm struct {
	Config    settings.Settings
	Secrets   map[string]secretInput
	Tests     map[string]*serviceTest
	Saving    bool
	SavedAt   string
	LogLevels []string
}

type secretInput struct {
	Field    string
	Label    string
	Value    string
	Hint     string
	Revealed bool
}

type serviceTest struct {
	Name     string
	Label    string
	Testing  bool
	Result   console.TestResult
	Detail   string
	Duration time.Duration
	TestedAt string
}

func tabLinks(active string) []tabLink {
	links := make([]tabLink, 0, len(console.Tabs))
	for _, id := range console.Tabs {
		links = append(links, tabLink{ID: id, Label: tabLabels[id], Active: id == active})
	}
	return links
}

// conversationRows strips markup from backend-supplied text. The policy
// output is already entity-escaped.
func conversationRows(policy *bluemonday.Policy, rows []apiclient.Conversation) []conversationRow {
	out := make([]conversationRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, conversationRow{
			ID:      r.ID,
			User:    r.User,
			Message: template.HTML(policy.Sanitize(r.Message)),
			Time:    r.Time,
			Status:  r.Status,
		})
	}
	return out
}

func newJobRow(job apiclient.ScrapingJob) jobRow {
	percent := 0
	if job.TotalPages > 0 {
		percent = job.Progress * 100 / job.TotalPages
	}
	percent = max(0, min(percent, 100))
	return jobRow{Job: job, View: console.ViewForStatus(job.Status), Percent: percent}
}

func newJobsTable(loading bool, jobs []apiclient.ScrapingJob, query string) jobsTable {
	filtered := console.FilterJobs(jobs, query)
	rows := make([]jobRow, 0, len(filtered))
	for _, j := range filtered {
		rows = append(rows, newJobRow(j))
	}
	return jobsTable{Loading: loading, Query: query, Rows: rows}
}

func newSettingsForm(e *console.SettingsEditor) settingsForm {
	st := e.State()

	secrets := make(map[string]secretInput, len(secretLabels))
	for _, field := range settings.SecretFields() {
		secrets[field] = secretInput{
			Field:    field,
			Label:    secretLabels[field],
			Value:    st.Config.Secret(field),
			Hint:     e.Display(field),
			Revealed: st.Revealed[field],
		}
	}

	tests := make(map[string]*serviceTest)
	for _, name := range e.Services() {
		out := st.Results[name]
		tests[name] = &serviceTest{
			Name:     name,
			Label:    serviceLabels[name],
			Testing:  st.Testing[name],
			Result:   out.Result,
			Detail:   out.Detail,
			Duration: out.Duration.Round(time.Millisecond),
		}
		if !out.At.IsZero() {
			tests[name].TestedAt = out.At.Format("2006-01-02 15:04")
		}
	}

	form := settingsForm{
		Config:    st.Config,
		Secrets:   secrets,
		Tests:     tests,
		Saving:    st.Saving,
		LogLevels: logLevels,
	}
	if !st.Saved.IsZero() {
		form.SavedAt = st.Saved.Format("2006-01-02 15:04:05")
	}
	return form
}
