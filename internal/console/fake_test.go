package console

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/rag-console/console/internal/apiclient"
)

var errBackend = errors.New("backend down")

// fakeBackend answers from its fields and counts calls. Hooks run before
// the answer is returned.
type fakeBackend struct {
	mu sync.Mutex

	metrics       *apiclient.DashboardMetrics
	status        []apiclient.SystemStatus
	conversations []apiclient.Conversation
	sources       []apiclient.KnowledgeSource
	stats         *apiclient.KnowledgeStats
	jobs          []apiclient.ScrapingJob

	metricsErr       error
	statusErr        error
	conversationsErr error
	sourcesErr       error
	statsErr         error
	jobsErr          error
	addErr           error
	syncErr          error
	startErr         error
	cancelErr        error

	conversationsHook func()
	jobsHook          func(ctx context.Context, n int)

	calls        map[string]int
	startReqs    []apiclient.ScrapingJobRequest
	cancelled    []string
	addedSources []string
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{calls: make(map[string]int)}
}

func (f *fakeBackend) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
	return f.calls[name]
}

func (f *fakeBackend) Calls(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeBackend) setJobs(jobs []apiclient.ScrapingJob) {
	f.mu.Lock()
	f.jobs = jobs
	f.mu.Unlock()
}

func (f *fakeBackend) DashboardMetrics(ctx context.Context) (*apiclient.DashboardMetrics, error) {
	f.count("metrics")
	return f.metrics, f.metricsErr
}

func (f *fakeBackend) SystemStatus(ctx context.Context) ([]apiclient.SystemStatus, error) {
	f.count("status")
	return f.status, f.statusErr
}

func (f *fakeBackend) Conversations(ctx context.Context) ([]apiclient.Conversation, error) {
	f.count("conversations")
	if f.conversationsHook != nil {
		f.conversationsHook()
	}
	return f.conversations, f.conversationsErr
}

func (f *fakeBackend) KnowledgeSources(ctx context.Context) ([]apiclient.KnowledgeSource, error) {
	f.count("sources")
	return f.sources, f.sourcesErr
}

func (f *fakeBackend) AddKnowledgeSource(ctx context.Context, sourceURL string, maxDepth, maxPages int) (*apiclient.ActionResult, error) {
	f.count("add")
	f.mu.Lock()
	f.addedSources = append(f.addedSources, sourceURL)
	f.mu.Unlock()
	if f.addErr != nil {
		return nil, f.addErr
	}
	return &apiclient.ActionResult{Message: "added", URL: sourceURL}, nil
}

func (f *fakeBackend) SyncKnowledgeSource(ctx context.Context, sourceID int) (*apiclient.ActionResult, error) {
	f.count("sync")
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &apiclient.ActionResult{Message: "sync started"}, nil
}

func (f *fakeBackend) KnowledgeStats(ctx context.Context) (*apiclient.KnowledgeStats, error) {
	f.count("stats")
	return f.stats, f.statsErr
}

func (f *fakeBackend) StartScrapingJob(ctx context.Context, req apiclient.ScrapingJobRequest) (*apiclient.StartedJob, error) {
	f.count("start")
	f.mu.Lock()
	f.startReqs = append(f.startReqs, req)
	f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &apiclient.StartedJob{JobID: "new", Status: "started", URLs: req.URLs}, nil
}

func (f *fakeBackend) ScrapingJobs(ctx context.Context) ([]apiclient.ScrapingJob, error) {
	n := f.count("jobs")
	if f.jobsHook != nil {
		f.jobsHook(ctx, n)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.jobs, f.jobsErr
}

func (f *fakeBackend) ScrapingJob(ctx context.Context, jobID string) (*apiclient.ScrapingJob, error) {
	f.count("job")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, j := range f.jobs {
		if j.JobID == jobID {
			j := j
			return &j, nil
		}
	}
	return nil, &apiclient.HTTPStatusError{Endpoint: "/scraping/jobs/" + jobID, StatusCode: 404}
}

func (f *fakeBackend) CancelScrapingJob(ctx context.Context, jobID string) (*apiclient.ActionResult, error) {
	f.count("cancel")
	f.mu.Lock()
	f.cancelled = append(f.cancelled, jobID)
	f.mu.Unlock()
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &apiclient.ActionResult{Message: "cancelled"}, nil
}

func (f *fakeBackend) TelegramStats(ctx context.Context) (*apiclient.TelegramStats, error) {
	f.count("telegram")
	return &apiclient.TelegramStats{}, nil
}

func (f *fakeBackend) SetTelegramWebhook(ctx context.Context) (json.RawMessage, error) {
	f.count("webhook")
	return json.RawMessage(`{"ok":true}`), nil
}

// manualTicker delivers ticks only when the test calls Tick.
type manualTicker struct {
	ch      chan time.Time
	mu      sync.Mutex
	stopped bool
}

func newManualTicker() *manualTicker {
	return &manualTicker{ch: make(chan time.Time)}
}

func (m *manualTicker) C() <-chan time.Time { return m.ch }

func (m *manualTicker) Stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
}

func (m *manualTicker) Stopped() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stopped
}

// Tick blocks until the poll loop receives the tick, or reports false if
// nothing received it within a second.
func (m *manualTicker) Tick() bool {
	select {
	case m.ch <- time.Now():
		return true
	case <-time.After(time.Second):
		return false
	}
}

// tickerSource hands out manual tickers and remembers the latest one.
type tickerSource struct {
	mu      sync.Mutex
	tickers []*manualTicker
}

func (s *tickerSource) New(time.Duration) Ticker {
	t := newManualTicker()
	s.mu.Lock()
	s.tickers = append(s.tickers, t)
	s.mu.Unlock()
	return t
}

func (s *tickerSource) Latest() *manualTicker {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.tickers) == 0 {
		return nil
	}
	return s.tickers[len(s.tickers)-1]
}
