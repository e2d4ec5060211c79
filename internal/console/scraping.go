package console

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rag-console/console/internal/apiclient"
	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/pkg/logger"
)

const DefaultPollInterval = 5 * time.Second

var ErrNoURLs = errors.New("no URLs to scrape")

// JobSettings are the crawl limits submitted with a new job.
type JobSettings struct {
	MaxDepth int
	MaxPages int
	Delay    int
}

func DefaultJobSettings() JobSettings {
	return JobSettings{MaxDepth: DefaultMaxDepth, MaxPages: DefaultMaxPages, Delay: 1}
}

// ScrapingState is a copy of the scraping view's state.
type ScrapingState struct {
	Loading bool
	Mounted bool
	Jobs    []apiclient.ScrapingJob
}

// Scraping is the polling view over backend scraping jobs.
type Scraping struct {
	api      Backend
	interval time.Duration
	ticker   TickerFunc

	mu          sync.Mutex
	loading     bool
	jobs        []apiclient.ScrapingJob
	mounted     bool
	cancelMount context.CancelFunc
	poller      *Poller
	mountDone   chan struct{}
	epoch       uint64
	subs        map[int]func([]apiclient.ScrapingJob)
	nextSub     int

	// serialises Mount and Unmount without holding mu while the poller
	// drains, since the poll callback takes mu.
	lifecycle sync.Mutex
}

func NewScraping(api Backend, interval time.Duration, ticker TickerFunc) *Scraping {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Scraping{
		api:      api,
		interval: interval,
		ticker:   ticker,
		loading:  true,
		jobs:     []apiclient.ScrapingJob{},
		subs:     make(map[int]func([]apiclient.ScrapingJob)),
	}
}

func (s *Scraping) State() ScrapingState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ScrapingState{
		Loading: s.loading,
		Mounted: s.mounted,
		Jobs:    clone(s.jobs),
	}
}

// Mounting is one mount of the scraping view. Done is closed when the mount
// ends, whether it was released, unmounted or replaced by a later Mount.
type Mounting struct {
	s     *Scraping
	epoch uint64
	done  chan struct{}
}

func (m *Mounting) Done() <-chan struct{} { return m.done }

// Release unmounts the view if this is still the current mount. Releasing
// a replaced mount leaves the newer poll running.
func (m *Mounting) Release() {
	s := m.s
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	current := s.mounted && s.epoch == m.epoch
	s.mu.Unlock()
	if current {
		s.unmountLocked()
	}
}

// Mount fetches the job list now and then once per interval until the
// returned mount is released or Unmount is called. Mounting a mounted view
// ends the previous mount and restarts the poll.
func (s *Scraping) Mount(ctx context.Context) *Mounting {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.unmountLocked()

	ctx, cancel := context.WithCancel(ctx)
	poller := NewPoller(s.interval, s.ticker, func(ctx context.Context) {
		metrics.ScrapingPolls.Inc()
		s.Refresh(ctx)
	})

	m := &Mounting{s: s, done: make(chan struct{})}
	s.mu.Lock()
	s.mounted = true
	s.cancelMount = cancel
	s.poller = poller
	s.mountDone = m.done
	m.epoch = s.epoch
	s.mu.Unlock()
	metrics.MountedScrapingViews.Inc()

	s.Refresh(ctx)
	poller.Start(ctx)
	return m
}

// Unmount ends the current mount, whoever started it. No fetch that began
// before it returns is applied afterwards.
func (s *Scraping) Unmount() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	s.unmountLocked()
}

func (s *Scraping) unmountLocked() {
	s.mu.Lock()
	if !s.mounted {
		s.mu.Unlock()
		return
	}
	s.mounted = false
	s.epoch++
	cancel, poller, done := s.cancelMount, s.poller, s.mountDone
	s.cancelMount, s.poller, s.mountDone = nil, nil, nil
	s.mu.Unlock()

	cancel()
	poller.Stop()
	close(done)
	metrics.MountedScrapingViews.Dec()
}

// Refresh fetches the job list once. On failure the previous list stays.
// A result that arrives after an unmount is dropped.
func (s *Scraping) Refresh(ctx context.Context) {
	s.mu.Lock()
	epoch := s.epoch
	s.mu.Unlock()

	jobs, err := s.api.ScrapingJobs(ctx)

	s.mu.Lock()
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		if ctx.Err() == nil {
			logger.Warn("Failed to load scraping jobs", zap.Error(err))
		}
		return
	}
	if ctx.Err() != nil || s.epoch != epoch {
		s.mu.Unlock()
		return
	}
	s.jobs = orEmpty(jobs)
	snapshot := clone(s.jobs)
	subs := make([]func([]apiclient.ScrapingJob), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}

// Subscribe registers fn to receive every applied job list. The returned
// func removes it.
func (s *Scraping) Subscribe(fn func([]apiclient.ScrapingJob)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

// StartJob submits the non-blank lines of input as a new job and refreshes.
func (s *Scraping) StartJob(ctx context.Context, input string, settings JobSettings) (*apiclient.StartedJob, error) {
	urls := ParseURLs(input)
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}

	req := apiclient.ScrapingJobRequest{
		URLs:     urls,
		MaxDepth: settings.MaxDepth,
		MaxPages: settings.MaxPages,
	}
	if settings.Delay > 0 {
		delay := settings.Delay
		req.Delay = &delay
	}

	job, err := s.api.StartScrapingJob(ctx, req)
	if err != nil {
		return nil, &ActionError{Message: "Failed to start scraping job", Err: err}
	}
	s.Refresh(ctx)
	return job, nil
}

// CancelJob asks the backend to cancel a job and refreshes. The job's status
// changes only when the refreshed list says so.
func (s *Scraping) CancelJob(ctx context.Context, jobID string) error {
	if _, err := s.api.CancelScrapingJob(ctx, jobID); err != nil {
		return &ActionError{Message: "Failed to cancel job", Err: err}
	}
	s.Refresh(ctx)
	return nil
}

func (s *Scraping) Job(ctx context.Context, jobID string) (*apiclient.ScrapingJob, error) {
	return s.api.ScrapingJob(ctx, jobID)
}

// Filter returns the jobs whose id or any URL contains query, ignoring case.
func (s *Scraping) Filter(query string) []apiclient.ScrapingJob {
	return FilterJobs(s.State().Jobs, query)
}

func FilterJobs(jobs []apiclient.ScrapingJob, query string) []apiclient.ScrapingJob {
	q := strings.ToLower(query)
	out := make([]apiclient.ScrapingJob, 0, len(jobs))
	for _, job := range jobs {
		if strings.Contains(strings.ToLower(job.JobID), q) {
			out = append(out, job)
			continue
		}
		for _, u := range job.URLs {
			if strings.Contains(strings.ToLower(u), q) {
				out = append(out, job)
				break
			}
		}
	}
	return out
}

// ParseURLs splits newline-delimited input, trims each line and drops blank
// ones. URLs are not validated.
func ParseURLs(input string) []string {
	lines := strings.Split(input, "\n")
	urls := make([]string, 0, len(lines))
	for _, line := range lines {
		if u := strings.TrimSpace(line); u != "" {
			urls = append(urls, u)
		}
	}
	return urls
}

// StatusView describes how a job status is drawn.
type StatusView struct {
	Label        string
	Icon         string
	Tone         string
	ShowProgress bool
	Cancellable  bool
	Terminal     bool
}

// ViewForStatus maps a job status to its rendering. Statuses the console
// does not know, including "started", render as pending.
func ViewForStatus(status string) StatusView {
	switch status {
	case "running":
		return StatusView{Label: "running", Icon: "refresh", Tone: "blue", ShowProgress: true, Cancellable: true}
	case "completed":
		return StatusView{Label: "completed", Icon: "check", Tone: "green", Terminal: true}
	case "failed":
		return StatusView{Label: "failed", Icon: "x", Tone: "red", Terminal: true}
	case "cancelled":
		return StatusView{Label: "cancelled", Icon: "x", Tone: "gray", Terminal: true}
	default:
		label := status
		if label == "" {
			label = "pending"
		}
		return StatusView{Label: label, Icon: "clock", Tone: "yellow"}
	}
}
