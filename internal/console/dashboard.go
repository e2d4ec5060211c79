package console

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rag-console/console/internal/apiclient"
	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/pkg/logger"
)

const (
	TabOverview      = "overview"
	TabConversations = "conversations"
	TabKnowledge     = "knowledge"
	TabScraping      = "scraping"
	TabSettings      = "settings"
)

var Tabs = []string{TabOverview, TabConversations, TabKnowledge, TabScraping, TabSettings}

var ErrUnknownTab = errors.New("unknown tab")

// Default crawl limits for a new knowledge source.
const (
	DefaultMaxDepth = 3
	DefaultMaxPages = 100
)

// DashboardState is a copy of the dashboard's view state. List fields are
// either empty or exactly what the backend last returned.
type DashboardState struct {
	ActiveTab      string
	Loading        bool
	Loaded         bool
	Error          string
	Metrics        *apiclient.DashboardMetrics
	SystemStatus   []apiclient.SystemStatus
	Conversations  []apiclient.Conversation
	Sources        []apiclient.KnowledgeSource
	KnowledgeStats *apiclient.KnowledgeStats
}

// Dashboard owns the overview, conversations and knowledge tabs.
type Dashboard struct {
	api Backend

	mu      sync.Mutex
	state   DashboardState
	closed  bool
	loadSeq uint64
}

func NewDashboard(api Backend) *Dashboard {
	return &Dashboard{
		api: api,
		state: DashboardState{
			ActiveTab:     TabOverview,
			SystemStatus:  []apiclient.SystemStatus{},
			Conversations: []apiclient.Conversation{},
			Sources:       []apiclient.KnowledgeSource{},
		},
	}
}

func (d *Dashboard) State() DashboardState {
	d.mu.Lock()
	defer d.mu.Unlock()

	s := d.state
	s.SystemStatus = clone(d.state.SystemStatus)
	s.Conversations = clone(d.state.Conversations)
	s.Sources = clone(d.state.Sources)
	return s
}

func (d *Dashboard) SelectTab(tab string) error {
	for _, t := range Tabs {
		if t == tab {
			d.mu.Lock()
			d.state.ActiveTab = tab
			d.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnknownTab, tab)
}

// Load fetches metrics, system status, conversations and knowledge sources
// concurrently. A failing fetch leaves its slot at the empty default; only a
// failure of the load itself sets the error banner and is returned.
func (d *Dashboard) Load(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.loadSeq++
	seq := d.loadSeq
	d.state.Loading = true
	d.state.Error = ""
	d.mu.Unlock()

	err := d.fanOut(ctx, seq)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.loadSeq {
		return err
	}
	d.state.Loading = false
	if err != nil {
		d.state.Error = "Failed to load dashboard data"
		metrics.DashboardLoads.WithLabelValues("error").Inc()
		logger.Error("Dashboard load failed", zap.Error(err))
		return err
	}
	d.state.Loaded = true
	metrics.DashboardLoads.WithLabelValues("ok").Inc()
	return nil
}

// Retry reruns the whole load after an orchestration failure.
func (d *Dashboard) Retry(ctx context.Context) error {
	return d.Load(ctx)
}

func (d *Dashboard) fanOut(ctx context.Context, seq uint64) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to start dashboard load: %w", err)
	}

	var (
		wg       sync.WaitGroup
		panicMu  sync.Mutex
		panicErr error
	)
	run := func(name string, fetch func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					panicMu.Lock()
					panicErr = fmt.Errorf("dashboard fetch %s panicked: %v", name, r)
					panicMu.Unlock()
				}
			}()
			fetch()
		}()
	}

	run("metrics", func() {
		m, err := d.api.DashboardMetrics(ctx)
		if err != nil {
			logger.Warn("Failed to load dashboard metrics", zap.Error(err))
			m = nil
		}
		d.apply(seq, func(s *DashboardState) { s.Metrics = m })
	})
	run("system-status", func() {
		rows, err := d.api.SystemStatus(ctx)
		if err != nil {
			logger.Warn("Failed to load system status", zap.Error(err))
			rows = nil
		}
		d.apply(seq, func(s *DashboardState) { s.SystemStatus = orEmpty(rows) })
	})
	run("conversations", func() {
		rows, err := d.api.Conversations(ctx)
		if err != nil {
			logger.Warn("Failed to load conversations", zap.Error(err))
			rows = nil
		}
		d.apply(seq, func(s *DashboardState) { s.Conversations = orEmpty(rows) })
	})
	run("knowledge-sources", func() {
		rows, err := d.api.KnowledgeSources(ctx)
		if err != nil {
			logger.Warn("Failed to load knowledge sources", zap.Error(err))
			rows = nil
		}
		d.apply(seq, func(s *DashboardState) { s.Sources = orEmpty(rows) })
	})

	wg.Wait()
	return panicErr
}

// apply writes a fetch result unless the dashboard was closed or a newer
// load has started since.
func (d *Dashboard) apply(seq uint64, fn func(s *DashboardState)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || seq != d.loadSeq {
		return
	}
	fn(&d.state)
}

// LoadKnowledgeStats fills the knowledge tab's summary cards. A failure
// clears them.
func (d *Dashboard) LoadKnowledgeStats(ctx context.Context) {
	stats, err := d.api.KnowledgeStats(ctx)
	if err != nil {
		logger.Warn("Failed to load knowledge stats", zap.Error(err))
		stats = nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.state.KnowledgeStats = stats
}

func (d *Dashboard) AddSource(ctx context.Context, sourceURL string, maxDepth, maxPages int) error {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if _, err := d.api.AddKnowledgeSource(ctx, sourceURL, maxDepth, maxPages); err != nil {
		return &ActionError{Message: "Failed to add knowledge source", Err: err}
	}
	return d.Load(ctx)
}

func (d *Dashboard) SyncSource(ctx context.Context, sourceID int) error {
	if _, err := d.api.SyncKnowledgeSource(ctx, sourceID); err != nil {
		return &ActionError{Message: "Failed to sync knowledge source", Err: err}
	}
	return d.Load(ctx)
}

// Close discards results of fetches still in flight.
func (d *Dashboard) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
}

func orEmpty[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	return rows
}

func clone[T any](rows []T) []T {
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}
