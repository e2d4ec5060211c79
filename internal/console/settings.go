package console

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/internal/settings"
	"github.com/rag-console/console/internal/storage/models"
	"github.com/rag-console/console/pkg/logger"
)

var (
	ErrSaveInProgress = errors.New("a save is already in progress")
	ErrTestInProgress = errors.New("a connection test is already running for this service")
	ErrUnknownService = errors.New("no connection test for this service")
	ErrUnknownSecret  = errors.New("not a secret field")
)

// Prober checks connectivity to one service using the given settings.
type Prober interface {
	Probe(ctx context.Context, s settings.Settings) error
}

type ProberFunc func(ctx context.Context, s settings.Settings) error

func (f ProberFunc) Probe(ctx context.Context, s settings.Settings) error {
	return f(ctx, s)
}

type TestResult string

const (
	TestPending TestResult = ""
	TestSuccess TestResult = "success"
	TestError   TestResult = "error"
)

// TestOutcome is the last result of a service's connection test.
type TestOutcome struct {
	Result   TestResult
	Detail   string
	Duration time.Duration
	At       time.Time
}

// TestRecorder persists connection test outcomes. Optional.
type TestRecorder interface {
	RecordTest(ctx context.Context, service string, ok bool, detail string, took time.Duration) error
}

// TestHistory returns the last recorded outcome per service. A recorder that
// also implements it seeds the results shown before any test runs.
type TestHistory interface {
	LastConnectionTests(ctx context.Context) (map[string]models.ConnectionTest, error)
}

// SaveHistory reports when settings were last saved.
type SaveHistory interface {
	LastSaved(ctx context.Context) (time.Time, error)
}

type SettingsState struct {
	Config   settings.Settings
	Revealed map[string]bool
	Saving   bool
	Testing  map[string]bool
	Results  map[string]TestOutcome
	Saved    time.Time
}

// SettingsEditor holds the editable settings form for one session.
type SettingsEditor struct {
	store    settings.Store
	probes   map[string]Prober
	recorder TestRecorder
	timeout  time.Duration

	mu       sync.Mutex
	config   settings.Settings
	revealed map[string]bool
	saving   bool
	testing  map[string]bool
	results  map[string]TestOutcome
	saved    time.Time
}

func NewSettingsEditor(store settings.Store, probes map[string]Prober, recorder TestRecorder, timeout time.Duration) *SettingsEditor {
	return &SettingsEditor{
		store:    store,
		probes:   probes,
		recorder: recorder,
		timeout:  timeout,
		config:   settings.Defaults(),
		revealed: make(map[string]bool),
		testing:  make(map[string]bool),
		results:  make(map[string]TestOutcome),
	}
}

// Load reads the stored settings, keeping defaults when nothing was saved,
// and the last recorded test outcomes when the recorder keeps them.
func (e *SettingsEditor) Load(ctx context.Context) error {
	e.loadHistory(ctx)

	cfg, err := e.store.LoadSettings(ctx)
	if errors.Is(err, settings.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	e.mu.Lock()
	e.config = cfg
	e.mu.Unlock()
	return nil
}

// loadHistory is best effort; a failure only leaves the results empty.
func (e *SettingsEditor) loadHistory(ctx context.Context) {
	if h, ok := e.store.(SaveHistory); ok {
		saved, err := h.LastSaved(ctx)
		if err != nil {
			logger.Warn("Failed to read settings history", zap.Error(err))
		} else if !saved.IsZero() {
			e.mu.Lock()
			e.saved = saved
			e.mu.Unlock()
		}
	}

	h, ok := e.recorder.(TestHistory)
	if !ok {
		return
	}
	last, err := h.LastConnectionTests(ctx)
	if err != nil {
		logger.Warn("Failed to read connection test history", zap.Error(err))
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for service, t := range last {
		if _, known := e.probes[service]; !known {
			continue
		}
		if _, fresh := e.results[service]; fresh {
			continue
		}
		outcome := TestOutcome{
			Result:   TestError,
			Detail:   t.Detail,
			Duration: time.Duration(t.DurationMS) * time.Millisecond,
			At:       t.CreatedAt,
		}
		if t.Success {
			outcome.Result = TestSuccess
		}
		e.results[service] = outcome
	}
}

func (e *SettingsEditor) State() SettingsState {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := SettingsState{
		Config:   e.config,
		Revealed: make(map[string]bool, len(e.revealed)),
		Saving:   e.saving,
		Testing:  make(map[string]bool, len(e.testing)),
		Results:  make(map[string]TestOutcome, len(e.results)),
		Saved:    e.saved,
	}
	for k, v := range e.revealed {
		st.Revealed[k] = v
	}
	for k, v := range e.testing {
		st.Testing[k] = v
	}
	for k, v := range e.results {
		st.Results[k] = v
	}
	return st
}

// Services lists the services that have a connection test.
func (e *SettingsEditor) Services() []string {
	out := make([]string, 0, len(e.probes))
	for _, name := range ProbeOrder {
		if _, ok := e.probes[name]; ok {
			out = append(out, name)
		}
	}
	return out
}

// ProbeOrder is the display order of connection tests.
var ProbeOrder = []string{"telegram", "webhook", "llm", "reranker", "redis", "milvus", "scraping"}

// ToggleSecret flips whether a secret field is shown in clear text.
func (e *SettingsEditor) ToggleSecret(field string) (bool, error) {
	if !settings.IsSecret(field) {
		return false, fmt.Errorf("%w: %q", ErrUnknownSecret, field)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.revealed[field] = !e.revealed[field]
	return e.revealed[field], nil
}

// Display returns a secret's value as the form shows it: masked unless the
// field is revealed.
func (e *SettingsEditor) Display(field string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	v := e.config.Secret(field)
	if e.revealed[field] {
		return v
	}
	return settings.Mask(v)
}

// Update replaces the form contents without saving.
func (e *SettingsEditor) Update(cfg settings.Settings) {
	e.mu.Lock()
	e.config = cfg
	e.mu.Unlock()
}

// Save validates and persists cfg. Only one save runs at a time.
func (e *SettingsEditor) Save(ctx context.Context, cfg settings.Settings) error {
	e.mu.Lock()
	if e.saving {
		e.mu.Unlock()
		return ErrSaveInProgress
	}
	e.saving = true
	e.config = cfg
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.saving = false
		e.mu.Unlock()
	}()

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := e.store.SaveSettings(ctx, cfg); err != nil {
		logger.Error("Failed to save settings", zap.Error(err))
		return &ActionError{Message: "Failed to save settings", Err: err}
	}

	e.mu.Lock()
	e.saved = time.Now()
	e.mu.Unlock()
	logger.Info("Settings saved")
	return nil
}

// TestConnection runs the service's probe against the current form values
// and records the outcome under the service name.
func (e *SettingsEditor) TestConnection(ctx context.Context, service string) (TestOutcome, error) {
	probe, ok := e.probes[service]
	if !ok {
		return TestOutcome{}, fmt.Errorf("%w: %q", ErrUnknownService, service)
	}

	e.mu.Lock()
	if e.testing[service] {
		e.mu.Unlock()
		return TestOutcome{}, ErrTestInProgress
	}
	e.testing[service] = true
	delete(e.results, service)
	cfg := e.config
	e.mu.Unlock()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()
	err := probe.Probe(ctx, cfg)
	outcome := TestOutcome{Result: TestSuccess, Duration: time.Since(start), At: time.Now()}
	if err != nil {
		outcome.Result = TestError
		outcome.Detail = err.Error()
		logger.Warn("Connection test failed", zap.String("service", service), zap.Error(err))
	}
	metrics.ConnectionTests.WithLabelValues(service, string(outcome.Result)).Inc()

	e.mu.Lock()
	e.testing[service] = false
	e.results[service] = outcome
	e.mu.Unlock()

	if e.recorder != nil {
		if rerr := e.recorder.RecordTest(context.WithoutCancel(ctx), service, err == nil, outcome.Detail, outcome.Duration); rerr != nil {
			logger.Warn("Failed to record connection test", zap.String("service", service), zap.Error(rerr))
		}
	}

	return outcome, nil
}
