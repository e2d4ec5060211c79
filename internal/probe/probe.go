// Package probe implements the settings page's "test connection" checks.
// Every probe runs against the settings currently in the form, not the ones
// the platform is running with.
package probe

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rag-console/console/internal/console"
)

var (
	ErrNotConfigured = errors.New("service is not configured")
)

// Webhooker registers the Telegram webhook through the platform backend.
type Webhooker interface {
	SetTelegramWebhook(ctx context.Context) (json.RawMessage, error)
}

type Config struct {
	TelegramAPIURL string
	ScrapeURL      string
}

type Set struct {
	cfg        Config
	httpClient *http.Client
	backend    Webhooker
}

func NewSet(cfg Config, backend Webhooker) *Set {
	return &Set{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backend:    backend,
	}
}

// Probers returns the connection tests keyed by service name.
func (s *Set) Probers() map[string]console.Prober {
	return map[string]console.Prober{
		"telegram": console.ProberFunc(s.Telegram),
		"webhook":  console.ProberFunc(s.Webhook),
		"llm":      console.ProberFunc(s.LLM),
		"reranker": console.ProberFunc(s.Reranker),
		"redis":    console.ProberFunc(s.Redis),
		"milvus":   console.ProberFunc(s.Milvus),
		"scraping": console.ProberFunc(s.Scraper),
	}
}
