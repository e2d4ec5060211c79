package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/settings"
	"github.com/rag-console/console/pkg/logger"
)

// Telegram calls the Bot API getMe method with the configured token.
func (s *Set) Telegram(ctx context.Context, cfg settings.Settings) error {
	token := strings.TrimSpace(cfg.Telegram.BotToken)
	if token == "" {
		return fmt.Errorf("%w: bot token is empty", ErrNotConfigured)
	}

	endpoint := strings.TrimRight(s.cfg.TelegramAPIURL, "/") + "/bot" + token + "/getMe"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		// The URL carries the token; keep it out of the error.
		return fmt.Errorf("failed to reach Telegram API")
	}
	defer resp.Body.Close()

	var body struct {
		OK     bool `json:"ok"`
		Result struct {
			Username string `json:"username"`
		} `json:"result"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return fmt.Errorf("failed to parse getMe response: %w", err)
	}
	if !body.OK {
		return fmt.Errorf("telegram rejected token: %s", body.Description)
	}

	logger.Debug("Telegram bot reachable", zap.String("bot", body.Result.Username))
	return nil
}

// Webhook asks the platform backend to register the configured webhook.
func (s *Set) Webhook(ctx context.Context, cfg settings.Settings) error {
	if strings.TrimSpace(cfg.Telegram.WebhookURL) == "" {
		return fmt.Errorf("%w: webhook URL is empty", ErrNotConfigured)
	}
	if s.backend == nil {
		return fmt.Errorf("%w: no backend", ErrNotConfigured)
	}
	if _, err := s.backend.SetTelegramWebhook(ctx); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}
	return nil
}

type rerankRequest struct {
	Model     string   `json:"model"`
	Query     string   `json:"query"`
	Documents []string `json:"documents"`
	TopN      int      `json:"top_n"`
}

// Reranker sends a one-document rerank request.
func (s *Set) Reranker(ctx context.Context, cfg settings.Settings) error {
	if cfg.Reranker.APIURL == "" {
		return fmt.Errorf("%w: reranker URL is empty", ErrNotConfigured)
	}

	payload, err := json.Marshal(rerankRequest{
		Model:     "jina-reranker-v2-base-multilingual",
		Query:     "connection test",
		Documents: []string{"connection test"},
		TopN:      1,
	})
	if err != nil {
		return fmt.Errorf("failed to encode rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.Reranker.APIURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Reranker.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Reranker.APIKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach reranker: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("reranker returned status %d", resp.StatusCode)
	}
	return nil
}

// Scraper fetches the probe page with the configured user agent and checks
// that it parses to a document with a title.
func (s *Set) Scraper(ctx context.Context, cfg settings.Settings) error {
	if s.cfg.ScrapeURL == "" {
		return fmt.Errorf("%w: no probe URL", ErrNotConfigured)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.ScrapeURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", cfg.Scraping.UserAgent)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", s.cfg.ScrapeURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned status %d for user agent %q", s.cfg.ScrapeURL, resp.StatusCode, cfg.Scraping.UserAgent)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return fmt.Errorf("%s has no title; page may be blocked", s.cfg.ScrapeURL)
	}

	logger.Debug("Scrape probe succeeded", zap.String("url", s.cfg.ScrapeURL), zap.String("title", title))
	return nil
}
