package probe

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/rag-console/console/internal/settings"
)

type fakeWebhooker struct {
	calls int
	err   error
}

func (f *fakeWebhooker) SetTelegramWebhook(ctx context.Context) (json.RawMessage, error) {
	f.calls++
	return json.RawMessage(`{"ok":true}`), f.err
}

func TestProbers_CoverEveryService(t *testing.T) {
	set := NewSet(Config{}, nil)
	probers := set.Probers()
	for _, name := range []string{"telegram", "webhook", "llm", "reranker", "redis", "milvus", "scraping"} {
		if _, ok := probers[name]; !ok {
			t.Errorf("missing probe %q", name)
		}
	}
}

func TestTelegram(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bot123:good/getMe":
			w.Write([]byte(`{"ok":true,"result":{"username":"rag_bot"}}`))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"ok":false,"description":"Unauthorized"}`))
		}
	}))
	defer server.Close()

	set := NewSet(Config{TelegramAPIURL: server.URL}, nil)
	cfg := settings.Defaults()

	cfg.Telegram.BotToken = "123:good"
	if err := set.Telegram(context.Background(), cfg); err != nil {
		t.Errorf("expected success, got %v", err)
	}

	cfg.Telegram.BotToken = "123:bad"
	err := set.Telegram(context.Background(), cfg)
	if err == nil || !strings.Contains(err.Error(), "Unauthorized") {
		t.Errorf("expected rejection, got %v", err)
	}

	cfg.Telegram.BotToken = ""
	if err := set.Telegram(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestWebhook(t *testing.T) {
	backend := &fakeWebhooker{}
	set := NewSet(Config{}, backend)
	cfg := settings.Defaults()

	if err := set.Webhook(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured without a URL, got %v", err)
	}
	if backend.calls != 0 {
		t.Error("backend called without a webhook URL")
	}

	cfg.Telegram.WebhookURL = "https://bot.example.com/telegram/webhook"
	if err := set.Webhook(context.Background(), cfg); err != nil {
		t.Errorf("expected success, got %v", err)
	}

	backend.err = errors.New("HTTP error! status: 502")
	if err := set.Webhook(context.Background(), cfg); err == nil {
		t.Error("expected backend failure to surface")
	}
}

func TestReranker(t *testing.T) {
	var gotAuth string
	var gotBody rerankRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		if gotAuth != "Bearer jina-key" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`{"results":[{"index":0,"relevance_score":0.9}]}`))
	}))
	defer server.Close()

	set := NewSet(Config{}, nil)
	cfg := settings.Defaults()
	cfg.Reranker.APIURL = server.URL
	cfg.Reranker.APIKey = "jina-key"

	if err := set.Reranker(context.Background(), cfg); err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if gotBody.TopN != 1 || len(gotBody.Documents) != 1 {
		t.Errorf("unexpected request body %+v", gotBody)
	}

	cfg.Reranker.APIKey = "wrong"
	if err := set.Reranker(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "403") {
		t.Errorf("expected status error, got %v", err)
	}
}

func TestLLM(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"object":"list","data":[{"id":"llama-3-70b","object":"model","owned_by":"org"}]}`)
	}))
	defer server.Close()

	set := NewSet(Config{}, nil)
	cfg := settings.Defaults()
	cfg.LLM.APIURL = server.URL
	cfg.LLM.APIKey = "sk-test"

	cfg.LLM.Model = "llama-3-70b"
	if err := set.LLM(context.Background(), cfg); err != nil {
		t.Errorf("expected success, got %v", err)
	}

	cfg.LLM.Model = "gpt-missing"
	if err := set.LLM(context.Background(), cfg); err == nil || !strings.Contains(err.Error(), "gpt-missing") {
		t.Errorf("expected missing-model error, got %v", err)
	}

	cfg.LLM.APIURL = ""
	if err := set.LLM(context.Background(), cfg); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("expected ErrNotConfigured, got %v", err)
	}
}

func TestScraper(t *testing.T) {
	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/blocked":
			w.WriteHeader(http.StatusForbidden)
		case "/untitled":
			io.WriteString(w, `<html><body>captcha</body></html>`)
		default:
			io.WriteString(w, `<html><head><title>Example Domain</title></head><body></body></html>`)
		}
	}))
	defer server.Close()

	cfg := settings.Defaults()
	cfg.Scraping.UserAgent = "TelegramRAGBot/1.0"

	if err := NewSet(Config{ScrapeURL: server.URL + "/"}, nil).Scraper(context.Background(), cfg); err != nil {
		t.Errorf("expected success, got %v", err)
	}
	if gotUA != "TelegramRAGBot/1.0" {
		t.Errorf("expected configured user agent, got %q", gotUA)
	}

	if err := NewSet(Config{ScrapeURL: server.URL + "/blocked"}, nil).Scraper(context.Background(), cfg); err == nil {
		t.Error("expected status error")
	}
	if err := NewSet(Config{ScrapeURL: server.URL + "/untitled"}, nil).Scraper(context.Background(), cfg); err == nil {
		t.Error("expected missing-title error")
	}
}

func TestRedis_Unreachable(t *testing.T) {
	// Bind and release a port so nothing is listening on it.
	server := httptest.NewServer(http.NotFoundHandler())
	addr := server.Listener.Addr().String()
	server.Close()

	host, port := splitHostPort(t, addr)
	cfg := settings.Defaults()
	cfg.Redis.Host = host
	cfg.Redis.Port = port

	if err := NewSet(Config{}, nil).Redis(context.Background(), cfg); err == nil {
		t.Error("expected connection error")
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("bad address %q: %v", addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("bad port %q: %v", portStr, err)
	}
	return host, port
}
