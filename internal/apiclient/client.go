package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/pkg/logger"
)

var errInvalidJSON = errors.New("body is not valid JSON")

// Client talks to the chatbot platform API. Every call is a single attempt;
// the caller's context is the only deadline.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
}

// RequestOptions overrides the defaults of a request. A nil Body sends no
// body; anything else is JSON-encoded.
type RequestOptions struct {
	Method  string
	Headers map[string]string
	Body    any

	// Route labels the call in metrics. Defaults to the endpoint.
	Route string
}

func NewClient(baseURL, authToken string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{},
	}
}

// WithHTTPClient replaces the transport, mainly for tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// Request performs one call and returns the response body, which is
// guaranteed to be valid JSON.
func (c *Client) Request(ctx context.Context, endpoint string, opts *RequestOptions) (json.RawMessage, error) {
	if opts == nil {
		opts = &RequestOptions{}
	}
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	route := opts.Route
	if route == "" {
		route = endpoint
	}

	start := time.Now()
	body, err := c.do(ctx, method, endpoint, opts)
	metrics.BackendRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	metrics.BackendRequestsTotal.WithLabelValues(route, outcome(err)).Inc()

	if err != nil {
		logger.Error("API request failed",
			zap.String("endpoint", endpoint),
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, err
	}

	return body, nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, opts *RequestOptions) (json.RawMessage, error) {
	var reqBody io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to encode body: %w", err)}
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}
	for k, v := range opts.Headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return nil, &HTTPStatusError{Endpoint: endpoint, StatusCode: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Endpoint: endpoint, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if !json.Valid(data) {
		return nil, &ParseError{Endpoint: endpoint, Err: errInvalidJSON}
	}

	return json.RawMessage(data), nil
}

func (c *Client) get(ctx context.Context, endpoint, route string, out any) error {
	return c.call(ctx, endpoint, &RequestOptions{Route: route}, out)
}

func (c *Client) call(ctx context.Context, endpoint string, opts *RequestOptions, out any) error {
	body, err := c.Request(ctx, endpoint, opts)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		perr := &ParseError{Endpoint: endpoint, Err: err}
		logger.Error("API response did not match record",
			zap.String("endpoint", endpoint),
			zap.Error(err),
		)
		return perr
	}
	return nil
}

func outcome(err error) string {
	var (
		statusErr    *HTTPStatusError
		transportErr *TransportError
		parseErr     *ParseError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &statusErr):
		return "http_status"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &transportErr):
		return "transport"
	default:
		return "unknown"
	}
}

func (c *Client) DashboardMetrics(ctx context.Context) (*DashboardMetrics, error) {
	var m DashboardMetrics
	if err := c.get(ctx, "/dashboard/metrics", "", &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) SystemStatus(ctx context.Context) ([]SystemStatus, error) {
	var rows []SystemStatus
	if err := c.get(ctx, "/dashboard/system-status", "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Conversations(ctx context.Context) ([]Conversation, error) {
	var rows []Conversation
	if err := c.get(ctx, "/dashboard/conversations", "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) Activity(ctx context.Context) ([]ActivityPoint, error) {
	var rows []ActivityPoint
	if err := c.get(ctx, "/dashboard/activity", "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) KnowledgeSources(ctx context.Context) ([]KnowledgeSource, error) {
	var rows []KnowledgeSource
	if err := c.get(ctx, "/knowledge/sources", "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) AddKnowledgeSource(ctx context.Context, sourceURL string, maxDepth, maxPages int) (*ActionResult, error) {
	var res ActionResult
	err := c.call(ctx, "/knowledge/sources", &RequestOptions{
		Method: http.MethodPost,
		Body:   addSourceRequest{URL: sourceURL, MaxDepth: maxDepth, MaxPages: maxPages},
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) SyncKnowledgeSource(ctx context.Context, sourceID int) (*ActionResult, error) {
	var res ActionResult
	err := c.call(ctx, fmt.Sprintf("/knowledge/sources/%d/sync", sourceID), &RequestOptions{
		Method: http.MethodPost,
		Route:  "/knowledge/sources/{id}/sync",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) KnowledgeStats(ctx context.Context) (*KnowledgeStats, error) {
	var s KnowledgeStats
	if err := c.get(ctx, "/knowledge/stats", "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) StartScrapingJob(ctx context.Context, req ScrapingJobRequest) (*StartedJob, error) {
	var job StartedJob
	err := c.call(ctx, "/scraping/start", &RequestOptions{
		Method: http.MethodPost,
		Body:   req,
	}, &job)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) ScrapingJobs(ctx context.Context) ([]ScrapingJob, error) {
	var jobs []ScrapingJob
	if err := c.get(ctx, "/scraping/jobs", "", &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (c *Client) ScrapingJob(ctx context.Context, jobID string) (*ScrapingJob, error) {
	var job ScrapingJob
	if err := c.get(ctx, "/scraping/jobs/"+url.PathEscape(jobID), "/scraping/jobs/{id}", &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *Client) CancelScrapingJob(ctx context.Context, jobID string) (*ActionResult, error) {
	var res ActionResult
	err := c.call(ctx, "/scraping/jobs/"+url.PathEscape(jobID), &RequestOptions{
		Method: http.MethodDelete,
		Route:  "/scraping/jobs/{id}",
	}, &res)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) TelegramStats(ctx context.Context) (*TelegramStats, error) {
	var s TelegramStats
	if err := c.get(ctx, "/telegram/stats", "", &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) SetTelegramWebhook(ctx context.Context) (json.RawMessage, error) {
	return c.Request(ctx, "/telegram/set-webhook", &RequestOptions{Method: http.MethodPost})
}
