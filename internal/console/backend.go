package console

import (
	"context"
	"encoding/json"

	"github.com/rag-console/console/internal/apiclient"
)

// Backend is the subset of the platform API the views use.
// *apiclient.Client satisfies it.
type Backend interface {
	DashboardMetrics(ctx context.Context) (*apiclient.DashboardMetrics, error)
	SystemStatus(ctx context.Context) ([]apiclient.SystemStatus, error)
	Conversations(ctx context.Context) ([]apiclient.Conversation, error)
	KnowledgeSources(ctx context.Context) ([]apiclient.KnowledgeSource, error)
	AddKnowledgeSource(ctx context.Context, sourceURL string, maxDepth, maxPages int) (*apiclient.ActionResult, error)
	SyncKnowledgeSource(ctx context.Context, sourceID int) (*apiclient.ActionResult, error)
	KnowledgeStats(ctx context.Context) (*apiclient.KnowledgeStats, error)

	StartScrapingJob(ctx context.Context, req apiclient.ScrapingJobRequest) (*apiclient.StartedJob, error)
	ScrapingJobs(ctx context.Context) ([]apiclient.ScrapingJob, error)
	ScrapingJob(ctx context.Context, jobID string) (*apiclient.ScrapingJob, error)
	CancelScrapingJob(ctx context.Context, jobID string) (*apiclient.ActionResult, error)

	TelegramStats(ctx context.Context) (*apiclient.TelegramStats, error)
	SetTelegramWebhook(ctx context.Context) (json.RawMessage, error)
}

var _ Backend = (*apiclient.Client)(nil)

// ActionError wraps a failed mutating call. The web layer shows Message as a
// blocking alert.
type ActionError struct {
	Message string
	Err     error
}

func (e *ActionError) Error() string {
	return e.Message + ": " + e.Err.Error()
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
