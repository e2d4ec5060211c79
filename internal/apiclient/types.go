package apiclient

// Records mirror the backend's JSON. Status fields stay plain strings so a
// value the backend adds later survives decoding untouched.

type DashboardMetrics struct {
	ActiveUsers        int     `json:"active_users"`
	MessagesToday      int     `json:"messages_today"`
	AvgResponseTime    float64 `json:"avg_response_time"`
	RAGAccuracy        float64 `json:"rag_accuracy"`
	ChangeActiveUsers  string  `json:"change_active_users"`
	ChangeMessages     string  `json:"change_messages"`
	ChangeResponseTime string  `json:"change_response_time"`
	ChangeAccuracy     string  `json:"change_accuracy"`
}

type SystemStatus struct {
	Service string `json:"service"`
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
}

type Conversation struct {
	ID      int    `json:"id"`
	User    string `json:"user"`
	Message string `json:"message"`
	Time    string `json:"time"`
	Status  string `json:"status"`
}

type KnowledgeSource struct {
	ID         int    `json:"id"`
	Source     string `json:"source"`
	Documents  int    `json:"documents"`
	LastUpdate string `json:"lastUpdate"`
	Status     string `json:"status"`
}

type ActivityPoint struct {
	Timestamp    string  `json:"timestamp"`
	Messages     int     `json:"messages"`
	Users        int     `json:"users"`
	ResponseTime float64 `json:"response_time"`
}

type KnowledgeStats struct {
	TotalDocuments   int    `json:"total_documents"`
	VectorEmbeddings string `json:"vector_embeddings"`
	ActiveSources    int    `json:"active_sources"`
	LastSync         string `json:"last_sync"`
}

type ScrapingJob struct {
	JobID            string   `json:"job_id"`
	Status           string   `json:"status"`
	Progress         int      `json:"progress"`
	TotalPages       int      `json:"total_pages"`
	URLs             []string `json:"urls"`
	StartedAt        string   `json:"started_at,omitempty"`
	CompletedAt      string   `json:"completed_at,omitempty"`
	CurrentURL       string   `json:"current_url,omitempty"`
	PagesScraped     *int     `json:"pages_scraped,omitempty"`
	DocumentsCreated *int     `json:"documents_created,omitempty"`
	Errors           *int     `json:"errors,omitempty"`
}

type ScrapingJobRequest struct {
	URLs     []string `json:"urls"`
	MaxDepth int      `json:"max_depth"`
	MaxPages int      `json:"max_pages"`
	Delay    *int     `json:"delay,omitempty"`
}

type StartedJob struct {
	JobID  string   `json:"job_id"`
	Status string   `json:"status"`
	URLs   []string `json:"urls"`
}

type TelegramStats struct {
	ActiveUsers     int     `json:"active_users"`
	MessagesToday   int     `json:"messages_today"`
	AvgResponseTime float64 `json:"avg_response_time"`
	Uptime          string  `json:"uptime"`
}

// ActionResult is the acknowledgement returned by mutating endpoints.
type ActionResult struct {
	Message string `json:"message"`
	URL     string `json:"url,omitempty"`
	Status  string `json:"status,omitempty"`
}

type addSourceRequest struct {
	URL      string `json:"url"`
	MaxDepth int    `json:"max_depth"`
	MaxPages int    `json:"max_pages"`
}
