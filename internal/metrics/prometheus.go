package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	BackendRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rag_console_backend_request_duration_seconds",
			Help:    "Backend API call duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"endpoint"},
	)

	BackendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_console_backend_requests_total",
			Help: "Backend API calls by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	DashboardLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_console_dashboard_loads_total",
			Help: "Dashboard load sequences by result",
		},
		[]string{"result"},
	)

	ScrapingPolls = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rag_console_scraping_polls_total",
			Help: "Scraping job list refreshes triggered by the poll timer",
		},
	)

	MountedScrapingViews = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rag_console_scraping_views_mounted",
			Help: "Scraping views currently polling",
		},
	)

	ConnectionTests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_console_connection_tests_total",
			Help: "Settings connection tests by service and result",
		},
		[]string{"service", "result"},
	)

	LoginAttempts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rag_console_login_attempts_total",
			Help: "Login attempts by result",
		},
		[]string{"result"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "rag_console_sessions_active",
			Help: "Authenticated console sessions held in memory",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(BackendRequestDuration)
		prometheus.MustRegister(BackendRequestsTotal)
		prometheus.MustRegister(DashboardLoads)
		prometheus.MustRegister(ScrapingPolls)
		prometheus.MustRegister(MountedScrapingViews)
		prometheus.MustRegister(ConnectionTests)
		prometheus.MustRegister(LoginAttempts)
		prometheus.MustRegister(ActiveSessions)
	})
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
