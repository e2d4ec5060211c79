package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/rag-console/console/internal/apiclient"
	"github.com/rag-console/console/internal/console"
	"github.com/rag-console/console/internal/metrics"
	"github.com/rag-console/console/internal/middleware/ratelimit"
	"github.com/rag-console/console/internal/middleware/security"
	"github.com/rag-console/console/internal/middleware/validation"
	"github.com/rag-console/console/internal/probe"
	"github.com/rag-console/console/internal/session"
	"github.com/rag-console/console/internal/storage/sqlite"
	"github.com/rag-console/console/internal/web"
	"github.com/rag-console/console/pkg/config"
	appLogger "github.com/rag-console/console/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting RAG admin console", zap.String("backend", cfg.Backend.BaseURL))

	metrics.Init()

	sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer sqliteClient.Close()

	err = sqliteClient.InitSchema()
	if err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	api := apiclient.NewClient(cfg.Backend.BaseURL, cfg.Backend.AuthToken)
	if cfg.Backend.AuthToken == "" {
		appLogger.Warn("Backend calls are unauthenticated; set backend.authToken if the platform API requires it")
	}

	probes := probe.NewSet(probe.Config{
		TelegramAPIURL: cfg.Probe.TelegramAPIURL,
		ScrapeURL:      cfg.Probe.ScrapeURL,
	}, api).Probers()

	sessions := session.NewManager(func() *session.Workspace {
		return &session.Workspace{
			Dashboard: console.NewDashboard(api),
			Scraping:  console.NewScraping(api, cfg.Console.PollInterval(), console.NewRealTicker),
			Settings:  console.NewSettingsEditor(sqliteClient, probes, sqliteClient, cfg.Probe.Timeout()),
		}
	})

	loginLimiter := ratelimit.New(ratelimit.Config{
		MaxRequestsPerMinute: cfg.Security.LoginAttemptsPerMinute,
		Logger:               appLogger.GetLogger(),
	})
	defer loginLimiter.Stop()

	server, err := web.NewServer(web.Config{
		CookieName:   cfg.Console.SessionCookie,
		SecureCookie: cfg.Console.SecureCookie,
		LoginLimit:   loginLimiter.Middleware(),
		FormGuard: validation.Middleware(validation.Config{
			Logger: appLogger.GetLogger(),
		}),
	}, sessions)
	if err != nil {
		appLogger.Fatal("Failed to create web server", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		Views:        server.Views(),
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
	})

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Security.AllowedOrigins,
		IsDevelopment:  cfg.Security.IsDevelopment,
	}))

	server.Register(app)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	sessions.Close(ctx)

	appLogger.Info("Server stopped")
}
