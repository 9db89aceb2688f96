package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"docgate/internal/config"
	"docgate/internal/database"
	"docgate/internal/database/migration"
	handlers "docgate/internal/http/handler"
	"docgate/internal/http/middleware"
	"docgate/internal/logging"
	"docgate/internal/otel"
	"docgate/internal/realtime"
	"docgate/internal/repository"
	"docgate/internal/repository/memory"
	"docgate/internal/repository/postgres"
	"docgate/internal/service"
	"docgate/internal/storage"
)

const shutdownTimeout = 10 * time.Second

// @title Document Gateway API
// @version 1.0
// @description Downloads, static serving and uploads for the document root.
// @BasePath /
func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	logger := logging.New(os.Stdout, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = shutdownTracing(sctx)
	}()

	store, closeStore, err := openStorage(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	db, repo, err := openRepository(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	hub := realtime.NewHub(logger)
	go hub.Run()
	rtServer := realtime.NewServer(net.JoinHostPort("", cfg.Realtime.Port), hub, cfg.CORS.AllowOrigins)

	docSvc := service.NewDocumentService(store, repo,
		service.WithNotifier(hub),
		service.WithLogger(logger),
		service.WithMaxUploadSize(cfg.Documents.MaxUploadSize),
	)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	promMiddleware, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    cfg.HTTP.BodyLimitBytes,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTP.IdleTimeoutSec) * time.Second,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.LoggerWithWriter(os.Stdout, cfg.Location()))
	app.Use(promMiddleware.Handler())
	app.Use(cors.New(corsConfig(cfg.CORS)))

	app.Get("/metrics", handlers.Metrics(reg))
	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, docSvc, logger)
	if cfg.IsProduction() {
		handlers.RegisterFrontend(app, cfg.FrontendDir)
	}

	errCh := make(chan error, 2)
	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		if err := rtServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("realtime server: %w", err)
		}
	}()

	logger.Info("server started", logging.Fields{
		"port":             cfg.Port,
		"realtime_port":    cfg.Realtime.Port,
		"env":              cfg.Env,
		"documents_driver": cfg.Documents.Driver,
		"database":         db != nil,
	})

	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("shutdown requested", nil)
	case runErr = <-errCh:
		logger.Error("server failed", logging.Fields{"error": runErr})
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(sctx); err != nil {
		logger.Error("http shutdown failed", logging.Fields{"error": err})
	}
	if err := rtServer.Shutdown(sctx); err != nil {
		logger.Error("realtime shutdown failed", logging.Fields{"error": err})
	}
	if err := hub.Shutdown(shutdownTimeout); err != nil {
		logger.Error("realtime hub shutdown failed", logging.Fields{"error": err})
	}
	return runErr
}

// openStorage builds the document store selected by DOCUMENTS_DRIVER.
func openStorage(cfg *config.AppConfig, logger *logging.Logger) (storage.Storage, func(), error) {
	switch cfg.Documents.Driver {
	case "local", "":
		local, err := storage.NewLocal(cfg.Documents.Root)
		if err != nil {
			return nil, nil, fmt.Errorf("open document root: %w", err)
		}
		logger.Info("document root ready", logging.Fields{"dir": local.Dir()})
		return local, func() { _ = local.Close() }, nil
	case "minio":
		// Initialize reusable S3-compatible object storage client (MinIO-supported)
		objStore, err := storage.NewMinIO(cfg.MinIO)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		return objStore, func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown DOCUMENTS_DRIVER %q", cfg.Documents.Driver)
	}
}

// openRepository connects to PostgreSQL when configured and falls back to
// in-memory metadata otherwise.
func openRepository(ctx context.Context, cfg *config.AppConfig, logger *logging.Logger) (*sql.DB, repository.DocumentRepository, error) {
	if !cfg.Database.Enabled() {
		logger.Warn("database disabled, document metadata is kept in memory", nil)
		return nil, memory.NewDocumentMemory(), nil
	}

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := migration.EnsureMigrated(mctx, db, logger, cfg.Database.Host); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, postgres.NewDocumentPostgres(db), nil
}

func corsConfig(c config.CORSConfig) cors.Config {
	wildcard := slices.Contains(c.AllowOrigins, "*")
	return cors.Config{
		AllowOrigins: strings.Join(c.AllowOrigins, ","),
		// fiber refuses credentials with a wildcard origin.
		AllowCredentials: c.AllowCredentials && !wildcard,
		ExposeHeaders:    middleware.RequestIDHeader + ",Content-Disposition",
	}
}
