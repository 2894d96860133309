package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"docseal/internal/analytics"
	"docseal/internal/config"
	"docseal/internal/database"
	"docseal/internal/database/migration"
	handlers "docseal/internal/http/handler"
	"docseal/internal/http/middleware"
	"docseal/internal/jobs"
	"docseal/internal/metrics"
	"docseal/internal/notify"
	"docseal/internal/otel"
	"docseal/internal/repository/postgres"
	"docseal/internal/sealing"
	"docseal/internal/service"
	"docseal/internal/signing"
	"docseal/internal/storage"
	"docseal/internal/webhook"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		log.Fatal("failed to initialize tracing", zap.Error(err))
	}
	defer shutdownTracing(context.Background())

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatal("failed to initialize object storage", zap.Error(err))
	}

	signer, err := signing.NewPAdESSignerFromFiles(
		cfg.Signer.KeyFile, cfg.Signer.CertFile, cfg.Signer.Reason, cfg.Signer.Location)
	if err != nil {
		log.Fatal("failed to load signing key pair", zap.Error(err))
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	if err != nil {
		log.Fatal("failed to register metrics", zap.Error(err))
	}
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatal("failed to register http metrics", zap.Error(err))
	}

	docRepo := postgres.NewDocumentPostgres(db)
	jobRepo := postgres.NewJobPostgres(db)

	renderer := sealing.NewRenderer(sealing.CurrentFieldInserter{}, sealing.LegacyFieldInserter{}, log)

	var certs sealing.CertificateRenderer
	if cfg.Certificate.URL != "" {
		certs = sealing.NewHTTPCertificateRenderer(cfg.Certificate.URL, cfg.Certificate.Timeout())
	}

	var sink analytics.Sink = analytics.NopSink{}
	if cfg.Analytics.Endpoint != "" {
		sink = analytics.NewHTTPSink(cfg.Analytics.Endpoint, cfg.Analytics.APIKey, 10*time.Second, log)
	}

	sealer := sealing.NewSealer(
		docRepo,
		objStore,
		signer,
		renderer,
		certs,
		notify.NewLogMailer(log),
		webhook.NewHTTPDispatcher(cfg.Webhook.URL, cfg.Webhook.Secret, cfg.Webhook.Timeout(), log),
		sink,
		m,
		log,
	)

	runner := jobs.NewRunner(jobRepo, sealer, log)
	poller := jobs.NewPoller(jobRepo, runner, cfg.Jobs.PollInterval(), cfg.Jobs.MaxAttempts, log)
	go func() {
		if err := poller.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error("job poller stopped", zap.Error(err))
		}
	}()

	docSvc := service.NewDocumentService(docRepo, jobRepo, objStore)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	app.Use(middleware.RequestID())
	app.Use(middleware.Logger())
	app.Use(otelfiber.Middleware())
	app.Use(promMw.Handler())

	handlers.RegisterRoutes(app, db, docSvc)

	metricsHandler := fasthttpadaptor.NewFastHTTPHandler(
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	app.Get("/metrics", func(c *fiber.Ctx) error {
		metricsHandler(c.Context())
		return nil
	})

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("shutdown failed", zap.Error(err))
		}
	}()

	addr := ":" + cfg.Port
	log.Info("listening", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("failed to start server", zap.Error(err))
	}
}
