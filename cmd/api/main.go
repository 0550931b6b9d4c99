package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fjstoneservices/site-api/cmd/mainconfig"
	"github.com/fjstoneservices/site-api/internal/api/router"
	"github.com/fjstoneservices/site-api/internal/app/bootstrap"
	appconfig "github.com/fjstoneservices/site-api/internal/config"
	"github.com/fjstoneservices/site-api/internal/content"
	"github.com/fjstoneservices/site-api/internal/leads"
	"github.com/fjstoneservices/site-api/internal/notify"
	"github.com/fjstoneservices/site-api/internal/observability/metrics"
	"github.com/fjstoneservices/site-api/internal/quotes"
	"github.com/fjstoneservices/site-api/internal/ratelimit"
	"github.com/fjstoneservices/site-api/pkg/logging"
)

func main() {
	if os.Getenv("ENV") != "production" {
		_ = godotenv.Load()
	}

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting site API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var awsCfg aws.Config
	if mainconfig.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		awsCfg = loaded
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}
	limits, err := bootstrap.BuildRateLimiter(cfg, redisClient, logger)
	if err != nil {
		logger.Error("failed to build rate limiter", "error", err)
		os.Exit(1)
	}

	objects, err := bootstrap.BuildObjectStore(cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build attachment storage", "error", err)
		os.Exit(1)
	}
	verifyCtx, verifyCancel := context.WithTimeout(ctx, 10*time.Second)
	err = bootstrap.VerifyStorage(verifyCtx, objects)
	verifyCancel()
	if err != nil {
		logger.Error("attachment bucket is not private; refusing to start", "error", err)
		os.Exit(1)
	}

	sender, provider, err := bootstrap.BuildEmailSender(cfg, awsCfg, logger)
	if err != nil {
		logger.Error("failed to build email sender", "error", err)
		os.Exit(1)
	}
	logger.Info("email provider selected", "provider", provider, "recipients", len(cfg.EmailTo))

	// Initialize repositories
	stores, err := setupStores(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer stores.Close()

	metricsHandler, quoteMetrics := setupMetrics()

	// Initialize services and handlers
	notifier := notify.NewQuoteNotifier(sender, cfg.EmailTo, notify.EmailOptions{
		BusinessName:  cfg.BusinessName,
		PublicBaseURL: cfg.PublicBaseURL,
		TimeZone:      loadLocation(cfg.BusinessTimezone, logger),
		LinkTTL:       cfg.SignedURLTTL,
	}, logger)
	quoteService := quotes.NewService(stores.leads, objects.Store, limits.Quotes, notifier, quoteConfig(cfg), quoteMetrics, logger)

	clientKey := ratelimit.KeyFromHeader(cfg.TrustedProxyHeader)
	routerCfg := &router.Config{
		Logger:             logger,
		QuotesHandler:      quotes.NewHandler(quoteService, clientKey, quotes.MaxBodyFor(quoteConfig(cfg).FilePolicy), logger),
		LeadsHandler:       leads.NewHandler(stores.staff, objects.Store, cfg.StaffSignedURLTTL, logger),
		DownloadHandler:    objects.Download,
		DownloadLimiter:    limits.Download,
		ClientKey:          clientKey,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		AdminEmails:        cfg.AdminEmails,
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Ready:              bootstrap.ReadyCheck(stores.pool, stores.staffDB, redisClient),
	}
	if stores.content != nil {
		routerCfg.ContentHandler = content.NewHandler(content.NewService(stores.content, nil, logger), logger)
	}
	r := router.New(routerCfg)

	background := bootstrap.NewBackground(logger)
	for _, store := range limits.Memory {
		background.Go(ctx, "ratelimit-sweep", func(ctx context.Context) {
			store.Run(ctx, time.Minute)
		})
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	cancel()
	background.Wait(5 * time.Second)

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// dataStores bundles the service-credential repository with the staff
// connection and everything built on it.
type dataStores struct {
	leads   leads.Repository
	staff   leads.StaffRepository
	content content.Store
	pool    *pgxpool.Pool
	staffDB *sqlx.DB
}

func (d *dataStores) Close() {
	if d.staffDB != nil {
		_ = d.staffDB.Close()
	}
	if d.pool != nil {
		d.pool.Close()
	}
}

// setupStores connects Postgres. Outside production a missing DATABASE_URL
// falls back to in-memory leads and disables content editing.
func setupStores(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*dataStores, error) {
	pool := bootstrap.ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool == nil {
		if cfg.IsProduction() {
			return nil, errors.New("DATABASE_URL is required in production")
		}
		logger.Warn("no database configured; using in-memory lead storage")
		mem := leads.NewInMemoryRepository()
		return &dataStores{leads: mem, staff: mem}, nil
	}

	repo := leads.NewPostgresRepository(pool, logger)
	caps, err := repo.DetectCapabilities(ctx)
	if err != nil {
		pool.Close()
		return nil, err
	}

	staffDB, err := bootstrap.OpenStaffDB(ctx, cfg.DatabaseReaderURL, cfg.DatabaseURL)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return &dataStores{
		leads:   repo,
		staff:   leads.NewSQLStaffRepository(staffDB, caps),
		content: content.NewSQLStore(staffDB),
		pool:    pool,
		staffDB: staffDB,
	}, nil
}

// setupMetrics builds a dedicated registry with the runtime collectors and
// the quote pipeline metrics.
func setupMetrics() (http.Handler, *metrics.QuoteMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	quoteMetrics := metrics.NewQuoteMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}), quoteMetrics
}

func quoteConfig(cfg *appconfig.Config) quotes.Config {
	qc := quotes.DefaultConfig()
	qc.FilePolicy.MaxFiles = cfg.MaxUploadFiles
	qc.FilePolicy.MaxBytes = cfg.MaxUploadBytes
	qc.LinkTTL = cfg.SignedURLTTL
	qc.DBTimeout = cfg.DBTimeout
	qc.StorageTimeout = cfg.StorageTimeout
	qc.EmailTimeout = cfg.EmailTimeout
	return qc
}

func loadLocation(name string, logger *logging.Logger) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warn("unknown business timezone; using UTC", "timezone", name, "error", err)
		return time.UTC
	}
	return loc
}
