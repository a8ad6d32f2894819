package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/okian/winprob/internal/adapters/classifier"
	"github.com/okian/winprob/internal/adapters/classifier/remote"
	"github.com/okian/winprob/internal/adapters/http/api"
	"github.com/okian/winprob/internal/adapters/http/site"
	"github.com/okian/winprob/internal/adapters/http/swagger"
	"github.com/okian/winprob/internal/adapters/repository"
	app "github.com/okian/winprob/internal/app"
	"github.com/okian/winprob/internal/config"
	"github.com/okian/winprob/pkg/logger"
	"github.com/okian/winprob/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// HTTP server timeout constants.
const (
	readTimeout               = 10 * time.Second
	writeTimeout              = 10 * time.Second
	idleTimeout               = 60 * time.Second
	readHeaderTimeout         = 5 * time.Second
	shutdownTimeout           = 30 * time.Second
	systemMetricsInterval     = 10 * time.Second
	serviceMetricsInterval    = 5 * time.Second
	nanosecondsPerMillisecond = 1e6
)

func main() {
	// Disable default Go metrics collection to avoid duplicate metrics
	// We collect our own custom system metrics instead
	prometheus.Unregister(collectors.NewGoCollector())
	prometheus.Unregister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// A missing .env is normal outside local development.
	envLoaded := godotenv.Load() == nil

	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		loggerInstance.Error(ctx, "failed to load config", logger.Error(err))
		os.Exit(1)
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	loggerInstance.Debug(ctx, "configuration loaded", logger.Bool("dotenv", envLoaded))

	err = run(ctx, cfg, loggerInstance)
	_ = logger.Sync()
	if err != nil {
		loggerInstance.Error(ctx, "service failed", logger.Error(err))
		stop()
		os.Exit(1)
	}
}

// run builds every component from cfg, serves HTTP until ctx is cancelled and
// shuts down gracefully.
func run(ctx context.Context, cfg *config.Config, log logger.Logger) error {
	built, err := classifier.Build(ctx, classifierSettings(cfg, log))
	if err != nil {
		return fmt.Errorf("build classifier: %w", err)
	}
	defer func() {
		if err := built.Close(); err != nil {
			log.Warn(ctx, "error closing classifier", logger.Error(err))
		}
	}()

	journal, err := openJournal(cfg)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}

	opts := []app.Option{
		app.WithLogger(log),
		app.WithClassifier(built.Classifier),
		app.WithBackendName(built.Backend),
		app.WithJournal(journal),
	}
	if built.Cache != nil {
		cache := built.Cache
		opts = append(opts, app.WithCacheStats(func() any { return cache.Stats() }))
	}
	svc := app.New(opts...)
	if err := svc.Start(ctx); err != nil {
		_ = journal.Close()
		return fmt.Errorf("start service: %w", err)
	}
	defer svc.Stop()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, cfg, svc, log),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	ln, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Addr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for shutdown signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}
	log.Info(ctx, "shutting down server...")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	log.Info(ctx, "server stopped")
	return nil
}

// classifierSettings maps configuration onto the classifier factory.
func classifierSettings(cfg *config.Config, log logger.Logger) classifier.Settings {
	rc := remote.DefaultConfig()
	rc.BaseURL = cfg.RemoteURL
	rc.Timeout = cfg.RemoteTimeout()
	rc.MaxRetries = cfg.RemoteMaxRetries
	rc.RateLimit = float64(cfg.RemoteRateLimit)

	return classifier.Settings{
		Backend:   cfg.ClassifierBackend,
		ModelPath: cfg.ModelPath,
		Remote:    rc,
		CacheTTL:  cfg.CacheTTL(),
		Logger:    log.Named("classifier"),
	}
}

// openJournal opens the bbolt journal when a path is configured and the
// in-memory ring otherwise.
func openJournal(cfg *config.Config) (repository.Store, error) {
	if cfg.JournalPath == "" {
		return repository.NewMemoryStore(repository.WithCapacity(cfg.JournalSize)), nil
	}
	return repository.OpenBoltStore(cfg.JournalPath, repository.WithCapacity(cfg.JournalSize))
}

// newMux registers the business API, the docs routes and the landing page.
func newMux(ctx context.Context, cfg *config.Config, svc *app.Service, log logger.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	site.Register(ctx, mux)
	swagger.Register(ctx, mux)

	apiServer := api.NewServer(svc, svc,
		api.WithMaxJournalLimit(cfg.MaxJournalLimit),
		api.WithAllowedOrigins(cfg.AllowedOrigins()...),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		api.WithLogger(log.Named("api")),
	)
	apiServer.Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater starts a background goroutine that updates system metrics.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater starts a background goroutine that updates service metrics.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

// updateSystemMetrics updates system-level metrics.
func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)

	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())

	if m.NumGC > 0 {
		avgPauseMs := float64(m.PauseTotalNs) / float64(m.NumGC) / nanosecondsPerMillisecond
		metrics.RecordSystemGCPauseTime(avgPauseMs)
	}
}

// updateServiceMetrics refreshes journal gauges. GetStats already sets the
// record count.
func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()

	if queued, ok := stats["journalQueueLength"].(int); ok {
		metrics.UpdateJournalQueueLength(queued)
	}
}
