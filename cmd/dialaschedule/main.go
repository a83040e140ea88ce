package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dialaschedule/dialaschedule/internal/api"
	"github.com/dialaschedule/dialaschedule/internal/api/middleware"
	"github.com/dialaschedule/dialaschedule/internal/callflow"
	"github.com/dialaschedule/dialaschedule/internal/config"
	"github.com/dialaschedule/dialaschedule/internal/database"
	"github.com/dialaschedule/dialaschedule/internal/metrics"
	"github.com/dialaschedule/dialaschedule/internal/schedule"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	startTime := time.Now()

	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	logger := slog.New(cfg.SlogHandler(os.Stdout))
	slog.SetDefault(logger)

	logger.Info("starting dialaschedule",
		"api_url", cfg.APIURL,
		"schedule_format", cfg.ScheduleFormat,
		"webhook_address", cfg.WebhookAddress,
		"observability_address", cfg.ObservabilityAddress,
		"timezone", cfg.Timezone,
	)

	var (
		statusLog     callflow.StatusLog
		statusCounter metrics.StatusCounter
		recentCalls   api.RecentCalls
	)
	if cfg.CallLogEnabled() {
		db, err := database.Open(cfg.DataDir, logger)
		if err != nil {
			return fmt.Errorf("opening call log: %w", err)
		}
		defer db.Close()

		repo := database.NewCallStatusRepository(db)
		statusLog = database.NewCallLog(repo)
		statusCounter = repo
		recentCalls = repo
	} else {
		logger.Info("call log disabled, no data-dir configured")
	}

	m := metrics.New(statusCounter, startTime)

	ctrl := callflow.NewController(newFetcher(cfg, logger), m, statusLog, cfg.Location(), logger)

	var limiter *middleware.CallRateLimiter
	if cfg.RateLimit > 0 {
		limiter = middleware.NewCallRateLimiter(middleware.NewRateLimitConfig(cfg.RateLimit, cfg.RateBurst), logger)
		defer limiter.Stop()
	}

	webhookSrv := &http.Server{
		Addr:         cfg.WebhookAddress,
		Handler:      api.NewServer(ctrl, limiter, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FetchTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}
	obsSrv := &http.Server{
		Addr:         cfg.ObservabilityAddress,
		Handler:      observabilityHandler(m, recentCalls, logger),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 2)
	serve := func(name string, srv *http.Server) {
		logger.Info("http server listening", "server", name, "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("%s server: %w", name, err)
		}
	}
	go serve("webhook", webhookSrv)
	go serve("observability", obsSrv)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig.String())
	case runErr = <-errCh:
		logger.Error("http server error", "error", runErr)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	logger.Info("shutting down servers")
	if err := webhookSrv.Shutdown(ctx); err != nil {
		logger.Error("webhook server shutdown error", "error", err)
	}
	if err := obsSrv.Shutdown(ctx); err != nil {
		logger.Error("observability server shutdown error", "error", err)
	}

	logger.Info("dialaschedule stopped")
	return runErr
}

// newFetcher picks the schedule client for the configured format.
func newFetcher(cfg *config.Config, logger *slog.Logger) schedule.Fetcher {
	if cfg.ScheduleFormat == "ics" {
		return schedule.NewICSClient(cfg.APIURL, cfg.FetchTimeout, logger)
	}
	return schedule.NewClient(cfg.APIURL, cfg.FetchTimeout, cfg.Location(), logger)
}

// observabilityHandler serves metrics and health, plus the call log when
// calls is non-nil.
func observabilityHandler(m *metrics.Metrics, calls api.RecentCalls, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Handle("/metrics", m.Handler())
	if calls != nil {
		r.Get("/calls", api.RecentCallsHandler(calls, logger))
	}
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok\n")) //nolint:errcheck
	})
	return r
}
