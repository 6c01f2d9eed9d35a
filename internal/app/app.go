package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rotapost/rotapost/internal/api"
	"github.com/rotapost/rotapost/internal/clock"
	"github.com/rotapost/rotapost/internal/config"
	"github.com/rotapost/rotapost/internal/delivery"
	"github.com/rotapost/rotapost/internal/dispatch"
	"github.com/rotapost/rotapost/internal/history"
	"github.com/rotapost/rotapost/internal/metrics"
	"github.com/rotapost/rotapost/internal/plan"
	"github.com/rotapost/rotapost/internal/store"
)

// App is the main application
type App struct {
	config        *config.Config
	db            *store.DB
	histLog       *history.Log
	dispatcher    *dispatch.Dispatcher
	planner       *plan.Service
	clock         *clock.Clock
	apiServer     *api.Server
	metricsServer *metrics.Server
	cron          *cron.Cron
	logger        *slog.Logger
	version       string
}

// New creates a new application
func New(cfg *config.Config, version string) (*App, error) {
	logger := SetupLogger(cfg.Logging)

	clk, err := clock.New(cfg.Scheduler.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone: %w", err)
	}

	db, err := store.Open(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	histLog, err := history.Open(cfg.Storage.HistoryPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}

	companies := store.NewCompanyRepository(db)
	posts := store.NewPostRepository(db)
	slots := store.NewSlotRepository(db)
	settings := store.NewSettingsRepository(db)

	var sender delivery.Sender
	if cfg.HasTelegram() {
		tg, err := delivery.NewTelegram(delivery.TelegramConfig{
			Token:   cfg.Telegram.Token,
			ChatID:  cfg.Telegram.ChatID,
			Timeout: cfg.Scheduler.SendTimeout,
		}, logger.With("component", "telegram"))
		if err != nil {
			histLog.Close()
			db.Close()
			return nil, fmt.Errorf("failed to create telegram sender: %w", err)
		}
		sender = tg
		logger.Info("telegram delivery enabled", "chat_id", cfg.Telegram.ChatID)
	} else {
		sender = delivery.NewLogSender(logger)
		logger.Warn("telegram not configured, publications are logged only")
	}

	planSvc := plan.NewService(posts, slots, settings, clk, logger)
	dispatcher := dispatch.New(slots, settings, sender, histLog, clk, dispatch.Config{
		TickInterval: cfg.Scheduler.DispatchInterval,
		SendTimeout:  cfg.Scheduler.SendTimeout,
	}, logger)

	apiServer := api.NewServer(api.Deps{
		Companies:  companies,
		Posts:      posts,
		Slots:      slots,
		Settings:   settings,
		Planner:    planSvc,
		Dispatcher: dispatcher,
		History:    histLog,
		Clock:      clk,
		Version:    version,
	}, &cfg.Server, logger.With("component", "api"))

	var metricsServer *metrics.Server
	if cfg.Metrics.Enabled {
		m := metrics.New()
		metrics.SetGlobal(m)
		metricsServer = metrics.NewServer(m, cfg.Metrics.ListenAddr, cfg.Metrics.Path, logger.With("component", "metrics"))
	}

	a := &App{
		config:        cfg,
		db:            db,
		histLog:       histLog,
		dispatcher:    dispatcher,
		planner:       planSvc,
		clock:         clk,
		apiServer:     apiServer,
		metricsServer: metricsServer,
		cron:          cron.New(cron.WithLocation(clk.Location())),
		logger:        logger,
		version:       version,
	}

	if _, err := a.cron.AddFunc(cfg.Scheduler.PlanCron, a.planToday); err != nil {
		histLog.Close()
		db.Close()
		return nil, fmt.Errorf("invalid plan_cron %q: %w", cfg.Scheduler.PlanCron, err)
	}

	return a, nil
}

// planToday is the nightly planning job.
func (a *App) planToday() {
	day := a.clock.Today()
	p, err := a.planner.Run(day, false)
	if err != nil {
		a.logger.Error("scheduled planning failed", "day", a.clock.DayString(day), "error", err)
		return
	}
	metrics.IncPlannerRuns("cron")
	metrics.AddPlannerSlots(p.TotalPublications)
}

// Run starts all components and waits for shutdown
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("starting rotapost",
		"version", a.version,
		"api_addr", a.config.Server.ListenAddr,
		"timezone", a.config.Scheduler.Timezone,
		"dispatch_interval", a.config.Scheduler.DispatchInterval,
	)

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a.dispatcher.Start(ctx)
	a.cron.Start()

	errCh := make(chan error, 2)

	go func() {
		if err := a.apiServer.ListenAndServe(); err != nil {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if a.metricsServer != nil {
		go func() {
			if err := a.metricsServer.ListenAndServe(); err != nil {
				errCh <- fmt.Errorf("metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.logger.Error("server error", "error", err)
		cancel()
	}

	return a.Shutdown(context.Background())
}

// Shutdown gracefully shuts down all components
func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	// Stop producing work before closing storage.
	cronCtx := a.cron.Stop()
	a.dispatcher.Stop()
	<-cronCtx.Done()

	if err := a.apiServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("api server shutdown error", "error", err)
	}
	if a.metricsServer != nil {
		if err := a.metricsServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("metrics server shutdown error", "error", err)
		}
	}

	if err := a.histLog.Close(); err != nil {
		a.logger.Error("history log close error", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("database close error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return nil
}

// SetupLogger creates a logger based on configuration
func SetupLogger(cfg config.LoggingConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
