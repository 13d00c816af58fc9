package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pulse/app/internal/auth"
	"pulse/app/internal/cache"
	"pulse/app/internal/checker"
	"pulse/app/internal/config"
	"pulse/app/internal/database"
	"pulse/app/internal/handlers"
	"pulse/app/internal/hub"
	"pulse/app/internal/metrics"
	"pulse/app/internal/monitor"
	"pulse/app/internal/notify"
	"pulse/app/internal/ratelimit"
	"pulse/app/internal/scheduler"
	"pulse/app/internal/version"
)

const (
	shutdownTimeout = 5 * time.Second
	pruneInterval   = time.Hour
)

var noHTTP bool

func init() {
	runCmd.Flags().BoolVar(&noHTTP, "no-http", false, "do not start the HTTP API")
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Probe endpoints continuously and serve the status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		logger := newLogger(cfg.Logging, os.Stderr)
		slog.SetDefault(logger)
		return run(cmd.Context(), cfg, logger)
	},
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting pulse", "version", version.Version, "config", cfg.File, "endpoints", len(cfg.Sites))

	if cfg.JournalEnabled() {
		if err := database.Init(cfg.Database.Path); err != nil {
			return fmt.Errorf("open journal %s: %w", cfg.Database.Path, err)
		}
		defer database.Close()
		_ = database.InsertLog(database.LogLevelInfo, database.LogCategorySystem, "", "pulse started", version.Version)
	}

	met := metrics.New()
	monitorCfg := cfg.Monitor()

	sinks, err := notify.Build(cfg.Settings.Notify, monitorCfg.Endpoints, os.Stdout)
	if err != nil {
		return fmt.Errorf("notification sinks: %w", err)
	}
	dispatcher := notify.NewDispatcher(notify.Options{
		Timeout:    cfg.Settings.Notify.Timeout,
		Logger:     logger.With("module", "notify"),
		Metrics:    met,
		LogJournal: cfg.Database.LogJournal,
	}, sinks...)
	defer dispatcher.Close()
	logger.Info("notification sinks ready", "sinks", dispatcher.Sinks())

	prober := checker.New(checker.Options{
		Timeout:        cfg.Settings.Timeout,
		WarningLatency: cfg.Settings.WarningLatency,
	})
	sched := scheduler.New(monitorCfg, prober, logger.With("module", "scheduler"))

	liveHub := hub.New(cfg.HTTP.AllowedOrigins, logger.With("module", "hub"))
	snaps := cache.NewSnapshots()
	mon := monitor.New(monitorCfg, sched, monitor.Options{
		Logger:     logger.With("module", "monitor"),
		Metrics:    met,
		Hub:        liveHub,
		Snapshots:  snaps,
		Notifier:   dispatcher,
		LogJournal: cfg.Database.LogJournal,
	})

	// the hub outlives the monitor so the last batch still reaches clients
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go liveHub.Run(hubCtx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return mon.Run(gctx)
	})

	if !noHTTP {
		limiter := ratelimit.New(ratelimit.Config{
			RequestsPerMinute: cfg.HTTP.RefreshPerMinute,
			Message:           "Too many refresh requests. Please slow down.",
			TrustProxy:        cfg.HTTP.TrustProxy,
		})
		adminAuth := auth.NewAuth(cfg.Admin.User, cfg.Admin.Hash, logger.With("module", "auth"))
		if !adminAuth.Enabled() {
			logger.Warn("admin password not set, admin endpoints are disabled")
		}
		srv := &http.Server{
			Addr: cfg.HTTP.Listen,
			Handler: handlers.SetupRoutes(handlers.Options{
				Snapshots: snaps,
				Refresher: mon,
				Hub:       liveHub,
				Metrics:   met,
				Auth:      adminAuth,
				Limiter:   limiter,
				Logger:    logger.With("module", "http"),
			}),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       60 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return gctx },
		}
		g.Go(func() error {
			logger.Info("http server listening", "addr", cfg.HTTP.Listen)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	if cfg.JournalEnabled() {
		g.Go(func() error {
			pruneJournal(gctx, cfg.Database, logger)
			return nil
		})
	}

	err = g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("pulse stopped with error", "error", err)
		return err
	}
	logger.Info("pulse stopped")
	return nil
}

// pruneJournal trims the journal tables until ctx is cancelled
func pruneJournal(ctx context.Context, db config.DatabaseConfig, logger *slog.Logger) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		if err := database.PruneAlerts(db.KeepAlerts); err != nil {
			logger.Warn("prune alert journal", "error", err)
		}
		if err := database.PruneLogs(db.KeepLogs); err != nil {
			logger.Warn("prune system logs", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
