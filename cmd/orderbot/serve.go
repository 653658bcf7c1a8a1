package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/SIMPLIKARG/TESTING/internal/di"
	"github.com/SIMPLIKARG/TESTING/internal/handlers"
	"github.com/SIMPLIKARG/TESTING/internal/platform/observability"
)

const (
	shutdownTimeout     = 10 * time.Second
	sessionCleanupBatch = 500
)

func (a *app) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP event endpoint with the outbox relay and session cleanup",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}
}

func (a *app) serve(parent context.Context) error {
	startedAt := time.Now().UTC()
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	c, err := a.container(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := c.Close(closeCtx); err != nil {
			a.logger.Warn("container close error", zap.Error(err))
		}
	}()

	cfg := c.Config
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      newRouter(c, startedAt),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	serverLogger := a.logger.Named("http").With(zap.String("addr", server.Addr))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		serverLogger.Info("orderbot listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		a.logger.Info("shutdown signal received; draining requests")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		err := c.Relay.Run(gctx, cfg.Outbox.ReplayInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.Sessions.TTL > 0 {
		g.Go(func() error {
			runSessionCleanup(gctx, c, cleanupInterval(cfg.Sessions.TTL))
			return nil
		})
	}
	return g.Wait()
}

func newRouter(c *di.Container, startedAt time.Time) http.Handler {
	cfg := c.Config
	httpLogger := c.Logger.Named("http")

	health := handlers.NewHealthHandlers(
		handlers.WithHealthBuildInfo(handlers.BuildInfo{
			Version:     version,
			CommitSHA:   commit,
			Environment: cfg.Environment,
			StartedAt:   startedAt,
		}),
		handlers.WithHealthCollector(c.Health),
	)
	events := handlers.NewEventHandlers(c.Engine,
		handlers.WithEventRateLimit(cfg.Server.EventRateLimit, cfg.Server.EventRateWindow, nil),
	)

	return handlers.NewRouter(
		handlers.WithMiddlewares(
			observability.InjectLoggerMiddleware(httpLogger),
			observability.TraceMiddleware(),
			observability.RecoveryMiddleware(httpLogger),
			observability.RequestLoggerMiddleware(),
		),
		handlers.WithHealthHandlers(health),
		handlers.WithMetricsHandler(c.Metrics.Handler()),
		handlers.WithEventRoutes(events.Routes),
	)
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/4, time.Minute), 15*time.Minute)
}

func runSessionCleanup(ctx context.Context, c *di.Container, interval time.Duration) {
	logger := c.Logger.Named("sessions")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := c.Sessions.CleanupExpired(ctx, now.UTC(), sessionCleanupBatch)
			if err != nil {
				logger.Warn("session cleanup failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Debug("expired sessions removed", zap.Int("count", removed))
			}
		}
	}
}
