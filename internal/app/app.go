// Package app wires the fillscope dependencies and runs the service.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avolkov/fillscope/internal/cache/redis"
	"github.com/avolkov/fillscope/internal/config"
	"github.com/avolkov/fillscope/internal/crypto"
	"github.com/avolkov/fillscope/internal/domain"
	"github.com/avolkov/fillscope/internal/market"
	"github.com/avolkov/fillscope/internal/platform/lighter"
	"github.com/avolkov/fillscope/internal/server"
	"github.com/avolkov/fillscope/internal/server/handler"
	"github.com/avolkov/fillscope/internal/server/ws"
	"github.com/avolkov/fillscope/internal/trades"
)

// shutdownTimeout bounds the graceful HTTP shutdown on exit.
const shutdownTimeout = 10 * time.Second

// App owns the wired service components.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	redisClient *redis.Client
}

// New creates an App from validated configuration.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{cfg: cfg, logger: logger}
}

// Close releases held resources.
func (a *App) Close() {
	if a.redisClient != nil {
		_ = a.redisClient.Close()
	}
}

// Run wires all dependencies and serves until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	client := lighter.NewClient(a.cfg.Lighter.BaseURL)
	catalog := market.NewCatalog(client, a.cfg.Lighter.CatalogTTL.Duration, a.logger)
	hub := ws.NewHub(a.logger)

	retriever := trades.NewRetriever(client, trades.RetrieverConfig{
		PageLimit:          a.cfg.Lighter.PageLimit,
		PagePause:          a.cfg.Lighter.PagePause.Duration,
		ThrottleBackoff:    a.cfg.Lighter.ThrottleBackoff.Duration,
		MaxThrottleRetries: a.cfg.Lighter.MaxThrottleRetries,
		OnPage:             hub.PageFetched,
	}, a.logger)

	signer := crypto.NewAuthSigner(a.cfg.Auth.TokenTTL.Duration)
	service := trades.NewService(catalog, retriever, signer, client, a.logger)

	// The rate limiter is optional: no Redis address, no limiter.
	var limiter domain.RateLimiter
	if a.cfg.Redis.Addr != "" {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       a.cfg.Redis.Addr,
			Password:   a.cfg.Redis.Password,
			DB:         a.cfg.Redis.DB,
			PoolSize:   a.cfg.Redis.PoolSize,
			MaxRetries: a.cfg.Redis.MaxRetries,
			TLSEnabled: a.cfg.Redis.TLSEnabled,
		})
		if err != nil {
			return fmt.Errorf("app: redis: %w", err)
		}
		a.redisClient = redisClient
		limiter = redis.NewRateLimiter(redisClient)
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		StaticDir:       a.cfg.Server.StaticDir,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Markets: handler.NewMarketHandler(catalog, a.logger),
		Trades:  handler.NewTradesHandler(service, a.logger),
	}, hub, limiter, a.logger)

	// Warm the catalog up front; the first request retries if this fails.
	if err := catalog.RefreshIfStale(ctx); err != nil {
		a.logger.Warn("app: initial catalog refresh failed",
			slog.String("error", err.Error()),
		)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return ctx.Err()
	})

	return g.Wait()
}
