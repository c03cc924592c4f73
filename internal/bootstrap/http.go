package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/placementcell/portal-auth/config"
	"github.com/placementcell/portal-auth/internal/adapters/sessiontoken"
	httpx "github.com/placementcell/portal-auth/internal/http"
	"github.com/placementcell/portal-auth/internal/observability/statsd"
)

// HTTPServerConfig contains configuration for the HTTP server.
type HTTPServerConfig struct {
	Config  *config.AppConfig
	Auth    *AuthComponents
	DB      *sql.DB
	Redis   redis.UniversalClient
	Metrics statsd.Sink
	Logger  *slog.Logger
}

// NewMetrics returns the StatsD client described by cfg. A disabled config
// yields a client that drops everything.
func NewMetrics(cfg config.ObservabilityConfig, logger *slog.Logger) (*statsd.Client, error) {
	return statsd.NewClient(statsd.Config{
		Enabled: cfg.IsEnabled(),
		Address: cfg.StatsdAddress,
		Prefix:  cfg.MetricsPrefix,
		Logger:  logger,
	})
}

// BuildHTTPHandler assembles the router from the auth components.
func BuildHTTPHandler(cfg *HTTPServerConfig) (http.Handler, error) {
	if cfg == nil || cfg.Config == nil || cfg.Auth == nil {
		return nil, errors.New("config and auth components are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	appCfg := cfg.Config

	var pages http.Handler
	if appCfg.HTTP.FrontendURL != "" {
		target, err := url.Parse(appCfg.HTTP.FrontendURL)
		if err != nil || !target.IsAbs() {
			return nil, fmt.Errorf("invalid FRONTEND_URL %q", appCfg.HTTP.FrontendURL)
		}
		pages = httpx.NewPageProxy(target, logger)
	}

	checks := map[string]httpx.Check{}
	if cfg.DB != nil {
		checks["postgres"] = cfg.DB.PingContext
	}
	if cfg.Redis != nil {
		client := cfg.Redis
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	}

	return httpx.NewRouter(httpx.RouterServices{
		Auth:              cfg.Auth.Service,
		CSRF:              cfg.Auth.CSRF,
		Decoder:           sessiontoken.Decoder{},
		SessionCookieName: appCfg.Auth.SessionCookieName,
		SessionMaxAge:     cfg.Auth.Codec.TTL(),
		Cookies:           httpx.CookieConfig{Domain: appCfg.HTTP.CookieDomain, Secure: appCfg.SecureCookies()},
		Pages:             pages,
		HealthChecks:      checks,
		Metrics:           cfg.Metrics,
		Logger:            logger,
	}), nil
}

// NewHTTPServer creates the HTTP server without starting it.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// ServeHTTP runs server until ctx is canceled, then shuts it down gracefully.
func ServeHTTP(ctx context.Context, server *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.InfoContext(ctx, "starting HTTP server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.InfoContext(ctx, "shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	logger.InfoContext(ctx, "HTTP server stopped")
	return nil
}
