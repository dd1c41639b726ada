package bootstrap

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/astrowise/astrowise-api/internal/domain/member"
	"github.com/astrowise/astrowise-api/internal/infra/config"
)

// App encapsulates the HTTP server lifecycle and background maintenance.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	server  *http.Server
	members member.Service
}

// NewApp is used by Wire to build the runnable app.
func NewApp(cfg *config.Config, logger *slog.Logger, server *http.Server, members member.Service) *App {
	return &App{
		cfg:     cfg,
		logger:  logger.With("component", "bootstrap"),
		server:  server,
		members: members,
	}
}

// Run starts the HTTP server and the expiry sweeper, blocking until shutdown.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("http server starting", "address", a.cfg.HTTP.Address)
		if err := a.server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go a.sweepExpired(sweepCtx)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		a.logger.Info("shutdown signal received")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// sweepExpired removes lapsed trial members once a day. Members who ever
// bought a package are kept for the payment status endpoint.
func (a *App) sweepExpired(ctx context.Context) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.members.SweepExpired(ctx)
			if err != nil {
				a.logger.Error("expiry sweep failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Info("expired members removed", "count", n)
			}
		}
	}
}
