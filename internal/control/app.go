// Package control wires configuration into the running probe service.
package control

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/bantoinese83/gemini-exec/internal/core/config"
	"github.com/bantoinese83/gemini-exec/internal/health"
	"github.com/bantoinese83/gemini-exec/pkg/batch"
	"github.com/bantoinese83/gemini-exec/pkg/retry"
)

// Config holds the application configuration.
type Config struct {
	Port     int
	Interval time.Duration
	Targets  []config.TargetConfig
	Batch    batch.Config
	Policy   retry.Policy
}

// App is the main application struct that manages the probe lifecycle.
type App struct {
	cfg     Config
	prober  *Prober
	monitor *health.Monitor
	server  *health.Server
	log     *slog.Logger
}

// NewApp creates a new App instance with all dependencies initialized.
func NewApp(cfg Config) (*App, error) {
	if len(cfg.Targets) == 0 {
		return nil, errors.New("no probe targets configured")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}

	monitor := health.NewMonitor()
	return &App{
		cfg:     cfg,
		monitor: monitor,
		prober:  NewProber(cfg.Targets, cfg.Batch, cfg.Policy, monitor, cfg.Interval),
		server:  health.NewServer(monitor, cfg.Port),
		log:     slog.Default().With("component", "control"),
	}, nil
}

// Start launches the health server and the probe loop. It does not block.
func (a *App) Start(ctx context.Context) error {
	go func() {
		if err := a.server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.log.Error("Health server failed", "error", err)
		}
	}()
	go a.prober.Run(ctx)

	a.log.Info("Probe service started", "targets", len(a.cfg.Targets), "port", a.cfg.Port)
	return nil
}

// Stop shuts down the health server; the probe loop stops with its context.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping probe service")
	return a.server.Stop(ctx)
}
