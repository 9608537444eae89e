package control

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/bantoinese83/gemini-exec/internal/core/config"
	"github.com/bantoinese83/gemini-exec/internal/health"
	"github.com/bantoinese83/gemini-exec/pkg/batch"
	"github.com/bantoinese83/gemini-exec/pkg/remote"
	"github.com/bantoinese83/gemini-exec/pkg/retry"
)

// ProbeResult is what a single probe operation yields.
type ProbeResult struct {
	Target  string
	Status  int
	Latency time.Duration
}

// Prober turns configured targets into remote operations and runs them as one
// batch per tick, feeding outcomes into the health monitor.
type Prober struct {
	targets  []config.TargetConfig
	clients  *remote.Registry[*http.Client]
	batchCfg batch.Config
	monitor  *health.Monitor
	interval time.Duration
	log      *slog.Logger
}

// NewProber builds a prober with one HTTP client per target.
func NewProber(
	targets []config.TargetConfig,
	batchCfg batch.Config,
	policy retry.Policy,
	monitor *health.Monitor,
	interval time.Duration,
) *Prober {
	clients := remote.NewRegistry[*http.Client]()
	for _, t := range targets {
		clients.Put(t.Name, &http.Client{Timeout: t.Timeout()})
	}

	batchCfg.Policy = &policy
	p := &Prober{
		targets:  targets,
		clients:  clients,
		batchCfg: batchCfg,
		monitor:  monitor,
		interval: interval,
		log:      slog.Default().With("component", "prober"),
	}
	p.batchCfg.OnProgress = func(completed, total int) {
		p.log.Debug("Probe progress", "completed", completed, "total", total)
	}
	return p
}

// Operations builds one probe operation per configured target, in config
// order. Each operation surfaces remote rejections as *remote.APIError so the
// classifier can work from the status code.
func (p *Prober) Operations() []remote.Operation[ProbeResult] {
	ops := make([]remote.Operation[ProbeResult], 0, len(p.targets))
	for _, target := range p.targets {
		client, ok := p.clients.Get(target.Name)
		if !ok {
			client = http.DefaultClient
		}
		ops = append(ops, probeOperation(target, client))
	}
	return ops
}

func probeOperation(target config.TargetConfig, client *http.Client) remote.Operation[ProbeResult] {
	return func(ctx context.Context) (ProbeResult, error) {
		start := time.Now()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.URL, nil)
		if err != nil {
			return ProbeResult{}, &remote.ValidationError{Field: "url", Reason: err.Error()}
		}

		resp, err := client.Do(req)
		if err != nil {
			return ProbeResult{}, fmt.Errorf("probe %s: %w", target.Name, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			return ProbeResult{}, remote.NewAPIError(resp.StatusCode, resp.Status)
		}

		return ProbeResult{
			Target:  target.Name,
			Status:  resp.StatusCode,
			Latency: time.Since(start),
		}, nil
	}
}

// RunOnce executes one settled batch over all targets and records outcomes.
func (p *Prober) RunOnce(ctx context.Context) []batch.Result[ProbeResult] {
	results, err := batch.ExecuteSettled(ctx, p.Operations(), p.batchCfg)
	if err != nil {
		p.log.Warn("Probe batch finished with failures", "error", err)
	}

	for i := range results {
		name := p.targets[results[i].Index].Name
		if results[i].Err != nil {
			p.monitor.RecordFailure(name, results[i].Err)
		} else {
			p.monitor.RecordSuccess(name)
			p.log.Debug("Probe succeeded",
				"target", name,
				"status", results[i].Value.Status,
				"latency", results[i].Value.Latency,
			)
		}
	}
	return results
}

// Run probes on every tick until ctx is done.
func (p *Prober) Run(ctx context.Context) {
	p.log.Info("Starting prober", "targets", len(p.targets), "interval", p.interval)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.RunOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			p.log.Info("Prober stopped")
			return
		case <-ticker.C:
			p.RunOnce(ctx)
		}
	}
}
