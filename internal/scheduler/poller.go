package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gabriel/source-connectors/internal/connectors"
	"github.com/gabriel/source-connectors/internal/notifications"
)

// Poller keeps connectors warm. Each cycle starts filter population for
// connectors that declare filters and runs every health check, notifying when
// a connector changes between healthy and failing.
type Poller struct {
	registry      *connectors.Registry
	notifier      notifications.Notifier
	interval      time.Duration
	healthTimeout time.Duration
	logger        *slog.Logger
	stopCh        chan struct{}

	mu      sync.Mutex
	healthy map[string]bool
}

type PollerConfig struct {
	Interval      time.Duration
	HealthTimeout time.Duration
}

// Report summarizes one warm-up cycle.
type Report struct {
	Warmed    []string
	Healthy   []string
	Unhealthy []string
}

func NewPoller(registry *connectors.Registry, notifier notifications.Notifier, cfg PollerConfig, logger *slog.Logger) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 60 * time.Minute
	}
	if cfg.HealthTimeout <= 0 {
		cfg.HealthTimeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = notifications.LogNotifier{Logger: logger}
	}

	return &Poller{
		registry:      registry,
		notifier:      notifier,
		interval:      cfg.Interval,
		healthTimeout: cfg.HealthTimeout,
		logger:        logger,
		stopCh:        make(chan struct{}),
		healthy:       map[string]bool{},
	}
}

func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("poller started", "interval", p.interval.String())
	ticker := time.NewTicker(p.interval)
	go func() {
		defer ticker.Stop()
		p.RunOnce(ctx)
		for {
			select {
			case <-ctx.Done():
				p.logger.Info("poller stopped")
				close(p.stopCh)
				return
			case <-ticker.C:
				p.RunOnce(ctx)
			}
		}
	}()
}

func (p *Poller) StopWait(timeout time.Duration) {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	select {
	case <-p.stopCh:
	case <-time.After(timeout):
	}
}

func (p *Poller) RunOnce(ctx context.Context) Report {
	var report Report
	for _, connector := range p.registry.All() {
		if connector.Capabilities().Filters {
			connector.DescribeFilters()
			report.Warmed = append(report.Warmed, connector.Key())
		}
	}

	healthCtx, cancel := context.WithTimeout(ctx, p.healthTimeout)
	statuses := p.registry.Health(healthCtx)
	cancel()

	for _, status := range statuses {
		if status.Healthy {
			report.Healthy = append(report.Healthy, status.Key)
		} else {
			report.Unhealthy = append(report.Unhealthy, status.Key)
			p.logger.Warn("connector health check failed", "connector", status.Key, "error", status.Error)
		}
		p.recordHealth(ctx, status)
	}

	p.logger.Debug("poller cycle finished", "warmed", len(report.Warmed), "healthy", len(report.Healthy), "unhealthy", len(report.Unhealthy))
	return report
}

// recordHealth notifies on transitions only. The first observation of a
// connector notifies only when it is failing.
func (p *Poller) recordHealth(ctx context.Context, status connectors.HealthStatus) {
	p.mu.Lock()
	previous, seen := p.healthy[status.Key]
	p.healthy[status.Key] = status.Healthy
	p.mu.Unlock()

	if seen && previous == status.Healthy {
		return
	}
	if !seen && status.Healthy {
		return
	}

	message := notifications.Message{
		Title:   status.Name + " is back",
		Body:    "Health check succeeded again.",
		Context: map[string]any{"connector": status.Key, "healthy": status.Healthy},
	}
	if !status.Healthy {
		message.Title = status.Name + " is failing"
		message.Body = status.Error
	}
	if err := p.notifier.Notify(ctx, message); err != nil {
		p.logger.Warn("health notification failed", "connector", status.Key, "error", err)
	}
}
