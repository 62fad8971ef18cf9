// Package app runs the discovery cycle: scan, load, merge, save, render.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/yanniedog/blueberry/internal/aggregator"
	"github.com/yanniedog/blueberry/internal/discovery"
	"github.com/yanniedog/blueberry/internal/metrics"
	"github.com/yanniedog/blueberry/internal/models"
	"github.com/yanniedog/blueberry/internal/render"
	"github.com/yanniedog/blueberry/internal/storage"
)

const (
	DEFAULT_INTERVAL = 10 * time.Second
)

// Publisher receives the table after every successful cycle.
type Publisher interface {
	Publish(records []models.DeviceRecord, observed models.Observations) error
}

type Config struct {
	Scanner   discovery.Scanner
	Resolver  discovery.VendorResolver
	Store     storage.Store
	Output    io.Writer
	Render    render.Options
	Interval  time.Duration
	Publisher Publisher
	Logger    *slog.Logger
}

type Monitor struct {
	scanner   discovery.Scanner
	resolver  discovery.VendorResolver
	store     storage.Store
	output    io.Writer
	render    render.Options
	interval  time.Duration
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// CycleReport describes one completed cycle.
type CycleReport struct {
	Observed int
	Known    int
	ScanErr  error
}

func NewMonitor(cfg Config) *Monitor {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DEFAULT_INTERVAL
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	output := cfg.Output
	if output == nil {
		output = io.Discard
	}

	return &Monitor{
		scanner:   cfg.Scanner,
		resolver:  cfg.Resolver,
		store:     cfg.Store,
		output:    output,
		render:    cfg.Render,
		interval:  interval,
		publisher: cfg.Publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// RunCycle performs a single discovery cycle. A scan failure is logged and
// whatever was observed before it is still merged. The returned error is
// either a load failure, which skips the cycle, or a *storage.WriteError.
func (m *Monitor) RunCycle(ctx context.Context) (CycleReport, error) {
	report := CycleReport{}

	observations, scanErr := m.scanner.Scan(ctx, m.resolver)
	if scanErr != nil {
		report.ScanErr = scanErr
		m.logger.Error("Discovery failed", "error", scanErr, "observed", len(observations))
	}
	report.Observed = len(observations)

	// Persist the partial cycle even when ctx was cancelled mid-scan.
	persistCtx := context.WithoutCancel(ctx)

	existing, err := m.store.Load(persistCtx)
	if err != nil {
		if !errors.Is(err, storage.ErrMalformed) {
			metrics.CyclesTotal.WithLabelValues("load_error").Inc()
			return report, fmt.Errorf("failed to load device table: %w", err)
		}
		m.logger.Warn("Device table is malformed, starting from an empty table", "error", err)
		existing = nil
	}

	records := aggregator.Merge(observations, existing, m.now())
	report.Known = len(records)

	if err := m.store.Save(persistCtx, records); err != nil {
		metrics.CyclesTotal.WithLabelValues("write_error").Inc()
		return report, err
	}

	if scanErr != nil {
		metrics.CyclesTotal.WithLabelValues("scan_error").Inc()
	} else {
		metrics.CyclesTotal.WithLabelValues("ok").Inc()
	}
	metrics.ObservationsTotal.Add(float64(len(observations)))
	metrics.KnownDevices.Set(float64(len(records)))

	if m.publisher != nil {
		if err := m.publisher.Publish(records, observations); err != nil {
			m.logger.Warn("Failed to publish devices", "error", err)
		}
	}

	if err := render.Table(m.output, records, m.render); err != nil {
		m.logger.Warn("Failed to render device table", "error", err)
	}

	m.logger.Debug("Cycle completed", "observed", report.Observed, "known", report.Known)

	return report, nil
}

// Run repeats RunCycle every interval until ctx is cancelled or the table
// can no longer be written.
func (m *Monitor) Run(ctx context.Context) error {
	for {
		if _, err := m.RunCycle(ctx); err != nil {
			var writeErr *storage.WriteError
			if errors.As(err, &writeErr) {
				return err
			}
			m.logger.Error("Cycle failed", "error", err)
		}

		timer := time.NewTimer(m.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			m.logger.Debug("Stopping discovery loop")
			return nil
		case <-timer.C:
		}
	}
}
