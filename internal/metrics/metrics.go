package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// CyclesTotal counts completed discovery cycles by result
	CyclesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blueberry",
			Name:      "cycles_total",
			Help:      "Total number of discovery cycles",
		},
		[]string{"result"},
	)

	// ObservationsTotal counts devices observed across all cycles
	ObservationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "blueberry",
			Name:      "observations_total",
			Help:      "Total number of device observations",
		},
	)

	// VendorLookups counts vendor resolutions by source and outcome
	VendorLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blueberry",
			Name:      "vendor_lookups_total",
			Help:      "Total number of vendor resolutions",
		},
		[]string{"source", "outcome"},
	)

	// KnownDevices is the number of rows in the persisted table
	KnownDevices = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blueberry",
			Name:      "known_devices",
			Help:      "Number of devices in the persisted table",
		},
	)

	once sync.Once
)

// Init registers all metrics with the default registry. Safe to call more than once.
func Init() {
	once.Do(func() {
		prometheus.DefaultRegisterer.Register(CyclesTotal)
		prometheus.DefaultRegisterer.Register(ObservationsTotal)
		prometheus.DefaultRegisterer.Register(VendorLookups)
		prometheus.DefaultRegisterer.Register(KnownDevices)
	})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	Init()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", "addr", addr)

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
