package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanniedog/blueberry/internal/app"
	"github.com/yanniedog/blueberry/internal/config"
	"github.com/yanniedog/blueberry/internal/globals"
	"github.com/yanniedog/blueberry/internal/metrics"
)

var (
	scanOnce           bool
	scanInterval       time.Duration
	scanMetricsAddr    string
	scanDBus           bool
	scanBackend        string
	scanStoragePath    string
	scanStorageBackend string
	scanSort           string
	scanDirection      string
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover devices and keep the device table up to date",
	Long: `Run discovery cycles until interrupted. Every cycle merges the devices seen
into the persisted table and prints it.

Examples:
  blueberry scan
  blueberry scan --once --sort rssi --direction asc
  blueberry scan --backend bluez --metrics-addr :9101`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func addScanFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&scanOnce, "once", false, "Run a single cycle and exit")
	cmd.Flags().DurationVar(&scanInterval, "interval", app.DEFAULT_INTERVAL, "Time between discovery cycles")
	cmd.Flags().StringVar(&scanMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().BoolVar(&scanDBus, "dbus", false, "Publish devices on the session bus")
	cmd.Flags().StringVar(&scanBackend, "backend", "", "Discovery backend (btmgmt or bluez)")
	cmd.Flags().StringVar(&scanStoragePath, "storage", "", "Path of the persisted device table")
	cmd.Flags().StringVar(&scanStorageBackend, "storage-backend", "", "Storage backend (csv or sqlite)")
	cmd.Flags().StringVar(&scanSort, "sort", "", "Sort key (last_seen, first_seen, rssi, mac, name, vendor, count)")
	cmd.Flags().StringVar(&scanDirection, "direction", "", "Sort direction (asc or desc)")
}

// applyScanFlags lets explicitly passed flags win over settings and env
func applyScanFlags(cmd *cobra.Command) error {
	settings := globals.Settings
	flags := cmd.Flags()

	if flags.Changed("interval") {
		settings.ScanInterval = config.Duration(scanInterval)
	}
	if flags.Changed("backend") {
		settings.DiscoveryBackend = scanBackend
	}
	if flags.Changed("storage") {
		settings.StoragePath = scanStoragePath
	}
	if flags.Changed("storage-backend") {
		settings.StorageBackend = scanStorageBackend
	}
	if flags.Changed("sort") {
		settings.SortKey = scanSort
	}
	if flags.Changed("direction") {
		settings.SortDirection = scanDirection
	}

	return settings.Validate()
}

func runScan(cmd *cobra.Command, args []string) error {
	if err := applyScanFlags(cmd); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	settings := globals.Settings
	logger := globals.Logger

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(settings)
	if err != nil {
		return err
	}
	defer store.Close()

	scanner, err := newScanner(settings, logger)
	if err != nil {
		return err
	}

	resolver := newResolver(settings, logger)

	renderOptions, err := newRenderOptions(settings, cmd.OutOrStdout(), !scanOnce)
	if err != nil {
		return err
	}

	if scanMetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, scanMetricsAddr, logger); err != nil {
				logger.Error("Metrics server stopped", "error", err)
			}
		}()
	} else {
		metrics.Init()
	}

	var publisher app.Publisher
	if scanDBus {
		service, err := app.NewDBusService()
		if err != nil {
			logger.Warn("Failed to start DBUS service", "error", err)
		} else {
			defer service.Close()
			publisher = service
			logger.Debug("DBUS service started")
		}
	}

	monitor := app.NewMonitor(app.Config{
		Scanner:   scanner,
		Resolver:  resolver,
		Store:     store,
		Output:    cmd.OutOrStdout(),
		Render:    renderOptions,
		Interval:  time.Duration(settings.ScanInterval),
		Publisher: publisher,
		Logger:    logger,
	})

	logger.Debug("Starting discovery",
		"backend", settings.DiscoveryBackend,
		"storage", settings.ResolvedStoragePath(),
		"interval", time.Duration(settings.ScanInterval),
	)

	if scanOnce {
		_, err := monitor.RunCycle(ctx)
		return err
	}

	if err := monitor.Run(ctx); err != nil {
		return err
	}

	if ctx.Err() != nil {
		logger.Info("Interrupted, exiting")
	}
	return nil
}

func init() {
	addScanFlags(scanCmd)
	rootCmd.AddCommand(scanCmd)
}
