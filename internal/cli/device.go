package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/yanniedog/blueberry/internal/globals"
	"github.com/yanniedog/blueberry/internal/models"
	"github.com/yanniedog/blueberry/internal/render"
	"github.com/yanniedog/blueberry/internal/storage"
)

// deviceCmd represents the device command
var deviceCmd = &cobra.Command{
	Use:     "device",
	Aliases: []string{"d", "devices"},
	Short:   "Inspect the persisted device table",
	Long:    `Commands for listing, inspecting and clearing the devices recorded by previous scans.`,
}

// deviceListCmd represents the device list command
var deviceListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List all recorded devices",
	Long:    `List every recorded device with its signal statistics, sorted by the configured key.`,
	Args:    cobra.NoArgs,
	RunE:    runDeviceList,
}

// deviceShowCmd represents the device show command
var deviceShowCmd = &cobra.Command{
	Use:   "show <mac>",
	Short: "Show one device as JSON",
	Long: `Show the full record of a device, including its sample history.

Examples:
  blueberry device show 11:22:33:44:55:66
  blueberry device show 11-22-33-44-55-66`,
	Args: cobra.ExactArgs(1),
	RunE: runDeviceShow,
}

// deviceClearCmd represents the device clear command
var deviceClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove every recorded device",
	Args:  cobra.NoArgs,
	RunE:  runDeviceClear,
}

var (
	deviceSort      string
	deviceDirection string
)

func loadDevices(ctx context.Context) ([]models.DeviceRecord, error) {
	store, err := openStore(globals.Settings)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	records, err := store.Load(ctx)
	if errors.Is(err, storage.ErrMalformed) {
		globals.Logger.Warn("Device table is malformed", "error", err)
		return nil, nil
	}
	return records, err
}

func runDeviceList(cmd *cobra.Command, args []string) error {
	globals.Logger.Debug("Fetching devices", "path", globals.Settings.ResolvedStoragePath())

	if cmd.Flags().Changed("sort") {
		globals.Settings.SortKey = deviceSort
	}
	if cmd.Flags().Changed("direction") {
		globals.Settings.SortDirection = deviceDirection
	}

	options, err := newRenderOptions(globals.Settings, cmd.OutOrStdout(), false)
	if err != nil {
		return err
	}

	records, err := loadDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}

	if err := render.Table(cmd.OutOrStdout(), records, options); err != nil {
		return err
	}

	globals.Logger.Debug("Device list completed", "count", len(records))
	return nil
}

func runDeviceShow(cmd *cobra.Command, args []string) error {
	mac, err := models.NormalizeMAC(args[0])
	if err != nil {
		return err
	}

	records, err := loadDevices(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to fetch devices: %w", err)
	}

	for _, record := range records {
		if record.MAC != mac {
			continue
		}

		output, err := json.MarshalIndent(newDeviceInfo(record), "", "  ")
		if err != nil {
			return fmt.Errorf("failed to format device: %w", err)
		}

		fmt.Fprintln(cmd.OutOrStdout(), string(output))
		return nil
	}

	return fmt.Errorf("device not found: %s", mac)
}

func runDeviceClear(cmd *cobra.Command, args []string) error {
	store, err := openStore(globals.Settings)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Clear(cmd.Context()); err != nil {
		return err
	}

	globals.Logger.Info("Cleared device table", "path", globals.Settings.ResolvedStoragePath())
	return nil
}

// DeviceInfo represents device information for JSON output
type DeviceInfo struct {
	MAC             string  `json:"mac"`
	Name            string  `json:"name"`
	Vendor          string  `json:"vendor"`
	RSSI            int     `json:"rssi"`
	MinRSSI         int     `json:"min_rssi"`
	MaxRSSI         int     `json:"max_rssi"`
	AvgRSSI         float64 `json:"avg_rssi"`
	StdDevRSSI      float64 `json:"std_dev_rssi"`
	FirstSeen       string  `json:"first_seen"`
	LastSeen        string  `json:"last_seen"`
	DurationSeconds int64   `json:"duration_seconds"`
	Count           int     `json:"count"`
	Samples         []int   `json:"samples"`
}

func newDeviceInfo(record models.DeviceRecord) DeviceInfo {
	samples := record.Samples
	if samples == nil {
		samples = models.Samples{}
	}

	return DeviceInfo{
		MAC:             record.MAC,
		Name:            record.Name,
		Vendor:          record.Vendor,
		RSSI:            record.RSSI,
		MinRSSI:         record.MinRSSI,
		MaxRSSI:         record.MaxRSSI,
		AvgRSSI:         record.AvgRSSI,
		StdDevRSSI:      record.StdDevRSSI,
		FirstSeen:       record.FirstSeen.Format(time.RFC3339),
		LastSeen:        record.LastSeen.Format(time.RFC3339),
		DurationSeconds: int64(record.Duration / time.Second),
		Count:           record.Count,
		Samples:         samples,
	}
}

func init() {
	// Add device command to root
	rootCmd.AddCommand(deviceCmd)

	deviceListCmd.Flags().StringVar(&deviceSort, "sort", "", "Sort key (last_seen, first_seen, rssi, mac, name, vendor, count)")
	deviceListCmd.Flags().StringVar(&deviceDirection, "direction", "", "Sort direction (asc or desc)")

	deviceCmd.AddCommand(deviceListCmd)
	deviceCmd.AddCommand(deviceShowCmd)
	deviceCmd.AddCommand(deviceClearCmd)
}
