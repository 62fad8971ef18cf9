package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/godbus/dbus/v5"

	"github.com/yanniedog/blueberry/internal/models"
)

const (
	bluezService        = "org.bluez"
	bluezAdapterIface   = "org.bluez.Adapter1"
	bluezDeviceIface    = "org.bluez.Device1"
	objectManagerMethod = "org.freedesktop.DBus.ObjectManager.GetManagedObjects"

	DEFAULT_ADAPTER        = "hci0"
	DEFAULT_BLUEZ_DURATION = 10 * time.Second
)

type managedObjects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

// BlueZScanner discovers devices through the BlueZ daemon on the system bus
// instead of parsing btmgmt output.
type BlueZScanner struct {
	adapter  string
	duration time.Duration
	logger   *slog.Logger
}

func NewBlueZScanner(adapter string, duration time.Duration, logger *slog.Logger) *BlueZScanner {
	if adapter == "" {
		adapter = DEFAULT_ADAPTER
	}
	if duration <= 0 {
		duration = DEFAULT_BLUEZ_DURATION
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &BlueZScanner{
		adapter:  adapter,
		duration: duration,
		logger:   logger,
	}
}

func (s *BlueZScanner) adapterPath() dbus.ObjectPath {
	return dbus.ObjectPath("/org/bluez/" + s.adapter)
}

func (s *BlueZScanner) Scan(ctx context.Context, resolver VendorResolver) (models.Observations, error) {
	collector := NewCollector(resolver)

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return collector.Observations(), fmt.Errorf("failed to connect to system bus: %w", err)
	}
	defer conn.Close()

	adapter := conn.Object(bluezService, s.adapterPath())

	filter := map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("auto"),
		"DuplicateData": dbus.MakeVariant(true),
	}
	if err := adapter.CallWithContext(ctx, bluezAdapterIface+".SetDiscoveryFilter", 0, filter).Err; err != nil {
		s.logger.Debug("Failed to set discovery filter", "adapter", s.adapter, "error", err)
	}

	s.logger.Debug("Starting BlueZ discovery", "adapter", s.adapter, "duration", s.duration)

	if err := adapter.CallWithContext(ctx, bluezAdapterIface+".StartDiscovery", 0).Err; err != nil {
		return collector.Observations(), fmt.Errorf("failed to start discovery on %s: %w", s.adapter, err)
	}

	timer := time.NewTimer(s.duration)
	select {
	case <-timer.C:
	case <-ctx.Done():
		timer.Stop()
	}

	var objects managedObjects
	root := conn.Object(bluezService, "/")
	callErr := root.CallWithContext(context.WithoutCancel(ctx), objectManagerMethod, 0).Store(&objects)

	if err := adapter.Call(bluezAdapterIface+".StopDiscovery", 0).Err; err != nil {
		s.logger.Debug("Failed to stop discovery", "adapter", s.adapter, "error", err)
	}

	if callErr != nil {
		return collector.Observations(), fmt.Errorf("failed to list BlueZ devices: %w", callErr)
	}

	for _, sighting := range sightingsFromObjects(objects, s.adapterPath()) {
		collector.Add(ctx, sighting)
	}

	return collector.Observations(), ctx.Err()
}

// sightingsFromObjects extracts the devices of one adapter that carry a
// current RSSI, in object path order.
func sightingsFromObjects(objects managedObjects, adapter dbus.ObjectPath) []Sighting {
	paths := make([]dbus.ObjectPath, 0, len(objects))
	for path := range objects {
		paths = append(paths, path)
	}
	slices.Sort(paths)

	var sightings []Sighting
	for _, path := range paths {
		if !strings.HasPrefix(string(path), string(adapter)+"/") {
			continue
		}

		props, ok := objects[path][bluezDeviceIface]
		if !ok {
			continue
		}

		address, ok := props["Address"].Value().(string)
		if !ok {
			continue
		}
		mac, err := models.NormalizeMAC(address)
		if err != nil {
			continue
		}

		rssi, ok := props["RSSI"].Value().(int16)
		if !ok {
			continue
		}

		name, _ := props["Name"].Value().(string)
		if name == "" {
			name = aliasName(props, mac)
		}

		sightings = append(sightings, Sighting{
			MAC:     mac,
			RSSI:    int(rssi),
			HasRSSI: true,
			Name:    name,
		})
	}

	return sightings
}

// aliasName returns the Alias property unless BlueZ derived it from the
// address, which it does for devices that never advertised a name.
func aliasName(props map[string]dbus.Variant, mac string) string {
	alias, _ := props["Alias"].Value().(string)
	if strings.EqualFold(alias, strings.ReplaceAll(mac, ":", "-")) {
		return ""
	}
	return alias
}
