package app

import (
	"fmt"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"

	"github.com/yanniedog/blueberry/internal/models"
)

const (
	dbusName      = "io.github.yanniedog.Blueberry"
	dbusPath      = "/io/github/yanniedog/Blueberry"
	dbusInterface = "io.github.yanniedog.Blueberry"
)

// DBusService exposes the latest device table on the session bus
type DBusService struct {
	conn    *dbus.Conn
	mu      sync.RWMutex
	records []models.DeviceRecord
}

// NewDBusService connects to the session bus and claims the service name
func NewDBusService() (*DBusService, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	service := &DBusService{conn: conn}

	err = conn.Export(service, dbus.ObjectPath(dbusPath), dbusInterface)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export service: %w", err)
	}

	node := &introspect.Node{
		Name: dbusPath,
		Interfaces: []introspect.Interface{
			introspect.IntrospectData,
			{
				Name: dbusInterface,
				Methods: []introspect.Method{
					{
						Name: "GetDevices",
						Args: []introspect.Arg{
							{Name: "devices", Direction: "out", Type: "aa{sv}"},
						},
					},
				},
				Signals: []introspect.Signal{
					{
						Name: "DeviceUpdated",
						Args: []introspect.Arg{
							{Name: "device", Type: "a{sv}"},
						},
					},
				},
			},
		},
	}

	err = conn.Export(introspect.NewIntrospectable(node), dbus.ObjectPath(dbusPath), "org.freedesktop.DBus.Introspectable")
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to export introspection: %w", err)
	}

	reply, err := conn.RequestName(dbusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to request bus name: %w", err)
	}

	if reply != dbus.RequestNameReplyPrimaryOwner {
		conn.Close()
		return nil, fmt.Errorf("name %s already taken", dbusName)
	}

	return service, nil
}

// GetDevices returns every known device
func (s *DBusService) GetDevices() ([]map[string]dbus.Variant, *dbus.Error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	devices := make([]map[string]dbus.Variant, 0, len(s.records))
	for _, record := range s.records {
		devices = append(devices, deviceData(record))
	}
	return devices, nil
}

// Publish stores records for GetDevices and emits DeviceUpdated for each
// device observed in this cycle.
func (s *DBusService) Publish(records []models.DeviceRecord, observed models.Observations) error {
	s.mu.Lock()
	s.records = append([]models.DeviceRecord(nil), records...)
	s.mu.Unlock()

	for _, record := range records {
		if _, ok := observed[record.MAC]; !ok {
			continue
		}
		err := s.conn.Emit(dbus.ObjectPath(dbusPath), dbusInterface+".DeviceUpdated", deviceData(record))
		if err != nil {
			return fmt.Errorf("failed to emit update for %s: %w", record.MAC, err)
		}
	}
	return nil
}

// Close closes the DBUS connection
func (s *DBusService) Close() error {
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}

func deviceData(record models.DeviceRecord) map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"mac":        dbus.MakeVariant(record.MAC),
		"name":       dbus.MakeVariant(record.Name),
		"vendor":     dbus.MakeVariant(record.Vendor),
		"rssi":       dbus.MakeVariant(int32(record.RSSI)),
		"min_rssi":   dbus.MakeVariant(int32(record.MinRSSI)),
		"max_rssi":   dbus.MakeVariant(int32(record.MaxRSSI)),
		"avg_rssi":   dbus.MakeVariant(record.AvgRSSI),
		"count":      dbus.MakeVariant(int32(record.Count)),
		"first_seen": dbus.MakeVariant(record.FirstSeen.Unix()),
		"last_seen":  dbus.MakeVariant(record.LastSeen.Unix()),
	}
}
