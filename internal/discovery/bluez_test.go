package discovery

import (
	"testing"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
)

func TestSightingsFromObjects(t *testing.T) {
	objects := managedObjects{
		"/org/bluez/hci0": {
			bluezAdapterIface: {"Address": dbus.MakeVariant("00:00:00:00:00:00")},
		},
		"/org/bluez/hci0/dev_11_22_33_44_55_66": {
			bluezDeviceIface: {
				"Address": dbus.MakeVariant("11:22:33:44:55:66"),
				"RSSI":    dbus.MakeVariant(int16(-71)),
				"Name":    dbus.MakeVariant("Pixel 7"),
			},
		},
		"/org/bluez/hci0/dev_AA_BB_CC_DD_EE_FF": {
			bluezDeviceIface: {
				"Address": dbus.MakeVariant("aa:bb:cc:dd:ee:ff"),
				"RSSI":    dbus.MakeVariant(int16(-55)),
				"Alias":   dbus.MakeVariant("AA-BB-CC-DD-EE-FF"),
			},
		},
		"/org/bluez/hci0/dev_33_33_33_33_33_33": {
			bluezDeviceIface: {
				"Address": dbus.MakeVariant("33:33:33:33:33:33"),
				"RSSI":    dbus.MakeVariant(int16(-62)),
				"Alias":   dbus.MakeVariant("Kitchen speaker"),
			},
		},
		"/org/bluez/hci0/dev_00_00_00_00_00_01": {
			bluezDeviceIface: {
				"Address": dbus.MakeVariant("00:00:00:00:00:01"),
			},
		},
		"/org/bluez/hci1/dev_22_22_22_22_22_22": {
			bluezDeviceIface: {
				"Address": dbus.MakeVariant("22:22:22:22:22:22"),
				"RSSI":    dbus.MakeVariant(int16(-40)),
			},
		},
	}

	sightings := sightingsFromObjects(objects, "/org/bluez/hci0")

	assert.Equal(t, []Sighting{
		{MAC: "11:22:33:44:55:66", RSSI: -71, HasRSSI: true, Name: "Pixel 7"},
		{MAC: "33:33:33:33:33:33", RSSI: -62, HasRSSI: true, Name: "Kitchen speaker"},
		{MAC: "AA:BB:CC:DD:EE:FF", RSSI: -55, HasRSSI: true},
	}, sightings)
}
