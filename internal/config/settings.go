package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

const (
	DEFAULT_CSV_NAME    = "bt.csv"
	DEFAULT_SQLITE_NAME = "blueberry.sqlite"
)

type Settings struct {
	StoragePath      string   `json:"storage_path,omitempty"`
	StorageBackend   string   `json:"storage_backend,omitempty"`
	VendorAPIKey     string   `json:"vendor_api_key,omitempty"`
	VendorAPIURL     string   `json:"vendor_api_url,omitempty"`
	VendorTablePath  string   `json:"vendor_table_path,omitempty"`
	VendorQuota      int      `json:"vendor_quota,omitempty"`
	VendorWindow     Duration `json:"vendor_window,omitempty"`
	VendorSpacing    Duration `json:"vendor_spacing,omitempty"`
	VendorCacheSize  int      `json:"vendor_cache_size"`
	SortKey          string   `json:"sort_key,omitempty"`
	SortDirection    string   `json:"sort_direction,omitempty"`
	ScanInterval     Duration `json:"scan_interval,omitempty"`
	DiscoveryBackend string   `json:"discovery_backend,omitempty"`
	DiscoveryCommand string   `json:"discovery_command,omitempty"`
	BlueZAdapter     string   `json:"bluez_adapter,omitempty"`
}

func DefaultSettings() *Settings {
	return &Settings{
		StorageBackend:   "csv",
		VendorAPIURL:     "https://api.macvendors.com",
		VendorQuota:      2,
		VendorWindow:     Duration(time.Second),
		VendorCacheSize:  1024,
		SortKey:          "last_seen",
		SortDirection:    "desc",
		ScanInterval:     Duration(10 * time.Second),
		DiscoveryBackend: "btmgmt",
		DiscoveryCommand: "btmgmt find",
		BlueZAdapter:     "hci0",
	}
}

func DefaultSettingsPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// LoadOrInitializeSettings returns the settings at path. When there is no
// file yet the defaults are written there and created is true. A file that
// cannot be read or parsed is left alone; the defaults are returned together
// with the error.
func LoadOrInitializeSettings(path string) (created bool, settings *Settings, err error) {
	settings, err = LoadSettings(path)
	if err == nil {
		return false, settings, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return false, DefaultSettings(), err
	}

	settings = DefaultSettings()
	if err := settings.SaveTo(path); err != nil {
		return true, settings, fmt.Errorf("failed to save default settings: %w", err)
	}

	return true, settings, nil
}

// LoadSettings reads path on top of the defaults, so keys missing from the
// file keep their default value.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("failed to parse settings %s: %w", path, err)
	}

	return settings, nil
}

func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// ResolvedStoragePath returns StoragePath or the default file for the
// configured backend inside DataDir.
func (s *Settings) ResolvedStoragePath() string {
	if s.StoragePath != "" {
		return s.StoragePath
	}

	if s.StorageBackend == "sqlite" {
		return filepath.Join(DataDir(), DEFAULT_SQLITE_NAME)
	}
	return filepath.Join(DataDir(), DEFAULT_CSV_NAME)
}

func (s *Settings) Validate() error {
	switch s.StorageBackend {
	case "csv", "sqlite":
	default:
		return fmt.Errorf("unknown storage backend %q", s.StorageBackend)
	}

	switch s.DiscoveryBackend {
	case "btmgmt", "bluez":
	default:
		return fmt.Errorf("unknown discovery backend %q", s.DiscoveryBackend)
	}

	if s.ScanInterval < 0 {
		return fmt.Errorf("scan interval must not be negative")
	}

	if s.VendorQuota < 0 {
		return fmt.Errorf("vendor quota must not be negative")
	}

	if s.VendorSpacing < 0 {
		return fmt.Errorf("vendor spacing must not be negative")
	}

	if s.VendorCacheSize < 0 {
		return fmt.Errorf("vendor cache size must not be negative")
	}

	return nil
}
