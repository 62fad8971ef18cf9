package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const ENV_PREFIX = "BLUEBERRY_"

func DefaultEnvFilePath() string {
	return filepath.Join(ConfigDir(), "blueberry.env")
}

// ReadEnvFile returns the key/value pairs of a dotenv file. A missing file
// yields an empty map.
func ReadEnvFile(path string) (map[string]string, error) {
	values, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read env file %s: %w", path, err)
	}

	return values, nil
}

// ApplyEnv overrides settings with BLUEBERRY_* values. Process environment
// variables win over values from file.
func (s *Settings) ApplyEnv(file map[string]string) error {
	lookup := func(name string) (string, bool) {
		key := ENV_PREFIX + name
		if value, ok := os.LookupEnv(key); ok {
			return value, true
		}
		value, ok := file[key]
		return value, ok
	}

	texts := map[string]*string{
		"STORAGE_PATH":      &s.StoragePath,
		"STORAGE_BACKEND":   &s.StorageBackend,
		"VENDOR_API_KEY":    &s.VendorAPIKey,
		"VENDOR_API_URL":    &s.VendorAPIURL,
		"VENDOR_TABLE_PATH": &s.VendorTablePath,
		"SORT_KEY":          &s.SortKey,
		"SORT_DIRECTION":    &s.SortDirection,
		"DISCOVERY_BACKEND": &s.DiscoveryBackend,
		"DISCOVERY_COMMAND": &s.DiscoveryCommand,
		"BLUEZ_ADAPTER":     &s.BlueZAdapter,
	}
	for name, target := range texts {
		if value, ok := lookup(name); ok {
			*target = value
		}
	}

	ints := map[string]*int{
		"VENDOR_QUOTA":      &s.VendorQuota,
		"VENDOR_CACHE_SIZE": &s.VendorCacheSize,
	}
	for name, target := range ints {
		if value, ok := lookup(name); ok {
			parsed, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", ENV_PREFIX, name, value, err)
			}
			*target = parsed
		}
	}

	durations := map[string]*Duration{
		"VENDOR_WINDOW":  &s.VendorWindow,
		"VENDOR_SPACING": &s.VendorSpacing,
		"SCAN_INTERVAL":  &s.ScanInterval,
	}
	for name, target := range durations {
		if value, ok := lookup(name); ok {
			parsed, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid %s%s %q: %w", ENV_PREFIX, name, value, err)
			}
			*target = Duration(parsed)
		}
	}

	return nil
}
