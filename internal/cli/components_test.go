package cli

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanniedog/blueberry/internal/config"
	"github.com/yanniedog/blueberry/internal/discovery"
	"github.com/yanniedog/blueberry/internal/models"
	"github.com/yanniedog/blueberry/internal/render"
	"github.com/yanniedog/blueberry/internal/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewScannerByBackend(t *testing.T) {
	settings := config.DefaultSettings()

	scanner, err := newScanner(settings, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &discovery.CommandScanner{}, scanner)

	settings.DiscoveryBackend = discovery.BACKEND_BLUEZ
	scanner, err = newScanner(settings, quietLogger())
	require.NoError(t, err)
	assert.IsType(t, &discovery.BlueZScanner{}, scanner)

	settings.DiscoveryBackend = "carrier-pigeon"
	_, err = newScanner(settings, quietLogger())
	assert.Error(t, err)
}

func TestOpenStoreByBackend(t *testing.T) {
	settings := config.DefaultSettings()
	settings.StoragePath = filepath.Join(t.TempDir(), "bt.csv")

	store, err := openStore(settings)
	require.NoError(t, err)
	defer store.Close()
	assert.IsType(t, &storage.CSVStore{}, store)
}

func TestNewRenderOptions(t *testing.T) {
	settings := config.DefaultSettings()
	settings.SortKey = "rssi"
	settings.SortDirection = "asc"

	options, err := newRenderOptions(settings, &bytes.Buffer{}, true)
	require.NoError(t, err)
	assert.Equal(t, render.SortRSSI, options.SortKey)
	assert.False(t, options.Descending)

	settings.SortKey = "loudness"
	_, err = newRenderOptions(settings, &bytes.Buffer{}, false)
	assert.Error(t, err)
}

func TestNewRenderOptionsWithoutTerminal(t *testing.T) {
	file, err := os.Create(filepath.Join(t.TempDir(), "devices.txt"))
	require.NoError(t, err)
	defer file.Close()

	options, err := newRenderOptions(config.DefaultSettings(), file, true)
	require.NoError(t, err)
	assert.False(t, options.Color)
	assert.False(t, options.ClearScreen)

	var buf bytes.Buffer
	require.NoError(t, render.Table(&buf, []models.DeviceRecord{{MAC: "11:22:33:44:55:66", RSSI: -80}}, options))
	assert.NotContains(t, buf.String(), "\x1b[")
}

func TestNewResolverSkipsMissingTable(t *testing.T) {
	settings := config.DefaultSettings()
	settings.VendorTablePath = filepath.Join(t.TempDir(), "missing-oui.txt")
	settings.VendorAPIURL = ""

	resolver := newResolver(settings, quietLogger())
	require.NotNil(t, resolver)
	assert.Equal(t, "", resolver.Resolve(t.Context(), "00:1A:2B:3C:4D:5E"))
}

func TestNewResolverHonoursVendorSettings(t *testing.T) {
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte("Google, Inc.\n"))
	}))
	defer server.Close()

	settings := config.DefaultSettings()
	settings.VendorTablePath = ""
	settings.VendorAPIURL = server.URL
	settings.VendorQuota = 0
	settings.VendorCacheSize = 0

	resolver := newResolver(settings, quietLogger())
	assert.Equal(t, "Google, Inc.", resolver.Resolve(t.Context(), "00:1A:11:22:33:44"))
	assert.Equal(t, "Google, Inc.", resolver.Resolve(t.Context(), "00:1A:11:22:33:44"))
	assert.Equal(t, int32(2), requests.Load(), "a zero cache size disables the cache")

	requests.Store(0)
	settings.VendorCacheSize = 16
	settings.VendorSpacing = config.Duration(time.Hour)

	resolver = newResolver(settings, quietLogger())
	assert.Equal(t, "Google, Inc.", resolver.Resolve(t.Context(), "00:1A:11:22:33:44"))
	assert.Equal(t, "Google, Inc.", resolver.Resolve(t.Context(), "00:1A:11:55:66:77"))
	assert.Equal(t, "", resolver.Resolve(t.Context(), "F0:99:B6:00:00:01"))
	assert.Equal(t, int32(1), requests.Load(), "cached prefix and spacing keep the remote quiet")
}
