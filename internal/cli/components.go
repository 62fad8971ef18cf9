package cli

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/yanniedog/blueberry/internal/config"
	"github.com/yanniedog/blueberry/internal/discovery"
	"github.com/yanniedog/blueberry/internal/render"
	"github.com/yanniedog/blueberry/internal/storage"
	"github.com/yanniedog/blueberry/internal/vendor"
	"github.com/yanniedog/blueberry/macvendors/api"
)

func openStore(settings *config.Settings) (storage.Store, error) {
	store, err := storage.Open(settings.StorageBackend, settings.ResolvedStoragePath())
	if err != nil {
		return nil, fmt.Errorf("failed to open device table: %w", err)
	}
	return store, nil
}

func newScanner(settings *config.Settings, logger *slog.Logger) (discovery.Scanner, error) {
	switch settings.DiscoveryBackend {
	case discovery.BACKEND_BTMGMT:
		return discovery.NewCommandScanner(strings.Fields(settings.DiscoveryCommand), logger), nil
	case discovery.BACKEND_BLUEZ:
		return discovery.NewBlueZScanner(settings.BlueZAdapter, 0, logger), nil
	default:
		return nil, fmt.Errorf("unknown discovery backend %q", settings.DiscoveryBackend)
	}
}

// newResolver builds the vendor resolver. A local table that cannot be read
// is logged and skipped so the remote service still answers.
func newResolver(settings *config.Settings, logger *slog.Logger) *vendor.Resolver {
	opts := []vendor.Option{
		vendor.WithLogger(logger),
		vendor.WithBudget(vendor.NewBudget(
			settings.VendorQuota,
			time.Duration(settings.VendorWindow),
			time.Duration(settings.VendorSpacing),
		)),
		vendor.WithCacheSize(settings.VendorCacheSize),
	}

	if settings.VendorTablePath != "" {
		table, err := vendor.LoadTable(settings.VendorTablePath)
		if err != nil {
			logger.Warn("Failed to load vendor table", "path", settings.VendorTablePath, "error", err)
		} else {
			logger.Debug("Loaded vendor table", "path", settings.VendorTablePath, "prefixes", len(table))
			opts = append(opts, vendor.WithTable(table))
		}
	}

	if settings.VendorAPIURL != "" {
		client := api.NewClientWithLogger(settings.VendorAPIURL, settings.VendorAPIKey, logger)
		opts = append(opts, vendor.WithRemote(client))
	}

	return vendor.NewResolver(opts...)
}

// newRenderOptions enables colors and screen clearing only when out is a
// terminal. live asks for the screen to be cleared before every table.
func newRenderOptions(settings *config.Settings, out io.Writer, live bool) (render.Options, error) {
	key, err := render.ParseSortKey(settings.SortKey)
	if err != nil {
		return render.Options{}, err
	}

	descending, err := render.ParseDirection(settings.SortDirection)
	if err != nil {
		return render.Options{}, err
	}

	terminal := render.Terminal(out)

	return render.Options{
		SortKey:     key,
		Descending:  descending,
		Color:       terminal && !noColor && !color.NoColor,
		ClearScreen: terminal && live,
	}, nil
}
