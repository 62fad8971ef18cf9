package globals

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/lmittmann/tint"

	"github.com/yanniedog/blueberry/internal/config"
)

var (
	// Global instances
	Settings *config.Settings
	Logger   *slog.Logger

	// Ensure initialization happens only once
	initOnce sync.Once
	initErr  error
)

type Options struct {
	Verbose      bool
	NoColor      bool
	SettingsPath string
	EnvFilePath  string
}

// Initialize sets up the logger and loads settings exactly once.
func Initialize(opts Options) error {
	initOnce.Do(func() {
		setupLogger(opts.Verbose, opts.NoColor)

		Logger.Debug("Initializing global instances")

		settingsPath := opts.SettingsPath
		if settingsPath == "" {
			settingsPath = config.DefaultSettingsPath()
		}

		created, settings, err := config.LoadOrInitializeSettings(settingsPath)
		switch {
		case err != nil:
			Logger.Warn("Using default settings", "path", settingsPath, "error", err)
		case created:
			Logger.Info("Wrote default settings", "path", settingsPath)
		default:
			Logger.Debug("Loaded existing settings", "path", settingsPath)
		}

		envFilePath := opts.EnvFilePath
		if envFilePath == "" {
			envFilePath = config.DefaultEnvFilePath()
		}

		values, err := config.ReadEnvFile(envFilePath)
		if err != nil {
			initErr = err
			return
		}

		if err := settings.ApplyEnv(values); err != nil {
			initErr = err
			return
		}

		if err := settings.Validate(); err != nil {
			initErr = fmt.Errorf("invalid settings: %w", err)
			return
		}

		Settings = settings
		Logger.Debug("Global initialization completed", "verbose", opts.Verbose)
	})

	return initErr
}

// setupLogger configures the global logger. Logs go to stderr so they do
// not interleave with the device table on stdout.
func setupLogger(verbose, noColor bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	Logger = slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.TimeOnly,
		NoColor:    noColor,
	}))

	// Set as default logger
	slog.SetDefault(Logger)
}
