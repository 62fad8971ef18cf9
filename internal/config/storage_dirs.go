package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	APP_DIR_NAME = "blueberry"
)

// DataDir is where the device table lives by default.
func DataDir() string {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, APP_DIR_NAME)
	}

	homeDir, err := os.UserHomeDir()
	// In case the home directory cannot be determined use the current working directory
	if err != nil {
		currentDir, err := os.Getwd()
		if err != nil {
			return "."
		}
		return currentDir
	}

	localSharePath := filepath.Join(homeDir, ".local", "share")
	if _, err := os.Stat(localSharePath); err == nil {
		return filepath.Join(localSharePath, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, fmt.Sprintf(".%s", APP_DIR_NAME))
}

func ConfigDir() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, APP_DIR_NAME)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	localConfigPath := filepath.Join(homeDir, ".config")
	if _, err := os.Stat(localConfigPath); err == nil {
		return filepath.Join(localConfigPath, APP_DIR_NAME)
	}

	return filepath.Join(homeDir, fmt.Sprintf(".%s", APP_DIR_NAME))
}
