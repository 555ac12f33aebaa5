// Package project persists engine configuration, jobs, tool libraries and
// custom post profiles as JSON under the user's config directory.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/piwi3910/pcbcam/internal/model"
)

// DefaultConfigDir returns the default directory for application
// configuration. On all platforms this is ~/.pcbcam/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".pcbcam")
}

// DefaultConfigPath returns the default path for the engine config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// SaveConfig persists a Config to the given path as JSON, creating any
// missing parent directories.
func SaveConfig(path string, config model.Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadConfig reads a Config from the given path. A missing file returns
// DefaultConfig with no error.
func LoadConfig(path string) (model.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return model.DefaultConfig(), nil
		}
		return model.Config{}, err
	}
	var config model.Config
	if err := json.Unmarshal(data, &config); err != nil {
		return model.Config{}, err
	}
	return config, nil
}
