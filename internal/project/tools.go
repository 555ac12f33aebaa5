package project

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/piwi3910/pcbcam/internal/importer"
	"github.com/piwi3910/pcbcam/internal/model"
)

// DefaultToolsPath returns the default file path for the tool library.
func DefaultToolsPath() string {
	return filepath.Join(DefaultConfigDir(), "tools.json")
}

// SaveToolLibrary saves the tool library to a JSON file.
func SaveToolLibrary(path string, tools []importer.ToolEntry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(tools, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadToolLibrary loads the tool library from a JSON file. A missing file
// returns an empty library.
func LoadToolLibrary(path string) ([]importer.ToolEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []importer.ToolEntry{}, nil
		}
		return nil, err
	}
	var tools []importer.ToolEntry
	if err := json.Unmarshal(data, &tools); err != nil {
		return nil, err
	}
	return tools, nil
}

// DefaultProfilesPath returns the default file path for custom post
// profiles.
func DefaultProfilesPath() string {
	return filepath.Join(DefaultConfigDir(), "profiles.json")
}

// SaveCustomProfiles saves custom post profiles to a JSON file.
func SaveCustomProfiles(path string, profiles []model.PostProfile) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(profiles, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadCustomProfiles loads custom post profiles from a JSON file. A
// missing file returns an empty slice.
func LoadCustomProfiles(path string) ([]model.PostProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.PostProfile{}, nil
		}
		return nil, err
	}
	var profiles []model.PostProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}
