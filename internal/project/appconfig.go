package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/piwi3910/TreePack/internal/model"
)

// DefaultConfigDir returns the default directory for run configuration and
// summaries. On all platforms this is ~/.treepack/
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".treepack")
}

// DefaultConfigPath returns the default path for the run config file.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// SaveConfig persists a RunConfig to the given path as JSON.
// It creates any missing parent directories automatically.
func SaveConfig(path string, config model.RunConfig) error {
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

// LoadConfig reads a RunConfig from the given path. Fields absent from the
// file keep their defaults. If the file does not exist, it returns
// DefaultRunConfig with no error.
func LoadConfig(path string) (model.RunConfig, error) {
	config := model.DefaultRunConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return model.RunConfig{}, err
	}
	if err := json.Unmarshal(data, &config); err != nil {
		return model.RunConfig{}, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := config.Validate(); err != nil {
		return model.RunConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return config, nil
}
