package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveConfig writes configuration values to the global or local file.
type SaveConfig struct {
	// GlobalConfigDir is the directory under ~/.config/ for global config.
	GlobalConfigDir string

	// GlobalConfigFile defaults to "config.yaml".
	GlobalConfigFile string

	// LocalConfigName is the local config filename.
	LocalConfigName string

	// ValidGlobalKeys lists keys that can be set in global config.
	ValidGlobalKeys []string

	// ValidLocalKeys lists keys that can be set in local config.
	ValidLocalKeys []string
}

func (c SaveConfig) globalPath() (string, error) {
	if c.GlobalConfigDir == "" {
		return "", fmt.Errorf("global config directory not configured")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	file := c.GlobalConfigFile
	if file == "" {
		file = "config.yaml"
	}
	return filepath.Join(home, ".config", c.GlobalConfigDir, file), nil
}

// SaveGlobal saves a key-value pair to the global config file.
func (c SaveConfig) SaveGlobal(key, value string) error {
	if len(c.ValidGlobalKeys) > 0 && !slices.Contains(c.ValidGlobalKeys, key) {
		return fmt.Errorf("unknown global config key: %s\n\nValid keys: %s",
			key, strings.Join(c.ValidGlobalKeys, ", "))
	}

	path, err := c.globalPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	// The global file may hold API keys.
	return updateFile(path, 0o600, func(m map[string]any) {
		m[key] = parseValue(value)
	})
}

// SaveLocal saves a key-value pair to the local config file in dir.
func (c SaveConfig) SaveLocal(dir, key, value string) error {
	if dir == "" {
		return fmt.Errorf("local config directory not set")
	}
	if c.LocalConfigName == "" {
		return fmt.Errorf("local config name not configured")
	}
	if len(c.ValidLocalKeys) > 0 && !slices.Contains(c.ValidLocalKeys, key) {
		return fmt.Errorf("unknown local config key: %s\n\nValid keys: %s",
			key, strings.Join(c.ValidLocalKeys, ", "))
	}

	path := filepath.Join(dir, c.LocalConfigName)
	return updateFile(path, 0o644, func(m map[string]any) {
		m[key] = parseValue(value)
	})
}

// DeleteGlobalKey removes a key from the global config. A missing file is
// not an error.
func (c SaveConfig) DeleteGlobalKey(key string) error {
	path, err := c.globalPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return updateFile(path, 0o600, func(m map[string]any) {
		delete(m, key)
	})
}

// updateFile loads path as a YAML map, applies fn, and writes it back. A
// malformed existing file is an error rather than silently replaced.
func updateFile(path string, perm os.FileMode, fn func(map[string]any)) error {
	existing := make(map[string]any)
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if existing == nil {
			existing = make(map[string]any)
		}
	}

	fn(existing)

	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, perm)
}

// parseValue converts string values to YAML booleans where they look like
// one.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
