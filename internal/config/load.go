package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/chazu/tessera/pkg/oemm"
	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
// A nil Flags skips the override step.
func Load(f *Flags) (*Config, error) {
	cfg := Default()

	configPath := ""
	if f != nil {
		configPath = f.ConfigPath
	}
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	if f != nil {
		f.apply(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects settings the mesher or the octree cannot run with.
func (c *Config) Validate() error {
	if c.Mesher.EdgeLength <= 0 {
		return fmt.Errorf("config: mesher.edge_length must be positive, got %g", c.Mesher.EdgeLength)
	}
	if c.Mesher.MaxBoundaryIterations <= 0 {
		return fmt.Errorf("config: mesher.max_boundary_iterations must be positive, got %d", c.Mesher.MaxBoundaryIterations)
	}
	if c.OEMM.MaxDepth < 0 || c.OEMM.MaxDepth > oemm.MaxDepthLimit {
		return fmt.Errorf("config: oemm.max_depth must be in [0,%d], got %d", oemm.MaxDepthLimit, c.OEMM.MaxDepth)
	}
	if c.OEMM.LeafThreshold < 1 {
		return fmt.Errorf("config: oemm.leaf_threshold must be positive, got %d", c.OEMM.LeafThreshold)
	}
	if c.Decimate.Ratio <= 0 || c.Decimate.Ratio > 1 {
		return fmt.Errorf("config: decimate.ratio must be in (0,1], got %g", c.Decimate.Ratio)
	}
	return nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./tessera.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Tessera")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Tessera")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "tessera")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "tessera")
	}
}

// loadFromFile loads config from a YAML file, merging with existing values.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
