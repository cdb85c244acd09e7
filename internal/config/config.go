package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "feathertrace"
	configFile = "config.yaml"

	// CurrentVersion is the config file format version.
	CurrentVersion = 1
)

// Config is the user configuration.
type Config struct {
	Version  int           `yaml:"version"`
	Board    string        `yaml:"board,omitempty"`
	ELFPath  string        `yaml:"elf_path,omitempty"`
	Bossac   BossacConfig  `yaml:"bossac"`
	OpenOCD  OpenOCDConfig `yaml:"openocd"`
	Timeout  time.Duration `yaml:"timeout"`
	Demangle string        `yaml:"demangle,omitempty"`
	Format   string        `yaml:"format,omitempty"`
	LogLevel string        `yaml:"log_level,omitempty"`
}

// BossacConfig configures the bossac reader.
type BossacConfig struct {
	// Path to bossac; empty searches PATH
	Path string `yaml:"path,omitempty"`
}

// OpenOCDConfig configures the GDB/OpenOCD reader.
type OpenOCDConfig struct {
	GDBPath string `yaml:"gdb_path,omitempty"`
	Host    string `yaml:"host,omitempty"`
	Port    int    `yaml:"port,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,
		Board:   "feather_m0",
		OpenOCD: OpenOCDConfig{
			GDBPath: "arm-none-eabi-gdb",
			Host:    "localhost",
			Port:    3333,
		},
		Timeout:  2 * time.Minute,
		Demangle: "full",
		Format:   "text",
	}
}

// GetConfigDir returns the OS-appropriate configuration directory.
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		if localAppData := os.Getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, appName), nil
		}
		userProfile := os.Getenv("USERPROFILE")
		if userProfile == "" {
			return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
		}
		return filepath.Join(userProfile, "AppData", "Local", appName), nil

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil

	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		return filepath.Join(homeDir, ".config", appName), nil
	}
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}

// Load reads the configuration at path. A missing file yields Default().
// Fields absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDefault reads the configuration from the default location.
func LoadDefault() (*Config, error) {
	path, err := GetConfigPath()
	if err != nil {
		return nil, fmt.Errorf("failed to get config path: %w", err)
	}
	return Load(path)
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative, got %s", c.Timeout)
	}
	if c.OpenOCD.Port < 0 || c.OpenOCD.Port > 65535 {
		return fmt.Errorf("openocd port out of range: %d", c.OpenOCD.Port)
	}
	switch c.Format {
	case "", "text", "yaml", "json":
	default:
		return fmt.Errorf("unknown output format %q (valid: text, yaml, json)", c.Format)
	}
	return nil
}

// Save writes the configuration to path, creating its directory. The write
// goes through a temporary file and a rename.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	header := []byte("# feathertrace configuration\n" +
		"# Command-line flags override every value here.\n" +
		"#\n" +
		"# Location: " + path + "\n\n")
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}
	return nil
}
