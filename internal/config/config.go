package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"github.com/muurk/otastub/internal/logging"
)

const (
	appName    = "otastub"
	configFile = "config.yaml"

	// WebSocketPath is the path the session responder is mounted on.
	WebSocketPath = "/ws"

	DefaultPort     = 8000
	DefaultScene    = "party"
	DefaultLogLevel = "info"
	DefaultMDNSName = "otastub"

	// Disabled is the default for brightness and speed: leave the device's value
	// alone. Any negative brightness or speed below 1 means the same.
	Disabled = -1

	MaxBrightness = 8
	MinSpeed      = 1
	MaxSpeed      = 10
)

// ErrMissingHost is returned by Validate when no advertised WebSocket host is set.
var ErrMissingHost = errors.New("advertised websocket host is required (--ws-host)")

// Config is the server configuration. It is built once at startup and must not
// be modified after it has been handed to the server.
type Config struct {
	Port       int    `yaml:"port" env:"OTASTUB_PORT"`
	WSHost     string `yaml:"ws_host" env:"OTASTUB_WS_HOST"`
	Scene      string `yaml:"scene" env:"OTASTUB_SCENE"`
	Brightness int    `yaml:"brightness" env:"OTASTUB_BRIGHTNESS"` // 0-8, negative disabled
	Speed      int    `yaml:"speed" env:"OTASTUB_SPEED"`           // 1-10, below 1 disabled
	LogBinary  bool   `yaml:"log_binary" env:"OTASTUB_LOG_BINARY"`
	DoGet      bool   `yaml:"do_get" env:"OTASTUB_DO_GET"`
	LogLevel   string `yaml:"log_level" env:"OTASTUB_LOG_LEVEL"`
	MDNS       bool   `yaml:"mdns" env:"OTASTUB_MDNS"`
	MDNSName   string `yaml:"mdns_name" env:"OTASTUB_MDNS_NAME"`
}

// Default returns a configuration with every optional field at its default.
// WSHost is left empty; callers must supply it.
func Default() *Config {
	return &Config{
		Port:       DefaultPort,
		Scene:      DefaultScene,
		Brightness: Disabled,
		Speed:      Disabled,
		LogLevel:   DefaultLogLevel,
		MDNSName:   DefaultMDNSName,
	}
}

// Load builds a configuration from defaults, the YAML file at path and the
// environment, in that order. An empty path falls back to the per-user config
// file, which is skipped silently when absent. Flags are layered on top by the
// caller, which then calls Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		defaultPath, err := GetConfigPath()
		if err == nil {
			if _, statErr := os.Stat(defaultPath); statErr == nil {
				path = defaultPath
			}
		}
	}

	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFile overlays the keys present in a YAML file onto cfg.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overlays OTASTUB_* environment variables onto cfg.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

func (c *Config) applyEnvFrom(environ map[string]string) error {
	if err := env.ParseWithOptions(c, env.Options{Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate reports the first configuration error found.
func (c *Config) Validate() error {
	if c.WSHost == "" {
		return ErrMissingHost
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d (expected 1-65535)", c.Port)
	}
	if c.Scene == "" {
		return fmt.Errorf("scene must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if c.MDNS && c.MDNSName == "" {
		return fmt.Errorf("mdns instance name must not be empty when mdns is enabled")
	}
	return nil
}

// Warnings lists settings that are accepted but likely not what the device
// expects. Brightness and speed above the firmware range are sent unchanged.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.Brightness > MaxBrightness {
		warnings = append(warnings, fmt.Sprintf("brightness %d is above the firmware maximum of %d", c.Brightness, MaxBrightness))
	}
	if c.Speed > MaxSpeed {
		warnings = append(warnings, fmt.Sprintf("speed %d is above the firmware maximum of %d", c.Speed, MaxSpeed))
	}
	return warnings
}

// HasBrightness reports whether brightness should be sent to the device. Any
// negative value leaves it out.
func (c *Config) HasBrightness() bool {
	return c.Brightness >= 0
}

// HasSpeed reports whether speed should be sent to the device. Values below 1
// leave it out.
func (c *Config) HasSpeed() bool {
	return c.Speed >= MinSpeed
}

// WebSocketURL is the URL advertised in the OTA response.
func (c *Config) WebSocketURL() string {
	return "ws://" + net.JoinHostPort(c.WSHost, strconv.Itoa(c.Port)) + WebSocketPath
}

// ListenAddr is the address the HTTP server binds to (all interfaces).
func (c *Config) ListenAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// GetConfigDir returns the OS-appropriate configuration directory:
//   - Linux: $XDG_CONFIG_HOME/otastub or $HOME/.config/otastub
//   - macOS: $HOME/.config/otastub
//   - Windows: %LOCALAPPDATA%\otastub
func GetConfigDir() (string, error) {
	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			return "", fmt.Errorf("cannot determine config directory (LOCALAPPDATA not set)")
		}
		return filepath.Join(localAppData, appName), nil

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

// GetConfigPath returns the full path to the per-user configuration file.
func GetConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFile), nil
}
