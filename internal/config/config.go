// Package config loads the kiosk configuration from a YAML file layered
// over built-in defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ayusman/howlong/internal/capture"
	"github.com/ayusman/howlong/internal/detector"
	"github.com/ayusman/howlong/internal/session"
	"github.com/ayusman/howlong/internal/upload"
)

// Config is the full kiosk configuration.
type Config struct {
	Camera   capture.Config         `yaml:"camera"`
	Presence capture.PresenceConfig `yaml:"presence"`
	Detector detector.Config        `yaml:"detector"`
	Session  session.Config         `yaml:"session"`
	Server   ServerConfig           `yaml:"server"`
	Store    StoreConfig            `yaml:"store"`
	Upload   upload.Config          `yaml:"upload"`
	Plugins  PluginConfig           `yaml:"plugins"`

	// RenderFPS is the display rate of the session loop.
	RenderFPS int `yaml:"render_fps"`
	// ShotsDir is where composite shots are kept locally.
	ShotsDir string `yaml:"shots_dir"`
	// RestartAfter starts a fresh session this long after navigation. Zero disables it.
	RestartAfter time.Duration `yaml:"restart_after"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`
	StaticDir string `yaml:"static_dir"`
	SharePage string `yaml:"share_page"`
}

// PluginConfig configures the event hook plugins.
type PluginConfig struct {
	Dir       string `yaml:"dir"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// StoreConfig configures the report database.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DataDir returns the directory holding the database and shots by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".howlong"
	}
	return filepath.Join(home, ".howlong")
}

// Default returns the built-in configuration.
func Default() Config {
	dir := DataDir()
	return Config{
		Camera:   capture.DefaultConfig(),
		Presence: capture.DefaultPresenceConfig(),
		Detector: detector.DefaultConfig(),
		Session:  session.DefaultConfig(),
		Server: ServerConfig{
			Addr:      ":8080",
			SharePage: "report.html",
		},
		Store:        StoreConfig{Path: filepath.Join(dir, "howlong.db")},
		Upload:       upload.DefaultConfig(),
		Plugins:      PluginConfig{Dir: filepath.Join(dir, "plugins"), TimeoutMs: 5000},
		RenderFPS:    30,
		ShotsDir:     filepath.Join(dir, "shots"),
		RestartAfter: 30 * time.Second,
	}
}

// Load reads the YAML file at path over Default. An empty path returns the
// defaults; a missing file is an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values that would stall or break the session loop.
func (c Config) Validate() error {
	var errs []error
	if c.RenderFPS <= 0 {
		errs = append(errs, errors.New("render_fps must be positive"))
	}
	if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
		errs = append(errs, errors.New("camera width and height must be positive"))
	}
	b := c.Session.Burst
	if b.Width <= 0 || b.Height <= 0 {
		errs = append(errs, errors.New("session.burst width and height must be positive"))
	}
	if b.EntitiesPerBurst <= 0 || b.MaxEntities <= 0 {
		errs = append(errs, errors.New("session.burst entity counts must be positive"))
	}
	if c.Session.Debounce.OnFrames <= 0 || c.Session.Debounce.OffFrames <= 0 {
		errs = append(errs, errors.New("session.debounce frame counts must be positive"))
	}
	if c.Plugins.TimeoutMs <= 0 {
		errs = append(errs, errors.New("plugins.timeout_ms must be positive"))
	}
	if c.Session.Engagement.TimeLimit <= 0 {
		errs = append(errs, errors.New("session.engagement.time_limit must be positive"))
	}
	return errors.Join(errs...)
}
