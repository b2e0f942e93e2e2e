// Package config loads dashgrid settings from a TOML file, applies
// DASHGRID_* environment overrides and watches the file for changes.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Catalog modes.
const (
	ModeRemote = "remote" // talk to the REST catalog at Catalog.BaseURL
	ModeLocal  = "local"  // use the SQLite catalog at Storage.Path
)

type Config struct {
	Catalog CatalogConfig `toml:"catalog"`
	Storage StorageConfig `toml:"storage"`
	Canvas  CanvasConfig  `toml:"canvas"`
	Server  ServerConfig  `toml:"server"`
	Mirror  MirrorConfig  `toml:"mirror"`
	Log     LogConfig     `toml:"log"`
}

type CatalogConfig struct {
	Mode    string        `toml:"mode"`
	BaseURL string        `toml:"base_url"`
	Timeout time.Duration `toml:"timeout"`
	// Token, when set, is sent as a bearer token to the remote catalog.
	Token string `toml:"token"`
}

type StorageConfig struct {
	Path string `toml:"path"`
}

type CanvasConfig struct {
	// Width used until the front-end reports the real canvas size, and by
	// headless hosts (MCP) that never get one.
	Width float64 `toml:"width"`
}

type ServerConfig struct {
	Addr         string        `toml:"addr"`
	ReadTimeout  time.Duration `toml:"read_timeout"`
	WriteTimeout time.Duration `toml:"write_timeout"`
}

type MirrorConfig struct {
	// Schedule is a cron spec; empty disables the scheduled mirror.
	Schedule string `toml:"schedule"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Catalog: CatalogConfig{
			Mode:    ModeRemote,
			BaseURL: "https://dashboard.test.qodeq.net/api/v1",
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{Path: filepath.Join(dataDir(), "dashgrid.db")},
		Canvas:  CanvasConfig{Width: 1200},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Log: LogConfig{Level: "info"},
	}
}

// DefaultPath returns ~/.config/dashgrid/config.toml (or the platform
// equivalent).
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "dashgrid", "config.toml")
}

func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".dashgrid")
}

// Load reads the file at path over the defaults and applies environment
// overrides. A missing file is not an error. An empty path means
// DefaultPath().
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultPath()
	}
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Default(), fmt.Errorf("parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate rejects settings no component can run with.
func (c Config) Validate() error {
	switch c.Catalog.Mode {
	case ModeRemote:
		if strings.TrimSpace(c.Catalog.BaseURL) == "" {
			return errors.New("config: catalog.base_url is required in remote mode")
		}
	case ModeLocal:
		if strings.TrimSpace(c.Storage.Path) == "" {
			return errors.New("config: storage.path is required in local mode")
		}
	default:
		return fmt.Errorf("config: unknown catalog.mode %q", c.Catalog.Mode)
	}
	if c.Canvas.Width <= 0 {
		return fmt.Errorf("config: canvas.width must be positive, got %v", c.Canvas.Width)
	}
	return nil
}

// ── Environment ─────────────────────────────────────────

const envPrefix = "DASHGRID_"

func applyEnv(c *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(envPrefix + name); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	str("CATALOG_MODE", &c.Catalog.Mode)
	str("CATALOG_URL", &c.Catalog.BaseURL)
	str("CATALOG_TOKEN", &c.Catalog.Token)
	str("STORAGE_PATH", &c.Storage.Path)
	str("SERVER_ADDR", &c.Server.Addr)
	str("MIRROR_SCHEDULE", &c.Mirror.Schedule)
	str("LOG_LEVEL", &c.Log.Level)

	if v, ok := os.LookupEnv(envPrefix + "CANVAS_WIDTH"); ok {
		w, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return fmt.Errorf("config: %sCANVAS_WIDTH: %w", envPrefix, err)
		}
		c.Canvas.Width = w
	}
	if v, ok := os.LookupEnv(envPrefix + "CATALOG_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %sCATALOG_TIMEOUT: %w", envPrefix, err)
		}
		c.Catalog.Timeout = d
	}
	return nil
}
