package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"dashgrid/internal/logging"
)

func writeConfig(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Catalog != want.Catalog || cfg.Canvas != want.Canvas || cfg.Server != want.Server {
		t.Errorf("got %+v, want defaults %+v", cfg, want)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, `
[catalog]
mode = "local"
timeout = "3s"

[storage]
path = "/tmp/dash.db"

[canvas]
width = 1440

[mirror]
schedule = "@every 15m"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.Mode != ModeLocal || cfg.Catalog.Timeout != 3*time.Second {
		t.Errorf("catalog = %+v", cfg.Catalog)
	}
	if cfg.Storage.Path != "/tmp/dash.db" || cfg.Canvas.Width != 1440 {
		t.Errorf("storage/canvas = %+v %+v", cfg.Storage, cfg.Canvas)
	}
	if cfg.Mirror.Schedule != "@every 15m" {
		t.Errorf("mirror = %+v", cfg.Mirror)
	}
	// Untouched sections keep their defaults.
	if cfg.Server.Addr != ":8080" {
		t.Errorf("server.addr = %q", cfg.Server.Addr)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DASHGRID_CATALOG_URL", "http://localhost:9000/api/v1")
	t.Setenv("DASHGRID_CANVAS_WIDTH", "960")
	t.Setenv("DASHGRID_LOG_LEVEL", "debug")
	t.Setenv("DASHGRID_CATALOG_TOKEN", "s3cret")

	cfg, err := Load(filepath.Join(t.TempDir(), "config.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Catalog.BaseURL != "http://localhost:9000/api/v1" || cfg.Canvas.Width != 960 || cfg.Log.Level != "debug" || cfg.Catalog.Token != "s3cret" {
		t.Errorf("env not applied: %+v", cfg)
	}

	t.Setenv("DASHGRID_CANVAS_WIDTH", "wide")
	if _, err := Load(filepath.Join(t.TempDir(), "config.toml")); err == nil {
		t.Error("expected error for non-numeric canvas width")
	}
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name, body string
	}{
		{"syntax", `[catalog`},
		{"mode", "[catalog]\nmode = \"carrier-pigeon\""},
		{"width", "[canvas]\nwidth = 0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".toml")
			writeConfig(t, path, tt.body)
			if _, err := Load(path); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	writeConfig(t, path, "[canvas]\nwidth = 800\n")

	got := make(chan Config, 4)
	w, err := Watch(context.Background(), path, logging.Discard(), func(c Config) { got <- c })
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	defer w.Close()

	writeConfig(t, path, "[canvas]\nwidth = 1600\n")

	select {
	case cfg := <-got:
		if cfg.Canvas.Width != 1600 {
			t.Errorf("reloaded width = %v, want 1600", cfg.Canvas.Width)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no reload within 5s")
	}
}
