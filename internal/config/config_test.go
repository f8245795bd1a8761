package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "howlong.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad_EmptyPath(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr = %s, want :8080", cfg.Server.Addr)
	}
	if cfg.Session.Engagement.TimeLimit != 7*time.Minute {
		t.Errorf("time limit = %v, want 7m", cfg.Session.Engagement.TimeLimit)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults do not validate: %v", err)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
camera:
  device: 2
server:
  addr: "127.0.0.1:9000"
  share_page: "https://kiosk.example.com/report.html"
session:
  engagement:
    time_limit: 3m30s
    waiting_step: 5
  burst:
    hold: 600ms
upload:
  bucket: kiosk-shots
render_fps: 24
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"camera device", cfg.Camera.Device, 2},
		{"camera width kept", cfg.Camera.Width, 1280},
		{"addr", cfg.Server.Addr, "127.0.0.1:9000"},
		{"share page", cfg.Server.SharePage, "https://kiosk.example.com/report.html"},
		{"time limit", cfg.Session.Engagement.TimeLimit, 3*time.Minute + 30*time.Second},
		{"waiting step", cfg.Session.Engagement.WaitingStep, 5},
		{"max extra cycles kept", cfg.Session.Engagement.MaxExtraCycles, 5},
		{"hold", cfg.Session.Burst.Hold, 600 * time.Millisecond},
		{"fade in kept", cfg.Session.Burst.FadeIn, 140 * time.Millisecond},
		{"bucket", cfg.Upload.Bucket, "kiosk-shots"},
		{"render fps", cfg.RenderFPS, 24},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for a missing file")
		}
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfig(t, "camera: [1, 2")
		if _, err := Load(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeConfig(t, "render_fps: 0\nsession:\n  debounce:\n    on_frames: 0\n")
		_, err := Load(path)
		if err == nil {
			t.Fatal("expected validation error")
		}
		for _, want := range []string{"render_fps", "debounce"} {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("error %q does not mention %s", err, want)
			}
		}
	})
}
