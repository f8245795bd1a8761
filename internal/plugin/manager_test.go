package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// writePlugin creates dir/name/plugin.json with the given manifest.
func writePlugin(t *testing.T, dir string, m Manifest) string {
	t.Helper()
	pluginDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writePlugin(t, tmpDir, Manifest{
		Name:       "lights",
		Version:    "1.0.0",
		Executable: "lights.sh",
		Events:     []string{EventBurstStarted, "strobe", EventSessionFinished, EventBurstStarted},
	})
	writePlugin(t, tmpDir, Manifest{Name: "printer", Executable: "print", Events: []string{EventSessionFinished}})

	// Skipped: no events, unknown events only, bad JSON, stray file
	writePlugin(t, tmpDir, Manifest{Name: "silent", Executable: "silent"})
	writePlugin(t, tmpDir, Manifest{Name: "keys", Executable: "keys", Events: []string{"key_press"}})
	os.MkdirAll(filepath.Join(tmpDir, "broken"), 0755)
	os.WriteFile(filepath.Join(tmpDir, "broken", "plugin.json"), []byte("{not json"), 0644)
	os.WriteFile(filepath.Join(tmpDir, "README"), []byte("hooks"), 0644)

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	if n := len(manager.List()); n != 2 {
		t.Fatalf("expected 2 plugins, got %d", n)
	}

	p, err := manager.Get("lights")
	if err != nil {
		t.Fatalf("Get() failed: %v", err)
	}
	if p.Path != pluginDir || p.Executable != filepath.Join(pluginDir, "lights.sh") {
		t.Errorf("plugin paths = %s, %s", p.Path, p.Executable)
	}
	if diff := cmp.Diff([]string{EventBurstStarted, EventSessionFinished}, p.Manifest.Events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	for _, name := range []string{"silent", "keys", "broken"} {
		if _, err := manager.Get(name); !errors.Is(err, ErrPluginNotFound) {
			t.Errorf("Get(%s) error = %v, want ErrPluginNotFound", name, err)
		}
	}
}

func TestManager_Subscribers(t *testing.T) {
	tmpDir := t.TempDir()
	writePlugin(t, tmpDir, Manifest{Name: "printer", Executable: "print", Events: []string{EventSessionFinished}})
	writePlugin(t, tmpDir, Manifest{Name: "lights", Executable: "lights", Events: []string{EventBurstStarted, EventSessionFinished}})

	manager := NewManager(tmpDir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	tests := []struct {
		event string
		want  []string
	}{
		{EventSessionFinished, []string{"lights", "printer"}},
		{EventBurstStarted, []string{"lights"}},
		{EventGesture, nil},
	}
	for _, tt := range tests {
		var got []string
		for _, p := range manager.Subscribers(tt.event) {
			got = append(got, p.Manifest.Name)
		}
		if len(got) != len(tt.want) {
			t.Errorf("Subscribers(%s) = %v, want %v", tt.event, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Subscribers(%s) = %v, want %v", tt.event, got, tt.want)
				break
			}
		}
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() on a missing dir error = %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
	if manager.PluginDir() == "" {
		t.Error("PluginDir() should return the configured directory")
	}
}
