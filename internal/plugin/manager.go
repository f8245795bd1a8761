package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// ManifestFile is the manifest name looked up in every plugin directory.
const ManifestFile = "plugin.json"

// ErrPluginNotFound is returned when a requested plugin cannot be found.
var ErrPluginNotFound = errors.New("plugin not found")

var knownEvents = []string{EventGesture, EventBurstStarted, EventBurstCompleted, EventSessionFinished}

// Manager discovers plugins: one subdirectory per plugin holding a
// plugin.json manifest next to the executable.
type Manager struct {
	pluginDir string

	mu      sync.RWMutex
	plugins map[string]*Plugin
	byEvent map[string][]*Plugin
}

// NewManager creates a Manager reading plugins from pluginDir.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		plugins:   make(map[string]*Plugin),
		byEvent:   make(map[string][]*Plugin),
	}
}

// Discover replaces the known plugins with the ones found in the plugin
// directory. A missing directory means no plugins. Manifests that cannot be
// read, name no executable or subscribe to no known event are skipped.
func (m *Manager) Discover() error {
	plugins := make(map[string]*Plugin)

	entries, err := os.ReadDir(m.pluginDir)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read plugin dir: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(m.pluginDir, entry.Name())
		p, err := loadPlugin(dir)
		if err != nil {
			if !os.IsNotExist(err) {
				log.Printf("Skipping plugin %s: %v", entry.Name(), err)
			}
			continue
		}
		plugins[p.Manifest.Name] = p
	}

	byEvent := make(map[string][]*Plugin)
	for _, p := range plugins {
		for _, e := range p.Manifest.Events {
			byEvent[e] = append(byEvent[e], p)
		}
	}
	for _, subs := range byEvent {
		slices.SortFunc(subs, func(a, b *Plugin) int {
			if a.Manifest.Name < b.Manifest.Name {
				return -1
			}
			if a.Manifest.Name > b.Manifest.Name {
				return 1
			}
			return 0
		})
	}

	m.mu.Lock()
	m.plugins = plugins
	m.byEvent = byEvent
	m.mu.Unlock()
	return nil
}

func loadPlugin(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" || manifest.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	events := manifest.Events[:0:0]
	for _, e := range manifest.Events {
		if slices.Contains(knownEvents, e) && !slices.Contains(events, e) {
			events = append(events, e)
		}
	}
	if len(events) == 0 {
		return nil, errors.New("manifest subscribes to no known event")
	}
	manifest.Events = events

	return &Plugin{
		Manifest:   manifest,
		Path:       dir,
		Executable: filepath.Join(dir, manifest.Executable),
	}, nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plugins[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// List returns all discovered plugins.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	return out
}

// Subscribers returns the plugins handling event, ordered by name.
func (m *Manager) Subscribers(event string) []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.byEvent[event]
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
