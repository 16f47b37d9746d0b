package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Lookup errors.
var (
	ErrPluginNotFound    = errors.New("plugin not found")
	ErrNoPluginForAction = errors.New("no plugin handles action")
)

// ManifestFile is the file name every plugin directory must contain.
const ManifestFile = "plugin.json"

// Manager discovers plugins under a directory and resolves actions to them.
type Manager struct {
	pluginDir string

	mu      sync.RWMutex
	byName  map[string]*Plugin
	byAct   map[string]*Plugin
	skipped []string
}

// NewManager creates a Manager for pluginDir. Nothing is loaded until
// Discover is called.
func NewManager(pluginDir string) *Manager {
	return &Manager{
		pluginDir: pluginDir,
		byName:    make(map[string]*Plugin),
		byAct:     make(map[string]*Plugin),
	}
}

// Discover replaces the loaded set with the plugins found one level below
// the plugin directory. A missing directory yields an empty set.
// Directories without a usable manifest are skipped and reported by
// Skipped. When two plugins list the same action, the one whose name sorts
// first handles it.
func (m *Manager) Discover() error {
	byName := make(map[string]*Plugin)
	var skipped []string

	entries, err := os.ReadDir(m.pluginDir)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("read plugin dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		p, err := load(filepath.Join(m.pluginDir, entry.Name()))
		if err != nil {
			skipped = append(skipped, fmt.Sprintf("%s: %v", entry.Name(), err))
			continue
		}
		byName[p.Manifest.Name] = p
	}

	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)

	byAct := make(map[string]*Plugin)
	for _, name := range names {
		for _, action := range byName[name].Manifest.Actions {
			if _, taken := byAct[action]; !taken {
				byAct[action] = byName[name]
			}
		}
	}

	m.mu.Lock()
	m.byName, m.byAct, m.skipped = byName, byAct, skipped
	m.mu.Unlock()
	return nil
}

func load(dir string) (*Plugin, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}
	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if manifest.Name == "" {
		return nil, errors.New("manifest has no name")
	}
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

	p, ok := m.byName[name]
	if !ok {
		return nil, ErrPluginNotFound
	}
	return p, nil
}

// ForAction returns the plugin that handles action.
func (m *Manager) ForAction(action string) (*Plugin, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.byAct[action]
	if !ok {
		return nil, ErrNoPluginForAction
	}
	return p, nil
}

// Actions returns every action some plugin handles, sorted.
func (m *Manager) Actions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	actions := make([]string, 0, len(m.byAct))
	for a := range m.byAct {
		actions = append(actions, a)
	}
	sort.Strings(actions)
	return actions
}

// List returns all discovered plugins sorted by name.
func (m *Manager) List() []*Plugin {
	m.mu.RLock()
	defer m.mu.RUnlock()

	plugins := make([]*Plugin, 0, len(m.byName))
	for _, p := range m.byName {
		plugins = append(plugins, p)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Manifest.Name < plugins[j].Manifest.Name
	})
	return plugins
}

// Skipped describes the directories the last Discover ignored.
func (m *Manager) Skipped() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.skipped...)
}

// PluginDir returns the plugin directory path.
func (m *Manager) PluginDir() string {
	return m.pluginDir
}
