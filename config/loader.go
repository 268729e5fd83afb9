package config

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

// Loader configuration loader (supporting multiple data sources)
type Loader struct {
	mu           sync.RWMutex
	sources      []ConfigSource
	mergedConfig map[string]any
	v            *viper.Viper
	loadedFiles  []string
}

// NewLoader creates a configuration loader
func NewLoader() *Loader {
	return &Loader{
		mergedConfig: make(map[string]any),
		v:            viper.New(),
	}
}

// AddSource add configuration data source
func (l *Loader) AddSource(source ConfigSource) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sources = append(l.sources, source)
}

// Load loads and merges all data sources, low priority first
func (l *Loader) Load() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	sort.SliceStable(l.sources, func(i, j int) bool {
		return l.sources[i].Priority() < l.sources[j].Priority()
	})

	merged := make(map[string]any)
	var files []string
	for _, source := range l.sources {
		data, err := source.Load()
		if err != nil {
			return fmt.Errorf("load source %s: %w", source.Name(), err)
		}
		if fs, ok := source.(*FileSource); ok {
			files = append(files, fs.path)
		}
		for key, value := range data {
			merged[strings.ToLower(key)] = value
		}
	}

	v := viper.New()
	for key, value := range unflattenMap(merged) {
		v.Set(key, value)
	}

	l.mergedConfig = merged
	l.loadedFiles = files
	l.v = v
	return nil
}

// unflattenMap {"store.root_dir": "data"} -> {"store": {"root_dir": "data"}}
func unflattenMap(flat map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range flat {
		parts := strings.Split(key, ".")
		current := result
		for _, p := range parts[:len(parts)-1] {
			next, ok := current[p].(map[string]any)
			if !ok {
				next = make(map[string]any)
				current[p] = next
			}
			current = next
		}
		current[parts[len(parts)-1]] = value
	}
	return result
}

// Unmarshal parses the whole configuration into a struct
func (l *Loader) Unmarshal(v any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Unmarshal(v)
}

// UnmarshalKey parses one section into a struct
// Missing sections leave v untouched so callers can pre-fill defaults
func (l *Loader) UnmarshalKey(key string, v any) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.v.IsSet(key) {
		return nil
	}
	if err := l.v.UnmarshalKey(key, v); err != nil {
		return fmt.Errorf("unmarshal config section %s: %w", key, err)
	}
	return nil
}

// Get configuration value
func (l *Loader) Get(key string) any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.Get(key)
}

// GetString Get string configuration
func (l *Loader) GetString(key string) string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetString(key)
}

// GetInt Get integer configuration
func (l *Loader) GetInt(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetInt(key)
}

// GetBool Get boolean configuration
func (l *Loader) GetBool(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.GetBool(key)
}

// IsSet checks if the configuration item exists
func (l *Loader) IsSet(key string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.IsSet(key)
}

// AllSettings returns the merged nested settings
func (l *Loader) AllSettings() map[string]any {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.v.AllSettings()
}

// LoadedFiles returns the configuration files that were read
func (l *Loader) LoadedFiles() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.loadedFiles...)
}

// Reload reload configuration
func (l *Loader) Reload() error {
	return l.Load()
}
