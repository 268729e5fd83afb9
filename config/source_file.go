package config

import (
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// FileSource file data source (yaml, json, toml: anything viper reads)
type FileSource struct {
	path     string
	priority int
}

// NewFileSource creates a file data source
func NewFileSource(path string, priority int) *FileSource {
	return &FileSource{path: path, priority: priority}
}

// Name data source name
func (s *FileSource) Name() string {
	return "file:" + s.path
}

// Priority priority
func (s *FileSource) Priority() int {
	return s.priority
}

// Load reads the file; a missing file yields an empty map
func (s *FileSource) Load() (map[string]any, error) {
	if _, err := os.Stat(s.path); err != nil {
		if os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("stat config file %s: %w", s.path, err)
	}

	v := viper.New()
	v.SetConfigFile(s.path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", s.path, err)
	}
	return flattenMap("", v.AllSettings()), nil
}

// flattenMap flattens nested maps into dotted keys
// {"store": {"root_dir": "data"}} -> {"store.root_dir": "data"}
func flattenMap(prefix string, data map[string]any) map[string]any {
	result := make(map[string]any)
	for key, value := range data {
		fullKey := key
		if prefix != "" {
			fullKey = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok {
			for k, v := range flattenMap(fullKey, nested) {
				result[k] = v
			}
			continue
		}
		result[fullKey] = value
	}
	return result
}
