package config

import (
	"os"
	"strings"
)

// EnvSource environment variable data source
// TICKERDESK_STORE__ROOT_DIR -> store.root_dir ("__" separates levels)
type EnvSource struct {
	prefix   string
	priority int
	bindings map[string]string // explicit key -> env var
}

// NewEnvSource creates an environment variable data source
func NewEnvSource(prefix string, priority int) *EnvSource {
	return &EnvSource{
		prefix:   prefix,
		priority: priority,
		bindings: make(map[string]string),
	}
}

// AddBinding maps a config key to an explicit environment variable
// AddBinding("server.port", "PORT")
func (s *EnvSource) AddBinding(key, envKey string) {
	s.bindings[key] = envKey
}

// Name data source name
func (s *EnvSource) Name() string {
	return "env:" + s.prefix
}

// Priority priority
func (s *EnvSource) Priority() int {
	return s.priority
}

// Load reads bound variables and every variable carrying the prefix
func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	if s.prefix != "" {
		prefix := s.prefix + "_"
		for _, env := range os.Environ() {
			name, value, ok := strings.Cut(env, "=")
			if !ok || !strings.HasPrefix(name, prefix) {
				continue
			}
			key := strings.ToLower(strings.TrimPrefix(name, prefix))
			result[strings.ReplaceAll(key, "__", ".")] = value
		}
	}

	for key, envKey := range s.bindings {
		if value, ok := os.LookupEnv(envKey); ok && value != "" {
			result[key] = value
		}
	}
	return result, nil
}
