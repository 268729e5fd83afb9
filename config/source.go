package config

// ConfigSource configuration data source
// Files, environment variables and command-line flags all implement this interface
type ConfigSource interface {
	// Name data source name (for logs and debugging)
	Name() string

	// Priority higher value wins on merge
	// - defaults: 1
	// - config.yaml: 10
	// - <env>.yaml: 20
	// - environment variables: 50
	// - command line flags: 100
	Priority() int

	// Load returns a flat map keyed by dotted paths, e.g. "store.root_dir"
	Load() (map[string]any, error)
}

// MapSource static in-memory source (defaults, tests)
type MapSource struct {
	name     string
	priority int
	values   map[string]any
}

// NewMapSource creates a static source; nested maps are flattened
func NewMapSource(name string, priority int, values map[string]any) *MapSource {
	return &MapSource{name: name, priority: priority, values: flattenMap("", values)}
}

// Name data source name
func (s *MapSource) Name() string {
	return "map:" + s.name
}

// Priority priority
func (s *MapSource) Priority() int {
	return s.priority
}

// Load returns a copy of the values
func (s *MapSource) Load() (map[string]any, error) {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out, nil
}
