package config

import (
	"github.com/spf13/pflag"
)

// FlagSource command line flag data source
// Only flags explicitly set by the user override lower layers
type FlagSource struct {
	flags    *pflag.FlagSet
	bindings map[string]string // flag name -> config key
	priority int
}

// NewFlagSource creates a flag data source
// NewFlagSource(cmd.Flags(), map[string]string{"port": "server.port"}, 100)
func NewFlagSource(flags *pflag.FlagSet, bindings map[string]string, priority int) *FlagSource {
	return &FlagSource{flags: flags, bindings: bindings, priority: priority}
}

// Name data source name
func (s *FlagSource) Name() string {
	return "flags"
}

// Priority priority
func (s *FlagSource) Priority() int {
	return s.priority
}

// Load returns values of changed flags under their config keys
func (s *FlagSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	if s.flags == nil {
		return result, nil
	}
	for name, key := range s.bindings {
		f := s.flags.Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		result[key] = f.Value.String()
	}
	return result, nil
}
