package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
)

// EnvPrefix prefix of environment overrides
const EnvPrefix = "TICKERDESK"

// LoaderBuilder configuration loader builder
type LoaderBuilder struct {
	configPath   string
	envPrefix    string
	defaults     map[string]any
	flags        *pflag.FlagSet
	flagBindings map[string]string
}

// NewLoaderBuilder creates a loader builder
func NewLoaderBuilder() *LoaderBuilder {
	return &LoaderBuilder{envPrefix: EnvPrefix}
}

// WithConfigPath set configuration directory
func (b *LoaderBuilder) WithConfigPath(path string) *LoaderBuilder {
	b.configPath = path
	return b
}

// WithEnvPrefix set environment variable prefix ("" disables prefix scanning)
func (b *LoaderBuilder) WithEnvPrefix(prefix string) *LoaderBuilder {
	b.envPrefix = prefix
	return b
}

// WithDefaults sets the lowest priority layer
func (b *LoaderBuilder) WithDefaults(defaults map[string]any) *LoaderBuilder {
	b.defaults = defaults
	return b
}

// WithFlags binds command line flags (flag name -> config key)
func (b *LoaderBuilder) WithFlags(flags *pflag.FlagSet, bindings map[string]string) *LoaderBuilder {
	b.flags = flags
	b.flagBindings = bindings
	return b
}

// Build creates the loader and loads every layer
// defaults(1) < config.yaml(10) < <env>.yaml(20) < env(50) < flags(100)
func (b *LoaderBuilder) Build() (*Loader, error) {
	loader := NewLoader()

	if len(b.defaults) > 0 {
		loader.AddSource(NewMapSource("defaults", 1, b.defaults))
	}
	if b.configPath != "" {
		loader.AddSource(NewFileSource(filepath.Join(b.configPath, "config.yaml"), 10))
		if env := GetEnv(); env != "" {
			loader.AddSource(NewFileSource(filepath.Join(b.configPath, env+".yaml"), 20))
		}
	}
	if b.envPrefix != "" {
		loader.AddSource(NewEnvSource(b.envPrefix, 50))
	}
	if b.flags != nil {
		loader.AddSource(NewFlagSource(b.flags, b.flagBindings, 100))
	}

	if err := loader.Load(); err != nil {
		return nil, err
	}
	return loader, nil
}

// GetEnv returns the deployment environment
// TICKERDESK_ENV > APP_ENV > "dev"
func GetEnv() string {
	if env := os.Getenv(EnvPrefix + "_ENV"); env != "" {
		return env
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return "dev"
}
