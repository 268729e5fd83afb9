package config

import (
	"fmt"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
)

// ProvideLoaderOptions options for ProvideLoader
type ProvideLoaderOptions struct {
	ConfigPath   string
	EnvPrefix    string
	Defaults     map[string]any
	Flags        *pflag.FlagSet
	FlagBindings map[string]string
}

// ProvideLoader registers the loader; it has no dependencies
//
//	do.Provide(injector, config.ProvideLoader(config.ProvideLoaderOptions{ConfigPath: "configs"}))
//	loader := do.MustInvoke[*config.Loader](injector)
func ProvideLoader(opts ProvideLoaderOptions) func(do.Injector) (*Loader, error) {
	return func(do.Injector) (*Loader, error) {
		if opts.ConfigPath == "" {
			opts.ConfigPath = "configs"
		}
		b := NewLoaderBuilder().
			WithConfigPath(opts.ConfigPath).
			WithDefaults(opts.Defaults).
			WithFlags(opts.Flags, opts.FlagBindings)
		if opts.EnvPrefix != "" {
			b = b.WithEnvPrefix(opts.EnvPrefix)
		}
		loader, err := b.Build()
		if err != nil {
			return nil, fmt.Errorf("config loader build failed: %w", err)
		}
		return loader, nil
	}
}

// ProvideLoaderValue registers an already built loader (tests)
func ProvideLoaderValue(loader *Loader) func(do.Injector) (*Loader, error) {
	return func(do.Injector) (*Loader, error) {
		return loader, nil
	}
}
