package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samber/do/v2"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type storeSection struct {
	RootDir string        `mapstructure:"root_dir"`
	Backend string        `mapstructure:"backend"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_PriorityOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "store:\n  root_dir: base\n  backend: fs\n  timeout: 2s\n")
	writeFile(t, dir, "test.yaml", "store:\n  root_dir: from-env-file\n")
	t.Setenv("TICKERDESK_ENV", "test")
	t.Setenv("TICKERDESK_STORE__BACKEND", "redis")

	loader, err := NewLoaderBuilder().
		WithConfigPath(dir).
		WithDefaults(map[string]any{"store": map[string]any{"root_dir": "default", "timeout": "1s"}}).
		Build()
	require.NoError(t, err)

	var s storeSection
	require.NoError(t, loader.UnmarshalKey("store", &s))
	assert.Equal(t, "from-env-file", s.RootDir)
	assert.Equal(t, "redis", s.Backend)
	assert.Equal(t, 2*time.Second, s.Timeout)
	assert.Len(t, loader.LoadedFiles(), 2)
}

func TestLoader_FlagsWin(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "server:\n  port: 8080\n")
	t.Setenv("TICKERDESK_SERVER__PORT", "9090")

	fs := pflag.NewFlagSet("serve", pflag.ContinueOnError)
	fs.Int("port", 0, "")
	fs.String("addr", "", "")
	require.NoError(t, fs.Parse([]string{"--port=7070"}))

	loader, err := NewLoaderBuilder().
		WithConfigPath(dir).
		WithFlags(fs, map[string]string{"port": "server.port", "addr": "server.addr"}).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 7070, loader.GetInt("server.port"))
	assert.False(t, loader.IsSet("server.addr"), "unchanged flags must not override")
}

func TestLoader_UnmarshalKey_MissingSectionKeepsDefaults(t *testing.T) {
	loader, err := NewLoaderBuilder().WithEnvPrefix("").Build()
	require.NoError(t, err)

	s := storeSection{RootDir: "data"}
	require.NoError(t, loader.UnmarshalKey("store", &s))
	assert.Equal(t, "data", s.RootDir)
}

func TestFileSource_Missing(t *testing.T) {
	data, err := NewFileSource(filepath.Join(t.TempDir(), "nope.yaml"), 10).Load()
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestFileSource_Invalid(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "store: [unclosed\n")
	_, err := NewFileSource(filepath.Join(dir, "config.yaml"), 10).Load()
	assert.Error(t, err)
}

func TestEnvSource_Binding(t *testing.T) {
	t.Setenv("PORT", "8181")
	src := NewEnvSource("", 50)
	src.AddBinding("server.port", "PORT")

	data, err := src.Load()
	require.NoError(t, err)
	assert.Equal(t, "8181", data["server.port"])
}

func TestFlattenAndUnflatten(t *testing.T) {
	flat := flattenMap("", map[string]any{"cache": map[string]any{"single_flight": true, "stats": map[string]any{"enabled": false}}})
	assert.Equal(t, map[string]any{"cache.single_flight": true, "cache.stats.enabled": false}, flat)

	nested := unflattenMap(flat)
	assert.Equal(t, true, nested["cache"].(map[string]any)["single_flight"])
}

type failingSection struct{ err error }

func (f failingSection) Validate() error { return f.err }

func TestValidateAll(t *testing.T) {
	assert.NoError(t, ValidateAll(failingSection{}, failingSection{}))
	assert.EqualError(t, ValidateAll(failingSection{}, failingSection{err: assert.AnError}), assert.AnError.Error())
}

func TestProvideLoader(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "config.yaml", "warmup:\n  enabled: true\n")

	injector := do.New()
	do.Provide(injector, ProvideLoader(ProvideLoaderOptions{ConfigPath: dir}))

	loader := do.MustInvoke[*Loader](injector)
	assert.True(t, loader.GetBool("warmup.enabled"))
}
