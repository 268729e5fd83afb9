package testutil

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// WriteConfig writes content as config.yaml in a fresh directory and returns it
func WriteConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

// BaseConfig quiet logger, fs store in a temp dir, test-mode server on a free port
// extra is appended verbatim, so it may add top-level sections
func BaseConfig(t *testing.T, extra string) string {
	t.Helper()
	return fmt.Sprintf(`
logger:
  enable_file: false
  enable_console: false
store:
  driver: fs
  root_dir: %s
cache:
  location: Asia/Kolkata
server:
  mode: test
  port: %d
%s`, filepath.Join(t.TempDir(), "artifacts"), FreePort(t), extra)
}

// FreePort a port that was free a moment ago
func FreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}
