package artifact

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	maxNameLen = 120
	tmpMarker  = ".tmp-"
)

// FSBackend stores one file per artifact: <root>/<kind>/<name><ext>
// Writes go to a temp file in the same directory and are renamed into place,
// which is atomic on POSIX filesystems.
type FSBackend struct {
	fs    afero.Fs
	root  string
	fsync bool
}

// FSOption configures FSBackend
type FSOption func(*FSBackend)

// WithFsync syncs the temp file before rename
func WithFsync(on bool) FSOption {
	return func(b *FSBackend) { b.fsync = on }
}

// NewFSBackend creates a backend over any afero filesystem
func NewFSBackend(fs afero.Fs, root string, opts ...FSOption) *FSBackend {
	b := &FSBackend{fs: fs, root: root, fsync: true}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewOSBackend creates a backend on the real filesystem
func NewOSBackend(root string, opts ...FSOption) *FSBackend {
	return NewFSBackend(afero.NewOsFs(), root, opts...)
}

// Name backend name
func (b *FSBackend) Name() string {
	return "fs"
}

// Path returns the file backing (kind, key)
func (b *FSBackend) Path(kind Kind, key string) string {
	return filepath.Join(b.root, string(kind), fileName(key)+kind.Ext())
}

// fileName maps a key to a safe file name; keys that had to be altered get a
// hash suffix so that distinct keys never share a file
func fileName(key string) string {
	var sb strings.Builder
	changed := false
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			sb.WriteRune(r)
		default:
			sb.WriteByte('_')
			changed = true
		}
	}
	name := sb.String()
	if strings.HasPrefix(name, ".") {
		name = "_" + name[1:]
		changed = true
	}
	if len(name) > maxNameLen {
		name = name[:maxNameLen]
		changed = true
	}
	if changed {
		sum := sha256.Sum256([]byte(key))
		name += "-" + hex.EncodeToString(sum[:6])
	}
	return name
}

// Read reads the whole artifact file
func (b *FSBackend) Read(_ context.Context, kind Kind, key string) ([]byte, error) {
	data, err := afero.ReadFile(b.fs, b.Path(kind, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ErrStoreRead.Wrap(err)
	}
	return data, nil
}

// Head reads the first line only
func (b *FSBackend) Head(_ context.Context, kind Kind, key string) ([]byte, error) {
	f, err := b.fs.Open(b.Path(kind, key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, ErrStoreRead.Wrap(err)
	}
	defer f.Close()

	line, err := bufio.NewReaderSize(io.LimitReader(f, maxHeaderLen), maxHeaderLen).ReadBytes('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, ErrStoreRead.Wrap(err)
	}
	return line, nil
}

// Write creates the kind directory lazily and replaces the file atomically
func (b *FSBackend) Write(_ context.Context, kind Kind, key string, data []byte) (err error) {
	final := b.Path(kind, key)
	dir := filepath.Dir(final)
	if err := b.fs.MkdirAll(dir, 0o755); err != nil {
		return ErrStoreWrite.Wrap(err)
	}

	tmp, err := afero.TempFile(b.fs, dir, "."+filepath.Base(final)+tmpMarker+"*")
	if err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = b.fs.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return ErrStoreWrite.Wrap(err)
	}
	if b.fsync {
		if err := tmp.Sync(); err != nil {
			_ = tmp.Close()
			return ErrStoreWrite.Wrap(err)
		}
	}
	if err := tmp.Close(); err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	if err := b.fs.Rename(tmpName, final); err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	return nil
}

// Exists never fails on a missing root
func (b *FSBackend) Exists(_ context.Context, kind Kind, key string) (bool, error) {
	ok, err := afero.Exists(b.fs, b.Path(kind, key))
	if err != nil {
		return false, ErrStoreRead.Wrap(err)
	}
	return ok, nil
}

// Delete removes the file; absent files are not an error
func (b *FSBackend) Delete(_ context.Context, kind Kind, key string) error {
	err := b.fs.Remove(b.Path(kind, key))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return ErrStoreWrite.Wrap(err)
	}
	return nil
}

// Ping creates the root when missing and checks it is a directory
func (b *FSBackend) Ping(_ context.Context) error {
	if err := b.fs.MkdirAll(b.root, 0o755); err != nil {
		return ErrStoreWrite.Wrap(err)
	}
	fi, err := b.fs.Stat(b.root)
	if err != nil {
		return ErrStoreRead.Wrap(err)
	}
	if !fi.IsDir() {
		return ErrStoreWrite.WithMsgf("%s is not a directory", b.root)
	}
	return nil
}

// Sweep removes temp files of writes that never reached the rename,
// leaving any modified after before alone
func (b *FSBackend) Sweep(_ context.Context, before time.Time) (int, error) {
	removed := 0
	for _, kind := range Kinds() {
		dir := filepath.Join(b.root, string(kind))
		entries, err := afero.ReadDir(b.fs, dir)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, ErrStoreRead.Wrap(err)
		}
		for _, e := range entries {
			if e.IsDir() || !isTempName(e.Name()) || e.ModTime().After(before) {
				continue
			}
			err := b.fs.Remove(filepath.Join(dir, e.Name()))
			if err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, ErrStoreWrite.Wrap(err)
			}
			removed++
		}
	}
	return removed, nil
}

// isTempName artifact names never start with a dot
func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, tmpMarker)
}

// Close no-op
func (b *FSBackend) Close() error {
	return nil
}
