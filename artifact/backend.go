package artifact

import "context"

// Backend raw blob storage under (kind, key)
// Implementations must make Write atomic: readers see the old blob or the new one
type Backend interface {
	Name() string
	// Read returns ErrNotFound when absent
	Read(ctx context.Context, kind Kind, key string) ([]byte, error)
	// Head returns at least the header line of the blob, ErrNotFound when absent
	Head(ctx context.Context, kind Kind, key string) ([]byte, error)
	Write(ctx context.Context, kind Kind, key string, data []byte) error
	Exists(ctx context.Context, kind Kind, key string) (bool, error)
	Delete(ctx context.Context, kind Kind, key string) error
	// Ping reports whether the backend can currently serve writes
	Ping(ctx context.Context) error
	Close() error
}
