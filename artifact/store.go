// Package artifact persists rendered artifacts keyed by (key, kind).
//
// Every artifact carries a small header (key, kind, created_at, checksum)
// ahead of its encoded payload. Reads that hit a missing, unreadable or
// corrupt artifact report a miss instead of an error; writes are atomic.
package artifact

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/logger"
)

// Artifact a stored unit
type Artifact struct {
	Key         string
	Kind        Kind
	Value       any // string (html), *table.Frame (table), []byte (image)
	CreatedAt   time.Time
	Timestamped bool
}

// Empty reports a payload that must not be served from cache
func (a *Artifact) Empty() bool {
	if a == nil {
		return true
	}
	c, err := CodecFor(a.Kind)
	if err != nil {
		return true
	}
	return c.Empty(a.Value)
}

// SaveOption configures a single Save
type SaveOption func(*saveOptions)

type saveOptions struct {
	timestamped bool
}

// WithoutTimestamp stores the artifact with no created_at; its freshness is
// owned by a sibling artifact (e.g. a chart image next to its HTML page)
func WithoutTimestamp() SaveOption {
	return func(o *saveOptions) { o.timestamped = false }
}

// StoreStats counters exposed to operators
type StoreStats struct {
	Corrupt    int64 `json:"corrupt"`
	ReadErrors int64 `json:"read_errors"`
	Writes     int64 `json:"writes"`
}

// Store key/kind -> payload persistence, no freshness logic
type Store struct {
	backend Backend
	clock   clockwork.Clock
	log     *logger.CtxZapLogger

	corrupt    atomic.Int64
	readErrors atomic.Int64
	writes     atomic.Int64
}

// Option configures Store
type Option func(*Store)

// WithClock sets the clock used for created_at
func WithClock(c clockwork.Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates a store over a backend
func NewStore(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend: backend,
		clock:   clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.GetLogger("artifact")
	}
	return s
}

// Backend returns the underlying backend
func (s *Store) Backend() Backend {
	return s.backend
}

// Clock returns the store clock
func (s *Store) Clock() clockwork.Clock {
	return s.clock
}

// Exists true iff an artifact is physically present
func (s *Store) Exists(ctx context.Context, key string, kind Kind) bool {
	if !kind.Valid() || key == "" {
		s.log.ErrorCtx(ctx, "exists called with invalid key or kind",
			zap.String("key", key), zap.String("kind", string(kind)))
		return false
	}
	ok, err := s.backend.Exists(ctx, kind, key)
	if err != nil {
		s.readErrors.Add(1)
		s.log.WarnCtx(ctx, "artifact exists check failed",
			zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		return false
	}
	return ok
}

// Load returns the decoded artifact, or false when it is absent, unreadable or corrupt
func (s *Store) Load(ctx context.Context, key string, kind Kind) (*Artifact, bool) {
	codec, err := CodecFor(kind)
	if err != nil || key == "" {
		s.log.ErrorCtx(ctx, "load called with invalid key or kind",
			zap.String("key", key), zap.String("kind", string(kind)))
		return nil, false
	}

	data, err := s.backend.Read(ctx, kind, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.readErrors.Add(1)
			s.log.WarnCtx(ctx, "artifact read failed, treating as miss",
				zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		}
		return nil, false
	}

	meta, payload, err := decodeEnvelope(data)
	if err == nil && (meta.Key != key || meta.Kind != kind) {
		err = ErrCorrupt.WithMsgf("header names %s/%s", meta.Kind, meta.Key)
	}
	var value any
	if err == nil {
		value, err = codec.Decode(payload)
	}
	if err != nil {
		s.corrupt.Add(1)
		s.log.WarnCtx(ctx, "corrupt artifact, treating as miss",
			zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		return nil, false
	}

	return &Artifact{
		Key:         key,
		Kind:        kind,
		Value:       value,
		CreatedAt:   meta.CreatedAt,
		Timestamped: meta.Timestamped,
	}, true
}

// Stat returns the header without decoding the payload
func (s *Store) Stat(ctx context.Context, key string, kind Kind) (Meta, bool) {
	if !kind.Valid() || key == "" {
		return Meta{}, false
	}
	head, err := s.backend.Head(ctx, kind, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.readErrors.Add(1)
			s.log.WarnCtx(ctx, "artifact stat failed",
				zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		}
		return Meta{}, false
	}
	meta, _, err := decodeHeader(head)
	if err != nil {
		s.corrupt.Add(1)
		s.log.WarnCtx(ctx, "corrupt artifact header",
			zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		return Meta{}, false
	}
	return meta, true
}

// Save encodes and atomically writes the artifact, replacing any previous one
func (s *Store) Save(ctx context.Context, key string, kind Kind, value any, opts ...SaveOption) error {
	if key == "" {
		return ErrEmptyKey
	}
	codec, err := CodecFor(kind)
	if err != nil {
		return err
	}
	o := saveOptions{timestamped: true}
	for _, opt := range opts {
		opt(&o)
	}

	payload, err := codec.Encode(value)
	if err != nil {
		return err
	}

	meta := Meta{Key: key, Kind: kind, Timestamped: o.timestamped}
	if o.timestamped {
		meta.CreatedAt = s.clock.Now()
	}
	blob, err := encodeEnvelope(meta, payload)
	if err != nil {
		return ErrStoreWrite.Wrap(err)
	}

	if err := s.backend.Write(ctx, kind, key, blob); err != nil {
		s.log.ErrorCtx(ctx, "artifact write failed",
			zap.String("key", key), zap.String("kind", string(kind)), zap.Error(err))
		if errors.Is(err, ErrStoreWrite) {
			return err
		}
		return ErrStoreWrite.Wrap(err)
	}
	s.writes.Add(1)
	s.log.DebugCtx(ctx, "artifact saved",
		zap.String("key", key), zap.String("kind", string(kind)), zap.Int("bytes", len(payload)))
	return nil
}

// Delete removes one artifact (operator tooling)
func (s *Store) Delete(ctx context.Context, key string, kind Kind) error {
	if key == "" {
		return ErrEmptyKey
	}
	if !kind.Valid() {
		return ErrUnknownKind.WithData("kind", string(kind))
	}
	return s.backend.Delete(ctx, kind, key)
}

// Stats returns counters since start
func (s *Store) Stats() StoreStats {
	return StoreStats{
		Corrupt:    s.corrupt.Load(),
		ReadErrors: s.readErrors.Load(),
		Writes:     s.writes.Load(),
	}
}

// StaleTempAge a temp file this old belongs to a write that died
const StaleTempAge = 10 * time.Minute

type sweeper interface {
	Sweep(ctx context.Context, before time.Time) (int, error)
}

// Sweep removes leftovers of interrupted writes; 0 for backends without any
func (s *Store) Sweep(ctx context.Context) (int, error) {
	sw, ok := s.backend.(sweeper)
	if !ok {
		return 0, nil
	}
	n, err := sw.Sweep(ctx, s.clock.Now().Add(-StaleTempAge))
	if err != nil {
		s.log.WarnCtx(ctx, "temp file sweep failed", zap.Int("removed", n), zap.Error(err))
		return n, err
	}
	if n > 0 {
		s.log.InfoCtx(ctx, "removed leftover temp files", zap.Int("removed", n))
	}
	return n, nil
}

// Ping checks the backend is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// HealthCheck critical "store" check reporting the backend and its counters
func (s *Store) HealthCheck() health.Check {
	return health.Check{
		Name:     "store",
		Critical: true,
		Run:      s.Ping,
		Details: func() map[string]any {
			st := s.Stats()
			return map[string]any{
				"backend":     s.backend.Name(),
				"writes":      st.Writes,
				"corrupt":     st.Corrupt,
				"read_errors": st.ReadErrors,
			}
		},
	}
}

// Close closes the backend
func (s *Store) Close() error {
	return s.backend.Close()
}
