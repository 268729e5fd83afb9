package artifact

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/table"
)

var t0 = time.Date(2024, 4, 1, 9, 15, 0, 0, time.Local)

func newMemStore(t *testing.T) (*Store, afero.Fs, *clockwork.FakeClock) {
	t.Helper()
	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClockAt(t0)
	store := NewStore(NewFSBackend(fs, "/data"), WithClock(clock), WithLogger(logger.Nop()))
	return store, fs, clock
}

func sampleFrame(t *testing.T) *table.Frame {
	t.Helper()
	f, err := table.FromRows([]string{"Symbol", "LTP", "Chg%"}, [][]any{
		{"NIFTY 50", 22326.9, 0.61},
		{"NIFTY BANK", 47578.25, -0.12},
	})
	require.NoError(t, err)
	return f
}

func TestStore_RoundTripEveryKind(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	frame := sampleFrame(t)
	cases := []struct {
		kind  Kind
		value any
	}{
		{KindHTML, "<table><tr><td>₹ 22,326.90</td></tr></table>"},
		{KindTable, frame},
		{KindImage, []byte{0x89, 'P', 'N', 'G', 0x00, 0xff, '\n', 0x10}},
	}

	for _, tc := range cases {
		t.Run(string(tc.kind), func(t *testing.T) {
			require.NoError(t, store.Save(ctx, "idx_NIFTY50", tc.kind, tc.value))

			got, ok := store.Load(ctx, "idx_NIFTY50", tc.kind)
			require.True(t, ok)
			assert.Equal(t, "idx_NIFTY50", got.Key)
			assert.Equal(t, tc.kind, got.Kind)
			assert.True(t, got.Timestamped)
			assert.True(t, got.CreatedAt.Equal(t0))

			codec, err := CodecFor(tc.kind)
			require.NoError(t, err)
			want, err := codec.Encode(tc.value)
			require.NoError(t, err)
			have, err := codec.Encode(got.Value)
			require.NoError(t, err)
			assert.Equal(t, want, have, "payload must round-trip byte for byte")
		})
	}
}

func TestStore_KindsAreIndependent(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	require.NoError(t, store.Save(ctx, "daily_TCS", KindHTML, "<p>TCS</p>"))
	assert.True(t, store.Exists(ctx, "daily_TCS", KindHTML))
	assert.False(t, store.Exists(ctx, "daily_TCS", KindTable))
	assert.False(t, store.Exists(ctx, "daily_INFY", KindHTML))
}

func TestStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newMemStore(t)

	require.NoError(t, store.Save(ctx, "k", KindHTML, "old"))
	clock.Advance(time.Minute)
	require.NoError(t, store.Save(ctx, "k", KindHTML, "new"))

	got, ok := store.Load(ctx, "k", KindHTML)
	require.True(t, ok)
	assert.Equal(t, "new", got.Value)
	assert.True(t, got.CreatedAt.Equal(t0.Add(time.Minute)))
}

func TestStore_WithoutTimestamp(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	require.NoError(t, store.Save(ctx, "chart_TCS", KindImage, []byte("png"), WithoutTimestamp()))
	got, ok := store.Load(ctx, "chart_TCS", KindImage)
	require.True(t, ok)
	assert.False(t, got.Timestamped)
	assert.True(t, got.CreatedAt.IsZero())
}

func TestStore_MissingRoot(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFSBackend(afero.NewMemMapFs(), "/does/not/exist"), WithLogger(logger.Nop()))

	assert.False(t, store.Exists(ctx, "k", KindHTML))
	_, ok := store.Load(ctx, "k", KindHTML)
	assert.False(t, ok)
	_, ok = store.Stat(ctx, "k", KindHTML)
	assert.False(t, ok)
	assert.Zero(t, store.Stats().ReadErrors)
}

func TestStore_LazyNamespace(t *testing.T) {
	ctx := context.Background()
	store, fs, _ := newMemStore(t)

	require.NoError(t, store.Save(ctx, "bhav_01-04-2024", KindTable, sampleFrame(t)))

	ok, err := afero.DirExists(fs, "/data/table")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = afero.DirExists(fs, "/data/html")
	require.NoError(t, err)
	assert.False(t, ok)

	entries, err := afero.ReadDir(fs, "/data/table")
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.Equal(t, "bhav_01-04-2024.json", entries[0].Name())
}

func TestStore_CorruptionIsAMiss(t *testing.T) {
	ctx := context.Background()
	log, logs := logger.NewObserved("artifact")
	fs := afero.NewMemMapFs()
	backend := NewFSBackend(fs, "/data")
	store := NewStore(backend, WithClock(clockwork.NewFakeClockAt(t0)), WithLogger(log))

	require.NoError(t, store.Save(ctx, "good", KindHTML, "<p>ok</p>"))
	valid, err := afero.ReadFile(fs, backend.Path(KindHTML, "good"))
	require.NoError(t, err)

	cases := map[string][]byte{
		"no header":       []byte("<p>raw html</p>"),
		"bad header":      []byte("{not json\n<p>x</p>"),
		"truncated":       valid[:len(valid)-3],
		"flipped payload": append(append([]byte(nil), valid[:len(valid)-1]...), 'X'),
		"other key":       valid,
	}

	n := 0
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			key := fmt.Sprintf("bad%d", n)
			n++
			require.NoError(t, afero.WriteFile(fs, backend.Path(KindHTML, key), data, 0o644))

			assert.True(t, store.Exists(ctx, key, KindHTML))
			got, ok := store.Load(ctx, key, KindHTML)
			assert.False(t, ok)
			assert.Nil(t, got)
		})
	}

	assert.Equal(t, int64(len(cases)), store.Stats().Corrupt)
	assert.Equal(t, len(cases), logs.FilterMessage("corrupt artifact, treating as miss").Len())
}

func TestStore_CorruptTablePayload(t *testing.T) {
	ctx := context.Background()
	store, fs, _ := newMemStore(t)
	backend := store.Backend().(*FSBackend)

	blob, err := encodeEnvelope(Meta{Key: "k", Kind: KindTable, Timestamped: true, CreatedAt: t0}, []byte(`{"columns":["a"],"data":[[1,2]]}`))
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, backend.Path(KindTable, "k"), blob, 0o644))

	_, ok := store.Load(ctx, "k", KindTable)
	assert.False(t, ok)
}

func TestStore_WriteFailure(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewFSBackend(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data"), WithLogger(logger.Nop()))

	err := store.Save(ctx, "k", KindHTML, "<p>x</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStoreWrite)
	assert.Equal(t, errcode.ClassStore, errcode.ClassOf(err))
}

func TestStore_ContractViolations(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	err := store.Save(ctx, "k", Kind("pdf"), "x")
	assert.ErrorIs(t, err, ErrUnknownKind)
	assert.Equal(t, errcode.ClassContract, errcode.ClassOf(err))

	assert.ErrorIs(t, store.Save(ctx, "k", KindHTML, []byte("x")), ErrInvalidValue)
	assert.ErrorIs(t, store.Save(ctx, "k", KindTable, "x"), ErrInvalidValue)
	assert.ErrorIs(t, store.Save(ctx, "", KindHTML, "x"), ErrEmptyKey)
	assert.ErrorIs(t, store.Delete(ctx, "k", Kind("pdf")), ErrUnknownKind)

	assert.False(t, store.Exists(ctx, "k", Kind("pdf")))
	_, ok := store.Load(ctx, "k", Kind("pdf"))
	assert.False(t, ok)
}

func TestStore_Stat(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	require.NoError(t, store.Save(ctx, "idx_NIFTY50", KindHTML, "<p>12345</p>"))
	meta, ok := store.Stat(ctx, "idx_NIFTY50", KindHTML)
	require.True(t, ok)
	assert.Equal(t, "idx_NIFTY50", meta.Key)
	assert.Equal(t, KindHTML, meta.Kind)
	assert.Equal(t, int64(len("<p>12345</p>")), meta.Size)
	assert.True(t, meta.CreatedAt.Equal(t0))
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)

	require.NoError(t, store.Save(ctx, "k", KindHTML, "x"))
	require.NoError(t, store.Delete(ctx, "k", KindHTML))
	assert.False(t, store.Exists(ctx, "k", KindHTML))
	assert.NoError(t, store.Delete(ctx, "k", KindHTML), "deleting an absent artifact is fine")
}

func TestArtifact_Empty(t *testing.T) {
	assert.True(t, (*Artifact)(nil).Empty())
	assert.True(t, (&Artifact{Kind: KindHTML, Value: ""}).Empty())
	assert.False(t, (&Artifact{Kind: KindHTML, Value: "x"}).Empty())
	assert.True(t, (&Artifact{Kind: KindTable, Value: table.New("a")}).Empty())
	assert.False(t, (&Artifact{Kind: KindTable, Value: table.ErrorFrame("x")}).Empty())
	assert.True(t, (&Artifact{Kind: KindImage, Value: []byte{}}).Empty())
	assert.True(t, (&Artifact{Kind: Kind("pdf"), Value: "x"}).Empty())
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "idx_NIFTY50", fileName("idx_NIFTY50"))
	assert.Equal(t, "bhav_01-04-2024", fileName("bhav_01-04-2024"))

	a, b := fileName("idx_NIFTY 50"), fileName("idx_NIFTY/50")
	assert.True(t, strings.HasPrefix(a, "idx_NIFTY_50-"))
	assert.NotEqual(t, a, b, "sanitized keys must not collide")
	assert.NotContains(t, fileName("../../etc/passwd"), "/")
	assert.False(t, strings.HasPrefix(fileName(".hidden"), "."))
	assert.LessOrEqual(t, len(fileName(strings.Repeat("x", 500))), maxNameLen+13)
}

// Concurrent readers must see either nothing or one complete payload.
func TestFSBackend_ConcurrentSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewOSBackend(t.TempDir(), WithFsync(false)), WithLogger(logger.Nop()))

	payloads := make(map[string]bool)
	for i := 0; i < 8; i++ {
		payloads[strings.Repeat(fmt.Sprintf("<tr>%d</tr>", i), 4096)] = true
	}

	var wg sync.WaitGroup
	for p := range payloads {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				assert.NoError(t, store.Save(ctx, "idx_NIFTY50", KindHTML, p))
			}
		}(p)
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				got, ok := store.Load(ctx, "idx_NIFTY50", KindHTML)
				if ok {
					assert.True(t, payloads[got.Value.(string)], "partial payload observed")
				}
			}
		}()
	}
	wg.Wait()
	assert.Zero(t, store.Stats().Corrupt)

	entries, err := afero.ReadDir(afero.NewOsFs(), filepath.Dir(store.Backend().(*FSBackend).Path(KindHTML, "x")))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestRedisBackend(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(NewRedisBackend(client, "td:", 0),
		WithClock(clockwork.NewFakeClockAt(t0)), WithLogger(logger.Nop()))
	t.Cleanup(func() { _ = store.Close() })

	assert.False(t, store.Exists(ctx, "idx_NIFTY50", KindTable))
	_, ok := store.Stat(ctx, "idx_NIFTY50", KindTable)
	assert.False(t, ok)

	frame := sampleFrame(t)
	require.NoError(t, store.Save(ctx, "idx_NIFTY50", KindTable, frame))
	assert.True(t, mr.Exists("td:table:idx_NIFTY50"))

	got, ok := store.Load(ctx, "idx_NIFTY50", KindTable)
	require.True(t, ok)
	want, _ := json.Marshal(frame)
	have, _ := json.Marshal(got.Value)
	assert.Equal(t, want, have)

	meta, ok := store.Stat(ctx, "idx_NIFTY50", KindTable)
	require.True(t, ok)
	assert.True(t, meta.CreatedAt.Equal(t0))

	mr.Set("td:html:broken", "garbage")
	_, ok = store.Load(ctx, "broken", KindHTML)
	assert.False(t, ok)

	require.NoError(t, store.Delete(ctx, "idx_NIFTY50", KindTable))
	assert.False(t, store.Exists(ctx, "idx_NIFTY50", KindTable))
}

func TestRedisBackend_WriteFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	store := NewStore(NewRedisBackend(client, "td:", 0), WithLogger(logger.Nop()))
	mr.Close()

	err := store.Save(context.Background(), "k", KindHTML, "x")
	assert.ErrorIs(t, err, ErrStoreWrite)
}

func TestStore_SweepsLeftoverTempFiles(t *testing.T) {
	ctx := context.Background()
	store, fs, _ := newMemStore(t)
	backend := store.Backend().(*FSBackend)

	require.NoError(t, store.Save(ctx, "quote_TCS", KindHTML, "<p>ok</p>"))
	dead := "/data/html/.quote_TCS.html.tmp-1234"
	live := "/data/html/.quote_INFY.html.tmp-5678"
	require.NoError(t, afero.WriteFile(fs, dead, []byte("half"), 0o644))
	require.NoError(t, afero.WriteFile(fs, live, []byte("half"), 0o644))
	require.NoError(t, fs.Chtimes(dead, t0.Add(-time.Hour), t0.Add(-time.Hour)))
	require.NoError(t, fs.Chtimes(live, t0, t0))
	old := t0.Add(-48 * time.Hour)
	require.NoError(t, fs.Chtimes(backend.Path(KindHTML, "quote_TCS"), old, old))

	n, err := store.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	ok, _ := afero.Exists(fs, dead)
	assert.False(t, ok)
	ok, _ = afero.Exists(fs, live)
	assert.True(t, ok, "a write still in flight is left alone")
	assert.True(t, store.Exists(ctx, "quote_TCS", KindHTML))

	redisStore := NewStore(NewRedisBackend(redis.NewClient(&redis.Options{Addr: miniredis.RunT(t).Addr()}), "td:", 0),
		WithLogger(logger.Nop()))
	n, err = redisStore.Sweep(ctx)
	assert.NoError(t, err)
	assert.Zero(t, n)
}

func TestStore_Ping(t *testing.T) {
	ctx := context.Background()

	fs := afero.NewMemMapFs()
	store := NewStore(NewFSBackend(fs, "/data/artifacts"), WithLogger(logger.Nop()))
	require.NoError(t, store.Ping(ctx))
	ok, err := afero.DirExists(fs, "/data/artifacts")
	require.NoError(t, err)
	assert.True(t, ok)

	ro := NewStore(NewFSBackend(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data"), WithLogger(logger.Nop()))
	assert.ErrorIs(t, ro.Ping(ctx), ErrStoreWrite)

	mr := miniredis.RunT(t)
	rs := NewStore(NewRedisBackend(redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1}), "td:", 0),
		WithLogger(logger.Nop()))
	require.NoError(t, rs.Ping(ctx))
	mr.Close()
	assert.ErrorIs(t, rs.Ping(ctx), ErrStoreRead)
}

func TestStore_HealthCheck(t *testing.T) {
	ctx := context.Background()
	store, _, _ := newMemStore(t)
	require.NoError(t, store.Save(ctx, "INFY", KindHTML, "<p>ok</p>"))

	hc := store.HealthCheck()
	assert.Equal(t, "store", hc.Name)
	assert.True(t, hc.Critical)
	require.NoError(t, hc.Run(ctx))
	d := hc.Details()
	assert.Equal(t, "fs", d["backend"])
	assert.Equal(t, int64(1), d["writes"])
	assert.Equal(t, int64(0), d["corrupt"])

	ro := NewStore(NewFSBackend(afero.NewReadOnlyFs(afero.NewMemMapFs()), "/data"), WithLogger(logger.Nop()))
	assert.ErrorIs(t, ro.HealthCheck().Run(ctx), ErrStoreWrite)
}

func TestConfig(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "fs", cfg.Driver)

	cfg.Driver = "s3"
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg.Driver = "redis"
	cfg.Redis.Addr = ""
	assert.Error(t, cfg.Validate())

	_, err := Open(Config{Driver: "fs", RootDir: t.TempDir()}, WithLogger(logger.Nop()))
	assert.NoError(t, err)
}

func TestKindForExt(t *testing.T) {
	for _, k := range Kinds() {
		got, ok := KindForExt(k.Ext())
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := KindForExt(".csv")
	assert.False(t, ok)
}
