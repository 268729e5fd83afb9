package warmup

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/report"
)

type fakeRenderer struct {
	mu       sync.Mutex
	calls    map[string]int
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{calls: map[string]int{}, fail: map[string]error{}}
}

func (f *fakeRenderer) Render(ctx context.Context, mode, typ string, q report.Query) (*report.Output, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}

	name := mode + "/" + typ + ":" + q.Symbol
	f.mu.Lock()
	f.calls[name]++
	n2 := f.calls[name]
	err := f.fail[name]
	f.mu.Unlock()

	key := mode + "_" + typ + "_" + q.Symbol
	if err != nil {
		if err == report.ErrUnknownReport {
			return nil, err
		}
		return &report.Output{Key: key, Err: err}, nil
	}
	return &report.Output{Key: key, FromCache: n2 > 1}, nil
}

func (f *fakeRenderer) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func quoteJob(symbol string) Job {
	return Job{Mode: "daily", Type: "quote", Query: report.Query{Symbol: symbol}}
}

func newWarmer(t *testing.T, cfg Config, r Renderer) *Warmer {
	t.Helper()
	w, err := New(cfg, r, WithLogger(logger.Nop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func TestJobName(t *testing.T) {
	assert.Equal(t, "daily/quote:INFY", quoteJob("infy").Name())
	assert.Equal(t, "index/list", Job{Mode: "Index", Type: "List"}.Name())
	assert.Equal(t, "index/live:NIFTY BANK,json",
		Job{Mode: "index", Type: "live", Query: report.Query{Index: "nifty bank", Format: "JSON"}}.Name())
}

func TestRunAll(t *testing.T) {
	r := newFakeRenderer()
	r.fail["daily/quote:TCS"] = provider.ErrUpstream.WithMsg("yahoo unavailable")
	w := newWarmer(t, Config{Jobs: []Job{quoteJob("INFY"), quoteJob("TCS")}}, r)

	results := w.RunAll(context.Background())
	require.Len(t, results, 2)
	assert.Equal(t, "daily/quote:INFY", results[0].Name)
	assert.Equal(t, "daily_quote_INFY", results[0].Key)
	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.Equal(t, "yahoo unavailable", results[1].Err)

	results = w.RunAll(context.Background())
	assert.True(t, results[0].FromCache)
	assert.Equal(t, 2, r.count("daily/quote:INFY"))
}

func TestRun_BoundedByWorkers(t *testing.T) {
	r := newFakeRenderer()
	r.delay = 20 * time.Millisecond
	jobs := make([]Job, 0, 8)
	for _, s := range []string{"A", "B", "C", "D", "E", "F", "G", "H"} {
		jobs = append(jobs, quoteJob(s))
	}
	w := newWarmer(t, Config{Workers: 2, Jobs: jobs}, r)

	results := w.RunAll(context.Background())
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, r.peak.Load(), int32(2))
}

func TestCheck(t *testing.T) {
	r := newFakeRenderer()
	w := newWarmer(t, Config{Jobs: []Job{quoteJob("INFY"), quoteJob("TCS")}}, r)

	// never ran
	assert.NoError(t, w.Check(context.Background()))

	r.fail["daily/quote:TCS"] = provider.ErrNoData
	w.RunAll(context.Background())
	err := w.Check(context.Background())
	require.ErrorIs(t, err, ErrJobsFailed)
	assert.Contains(t, err.Error(), "1 of 2 warmup jobs failing: daily/quote:TCS")

	delete(r.fail, "daily/quote:TCS")
	w.Run(context.Background(), quoteJob("TCS"))
	assert.NoError(t, w.Check(context.Background()))

	hc := w.HealthCheck()
	assert.Equal(t, "warmup", hc.Name)
	assert.False(t, hc.Critical)
	details := hc.Details()
	require.Len(t, details, 2)
	tcs, ok := details["daily/quote:TCS"].(map[string]any)
	require.True(t, ok)
	assert.NotContains(t, tcs, "error")
}

func TestHealthCheckReportsFailingJob(t *testing.T) {
	r := newFakeRenderer()
	r.fail["daily/quote:TCS"] = provider.ErrNoData
	w := newWarmer(t, Config{Jobs: []Job{quoteJob("TCS")}}, r)
	w.RunAll(context.Background())

	hc := w.HealthCheck()
	require.Error(t, hc.Run(context.Background()))
	job, ok := hc.Details()["daily/quote:TCS"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, job["error"])
}

func TestRequestErrorsAreRecorded(t *testing.T) {
	r := newFakeRenderer()
	r.fail["weekly/none:"] = report.ErrUnknownReport
	w := newWarmer(t, Config{}, r)

	res := w.Run(context.Background(), Job{Mode: "weekly", Type: "none"})
	require.Len(t, res, 1)
	assert.True(t, res[0].Failed())
	assert.Empty(t, res[0].Key)
	assert.Len(t, w.Last(), 1)
}

func TestStartRunOnStart(t *testing.T) {
	r := newFakeRenderer()
	w := newWarmer(t, Config{
		RunOnStart: true,
		Schedule:   "0 0 1 1 *",
		Jobs:       []Job{quoteJob("INFY")},
	}, r)

	require.NoError(t, w.Start())
	assert.Eventually(t, func() bool { return r.count("daily/quote:INFY") == 1 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())

	res := w.Run(context.Background(), quoteJob("INFY"))
	assert.True(t, res[0].Failed())
}

func TestStartBadSchedule(t *testing.T) {
	w := newWarmer(t, Config{Jobs: []Job{{Mode: "daily", Type: "quote", Schedule: "every tuesday"}}}, newFakeRenderer())
	assert.ErrorIs(t, w.Start(), ErrSchedule)
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, "Asia/Kolkata", cfg.Timezone)
	require.NoError(t, cfg.Validate())

	cfg.Enabled = true
	assert.ErrorIs(t, cfg.Validate(), ErrConfig, "enabled without jobs")

	cfg.Jobs = []Job{{Mode: "daily"}}
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg.Jobs = []Job{quoteJob("INFY")}
	assert.NoError(t, cfg.Validate())

	cfg.Timezone = "Mars/Olympus"
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)

	_, err := New(Config{Workers: -1}, newFakeRenderer())
	assert.ErrorIs(t, err, ErrConfig)
}
