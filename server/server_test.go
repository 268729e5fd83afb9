package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/limiter"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/table"
	"github.com/KOMKZ/tickerdesk/testutil"
)

var ist = time.FixedZone("IST", 19800)

type stubChart struct {
	calls atomic.Int32
	err   error
}

func (s *stubChart) History(context.Context, yahoo.HistoryQuery) (*table.Frame, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return table.FromRows(yahoo.HistoryColumns, [][]any{
		{"2024-03-28", 1480.0, 1500.0, 1470.0, 1490.0, 4e6},
		{"2024-04-01", 1490.0, 1515.0, 1485.0, 1510.5, 5e6},
	})
}

func (s *stubChart) Quote(_ context.Context, symbol string) (*table.Frame, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return table.FromRows([]string{"symbol", "price"}, [][]any{{symbol + ".NS", 1510.5}})
}

type stubMarket struct{}

func (stubMarket) AllIndices(context.Context) (*table.Frame, error) {
	return table.FromRows([]string{"index", "last"}, [][]any{{"NIFTY 50", 22462.0}})
}

func (stubMarket) IndexConstituents(context.Context, string) (*table.Frame, error) {
	return table.FromRows([]string{"symbol", "change_pct"}, [][]any{{"INFY", 0.2}})
}

func (stubMarket) PreOpen(context.Context, string) (*table.Frame, error) {
	return table.FromRows([]string{"symbol", "change_pct"}, [][]any{{"INFY", 0.3}})
}

func (stubMarket) Bhavcopy(context.Context, time.Time, string) (*table.Frame, error) {
	return nil, provider.ErrNoData.WithMsg("no bhavcopy for a holiday")
}

type fixture struct {
	srv   *Server
	chart *stubChart
	store *artifact.Store
	agg   *health.Aggregator
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	clock := clockwork.NewFakeClockAt(time.Date(2024, 4, 2, 10, 0, 0, 0, ist))
	store := artifact.NewStore(artifact.NewFSBackend(afero.NewMemMapFs(), "/data"),
		artifact.WithClock(clock), artifact.WithLogger(logger.Nop()))
	fc := cache.New(store, cache.WithLocation(ist), cache.WithLogger(logger.Nop()))
	chart := &stubChart{}
	svc := report.NewService(fc, report.DefaultRegistry(),
		report.Sources{Chart: chart, Market: stubMarket{}}, report.WithLogger(logger.Nop()))

	agg := health.NewAggregator(time.Second)
	agg.Register(store.HealthCheck())

	cfg := DefaultConfig()
	cfg.Mode = gin.TestMode
	cfg.Metrics = false
	cfg.RequestLog.Enable = false
	srv, err := New(cfg, svc, append([]Option{WithHealth(agg), WithLogger(logger.Nop())}, opts...)...)
	require.NoError(t, err)
	return &fixture{srv: srv, chart: chart, store: store, agg: agg}
}

func (f *fixture) get(path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.srv.Engine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) httpx.Response {
	t.Helper()
	var resp httpx.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

const historyKey = "daily_history_INFY_03-03-2024_02-04-2024"

func TestReport_HTMLMissThenHit(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/report/daily/history?symbol=INFY")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "MISS", w.Header().Get(headerCache))
	assert.Equal(t, historyKey, w.Header().Get(headerCacheKey))
	assert.Equal(t, "2024-04-02T10:00:00+05:30", w.Header().Get(headerCreatedAt))
	assert.Contains(t, w.Body.String(), "<table")

	w = f.get("/api/report/daily/history?symbol=infy")
	assert.Equal(t, "HIT", w.Header().Get(headerCache))
	assert.EqualValues(t, 1, f.chart.calls.Load())
}

func TestReport_JSON(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/report/daily/quote?symbol=INFY&format=json")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Code int `json:"code"`
		Data struct {
			Report    string          `json:"report"`
			Key       string          `json:"key"`
			FromCache bool            `json:"from_cache"`
			Table     json.RawMessage `json:"table"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 0, body.Code)
	assert.Equal(t, "daily/quote", body.Data.Report)
	assert.Equal(t, "daily_quote_INFY", body.Data.Key)
	assert.False(t, body.Data.FromCache)

	var frame table.Frame
	require.NoError(t, json.Unmarshal(body.Data.Table, &frame))
	assert.Equal(t, "INFY.NS", frame.Row(0).String("symbol"))
}

func TestReport_ProviderFailure(t *testing.T) {
	f := newFixture(t)
	f.chart.err = provider.ErrUpstream.WithMsg("yahoo unavailable")

	w := f.get("/api/report/daily/quote?symbol=INFY")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), `<div class="error">`))
	assert.Contains(t, w.Body.String(), "yahoo unavailable")
	assert.Empty(t, w.Header().Get(headerCache))

	w = f.get("/api/report/daily/quote?symbol=INFY&format=json")
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 730001, envelope(t, w).Code)

	// nothing was cached: the next request fetches again
	f.chart.err = nil
	w = f.get("/api/report/daily/quote?symbol=INFY")
	assert.Equal(t, "MISS", w.Header().Get(headerCache))
}

func TestReport_ValidationFailure(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/report/daily/history?symbol=INFY&from=2024-03-01")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `<div class="error">`)

	w = f.get("/api/report/daily/history?from=01-03-2024&format=json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := envelope(t, w)
	assert.Equal(t, 740001, resp.Code)
	assert.Contains(t, resp.Data, "fields")

	assert.Zero(t, f.chart.calls.Load())
}

func TestReport_BadQueryAndUnknownReport(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/report/daily/quote?symbol=INFY&force=maybe&format=json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 750003, envelope(t, w).Code)

	w = f.get("/api/report/weekly/nothing?format=json")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 740002, envelope(t, w).Code)
}

func TestReport_Force(t *testing.T) {
	f := newFixture(t)

	f.get("/api/report/daily/quote?symbol=INFY")
	w := f.get("/api/report/daily/quote?symbol=INFY&force=true")
	assert.Equal(t, "MISS", w.Header().Get(headerCache))
	assert.EqualValues(t, 2, f.chart.calls.Load())
}

func TestReport_ForceLimiter(t *testing.T) {
	clock := clockwork.NewFakeClock()
	l := limiter.New(limiter.NewMemoryStore(clock), 0.1, 1, limiter.WithClock(clock), limiter.WithLogger(logger.Nop()))
	f := newFixture(t, WithForceLimiter(l))

	assert.Equal(t, http.StatusOK, f.get("/api/report/daily/quote?symbol=INFY&force=true").Code)
	assert.Equal(t, http.StatusTooManyRequests, f.get("/api/report/daily/quote?symbol=INFY&force=true").Code)
	assert.Equal(t, http.StatusOK, f.get("/api/report/daily/quote?symbol=INFY").Code)
	assert.EqualValues(t, 1, f.chart.calls.Load())
}

func TestFile(t *testing.T) {
	f := newFixture(t)
	require.Equal(t, http.StatusOK, f.get("/api/report/daily/history?symbol=INFY").Code)

	w := f.get("/api/file/" + historyKey + ".html")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<table")
	assert.Equal(t, "Tue, 02 Apr 2024 04:30:00 GMT", w.Header().Get("Last-Modified"))

	w = f.get("/api/file/" + historyKey + ".json")
	assert.Equal(t, http.StatusOK, w.Code)
	var frame table.Frame
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &frame))
	assert.Equal(t, 2, frame.Len())

	w = f.get("/api/file/" + historyKey + ".png")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Empty(t, w.Header().Get("Last-Modified"))
	assert.True(t, strings.HasPrefix(w.Body.String(), "\x89PNG"))
}

func TestFile_Errors(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/file/daily_quote_INFY.html")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, 750002, envelope(t, w).Code)

	w = f.get("/api/file/daily_quote_INFY.csv")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 750001, envelope(t, w).Code)

	w = f.get("/api/file/.png")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParseFileName(t *testing.T) {
	key, kind, err := parseFileName("index_live_NIFTY-50.JSON")
	require.NoError(t, err)
	assert.Equal(t, "index_live_NIFTY-50", key)
	assert.Equal(t, artifact.KindTable, kind)

	_, _, err = parseFileName("noext")
	assert.ErrorIs(t, err, ErrBadFileName)
}

func TestReports(t *testing.T) {
	f := newFixture(t)

	w := f.get("/api/reports")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data []report.Info `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Data, len(report.DefaultRegistry().List()))
	assert.Equal(t, "bhavcopy", body.Data[0].Mode)
}

func TestCacheStats(t *testing.T) {
	f := newFixture(t)
	f.get("/api/report/daily/quote?symbol=INFY")
	f.get("/api/report/daily/quote?symbol=INFY")

	w := f.get("/api/cache/stats")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data StatsResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body.Data.Cache.Hits)
	// table and html artifacts
	assert.EqualValues(t, 2, body.Data.Store.Writes)
	assert.Equal(t, "fs", body.Data.Backend)
}

func TestMeta(t *testing.T) {
	f := newFixture(t)
	f.get("/api/report/daily/quote?symbol=INFY")

	w := f.get("/api/artifact/html/daily_quote_INFY")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data artifact.Meta `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "daily_quote_INFY", body.Data.Key)
	assert.Equal(t, artifact.KindHTML, body.Data.Kind)
	assert.True(t, body.Data.Timestamped)
	assert.Positive(t, body.Data.Size)

	w = f.get("/api/artifact/image/daily_quote_INFY")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, ErrFileNotFound.Code(), envelope(t, w).Code)

	w = f.get("/api/artifact/pdf/daily_quote_INFY")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.get("/health").Code)

	f.agg.Register(health.Check{Name: "broken", Critical: true, Run: func(context.Context) error { return errors.New("down") }})
	assert.Equal(t, http.StatusServiceUnavailable, f.get("/health").Code)
}

func TestNoRoute(t *testing.T) {
	f := newFixture(t)
	w := f.get("/api/nothing")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestConfig(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	assert.Equal(t, 8080, cfg.Port)
	assert.NoError(t, cfg.Validate())

	cfg.Mode = "verbose"
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg = DefaultConfig()
	cfg.ErrorLogging.LogLevel = "trace"
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)

	cfg = DefaultConfig()
	cfg.ErrorLogging.ClassLevels = map[string]string{"provider": "loud"}
	assert.ErrorIs(t, cfg.Validate(), ErrConfig)
}

func TestShutdownBeforeStart(t *testing.T) {
	f := newFixture(t)
	assert.NoError(t, f.srv.Shutdown(context.Background()))
	assert.Empty(t, f.srv.Addr())
}

func TestServer_Tracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, WithTracing(tp, "tickerdesk-test"))
	resp := testutil.GET("/api/report/daily/quote").WithQuery("symbol", "INFY").Do(f.srv.Engine())
	require.Equal(t, http.StatusOK, resp.Status())

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Contains(t, spans[0].Name(), "/api/report/:mode/:type")
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), resp.Header("X-Trace-ID"))
}
