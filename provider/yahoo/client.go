// Package yahoo reads price history and quotes from the Yahoo Finance chart API
package yahoo

import (
	"context"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/table"
	"go.uber.org/zap"
)

const (
	// DefaultBaseURL public chart endpoint host
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// DefaultSuffix exchange suffix appended to bare NSE symbols
	DefaultSuffix = ".NS"

	source = "yahoo"
)

// HistoryColumns columns of the History frame
var HistoryColumns = []string{"date", "open", "high", "low", "close", "volume"}

// QuoteColumns columns of the Quote frame
var QuoteColumns = []string{
	"symbol", "currency", "exchange", "price", "previous_close", "change", "change_pct",
	"day_high", "day_low", "volume", "52w_high", "52w_low", "time",
}

// Client Yahoo chart API client
type Client struct {
	http   *httpclient.Client
	suffix string
	log    *logger.CtxZapLogger
}

// Option client option
type Option func(*Client)

// WithSuffix overrides the exchange suffix ("" disables it)
func WithSuffix(s string) Option {
	return func(c *Client) {
		c.suffix = s
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// New creates a Client from cfg; zero fields take defaults
func New(cfg provider.Config, opts ...Option) *Client {
	cfg.ApplyDefaults(DefaultBaseURL)
	c := &Client{
		suffix: DefaultSuffix,
		log:    logger.GetLogger("provider"),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.http = httpclient.NewClient(append(cfg.ClientOptions(source, c.log),
		httpclient.WithHeader("Accept", "application/json"))...)
	return c
}

// Symbol normalizes a user supplied symbol
// Indices (^NSEI) and already suffixed symbols (RELIANCE.BO) are kept
func (c *Client) Symbol(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" || strings.HasPrefix(s, "^") || strings.Contains(s, ".") {
		return s
	}
	return s + c.suffix
}

// HistoryQuery daily bars between From and To (both inclusive)
// A zero From falls back to Range ("1mo" by default)
type HistoryQuery struct {
	Symbol   string
	From     time.Time
	To       time.Time
	Range    string
	Interval string
}

// History daily OHLCV bars, oldest first
func (c *Client) History(ctx context.Context, q HistoryQuery) (*table.Frame, error) {
	interval := q.Interval
	if interval == "" {
		interval = "1d"
	}
	params := url.Values{"interval": {interval}}
	if !q.From.IsZero() {
		to := q.To
		if to.IsZero() {
			to = time.Now()
		}
		params.Set("period1", strconv.FormatInt(q.From.Unix(), 10))
		// period2 is exclusive
		params.Set("period2", strconv.FormatInt(to.Add(24*time.Hour).Unix(), 10))
	} else {
		rng := q.Range
		if rng == "" {
			rng = "1mo"
		}
		params.Set("range", rng)
	}

	res, err := c.chart(ctx, c.Symbol(q.Symbol), params)
	if err != nil {
		return nil, err
	}

	loc := res.location()
	frame := table.New(HistoryColumns...)
	var quote chartQuote
	if len(res.Indicators.Quote) > 0 {
		quote = res.Indicators.Quote[0]
	}
	for i, ts := range res.Timestamp {
		closePx := at(quote.Close, i)
		if math.IsNaN(float64(closePx)) || closePx == 0 {
			continue
		}
		if err := frame.Append(
			time.Unix(ts, 0).In(loc).Format("2006-01-02"),
			at(quote.Open, i).Cell(),
			at(quote.High, i).Cell(),
			at(quote.Low, i).Cell(),
			closePx.Cell(),
			at(quote.Volume, i).Cell(),
		); err != nil {
			return nil, err
		}
	}
	if frame.IsEmpty() {
		return nil, provider.ErrNoData.WithMsgf("no price history for %s", q.Symbol).WithData("source", source)
	}
	return frame, nil
}

// Quote latest quote taken from the chart metadata
func (c *Client) Quote(ctx context.Context, symbol string) (*table.Frame, error) {
	res, err := c.chart(ctx, c.Symbol(symbol), url.Values{"interval": {"1d"}, "range": {"5d"}})
	if err != nil {
		return nil, err
	}

	m := res.Meta
	price := float64(m.RegularMarketPrice)
	if math.IsNaN(price) || price == 0 {
		return nil, provider.ErrNoData.WithMsgf("no quote for %s", symbol).WithData("source", source)
	}
	prev := m.PreviousClose
	if math.IsNaN(float64(prev)) || prev == 0 {
		prev = m.ChartPreviousClose
	}

	var change, changePct provider.Number = provider.Number(math.NaN()), provider.Number(math.NaN())
	if p := float64(prev); !math.IsNaN(p) && p != 0 {
		change = provider.Number(price - p)
		changePct = provider.Number((price - p) / p * 100)
	}

	var ts string
	if m.RegularMarketTime > 0 {
		ts = time.Unix(m.RegularMarketTime, 0).In(res.location()).Format("2006-01-02 15:04")
	}

	frame := table.New(QuoteColumns...)
	if err := frame.Append(
		m.Symbol, m.Currency, m.ExchangeName, price, prev.Cell(), change.Cell(), changePct.Cell(),
		m.RegularMarketDayHigh.Cell(), m.RegularMarketDayLow.Cell(), m.RegularMarketVolume.Cell(),
		m.FiftyTwoWeekHigh.Cell(), m.FiftyTwoWeekLow.Cell(), ts,
	); err != nil {
		return nil, err
	}
	return frame, nil
}

// chart calls /v8/finance/chart/{symbol}
func (c *Client) chart(ctx context.Context, symbol string, params url.Values) (*chartResult, error) {
	req := httpclient.NewGetRequest("/v8/finance/chart/" + url.PathEscape(symbol))
	req.Query = params

	log := c.log.With(zap.String("source", source), zap.String("symbol", symbol))
	start := time.Now()
	resp, err := httpclient.DoWithData[chartResponse](ctx, c.http, req)
	if err != nil {
		log.WarnCtx(ctx, "chart request failed", zap.Error(err))
		return nil, provider.Classify(source, err)
	}
	log.DebugCtx(ctx, "chart request done", zap.Duration("duration", time.Since(start)))

	if e := resp.Chart.Error; e != nil {
		if strings.EqualFold(e.Code, "Not Found") {
			return nil, provider.ErrNoData.WithMsg(e.Description).WithData("source", source)
		}
		return nil, provider.ErrUpstream.Wrap(fmt.Errorf("%s: %s", e.Code, e.Description)).WithData("source", source)
	}
	if len(resp.Chart.Result) == 0 {
		return nil, provider.ErrNoData.WithMsgf("no chart data for %s", symbol).WithData("source", source)
	}
	return &resp.Chart.Result[0], nil
}

func at(values []provider.Number, i int) provider.Number {
	if i < len(values) {
		return values[i]
	}
	return provider.Number(math.NaN())
}
