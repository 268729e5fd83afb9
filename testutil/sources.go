// Package testutil shared fixtures for tickerdesk tests: canned upstreams,
// throwaway config directories and a gin request builder.
package testutil

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/report"
	"github.com/KOMKZ/tickerdesk/table"
)

// HistoryRows two INFY sessions
var HistoryRows = [][]any{
	{"2024-03-28", 1490.0, 1515.0, 1485.0, 1500.0, 4e6},
	{"2024-04-01", 1500.0, 1520.0, 1495.0, 1510.5, 5e6},
}

// StubChart canned Yahoo chart; Err fails every call
type StubChart struct {
	Err   error
	calls atomic.Int32
}

// History returns HistoryRows
func (s *StubChart) History(context.Context, yahoo.HistoryQuery) (*table.Frame, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	return table.FromRows(yahoo.HistoryColumns, HistoryRows)
}

// Quote returns one row for symbol.NS
func (s *StubChart) Quote(_ context.Context, symbol string) (*table.Frame, error) {
	s.calls.Add(1)
	if s.Err != nil {
		return nil, s.Err
	}
	return table.FromRows([]string{"symbol", "price"}, [][]any{{symbol + ".NS", 1510.5}})
}

// Calls upstream calls so far
func (s *StubChart) Calls() int {
	return int(s.calls.Load())
}

// StubMarket an NSE that is down: every snapshot fails with ErrUpstream
// and no bhavcopy exists
type StubMarket struct{}

func (StubMarket) AllIndices(context.Context) (*table.Frame, error) {
	return nil, provider.ErrUpstream.WithMsg("nse down")
}

func (StubMarket) IndexConstituents(context.Context, string) (*table.Frame, error) {
	return nil, provider.ErrUpstream.WithMsg("nse down")
}

func (StubMarket) PreOpen(context.Context, string) (*table.Frame, error) {
	return nil, provider.ErrUpstream.WithMsg("nse down")
}

func (StubMarket) Bhavcopy(context.Context, time.Time, string) (*table.Frame, error) {
	return nil, provider.ErrNoData
}

// Sources chart plus the failing market
func Sources(chart *StubChart) report.Sources {
	return report.Sources{Chart: chart, Market: StubMarket{}}
}
