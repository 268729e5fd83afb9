package report

import (
	"context"
	"strings"
	"time"

	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/table"
)

const (
	// IndexLiveTTL constituents move all session; a quarter hour is fresh enough
	IndexLiveTTL = 15 * time.Minute
	// QuoteTTL single quote
	QuoteTTL = 5 * time.Minute
)

func sameDay(Params, time.Time) cache.Policy { return cache.SameCalendarDay() }
func forever(Params, time.Time) cache.Policy { return cache.Forever() }

func ttl(d time.Duration) func(Params, time.Time) cache.Policy {
	return func(Params, time.Time) cache.Policy { return cache.TTL(d) }
}

// slug makes an index name safe for keys and file names: "NIFTY 50" -> "NIFTY-50"
func slug(s string) string {
	return strings.Join(strings.Fields(strings.ToUpper(s)), "-")
}

// DailyHistory daily bars for a symbol with day change and intraday range
func DailyHistory() *Definition {
	return &Definition{
		Mode:        "daily",
		Type:        "history",
		Title:       "Price history",
		Description: "Daily OHLCV bars with day change % and range %; defaults to the last 30 days",
		Needs:       []Field{FieldSymbol, FieldRange},
		PolicyHint:  "same day while the range includes today, forever once it is closed",
		Signed:      []string{"change_pct"},
		Chart:       "close",
		defaultDays: 30,
		policy: func(p Params, today time.Time) cache.Policy {
			// a closed range never changes
			if p.To.Before(today) {
				return cache.Forever()
			}
			return cache.SameCalendarDay()
		},
		entity: func(p Params) []string {
			return []string{p.Symbol, p.From.Format(DateLayout), p.To.Format(DateLayout)}
		},
		build: func(ctx context.Context, src Sources, p Params) (*table.Frame, error) {
			f, err := src.Chart.History(ctx, yahoo.HistoryQuery{Symbol: p.Symbol, From: p.From, To: p.To})
			if err != nil {
				return nil, err
			}
			return withDerivedColumns(f), nil
		},
	}
}

// withDerivedColumns adds change_pct against the previous close and range_pct (high-low over low)
func withDerivedColumns(f *table.Frame) *table.Frame {
	f.WithColumn("change_pct", func(r table.Row) any {
		if r.Index() == 0 {
			return nil
		}
		prev, ok := f.Float(r.Index()-1, "close")
		cur, ok2 := r.Lookup("close")
		if !ok || !ok2 || prev == 0 {
			return nil
		}
		return (cur - prev) / prev * 100
	})
	f.WithColumn("range_pct", func(r table.Row) any {
		high, ok := r.Lookup("high")
		low, ok2 := r.Lookup("low")
		if !ok || !ok2 || low == 0 {
			return nil
		}
		return (high - low) / low * 100
	})
	return f
}

// DailyQuote latest quote for a symbol
func DailyQuote() *Definition {
	return &Definition{
		Mode:        "daily",
		Type:        "quote",
		Title:       "Quote",
		Description: "Latest price, change and day range for a symbol",
		Needs:       []Field{FieldSymbol},
		PolicyHint:  "ttl " + QuoteTTL.String(),
		Signed:      []string{"change", "change_pct"},
		policy:      ttl(QuoteTTL),
		entity:      func(p Params) []string { return []string{p.Symbol} },
		build: func(ctx context.Context, src Sources, p Params) (*table.Frame, error) {
			return src.Chart.Quote(ctx, p.Symbol)
		},
	}
}

// IndexLive constituents of an index, best performers first
func IndexLive() *Definition {
	return &Definition{
		Mode:         "index",
		Type:         "live",
		Title:        "Index constituents",
		Description:  "Live quotes of every stock in an index (default NIFTY 50), sorted by change %",
		Needs:        []Field{FieldIndex},
		PolicyHint:   "ttl " + IndexLiveTTL.String(),
		Signed:       []string{"change", "change_pct"},
		defaultIndex: "NIFTY 50",
		policy:       ttl(IndexLiveTTL),
		entity:       func(p Params) []string { return []string{slug(p.Index)} },
		build: func(ctx context.Context, src Sources, p Params) (*table.Frame, error) {
			f, err := src.Market.IndexConstituents(ctx, p.Index)
			if err != nil {
				return nil, err
			}
			return f.SortBy("change_pct", true), nil
		},
	}
}

// IndexList every index with its day move
func IndexList() *Definition {
	return &Definition{
		Mode:        "index",
		Type:        "list",
		Title:       "All indices",
		Description: "Snapshot of every NSE index",
		PolicyHint:  "same calendar day",
		Signed:      []string{"change", "change_pct"},
		policy:      sameDay,
		entity:      func(Params) []string { return []string{"ALL"} },
		build: func(ctx context.Context, src Sources, _ Params) (*table.Frame, error) {
			return src.Market.AllIndices(ctx)
		},
	}
}

// BhavcopyEOD end-of-day equity prices for a date, optionally one symbol
func BhavcopyEOD() *Definition {
	return &Definition{
		Mode:        "bhavcopy",
		Type:        "eod",
		Title:       "End of day prices",
		Description: "NSE bhavcopy (EQ series) for a trading date; pass symbol to keep one row",
		Needs:       []Field{FieldDate},
		PolicyHint:  "forever",
		policy:      forever,
		entity: func(p Params) []string {
			sym := p.Symbol
			if sym == "" {
				sym = "ALL"
			}
			return []string{sym, p.Date.Format(DateLayout)}
		},
		build: func(ctx context.Context, src Sources, p Params) (*table.Frame, error) {
			f, err := src.Market.Bhavcopy(ctx, p.Date, "EQ")
			if err != nil {
				return nil, err
			}
			if p.Symbol == "" {
				return f, nil
			}
			f = f.Filter(func(r table.Row) bool { return r.String("symbol") == p.Symbol })
			if f.IsEmpty() {
				return nil, provider.ErrNoData.WithMsgf("%s did not trade on %s", p.Symbol, p.Date.Format(DateLayout))
			}
			return f, nil
		},
	}
}

// PreOpenSnapshot pre-open session for a market key
func PreOpenSnapshot() *Definition {
	return &Definition{
		Mode:         "preopen",
		Type:         "snapshot",
		Title:        "Pre-open session",
		Description:  "Indicative equilibrium prices from the 09:00-09:08 pre-open session (index: NIFTY, BANKNIFTY, FO, ALL)",
		Needs:        []Field{FieldIndex},
		PolicyHint:   "same calendar day",
		Signed:       []string{"change", "change_pct"},
		defaultIndex: "NIFTY",
		policy:       sameDay,
		entity:       func(p Params) []string { return []string{slug(p.Index)} },
		build: func(ctx context.Context, src Sources, p Params) (*table.Frame, error) {
			f, err := src.Market.PreOpen(ctx, p.Index)
			if err != nil {
				return nil, err
			}
			return f.SortBy("change_pct", true), nil
		},
	}
}
