package yahoo

import (
	"time"

	"github.com/KOMKZ/tickerdesk/provider"
)

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *chartError   `json:"error"`
	} `json:"chart"`
}

type chartError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote []chartQuote `json:"quote"`
	} `json:"indicators"`
}

type chartMeta struct {
	Currency             string          `json:"currency"`
	Symbol               string          `json:"symbol"`
	ExchangeName         string          `json:"exchangeName"`
	ExchangeTimezoneName string          `json:"exchangeTimezoneName"`
	GMTOffset            int             `json:"gmtoffset"`
	RegularMarketTime    int64           `json:"regularMarketTime"`
	RegularMarketPrice   provider.Number `json:"regularMarketPrice"`
	RegularMarketDayHigh provider.Number `json:"regularMarketDayHigh"`
	RegularMarketDayLow  provider.Number `json:"regularMarketDayLow"`
	RegularMarketVolume  provider.Number `json:"regularMarketVolume"`
	PreviousClose        provider.Number `json:"previousClose"`
	ChartPreviousClose   provider.Number `json:"chartPreviousClose"`
	FiftyTwoWeekHigh     provider.Number `json:"fiftyTwoWeekHigh"`
	FiftyTwoWeekLow      provider.Number `json:"fiftyTwoWeekLow"`
}

type chartQuote struct {
	Open   []provider.Number `json:"open"`
	High   []provider.Number `json:"high"`
	Low    []provider.Number `json:"low"`
	Close  []provider.Number `json:"close"`
	Volume []provider.Number `json:"volume"`
}

// location exchange time zone from the fixed offset in the metadata
func (r *chartResult) location() *time.Location {
	name := r.Meta.ExchangeTimezoneName
	if name == "" {
		name = "UTC"
	}
	return time.FixedZone(name, r.Meta.GMTOffset)
}
