package nse

import (
	"context"
	"strings"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/table"
)

// IndicesColumns columns of the AllIndices frame
var IndicesColumns = []string{
	"index", "last", "change", "change_pct", "open", "high", "low",
	"previous_close", "year_high", "year_low", "advances", "declines",
}

// ConstituentColumns columns of the IndexConstituents frame
var ConstituentColumns = []string{
	"symbol", "open", "high", "low", "last", "previous_close",
	"change", "change_pct", "volume", "year_high", "year_low",
}

// PreOpenColumns columns of the PreOpen frame
var PreOpenColumns = []string{
	"symbol", "iep", "previous_close", "change", "change_pct", "final_quantity", "turnover",
}

type allIndicesResponse struct {
	Data []struct {
		Index         string          `json:"index"`
		Last          provider.Number `json:"last"`
		Variation     provider.Number `json:"variation"`
		PercentChange provider.Number `json:"percentChange"`
		Open          provider.Number `json:"open"`
		High          provider.Number `json:"high"`
		Low           provider.Number `json:"low"`
		PreviousClose provider.Number `json:"previousClose"`
		YearHigh      provider.Number `json:"yearHigh"`
		YearLow       provider.Number `json:"yearLow"`
		Advances      provider.Number `json:"advances"`
		Declines      provider.Number `json:"declines"`
	} `json:"data"`
}

type stockIndicesResponse struct {
	Name string `json:"name"`
	Data []struct {
		Priority          provider.Number `json:"priority"`
		Symbol            string          `json:"symbol"`
		Open              provider.Number `json:"open"`
		DayHigh           provider.Number `json:"dayHigh"`
		DayLow            provider.Number `json:"dayLow"`
		LastPrice         provider.Number `json:"lastPrice"`
		PreviousClose     provider.Number `json:"previousClose"`
		Change            provider.Number `json:"change"`
		PChange           provider.Number `json:"pChange"`
		TotalTradedVolume provider.Number `json:"totalTradedVolume"`
		YearHigh          provider.Number `json:"yearHigh"`
		YearLow           provider.Number `json:"yearLow"`
	} `json:"data"`
}

type preOpenResponse struct {
	Data []struct {
		Metadata struct {
			Symbol        string          `json:"symbol"`
			IEP           provider.Number `json:"iep"`
			LastPrice     provider.Number `json:"lastPrice"`
			PreviousClose provider.Number `json:"previousClose"`
			Change        provider.Number `json:"change"`
			PChange       provider.Number `json:"pChange"`
			FinalQuantity provider.Number `json:"finalQuantity"`
			TotalTurnover provider.Number `json:"totalTurnover"`
		} `json:"metadata"`
	} `json:"data"`
}

// AllIndices snapshot of every NSE index
func (c *Client) AllIndices(ctx context.Context) (*table.Frame, error) {
	resp, err := getJSON[allIndicesResponse](ctx, c, httpclient.NewGetRequest("/api/allIndices"))
	if err != nil {
		return nil, err
	}

	frame := table.New(IndicesColumns...)
	for _, d := range resp.Data {
		if err := frame.Append(d.Index, d.Last.Cell(), d.Variation.Cell(), d.PercentChange.Cell(),
			d.Open.Cell(), d.High.Cell(), d.Low.Cell(), d.PreviousClose.Cell(),
			d.YearHigh.Cell(), d.YearLow.Cell(), d.Advances.Cell(), d.Declines.Cell()); err != nil {
			return nil, err
		}
	}
	if frame.IsEmpty() {
		return nil, provider.ErrNoData.WithMsg("no index data").WithData("source", source)
	}
	return frame, nil
}

// IndexConstituents live quotes of every stock in index ("NIFTY 50")
// The row describing the index itself is dropped
func (c *Client) IndexConstituents(ctx context.Context, index string) (*table.Frame, error) {
	index = strings.ToUpper(strings.TrimSpace(index))
	req := httpclient.NewGetRequest("/api/equity-stockIndices").WithQuery("index", index)
	resp, err := getJSON[stockIndicesResponse](ctx, c, req)
	if err != nil {
		return nil, err
	}

	frame := table.New(ConstituentColumns...)
	for _, d := range resp.Data {
		if d.Priority == 1 || strings.EqualFold(d.Symbol, index) {
			continue
		}
		if err := frame.Append(d.Symbol, d.Open.Cell(), d.DayHigh.Cell(), d.DayLow.Cell(),
			d.LastPrice.Cell(), d.PreviousClose.Cell(), d.Change.Cell(), d.PChange.Cell(),
			d.TotalTradedVolume.Cell(), d.YearHigh.Cell(), d.YearLow.Cell()); err != nil {
			return nil, err
		}
	}
	if frame.IsEmpty() {
		return nil, provider.ErrNoData.WithMsgf("no constituents for %s", index).WithData("source", source)
	}
	return frame, nil
}

// PreOpen pre-open session snapshot for a market key (NIFTY, BANKNIFTY, FO, ALL)
func (c *Client) PreOpen(ctx context.Context, key string) (*table.Frame, error) {
	key = strings.ToUpper(strings.TrimSpace(key))
	req := httpclient.NewGetRequest("/api/market-data-pre-open").WithQuery("key", key)
	resp, err := getJSON[preOpenResponse](ctx, c, req)
	if err != nil {
		return nil, err
	}

	frame := table.New(PreOpenColumns...)
	for _, d := range resp.Data {
		m := d.Metadata
		iep := m.IEP
		if iep.Cell() == nil {
			iep = m.LastPrice
		}
		if err := frame.Append(m.Symbol, iep.Cell(), m.PreviousClose.Cell(), m.Change.Cell(),
			m.PChange.Cell(), m.FinalQuantity.Cell(), m.TotalTurnover.Cell()); err != nil {
			return nil, err
		}
	}
	if frame.IsEmpty() {
		return nil, provider.ErrNoData.WithMsgf("no pre-open data for %s", key).WithData("source", source)
	}
	return frame, nil
}
