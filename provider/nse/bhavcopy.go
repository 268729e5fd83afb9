package nse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/KOMKZ/tickerdesk/httpclient"
	"github.com/KOMKZ/tickerdesk/provider"
	"github.com/KOMKZ/tickerdesk/table"
	"go.uber.org/zap"
)

// BhavcopyColumns columns of the Bhavcopy frame
var BhavcopyColumns = []string{
	"symbol", "series", "date", "previous_close", "open", "high", "low", "close",
	"vwap", "volume", "turnover_lacs", "trades", "delivery_qty", "delivery_pct",
}

// bhavcopyFields source header for each column, in BhavcopyColumns order
var bhavcopyFields = []string{
	"SYMBOL", "SERIES", "DATE1", "PREV_CLOSE", "OPEN_PRICE", "HIGH_PRICE", "LOW_PRICE", "CLOSE_PRICE",
	"AVG_PRICE", "TTL_TRD_QNTY", "TURNOVER_LACS", "NO_OF_TRADES", "DELIV_QTY", "DELIV_PER",
}

// BhavcopyPath archive path of the full bhavcopy for date
func BhavcopyPath(date time.Time) string {
	return "/products/content/sec_bhavdata_full_" + date.Format("02012006") + ".csv"
}

// Bhavcopy end-of-day prices of every security traded on date
// series filters rows ("EQ"); "" keeps every series
// Non-trading days have no file and yield ErrNoData
func (c *Client) Bhavcopy(ctx context.Context, date time.Time, series string) (*table.Frame, error) {
	path := BhavcopyPath(date)
	resp, err := c.archive.Do(ctx, httpclient.NewGetRequest(path))
	if err != nil {
		c.log.WarnCtx(ctx, "bhavcopy download failed", zap.String("path", path), zap.Error(err))
		return nil, provider.Classify(source, err)
	}

	frame, err := parseBhavcopy(bytes.NewReader(resp.Body), strings.ToUpper(strings.TrimSpace(series)))
	if err != nil {
		return nil, provider.ErrDecode.Wrap(err).WithData("source", source)
	}
	if frame.IsEmpty() {
		return nil, provider.ErrNoData.WithMsgf("no bhavcopy rows for %s", date.Format("02-01-2006")).
			WithData("source", source)
	}
	return frame, nil
}

// parseBhavcopy reads the archive CSV; headers and cells carry stray spaces
func parseBhavcopy(r io.Reader, series string) (*table.Frame, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	pos := make(map[string]int, len(header))
	for i, h := range header {
		pos[strings.ToUpper(strings.TrimSpace(h))] = i
	}
	for _, f := range bhavcopyFields {
		if _, ok := pos[f]; !ok {
			return nil, fmt.Errorf("missing column %s", f)
		}
	}

	frame := table.New(BhavcopyColumns...)
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		values := make([]any, len(bhavcopyFields))
		for i, f := range bhavcopyFields {
			idx := pos[f]
			var cell string
			if idx < len(rec) {
				cell = strings.TrimSpace(rec[idx])
			}
			// first three columns are text
			if i < 3 {
				values[i] = cell
			} else {
				values[i] = provider.ParseNumber(cell).Cell()
			}
		}
		if series != "" && values[1] != series {
			continue
		}
		if err := frame.Append(values...); err != nil {
			return nil, err
		}
	}
	return frame, nil
}
