package provider

import (
	"bytes"
	"math"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
)

// Number decodes JSON numbers, numeric strings ("1,234.50") and
// placeholders ("-", "", null); placeholders become NaN
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*n = Number(math.NaN())
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// Cell value for a table.Frame: nil for NaN
func (n Number) Cell() any {
	f := float64(n)
	if math.IsNaN(f) {
		return nil
	}
	return f
}

// ParseNumber parses "1,234.50"; anything unparsable is NaN
func ParseNumber(s string) Number {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Number(math.NaN())
	}
	return Number(f)
}
