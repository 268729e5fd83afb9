package table

import (
	"bytes"
	"fmt"
	"html/template"
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// HTMLOptions controls Frame.HTML rendering
type HTMLOptions struct {
	Title     string
	Class     string
	Precision int
	Locale    language.Tag // number grouping, en-IN by default
	Signed    []string     // columns styled pos/neg by sign
}

var frameTemplate = template.Must(template.New("frame").Parse(
	`{{if .Title}}<h3>{{.Title}}</h3>
{{end}}<table class="{{.Class}}">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td{{if .Signed}} class="{{.Signed}}"{{end}}>{{.Text}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
`))

type htmlCell struct {
	Text   string
	Signed string
}

// HTML renders the frame as a table; numbers use locale digit grouping
func (f *Frame) HTML(opts HTMLOptions) (string, error) {
	if opts.Class == "" {
		opts.Class = "dataframe"
	}
	if opts.Precision <= 0 {
		opts.Precision = 2
	}
	if opts.Locale == language.Und {
		opts.Locale = language.MustParse("en-IN")
	}
	p := message.NewPrinter(opts.Locale)
	numFmt := fmt.Sprintf("%%.%df", opts.Precision)

	signed := make(map[int]bool, len(opts.Signed))
	for _, c := range opts.Signed {
		if j, ok := f.index[c]; ok {
			signed[j] = true
		}
	}

	rows := make([][]htmlCell, 0, len(f.rows))
	for _, r := range f.rows {
		cells := make([]htmlCell, len(r))
		for j, v := range r {
			cells[j] = formatCell(p, numFmt, v, signed[j])
		}
		rows = append(rows, cells)
	}

	var buf bytes.Buffer
	err := frameTemplate.Execute(&buf, map[string]any{
		"Title":   opts.Title,
		"Class":   opts.Class,
		"Columns": f.columns,
		"Rows":    rows,
	})
	if err != nil {
		return "", fmt.Errorf("render frame: %w", err)
	}
	return buf.String(), nil
}

func formatCell(p *message.Printer, numFmt string, v any, signed bool) htmlCell {
	switch n := v.(type) {
	case nil:
		return htmlCell{Text: "-"}
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return htmlCell{Text: "-"}
		}
		c := htmlCell{Text: p.Sprintf(numFmt, n)}
		switch {
		case !signed:
		case n > 0:
			c.Signed = "pos"
		case n < 0:
			c.Signed = "neg"
		}
		return c
	case string:
		return htmlCell{Text: n}
	default:
		return htmlCell{Text: fmt.Sprint(n)}
	}
}
