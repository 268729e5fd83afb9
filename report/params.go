package report

import (
	"regexp"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/validator"
)

// DateLayout user facing date format (DD-MM-YYYY)
const DateLayout = "02-01-2006"

// Format output format
type Format string

const (
	FormatHTML Format = "html"
	FormatJSON Format = "json"
)

// Field a report parameter
type Field string

const (
	FieldSymbol Field = "symbol"
	FieldIndex  Field = "index"
	FieldDate   Field = "date"
	FieldRange  Field = "from/to"
)

var (
	symbolPattern = regexp.MustCompile(`^\^?[A-Za-z0-9&_\-]{1,20}(\.[A-Za-z]{1,3})?$`)
	indexPattern  = regexp.MustCompile(`^[A-Za-z0-9 &\-]{1,40}$`)
)

// Query raw request parameters (query string or CLI flags)
type Query struct {
	Symbol string `form:"symbol" json:"symbol,omitempty" mapstructure:"symbol" flag:"symbol,s" usage:"ticker symbol, e.g. INFY or ^NSEI"`
	Index  string `form:"index" json:"index,omitempty" mapstructure:"index" flag:"index,i" usage:"index name, e.g. NIFTY BANK"`
	Date   string `form:"date" json:"date,omitempty" mapstructure:"date" flag:"date,d" usage:"trading date (DD-MM-YYYY)"`
	From   string `form:"from" json:"from,omitempty" mapstructure:"from" flag:"from" usage:"range start (DD-MM-YYYY)"`
	To     string `form:"to" json:"to,omitempty" mapstructure:"to" flag:"to" usage:"range end (DD-MM-YYYY)"`
	Force  bool   `form:"force" json:"force,omitempty" mapstructure:"force" flag:"force,f" usage:"ignore any cached copy"`
	Format string `form:"format" json:"format,omitempty" mapstructure:"format" flag:"format,o" usage:"html or json"`
}

// Params validated parameters
// Dates are midnight in the cache location
type Params struct {
	Symbol string
	Index  string
	Date   time.Time
	From   time.Time
	To     time.Time
	Force  bool
	Format Format
}

// queryRules Query validated against what one report needs
type queryRules struct {
	q   Query
	def *Definition
}

// Validate implements validator.Validatable
func (r queryRules) Validate() error {
	q := r.q
	return validation.ValidateStruct(&q,
		validation.Field(&q.Symbol,
			validation.When(r.def.needs(FieldSymbol), validation.Required),
			validation.Match(symbolPattern).Error("must be a ticker symbol such as RELIANCE or ^NSEI")),
		validation.Field(&q.Index,
			validation.Match(indexPattern).Error("must be an index name such as NIFTY 50")),
		validation.Field(&q.Date,
			validation.When(r.def.needs(FieldDate), validation.Required),
			validation.Date(DateLayout).Error("must be a date in DD-MM-YYYY format")),
		validation.Field(&q.From, validation.Date(DateLayout).Error("must be a date in DD-MM-YYYY format")),
		validation.Field(&q.To, validation.Date(DateLayout).Error("must be a date in DD-MM-YYYY format")),
		validation.Field(&q.Format, validation.In("", string(FormatHTML), string(FormatJSON)).
			Error("must be html or json")),
	)
}

// parseParams validates q for def; now decides the defaults and the future-date check
func parseParams(def *Definition, q Query, now time.Time) (Params, error) {
	q.Symbol = strings.ToUpper(strings.TrimSpace(q.Symbol))
	q.Index = strings.ToUpper(strings.TrimSpace(q.Index))
	q.Date = strings.TrimSpace(q.Date)
	q.From = strings.TrimSpace(q.From)
	q.To = strings.TrimSpace(q.To)
	q.Format = strings.ToLower(strings.TrimSpace(q.Format))

	if err := validator.ValidateRequest(queryRules{q: q, def: def}); err != nil {
		return Params{}, asValidation(err)
	}

	loc := now.Location()
	today := midnight(now)
	p := Params{
		Symbol: q.Symbol,
		Index:  q.Index,
		Force:  q.Force,
		Format: Format(q.Format),
	}
	if p.Format == "" {
		p.Format = FormatHTML
	}
	if p.Index == "" && def.defaultIndex != "" {
		p.Index = def.defaultIndex
	}
	if def.needs(FieldIndex) && p.Index == "" {
		return Params{}, fieldError("index", "cannot be blank")
	}

	var err error
	if p.Date, err = parseDate(q.Date, loc); err != nil {
		return Params{}, fieldError("date", err.Error())
	}
	if p.From, err = parseDate(q.From, loc); err != nil {
		return Params{}, fieldError("from", err.Error())
	}
	if p.To, err = parseDate(q.To, loc); err != nil {
		return Params{}, fieldError("to", err.Error())
	}

	if !p.Date.IsZero() && p.Date.After(today) {
		return Params{}, fieldError("date", "must not be in the future")
	}
	if def.needs(FieldRange) {
		if p.To.IsZero() {
			p.To = today
		}
		if p.From.IsZero() {
			p.From = p.To.AddDate(0, 0, -def.defaultDays)
		}
		if p.To.After(today) {
			return Params{}, fieldError("to", "must not be in the future")
		}
		if p.From.After(p.To) {
			return Params{}, fieldError("from", "must not be after to")
		}
	}
	return p, nil
}

func parseDate(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(DateLayout, s, loc)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// asValidation re-labels a common validation error as a report one
func asValidation(err error) error {
	le, ok := errcode.As(err)
	if !ok || le.Class() != errcode.ClassValidation {
		return err
	}
	out := ErrValidation.WithMsg(le.Message())
	if fields, ok := le.Data()["fields"]; ok {
		out = out.WithData("fields", fields)
	}
	return out
}

func fieldError(field, msg string) error {
	return ErrValidation.WithMsg(field+": "+msg).WithData("fields", map[string]string{field: msg})
}
