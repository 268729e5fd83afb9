package report

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/provider/yahoo"
	"github.com/KOMKZ/tickerdesk/table"
)

// ChartSource price history and quotes (Yahoo chart API)
type ChartSource interface {
	History(ctx context.Context, q yahoo.HistoryQuery) (*table.Frame, error)
	Quote(ctx context.Context, symbol string) (*table.Frame, error)
}

// MarketSource exchange data (NSE)
type MarketSource interface {
	AllIndices(ctx context.Context) (*table.Frame, error)
	IndexConstituents(ctx context.Context, index string) (*table.Frame, error)
	PreOpen(ctx context.Context, key string) (*table.Frame, error)
	Bhavcopy(ctx context.Context, date time.Time, series string) (*table.Frame, error)
}

// Sources data providers available to report builders
type Sources struct {
	Chart  ChartSource
	Market MarketSource
}

// Definition one report: its parameters, cache policy and builder
type Definition struct {
	Mode        string
	Type        string
	Title       string
	Description string
	Needs       []Field
	// PolicyHint human readable cache policy for listings
	PolicyHint string
	// Signed columns styled by sign in HTML
	Signed []string
	// Chart column plotted into a sibling PNG artifact, "" for none
	Chart string

	defaultIndex string
	defaultDays  int

	policy func(p Params, today time.Time) cache.Policy
	entity func(p Params) []string
	build  func(ctx context.Context, src Sources, p Params) (*table.Frame, error)
}

// Name mode/type
func (d *Definition) Name() string {
	return d.Mode + "/" + d.Type
}

// Key cache key for p: mode_type_entity[_date...]
func (d *Definition) Key(p Params) string {
	return cache.Key(append([]string{d.Mode, d.Type}, d.entity(p)...)...)
}

// Policy validity policy for p
func (d *Definition) Policy(p Params, today time.Time) cache.Policy {
	return d.policy(p, today)
}

func (d *Definition) needs(f Field) bool {
	return slices.Contains(d.Needs, f)
}

// Info listing entry
type Info struct {
	Mode        string   `json:"mode"`
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
	Policy      string   `json:"policy"`
}

// Info describes the report for listings
func (d *Definition) Info() Info {
	params := make([]string, 0, len(d.Needs))
	for _, f := range d.Needs {
		params = append(params, string(f))
	}
	return Info{
		Mode:        d.Mode,
		Type:        d.Type,
		Title:       d.Title,
		Description: d.Description,
		Params:      params,
		Policy:      d.PolicyHint,
	}
}

// Registry reports keyed by mode/type
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds def; names are case-insensitive
func (r *Registry) Register(def *Definition) error {
	name := strings.ToLower(def.Name())
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.defs[name]; ok {
		return ErrDuplicate.WithData("report", name)
	}
	r.defs[name] = def
	return nil
}

// MustRegister panics on duplicates
func (r *Registry) MustRegister(defs ...*Definition) *Registry {
	for _, d := range defs {
		if err := r.Register(d); err != nil {
			panic(err)
		}
	}
	return r
}

// Lookup finds mode/type
func (r *Registry) Lookup(mode, typ string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.defs[strings.ToLower(mode+"/"+typ)]
	return d, ok
}

// List every definition sorted by name
func (r *Registry) List() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// DefaultRegistry the built-in reports
func DefaultRegistry() *Registry {
	return NewRegistry().MustRegister(
		DailyHistory(),
		DailyQuote(),
		IndexLive(),
		IndexList(),
		BhavcopyEOD(),
		PreOpenSnapshot(),
	)
}
