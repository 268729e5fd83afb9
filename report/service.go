// Package report turns provider data into cached HTML and table reports.
//
// Each report is a Definition registered under mode/type. Rendering goes
// through the fetch cache twice: the table artifact holds the reshaped data
// and the HTML artifact is rendered from it, so both formats share one
// upstream fetch.
package report

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/table"
)

// Output rendered report
type Output struct {
	Report *Definition
	Params Params
	Key    string
	Kind   artifact.Kind
	// Value string for html, *table.Frame for json; an error fragment when Err is set
	Value     any
	FromCache bool
	CreatedAt time.Time
	Err       error
	StoreErr  error
}

// Failed reports a provider or render failure
func (o *Output) Failed() bool {
	return o.Err != nil
}

// Service renders registered reports through the fetch cache
type Service struct {
	cache    *cache.FetchCache
	registry *Registry
	sources  Sources
	clock    clockwork.Clock
	log      *logger.CtxZapLogger
}

// ServiceOption service option
type ServiceOption func(*Service)

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service; the clock comes from the artifact store
func NewService(fc *cache.FetchCache, reg *Registry, src Sources, opts ...ServiceOption) *Service {
	s := &Service{
		cache:    fc,
		registry: reg,
		sources:  src,
		clock:    fc.Store().Clock(),
		log:      logger.GetLogger("report"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry registered reports
func (s *Service) Registry() *Registry {
	return s.registry
}

// Cache underlying fetch cache
func (s *Service) Cache() *cache.FetchCache {
	return s.cache
}

// Render builds or loads mode/type for q
// The returned error is ErrUnknownReport, ErrValidation or a contract violation;
// provider failures come back inside Output.Err with an inline error payload
func (s *Service) Render(ctx context.Context, mode, typ string, q Query) (*Output, error) {
	def, ok := s.registry.Lookup(mode, typ)
	if !ok {
		return nil, ErrUnknownReport.WithMsgf("unknown report %s/%s", mode, typ)
	}

	now := s.clock.Now().In(s.cache.Location())
	p, err := parseParams(def, q, now)
	if err != nil {
		return nil, err
	}

	key := def.Key(p)
	policy := def.Policy(p, midnight(now))
	log := s.log.With(zap.String("report", def.Name()), zap.String("key", key))

	kind := artifact.KindHTML
	var res *cache.Result
	if p.Format == FormatJSON {
		kind = artifact.KindTable
		res, err = s.frame(ctx, def, p, key, policy, p.Force)
	} else {
		res, err = s.cache.GetOrCompute(ctx, cache.Request{
			Key:    key,
			Kind:   artifact.KindHTML,
			Policy: policy,
			Force:  p.Force,
			Producer: func(ctx context.Context) (any, error) {
				return s.renderHTML(ctx, def, p, key, policy)
			},
		})
	}
	if err != nil {
		return nil, err
	}

	out := &Output{
		Report:    def,
		Params:    p,
		Key:       key,
		Kind:      kind,
		Value:     res.Value,
		FromCache: res.FromCache,
		CreatedAt: res.CreatedAt,
		Err:       res.Err,
		StoreErr:  res.StoreErr,
	}
	if out.Failed() {
		log.WarnCtx(ctx, "report failed", zap.Error(out.Err))
	} else {
		log.DebugCtx(ctx, "report rendered", zap.Bool("from_cache", out.FromCache))
	}
	return out, nil
}

// frame get-or-compute of the table artifact
func (s *Service) frame(ctx context.Context, def *Definition, p Params, key string, policy cache.Policy, force bool) (*cache.Result, error) {
	return s.cache.GetOrCompute(ctx, cache.Request{
		Key:    key,
		Kind:   artifact.KindTable,
		Policy: policy,
		Force:  force,
		Producer: func(ctx context.Context) (any, error) {
			return def.build(ctx, s.sources, p)
		},
	})
}

// renderHTML producer of the HTML artifact. The page is stamped with the time
// it was rendered, so under a rolling policy the table is refetched: a cached
// table would let the page outlive its data by up to one window.
func (s *Service) renderHTML(ctx context.Context, def *Definition, p Params, key string, policy cache.Policy) (any, error) {
	res, err := s.frame(ctx, def, p, key, policy, p.Force || policy.Rolling())
	if err != nil {
		return nil, err
	}
	if res.Failed() {
		return nil, res.Err
	}
	f, ok := res.Value.(*table.Frame)
	if !ok {
		return nil, ErrRender.WithMsg("table artifact has an unexpected payload")
	}

	page, err := f.HTML(table.HTMLOptions{Title: title(def, p), Signed: def.Signed})
	if err != nil {
		return nil, ErrRender.Wrap(err)
	}
	if def.Chart != "" {
		s.saveChart(ctx, key, f, def.Chart)
	}
	return page, nil
}

// saveChart stores the sparkline next to the report; its freshness follows the report
func (s *Service) saveChart(ctx context.Context, key string, f *table.Frame, col string) {
	img, err := Sparkline(f, col)
	if err != nil {
		s.log.WarnCtx(ctx, "sparkline failed", zap.String("key", key), zap.Error(err))
		return
	}
	if img == nil {
		return
	}
	if err := s.cache.Store().Save(ctx, key, artifact.KindImage, img, artifact.WithoutTimestamp()); err != nil {
		s.log.WarnCtx(ctx, "sparkline not saved", zap.String("key", key), zap.Error(err))
	}
}

func title(def *Definition, p Params) string {
	parts := []string{def.Title}
	switch {
	case p.Symbol != "":
		parts = append(parts, p.Symbol)
	case p.Index != "":
		parts = append(parts, p.Index)
	}
	if !p.Date.IsZero() {
		parts = append(parts, p.Date.Format(DateLayout))
	}
	if !p.From.IsZero() {
		parts = append(parts, p.From.Format(DateLayout)+" to "+p.To.Format(DateLayout))
	}
	return strings.Join(parts, " - ")
}
