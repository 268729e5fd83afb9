// Package cache implements get-or-compute on top of the artifact store.
//
// A request names an artifact (key, kind), a validity policy and a producer.
// Valid non-empty artifacts are served without calling the producer; otherwise
// the producer runs, successes replace the stored artifact and failures are
// turned into an inline error payload that is never persisted.
package cache

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/KOMKZ/tickerdesk/artifact"
	"github.com/KOMKZ/tickerdesk/errcode"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/table"
)

// Producer fetches and renders a fresh payload for a miss
// The value type must match the request kind: string, *table.Frame or []byte.
type Producer func(ctx context.Context) (any, error)

// Request one get-or-compute call
type Request struct {
	Key      string
	Kind     artifact.Kind
	Policy   Policy
	Force    bool
	Producer Producer
	// SaveOptions passed to the store on success, e.g. artifact.WithoutTimestamp()
	SaveOptions []artifact.SaveOption
}

// Result of GetOrCompute
type Result struct {
	// Value cached or fresh payload; on producer failure an error fragment
	// (HTML div, one-row error frame, nil image)
	Value     any
	FromCache bool
	CreatedAt time.Time
	// Err producer failure; Value is the error fragment and nothing was stored
	Err error
	// StoreErr write failure; Value is still the fresh payload
	StoreErr error
}

// Failed reports a producer failure
func (r *Result) Failed() bool {
	return r != nil && r.Err != nil
}

// FetchCache get-or-compute over an artifact store
type FetchCache struct {
	store        *artifact.Store
	clock        clockwork.Clock
	loc          *time.Location
	log          *logger.CtxZapLogger
	singleFlight bool
	flightTO     time.Duration
	sf           singleflight.Group
	stats        *counters
}

// Option configures FetchCache
type Option func(*fetchOptions)

type fetchOptions struct {
	clock        clockwork.Clock
	loc          *time.Location
	log          *logger.CtxZapLogger
	singleFlight bool
	flightTO     time.Duration
	meter        metric.Meter
}

// WithClock clock for policy evaluation (defaults to the store clock)
func WithClock(c clockwork.Clock) Option {
	return func(o *fetchOptions) { o.clock = c }
}

// WithLocation zone used by SameCalendarDay
func WithLocation(loc *time.Location) Option {
	return func(o *fetchOptions) { o.loc = loc }
}

// WithLogger logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(o *fetchOptions) { o.log = l }
}

// WithSingleFlight collapses concurrent recomputes of the same (key, kind)
func WithSingleFlight(on bool) Option {
	return func(o *fetchOptions) { o.singleFlight = on }
}

// WithFlightTimeout bounds a shared recompute, which runs detached from the
// caller that started it; 0 leaves it unbounded
func WithFlightTimeout(d time.Duration) Option {
	return func(o *fetchOptions) { o.flightTO = d }
}

// WithMeter meter for request counters
func WithMeter(m metric.Meter) Option {
	return func(o *fetchOptions) { o.meter = m }
}

// New creates a FetchCache
func New(store *artifact.Store, opts ...Option) *FetchCache {
	o := fetchOptions{singleFlight: true, flightTO: DefaultFlightTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	if o.clock == nil {
		o.clock = store.Clock()
	}
	if o.loc == nil {
		o.loc = time.Local
	}
	if o.log == nil {
		o.log = logger.GetLogger("cache")
	}
	if o.meter == nil {
		o.meter = otel.Meter("github.com/KOMKZ/tickerdesk/cache")
	}
	return &FetchCache{
		store:        store,
		clock:        o.clock,
		loc:          o.loc,
		log:          o.log,
		singleFlight: o.singleFlight,
		flightTO:     o.flightTO,
		stats:        newCounters(o.meter),
	}
}

// Store underlying artifact store
func (c *FetchCache) Store() *artifact.Store {
	return c.store
}

// Location zone used by SameCalendarDay
func (c *FetchCache) Location() *time.Location {
	return c.loc
}

// Stats counters since start
func (c *FetchCache) Stats() Stats {
	return c.stats.snapshot()
}

// GetOrCompute returns a valid cached artifact or runs the producer.
// The returned error is non-nil only for caller contract violations
// (unknown kind, empty key, nil producer, unset policy, producer value of the wrong type).
func (c *FetchCache) GetOrCompute(ctx context.Context, req Request) (*Result, error) {
	if !req.Kind.Valid() {
		return nil, artifact.ErrUnknownKind.WithData("kind", string(req.Kind))
	}
	if req.Key == "" {
		return nil, artifact.ErrEmptyKey
	}
	if req.Producer == nil {
		return nil, ErrNilProducer
	}
	if req.Policy.IsZero() {
		return nil, ErrZeroPolicy
	}

	kind := string(req.Kind)
	log := c.log.With(zap.String("key", req.Key), zap.String("kind", kind))
	force := req.Force || req.Policy.Bypass()

	if force {
		c.stats.record(ctx, kind, outcomeForced)
	} else {
		res, o := c.lookup(ctx, req)
		c.stats.record(ctx, kind, o)
		if res != nil {
			log.DebugCtx(ctx, "cache hit", zap.Stringer("policy", req.Policy))
			return res, nil
		}
	}

	if !c.singleFlight {
		return c.compute(ctx, req, log)
	}

	flight := kind + "\x00" + req.Key
	if force {
		flight += "\x00force"
	}
	ch := c.sf.DoChan(flight, func() (any, error) {
		fctx, cancel := c.flightContext(ctx)
		defer cancel()
		// a flight that finished just before this one may already have stored it
		if !force {
			if res, _ := c.lookup(fctx, req); res != nil {
				return res, nil
			}
		}
		return c.compute(fctx, req, log)
	})

	select {
	case <-ctx.Done():
		// the flight keeps running for the callers still waiting on it
		err := ErrProducer.Wrap(ctx.Err())
		log.DebugCtx(ctx, "caller left a shared recompute", zap.Error(ctx.Err()))
		return &Result{Value: ErrorFragment(req.Kind, err), Err: err}, nil
	case r := <-ch:
		if r.Shared {
			c.stats.record(ctx, kind, outcomeShared)
		}
		if r.Err != nil {
			return nil, r.Err
		}
		res := *r.Val.(*Result)
		return &res, nil
	}
}

// flightContext keeps the starting caller's values but not its cancellation
func (c *FetchCache) flightContext(ctx context.Context) (context.Context, context.CancelFunc) {
	fctx := context.WithoutCancel(ctx)
	if c.flightTO <= 0 {
		return fctx, func() {}
	}
	return context.WithTimeout(fctx, c.flightTO)
}

// lookup returns a valid non-empty cached artifact, or nil and the reason
func (c *FetchCache) lookup(ctx context.Context, req Request) (*Result, outcome) {
	if !c.store.Exists(ctx, req.Key, req.Kind) {
		return nil, outcomeMiss
	}
	a, ok := c.store.Load(ctx, req.Key, req.Kind)
	switch {
	case !ok:
		// unreadable or corrupt
		return nil, outcomeMiss
	case a.Empty():
		return nil, outcomeEmpty
	case !req.Policy.Valid(a.CreatedAt, c.clock.Now(), c.loc):
		return nil, outcomeStale
	}
	return &Result{Value: a.Value, FromCache: true, CreatedAt: a.CreatedAt}, outcomeHit
}

// compute runs the producer and persists successes
func (c *FetchCache) compute(ctx context.Context, req Request, log *logger.CtxZapLogger) (*Result, error) {
	kind := string(req.Kind)
	start := c.clock.Now()
	value, err := c.runProducer(ctx, req.Producer)
	c.stats.observe(ctx, kind, c.clock.Since(start).Seconds(), err != nil)

	if err != nil {
		c.stats.record(ctx, kind, outcomeProdErr)
		log.WarnCtx(ctx, "producer failed, nothing cached",
			zap.String("class", string(errcode.ClassOf(err))), zap.Error(err))
		return &Result{Value: ErrorFragment(req.Kind, err), Err: err}, nil
	}

	res := &Result{Value: value, CreatedAt: c.clock.Now()}
	codec, _ := artifact.CodecFor(req.Kind)
	if codec.Empty(value) {
		// an empty payload is never served, but it still replaces what was there
		c.stats.record(ctx, kind, outcomeEmpty)
		log.DebugCtx(ctx, "producer returned an empty payload, dropping the stored artifact")
		if err := c.store.Delete(ctx, req.Key, req.Kind); err != nil {
			c.stats.record(ctx, kind, outcomeStoreErr)
			log.WarnCtx(ctx, "stale artifact not removed", zap.Error(err))
			res.StoreErr = err
		}
		return res, nil
	}

	if err := c.store.Save(ctx, req.Key, req.Kind, value, req.SaveOptions...); err != nil {
		if errcode.ClassOf(err) == errcode.ClassContract {
			return nil, err
		}
		c.stats.record(ctx, kind, outcomeStoreErr)
		log.WarnCtx(ctx, "artifact not cached, serving fresh payload", zap.Error(err))
		res.StoreErr = err
	}
	return res, nil
}

// runProducer converts panics and untyped errors into LayeredErrors
func (c *FetchCache) runProducer(ctx context.Context, p Producer) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrProducerPanic.Wrap(fmt.Errorf("panic: %v", r))
			c.log.ErrorCtx(ctx, "producer panicked", zap.Any("panic", r))
		}
	}()
	value, err = p(ctx)
	if err != nil {
		if _, ok := errcode.As(err); !ok {
			err = ErrProducer.Wrap(err)
		}
	}
	return value, err
}

// ErrorFragment user-visible stand-in for a payload that could not be produced
func ErrorFragment(kind artifact.Kind, err error) any {
	msg := UserMessage(err)
	switch kind {
	case artifact.KindHTML:
		return `<div class="error">` + html.EscapeString(msg) + `</div>`
	case artifact.KindTable:
		return table.ErrorFrame(msg)
	default:
		return nil
	}
}

// UserMessage short diagnostic for display
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if le, ok := errcode.As(err); ok {
		if cause := le.Cause(); cause != nil && le.Class() != errcode.ClassInternal {
			return le.Message() + ": " + cause.Error()
		}
		return le.Message()
	}
	return err.Error()
}
