// Package warmup keeps hot reports in the cache by rendering them on a
// schedule. gocron decides when a job runs; an ants pool bounds how many
// renders hit the providers at once.
package warmup

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/cache"
	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/report"
)

// Renderer renders one report; *report.Service
type Renderer interface {
	Render(ctx context.Context, mode, typ string, q report.Query) (*report.Output, error)
}

// JobResult outcome of the latest run of a job
type JobResult struct {
	Name      string        `json:"name"`
	Key       string        `json:"key,omitempty"`
	FromCache bool          `json:"from_cache"`
	Err       string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed the render returned an error or an error payload
func (r JobResult) Failed() bool {
	return r.Err != ""
}

// Warmer scheduled cache warmup
type Warmer struct {
	cfg       Config
	renderer  Renderer
	clock     clockwork.Clock
	log       *logger.CtxZapLogger
	scheduler gocron.Scheduler
	pool      *ants.Pool

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	last map[string]JobResult

	started  bool
	stopOnce sync.Once
}

// Option warmer option
type Option func(*Warmer)

// WithClock clock for the scheduler and result timestamps
func WithClock(c clockwork.Clock) Option {
	return func(w *Warmer) {
		if c != nil {
			w.clock = c
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(w *Warmer) {
		if l != nil {
			w.log = l
		}
	}
}

// New creates a stopped Warmer
func New(cfg Config, r Renderer, opts ...Option) (*Warmer, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, _ := cfg.Location()

	w := &Warmer{
		cfg:      cfg,
		renderer: r,
		clock:    clockwork.NewRealClock(),
		log:      logger.GetLogger("warmup"),
		last:     make(map[string]JobResult),
	}
	for _, opt := range opts {
		opt(w)
	}

	pool, err := ants.NewPool(cfg.Workers)
	if err != nil {
		return nil, ErrConfig.Wrap(err)
	}
	s, err := gocron.NewScheduler(
		gocron.WithLocation(loc),
		gocron.WithClock(w.clock),
		gocron.WithLogger(schedLogger{w.log}),
	)
	if err != nil {
		pool.Release()
		return nil, ErrSchedule.Wrap(err)
	}
	w.pool = pool
	w.scheduler = s
	w.ctx, w.cancel = context.WithCancel(context.Background())
	return w, nil
}

// Jobs configured jobs
func (w *Warmer) Jobs() []Job {
	return w.cfg.Jobs
}

// Start schedules every job and starts the scheduler
func (w *Warmer) Start() error {
	for _, j := range w.cfg.Jobs {
		expr := j.Schedule
		if expr == "" {
			expr = w.cfg.Schedule
		}
		jobOpts := []gocron.JobOption{
			gocron.WithName(j.Name()),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		}
		if w.cfg.RunOnStart {
			jobOpts = append(jobOpts, gocron.WithStartAt(gocron.WithStartImmediately()))
		}
		if _, err := w.scheduler.NewJob(
			gocron.CronJob(expr, false),
			gocron.NewTask(func(j Job) { w.Run(w.ctx, j) }, j),
			jobOpts...,
		); err != nil {
			return ErrSchedule.Wrap(err).WithData("job", j.Name()).WithData("schedule", expr)
		}
	}
	w.scheduler.Start()
	w.started = true
	w.log.Info("warmup started", zap.Int("jobs", len(w.cfg.Jobs)), zap.Int("workers", w.cfg.Workers))
	return nil
}

// Stop shuts the scheduler down and waits for running renders
func (w *Warmer) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		w.cancel()
		if w.started {
			err = w.scheduler.Shutdown()
		}
		w.pool.Release()
	})
	return err
}

// RunAll renders every configured job once and waits for them
func (w *Warmer) RunAll(ctx context.Context) []JobResult {
	return w.Run(ctx, w.cfg.Jobs...)
}

// Run renders jobs through the pool and waits; results follow the input order
func (w *Warmer) Run(ctx context.Context, jobs ...Job) []JobResult {
	results := make([]JobResult, len(jobs))
	var wg sync.WaitGroup
	for i, j := range jobs {
		i, j := i, j
		wg.Add(1)
		err := w.pool.Submit(func() {
			defer wg.Done()
			results[i] = w.render(ctx, j)
		})
		if err != nil {
			wg.Done()
			results[i] = JobResult{Name: j.Name(), Err: "warmup pool: " + err.Error(), StartedAt: w.clock.Now()}
		}
	}
	wg.Wait()

	w.mu.Lock()
	for _, r := range results {
		w.last[r.Name] = r
	}
	w.mu.Unlock()
	return results
}

func (w *Warmer) render(ctx context.Context, j Job) JobResult {
	ctx, cancel := context.WithTimeout(ctx, w.cfg.Timeout)
	defer cancel()

	start := w.clock.Now()
	res := JobResult{Name: j.Name(), StartedAt: start}
	out, err := w.renderer.Render(ctx, j.Mode, j.Type, j.Query)
	switch {
	case err != nil:
		res.Err = cache.UserMessage(err)
	case out.Failed():
		res.Key = out.Key
		res.Err = cache.UserMessage(out.Err)
	default:
		res.Key = out.Key
		res.FromCache = out.FromCache
	}
	res.Duration = w.clock.Since(start)

	if res.Failed() {
		w.log.WarnCtx(ctx, "warmup job failed", zap.String("job", res.Name), zap.String("error", res.Err))
	} else {
		w.log.DebugCtx(ctx, "warmup job done", zap.String("job", res.Name),
			zap.String("key", res.Key), zap.Bool("from_cache", res.FromCache), zap.Duration("took", res.Duration))
	}
	return res
}

// Last latest result per job, by name
func (w *Warmer) Last() []JobResult {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]JobResult, 0, len(w.last))
	for _, r := range w.last {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Check fails while any job's latest run failed; jobs that never ran count as healthy
func (w *Warmer) Check(context.Context) error {
	var failed []string
	last := w.Last()
	for _, r := range last {
		if r.Failed() {
			failed = append(failed, r.Name)
		}
	}
	if len(failed) == 0 {
		return nil
	}
	return ErrJobsFailed.WithMsgf("%d of %d warmup jobs failing: %s",
		len(failed), len(last), strings.Join(failed, ", "))
}

// HealthCheck non-critical "warmup" check; details carry each job's latest run
func (w *Warmer) HealthCheck() health.Check {
	return health.Check{
		Name: "warmup",
		Run:  w.Check,
		Details: func() map[string]any {
			out := map[string]any{}
			for _, r := range w.Last() {
				job := map[string]any{
					"key":        r.Key,
					"from_cache": r.FromCache,
					"started_at": r.StartedAt,
					"duration":   r.Duration.String(),
				}
				if r.Err != "" {
					job["error"] = r.Err
				}
				out[r.Name] = job
			}
			return out
		},
	}
}

// schedLogger routes gocron's own logs through zap
type schedLogger struct {
	log *logger.CtxZapLogger
}

func (l schedLogger) Debug(msg string, args ...any) { l.log.Debug(msg, argsField(args)) }
func (l schedLogger) Info(msg string, args ...any)  { l.log.Info(msg, argsField(args)) }
func (l schedLogger) Warn(msg string, args ...any)  { l.log.Warn(msg, argsField(args)) }
func (l schedLogger) Error(msg string, args ...any) { l.log.Error(msg, argsField(args)) }

func argsField(args []any) zap.Field {
	if len(args) == 0 {
		return zap.Skip()
	}
	return zap.String("args", fmt.Sprint(args...))
}

// Shutdown Stop, for the application container
func (w *Warmer) Shutdown() error {
	return w.Stop()
}
