// Package server is the tickerdesk HTTP front-end: gin routes that map a
// request onto a report, its cache key and the artifact store.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/KOMKZ/tickerdesk/health"
	"github.com/KOMKZ/tickerdesk/httpx"
	"github.com/KOMKZ/tickerdesk/limiter"
	"github.com/KOMKZ/tickerdesk/logger"
	"github.com/KOMKZ/tickerdesk/middleware"
	"github.com/KOMKZ/tickerdesk/report"
)

// Server gin engine plus its http.Server
type Server struct {
	cfg        Config
	engine     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	log        *logger.CtxZapLogger

	health  *health.Aggregator
	limiter *limiter.Limiter
	meter   metric.Meter

	tracer  trace.TracerProvider
	service string
}

// Option server option
type Option func(*Server)

// WithHealth serves /health from agg
func WithHealth(agg *health.Aggregator) Option {
	return func(s *Server) { s.health = agg }
}

// WithForceLimiter rate limits ?force=true requests
func WithForceLimiter(l *limiter.Limiter) Option {
	return func(s *Server) { s.limiter = l }
}

// WithMeter meter for HTTP metrics (default global provider)
func WithMeter(m metric.Meter) Option {
	return func(s *Server) { s.meter = m }
}

// WithTracing starts a span per request under service
func WithTracing(tp trace.TracerProvider, service string) Option {
	return func(s *Server) {
		s.tracer = tp
		s.service = service
	}
}

// WithLogger sets the logger
func WithLogger(l *logger.CtxZapLogger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// New builds the engine; middleware order: CORS, tracing, trace id, metrics,
// access log, error logging, recovery, force limiter
func New(cfg Config, svc *report.Service, opts ...Option) (*Server, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	s := &Server{cfg: cfg, log: logger.GetLogger("server")}
	for _, opt := range opts {
		opt(s)
	}

	gin.DefaultWriter = logger.NewGinLogWriter("server")
	gin.DefaultErrorWriter = logger.NewGinLogWriter("server")
	gin.SetMode(cfg.Mode)

	engine := gin.New()
	engine.HandleMethodNotAllowed = true

	if cfg.CORS.Enable {
		engine.Use(middleware.CORSWithConfig(cfg.CORS.CORSConfig))
	}
	if s.tracer != nil {
		engine.Use(otelgin.Middleware(s.service, otelgin.WithTracerProvider(s.tracer)))
	}
	engine.Use(middleware.TraceID(middleware.DefaultTraceConfig()))
	if cfg.Metrics {
		var (
			m   *middleware.HTTPMetrics
			err error
		)
		if s.meter != nil {
			m, err = middleware.NewHTTPMetricsWithMeter(s.meter, true)
		} else {
			m, err = middleware.NewHTTPMetrics(true)
		}
		if err != nil {
			return nil, ErrConfig.Wrap(err)
		}
		engine.Use(m.Handler())
	}
	if cfg.RequestLog.Enable {
		engine.Use(middleware.RequestLogWithConfig(middleware.RequestLogConfig{
			Module:    "server",
			SkipPaths: cfg.RequestLog.SkipPaths,
		}))
	}
	if cfg.ErrorLogging.Enable {
		engine.Use(httpx.ErrorLoggingMiddleware(cfg.ErrorLogging))
	}
	engine.Use(middleware.Recovery())
	if s.limiter != nil {
		engine.Use(middleware.ForceRefreshLimiter(s.limiter))
	}

	engine.NoRoute(httpx.NoRouteHandler())
	engine.NoMethod(httpx.NoMethodHandler())

	if cfg.Health.Enabled {
		middleware.RegisterHealthRoutes(engine, s.health)
	}
	NewHandler(svc).Register(engine)

	s.engine = engine
	return s, nil
}

// Engine the gin engine, for tests and extra routes
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

// Addr bound address once started
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start binds the port and serves in the background
// Bind errors are returned synchronously.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return ErrStart.Wrap(err).WithData("port", s.cfg.Port)
	}
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	go func() {
		s.log.Info("http server started", zap.String("addr", ln.Addr().String()), zap.String("mode", s.cfg.Mode))
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http server stopped", zap.Error(err))
		}
	}()
	return nil
}

// Shutdown drains in-flight requests within the configured timeout
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
	defer cancel()

	start := time.Now()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	s.log.Info("http server closed", zap.Duration("took", time.Since(start)))
	return nil
}
