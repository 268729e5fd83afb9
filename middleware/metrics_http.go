package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics HTTP server instruments
type HTTPMetrics struct {
	requestsTotal      metric.Int64Counter
	requestDuration    metric.Float64Histogram
	requestsInFlight   metric.Int64UpDownCounter
	responseSize       metric.Int64Histogram
	recordResponseSize bool
}

// NewHTTPMetrics instruments on the global meter provider
func NewHTTPMetrics(recordResponseSize bool) (*HTTPMetrics, error) {
	return NewHTTPMetricsWithMeter(otel.Meter("github.com/KOMKZ/tickerdesk/server"), recordResponseSize)
}

// NewHTTPMetricsWithMeter instruments on meter
func NewHTTPMetricsWithMeter(meter metric.Meter, recordResponseSize bool) (*HTTPMetrics, error) {
	requestsTotal, err := meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("HTTP requests served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	requestDuration, err := meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestsInFlight, err := meter.Int64UpDownCounter(
		"http_requests_in_flight",
		metric.WithDescription("HTTP requests being served"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	m := &HTTPMetrics{
		requestsTotal:      requestsTotal,
		requestDuration:    requestDuration,
		requestsInFlight:   requestsInFlight,
		recordResponseSize: recordResponseSize,
	}

	if recordResponseSize {
		m.responseSize, err = meter.Int64Histogram(
			"http_response_size_bytes",
			metric.WithDescription("HTTP response body size"),
			metric.WithUnit("By"),
		)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Handler gin middleware
func (m *HTTPMetrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()
		// route pattern, not the raw path, keeps cardinality bounded
		path := c.FullPath()
		if path == "" {
			path = "unknown"
		}

		m.requestsInFlight.Add(ctx, 1)
		defer m.requestsInFlight.Add(ctx, -1)

		c.Next()

		status := c.Writer.Status()
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.Int("status_code", status),
			attribute.String("status_class", getStatusClass(status)),
		)
		m.requestsTotal.Add(ctx, 1, attrs)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), attrs)

		if m.recordResponseSize && m.responseSize != nil {
			if size := int64(c.Writer.Size()); size > 0 {
				m.responseSize.Record(ctx, size, metric.WithAttributes(
					attribute.String("method", c.Request.Method),
					attribute.String("path", path),
				))
			}
		}
	}
}

func getStatusClass(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return "2xx"
	case statusCode >= 300 && statusCode < 400:
		return "3xx"
	case statusCode >= 400 && statusCode < 500:
		return "4xx"
	case statusCode >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
