package middleware

import (
	"context"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/tdlimport/engine/infra/monitoring/metrics"
	"github.com/compozy/tdlimport/pkg/logger"
)

type httpInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func newInstruments(ctx context.Context, meter metric.Meter) *httpInstruments {
	log := logger.FromContext(ctx)
	var (
		ins httpInstruments
		err error
	)
	ins.total, err = meter.Int64Counter(
		metrics.MetricName("http_requests"),
		metric.WithDescription("Total HTTP requests"),
	)
	if err != nil {
		log.Error("Failed to create http requests total counter", "error", err)
		return nil
	}
	ins.duration, err = meter.Float64Histogram(
		metrics.MetricName("http_request_duration_seconds"),
		metric.WithDescription("HTTP request latency"),
		metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
	)
	if err != nil {
		log.Error("Failed to create http request duration histogram", "error", err)
		return nil
	}
	ins.inFlight, err = meter.Int64UpDownCounter(
		metrics.MetricName("http_requests_in_flight"),
		metric.WithDescription("Currently active HTTP requests"),
	)
	if err != nil {
		log.Error("Failed to create http requests in flight counter", "error", err)
		return nil
	}
	return &ins
}

// HTTPMetrics returns a Gin middleware that collects HTTP metrics
func HTTPMetrics(ctx context.Context, meter metric.Meter) gin.HandlerFunc {
	ins := newInstruments(ctx, meter)
	return func(c *gin.Context) {
		if ins == nil {
			c.Next()
			return
		}
		start := time.Now()
		reqCtx := c.Request.Context()
		ins.inFlight.Add(reqCtx, 1)
		defer ins.inFlight.Add(reqCtx, -1)

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", path),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		ins.total.Add(reqCtx, 1, attrs)
		ins.duration.Record(reqCtx, time.Since(start).Seconds(), attrs)
	}
}
