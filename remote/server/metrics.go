package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type evalMetric struct {
	duration *prometheus.HistogramVec
}

func newEvalMetric() evalMetric {
	duration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lambda",
			Subsystem: "server",
			Name:      "eval_duration_seconds",
			Help:      "The time spent evaluating terms, by result.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 5, 10},
		},
		[]string{"result"},
	)

	if err := prometheus.Register(duration); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			duration = are.ExistingCollector.(*prometheus.HistogramVec)
		} else {
			logger.Errorf("failed to register lambda_server_eval_duration_seconds: %v", err)
		}
	}

	return evalMetric{duration}
}

func (m evalMetric) observe(err error, begin time.Time) {
	took := time.Since(begin).Seconds()
	if err == nil {
		m.duration.WithLabelValues("success").Observe(took)
	} else {
		m.duration.WithLabelValues("failure").Observe(took)
	}
}

func spanTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	opts = append(opts, trace.WithAttributes(attribute.String("request", RequestID(ctx))))
	return otel.Tracer("go-ipld-lambda").Start(ctx, "Lambda.Server."+spanName, opts...)
}
