package telemetry

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

// NewExporter installs a Prometheus backed meter provider as the global one.
// The exporter is also the /metrics handler.
func NewExporter() (*prometheus.Exporter, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)

	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, errors.Wrap(err, "initializing prometheus exporter")
	}
	global.SetMeterProvider(exporter.MeterProvider())

	return exporter, nil
}

// Instruments groups the service counters. A nil *Instruments records
// nothing.
type Instruments struct {
	completed      metric.Int64Counter
	interactions   metric.Int64Counter
	deleted        metric.Int64Counter
	deleteFailures metric.Int64Counter
}

func NewInstruments(meter metric.Meter) *Instruments {
	m := metric.Must(meter)

	return &Instruments{
		completed: m.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests, by HTTP method and response status"),
		),
		interactions: m.NewInt64Counter(
			"articles/interactions",
			metric.WithDescription("Count of article reactions, by action and outcome"),
		),
		deleted: m.NewInt64Counter(
			"attachments/deleted",
			metric.WithDescription("Count of removed attachment files"),
		),
		deleteFailures: m.NewInt64Counter(
			"attachments/delete_failures",
			metric.WithDescription("Count of attachment files that could not be removed"),
		),
	}
}

func (i *Instruments) Interaction(ctx context.Context, action, outcome string) {
	if i == nil {
		return
	}
	i.interactions.Add(ctx, 1, attribute.String("action", action), attribute.String("outcome", outcome))
}

func (i *Instruments) AttachmentDeleted(ctx context.Context) {
	if i == nil {
		return
	}
	i.deleted.Add(ctx, 1)
}

func (i *Instruments) AttachmentDeleteFailed(ctx context.Context) {
	if i == nil {
		return
	}
	i.deleteFailures.Add(ctx, 1)
}

// Middleware counts completed requests by method and status code.
func (i *Instruments) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if i == nil {
			return
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		i.completed.Add(r.Context(), 1,
			attribute.String("method", r.Method),
			attribute.String("status", strconv.Itoa(status)),
		)
	})
}
