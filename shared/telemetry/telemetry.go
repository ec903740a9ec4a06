// Package telemetry wires OpenTelemetry tracing and metrics for the booking platform.
// Metrics are always exposed to Prometheus; OTLP export is added when an endpoint is set.
package telemetry

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	metricSDK "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	traceSDK "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 5 * time.Second

// Config holds telemetry configuration for a service
type Config struct {
	ServiceName    string
	ServiceVersion string
	OTLPEndpoint   string
}

type Telemetry struct {
	tracer trace.Tracer
	meter  metric.Meter
	config Config

	counters   sync.Map
	histograms sync.Map
	gauges     sync.Map
}

// NewTelemetry creates a telemetry instance on top of the global providers
func NewTelemetry(config Config) *Telemetry {
	return &Telemetry{
		config: config,
		tracer: otel.Tracer(config.ServiceName),
		meter:  otel.Meter(config.ServiceName),
	}
}

// InitTelemetry installs the global tracer and meter providers and returns a shutdown func
func InitTelemetry(ctx context.Context, config Config) (*Telemetry, func(), error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(config.ServiceName),
			semconv.ServiceVersionKey.String(config.ServiceVersion),
		),
	)
	if err != nil {
		return nil, nil, err
	}

	traceProvider, err := setupTracing(ctx, res, config.OTLPEndpoint)
	if err != nil {
		return nil, nil, err
	}

	meterProvider, err := setupMetrics(ctx, res, config.OTLPEndpoint)
	if err != nil {
		shutdownProvider(traceProvider.Shutdown)
		return nil, nil, err
	}

	otel.SetTracerProvider(traceProvider)
	otel.SetMeterProvider(meterProvider)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	shutdown := func() {
		shutdownProvider(traceProvider.Shutdown)
		shutdownProvider(meterProvider.Shutdown)
	}

	return NewTelemetry(config), shutdown, nil
}

func setupTracing(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*traceSDK.TracerProvider, error) {
	opts := []traceSDK.TracerProviderOption{
		traceSDK.WithResource(res),
		traceSDK.WithSampler(traceSDK.AlwaysSample()),
	}

	if otlpEndpoint != "" {
		traceExporter, err := otlptracehttp.New(ctx,
			otlptracehttp.WithEndpoint(otlpEndpoint),
			otlptracehttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, traceSDK.WithBatcher(traceExporter))
	}

	return traceSDK.NewTracerProvider(opts...), nil
}

func setupMetrics(ctx context.Context, res *resource.Resource, otlpEndpoint string) (*metricSDK.MeterProvider, error) {
	prometheusExporter, err := prometheus.New()
	if err != nil {
		return nil, err
	}

	opts := []metricSDK.Option{
		metricSDK.WithResource(res),
		metricSDK.WithReader(prometheusExporter),
	}

	if otlpEndpoint != "" {
		otlpExporter, err := otlpmetrichttp.New(ctx,
			otlpmetrichttp.WithEndpoint(otlpEndpoint),
			otlpmetrichttp.WithInsecure(),
		)
		if err != nil {
			return nil, err
		}
		opts = append(opts, metricSDK.WithReader(metricSDK.NewPeriodicReader(otlpExporter,
			metricSDK.WithInterval(30*time.Second),
		)))
	}

	return metricSDK.NewMeterProvider(opts...), nil
}

func shutdownProvider(shutdown func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = shutdown(ctx)
}

// StartSpan starts a new trace span
func (t *Telemetry) StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

func (t *Telemetry) GetMeter() metric.Meter {
	return t.meter
}

func (t *Telemetry) GetServiceName() string {
	return t.config.ServiceName
}

func (t *Telemetry) counter(name, description string) (metric.Int64Counter, error) {
	if c, ok := t.counters.Load(name); ok {
		return c.(metric.Int64Counter), nil
	}
	c, err := t.meter.Int64Counter(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	actual, _ := t.counters.LoadOrStore(name, c)
	return actual.(metric.Int64Counter), nil
}

func (t *Telemetry) histogram(name, description string) (metric.Float64Histogram, error) {
	if h, ok := t.histograms.Load(name); ok {
		return h.(metric.Float64Histogram), nil
	}
	h, err := t.meter.Float64Histogram(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	actual, _ := t.histograms.LoadOrStore(name, h)
	return actual.(metric.Float64Histogram), nil
}

func (t *Telemetry) gauge(name, description string) (metric.Float64Gauge, error) {
	if g, ok := t.gauges.Load(name); ok {
		return g.(metric.Float64Gauge), nil
	}
	g, err := t.meter.Float64Gauge(name, metric.WithDescription(description))
	if err != nil {
		return nil, err
	}
	actual, _ := t.gauges.LoadOrStore(name, g)
	return actual.(metric.Float64Gauge), nil
}

type contextKey string

const telemetryKey contextKey = "telemetry"

// WithTelemetry injects telemetry into context
func WithTelemetry(ctx context.Context, tel *Telemetry) context.Context {
	return context.WithValue(ctx, telemetryKey, tel)
}

// FromContext returns the telemetry carried by ctx, or one bound to the global providers
func FromContext(ctx context.Context) *Telemetry {
	if tel, ok := ctx.Value(telemetryKey).(*Telemetry); ok && tel != nil {
		return tel
	}
	return fallback()
}

var (
	fallbackOnce sync.Once
	fallbackTel  *Telemetry
)

func fallback() *Telemetry {
	fallbackOnce.Do(func() {
		fallbackTel = NewTelemetry(DefaultConfig)
	})
	return fallbackTel
}

// StartSpan starts a new trace span using telemetry from context
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return FromContext(ctx).StartSpan(ctx, name, opts...)
}

// RecordCounter adds value to a counter, tagged with the service name
func RecordCounter(ctx context.Context, name, description string, value int64, attrs ...attribute.KeyValue) {
	tel := FromContext(ctx)
	counter, err := tel.counter(name, description)
	if err != nil {
		return
	}
	attrs = append(attrs, attribute.String("service", tel.GetServiceName()))
	counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// RecordHistogram records one observation
func RecordHistogram(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	tel := FromContext(ctx)
	histogram, err := tel.histogram(name, description)
	if err != nil {
		return
	}
	attrs = append(attrs, attribute.String("service", tel.GetServiceName()))
	histogram.Record(ctx, value, metric.WithAttributes(attrs...))
}

// RecordGauge sets the current value of a gauge
func RecordGauge(ctx context.Context, name, description string, value float64, attrs ...attribute.KeyValue) {
	tel := FromContext(ctx)
	gauge, err := tel.gauge(name, description)
	if err != nil {
		return
	}
	attrs = append(attrs, attribute.String("service", tel.GetServiceName()))
	gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}
