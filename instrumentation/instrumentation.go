package instrumentation

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	// DefaultServiceName is used when the config does not name the service.
	DefaultServiceName = "oauth2-engine"

	// DefaultServiceVersion is used when none is provided.
	DefaultServiceVersion = "unknown"

	scopeName = "github.com/tokenforge/oauth2-engine"
)

// Config holds instrumentation configuration.
type Config struct {
	// ServiceName is the name of the service emitting telemetry.
	ServiceName string

	// ServiceVersion is the version of the service.
	ServiceVersion string

	// Enabled controls whether instrumentation is active. When false,
	// no-op providers are used.
	Enabled bool

	// MeterProvider supplies the meter. Nil with Enabled true keeps the
	// no-op provider; hosts typically pass an SDK provider wired to their
	// exporter.
	MeterProvider metric.MeterProvider

	// TracerProvider supplies the tracer. Same semantics as MeterProvider.
	TracerProvider trace.TracerProvider

	// Resource allows custom resource attributes. If nil, a default
	// resource is created from the service name and version.
	Resource *resource.Resource
}

// Instrumentation bundles the meter, tracer, and pre-built metric
// instruments used by the engine.
type Instrumentation struct {
	config   Config
	resource *resource.Resource

	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider

	tracer  trace.Tracer
	metrics *Metrics

	shutdownFuncs []func(context.Context) error
	shutdownOnce  sync.Once
}

// New creates a new instrumentation instance.
func New(config Config) (*Instrumentation, error) {
	if config.ServiceName == "" {
		config.ServiceName = DefaultServiceName
	}
	if config.ServiceVersion == "" {
		config.ServiceVersion = DefaultServiceVersion
	}

	inst := &Instrumentation{
		config:         config,
		meterProvider:  metricnoop.NewMeterProvider(),
		tracerProvider: tracenoop.NewTracerProvider(),
	}

	if config.Enabled {
		res := config.Resource
		if res == nil {
			var err error
			res, err = resource.New(
				context.Background(),
				resource.WithAttributes(
					semconv.ServiceName(config.ServiceName),
					semconv.ServiceVersion(config.ServiceVersion),
				),
			)
			if err != nil {
				return nil, fmt.Errorf("failed to create resource: %w", err)
			}
		}
		inst.resource = res

		if config.MeterProvider != nil {
			inst.meterProvider = config.MeterProvider
		}
		if config.TracerProvider != nil {
			inst.tracerProvider = config.TracerProvider
		}
	}

	inst.tracer = inst.tracerProvider.Tracer(scopeName)

	metrics, err := newMetrics(inst.meterProvider.Meter(scopeName))
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics: %w", err)
	}
	inst.metrics = metrics

	return inst, nil
}

// NewNoop returns instrumentation backed entirely by no-op providers.
func NewNoop() *Instrumentation {
	inst, err := New(Config{Enabled: false})
	if err != nil {
		// The no-op path has no failure modes.
		panic(fmt.Sprintf("instrumentation: noop construction failed: %v", err))
	}
	return inst
}

// Tracer returns the tracer for pipeline spans.
func (i *Instrumentation) Tracer() trace.Tracer {
	return i.tracer
}

// Metrics returns the pre-built metric instruments.
func (i *Instrumentation) Metrics() *Metrics {
	return i.metrics
}

// Resource returns the telemetry resource, nil when disabled.
func (i *Instrumentation) Resource() *resource.Resource {
	return i.resource
}

// RegisterShutdown registers a function to run on Shutdown. Not safe to call
// after the instance is in use.
func (i *Instrumentation) RegisterShutdown(fn func(context.Context) error) {
	i.shutdownFuncs = append(i.shutdownFuncs, fn)
}

// Shutdown runs all registered shutdown functions once.
func (i *Instrumentation) Shutdown(ctx context.Context) error {
	var err error
	i.shutdownOnce.Do(func() {
		for _, fn := range i.shutdownFuncs {
			if e := fn(ctx); e != nil && err == nil {
				err = e
			}
		}
	})
	return err
}
