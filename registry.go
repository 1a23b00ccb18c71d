package interceptz

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/zoobzio/clockz"
	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Factory creates the interceptor instance a single session uses.
type Factory func() Interceptor

// registration is either a shared instance or a per-session factory.
type registration struct {
	instance Interceptor
	factory  Factory
}

// Registry holds the ordered interceptor configuration of a pipeline and
// hands out sessions bound to a terminal executor. Registration order is the
// order interceptors see calls in: the first registered runs outermost.
//
// Registration is closed by the first call to Session; a registry is safe
// for concurrent use from then on.
//
//	reg := interceptz.NewRegistry("catalog",
//	    interceptz.WithLogger(slog.Default()),
//	)
//	reg.Register(audit)
//	reg.RegisterFactory(func() interceptz.Interceptor { return newTenantFilter() })
//
//	func handle(w http.ResponseWriter, r *http.Request) {
//	    p, err := reg.Session(store)
//	    ...
//	    n, err := interceptz.Execute[int64](p, countActive)
//	}
type Registry struct {
	name    Name
	mu      sync.Mutex
	entries []registration
	frozen  bool
	session atomic.Int64

	clock   clockz.Clock
	logger  *slog.Logger
	metrics *metricz.Registry
	tracer  *tracez.Tracer
	hooks   *hookz.Hooks[PipelineEvent]
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the clock used for build and dispatch timing.
func WithClock(clock clockz.Clock) Option {
	return func(r *Registry) {
		r.clock = clock
	}
}

// WithLogger sets the logger chain builds are reported to at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithMetrics shares an existing metrics registry.
func WithMetrics(metrics *metricz.Registry) Option {
	return func(r *Registry) {
		r.metrics = metrics
	}
}

// WithTracer shares an existing tracer.
func WithTracer(tracer *tracez.Tracer) Option {
	return func(r *Registry) {
		r.tracer = tracer
	}
}

// NewRegistry creates an empty registry.
func NewRegistry(name Name, opts ...Option) *Registry {
	r := &Registry{
		name:  name,
		clock: clockz.RealClock,
		hooks: hookz.New[PipelineEvent](),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.metrics == nil {
		r.metrics = metricz.New()
	}
	if r.tracer == nil {
		r.tracer = tracez.New()
	}

	r.metrics.Counter(PipelineDispatchTotal)
	r.metrics.Counter(PipelineDispatchFailures)
	r.metrics.Counter(PipelineCacheHits)
	r.metrics.Counter(PipelineCacheMisses)
	r.metrics.Counter(PipelineChainBuilds)
	r.metrics.Gauge(PipelineSessionsTotal)
	r.metrics.Gauge(PipelineChainBuildMs)
	r.metrics.Gauge(PipelineDispatchMs)

	return r
}

// Register appends shared interceptor instances. The same instance serves
// every session, so it must be safe for concurrent use.
func (r *Registry) Register(interceptors ...Interceptor) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	for i, ic := range interceptors {
		if ic == nil {
			return fmt.Errorf("register %s[%d]: %w", r.name, len(r.entries)+i, ErrNilInterceptor)
		}
	}
	for _, ic := range interceptors {
		r.entries = append(r.entries, registration{instance: ic})
	}
	return nil
}

// RegisterFactory appends interceptors created afresh for every session.
func (r *Registry) RegisterFactory(factories ...Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrRegistryFrozen
	}
	for i, f := range factories {
		if f == nil {
			return fmt.Errorf("register %s[%d]: %w", r.name, len(r.entries)+i, ErrNilInterceptor)
		}
	}
	for _, f := range factories {
		r.entries = append(r.entries, registration{factory: f})
	}
	return nil
}

// Session freezes the registry and returns a pipeline bound to exec, with
// interceptor instances in registration order. Each session owns its chain
// cache. A nil executor, or a factory that returns nil, fails here rather
// than on the first call.
func (r *Registry) Session(exec Executor) (*Pipeline, error) {
	if exec == nil {
		return nil, fmt.Errorf("session %s: %w", r.name, ErrNilExecutor)
	}

	r.mu.Lock()
	r.frozen = true
	entries := slices.Clone(r.entries)
	r.mu.Unlock()

	interceptors := make([]Interceptor, 0, len(entries))
	for i, e := range entries {
		ic := e.instance
		if e.factory != nil {
			ic = e.factory()
		}
		if ic == nil {
			return nil, fmt.Errorf("session %s: interceptor %d: %w", r.name, i, ErrNilInterceptor)
		}
		interceptors = append(interceptors, ic)
	}

	r.metrics.Gauge(PipelineSessionsTotal).Set(float64(r.session.Add(1)))

	return &Pipeline{
		name:         r.name,
		interceptors: interceptors,
		exec:         exec,
		cache:        &chainCache{},
		registry:     r,
	}, nil
}

// Name returns the registry name.
func (r *Registry) Name() Name {
	return r.name
}

// Len returns the number of registered interceptors.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Metrics returns the metrics registry shared by all sessions.
func (r *Registry) Metrics() *metricz.Registry {
	return r.metrics
}

// Tracer returns the tracer shared by all sessions.
func (r *Registry) Tracer() *tracez.Tracer {
	return r.tracer
}

// OnChainBuilt registers a handler called asynchronously after a session
// composes a chain.
func (r *Registry) OnChainBuilt(handler func(context.Context, PipelineEvent) error) error {
	_, err := r.hooks.Hook(PipelineEventChainBuilt, handler)
	return err
}

// OnDispatchFailed registers a handler called asynchronously after a
// dispatch returns an error.
func (r *Registry) OnDispatchFailed(handler func(context.Context, PipelineEvent) error) error {
	_, err := r.hooks.Hook(PipelineEventDispatchFailed, handler)
	return err
}

// Close shuts down the tracer and hook workers.
func (r *Registry) Close() error {
	if r.tracer != nil {
		r.tracer.Close()
	}
	r.hooks.Close()
	return nil
}

// NewPipeline is a shortcut for a registry holding interceptors, in order,
// and a single session bound to exec.
func NewPipeline(name Name, exec Executor, interceptors ...Interceptor) (*Pipeline, error) {
	r := NewRegistry(name)
	if err := r.Register(interceptors...); err != nil {
		return nil, err
	}
	return r.Session(exec)
}
