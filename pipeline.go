package interceptz

import (
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/zoobzio/hookz"
	"github.com/zoobzio/metricz"
	"github.com/zoobzio/tracez"
)

// Observability constants for pipelines.
const (
	// Metrics.
	PipelineDispatchTotal    = metricz.Key("pipeline.dispatch.total")
	PipelineDispatchFailures = metricz.Key("pipeline.dispatch.failures")
	PipelineCacheHits        = metricz.Key("pipeline.cache.hits")
	PipelineCacheMisses      = metricz.Key("pipeline.cache.misses")
	PipelineChainBuilds      = metricz.Key("pipeline.chain.builds")
	PipelineChainBuildMs     = metricz.Key("pipeline.chain.build.ms")
	PipelineDispatchMs       = metricz.Key("pipeline.dispatch.ms")
	PipelineSessionsTotal    = metricz.Key("pipeline.sessions.total")

	// Spans.
	PipelineDispatchSpan = tracez.Key("pipeline.dispatch")
	PipelineBuildSpan    = tracez.Key("pipeline.chain.build")

	// Tags.
	PipelineTagShape        = tracez.Tag("pipeline.shape")
	PipelineTagType         = tracez.Tag("pipeline.type")
	PipelineTagCacheHit     = tracez.Tag("pipeline.cache_hit")
	PipelineTagInterceptors = tracez.Tag("pipeline.interceptors")
	PipelineTagSuccess      = tracez.Tag("pipeline.success")
	PipelineTagError        = tracez.Tag("pipeline.error")

	// Hook event keys.
	PipelineEventChainBuilt     = hookz.Key("pipeline.chain_built")
	PipelineEventDispatchFailed = hookz.Key("pipeline.dispatch_failed")
)

// PipelineEvent is emitted via hookz when a session composes a chain or a
// dispatch fails.
type PipelineEvent struct {
	Pipeline     Name          // Pipeline name
	Call         Call          // Shape and result type of the call
	Interceptors int           // Interceptors taking part in the chain
	CacheHit     bool          // Whether the chain came from the cache
	Error        error         // Dispatch error (dispatch_failed only)
	Duration     time.Duration // Build or dispatch duration
	Timestamp    time.Time     // When the event occurred
}

// Pipeline is a session: an ordered set of interceptor instances bound to a
// terminal Executor, with its own chain cache. Chains are composed on the
// first call for a given (result type, shape) and reused for every later
// call of that pair.
//
// A Pipeline is safe for concurrent use. Interceptors registered as shared
// instances are shared with every other session of the same Registry.
//
// Observability:
//   - pipeline.dispatch.total: every dispatch
//   - pipeline.dispatch.failures: dispatches that returned an error
//   - pipeline.cache.hits / pipeline.cache.misses: chain lookups
//   - pipeline.chain.builds: chains composed
//   - pipeline.chain.build.ms: duration of the last chain build
//   - pipeline.dispatch.ms: duration of the last dispatch
//
// Spans pipeline.dispatch and pipeline.chain.build are recorded on the
// registry tracer. The context passed to Dispatch reaches the chain as is.
type Pipeline struct {
	name         Name
	interceptors []Interceptor
	exec         Executor
	cache        *chainCache
	registry     *Registry
}

// Name returns the pipeline name.
func (p *Pipeline) Name() Name {
	return p.name
}

// Interceptors returns the session's interceptor instances in order.
func (p *Pipeline) Interceptors() []Interceptor {
	out := make([]Interceptor, len(p.interceptors))
	copy(out, p.interceptors)
	return out
}

// CachedChains returns the number of chains composed so far.
func (p *Pipeline) CachedChains() int {
	return p.cache.len()
}

// Metrics returns the metrics registry shared by the registry's sessions.
func (p *Pipeline) Metrics() *metricz.Registry {
	return p.registry.metrics
}

// Tracer returns the tracer shared by the registry's sessions.
func (p *Pipeline) Tracer() *tracez.Tracer {
	return p.registry.tracer
}

// Dispatch routes req through the chain for (typ, shape) and returns the
// result in erased form. For compiled shapes the result is the callable
// (Query[any], Query[Seq[any]], AsyncQuery[any] or AsyncQuery[*Stream[any]]).
// For sequence shapes typ is the element type.
//
// Errors returned by interceptors or the executor are returned unchanged.
func (p *Pipeline) Dispatch(ctx context.Context, shape Shape, typ reflect.Type, req Request) (result any, err error) {
	if !shape.Valid() || typ == nil {
		return nil, &UnsupportedShapeError{Entry: "dispatch", Type: typ, Shape: shape}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	call := Call{Shape: shape, Type: typ}
	r := p.registry

	r.metrics.Counter(PipelineDispatchTotal).Inc()
	start := r.clock.Now()

	// The chain itself gets ctx unchanged; only the build span hangs off spanCtx.
	spanCtx, span := r.tracer.StartSpan(ctx, PipelineDispatchSpan)
	span.SetTag(PipelineTagShape, shape.String())
	span.SetTag(PipelineTagType, typ.String())

	chain, hit, err := p.cache.getOrBuild(chainKey{typ: typ, shape: shape}, func() (any, error) {
		return p.build(spanCtx, call)
	})
	span.SetTag(PipelineTagCacheHit, fmt.Sprintf("%t", hit))
	if hit {
		r.metrics.Counter(PipelineCacheHits).Inc()
	} else {
		r.metrics.Counter(PipelineCacheMisses).Inc()
	}

	if err == nil {
		result, err = invokeChain(ctx, shape, chain, req)
	}

	elapsed := r.clock.Since(start)
	r.metrics.Gauge(PipelineDispatchMs).Set(float64(elapsed.Milliseconds()))
	if err != nil {
		span.SetTag(PipelineTagSuccess, "false")
		span.SetTag(PipelineTagError, err.Error())
		r.metrics.Counter(PipelineDispatchFailures).Inc()
		_ = r.hooks.Emit(ctx, PipelineEventDispatchFailed, PipelineEvent{ //nolint:errcheck
			Pipeline:  p.name,
			Call:      call,
			CacheHit:  hit,
			Error:     err,
			Duration:  elapsed,
			Timestamp: r.clock.Now(),
		})
	} else {
		span.SetTag(PipelineTagSuccess, "true")
	}
	span.Finish()

	return result, err
}

// build composes the chain for call. It runs at most once per key at a time.
func (p *Pipeline) build(ctx context.Context, call Call) (any, error) {
	r := p.registry
	start := r.clock.Now()

	_, span := r.tracer.StartSpan(ctx, PipelineBuildSpan)
	defer span.Finish()
	span.SetTag(PipelineTagShape, call.Shape.String())
	span.SetTag(PipelineTagType, call.Type.String())

	chain, used := buildChain(call, p.interceptors, p.exec)
	if chain == nil {
		return nil, &UnsupportedShapeError{Entry: "dispatch", Type: call.Type, Shape: call.Shape}
	}
	span.SetTag(PipelineTagInterceptors, fmt.Sprintf("%d", used))

	elapsed := r.clock.Since(start)
	r.metrics.Counter(PipelineChainBuilds).Inc()
	r.metrics.Gauge(PipelineChainBuildMs).Set(float64(elapsed.Milliseconds()))

	if r.logger != nil {
		r.logger.DebugContext(ctx, "chain built",
			"pipeline", p.name,
			"shape", call.Shape.String(),
			"type", call.Type.String(),
			"interceptors", used,
			"duration", elapsed,
		)
	}

	_ = r.hooks.Emit(ctx, PipelineEventChainBuilt, PipelineEvent{ //nolint:errcheck
		Pipeline:     p.name,
		Call:         call,
		Interceptors: used,
		Duration:     elapsed,
		Timestamp:    r.clock.Now(),
	})

	return chain, nil
}
