package integration

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoobzio/interceptz"
	itesting "github.com/zoobzio/interceptz/testing"
	"github.com/zoobzio/tracez"
)

// gate is a passthrough whose Supports blocks until release is closed, which
// holds a chain build open while other callers arrive.
type gate struct {
	release <-chan struct{}
	entered atomic.Int32
}

func (g *gate) Name() interceptz.Name { return "gate" }

func (g *gate) Supports(interceptz.Call) bool {
	g.entered.Add(1)
	<-g.release
	return true
}

func (g *gate) InterceptValue(_ interceptz.Call, req interceptz.Request, next interceptz.ValueNext) (any, error) {
	return next(req)
}

func TestConcurrentFirstDispatch(t *testing.T) {
	const callers = 20

	release := make(chan struct{})
	g := &gate{release: release}
	reg := interceptz.NewRegistry("concurrent")
	defer func() { _ = reg.Close() }()

	var built atomic.Int32
	require.NoError(t, reg.OnChainBuilt(func(context.Context, interceptz.PipelineEvent) error {
		built.Add(1)
		return nil
	}))
	require.NoError(t, reg.Register(g))

	stub := itesting.NewStubExecutor(nil).WithValue(7)
	p, err := reg.Session(stub)
	require.NoError(t, err)

	results := make([]int, callers)
	done := make(chan struct{})
	go func() {
		defer close(done)
		itesting.ParallelTest(t, callers, func(i int) {
			n, err := interceptz.Execute[int](p, nil)
			assert.NoError(t, err)
			results[i] = n
		})
	}()

	require.True(t, itesting.WaitFor(func() bool { return g.entered.Load() == 1 }, time.Second))
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-done

	for _, n := range results {
		assert.Equal(t, 7, n)
	}

	m := p.Metrics()
	assert.Equal(t, float64(1), m.Counter(interceptz.PipelineChainBuilds).Value())
	assert.Equal(t, float64(1), m.Counter(interceptz.PipelineCacheMisses).Value())
	assert.Equal(t, float64(callers-1), m.Counter(interceptz.PipelineCacheHits).Value())
	assert.Equal(t, int32(1), g.entered.Load())
	assert.Equal(t, 1, p.CachedChains())
	assert.True(t, itesting.WaitFor(func() bool { return built.Load() == 1 }, time.Second))
	itesting.AssertCalls(t, stub, interceptz.ShapeValue, callers)
}

func TestBuildSpanNestsUnderDispatch(t *testing.T) {
	tracer := tracez.New()
	reg := interceptz.NewRegistry("spans", interceptz.WithTracer(tracer))
	defer func() { _ = reg.Close() }()

	var mu sync.Mutex
	var spans []tracez.Span
	tracer.OnSpanComplete(func(span tracez.Span) {
		mu.Lock()
		spans = append(spans, span)
		mu.Unlock()
	})

	p, err := reg.Session(itesting.NewStubExecutor(nil).WithValue(1))
	require.NoError(t, err)
	_, err = interceptz.Execute[int](p, nil)
	require.NoError(t, err)

	require.True(t, itesting.WaitFor(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(spans) == 2
	}, time.Second))

	mu.Lock()
	defer mu.Unlock()
	var dispatch, build tracez.Span
	for _, span := range spans {
		switch span.Name {
		case interceptz.PipelineDispatchSpan:
			dispatch = span
		case interceptz.PipelineBuildSpan:
			build = span
		}
	}
	require.NotEmpty(t, dispatch.SpanID)
	assert.Equal(t, dispatch.SpanID, build.ParentID)
	assert.Equal(t, dispatch.TraceID, build.TraceID)
}
