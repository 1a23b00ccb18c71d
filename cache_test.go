package interceptz

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestChainCache(t *testing.T) {
	key := chainKey{typ: typeOf[int](), shape: ShapeValue}

	t.Run("Builds Once Then Hits", func(t *testing.T) {
		var c chainCache
		var builds atomic.Int32
		build := func() (any, error) {
			builds.Add(1)
			return ValueNext(func(Request) (any, error) { return 1, nil }), nil
		}

		_, hit, err := c.getOrBuild(key, build)
		require.NoError(t, err)
		assert.False(t, hit)

		for i := 0; i < 100; i++ {
			_, hit, err = c.getOrBuild(key, build)
			require.NoError(t, err)
			assert.True(t, hit)
		}
		assert.Equal(t, int32(1), builds.Load())
		assert.Equal(t, 1, c.len())
	})

	t.Run("Failed Builds Are Not Stored", func(t *testing.T) {
		var c chainCache
		boom := errors.New("boom")

		_, _, err := c.getOrBuild(key, func() (any, error) { return nil, boom })
		assert.ErrorIs(t, err, boom)
		assert.Equal(t, 0, c.len())

		_, _, err = c.getOrBuild(key, func() (any, error) { return nil, nil })
		assert.ErrorIs(t, err, ErrUnsupportedShape)
		assert.Equal(t, 0, c.len())

		chain, hit, err := c.getOrBuild(key, func() (any, error) {
			return ValueNext(func(Request) (any, error) { return 2, nil }), nil
		})
		require.NoError(t, err)
		assert.False(t, hit)
		assert.NotNil(t, chain)
	})

	t.Run("Keys Are Independent", func(t *testing.T) {
		var c chainCache
		mk := func(v int) func() (any, error) {
			return func() (any, error) {
				return ValueNext(func(Request) (any, error) { return v, nil }), nil
			}
		}
		a, _, err := c.getOrBuild(chainKey{typ: typeOf[int](), shape: ShapeValue}, mk(1))
		require.NoError(t, err)
		b, _, err := c.getOrBuild(chainKey{typ: typeOf[string](), shape: ShapeValue}, mk(2))
		require.NoError(t, err)
		s, _, err := c.getOrBuild(chainKey{typ: typeOf[int](), shape: ShapeAsyncValue}, mk(3))
		require.NoError(t, err)

		va, _ := a.(ValueNext)(nil)
		vb, _ := b.(ValueNext)(nil)
		vs, _ := s.(ValueNext)(nil)
		assert.Equal(t, []any{1, 2, 3}, []any{va, vb, vs})
		assert.Equal(t, 3, c.len())
	})

	t.Run("Concurrent First Use Stores One Chain", func(t *testing.T) {
		var c chainCache
		var builds atomic.Int32
		release := make(chan struct{})
		build := func() (any, error) {
			builds.Add(1)
			<-release
			return ValueNext(func(Request) (any, error) { return 1, nil }), nil
		}

		var g errgroup.Group
		var misses atomic.Int32
		chains := make([]any, 50)
		for i := range chains {
			g.Go(func() error {
				chain, hit, err := c.getOrBuild(key, build)
				if !hit {
					misses.Add(1)
				}
				chains[i] = chain
				return err
			})
		}
		time.Sleep(20 * time.Millisecond)
		close(release)
		require.NoError(t, g.Wait())

		assert.Equal(t, int32(1), builds.Load())
		assert.Equal(t, int32(1), misses.Load())
		assert.Equal(t, 1, c.len())
		first, ok := c.entries.Load(key)
		require.True(t, ok)
		for _, chain := range chains {
			v, err := chain.(ValueNext)(nil)
			require.NoError(t, err)
			assert.Equal(t, 1, v)
		}
		v, _ := first.(ValueNext)(nil)
		assert.Equal(t, 1, v)
	})
}

func TestPipelineMemoization(t *testing.T) {
	var builds atomic.Int32
	stub := &countingExecutor{}
	p, err := NewPipeline("memo", stub, ValueFunc("count", func(_ Call, req Request, next ValueNext) (any, error) {
		return next(req)
	}))
	require.NoError(t, err)
	require.NoError(t, p.registry.OnChainBuilt(func(context.Context, PipelineEvent) error {
		builds.Add(1)
		return nil
	}))

	for i := 0; i < 100; i++ {
		_, err := Execute[int](p, nil)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, p.CachedChains())
	assert.Equal(t, float64(1), p.Metrics().Counter(PipelineChainBuilds).Value())
	assert.Equal(t, float64(99), p.Metrics().Counter(PipelineCacheHits).Value())
	assert.Equal(t, float64(1), p.Metrics().Counter(PipelineCacheMisses).Value())
	assert.Equal(t, int64(100), stub.values.Load())
	assert.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 10*time.Millisecond)
}

func TestTypeIsolation(t *testing.T) {
	seen := make(chan Call, 4)
	stub := &countingExecutor{}
	p, err := NewPipeline("isolation", stub, ValueFunc("probe", func(call Call, req Request, next ValueNext) (any, error) {
		seen <- call
		return next(req)
	}))
	require.NoError(t, err)

	_, err = Execute[int](p, nil)
	require.NoError(t, err)
	_, err = Execute[string](p, nil)
	require.NoError(t, err)

	assert.Equal(t, 2, p.CachedChains())
	assert.Equal(t, typeOf[int](), (<-seen).Type)
	assert.Equal(t, typeOf[string](), (<-seen).Type)
}

// countingExecutor answers value calls with the zero value of the call type.
type countingExecutor struct {
	Terminal
	values atomic.Int64
}

func (c *countingExecutor) ExecuteValue(call Call, _ Request) (any, error) {
	c.values.Add(1)
	if call.Type == typeOf[string]() {
		return "", nil
	}
	return 0, nil
}
