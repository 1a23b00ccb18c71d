package interceptz

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	Name string
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		res   *resolution
		shape Shape
		elem  reflect.Type
	}{
		{"Execute Plain", resolve[int](entryExecute), ShapeValue, typeOf[int]()},
		{"Execute Seq", resolve[Seq[widget]](entryExecute), ShapeSequence, typeOf[widget]()},
		{"ExecuteAsync Plain", resolve[string](entryExecuteAsync), ShapeAsyncValue, typeOf[string]()},
		{"ExecuteAsync Stream", resolve[*Stream[widget]](entryExecuteAsync), ShapeAsyncSequence, typeOf[widget]()},
		{"Compile Plain", resolve[widget](entryCompile), ShapeCompiledValue, typeOf[widget]()},
		{"Compile Seq", resolve[Seq[int]](entryCompile), ShapeCompiledSequence, typeOf[int]()},
		{"CompileAsync Plain", resolve[error](entryCompileAsync), ShapeCompiledAsyncValue, typeOf[error]()},
		{"CompileAsync Stream", resolve[*Stream[int]](entryCompileAsync), ShapeCompiledAsyncSequence, typeOf[int]()},
		{"Slice Is Plain", resolve[[]widget](entryExecute), ShapeValue, typeOf[[]widget]()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.res.err)
			assert.Equal(t, tt.shape, tt.res.shape)
			assert.Equal(t, tt.elem, tt.res.elem)
		})
	}

	t.Run("Cached Per Type And Entry", func(t *testing.T) {
		assert.Same(t, resolve[Seq[widget]](entryExecute), resolve[Seq[widget]](entryExecute))
		assert.NotSame(t, resolve[Seq[widget]](entryExecute), resolve[Seq[widget]](entryCompile))
	})
}

func TestResolveUnsupported(t *testing.T) {
	tests := []struct {
		name string
		res  *resolution
	}{
		{"Stream At Execute", resolve[*Stream[int]](entryExecute)},
		{"Stream At Compile", resolve[*Stream[int]](entryCompile)},
		{"Seq At ExecuteAsync", resolve[Seq[int]](entryExecuteAsync)},
		{"Seq At CompileAsync", resolve[Seq[int]](entryCompileAsync)},
		{"Query At Execute", resolve[Query[int]](entryExecute)},
		{"AsyncQuery At CompileAsync", resolve[AsyncQuery[int]](entryCompileAsync)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.res.err, ErrUnsupportedShape)
			var use *UnsupportedShapeError
			require.ErrorAs(t, tt.res.err, &use)
			assert.NotNil(t, use.Type)
		})
	}
}

func TestEntryPointsRejectUnsupportedTypes(t *testing.T) {
	p, err := NewPipeline("reject", NewTerminal())
	require.NoError(t, err)

	_, err = Execute[*Stream[int]](p, nil)
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = ExecuteAsync[Seq[int]](context.Background(), p, nil)
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = Compile[*Stream[int]](p, nil)
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	_, err = CompileAsync[Seq[int]](p, nil)
	assert.ErrorIs(t, err, ErrUnsupportedShape)

	assert.Equal(t, 0, p.CachedChains(), "rejected calls never reach the chain cache")
}

func TestDispatch(t *testing.T) {
	term := NewTerminal()
	HandleValue(term, func(Request) (int, error) { return 4, nil })

	t.Run("Erased Entry", func(t *testing.T) {
		p, err := NewPipeline("erased", term)
		require.NoError(t, err)

		v, err := p.Dispatch(context.Background(), ShapeValue, TypeOf[int](), nil)
		require.NoError(t, err)
		assert.Equal(t, 4, v)
	})

	t.Run("Nil Context", func(t *testing.T) {
		p, err := NewPipeline("erased", term)
		require.NoError(t, err)

		v, err := p.Dispatch(nil, ShapeValue, TypeOf[int](), nil) //nolint:staticcheck
		require.NoError(t, err)
		assert.Equal(t, 4, v)
	})

	t.Run("Invalid Shape", func(t *testing.T) {
		p, err := NewPipeline("erased", term)
		require.NoError(t, err)

		_, err = p.Dispatch(context.Background(), Shape(42), TypeOf[int](), nil)
		assert.ErrorIs(t, err, ErrUnsupportedShape)

		_, err = p.Dispatch(context.Background(), ShapeValue, nil, nil)
		assert.ErrorIs(t, err, ErrUnsupportedShape)
	})

	t.Run("Missing Handler", func(t *testing.T) {
		p, err := NewPipeline("erased", term)
		require.NoError(t, err)

		_, err = Execute[string](p, nil)
		assert.ErrorIs(t, err, ErrNoHandler)
		var nh *NoHandlerError
		require.ErrorAs(t, err, &nh)
		assert.Equal(t, Call{Shape: ShapeValue, Type: typeOf[string]()}, nh.Call)
	})
}

func TestUnerasure(t *testing.T) {
	t.Run("Nil Becomes Zero", func(t *testing.T) {
		nilValue := ValueFunc("nil", func(Call, Request, ValueNext) (any, error) { return nil, nil })
		p, err := NewPipeline("nil", NewTerminal(), nilValue)
		require.NoError(t, err)

		n, err := Execute[int](p, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		w, err := Execute[*widget](p, nil)
		require.NoError(t, err)
		assert.Nil(t, w)
	})

	t.Run("Wrong Type Is Reported", func(t *testing.T) {
		wrong := ValueFunc("wrong", func(Call, Request, ValueNext) (any, error) { return "four", nil })
		p, err := NewPipeline("wrong", NewTerminal(), wrong)
		require.NoError(t, err)

		_, err = Execute[int](p, nil)
		assert.ErrorIs(t, err, ErrResultType)
		var rt *ResultTypeError
		require.ErrorAs(t, err, &rt)
		assert.Equal(t, typeOf[int](), rt.Want)
		assert.Equal(t, typeOf[string](), rt.Got)
	})

	t.Run("Wrong Item Type Ends Sequence", func(t *testing.T) {
		mixed := SequenceFunc("mixed", func(Call, Request, SequenceNext) (Seq[any], error) {
			return SeqOf[any](widget{"a"}, 7, widget{"b"}), nil
		})
		p, err := NewPipeline("mixed", NewTerminal(), mixed)
		require.NoError(t, err)

		seq, err := Execute[Seq[widget]](p, nil)
		require.NoError(t, err)
		items, err := Collect(seq)
		assert.ErrorIs(t, err, ErrResultType)
		assert.Equal(t, []widget{{"a"}}, items)
	})

	t.Run("Nil Sequence", func(t *testing.T) {
		empty := SequenceFunc("empty", func(Call, Request, SequenceNext) (Seq[any], error) { return nil, nil })
		p, err := NewPipeline("empty", NewTerminal(), empty)
		require.NoError(t, err)

		seq, err := Execute[Seq[widget]](p, nil)
		require.NoError(t, err)
		assert.Nil(t, seq)
		items, err := Collect(seq)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("Interface Result Type", func(t *testing.T) {
		term := NewTerminal()
		HandleAsyncValue(term, func(context.Context, Request) (error, error) {
			return errors.New("as value"), nil
		})
		p, err := NewPipeline("iface", term)
		require.NoError(t, err)

		v, err := ExecuteAsync[error](context.Background(), p, nil)
		require.NoError(t, err)
		assert.EqualError(t, v, "as value")
	})
}

func TestCompile(t *testing.T) {
	term := NewTerminal()
	HandleCompiledValue(term, func(req Request) (Query[int], error) {
		base, _ := req.(int)
		return func(params Params) (int, error) {
			n, _ := params["n"].(int)
			return base + n, nil
		}, nil
	})
	HandleAsyncValue(term, func(ctx context.Context, req Request) (string, error) {
		b, _ := req.(Bound)
		name, _ := b.Params["name"].(string)
		return b.Request.(string) + name, ctx.Err()
	})

	t.Run("Callable Reused", func(t *testing.T) {
		p, err := NewPipeline("compile", term)
		require.NoError(t, err)

		q, err := Compile[int](p, 10)
		require.NoError(t, err)
		for n := 0; n < 3; n++ {
			v, err := q(Params{"n": n})
			require.NoError(t, err)
			assert.Equal(t, 10+n, v)
		}
	})

	t.Run("Async Falls Back To Plain Handler", func(t *testing.T) {
		p, err := NewPipeline("compile", term)
		require.NoError(t, err)

		q, err := CompileAsync[string](p, "hello ")
		require.NoError(t, err)
		v, err := q(context.Background(), Params{"name": "world"})
		require.NoError(t, err)
		assert.Equal(t, "hello world", v)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err = q(ctx, Params{"name": "x"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("Nil Callable", func(t *testing.T) {
		none := Around("none", func(context.Context, Call, func() error) error { return nil })
		p, err := NewPipeline("compile", term, none)
		require.NoError(t, err)

		q, err := Compile[int](p, 1)
		assert.ErrorIs(t, err, ErrNoCallable)
		assert.Nil(t, q)

		qs, err := Compile[Seq[int]](p, 1)
		assert.ErrorIs(t, err, ErrNoCallable)
		assert.Nil(t, qs)

		qa, err := CompileAsync[int](p, 1)
		assert.ErrorIs(t, err, ErrNoCallable)
		assert.Nil(t, qa)

		qas, err := CompileAsync[*Stream[int]](p, 1)
		assert.ErrorIs(t, err, ErrNoCallable)
		assert.Nil(t, qas)
	})
}
