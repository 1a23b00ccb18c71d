package interceptz

import (
	"context"
	"reflect"
	"sync"
)

// wrapperKind identifies the result wrappers a call site can ask for.
type wrapperKind uint8

const (
	wrapNone wrapperKind = iota
	wrapSeq
	wrapStream
	wrapQuery
	wrapAsyncQuery
)

// wrapperInfo describes a wrapper type: its kind, its element type, and how
// to turn the erased form the chain produces back into the wrapper.
type wrapperInfo struct {
	kind    wrapperKind
	elem    reflect.Type
	unerase func(any) (any, error)
}

// wrapped is implemented by Seq, *Stream, Query and AsyncQuery.
type wrapped interface {
	wrapper() wrapperInfo
}

func (Query[T]) wrapper() wrapperInfo {
	return wrapperInfo{kind: wrapQuery, elem: typeOf[T]()}
}

func (AsyncQuery[T]) wrapper() wrapperInfo {
	return wrapperInfo{kind: wrapAsyncQuery, elem: typeOf[T]()}
}

// entry is one of the four typed entry points.
type entry uint8

const (
	entryExecute entry = iota
	entryExecuteAsync
	entryCompile
	entryCompileAsync
)

var entryNames = [...]string{
	entryExecute:      "Execute",
	entryExecuteAsync: "ExecuteAsync",
	entryCompile:      "Compile",
	entryCompileAsync: "CompileAsync",
}

func (e entry) String() string {
	return entryNames[e]
}

type resolveKey struct {
	typ   reflect.Type
	entry entry
}

// resolution is the classification of a requested type at one entry point.
// A nil unerase means the result is a plain value.
type resolution struct {
	shape   Shape
	elem    reflect.Type
	unerase func(any) (any, error)
	err     error
}

// resolutions caches classifications for the life of the process. They depend
// only on the requested type, never on a pipeline.
var resolutions sync.Map // resolveKey -> *resolution

// resolve classifies R for entry e.
func resolve[R any](e entry) *resolution {
	key := resolveKey{typ: typeOf[R](), entry: e}
	if v, ok := resolutions.Load(key); ok {
		return v.(*resolution)
	}
	v, _ := resolutions.LoadOrStore(key, classify[R](e))
	return v.(*resolution)
}

func classify[R any](e entry) *resolution {
	var zero R
	kind := wrapNone
	var info wrapperInfo
	if w, ok := any(zero).(wrapped); ok {
		info = w.wrapper()
		kind = info.kind
	}

	switch kind {
	case wrapNone:
		shapes := [...]Shape{
			entryExecute:      ShapeValue,
			entryExecuteAsync: ShapeAsyncValue,
			entryCompile:      ShapeCompiledValue,
			entryCompileAsync: ShapeCompiledAsyncValue,
		}
		return &resolution{shape: shapes[e], elem: typeOf[R]()}
	case wrapSeq:
		switch e {
		case entryExecute:
			return &resolution{shape: ShapeSequence, elem: info.elem, unerase: info.unerase}
		case entryCompile:
			return &resolution{shape: ShapeCompiledSequence, elem: info.elem, unerase: info.unerase}
		}
	case wrapStream:
		switch e {
		case entryExecuteAsync:
			return &resolution{shape: ShapeAsyncSequence, elem: info.elem, unerase: info.unerase}
		case entryCompileAsync:
			return &resolution{shape: ShapeCompiledAsyncSequence, elem: info.elem, unerase: info.unerase}
		}
	}
	return &resolution{err: &UnsupportedShapeError{Entry: e.String(), Type: typeOf[R](), Shape: shapeCount}}
}

// unerase converts an erased chain result to R.
func unerase[R any](res *resolution, v any) (R, error) {
	if res.unerase == nil {
		return as[R](v)
	}
	out, err := res.unerase(v)
	if err != nil {
		var zero R
		return zero, err
	}
	r, _ := out.(R)
	return r, nil
}

// Execute runs req through p synchronously. R selects the shape: Seq[T] is a
// ShapeSequence call with element type T, any other non-wrapper type is a
// ShapeValue call.
//
//	n, err := interceptz.Execute[int64](p, countActive)
//	widgets, err := interceptz.Execute[interceptz.Seq[Widget]](p, listWidgets)
func Execute[R any](p *Pipeline, req Request) (R, error) {
	var zero R
	res := resolve[R](entryExecute)
	if res.err != nil {
		return zero, res.err
	}
	out, err := p.Dispatch(context.Background(), res.shape, res.elem, req)
	if err != nil {
		return zero, err
	}
	return unerase[R](res, out)
}

// ExecuteAsync runs req through p with ctx. *Stream[T] is a
// ShapeAsyncSequence call with element type T; any other non-wrapper type
// is a ShapeAsyncValue call. ctx reaches every interceptor and the terminal
// unchanged.
func ExecuteAsync[R any](ctx context.Context, p *Pipeline, req Request) (R, error) {
	var zero R
	res := resolve[R](entryExecuteAsync)
	if res.err != nil {
		return zero, res.err
	}
	out, err := p.Dispatch(ctx, res.shape, res.elem, req)
	if err != nil {
		return zero, err
	}
	return unerase[R](res, out)
}

// Compile runs req through p once and returns a callable that can be invoked
// many times with different Params. Seq[T] compiles a ShapeCompiledSequence
// call; any other non-wrapper type a ShapeCompiledValue call. A chain that
// produces no callable yields ErrNoCallable, never a nil Query.
func Compile[R any](p *Pipeline, req Request) (Query[R], error) {
	res := resolve[R](entryCompile)
	if res.err != nil {
		return nil, res.err
	}
	out, err := p.Dispatch(context.Background(), res.shape, res.elem, req)
	if err != nil {
		return nil, err
	}

	switch q := out.(type) {
	case Query[any]:
		if q == nil {
			return nil, ErrNoCallable
		}
		return func(params Params) (R, error) {
			v, err := q(params)
			if err != nil {
				var zero R
				return zero, err
			}
			return unerase[R](res, v)
		}, nil
	case Query[Seq[any]]:
		if q == nil {
			return nil, ErrNoCallable
		}
		return func(params Params) (R, error) {
			s, err := q(params)
			if err != nil {
				var zero R
				return zero, err
			}
			return unerase[R](res, s)
		}, nil
	}
	return nil, compiledResultError(res, out)
}

// CompileAsync is Compile for the asynchronous shapes: *Stream[T] compiles a
// ShapeCompiledAsyncSequence call, any other non-wrapper type a
// ShapeCompiledAsyncValue call. The returned callable takes the context of
// each invocation. A chain that produces no callable yields ErrNoCallable.
func CompileAsync[R any](p *Pipeline, req Request) (AsyncQuery[R], error) {
	res := resolve[R](entryCompileAsync)
	if res.err != nil {
		return nil, res.err
	}
	out, err := p.Dispatch(context.Background(), res.shape, res.elem, req)
	if err != nil {
		return nil, err
	}

	switch q := out.(type) {
	case AsyncQuery[any]:
		if q == nil {
			return nil, ErrNoCallable
		}
		return func(ctx context.Context, params Params) (R, error) {
			v, err := q(ctx, params)
			if err != nil {
				var zero R
				return zero, err
			}
			return unerase[R](res, v)
		}, nil
	case AsyncQuery[*Stream[any]]:
		if q == nil {
			return nil, ErrNoCallable
		}
		return func(ctx context.Context, params Params) (R, error) {
			s, err := q(ctx, params)
			if err != nil {
				var zero R
				return zero, err
			}
			return unerase[R](res, s)
		}, nil
	}
	return nil, compiledResultError(res, out)
}

// compiledResultError reports a compiled chain whose result is not the
// callable its shape produces.
func compiledResultError(res *resolution, out any) error {
	if out == nil {
		return ErrNoCallable
	}
	want := map[Shape]reflect.Type{
		ShapeCompiledValue:         typeOf[Query[any]](),
		ShapeCompiledSequence:      typeOf[Query[Seq[any]]](),
		ShapeCompiledAsyncValue:    typeOf[AsyncQuery[any]](),
		ShapeCompiledAsyncSequence: typeOf[AsyncQuery[*Stream[any]]](),
	}[res.shape]
	return &ResultTypeError{Want: want, Got: reflect.TypeOf(out)}
}
