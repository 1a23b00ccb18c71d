package interceptz

import (
	"context"
	"reflect"
	"sync"
)

// Executor is the terminal of every chain: the component that does the real
// work once all interceptors have delegated. Results are in erased form; the
// concrete result type is call.Type.
//
// Most hosts use Terminal, which implements Executor from typed handlers.
type Executor interface {
	ExecuteValue(call Call, req Request) (any, error)
	ExecuteSequence(call Call, req Request) (Seq[any], error)
	ExecuteAsyncValue(ctx context.Context, call Call, req Request) (any, error)
	ExecuteAsyncSequence(ctx context.Context, call Call, req Request) (*Stream[any], error)
	CompileValue(call Call, req Request) (Query[any], error)
	CompileSequence(call Call, req Request) (Query[Seq[any]], error)
	CompileAsyncValue(call Call, req Request) (AsyncQuery[any], error)
	CompileAsyncSequence(call Call, req Request) (AsyncQuery[*Stream[any]], error)
}

type handlerKey struct {
	shape Shape
	typ   reflect.Type
}

// Terminal is an Executor assembled from typed handler functions, one per
// (shape, result type). When no compiled handler is registered for a type,
// the compiled shapes fall back to the matching plain handler, invoked with
// Bind(req, params) each time the callable runs.
//
//	term := interceptz.NewTerminal()
//	interceptz.HandleValue(term, func(req interceptz.Request) (int64, error) {
//	    return store.Count(req)
//	})
//	interceptz.HandleSequence(term, func(req interceptz.Request) (interceptz.Seq[Widget], error) {
//	    return store.Widgets(req)
//	})
type Terminal struct {
	mu       sync.RWMutex
	handlers map[handlerKey]any
}

// NewTerminal returns an empty Terminal.
func NewTerminal() *Terminal {
	return &Terminal{handlers: make(map[handlerKey]any)}
}

func (t *Terminal) set(shape Shape, typ reflect.Type, h any) *Terminal {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handlers[handlerKey{shape: shape, typ: typ}] = h
	return t
}

func (t *Terminal) get(shape Shape, typ reflect.Type) (any, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handlers[handlerKey{shape: shape, typ: typ}]
	return h, ok
}

// HandleValue registers the ShapeValue handler for T.
func HandleValue[T any](t *Terminal, fn func(req Request) (T, error)) *Terminal {
	return t.set(ShapeValue, typeOf[T](), ValueNext(func(req Request) (any, error) {
		v, err := fn(req)
		if err != nil {
			return nil, err
		}
		return v, nil
	}))
}

// HandleSequence registers the ShapeSequence handler for element type T.
func HandleSequence[T any](t *Terminal, fn func(req Request) (Seq[T], error)) *Terminal {
	return t.set(ShapeSequence, typeOf[T](), SequenceNext(func(req Request) (Seq[any], error) {
		s, err := fn(req)
		if err != nil {
			return nil, err
		}
		return eraseSeq(s), nil
	}))
}

// HandleAsyncValue registers the ShapeAsyncValue handler for T.
func HandleAsyncValue[T any](t *Terminal, fn func(ctx context.Context, req Request) (T, error)) *Terminal {
	return t.set(ShapeAsyncValue, typeOf[T](), AsyncValueNext(func(ctx context.Context, req Request) (any, error) {
		v, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return v, nil
	}))
}

// HandleAsyncSequence registers the ShapeAsyncSequence handler for element type T.
func HandleAsyncSequence[T any](t *Terminal, fn func(ctx context.Context, req Request) (*Stream[T], error)) *Terminal {
	return t.set(ShapeAsyncSequence, typeOf[T](), AsyncSequenceNext(func(ctx context.Context, req Request) (*Stream[any], error) {
		s, err := fn(ctx, req)
		if err != nil {
			return nil, err
		}
		return eraseStream(s), nil
	}))
}

// HandleCompiledValue registers the ShapeCompiledValue handler for T.
func HandleCompiledValue[T any](t *Terminal, fn func(req Request) (Query[T], error)) *Terminal {
	return t.set(ShapeCompiledValue, typeOf[T](), CompiledValueNext(func(req Request) (Query[any], error) {
		q, err := fn(req)
		if err != nil || q == nil {
			return nil, err
		}
		return func(params Params) (any, error) {
			v, err := q(params)
			if err != nil {
				return nil, err
			}
			return v, nil
		}, nil
	}))
}

// HandleCompiledSequence registers the ShapeCompiledSequence handler for element type T.
func HandleCompiledSequence[T any](t *Terminal, fn func(req Request) (Query[Seq[T]], error)) *Terminal {
	return t.set(ShapeCompiledSequence, typeOf[T](), CompiledSequenceNext(func(req Request) (Query[Seq[any]], error) {
		q, err := fn(req)
		if err != nil || q == nil {
			return nil, err
		}
		return func(params Params) (Seq[any], error) {
			s, err := q(params)
			if err != nil {
				return nil, err
			}
			return eraseSeq(s), nil
		}, nil
	}))
}

// HandleCompiledAsyncValue registers the ShapeCompiledAsyncValue handler for T.
func HandleCompiledAsyncValue[T any](t *Terminal, fn func(req Request) (AsyncQuery[T], error)) *Terminal {
	return t.set(ShapeCompiledAsyncValue, typeOf[T](), CompiledAsyncValueNext(func(req Request) (AsyncQuery[any], error) {
		q, err := fn(req)
		if err != nil || q == nil {
			return nil, err
		}
		return func(ctx context.Context, params Params) (any, error) {
			v, err := q(ctx, params)
			if err != nil {
				return nil, err
			}
			return v, nil
		}, nil
	}))
}

// HandleCompiledAsyncSequence registers the ShapeCompiledAsyncSequence handler for element type T.
func HandleCompiledAsyncSequence[T any](t *Terminal, fn func(req Request) (AsyncQuery[*Stream[T]], error)) *Terminal {
	return t.set(ShapeCompiledAsyncSequence, typeOf[T](), CompiledAsyncSequenceNext(func(req Request) (AsyncQuery[*Stream[any]], error) {
		q, err := fn(req)
		if err != nil || q == nil {
			return nil, err
		}
		return func(ctx context.Context, params Params) (*Stream[any], error) {
			s, err := q(ctx, params)
			if err != nil {
				return nil, err
			}
			return eraseStream(s), nil
		}, nil
	}))
}

// ExecuteValue implements Executor.
func (t *Terminal) ExecuteValue(call Call, req Request) (any, error) {
	h, ok := t.get(ShapeValue, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	return h.(ValueNext)(req)
}

// ExecuteSequence implements Executor.
func (t *Terminal) ExecuteSequence(call Call, req Request) (Seq[any], error) {
	h, ok := t.get(ShapeSequence, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	return h.(SequenceNext)(req)
}

// ExecuteAsyncValue implements Executor.
func (t *Terminal) ExecuteAsyncValue(ctx context.Context, call Call, req Request) (any, error) {
	h, ok := t.get(ShapeAsyncValue, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	return h.(AsyncValueNext)(ctx, req)
}

// ExecuteAsyncSequence implements Executor.
func (t *Terminal) ExecuteAsyncSequence(ctx context.Context, call Call, req Request) (*Stream[any], error) {
	h, ok := t.get(ShapeAsyncSequence, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	return h.(AsyncSequenceNext)(ctx, req)
}

// CompileValue implements Executor.
func (t *Terminal) CompileValue(call Call, req Request) (Query[any], error) {
	if h, ok := t.get(ShapeCompiledValue, call.Type); ok {
		return h.(CompiledValueNext)(req)
	}
	h, ok := t.get(ShapeValue, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	run := h.(ValueNext)
	return func(params Params) (any, error) {
		return run(Bind(req, params))
	}, nil
}

// CompileSequence implements Executor.
func (t *Terminal) CompileSequence(call Call, req Request) (Query[Seq[any]], error) {
	if h, ok := t.get(ShapeCompiledSequence, call.Type); ok {
		return h.(CompiledSequenceNext)(req)
	}
	h, ok := t.get(ShapeSequence, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	run := h.(SequenceNext)
	return func(params Params) (Seq[any], error) {
		return run(Bind(req, params))
	}, nil
}

// CompileAsyncValue implements Executor.
func (t *Terminal) CompileAsyncValue(call Call, req Request) (AsyncQuery[any], error) {
	if h, ok := t.get(ShapeCompiledAsyncValue, call.Type); ok {
		return h.(CompiledAsyncValueNext)(req)
	}
	h, ok := t.get(ShapeAsyncValue, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	run := h.(AsyncValueNext)
	return func(ctx context.Context, params Params) (any, error) {
		return run(ctx, Bind(req, params))
	}, nil
}

// CompileAsyncSequence implements Executor.
func (t *Terminal) CompileAsyncSequence(call Call, req Request) (AsyncQuery[*Stream[any]], error) {
	if h, ok := t.get(ShapeCompiledAsyncSequence, call.Type); ok {
		return h.(CompiledAsyncSequenceNext)(req)
	}
	h, ok := t.get(ShapeAsyncSequence, call.Type)
	if !ok {
		return nil, &NoHandlerError{Call: call}
	}
	run := h.(AsyncSequenceNext)
	return func(ctx context.Context, params Params) (*Stream[any], error) {
		return run(ctx, Bind(req, params))
	}, nil
}
