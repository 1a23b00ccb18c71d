package interceptz

import "context"

// Typed adapters let an interceptor work with concrete result types instead
// of erased values. Each adapter takes part only in chains whose result type
// (element type for sequences) is exactly T, and is skipped for every other
// type when chains are built.
//
//	audit := interceptz.TypedValue("audit", func(call interceptz.Call, req interceptz.Request, next func(interceptz.Request) (Invoice, error)) (Invoice, error) {
//	    inv, err := next(req)
//	    if err == nil {
//	        log.Record(inv.ID)
//	    }
//	    return inv, err
//	})

// TypedValue adapts fn into a ShapeValue interceptor for result type T.
func TypedValue[T any](name Name, fn func(call Call, req Request, next func(Request) (T, error)) (T, error)) Interceptor {
	return typedValue[T]{name: name, fn: fn}
}

type typedValue[T any] struct {
	name Name
	fn   func(Call, Request, func(Request) (T, error)) (T, error)
}

func (t typedValue[T]) Name() Name { return t.name }

func (typedValue[T]) Supports(call Call) bool {
	return call.Shape == ShapeValue && call.Type == typeOf[T]()
}

func (t typedValue[T]) InterceptValue(call Call, req Request, next ValueNext) (any, error) {
	v, err := t.fn(call, req, func(req Request) (T, error) {
		out, err := next(req)
		if err != nil {
			var zero T
			return zero, err
		}
		return as[T](out)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// TypedSequence adapts fn into a ShapeSequence interceptor for element type T.
func TypedSequence[T any](name Name, fn func(call Call, req Request, next func(Request) (Seq[T], error)) (Seq[T], error)) Interceptor {
	return typedSequence[T]{name: name, fn: fn}
}

type typedSequence[T any] struct {
	name Name
	fn   func(Call, Request, func(Request) (Seq[T], error)) (Seq[T], error)
}

func (t typedSequence[T]) Name() Name { return t.name }

func (typedSequence[T]) Supports(call Call) bool {
	return call.Shape == ShapeSequence && call.Type == typeOf[T]()
}

func (t typedSequence[T]) InterceptSequence(call Call, req Request, next SequenceNext) (Seq[any], error) {
	s, err := t.fn(call, req, func(req Request) (Seq[T], error) {
		out, err := next(req)
		if err != nil {
			return nil, err
		}
		return unerasedSeq[T](out), nil
	})
	if err != nil {
		return nil, err
	}
	return eraseSeq(s), nil
}

// TypedAsyncValue adapts fn into a ShapeAsyncValue interceptor for result type T.
func TypedAsyncValue[T any](name Name, fn func(ctx context.Context, call Call, req Request, next func(context.Context, Request) (T, error)) (T, error)) Interceptor {
	return typedAsyncValue[T]{name: name, fn: fn}
}

type typedAsyncValue[T any] struct {
	name Name
	fn   func(context.Context, Call, Request, func(context.Context, Request) (T, error)) (T, error)
}

func (t typedAsyncValue[T]) Name() Name { return t.name }

func (typedAsyncValue[T]) Supports(call Call) bool {
	return call.Shape == ShapeAsyncValue && call.Type == typeOf[T]()
}

func (t typedAsyncValue[T]) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error) {
	v, err := t.fn(ctx, call, req, func(ctx context.Context, req Request) (T, error) {
		out, err := next(ctx, req)
		if err != nil {
			var zero T
			return zero, err
		}
		return as[T](out)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

// TypedAsyncSequence adapts fn into a ShapeAsyncSequence interceptor for element type T.
func TypedAsyncSequence[T any](name Name, fn func(ctx context.Context, call Call, req Request, next func(context.Context, Request) (*Stream[T], error)) (*Stream[T], error)) Interceptor {
	return typedAsyncSequence[T]{name: name, fn: fn}
}

type typedAsyncSequence[T any] struct {
	name Name
	fn   func(context.Context, Call, Request, func(context.Context, Request) (*Stream[T], error)) (*Stream[T], error)
}

func (t typedAsyncSequence[T]) Name() Name { return t.name }

func (typedAsyncSequence[T]) Supports(call Call) bool {
	return call.Shape == ShapeAsyncSequence && call.Type == typeOf[T]()
}

func (t typedAsyncSequence[T]) InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error) {
	s, err := t.fn(ctx, call, req, func(ctx context.Context, req Request) (*Stream[T], error) {
		out, err := next(ctx, req)
		if err != nil {
			return nil, err
		}
		return unerasedStream[T](out), nil
	})
	if err != nil {
		return nil, err
	}
	return eraseStream(s), nil
}
