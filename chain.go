package interceptz

import "context"

// fold composes the chain for one shape. It walks the interceptors from last
// to first, wrapping the chain built so far, so the first registered
// interceptor ends up outermost and the terminal innermost. wrap reports
// false for interceptors that do not implement the shape.
func fold[N any](call Call, interceptors []Interceptor, terminal N, wrap func(Interceptor, N) (N, bool)) (N, int) {
	chain := terminal
	used := 0
	for i := len(interceptors) - 1; i >= 0; i-- {
		ic := interceptors[i]
		if s, ok := ic.(Selective); ok && !s.Supports(call) {
			continue
		}
		if next, ok := wrap(ic, chain); ok {
			chain = next
			used++
		}
	}
	return chain, used
}

// buildChain returns the composed chain for call in erased form, together
// with the number of interceptors that took part. The concrete type of the
// chain is the shape's Next type.
func buildChain(call Call, interceptors []Interceptor, exec Executor) (any, int) {
	switch call.Shape {
	case ShapeValue:
		terminal := ValueNext(func(req Request) (any, error) {
			return exec.ExecuteValue(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next ValueNext) (ValueNext, bool) {
			ic, ok := i.(ValueInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (any, error) {
				return ic.InterceptValue(call, req, next)
			}, true
		})

	case ShapeSequence:
		terminal := SequenceNext(func(req Request) (Seq[any], error) {
			return exec.ExecuteSequence(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next SequenceNext) (SequenceNext, bool) {
			ic, ok := i.(SequenceInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (Seq[any], error) {
				return ic.InterceptSequence(call, req, next)
			}, true
		})

	case ShapeAsyncValue:
		terminal := AsyncValueNext(func(ctx context.Context, req Request) (any, error) {
			return exec.ExecuteAsyncValue(ctx, call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next AsyncValueNext) (AsyncValueNext, bool) {
			ic, ok := i.(AsyncValueInterceptor)
			if !ok {
				return nil, false
			}
			return func(ctx context.Context, req Request) (any, error) {
				return ic.InterceptAsyncValue(ctx, call, req, next)
			}, true
		})

	case ShapeAsyncSequence:
		terminal := AsyncSequenceNext(func(ctx context.Context, req Request) (*Stream[any], error) {
			return exec.ExecuteAsyncSequence(ctx, call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next AsyncSequenceNext) (AsyncSequenceNext, bool) {
			ic, ok := i.(AsyncSequenceInterceptor)
			if !ok {
				return nil, false
			}
			return func(ctx context.Context, req Request) (*Stream[any], error) {
				return ic.InterceptAsyncSequence(ctx, call, req, next)
			}, true
		})

	case ShapeCompiledValue:
		terminal := CompiledValueNext(func(req Request) (Query[any], error) {
			return exec.CompileValue(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next CompiledValueNext) (CompiledValueNext, bool) {
			ic, ok := i.(CompiledValueInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (Query[any], error) {
				return ic.InterceptCompiledValue(call, req, next)
			}, true
		})

	case ShapeCompiledSequence:
		terminal := CompiledSequenceNext(func(req Request) (Query[Seq[any]], error) {
			return exec.CompileSequence(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next CompiledSequenceNext) (CompiledSequenceNext, bool) {
			ic, ok := i.(CompiledSequenceInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (Query[Seq[any]], error) {
				return ic.InterceptCompiledSequence(call, req, next)
			}, true
		})

	case ShapeCompiledAsyncValue:
		terminal := CompiledAsyncValueNext(func(req Request) (AsyncQuery[any], error) {
			return exec.CompileAsyncValue(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next CompiledAsyncValueNext) (CompiledAsyncValueNext, bool) {
			ic, ok := i.(CompiledAsyncValueInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (AsyncQuery[any], error) {
				return ic.InterceptCompiledAsyncValue(call, req, next)
			}, true
		})

	case ShapeCompiledAsyncSequence:
		terminal := CompiledAsyncSequenceNext(func(req Request) (AsyncQuery[*Stream[any]], error) {
			return exec.CompileAsyncSequence(call, req)
		})
		return fold(call, interceptors, terminal, func(i Interceptor, next CompiledAsyncSequenceNext) (CompiledAsyncSequenceNext, bool) {
			ic, ok := i.(CompiledAsyncSequenceInterceptor)
			if !ok {
				return nil, false
			}
			return func(req Request) (AsyncQuery[*Stream[any]], error) {
				return ic.InterceptCompiledAsyncSequence(call, req, next)
			}, true
		})
	}
	return nil, 0
}

// invokeChain runs an erased chain produced by buildChain. For compiled
// shapes the result is the callable itself.
func invokeChain(ctx context.Context, shape Shape, chain any, req Request) (any, error) {
	switch shape {
	case ShapeValue:
		return chain.(ValueNext)(req)
	case ShapeSequence:
		return chain.(SequenceNext)(req)
	case ShapeAsyncValue:
		return chain.(AsyncValueNext)(ctx, req)
	case ShapeAsyncSequence:
		return chain.(AsyncSequenceNext)(ctx, req)
	case ShapeCompiledValue:
		return chain.(CompiledValueNext)(req)
	case ShapeCompiledSequence:
		return chain.(CompiledSequenceNext)(req)
	case ShapeCompiledAsyncValue:
		return chain.(CompiledAsyncValueNext)(req)
	case ShapeCompiledAsyncSequence:
		return chain.(CompiledAsyncSequenceNext)(req)
	}
	return nil, &UnsupportedShapeError{Entry: "dispatch", Type: nil, Shape: shape}
}
