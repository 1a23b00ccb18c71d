package interceptz

import "context"

// Continuations. Each shape's next has the signature of the interceptor
// method minus the call metadata and the continuation itself. Results are in
// erased form; typed adapters live in typed.go.
type (
	ValueNext                 func(req Request) (any, error)
	SequenceNext              func(req Request) (Seq[any], error)
	AsyncValueNext            func(ctx context.Context, req Request) (any, error)
	AsyncSequenceNext         func(ctx context.Context, req Request) (*Stream[any], error)
	CompiledValueNext         func(req Request) (Query[any], error)
	CompiledSequenceNext      func(req Request) (Query[Seq[any]], error)
	CompiledAsyncValueNext    func(req Request) (AsyncQuery[any], error)
	CompiledAsyncSequenceNext func(req Request) (AsyncQuery[*Stream[any]], error)
)

// Interceptor is a named participant in a pipeline. What it intercepts is
// decided by which of the shape interfaces below it implements; a shape it
// does not implement is skipped when chains are built, exactly as if it
// called next unchanged.
//
// An interceptor may call next once and return its result, transform the
// request or the result, or return a substitute without calling next at all.
// Calling next more than once is not supported.
type Interceptor interface {
	Name() Name
}

// ValueInterceptor intercepts ShapeValue calls.
type ValueInterceptor interface {
	InterceptValue(call Call, req Request, next ValueNext) (any, error)
}

// SequenceInterceptor intercepts ShapeSequence calls.
type SequenceInterceptor interface {
	InterceptSequence(call Call, req Request, next SequenceNext) (Seq[any], error)
}

// AsyncValueInterceptor intercepts ShapeAsyncValue calls.
type AsyncValueInterceptor interface {
	InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error)
}

// AsyncSequenceInterceptor intercepts ShapeAsyncSequence calls.
type AsyncSequenceInterceptor interface {
	InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error)
}

// CompiledValueInterceptor intercepts ShapeCompiledValue calls.
type CompiledValueInterceptor interface {
	InterceptCompiledValue(call Call, req Request, next CompiledValueNext) (Query[any], error)
}

// CompiledSequenceInterceptor intercepts ShapeCompiledSequence calls.
type CompiledSequenceInterceptor interface {
	InterceptCompiledSequence(call Call, req Request, next CompiledSequenceNext) (Query[Seq[any]], error)
}

// CompiledAsyncValueInterceptor intercepts ShapeCompiledAsyncValue calls.
type CompiledAsyncValueInterceptor interface {
	InterceptCompiledAsyncValue(call Call, req Request, next CompiledAsyncValueNext) (AsyncQuery[any], error)
}

// CompiledAsyncSequenceInterceptor intercepts ShapeCompiledAsyncSequence calls.
type CompiledAsyncSequenceInterceptor interface {
	InterceptCompiledAsyncSequence(call Call, req Request, next CompiledAsyncSequenceNext) (AsyncQuery[*Stream[any]], error)
}

// Selective lets an interceptor decline a chain at build time. Supports is
// called once per (type, shape) per pipeline, not per call.
type Selective interface {
	Supports(call Call) bool
}

// Participates reports whether i takes part in chains for call.
func Participates(i Interceptor, call Call) bool {
	if s, ok := i.(Selective); ok && !s.Supports(call) {
		return false
	}
	switch call.Shape {
	case ShapeValue:
		_, ok := i.(ValueInterceptor)
		return ok
	case ShapeSequence:
		_, ok := i.(SequenceInterceptor)
		return ok
	case ShapeAsyncValue:
		_, ok := i.(AsyncValueInterceptor)
		return ok
	case ShapeAsyncSequence:
		_, ok := i.(AsyncSequenceInterceptor)
		return ok
	case ShapeCompiledValue:
		_, ok := i.(CompiledValueInterceptor)
		return ok
	case ShapeCompiledSequence:
		_, ok := i.(CompiledSequenceInterceptor)
		return ok
	case ShapeCompiledAsyncValue:
		_, ok := i.(CompiledAsyncValueInterceptor)
		return ok
	case ShapeCompiledAsyncSequence:
		_, ok := i.(CompiledAsyncSequenceInterceptor)
		return ok
	}
	return false
}

// Passthrough returns an interceptor that implements every shape by calling
// next with the unmodified request and returning its result unmodified.
func Passthrough(name Name) Interceptor {
	return passthrough{name: name}
}

type passthrough struct {
	name Name
}

func (p passthrough) Name() Name { return p.name }

func (passthrough) InterceptValue(_ Call, req Request, next ValueNext) (any, error) {
	return next(req)
}

func (passthrough) InterceptSequence(_ Call, req Request, next SequenceNext) (Seq[any], error) {
	return next(req)
}

func (passthrough) InterceptAsyncValue(ctx context.Context, _ Call, req Request, next AsyncValueNext) (any, error) {
	return next(ctx, req)
}

func (passthrough) InterceptAsyncSequence(ctx context.Context, _ Call, req Request, next AsyncSequenceNext) (*Stream[any], error) {
	return next(ctx, req)
}

func (passthrough) InterceptCompiledValue(_ Call, req Request, next CompiledValueNext) (Query[any], error) {
	return next(req)
}

func (passthrough) InterceptCompiledSequence(_ Call, req Request, next CompiledSequenceNext) (Query[Seq[any]], error) {
	return next(req)
}

func (passthrough) InterceptCompiledAsyncValue(_ Call, req Request, next CompiledAsyncValueNext) (AsyncQuery[any], error) {
	return next(req)
}

func (passthrough) InterceptCompiledAsyncSequence(_ Call, req Request, next CompiledAsyncSequenceNext) (AsyncQuery[*Stream[any]], error) {
	return next(req)
}

// ValueFunc adapts fn into an interceptor for ShapeValue only.
func ValueFunc(name Name, fn func(call Call, req Request, next ValueNext) (any, error)) Interceptor {
	return valueFunc{name: name, fn: fn}
}

type valueFunc struct {
	name Name
	fn   func(Call, Request, ValueNext) (any, error)
}

func (f valueFunc) Name() Name { return f.name }

func (f valueFunc) InterceptValue(call Call, req Request, next ValueNext) (any, error) {
	return f.fn(call, req, next)
}

// SequenceFunc adapts fn into an interceptor for ShapeSequence only.
func SequenceFunc(name Name, fn func(call Call, req Request, next SequenceNext) (Seq[any], error)) Interceptor {
	return sequenceFunc{name: name, fn: fn}
}

type sequenceFunc struct {
	name Name
	fn   func(Call, Request, SequenceNext) (Seq[any], error)
}

func (f sequenceFunc) Name() Name { return f.name }

func (f sequenceFunc) InterceptSequence(call Call, req Request, next SequenceNext) (Seq[any], error) {
	return f.fn(call, req, next)
}

// AsyncValueFunc adapts fn into an interceptor for ShapeAsyncValue only.
func AsyncValueFunc(name Name, fn func(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error)) Interceptor {
	return asyncValueFunc{name: name, fn: fn}
}

type asyncValueFunc struct {
	name Name
	fn   func(context.Context, Call, Request, AsyncValueNext) (any, error)
}

func (f asyncValueFunc) Name() Name { return f.name }

func (f asyncValueFunc) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error) {
	return f.fn(ctx, call, req, next)
}

// AsyncSequenceFunc adapts fn into an interceptor for ShapeAsyncSequence only.
func AsyncSequenceFunc(name Name, fn func(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error)) Interceptor {
	return asyncSequenceFunc{name: name, fn: fn}
}

type asyncSequenceFunc struct {
	name Name
	fn   func(context.Context, Call, Request, AsyncSequenceNext) (*Stream[any], error)
}

func (f asyncSequenceFunc) Name() Name { return f.name }

func (f asyncSequenceFunc) InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error) {
	return f.fn(ctx, call, req, next)
}
