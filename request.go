package interceptz

import (
	"context"
	"reflect"
)

// Name is a type alias for interceptor and pipeline names.
// Storing names as constants keeps logs and span tags consistent.
type Name = string

// Request is the opaque description of what to execute. The engine never
// inspects it; interceptors may replace it with a new value for the steps
// below them but must not mutate a request they did not create.
type Request = any

// Params carries the runtime arguments a compiled callable is invoked with.
type Params map[string]any

// Bound pairs a request with the parameters of one compiled invocation.
// Terminals that only implement the plain shapes receive a Bound request when
// a compiled callable runs.
type Bound struct {
	Request Request
	Params  Params
}

// Bind returns req bound to params.
func Bind(req Request, params Params) Bound {
	return Bound{Request: req, Params: params}
}

// Call describes the chain an interceptor is running in: the operation shape
// and the concrete result type (the element type for sequence shapes).
// A Call is fixed when the chain is built and passed to every invocation.
type Call struct {
	Shape Shape
	Type  reflect.Type
}

// String renders the call as "shape[type]".
func (c Call) String() string {
	if c.Type == nil {
		return c.Shape.String() + "[<nil>]"
	}
	return c.Shape.String() + "[" + c.Type.String() + "]"
}

// Query is the callable produced by the synchronous compiled shapes.
type Query[T any] func(params Params) (T, error)

// AsyncQuery is the callable produced by the asynchronous compiled shapes.
type AsyncQuery[T any] func(ctx context.Context, params Params) (T, error)

// typeOf returns the reflect.Type of T, including interface types.
func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeOf returns the result-type token for T, for use with Pipeline.Dispatch.
func TypeOf[T any]() reflect.Type {
	return typeOf[T]()
}
