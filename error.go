package interceptz

import (
	"errors"
	"fmt"
	"reflect"
)

// Configuration errors. They are reported when a pipeline is created, never
// deferred to the first call.
var (
	ErrNilExecutor    = errors.New("nil executor")
	ErrNilInterceptor = errors.New("nil interceptor")
	ErrRegistryFrozen = errors.New("registry frozen: interceptors must be registered before the first session")
)

// Dispatch errors.
var (
	ErrUnsupportedShape = errors.New("unsupported operation shape")
	ErrResultType       = errors.New("unexpected result type")
	ErrNoHandler        = errors.New("no terminal handler")
	ErrNoCallable       = errors.New("compiled chain produced no callable")
)

// UnsupportedShapeError reports a call site whose requested type cannot be
// classified into one of the eight shapes for the entry point it used.
type UnsupportedShapeError struct {
	Entry string
	Type  reflect.Type
	Shape Shape
}

func (e *UnsupportedShapeError) Error() string {
	if e.Type == nil {
		return fmt.Sprintf("%s: %s: shape %s without a result type", e.Entry, ErrUnsupportedShape, e.Shape)
	}
	return fmt.Sprintf("%s: %s: %s", e.Entry, ErrUnsupportedShape, e.Type)
}

// Is matches ErrUnsupportedShape.
func (e *UnsupportedShapeError) Is(target error) bool {
	return target == ErrUnsupportedShape
}

// ResultTypeError reports an interceptor or terminal that produced a value of
// a type other than the one the call site asked for.
type ResultTypeError struct {
	Want reflect.Type
	Got  reflect.Type
}

func (e *ResultTypeError) Error() string {
	return fmt.Sprintf("%s: want %s, got %s", ErrResultType, e.Want, e.Got)
}

// Is matches ErrResultType.
func (e *ResultTypeError) Is(target error) bool {
	return target == ErrResultType
}

// NoHandlerError is returned by Terminal when nothing is registered for a call.
type NoHandlerError struct {
	Call Call
}

func (e *NoHandlerError) Error() string {
	return fmt.Sprintf("%s for %s", ErrNoHandler, e.Call)
}

// Is matches ErrNoHandler.
func (e *NoHandlerError) Is(target error) bool {
	return target == ErrNoHandler
}

// as un-erases v to T. A nil v becomes the zero T.
func as[T any](v any) (T, error) {
	if v == nil {
		var zero T
		return zero, nil
	}
	typed, ok := v.(T)
	if !ok {
		var zero T
		return zero, &ResultTypeError{Want: typeOf[T](), Got: reflect.TypeOf(v)}
	}
	return typed, nil
}
