package interceptz

import (
	"context"
	"slices"

	"github.com/tidwall/gjson"
)

// JSONRequest is a request carried as raw JSON. The predicates below read it
// with gjson paths without decoding it.
type JSONRequest []byte

// Predicate decides per call whether a conditional interceptor runs.
type Predicate func(call Call, req Request) bool

// rawJSON returns the request bytes when req is valid JSON.
func rawJSON(req Request) ([]byte, bool) {
	var raw []byte
	switch r := req.(type) {
	case JSONRequest:
		raw = r
	case []byte:
		raw = r
	case string:
		raw = []byte(r)
	default:
		return nil, false
	}
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	return raw, true
}

// HasFields matches JSON requests in which every path exists.
func HasFields(paths ...string) Predicate {
	return func(_ Call, req Request) bool {
		raw, ok := rawJSON(req)
		if !ok {
			return false
		}
		for _, path := range paths {
			if !gjson.GetBytes(raw, path).Exists() {
				return false
			}
		}
		return true
	}
}

// FieldEquals matches JSON requests whose value at path is the string value.
func FieldEquals(path, value string) Predicate {
	return func(_ Call, req Request) bool {
		raw, ok := rawJSON(req)
		if !ok {
			return false
		}
		r := gjson.GetBytes(raw, path)
		return r.Exists() && r.Type == gjson.String && r.String() == value
	}
}

// OfShape matches calls of any of the given shapes.
func OfShape(shapes ...Shape) Predicate {
	return func(call Call, _ Request) bool {
		return slices.Contains(shapes, call.Shape)
	}
}

// And matches when every predicate matches.
func And(preds ...Predicate) Predicate {
	return func(call Call, req Request) bool {
		for _, p := range preds {
			if !p(call, req) {
				return false
			}
		}
		return true
	}
}

// Or matches when any predicate matches.
func Or(preds ...Predicate) Predicate {
	return func(call Call, req Request) bool {
		for _, p := range preds {
			if p(call, req) {
				return true
			}
		}
		return false
	}
}

// Not inverts pred.
func Not(pred Predicate) Predicate {
	return func(call Call, req Request) bool {
		return !pred(call, req)
	}
}

// When returns an interceptor that runs inner only for calls matching pred,
// and passes every other call straight to next. It takes part in exactly the
// chains inner takes part in.
//
//	audit := interceptz.When("audit-writes",
//	    interceptz.FieldEquals("op", "write"),
//	    auditor,
//	)
func When(name Name, pred Predicate, inner Interceptor) Interceptor {
	return when{name: name, pred: pred, inner: inner}
}

type when struct {
	name  Name
	pred  Predicate
	inner Interceptor
}

func (w when) Name() Name { return w.name }

func (w when) Supports(call Call) bool {
	return Participates(w.inner, call)
}

func (w when) InterceptValue(call Call, req Request, next ValueNext) (any, error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(ValueInterceptor).InterceptValue(call, req, next)
}

func (w when) InterceptSequence(call Call, req Request, next SequenceNext) (Seq[any], error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(SequenceInterceptor).InterceptSequence(call, req, next)
}

func (w when) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error) {
	if !w.pred(call, req) {
		return next(ctx, req)
	}
	return w.inner.(AsyncValueInterceptor).InterceptAsyncValue(ctx, call, req, next)
}

func (w when) InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error) {
	if !w.pred(call, req) {
		return next(ctx, req)
	}
	return w.inner.(AsyncSequenceInterceptor).InterceptAsyncSequence(ctx, call, req, next)
}

func (w when) InterceptCompiledValue(call Call, req Request, next CompiledValueNext) (Query[any], error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(CompiledValueInterceptor).InterceptCompiledValue(call, req, next)
}

func (w when) InterceptCompiledSequence(call Call, req Request, next CompiledSequenceNext) (Query[Seq[any]], error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(CompiledSequenceInterceptor).InterceptCompiledSequence(call, req, next)
}

func (w when) InterceptCompiledAsyncValue(call Call, req Request, next CompiledAsyncValueNext) (AsyncQuery[any], error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(CompiledAsyncValueInterceptor).InterceptCompiledAsyncValue(call, req, next)
}

func (w when) InterceptCompiledAsyncSequence(call Call, req Request, next CompiledAsyncSequenceNext) (AsyncQuery[*Stream[any]], error) {
	if !w.pred(call, req) {
		return next(req)
	}
	return w.inner.(CompiledAsyncSequenceInterceptor).InterceptCompiledAsyncSequence(call, req, next)
}
