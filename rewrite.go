package interceptz

import "context"

// RewriteFunc returns the request the rest of the chain should see.
type RewriteFunc func(call Call, req Request) (Request, error)

// Rewrite returns an interceptor that replaces the request before passing it
// on, for every shape. A failing rewrite ends the call with its error and the
// rest of the chain does not run.
//
//	scoped := interceptz.Rewrite("tenant", func(_ interceptz.Call, req interceptz.Request) (interceptz.Request, error) {
//	    f, ok := req.(store.Filter)
//	    if !ok {
//	        return req, nil
//	    }
//	    return f.Where("tenant_id", tenant), nil
//	})
func Rewrite(name Name, fn RewriteFunc) Interceptor {
	return rewrite{name: name, fn: fn}
}

type rewrite struct {
	name Name
	fn   RewriteFunc
}

func (r rewrite) Name() Name { return r.name }

func (r rewrite) InterceptValue(call Call, req Request, next ValueNext) (any, error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}

func (r rewrite) InterceptSequence(call Call, req Request, next SequenceNext) (Seq[any], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}

func (r rewrite) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, req)
}

func (r rewrite) InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (*Stream[any], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(ctx, req)
}

func (r rewrite) InterceptCompiledValue(call Call, req Request, next CompiledValueNext) (Query[any], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}

func (r rewrite) InterceptCompiledSequence(call Call, req Request, next CompiledSequenceNext) (Query[Seq[any]], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}

func (r rewrite) InterceptCompiledAsyncValue(call Call, req Request, next CompiledAsyncValueNext) (AsyncQuery[any], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}

func (r rewrite) InterceptCompiledAsyncSequence(call Call, req Request, next CompiledAsyncSequenceNext) (AsyncQuery[*Stream[any]], error) {
	req, err := r.fn(call, req)
	if err != nil {
		return nil, err
	}
	return next(req)
}
