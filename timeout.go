package interceptz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zoobzio/clockz"
)

// ErrTimeout matches every *TimeoutError.
var ErrTimeout = errors.New("timeout")

// TimeoutError is returned by a Timeout interceptor whose deadline passed
// before the rest of the chain finished.
type TimeoutError struct {
	Name  Name
	After time.Duration
	Call  Call
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: %s after %s on %s", e.Name, ErrTimeout, e.After, e.Call)
}

// Is matches ErrTimeout and context.DeadlineExceeded.
func (e *TimeoutError) Is(target error) bool {
	return target == ErrTimeout || target == context.DeadlineExceeded
}

// Timeout returns an interceptor that bounds the rest of the chain to d for
// asynchronous value calls. The context passed down carries the deadline;
// when it passes, the caller gets a *TimeoutError straight away even if the
// terminal ignores cancellation. A deadline or cancellation on the caller's
// own context comes back unchanged.
//
// For compiled async values the bound applies to every invocation of the
// callable, not to compilation. Sequence and synchronous shapes are left
// alone: a stream outlives the call that opened it.
//
//	slow := interceptz.Timeout("lookup-timeout", 2*time.Second, nil)
func Timeout(name Name, d time.Duration, clock clockz.Clock) Interceptor {
	if clock == nil {
		clock = clockz.RealClock
	}
	return timeout{name: name, duration: d, clock: clock}
}

type timeout struct {
	name     Name
	duration time.Duration
	clock    clockz.Clock
}

func (t timeout) Name() Name { return t.name }

func (t timeout) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (any, error) {
	return t.bound(ctx, call, func(ctx context.Context) (any, error) {
		return next(ctx, req)
	})
}

func (t timeout) InterceptCompiledAsyncValue(call Call, req Request, next CompiledAsyncValueNext) (AsyncQuery[any], error) {
	q, err := next(req)
	if err != nil || q == nil {
		return q, err
	}
	return func(ctx context.Context, params Params) (any, error) {
		return t.bound(ctx, call, func(ctx context.Context) (any, error) {
			return q(ctx, params)
		})
	}, nil
}

func (t timeout) bound(parent context.Context, call Call, run func(context.Context) (any, error)) (any, error) {
	ctx, cancel := t.clock.WithTimeout(parent, t.duration)
	defer cancel()

	type result struct {
		v   any
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := run(ctx)
		done <- result{v: v, err: err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		// A caller's own deadline or cancellation is theirs, not ours.
		if err := parent.Err(); err != nil {
			return nil, err
		}
		return nil, &TimeoutError{Name: t.name, After: t.duration, Call: call}
	}
}
