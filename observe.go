package interceptz

import (
	"context"
	"log/slog"
	"time"

	"github.com/zoobzio/clockz"
)

// AroundFunc wraps one call of any shape. proceed runs the rest of the chain
// and returns its error; the result itself is carried through untouched.
// ctx is the call's context for the async shapes and context.Background()
// for the rest.
//
// For the sequence shapes proceed returns once the sequence or stream has
// been produced, before any item is consumed. For the compiled shapes it
// returns once the callable has been produced.
type AroundFunc func(ctx context.Context, call Call, proceed func() error) error

// Around returns an interceptor that runs fn around every shape.
//
//	trace := interceptz.Around("trace", func(ctx context.Context, call interceptz.Call, proceed func() error) error {
//	    log.Printf("-> %s", call)
//	    err := proceed()
//	    log.Printf("<- %s", call)
//	    return err
//	})
//
// If fn returns without calling proceed, the call yields the zero result and
// fn's error.
func Around(name Name, fn AroundFunc) Interceptor {
	return around{name: name, fn: fn}
}

type around struct {
	name Name
	fn   AroundFunc
}

func (a around) Name() Name { return a.name }

func (a around) InterceptValue(call Call, req Request, next ValueNext) (out any, err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

func (a around) InterceptSequence(call Call, req Request, next SequenceNext) (out Seq[any], err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

func (a around) InterceptAsyncValue(ctx context.Context, call Call, req Request, next AsyncValueNext) (out any, err error) {
	err = a.fn(ctx, call, func() error {
		out, err = next(ctx, req)
		return err
	})
	return out, err
}

func (a around) InterceptAsyncSequence(ctx context.Context, call Call, req Request, next AsyncSequenceNext) (out *Stream[any], err error) {
	err = a.fn(ctx, call, func() error {
		out, err = next(ctx, req)
		return err
	})
	return out, err
}

func (a around) InterceptCompiledValue(call Call, req Request, next CompiledValueNext) (out Query[any], err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

func (a around) InterceptCompiledSequence(call Call, req Request, next CompiledSequenceNext) (out Query[Seq[any]], err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

func (a around) InterceptCompiledAsyncValue(call Call, req Request, next CompiledAsyncValueNext) (out AsyncQuery[any], err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

func (a around) InterceptCompiledAsyncSequence(call Call, req Request, next CompiledAsyncSequenceNext) (out AsyncQuery[*Stream[any]], err error) {
	err = a.fn(context.Background(), call, func() error {
		out, err = next(req)
		return err
	})
	return out, err
}

// Timing returns an interceptor that reports how long the rest of the chain
// took for every call, measured on clock.
func Timing(name Name, clock clockz.Clock, observe func(call Call, elapsed time.Duration, err error)) Interceptor {
	if clock == nil {
		clock = clockz.RealClock
	}
	return Around(name, func(_ context.Context, call Call, proceed func() error) error {
		start := clock.Now()
		err := proceed()
		observe(call, clock.Since(start), err)
		return err
	})
}

// Logging returns an interceptor that logs every call at debug level, or at
// error level when the call fails.
func Logging(logger *slog.Logger) Interceptor {
	return Timing("logging", clockz.RealClock, func(call Call, elapsed time.Duration, err error) {
		attrs := []slog.Attr{
			slog.String("shape", call.Shape.String()),
			slog.String("type", call.Type.String()),
			slog.Duration("duration", elapsed),
		}
		if err != nil {
			attrs = append(attrs, slog.String("error", err.Error()))
			logger.LogAttrs(context.Background(), slog.LevelError, "call failed", attrs...)
			return
		}
		logger.LogAttrs(context.Background(), slog.LevelDebug, "call", attrs...)
	})
}
