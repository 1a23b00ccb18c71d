// Package interceptz provides a type-safe engine for composing interceptors
// around data-access operations in Go.
//
// # Overview
//
// A host registers interceptors once, in order, and then dispatches calls
// through them. Every call has a shape and a result type. The first time a
// (shape, result type) pair is seen, interceptz folds the interceptors that
// support that shape into a chain around the host's terminal Executor and
// caches it. Every later call of the same pair reuses the cached chain, so the
// per-call cost is a map lookup and the delegations themselves.
//
// # Shapes
//
// The set of operation shapes is closed:
//
//   - ShapeValue: a single result, produced synchronously
//   - ShapeSequence: a lazy Seq of results
//   - ShapeAsyncValue: a single result, produced with a context
//   - ShapeAsyncSequence: a Stream of results, produced with a context
//   - ShapeCompiledValue and friends: a Query or AsyncQuery built once and run
//     many times with different Params
//
// Shapes are chosen by the entry point and the type the caller asks for:
//
//	n, err := interceptz.Execute[int64](p, req)                          // value
//	seq, err := interceptz.Execute[interceptz.Seq[Widget]](p, req)       // sequence
//	w, err := interceptz.ExecuteAsync[Widget](ctx, p, req)               // async value
//	q, err := interceptz.Compile[interceptz.Seq[Widget]](p, req)         // compiled sequence
//
// # Interceptors
//
// An Interceptor has a Name and implements any subset of the eight per-shape
// interfaces (ValueInterceptor, SequenceInterceptor and so on). It takes part
// only in chains whose shape it implements, and an interceptor that also
// implements Selective can opt out of individual calls. Interceptors receive
// the request and a next function; they may replace the request, transform
// the result, or short-circuit by not calling next at all. Errors travel back
// through the chain unchanged.
//
// Ready-made interceptors cover the common cases:
//
//   - Around: one function that observes every shape
//   - Timing and Logging: duration reporting and log/slog output
//   - Rewrite: replace the request before it reaches the terminal
//   - When: run another interceptor only for requests matching a Predicate
//   - TypedValue, TypedSequence and friends: work with concrete result types
//
// # Ordering
//
// Interceptors run in registration order on the way in and in reverse order
// on the way out. With A, B and C registered:
//
//	A -> B -> C -> terminal -> C -> B -> A
//
// # Sessions
//
// A Registry collects interceptors and factories. The first call to Session
// freezes it; each session gets a Pipeline with its own chain cache and fresh
// instances from every factory. Pipelines are safe for concurrent use, and
// concurrent first use of a pair builds the chain exactly once.
//
//	reg := interceptz.NewRegistry("catalog", interceptz.WithLogger(logger))
//	_ = reg.Register(interceptz.Logging(logger))
//	_ = reg.RegisterFactory(func() interceptz.Interceptor { return newTenantScope() })
//
//	p, err := reg.Session(terminal)
//	widgets, err := interceptz.Execute[interceptz.Seq[Widget]](p, req)
//
// # Observability
//
// Registries carry metricz counters, tracez spans and hookz events for chain
// builds, cache hits and dispatch failures. See the Pipeline* key constants.
package interceptz
