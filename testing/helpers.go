// Package testing provides test utilities and helpers for interceptz pipelines.
//
// It includes a call Recorder, spy and short-circuit interceptors for every
// shape, a configurable stub Executor, and assertion helpers.
//
// Example usage:
//
//	func TestAuditOrder(t *testing.T) {
//		rec := testing.NewRecorder()
//		stub := testing.NewStubExecutor(rec).WithValue(int64(3))
//
//		p, err := interceptz.NewPipeline("test", stub,
//			testing.Spy("outer", rec),
//			testing.Spy("inner", rec),
//		)
//		require.NoError(t, err)
//
//		n, err := interceptz.Execute[int64](p, "count")
//		require.NoError(t, err)
//		assert.Equal(t, int64(3), n)
//		testing.AssertOrder(t, rec, "outer", "inner", "terminal", "inner", "outer")
//	}
package testing

import (
	"context"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/zoobzio/interceptz"
)

// Terminal is the event the stub executor records for every call.
const Terminal = "terminal"

// Recorder is an ordered, concurrency-safe log of events.
type Recorder struct {
	mu     sync.Mutex
	events []string
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Record appends event.
func (r *Recorder) Record(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events in order.
func (r *Recorder) Events() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.events)
}

// Count returns how many times event was recorded.
func (r *Recorder) Count(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e == event {
			n++
		}
	}
	return n
}

// Reset clears the log.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Spy returns an interceptor for every shape that records its name when a
// call enters and again when next returns, then passes the result through.
func Spy(name string, rec *Recorder) interceptz.Interceptor {
	return interceptz.Around(name, func(_ context.Context, _ interceptz.Call, proceed func() error) error {
		rec.Record(name)
		err := proceed()
		rec.Record(name)
		return err
	})
}

// ShortCircuit returns an interceptor for every shape that records its name
// and answers with value and err without calling next. Sequence shapes yield
// value as their single item; compiled shapes return a callable that does.
func ShortCircuit(name string, rec *Recorder, value any, err error) interceptz.Interceptor {
	return shortCircuit{name: name, rec: rec, value: value, err: err}
}

type shortCircuit struct {
	name  string
	rec   *Recorder
	value any
	err   error
}

func (s shortCircuit) Name() interceptz.Name { return s.name }

func (s shortCircuit) hit() error {
	if s.rec != nil {
		s.rec.Record(s.name)
	}
	return s.err
}

func (s shortCircuit) seq() interceptz.Seq[any] {
	return interceptz.SeqOf(s.value)
}

func (s shortCircuit) InterceptValue(interceptz.Call, interceptz.Request, interceptz.ValueNext) (any, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.value, nil
}

func (s shortCircuit) InterceptSequence(interceptz.Call, interceptz.Request, interceptz.SequenceNext) (interceptz.Seq[any], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.seq(), nil
}

func (s shortCircuit) InterceptAsyncValue(context.Context, interceptz.Call, interceptz.Request, interceptz.AsyncValueNext) (any, error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return s.value, nil
}

func (s shortCircuit) InterceptAsyncSequence(context.Context, interceptz.Call, interceptz.Request, interceptz.AsyncSequenceNext) (*interceptz.Stream[any], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return interceptz.StreamOf(s.value), nil
}

func (s shortCircuit) InterceptCompiledValue(interceptz.Call, interceptz.Request, interceptz.CompiledValueNext) (interceptz.Query[any], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return func(interceptz.Params) (any, error) { return s.value, nil }, nil
}

func (s shortCircuit) InterceptCompiledSequence(interceptz.Call, interceptz.Request, interceptz.CompiledSequenceNext) (interceptz.Query[interceptz.Seq[any]], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return func(interceptz.Params) (interceptz.Seq[any], error) { return s.seq(), nil }, nil
}

func (s shortCircuit) InterceptCompiledAsyncValue(interceptz.Call, interceptz.Request, interceptz.CompiledAsyncValueNext) (interceptz.AsyncQuery[any], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return func(context.Context, interceptz.Params) (any, error) { return s.value, nil }, nil
}

func (s shortCircuit) InterceptCompiledAsyncSequence(interceptz.Call, interceptz.Request, interceptz.CompiledAsyncSequenceNext) (interceptz.AsyncQuery[*interceptz.Stream[any]], error) {
	if err := s.hit(); err != nil {
		return nil, err
	}
	return func(context.Context, interceptz.Params) (*interceptz.Stream[any], error) {
		return interceptz.StreamOf(s.value), nil
	}, nil
}

// StubExecutor is a configurable interceptz.Executor for every shape. It
// records Terminal on each call and answers with the configured value (value
// shapes) or items (sequence shapes). Async shapes honor the configured delay
// and return ctx.Err() when the context ends first.
type StubExecutor struct { //nolint:govet // fieldalignment: Test helper struct optimized for functionality over memory efficiency
	rec         *Recorder
	mu          sync.Mutex
	value       any
	items       []any
	err         error
	delay       time.Duration
	calls       map[interceptz.Shape]int
	invocations int
	lastRequest interceptz.Request
	lastParams  interceptz.Params
}

// NewStubExecutor creates a stub that records to rec, which may be nil.
func NewStubExecutor(rec *Recorder) *StubExecutor {
	return &StubExecutor{
		rec:   rec,
		calls: make(map[interceptz.Shape]int),
	}
}

// WithValue sets the result of the value shapes.
func (s *StubExecutor) WithValue(v any) *StubExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	return s
}

// WithItems sets the items of the sequence shapes.
func (s *StubExecutor) WithItems(items ...any) *StubExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	return s
}

// WithError makes every call fail with err.
func (s *StubExecutor) WithError(err error) *StubExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
	return s
}

// WithDelay delays the async shapes by d.
func (s *StubExecutor) WithDelay(d time.Duration) *StubExecutor {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
	return s
}

// Calls returns how many times shape reached the stub.
func (s *StubExecutor) Calls(shape interceptz.Shape) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[shape]
}

// Invocations returns how many times compiled callables produced by the stub ran.
func (s *StubExecutor) Invocations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.invocations
}

// LastRequest returns the request of the most recent call.
func (s *StubExecutor) LastRequest() interceptz.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRequest
}

// LastParams returns the params of the most recent compiled invocation.
func (s *StubExecutor) LastParams() interceptz.Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastParams
}

type stubState struct {
	value any
	items []any
	err   error
	delay time.Duration
}

func (s *StubExecutor) enter(call interceptz.Call, req interceptz.Request) stubState {
	if s.rec != nil {
		s.rec.Record(Terminal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[call.Shape]++
	s.lastRequest = req
	return stubState{value: s.value, items: slices.Clone(s.items), err: s.err, delay: s.delay}
}

func (s *StubExecutor) invoked(params interceptz.Params) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invocations++
	s.lastParams = params
}

func wait(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ExecuteValue implements interceptz.Executor.
func (s *StubExecutor) ExecuteValue(call interceptz.Call, req interceptz.Request) (any, error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return st.value, nil
}

// ExecuteSequence implements interceptz.Executor.
func (s *StubExecutor) ExecuteSequence(call interceptz.Call, req interceptz.Request) (interceptz.Seq[any], error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return interceptz.SeqOf(st.items...), nil
}

// ExecuteAsyncValue implements interceptz.Executor.
func (s *StubExecutor) ExecuteAsyncValue(ctx context.Context, call interceptz.Call, req interceptz.Request) (any, error) {
	st := s.enter(call, req)
	if err := wait(ctx, st.delay); err != nil {
		return nil, err
	}
	if st.err != nil {
		return nil, st.err
	}
	return st.value, nil
}

// ExecuteAsyncSequence implements interceptz.Executor.
func (s *StubExecutor) ExecuteAsyncSequence(ctx context.Context, call interceptz.Call, req interceptz.Request) (*interceptz.Stream[any], error) {
	st := s.enter(call, req)
	if err := wait(ctx, st.delay); err != nil {
		return nil, err
	}
	if st.err != nil {
		return nil, st.err
	}
	return interceptz.StreamOf(st.items...), nil
}

// CompileValue implements interceptz.Executor.
func (s *StubExecutor) CompileValue(call interceptz.Call, req interceptz.Request) (interceptz.Query[any], error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return func(params interceptz.Params) (any, error) {
		s.invoked(params)
		return st.value, nil
	}, nil
}

// CompileSequence implements interceptz.Executor.
func (s *StubExecutor) CompileSequence(call interceptz.Call, req interceptz.Request) (interceptz.Query[interceptz.Seq[any]], error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return func(params interceptz.Params) (interceptz.Seq[any], error) {
		s.invoked(params)
		return interceptz.SeqOf(st.items...), nil
	}, nil
}

// CompileAsyncValue implements interceptz.Executor.
func (s *StubExecutor) CompileAsyncValue(call interceptz.Call, req interceptz.Request) (interceptz.AsyncQuery[any], error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return func(ctx context.Context, params interceptz.Params) (any, error) {
		s.invoked(params)
		if err := wait(ctx, st.delay); err != nil {
			return nil, err
		}
		return st.value, nil
	}, nil
}

// CompileAsyncSequence implements interceptz.Executor.
func (s *StubExecutor) CompileAsyncSequence(call interceptz.Call, req interceptz.Request) (interceptz.AsyncQuery[*interceptz.Stream[any]], error) {
	st := s.enter(call, req)
	if st.err != nil {
		return nil, st.err
	}
	return func(ctx context.Context, params interceptz.Params) (*interceptz.Stream[any], error) {
		s.invoked(params)
		if err := wait(ctx, st.delay); err != nil {
			return nil, err
		}
		return interceptz.StreamOf(st.items...), nil
	}, nil
}

// Assertion Helpers

// AssertOrder verifies that rec holds exactly the expected events in order.
func AssertOrder(t *testing.T, rec *Recorder, expected ...string) {
	t.Helper()
	actual := rec.Events()
	if !slices.Equal(actual, expected) {
		t.Errorf("expected events %v, got %v", expected, actual)
	}
}

// AssertCalls verifies that shape reached the stub exactly n times.
func AssertCalls(t *testing.T, stub *StubExecutor, shape interceptz.Shape, expectedCalls int) {
	t.Helper()
	if actual := stub.Calls(shape); actual != expectedCalls {
		t.Errorf("expected %s to reach the stub %d times, but it did %d times", shape, expectedCalls, actual)
	}
}

// Helper Functions

// WaitFor polls cond until it holds or timeout passes. Returns true if cond held.
func WaitFor(cond func() bool, timeout time.Duration) bool {
	start := time.Now()
	for time.Since(start) < timeout {
		if cond() {
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
	return cond()
}

// ParallelTest runs testFunc concurrently in the given number of goroutines
// and waits for all of them.
func ParallelTest(t *testing.T, goroutines int, testFunc func(int)) {
	t.Helper()

	var wg sync.WaitGroup
	wg.Add(goroutines)

	for i := 0; i < goroutines; i++ {
		go func(id int) {
			defer wg.Done()
			testFunc(id)
		}(i)
	}

	wg.Wait()
}
