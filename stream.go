package interceptz

import (
	"context"
	"errors"
	"io"
	"sync"
)

// ErrStreamClosed is returned by StreamWriter.Send once the reader has closed.
var ErrStreamClosed = errors.New("stream closed")

// Stream is an asynchronous sequence of T. Items are pulled with Recv, which
// returns io.EOF after the last item. Readers should Close a stream they stop
// reading early so the producer can exit.
//
// Asking ExecuteAsync for a *Stream[T] selects ShapeAsyncSequence with
// element type T.
type Stream[T any] struct {
	next func(ctx context.Context) (T, error)
	stop func()
	once sync.Once
}

// StreamWriter is the producing side of a Pipe.
type StreamWriter[T any] struct {
	p *pipe[T]
}

type streamItem[T any] struct {
	value T
	err   error
}

type pipe[T any] struct {
	items     chan streamItem[T]
	done      chan struct{}
	sendOnce  sync.Once
	closeOnce sync.Once
}

// Pipe creates a connected stream and writer. capacity is the channel buffer.
//
//	sr, sw := interceptz.Pipe[Widget](8)
//	go func() {
//	    defer sw.Close()
//	    for _, w := range rows {
//	        if sw.Send(w, nil) != nil {
//	            return
//	        }
//	    }
//	}()
//	return sr, nil
func Pipe[T any](capacity int) (*Stream[T], *StreamWriter[T]) {
	if capacity < 0 {
		capacity = 0
	}
	p := &pipe[T]{
		items: make(chan streamItem[T], capacity),
		done:  make(chan struct{}),
	}
	s := &Stream[T]{
		next: func(ctx context.Context) (T, error) {
			var zero T
			select {
			case item, ok := <-p.items:
				if !ok {
					return zero, io.EOF
				}
				return item.value, item.err
			case <-ctx.Done():
				return zero, ctx.Err()
			}
		},
		stop: func() {
			p.closeOnce.Do(func() { close(p.done) })
		},
	}
	return s, &StreamWriter[T]{p: p}
}

// Send delivers one item, or one error, to the reader. It blocks until the
// reader takes the item or closes, returning ErrStreamClosed in the latter case.
func (w *StreamWriter[T]) Send(value T, err error) error {
	select {
	case <-w.p.done:
		return ErrStreamClosed
	default:
	}
	select {
	case w.p.items <- streamItem[T]{value: value, err: err}:
		return nil
	case <-w.p.done:
		return ErrStreamClosed
	}
}

// Close signals the end of the stream. Subsequent Recv calls return io.EOF.
func (w *StreamWriter[T]) Close() {
	w.p.sendOnce.Do(func() { close(w.p.items) })
}

// StreamOf returns a stream over the given items.
func StreamOf[T any](items ...T) *Stream[T] {
	var (
		mu  sync.Mutex
		idx int
	)
	return &Stream[T]{
		next: func(ctx context.Context) (T, error) {
			var zero T
			if err := ctx.Err(); err != nil {
				return zero, err
			}
			mu.Lock()
			defer mu.Unlock()
			if idx >= len(items) {
				return zero, io.EOF
			}
			item := items[idx]
			idx++
			return item, nil
		},
		stop: func() {},
	}
}

// StreamError returns a stream whose first Recv fails with err.
func StreamError[T any](err error) *Stream[T] {
	return &Stream[T]{
		next: func(context.Context) (T, error) {
			var zero T
			return zero, err
		},
		stop: func() {},
	}
}

// Recv returns the next item, or io.EOF after the last one.
func (s *Stream[T]) Recv() (T, error) {
	return s.next(context.Background())
}

// RecvContext is Recv that gives up when ctx is done.
func (s *Stream[T]) RecvContext(ctx context.Context) (T, error) {
	return s.next(ctx)
}

// Close releases the producer. It is safe to call more than once.
func (s *Stream[T]) Close() {
	s.once.Do(s.stop)
}

// CollectStream drains s into a slice and closes it. io.EOF is not an error.
func CollectStream[T any](ctx context.Context, s *Stream[T]) ([]T, error) {
	var out []T
	if s == nil {
		return out, nil
	}
	defer s.Close()
	for {
		item, err := s.RecvContext(ctx)
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
}

// ConvertStream returns a stream applying fn to every item of s. Closing the
// result closes s.
func ConvertStream[T, U any](s *Stream[T], fn func(T) (U, error)) *Stream[U] {
	return &Stream[U]{
		next: func(ctx context.Context) (U, error) {
			var zero U
			item, err := s.next(ctx)
			if err != nil {
				return zero, err
			}
			return fn(item)
		},
		stop: s.Close,
	}
}

func (*Stream[T]) wrapper() wrapperInfo {
	return wrapperInfo{
		kind: wrapStream,
		elem: typeOf[T](),
		unerase: func(v any) (any, error) {
			s, _ := v.(*Stream[any])
			return unerasedStream[T](s), nil
		},
	}
}

func eraseStream[T any](s *Stream[T]) *Stream[any] {
	if s == nil {
		return nil
	}
	if erased, ok := any(s).(*Stream[any]); ok {
		return erased
	}
	return ConvertStream(s, func(item T) (any, error) { return item, nil })
}

func unerasedStream[T any](s *Stream[any]) *Stream[T] {
	if s == nil {
		return nil
	}
	if typed, ok := any(s).(*Stream[T]); ok {
		return typed
	}
	return ConvertStream(s, as[T])
}
