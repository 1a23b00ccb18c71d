package interceptz

// Seq is a lazy, synchronous sequence of T. Iteration may fail part way; the
// failure is yielded as a non-nil error and iteration should stop.
//
//	for w, err := range widgets {
//	    if err != nil {
//	        return err
//	    }
//	    ...
//	}
//
// Asking Execute for a Seq[T] selects ShapeSequence with element type T.
type Seq[T any] func(yield func(T, error) bool)

// SeqOf returns a sequence over the given items.
func SeqOf[T any](items ...T) Seq[T] {
	return func(yield func(T, error) bool) {
		for _, item := range items {
			if !yield(item, nil) {
				return
			}
		}
	}
}

// SeqError returns a sequence that yields err once.
func SeqError[T any](err error) Seq[T] {
	return func(yield func(T, error) bool) {
		var zero T
		yield(zero, err)
	}
}

// Collect drains seq into a slice, stopping at the first error.
func Collect[T any](seq Seq[T]) ([]T, error) {
	var out []T
	if seq == nil {
		return out, nil
	}
	for item, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, item)
	}
	return out, nil
}

// Map returns a sequence applying fn to each item of seq. Upstream errors pass through.
func Map[T, U any](seq Seq[T], fn func(T) (U, error)) Seq[U] {
	return func(yield func(U, error) bool) {
		if seq == nil {
			return
		}
		for item, err := range seq {
			var out U
			if err == nil {
				out, err = fn(item)
			}
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

func (Seq[T]) wrapper() wrapperInfo {
	return wrapperInfo{
		kind: wrapSeq,
		elem: typeOf[T](),
		unerase: func(v any) (any, error) {
			s, _ := v.(Seq[any])
			return unerasedSeq[T](s), nil
		},
	}
}

// eraseSeq converts a typed sequence into the form interceptors see.
func eraseSeq[T any](seq Seq[T]) Seq[any] {
	if seq == nil {
		return nil
	}
	if erased, ok := any(seq).(Seq[any]); ok {
		return erased
	}
	return func(yield func(any, error) bool) {
		for item, err := range seq {
			if !yield(item, err) {
				return
			}
		}
	}
}

// unerasedSeq converts an erased sequence back to its element type. Items of
// another type end iteration with a ResultTypeError.
func unerasedSeq[T any](seq Seq[any]) Seq[T] {
	if seq == nil {
		return nil
	}
	if typed, ok := any(seq).(Seq[T]); ok {
		return typed
	}
	return func(yield func(T, error) bool) {
		for item, err := range seq {
			v, cerr := as[T](item)
			if err == nil {
				err = cerr
			}
			if !yield(v, err) || cerr != nil {
				return
			}
		}
	}
}
