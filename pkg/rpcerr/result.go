package rpcerr

// Result carries either a value of type T or the *Error that prevented it.
// It is the unit handed across channels when an outcome is produced on one
// goroutine and consumed on another.
type Result[T any] struct {
	value T
	err   *Error
}

// Ok wraps a successful value.
func Ok[T any](v T) Result[T] { return Result[T]{value: v} }

// Fail wraps a failure. A nil err yields a zero-valued success.
func Fail[T any](err *Error) Result[T] { return Result[T]{err: err} }

func (r Result[T]) IsOk() bool { return r.err == nil }

func (r Result[T]) Value() T { return r.value }

func (r Result[T]) Err() *Error { return r.err }

// Get unpacks r into the conventional (value, error) pair. The error is an
// untyped nil on success.
func (r Result[T]) Get() (T, error) {
	if r.err != nil {
		return r.value, r.err
	}
	return r.value, nil
}
