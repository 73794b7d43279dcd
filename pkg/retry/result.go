package retry

import "github.com/archivekit/webarchiver/pkg/failure"

// Result carries the outcome of a retried call: the value on success,
// the terminal error on failure, and how many attempts it took either
// way. Callers inspect IsSuccess/IsFailure rather than nil-checking Err
// directly, since a zero Result is ambiguous between "never ran" and
// "succeeded with a zero value".
type Result[T any] struct {
	value    T
	err      failure.ClassifiedError
	attempts int
}

// NewSuccessResult builds a Result for a call that succeeded on the
// given attempt.
func NewSuccessResult[T any](value T, attempts int) Result[T] {
	return Result[T]{value: value, attempts: attempts}
}

func (r Result[T]) Value() T {
	return r.value
}

func (r Result[T]) Err() failure.ClassifiedError {
	return r.err
}

func (r Result[T]) Attempts() int {
	return r.attempts
}

func (r Result[T]) IsSuccess() bool {
	return r.err == nil
}

func (r Result[T]) IsFailure() bool {
	return r.err != nil
}
