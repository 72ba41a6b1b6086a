package async

// Result couples a value with the error from producing it.
type Result[T any] struct {
	Value T
	Err   error
}

func (r Result[T]) IsOk() bool  { return r.Err == nil }
func (r Result[T]) IsErr() bool { return r.Err != nil }

// Run will run a function in a goroutine, returning its result via a channel.
func Run[T any](f func() T) <-chan T {
	c := make(chan T)
	go func() {
		c <- f()
	}()
	return c
}

// RunResult will run a fallible function in a goroutine, returning its
// outcome via a channel.
func RunResult[T any](f func() (T, error)) <-chan Result[T] {
	return Run(func() Result[T] {
		value, err := f()
		return Result[T]{Value: value, Err: err}
	})
}
