package loop

// Async runs work on a new goroutine and posts done with its result back to
// the loop. done always runs on the loop goroutine.
func Async[T any](l *Loop, work func() (T, error), done func(T, error)) {
	finished := l.track()
	go func() {
		defer finished()
		result, err := work()
		if done != nil {
			l.Post(func() { done(result, err) })
		}
	}()
}

// Go is Async for work without a result value.
func Go(l *Loop, work func() error, done func(error)) {
	Async(l, func() (struct{}, error) {
		return struct{}{}, work()
	}, func(_ struct{}, err error) {
		if done != nil {
			done(err)
		}
	})
}
