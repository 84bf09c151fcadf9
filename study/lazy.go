package study

// lazy holds a value computed on first use. Failed computations are not
// cached so the next call retries them.
type lazy[T any] struct {
	done bool
	val  T
}

func (l *lazy[T]) get(build func() T) T {
	if !l.done {
		l.val = build()
		l.done = true
	}
	return l.val
}

func (l *lazy[T]) getErr(build func() (T, error)) (T, error) {
	if l.done {
		return l.val, nil
	}
	v, err := build()
	if err != nil {
		var zero T
		return zero, err
	}
	l.val, l.done = v, true
	return v, nil
}
