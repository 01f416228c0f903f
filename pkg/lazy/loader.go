package lazy

import (
	"fmt"
	"sync"
	"sync/atomic"
)

type Loader[T any] interface {
	MustLoad() T
	Load() (T, error)
	IfLoaded(func(T))
}

type loader[T any] struct {
	load     func() (T, error)
	isLoaded atomic.Bool
}

// New calls provider once, on the first Load. A provider error is returned by every following Load.
func New[T any](provider func() (T, error)) Loader[T] {
	l := &loader[T]{}
	l.load = sync.OnceValues(func() (T, error) {
		value, err := provider()
		if err != nil {
			var blank T
			return blank, fmt.Errorf("load value of %T: %w", blank, err)
		}

		l.isLoaded.Store(true)
		return value, nil
	})

	return l
}

func (l *loader[T]) MustLoad() T {
	value, err := l.Load()
	if err != nil {
		panic(err)
	}

	return value
}

func (l *loader[T]) Load() (T, error) {
	return l.load()
}

// IfLoaded calls f only when the value was loaded successfully.
func (l *loader[T]) IfLoaded(f func(T)) {
	if !l.isLoaded.Load() {
		return
	}

	value, _ := l.load()
	f(value)
}
