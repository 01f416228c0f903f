package event

import (
	"context"
	"fmt"
	"sync"

	"github.com/klwxsrx/go-app-shell/pkg/log"
)

type (
	Listener[T any] func(ctx context.Context, event T)

	// Bus fans an event out to every subscribed listener, in subscription order.
	// Publish is synchronous and never fails because of a listener.
	Bus[T any] interface {
		Subscribe(listener Listener[T]) (unsubscribe func())
		Publish(ctx context.Context, event T)
	}
)

type subscription[T any] struct {
	id       uint64
	listener Listener[T]
}

type bus[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscription[T]
	logger log.Logger
}

func NewBus[T any](logger log.Logger) Bus[T] {
	return &bus[T]{logger: logger}
}

func (b *bus[T]) Subscribe(listener Listener[T]) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.subs = append(b.subs, subscription[T]{id: id, listener: listener})
	b.mu.Unlock()

	once := &sync.Once{}
	return func() {
		once.Do(func() {
			b.remove(id)
		})
	}
}

func (b *bus[T]) Publish(ctx context.Context, event T) {
	b.mu.RLock()
	subs := make([]subscription[T], len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()

	for _, sub := range subs {
		b.notify(ctx, sub, event)
	}
}

func (b *bus[T]) notify(ctx context.Context, sub subscription[T], event T) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.
				WithField("subscriptionID", sub.id).
				WithError(fmt.Errorf("%v", p)).
				Error(ctx, "event listener panicked")
		}
	}()

	sub.listener(ctx, event)
}

func (b *bus[T]) remove(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i:i], b.subs[i+1:]...)
			return
		}
	}
}
