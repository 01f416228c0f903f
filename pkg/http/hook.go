package http

import (
	"context"
	"sync"
)

type (
	// RequestHook may replace the request. The returned request is passed to the next hook.
	RequestHook func(ctx context.Context, req *Request) (*Request, error)

	// ResponseHook runs on successful responses only.
	ResponseHook func(ctx context.Context, resp *Response) (*Response, error)

	// ErrorHook may replace the error. A nil result keeps the previous error.
	ErrorHook func(ctx context.Context, err *Error) *Error
)

type hookChain[T any] struct {
	mu     sync.RWMutex
	nextID int
	hooks  []hookEntry[T]
}

type hookEntry[T any] struct {
	id   int
	hook T
}

func (c *hookChain[T]) add(hook T) (remove func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := c.nextID
	c.hooks = append(c.hooks, hookEntry[T]{id: id, hook: hook})

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()

			for i, entry := range c.hooks {
				if entry.id == id {
					c.hooks = append(c.hooks[:i:i], c.hooks[i+1:]...)
					return
				}
			}
		})
	}
}

func (c *hookChain[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]T, 0, len(c.hooks))
	for _, entry := range c.hooks {
		result = append(result, entry.hook)
	}
	return result
}
