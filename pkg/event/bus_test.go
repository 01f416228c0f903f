package event_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/klwxsrx/go-app-shell/pkg/event"
	"github.com/klwxsrx/go-app-shell/pkg/log"
)

func TestBus_Publish_NotifiesInSubscriptionOrder(t *testing.T) {
	bus := event.NewBus[string](log.NewStub())

	var got []string
	bus.Subscribe(func(_ context.Context, e string) { got = append(got, "first:"+e) })
	bus.Subscribe(func(_ context.Context, e string) { got = append(got, "second:"+e) })

	bus.Publish(context.Background(), "logout")

	assert.Equal(t, []string{"first:logout", "second:logout"}, got)
}

func TestBus_Publish_IsolatesPanickingListener(t *testing.T) {
	bus := event.NewBus[int](log.NewStub())

	var notified int
	bus.Subscribe(func(context.Context, int) { panic("listener failure") })
	bus.Subscribe(func(_ context.Context, e int) { notified = e })

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), 42)
	})
	assert.Equal(t, 42, notified)
}

func TestBus_Unsubscribe_IsIdempotent(t *testing.T) {
	bus := event.NewBus[int](log.NewStub())

	var first, second int
	unsubscribe := bus.Subscribe(func(context.Context, int) { first++ })
	bus.Subscribe(func(context.Context, int) { second++ })

	bus.Publish(context.Background(), 1)
	unsubscribe()
	unsubscribe()
	bus.Publish(context.Background(), 2)

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestBus_Unsubscribe_DuringPublish(t *testing.T) {
	bus := event.NewBus[int](log.NewStub())

	var calls int
	var unsubscribe func()
	unsubscribe = bus.Subscribe(func(context.Context, int) {
		calls++
		unsubscribe()
	})

	bus.Publish(context.Background(), 1)
	bus.Publish(context.Background(), 2)

	assert.Equal(t, 1, calls)
}
