package messaging

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/athlete-hub/athlete-hub/internal/domain/shared"
)

func newTestBus() *InMemoryEventBus {
	cfg := DefaultInMemoryEventBusConfig()
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewInMemoryEventBus(cfg)
}

func taskEvent() shared.Event {
	return shared.NewEntityChangedEvent(shared.EventTaskAdded, "t1", "Essay", "")
}

func TestPublishDeliversInSubscriptionOrder(t *testing.T) {
	bus := newTestBus()
	var calls []string

	_, err := bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error {
		calls = append(calls, "first")
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error {
		calls = append(calls, "second")
		return nil
	})
	require.NoError(t, err)
	_, err = bus.SubscribeAll(func(shared.Event) error {
		calls = append(calls, "all")
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(shared.EventGradeAdded, func(shared.Event) error {
		calls = append(calls, "other type")
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(taskEvent()))
	assert.Equal(t, []string{"first", "second", "all"}, calls)
}

func TestFailingHandlerDoesNotBlockOthers(t *testing.T) {
	bus := newTestBus()
	boom := errors.New("boom")
	delivered := 0

	_, _ = bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error { panic("subscriber exploded") })
	_, _ = bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error { return boom })
	_, _ = bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error {
		delivered++
		return nil
	})

	err := bus.Publish(taskEvent())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHandlerPanic)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, delivered)

	snap := bus.Metrics().Snapshot()
	assert.Equal(t, int64(3), snap.TotalHandlerExecs)
	assert.Equal(t, int64(2), snap.HandlerFailures)
}

func TestUnsubscribe(t *testing.T) {
	bus := newTestBus()
	count := 0

	unsub, err := bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error {
		count++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(taskEvent()))
	unsub()
	unsub()
	require.NoError(t, bus.Publish(taskEvent()))

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.HandlerCount(shared.EventTaskAdded))
}

func TestHandlerMayPublishAndSubscribe(t *testing.T) {
	bus := newTestBus()
	var seen []shared.EventType

	_, _ = bus.Subscribe(shared.EventTaskAdded, func(e shared.Event) error {
		seen = append(seen, e.EventType())
		_, err := bus.Subscribe(shared.EventTaskCompleted, func(e shared.Event) error {
			seen = append(seen, e.EventType())
			return nil
		})
		if err != nil {
			return err
		}
		return bus.Publish(shared.NewEntityChangedEvent(shared.EventTaskCompleted, "t1", "Essay", ""))
	})

	require.NoError(t, bus.Publish(taskEvent()))
	assert.Equal(t, []shared.EventType{shared.EventTaskAdded, shared.EventTaskCompleted}, seen)
}

func TestClosedBus(t *testing.T) {
	bus := newTestBus()
	require.NoError(t, bus.Close())

	assert.ErrorIs(t, bus.Publish(taskEvent()), ErrEventBusClosed)
	_, err := bus.Subscribe(shared.EventTaskAdded, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next shared.EventHandler) shared.EventHandler {
			return func(e shared.Event) error {
				order = append(order, name)
				return next(e)
			}
		}
	}

	h := Chain(func(shared.Event) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	require.NoError(t, h(taskEvent()))
	assert.Equal(t, []string{"outer", "inner", "handler"}, order)
}
