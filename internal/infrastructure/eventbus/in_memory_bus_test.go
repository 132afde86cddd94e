package eventbus_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/rcarvalho-pb/tipbot-go/internal/domain/event"
	"github.com/rcarvalho-pb/tipbot-go/internal/infrastructure/eventbus"
)

func TestInMemoryBus_ShouldDeliverOnlyToSubscribedType(t *testing.T) {
	bus := eventbus.NewInMemoryBus()

	var got []event.Type
	bus.Subscribe(event.ChainFinished, func(evt event.Event) error {
		got = append(got, evt.Type)
		return nil
	})

	require.NoError(t, bus.Publish(event.Event{Type: event.ChainStarted}))
	require.NoError(t, bus.Publish(event.Event{Type: event.ChainFinished}))

	require.Equal(t, []event.Type{event.ChainFinished}, got)
}

func TestInMemoryBus_ShouldStopAtFirstFailingHandler(t *testing.T) {
	bus := eventbus.NewInMemoryBus()
	boom := errors.New("boom")

	calls := 0
	bus.Subscribe(event.ChainStarted, func(event.Event) error {
		calls++
		return boom
	})
	bus.Subscribe(event.ChainStarted, func(event.Event) error {
		calls++
		return nil
	})

	err := bus.Publish(event.Event{Type: event.ChainStarted, AggregateID: "ch-1"})
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1, calls)
}

func TestInMemoryBus_HandlersMaySubscribeWhilePublishing(t *testing.T) {
	bus := eventbus.NewInMemoryBus()

	bus.Subscribe(event.ChainStarted, func(event.Event) error {
		bus.Subscribe(event.ChainFinished, func(event.Event) error { return nil })
		return nil
	})

	require.NoError(t, bus.Publish(event.Event{Type: event.ChainStarted}))
}
