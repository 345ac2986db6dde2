package socket

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDispatchPreservesDeliveryOrder(t *testing.T) {
	t.Parallel()

	c := NewClient("http://localhost", "token")

	var got []int
	c.On(EventMessageReceived, func(payload any) {
		got = append(got, payload.(int))
	})

	for i := 0; i < 20; i++ {
		c.dispatch(EventMessageReceived, i)
	}

	// Handlers run synchronously on the receive path, so by the time dispatch
	// returns every payload has been delivered, in order.
	require.Len(t, got, 20)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestDispatchIgnoresUnregisteredEvents(t *testing.T) {
	t.Parallel()

	c := NewClient("http://localhost", "token")
	c.dispatch(EventNewChat, "payload")
}
