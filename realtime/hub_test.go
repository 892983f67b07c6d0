package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHubSendToUnknownSocket(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop())
	require.False(t, h.SendTo("ghost", "notification", nil))
}

func TestHubSendToAfterUnregister(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop())
	c := NewClient("socket-a", 1)
	h.Register(c)
	require.True(t, h.SendTo("socket-a", "notification", "hello"))

	h.Unregister(c)
	require.False(t, h.SendTo("socket-a", "notification", "hello"))
	require.Equal(t, 0, h.Len())

	// Unregistering twice must not close the channel again.
	h.Unregister(c)
}

func TestHubConcurrentSendAndUnregister(t *testing.T) {
	t.Parallel()

	h := NewHub(zap.NewNop())

	// Senders racing the close must never hit a closed channel; a panic
	// here fails the test.
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		c := NewClient("socket-a", 1)
		h.Register(c)

		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				h.SendTo("socket-a", "notification", j)
				h.Broadcast("status_update", j)
			}
		}()
		go func(c *Client) {
			defer wg.Done()
			h.Unregister(c)
		}(c)
		wg.Wait()
	}
}
