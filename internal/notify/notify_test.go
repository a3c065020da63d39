package notify_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"employee-monitor/internal/notify"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	hub := notify.NewHub()

	first, cancelFirst := hub.Subscribe()
	defer cancelFirst()
	second, cancelSecond := hub.Subscribe()
	defer cancelSecond()

	event := notify.Event{Table: "employees", Action: "update", ID: "e1", At: time.Now()}
	hub.Publish(event)

	for _, ch := range []<-chan notify.Event{first, second} {
		select {
		case got := <-ch:
			assert.Equal(t, event.ID, got.ID)
			assert.Equal(t, event.Table, got.Table)
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestHubDropsEventsForSlowSubscribers(t *testing.T) {
	hub := notify.NewHub()
	events, cancel := hub.Subscribe()
	defer cancel()

	// Publish past the buffer without draining; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 1000; i++ {
			hub.Publish(notify.Event{Table: "activity_logs", Action: "insert"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The subscriber still sees the buffered prefix.
	require.NotEmpty(t, events)
}

func TestHubCancelClosesChannel(t *testing.T) {
	hub := notify.NewHub()
	events, cancel := hub.Subscribe()

	cancel()
	// Cancel twice is safe.
	cancel()

	_, open := <-events
	assert.False(t, open)

	// Publishing after cancel reaches no one and must not panic.
	hub.Publish(notify.Event{Table: "employees", Action: "insert"})
}
