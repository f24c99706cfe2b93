package events_test

import (
	"testing"
	"time"

	"github.com/cuemby/xlb/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(events.New(events.EventWorkStolenOut, "stole 4 units", map[string]string{"peer": "7"}))

	select {
	case ev := <-sub:
		assert.Equal(t, events.EventWorkStolenOut, ev.Type)
		assert.Equal(t, "7", ev.Metadata["peer"])
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestFanOutToMultipleSubscribers(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub1 := b.Subscribe()
	sub2 := b.Subscribe()
	defer b.Unsubscribe(sub1)
	defer b.Unsubscribe(sub2)

	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(events.New(events.EventSyncRejected, "peer 2 rejected", nil))

	for _, sub := range []events.Subscriber{sub1, sub2} {
		select {
		case ev := <-sub:
			assert.Equal(t, events.EventSyncRejected, ev.Type)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	b.Unsubscribe(sub)

	assert.Equal(t, 0, b.SubscriberCount())

	_, ok := <-sub
	assert.False(t, ok, "channel should be closed after Unsubscribe")
}

func TestPublishStampsIDAndTimestampWhenUnset(t *testing.T) {
	b := events.NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	b.Publish(&events.Event{Type: events.EventCheckpointFlushed, Message: "flushed"})

	select {
	case ev := <-sub:
		assert.NotEmpty(t, ev.ID)
		assert.False(t, ev.Timestamp.IsZero())
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
