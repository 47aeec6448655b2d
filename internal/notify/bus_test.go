package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, sub *Subscription) Message {
	t.Helper()
	select {
	case msg, ok := <-sub.C():
		require.True(t, ok, "subscription channel closed")
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestBus_DeliversToEverySubscriberOfTopic(t *testing.T) {
	bus := NewBus(4)
	defer bus.Close()

	a := bus.Subscribe(TopicItemMetadataDidChange)
	b := bus.Subscribe(TopicItemMetadataDidChange)
	other := bus.Subscribe(TopicOfflineModeDidChange)

	bus.Publish(TopicItemMetadataDidChange, "item-1")

	assert.Equal(t, Message{Topic: TopicItemMetadataDidChange, Payload: "item-1"}, receive(t, a))
	assert.Equal(t, "item-1", receive(t, b).Payload)
	select {
	case msg := <-other.C():
		t.Fatalf("unexpected delivery on other topic: %#v", msg)
	default:
	}
}

func TestBus_PublishDoesNotBlockOnFullSubscriber(t *testing.T) {
	bus := NewBus(1)
	defer bus.Close()
	sub := bus.Subscribe(TopicOfflineModeDidChange)

	done := make(chan struct{})
	go func() {
		bus.Publish(TopicOfflineModeDidChange, true)
		bus.Publish(TopicOfflineModeDidChange, false)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}
	assert.Equal(t, uint64(1), bus.Dropped())
	assert.Equal(t, true, receive(t, sub).Payload)
}

func TestSubscription_CloseStopsDelivery(t *testing.T) {
	bus := NewBus(2)
	defer bus.Close()
	sub := bus.Subscribe(TopicUserProfileImageDidChange)
	sub.Close()
	sub.Close()

	bus.Publish(TopicUserProfileImageDidChange, "user")
	_, ok := <-sub.C()
	assert.False(t, ok, "closed subscription should have a closed channel")
}

func TestBus_CloseClosesSubscriptions(t *testing.T) {
	bus := NewBus(2)
	sub := bus.Subscribe(TopicDisplayPreferencesDidChange)
	bus.Close()
	bus.Close()

	_, ok := <-sub.C()
	assert.False(t, ok)

	late := bus.Subscribe(TopicDisplayPreferencesDidChange)
	_, ok = <-late.C()
	assert.False(t, ok, "subscribing after Close returns a closed channel")
	bus.Publish(TopicDisplayPreferencesDidChange, nil)
}

func TestTopic_Valid(t *testing.T) {
	for _, topic := range Topics {
		assert.True(t, topic.Valid(), topic)
	}
	assert.False(t, Topic("bogus").Valid())
}

func TestBus_NilPublishIsNoop(t *testing.T) {
	var bus *Bus
	bus.Publish(TopicItemMetadataDidChange, nil)
}
