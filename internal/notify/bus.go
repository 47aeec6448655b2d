package notify

import (
	"sync"
	"sync/atomic"

	"github.com/five82/usher/internal/log"
)

// Topic names a process-wide notification.
type Topic string

const (
	// TopicItemMetadataDidChange carries the updated jellyfin.Item.
	TopicItemMetadataDidChange Topic = "item_metadata_did_change"
	// TopicUserProfileImageDidChange carries the user id.
	TopicUserProfileImageDidChange Topic = "user_profile_image_did_change"
	// TopicOfflineModeDidChange carries the new offline flag as a bool.
	TopicOfflineModeDidChange Topic = "offline_mode_did_change"
	// TopicDisplayPreferencesDidChange carries the reloaded prefs.Prefs.
	TopicDisplayPreferencesDidChange Topic = "display_preferences_did_change"
)

// Topics lists every known topic.
var Topics = []Topic{
	TopicItemMetadataDidChange,
	TopicUserProfileImageDidChange,
	TopicOfflineModeDidChange,
	TopicDisplayPreferencesDidChange,
}

// Valid reports whether t is one of the known topics.
func (t Topic) Valid() bool {
	for _, known := range Topics {
		if t == known {
			return true
		}
	}
	return false
}

// Message is a single delivered notification.
type Message struct {
	Topic   Topic
	Payload any
}

// Publisher is the half of the bus controllers depend on.
type Publisher interface {
	Publish(topic Topic, payload any)
}

const (
	defaultBufferSize = 32
	dropLogEvery      = 100
)

// Bus fans notifications out to every current subscriber of a topic.
// Publish never blocks: a subscriber whose buffer is full misses the message.
type Bus struct {
	mu         sync.RWMutex
	subs       map[Topic][]*Subscription
	bufferSize int
	closed     bool
	dropped    atomic.Uint64
}

var _ Publisher = (*Bus)(nil)

// NewBus creates a bus whose subscriptions buffer bufferSize messages.
func NewBus(bufferSize int) *Bus {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Bus{subs: make(map[Topic][]*Subscription), bufferSize: bufferSize}
}

// Publish delivers payload to all subscribers of topic without waiting.
func (b *Bus) Publish(topic Topic, payload any) {
	if b == nil {
		return
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}

	msg := Message{Topic: topic, Payload: payload}
	for _, sub := range b.subs[topic] {
		select {
		case sub.ch <- msg:
		default:
			count := b.dropped.Add(1)
			if count%dropLogEvery == 1 {
				logger := log.WithComponent("notify")
				logger.Warn().
					Str(log.FieldTopic, string(topic)).
					Uint64("dropped", count).
					Msg("subscriber buffer full, notification dropped")
			}
		}
	}
}

// Subscribe registers interest in topic. Close the subscription when done.
func (b *Bus) Subscribe(topic Topic) *Subscription {
	sub := &Subscription{bus: b, topic: topic, ch: make(chan Message, b.bufferSize)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closed = true
		close(sub.ch)
		return sub
	}
	b.subs[topic] = append(b.subs[topic], sub)
	return sub
}

// Dropped returns how many deliveries were skipped because of full buffers.
func (b *Bus) Dropped() uint64 {
	return b.dropped.Load()
}

// Close shuts the bus down and closes every subscription channel.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for topic, subs := range b.subs {
		for _, sub := range subs {
			if !sub.closed {
				sub.closed = true
				close(sub.ch)
			}
		}
		delete(b.subs, topic)
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub.closed {
		return
	}
	list := b.subs[sub.topic]
	out := list[:0]
	for _, s := range list {
		if s != sub {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		delete(b.subs, sub.topic)
	} else {
		b.subs[sub.topic] = out
	}
	sub.closed = true
	close(sub.ch)
}

// Subscription receives messages for a single topic.
type Subscription struct {
	bus    *Bus
	topic  Topic
	ch     chan Message
	closed bool // guarded by bus.mu
}

// C returns the delivery channel. It is closed by Close or Bus.Close.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Topic returns the subscribed topic.
func (s *Subscription) Topic() Topic {
	return s.topic
}

// Close unsubscribes. Safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
}
