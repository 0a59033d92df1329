package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSubscriberBuffer is the channel size given to each subscriber.
const DefaultSubscriberBuffer = 64

// Delivery is one event as handed to a window or broadcast subscriber.
type Delivery struct {
	Name    string
	Payload string
	// Control is set when the event was a control message.
	Control ControlKind
	At      time.Time
}

// Broadcaster is the process-wide event channel. Subscribers that do not
// keep up miss events instead of slowing delivery down.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]chan Delivery
	buffer int
	closed bool
}

// NewBroadcaster creates a broadcaster whose subscribers get channels of
// the given size. A size below one uses DefaultSubscriberBuffer.
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 1 {
		buffer = DefaultSubscriberBuffer
	}
	return &Broadcaster{
		subs:   make(map[string]chan Delivery),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber and returns its id and channel.
// The channel is closed by Unsubscribe or Close.
func (b *Broadcaster) Subscribe() (string, <-chan Delivery) {
	id := uuid.New().String()
	ch := make(chan Delivery, b.buffer)

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return id, ch
	}
	b.subs[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
}

// Publish sends d to every subscriber without blocking. It returns the
// number of subscribers that received it.
func (b *Broadcaster) Publish(d Delivery) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	sent := 0
	for _, ch := range b.subs {
		select {
		case ch <- d:
			sent++
		default:
			// Subscriber too slow, skip
		}
	}
	return sent
}

// Count returns the number of subscribers.
func (b *Broadcaster) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close unsubscribes everyone. Later subscriptions get a closed channel.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
	b.closed = true
}
