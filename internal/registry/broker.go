package registry

import "sync"

// subscriberBufferSize is the channel buffer for each status subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 16

// Broker fans out per-request status transitions to subscribers, backing the
// SSE watch endpoint. It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a request finishes but before its entry is reclaimed)
// receive a closed channel instead of blocking forever. The marker is
// dropped with Remove when the entry itself goes away.
type Broker struct {
	mu     sync.Mutex
	topics map[string]*statusTopic
}

type statusTopic struct {
	subs   map[int]chan string
	nextID int
	closed bool
}

// NewBroker creates a new status broker.
func NewBroker() *Broker {
	return &Broker{
		topics: make(map[string]*statusTopic),
	}
}

// Subscribe returns a channel that receives status transitions for the given
// request and an unsubscribe function. If the request has already finished
// (Close was called), the returned channel is immediately closed.
func (b *Broker) Subscribe(requestID string) (<-chan string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[requestID]
	if !ok {
		t = &statusTopic{subs: make(map[int]chan string)}
		b.topics[requestID] = t
	}

	ch := make(chan string, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends a status transition to all subscribers of the given request.
// Events are dropped for subscribers whose buffers are full.
func (b *Broker) Publish(requestID, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[requestID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- status:
		default:
			// Drop event for slow subscribers to avoid blocking the registry.
		}
	}
}

// Close signals that no more transitions will be published for the given
// request. All subscriber channels are closed and future Subscribe calls
// return a closed channel. Closing an already-closed topic is a no-op.
func (b *Broker) Close(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[requestID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[requestID] = &statusTopic{subs: make(map[int]chan string), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}

// Remove drops the topic entirely, closed marker included. Call it once the
// request id can no longer be subscribed to.
func (b *Broker) Remove(requestID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[requestID]
	if !ok {
		return
	}
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
	delete(b.topics, requestID)
}
