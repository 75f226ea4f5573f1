package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
)

const (
	subscriberBufSize = 256
	backlogSize       = 128
)

// Event is one SSE message. Seq grows by one per published event and is
// sent as the SSE id. Payload is JSON.
type Event struct {
	Seq     uint64
	Feed    string
	Payload string
}

// Broker fans out events to SSE clients and keeps the most recent events so
// a reconnecting client can resume from its Last-Event-ID.
type Broker struct {
	mu          sync.Mutex
	subscribers map[int64]chan Event
	nextID      int64
	seq         uint64
	backlog     []Event
}

func NewBroker() *Broker {
	return &Broker{
		subscribers: make(map[int64]chan Event),
	}
}

// Subscribe registers a client that only wants live events.
func (b *Broker) Subscribe() (int64, <-chan Event) {
	id, ch, _ := b.SubscribeAfter(0)
	return id, ch
}

// SubscribeAfter registers a client and returns the retained events with a
// sequence above after, oldest first. after == 0 returns no backlog. The
// backlog and the channel never overlap or leave a gap, except for events
// already evicted from the backlog.
func (b *Broker) SubscribeAfter(after uint64) (int64, <-chan Event, []Event) {
	ch := make(chan Event, subscriberBufSize)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextID++
	id := b.nextID
	b.subscribers[id] = ch

	var missed []Event
	if after > 0 {
		for _, evt := range b.backlog {
			if evt.Seq > after {
				missed = append(missed, evt)
			}
		}
	}
	return id, ch, missed
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broker) Unsubscribe(id int64) {
	b.mu.Lock()
	ch, ok := b.subscribers[id]
	if ok {
		delete(b.subscribers, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish assigns the next sequence number and sends evt to every
// subscriber. Slow clients whose buffer is full miss the event.
func (b *Broker) Publish(evt Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.seq++
	evt.Seq = b.seq
	b.backlog = append(b.backlog, evt)
	if len(b.backlog) > backlogSize {
		b.backlog = b.backlog[len(b.backlog)-backlogSize:]
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- evt:
		default:
			slog.Debug("relay subscriber buffer full, event dropped", "subscriber", id, "feed", evt.Feed, "seq", evt.Seq)
		}
	}
	return evt
}

// PublishJSON marshals v and publishes it on feed.
func (b *Broker) PublishJSON(feed string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("relay: marshal %s event: %w", feed, err)
	}
	b.Publish(Event{Feed: feed, Payload: string(payload)})
	return nil
}

// ClientCount returns the number of active subscribers.
func (b *Broker) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
