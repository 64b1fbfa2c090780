package rooming

import (
	"sync"
	"time"
)

type EventKind string

const (
	// EventChanged reports an optimistic local change not yet confirmed by a refetch.
	EventChanged EventKind = "changed"
	// EventRefreshed reports that the cache was replaced from the store.
	EventRefreshed EventKind = "refreshed"
)

// Event tells subscribers which rooms to redraw.
type Event struct {
	Kind    EventKind `json:"kind"`
	RoomIDs []string  `json:"roomIds,omitempty"`
	// OverCapacity lists rooms the store reports above capacity.
	OverCapacity []string  `json:"overCapacity,omitempty"`
	At           time.Time `json:"at"`
}

const subscriberBuffer = 16

type broker struct {
	mu   sync.Mutex
	next int
	subs map[int]chan Event
}

func (b *broker) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.subs == nil {
		b.subs = make(map[int]chan Event)
	}
	id := b.next
	b.next++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
			close(ch)
		})
	}
}

// publish never blocks; a subscriber that falls behind misses events
// and is expected to re-read the rooms.
func (b *broker) publish(ev Event) (dropped int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			dropped++
		}
	}
	return dropped
}
