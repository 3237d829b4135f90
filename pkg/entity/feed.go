package entity

import (
	"encoding/json"
	"sync"
	"time"
)

// EventType identifies the kind of change recorded in an Event.
type EventType string

// Change event types.
const (
	EventPut    EventType = "put"
	EventDelete EventType = "delete"
	EventReset  EventType = "reset"
)

// Event describes a single change to a Store. Put and delete events carry
// ID; reset events carry Count.
type Event struct {
	Type   EventType `json:"type"`
	ID     int64     `json:"id,omitempty"`
	Entity *Entity   `json:"entity,omitempty"`
	Count  int       `json:"count,omitempty"`
	Time   time.Time `json:"time"`
}

// MarshalJSON always writes id for put and delete events and count for
// reset events, so id 0 and an empty reset stay visible.
func (ev Event) MarshalJSON() ([]byte, error) {
	type wire struct {
		Type   EventType `json:"type"`
		ID     *int64    `json:"id,omitempty"`
		Entity *Entity   `json:"entity,omitempty"`
		Count  *int      `json:"count,omitempty"`
		Time   time.Time `json:"time"`
	}
	w := wire{Type: ev.Type, Entity: ev.Entity, Time: ev.Time}
	if ev.Type == EventReset {
		w.Count = &ev.Count
	} else {
		w.ID = &ev.ID
	}
	return json.Marshal(w)
}

// Feed fans change events out to subscribers. Publish never blocks: a
// subscriber whose buffer is full misses the event.
type Feed struct {
	mu     sync.Mutex
	subs   map[uint64]chan Event
	next   uint64
	buffer int
}

// NewFeed creates a feed whose subscriber channels hold up to buffer events.
func NewFeed(buffer int) *Feed {
	if buffer <= 0 {
		buffer = 64
	}
	return &Feed{
		subs:   make(map[uint64]chan Event),
		buffer: buffer,
	}
}

// Subscribe registers a new subscriber. The returned cancel function
// unregisters it and closes the channel; it is safe to call more than once.
func (f *Feed) Subscribe() (<-chan Event, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	id := f.next
	f.next++
	ch := make(chan Event, f.buffer)
	f.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			delete(f.subs, id)
			close(ch)
		})
	}
}

// Publish delivers ev to every subscriber with room in its buffer.
func (f *Feed) Publish(ev Event) {
	if ev.Time.IsZero() {
		ev.Time = time.Now().UTC()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Subscribers returns the number of active subscribers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs)
}
