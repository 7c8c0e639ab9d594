package device

import "sync"

// Hub fans the full device collection out to every live subscriber
// whenever the authoritative state changes. Delivery is isolated per
// subscriber: each one drains its own buffered channel on its own
// goroutine, and a slow callback only ever costs itself intermediate
// states (latest-wins), never stalls the feed or its peers.
type Hub struct {
	mu     sync.Mutex
	subs   map[uint64]*subscriber
	nextID uint64
}

type subscriber struct {
	ch   chan []Device
	done chan struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint64]*subscriber),
	}
}

// Subscribe registers a callback invoked with the full current device
// collection on every change. The returned unsubscribe is idempotent
// and safe to call during a fan-out. The hub keeps no reference to the
// subscriber after unsubscribe.
func (h *Hub) Subscribe(callback func([]Device)) (unsubscribe func()) {
	sub := &subscriber{
		ch:   make(chan []Device, 1),
		done: make(chan struct{}),
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = sub
	h.mu.Unlock()

	go func() {
		for {
			select {
			case <-sub.done:
				return
			case devices := <-sub.ch:
				callback(devices)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, id)
			h.mu.Unlock()
			close(sub.done)
		})
	}
}

// Publish hands the collection to every subscriber. A subscriber that
// has not consumed the previous collection yet has it replaced: only
// the latest state matters.
func (h *Hub) Publish(devices []Device) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		select {
		case sub.ch <- devices:
		default:
			select {
			case <-sub.ch:
			default:
			}
			select {
			case sub.ch <- devices:
			default:
			}
		}
	}
}

// SubscriberCount reports the number of live subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}
