package hub

import (
	"sync"
	"sync/atomic"
)

// SubscriberStats is a point-in-time view of one subscriber's ring.
type SubscriberStats struct {
	ID        string `json:"id"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
	Buffered  int    `json:"buffered"`
}

// Subscription is one consumer's handle on the hub. Items arrive on
// the ring returned by Items; when the ring is full the oldest item
// is evicted so the producer never waits. The channel closes after a
// terminal item or after Close.
type Subscription struct {
	id  string
	ch  chan Item
	hub *Hub

	// sendMu serializes senders so eviction always frees a slot for
	// the item that follows it.
	sendMu sync.Mutex
	closed bool

	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// ID returns the subscriber's generated identifier.
func (s *Subscription) ID() string { return s.id }

// Items returns the receive side of the subscriber's ring.
func (s *Subscription) Items() <-chan Item { return s.ch }

// Stats reports this subscriber's delivery counters.
func (s *Subscription) Stats() SubscriberStats {
	return SubscriberStats{
		ID:        s.id,
		Delivered: s.delivered.Load(),
		Dropped:   s.dropped.Load(),
		Buffered:  len(s.ch),
	}
}

// Close detaches the subscriber from the hub and closes its channel.
// Safe to call concurrently with an in-flight publish, and more than
// once.
func (s *Subscription) Close() {
	s.hub.Unsubscribe(s.id)
}

// deliver hands one item to the ring without ever blocking. Returns
// whether an older item was evicted to make room. Delivery to a
// closed subscription is a no-op.
func (s *Subscription) deliver(item Item) (delivered, evicted bool) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return false, false
	}

	select {
	case s.ch <- item:
		s.delivered.Add(1)
		return true, false
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Add(1)
		evicted = true
	default:
		// Consumer drained between the two selects; room exists.
	}

	// Cannot block: sends are serialized by sendMu and at least one
	// slot is free here.
	s.ch <- item
	s.delivered.Add(1)
	return true, evicted
}

// closeOut delivers an optional final item, then closes the ring.
// Later deliveries and closeOuts are no-ops.
func (s *Subscription) closeOut(terminal *Item) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	if terminal != nil {
		select {
		case s.ch <- *terminal:
		default:
			select {
			case <-s.ch:
				s.dropped.Add(1)
			default:
			}
			s.ch <- *terminal
		}
		s.delivered.Add(1)
	}
	close(s.ch)
}
