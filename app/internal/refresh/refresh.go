package refresh

import "sync"

// Broadcaster fans a payload-free "refresh now" signal out to every subscriber.
// Delivery is non-blocking: a subscriber that is not currently receiving misses
// the signal, and nothing is replayed later.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan struct{}]struct{}
}

// New creates a broadcaster with no subscribers
func New() *Broadcaster {
	return &Broadcaster{subs: make(map[chan struct{}]struct{})}
}

// Subscribe registers a new receiver. The channel is unbuffered.
func (b *Broadcaster) Subscribe() <-chan struct{} {
	ch := make(chan struct{})
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a receiver returned by Subscribe
func (b *Broadcaster) Unsubscribe(ch <-chan struct{}) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for c := range b.subs {
		if c == ch {
			delete(b.subs, c)
			return
		}
	}
}

// Trigger delivers the signal to every subscriber that is waiting on it right now
// and returns how many received it.
func (b *Broadcaster) Trigger() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	delivered := 0
	for c := range b.subs {
		select {
		case c <- struct{}{}:
			delivered++
		default:
		}
	}
	return delivered
}

// Len returns the number of subscribers
func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
