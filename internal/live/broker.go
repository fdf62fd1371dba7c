package live

import (
	"context"
	"sync"
)

// Broker fans change notifications out to subscribers. Notifications carry
// no payload: a subscriber re-reads whatever it is watching.
type Broker struct {
	mu     sync.Mutex
	subs   map[uint64]chan struct{}
	nextID uint64
}

// NewBroker creates an empty broker
func NewBroker() *Broker {
	return &Broker{subs: make(map[uint64]chan struct{})}
}

// Subscribe registers a listener. The channel has room for one pending
// notification, so a burst of changes collapses into a single wake-up.
// The returned cancel func unregisters the listener and closes the channel.
func (b *Broker) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Publish wakes every subscriber without blocking
func (b *Broker) Publish() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- struct{}{}:
		default:
			// a wake-up is already pending
		}
	}
}

// Subscribers returns the number of registered listeners
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Watch runs load immediately and again after every Publish, sending each
// result on the returned channel until ctx is done, then closes it. If a
// change arrives while a result is still unread, the stale result is
// dropped and load runs again, so a slow reader always gets the latest view.
func Watch[T any](ctx context.Context, b *Broker, load func(context.Context) T) <-chan T {
	out := make(chan T)
	changes, cancel := b.Subscribe()

	go func() {
		defer close(out)
		defer cancel()

		for {
			v := load(ctx)

			select {
			case out <- v:
			case <-changes:
				continue
			case <-ctx.Done():
				return
			}

			select {
			case <-changes:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out
}
