package events

import "sync"

// Handler consumes one domain event. Handlers that do slow work must
// hand it off to their own workers; Publish calls them synchronously.
type Handler func(Event)

// Bus is the in-process pub/sub used to decouple the state machines
// from the notification fan-out and the broadcast gateway. Publishers
// call Publish only after their own state change is durable.
type Bus struct {
	mu   sync.RWMutex
	subs []Handler
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, h)
}

func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	handlers := make([]Handler, len(b.subs))
	copy(handlers, b.subs)
	b.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}
