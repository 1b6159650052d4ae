package app

import "sync"

// Publisher is a minimal observable value for pushing state snapshots to
// the UI layer. The latest published value is replayed to new subscribers
// so late subscribers do not miss current state. Safe for concurrent use.
type Publisher[T any] struct {
	mu          sync.Mutex
	subscribers map[int]func(T)
	nextID      int
	last        T
	hasLast     bool
}

// NewPublisher creates an empty publisher.
func NewPublisher[T any]() *Publisher[T] {
	return &Publisher[T]{
		subscribers: make(map[int]func(T)),
	}
}

// Subscribe registers a listener. If a value has been published it is
// replayed immediately. The returned function cancels the subscription.
func (p *Publisher[T]) Subscribe(fn func(T)) (cancel func()) {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.subscribers[id] = fn
	replay, hasReplay := p.last, p.hasLast
	p.mu.Unlock()

	if hasReplay {
		fn(replay)
	}

	return func() {
		p.mu.Lock()
		delete(p.subscribers, id)
		p.mu.Unlock()
	}
}

// Publish delivers the value to all subscribers and retains it for replay.
// Delivery is synchronous; subscriber order is not guaranteed.
func (p *Publisher[T]) Publish(value T) {
	p.mu.Lock()
	p.last = value
	p.hasLast = true
	fns := make([]func(T), 0, len(p.subscribers))
	for _, fn := range p.subscribers {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(value)
	}
}

// Last returns the most recently published value, if any.
func (p *Publisher[T]) Last() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.last, p.hasLast
}
