package app

import (
	"sync"

	"github.com/bft-labs/geotrack/internal/domain"
)

// UpdateKind distinguishes the signals carried by the bus.
type UpdateKind int

const (
	UpdateFix UpdateKind = iota
	UpdateError
)

// Update is a single bus signal: either a fix or an asynchronous error.
type Update struct {
	Kind UpdateKind
	Fix  domain.Fix
	Err  error
}

// Handle identifies a bus subscription.
type Handle uint64

// Bus delivers updates to subscribers.
//
// Each subscriber owns an unbounded FIFO mailbox drained by its own
// goroutine, so a slow subscriber never blocks the publisher or its peers
// and sees updates in publish order. Publish delivers to the subscribers
// present when it is called.
type Bus struct {
	mu     sync.RWMutex
	next   Handle
	subs   map[Handle]*mailbox
	closed bool
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[Handle]*mailbox)}
}

// Subscribe registers fn and returns its handle. fn runs on a goroutine
// owned by the subscription. Subscribing to a closed bus returns a handle
// that never receives updates.
func (b *Bus) Subscribe(fn func(Update)) Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.next++
	h := b.next
	if b.closed {
		return h
	}

	mb := newMailbox(fn)
	b.subs[h] = mb
	go mb.run()
	return h
}

// Unsubscribe removes the subscription. Updates still queued for it are
// discarded; a callback already running is allowed to finish. It is safe to
// call from inside the subscriber's own callback.
func (b *Bus) Unsubscribe(h Handle) {
	b.mu.Lock()
	mb, ok := b.subs[h]
	delete(b.subs, h)
	b.mu.Unlock()

	if ok {
		mb.close(true)
	}
}

// Publish delivers fix to every current subscriber.
func (b *Bus) Publish(fix domain.Fix) {
	b.publish(Update{Kind: UpdateFix, Fix: fix})
}

// PublishError delivers an asynchronous error to every current subscriber.
func (b *Bus) PublishError(err error) {
	if err == nil {
		return
	}
	b.publish(Update{Kind: UpdateError, Err: err})
}

// Len returns the number of active subscriptions.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close drains queued updates, stops all subscriber goroutines and waits
// for them. It must not be called from a subscriber callback.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[Handle]*mailbox)
	b.mu.Unlock()

	for _, mb := range subs {
		mb.close(false)
	}
	for _, mb := range subs {
		<-mb.done
	}
}

func (b *Bus) publish(u Update) {
	// The write lock serializes publishers so every mailbox sees the same
	// order. Pushing never blocks.
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	for _, mb := range b.subs {
		mb.push(u)
	}
}

type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []Update
	closed  bool
	discard bool
	fn      func(Update)
	done    chan struct{}
}

func newMailbox(fn func(Update)) *mailbox {
	mb := &mailbox{fn: fn, done: make(chan struct{})}
	mb.cond = sync.NewCond(&mb.mu)
	return mb
}

func (mb *mailbox) push(u Update) {
	mb.mu.Lock()
	if !mb.closed {
		mb.queue = append(mb.queue, u)
		mb.cond.Signal()
	}
	mb.mu.Unlock()
}

func (mb *mailbox) close(discard bool) {
	mb.mu.Lock()
	mb.closed = true
	if discard {
		mb.discard = true
		mb.queue = nil
	}
	mb.cond.Signal()
	mb.mu.Unlock()
}

func (mb *mailbox) run() {
	defer close(mb.done)
	for {
		mb.mu.Lock()
		for len(mb.queue) == 0 && !mb.closed {
			mb.cond.Wait()
		}
		if mb.discard || len(mb.queue) == 0 {
			mb.mu.Unlock()
			return
		}
		u := mb.queue[0]
		mb.queue[0] = Update{}
		mb.queue = mb.queue[1:]
		mb.mu.Unlock()

		mb.fn(u)
	}
}
