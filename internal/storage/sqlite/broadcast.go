package sqlite

import (
	"sync"

	"github.com/aanand-mishra/student-register/internal/storage"
	"github.com/aanand-mishra/student-register/internal/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// broadcaster fans the store's snapshot stream out to subscribers.
//
// HOW THE CHANNEL DISCIPLINE WORKS:
// ──────────────────────────────────
// Each subscriber gets its own channel with a buffer of exactly 1 — a
// mailbox holding "the latest snapshot you have not read yet".
//
//	publish:   try to put the snapshot in the mailbox; if it is full,
//	           throw away the stale one and put the new one in.
//	subscribe: seed the mailbox with the current snapshot so the new
//	           subscriber reads state immediately (replay-latest).
//
// This gives every subscriber an independent cursor, guarantees eventual
// delivery of the latest consistent state, and never blocks the writer
// on a slow reader. Intermediate snapshots may be skipped; that is the
// intended backpressure policy, not a bug.
//
// All sends and closes happen while holding mu, so a channel is never
// closed concurrently with a send. Receives are lock-free.
// ─────────────────────────────────────────────────────────────────────────────
type broadcaster struct {
	mu     sync.Mutex
	subs   map[chan []types.Student]struct{}
	latest []types.Student
	closed bool
}

func newBroadcaster() *broadcaster {
	return &broadcaster{subs: make(map[chan []types.Student]struct{})}
}

// subscribe registers a new subscriber and seeds it with the latest
// snapshot. The returned Subscription's Cancel detaches it again.
func (b *broadcaster) subscribe() *storage.Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan []types.Student, 1)
	if b.closed {
		// Store already shut down: hand back an inert, closed stream so
		// the subscriber's range loop ends immediately.
		close(ch)
		return storage.NewSubscription(ch, func() {})
	}

	ch <- b.latest // replay-latest: current state is readable right away
	b.subs[ch] = struct{}{}

	return storage.NewSubscription(ch, func() { b.unsubscribe(ch) })
}

func (b *broadcaster) unsubscribe(ch chan []types.Student) {
	b.mu.Lock()
	defer b.mu.Unlock()

	// Membership check before close: shutdown may have removed (and
	// closed) this channel already.
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// publish records snap as the latest state and offers it to every
// subscriber mailbox, replacing any stale unread snapshot.
func (b *broadcaster) publish(snap []types.Student) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.latest = snap

	for ch := range b.subs {
		offerLatest(ch, snap)
	}
}

// shutdown closes every subscriber channel and rejects future publishes.
func (b *broadcaster) shutdown() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// offerLatest is the non-blocking "replace stale with latest" send.
// Caller must hold b.mu (it is the only sender/closer discipline).
func offerLatest(ch chan []types.Student, snap []types.Student) {
	select {
	case ch <- snap:
		return
	default:
	}
	// Mailbox full: drop the unread stale snapshot...
	select {
	case <-ch:
	default:
	}
	// ...and offer the new one. The second default covers the race where
	// the subscriber drained the mailbox between our two selects AND
	// another publish slipped in — impossible while we hold mu, but the
	// non-blocking form keeps this helper safe to reason about.
	select {
	case ch <- snap:
	default:
	}
}
