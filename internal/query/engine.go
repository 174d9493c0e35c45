package query

import (
	"sync"

	"github.com/aanand-mishra/student-register/internal/storage"
	"github.com/aanand-mishra/student-register/internal/types"
)

// ─────────────────────────────────────────────────────────────────────────────
// Engine combines the live snapshot stream with a mutable search term.
//
// HOW THE COMBINATION WORKS:
// ───────────────────────────
// One goroutine owns both pieces of state (latest snapshot, latest
// term). It wakes whenever either input changes, recomputes
// Apply(snapshot, term), and offers the result into a depth-1 results
// mailbox — the same replay-latest / drop-intermediate discipline the
// store uses for its own stream. Only the LATEST value of each input
// matters: if the user types faster than the consumer reads, the
// intermediate filtered lists are simply skipped.
//
// Because a single goroutine does all the recomputation, there is no
// lock around the state and no ordering subtlety between "snapshot
// changed" and "term changed" — whichever arrives, we recompute from
// the latest pair.
// ─────────────────────────────────────────────────────────────────────────────
type Engine struct {
	sub   *storage.Subscription
	terms chan string
	out   chan []types.Student

	closeOnce sync.Once
	done      chan struct{} // closed when the run loop has exited
}

// NewEngine starts an engine over the given snapshot subscription.
// The engine takes ownership of the subscription: Close cancels it.
//
// The first result (current snapshot, empty term) is available on
// Results almost immediately, because the subscription replays the
// current state to the run loop on startup.
func NewEngine(sub *storage.Subscription) *Engine {
	e := &Engine{
		sub:   sub,
		terms: make(chan string, 1),
		out:   make(chan []types.Student, 1),
		done:  make(chan struct{}),
	}
	go e.run()
	return e
}

// SetTerm replaces the search term. Non-blocking: if the run loop has
// not picked up the previous term yet, the new one overwrites it
// (latest-wins — exactly what a search box wants).
func (e *Engine) SetTerm(term string) {
	select {
	case e.terms <- term:
		return
	default:
	}
	select {
	case <-e.terms:
	default:
	}
	select {
	case e.terms <- term:
	default:
	}
}

// Results is the filtered list stream: depth 1, replay-latest,
// drop-intermediate. Closed when the engine shuts down.
func (e *Engine) Results() <-chan []types.Student { return e.out }

// Close cancels the upstream subscription and stops the run loop. The
// Results channel is closed once the loop has drained out. Idempotent.
func (e *Engine) Close() {
	e.closeOnce.Do(e.sub.Cancel)
	<-e.done
}

// run is the single owner of the combined state.
func (e *Engine) run() {
	defer close(e.done)
	defer close(e.out)

	var (
		snapshot []types.Student
		term     string
		seeded   bool // no output until the first snapshot lands
	)

	for {
		select {
		case snap, ok := <-e.sub.Records():
			if !ok {
				// Subscription cancelled (Close, or store shutdown):
				// the engine's life is bound to its upstream.
				return
			}
			snapshot, seeded = snap, true

		case t := <-e.terms:
			term = t
			if !seeded {
				// Nothing to filter yet; remember the term and wait
				// for the first snapshot.
				continue
			}
		}

		offerLatest(e.out, Apply(snapshot, term))
	}
}

// offerLatest places the list in the mailbox, replacing any unread
// stale one. run is the only sender and closer of e.out, so the
// non-blocking dance here can never race a close.
func offerLatest(ch chan []types.Student, list []types.Student) {
	select {
	case ch <- list:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- list:
	default:
	}
}
