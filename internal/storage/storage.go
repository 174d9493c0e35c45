// Package storage defines the Storage interface — a contract that any
// database backend must satisfy to work with this application.
//
// WHY AN INTERFACE?
// ─────────────────
// The repository and view layers should not know or care which database
// they are talking to. By depending only on this interface:
//
//   - Switching databases = implement the interface for the new DB,
//     change one line in main.go. Zero caller changes.
//
//   - Writing tests = pass a fake/mock that satisfies the interface.
//     No real database needed for unit tests.
//
// This is the Dependency Inversion Principle in practice.
package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/aanand-mishra/student-register/internal/types"
)

// Storage is the database contract.
// Any concrete type that implements ALL of these methods automatically
// satisfies this interface — Go does this implicitly (no "implements"
// keyword required).
type Storage interface {
	// InsertStudent persists a student record and returns its ID.
	//
	// Upsert semantics:
	//   - record.ID == 0 → a fresh, never-before-used ID is assigned.
	//   - record.ID != 0 → the record REPLACES any existing record with
	//     that ID (and is simply stored if no such record exists).
	//
	// Fails only on an underlying storage failure (*StorageError).
	InsertStudent(student types.Student) (int64, error)

	// UpdateStudent overwrites every field of the record matching
	// student.ID. If no record has that ID this is a silent no-op, not
	// an error — callers are expected to act only on IDs they saw in
	// the latest snapshot.
	UpdateStudent(student types.Student) error

	// DeleteStudent removes the record matching student.ID.
	// Silent no-op if no such record exists.
	DeleteStudent(student types.Student) error

	// GetAllStudents returns a one-off snapshot of every record,
	// ordered by descending ID (most recently created first).
	// Returns an empty slice (not nil) if there are no students.
	GetAllStudents() ([]types.Student, error)

	// ObserveAll returns a live stream of full snapshots. The new
	// subscription immediately carries the current state and receives a
	// fresh snapshot after every mutation that changes persisted state.
	// See Subscription for delivery guarantees. The stream never ends
	// on its own; the subscriber must call Cancel.
	ObserveAll() *Subscription

	// Close releases the underlying database handle and cancels every
	// open subscription.
	Close() error
}

// ─────────────────────────────────────────────────────────────────────────────
// StorageError
// ─────────────────────────────────────────────────────────────────────────────

// StorageError is the one error kind mutations can return: something went
// wrong in the backing table itself (I/O failure, corrupt file, busy
// timeout). It is deliberately distinct from "no such record" — a missing
// ID on update/delete is NOT an error in this system, it is a no-op.
//
// StorageError wraps the driver error, so callers can still reach the
// root cause with errors.As / errors.Is if they need to.
type StorageError struct {
	Op  string // the operation that failed: "insert", "update", ...
	Err error  // the underlying driver error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %s", e.Op, e.Err.Error())
}

// Unwrap lets errors.Is/errors.As see through to the driver error.
func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a *StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ─────────────────────────────────────────────────────────────────────────────
// Subscription — one subscriber's view of the live snapshot stream.
//
// DELIVERY GUARANTEES:
// ─────────────────────
//   - Replay-latest: the channel already holds the current snapshot at
//     subscribe time, so a new subscriber never waits for the next write.
//   - Drop-intermediate: the channel is depth 1. If the subscriber is
//     slow, stale snapshots are replaced by newer ones — the subscriber
//     is guaranteed the latest consistent state, not every intermediate.
//   - Independence: each subscriber owns its channel; a slow subscriber
//     never blocks writers or other subscribers.
//   - Every received snapshot is complete and consistent (never a
//     half-applied write). Treat it as read-only; it may be shared with
//     other subscribers.
//
// ─────────────────────────────────────────────────────────────────────────────
type Subscription struct {
	ch     chan []types.Student
	cancel func()
	once   sync.Once
}

// NewSubscription wires a Subscription around a snapshot channel and the
// function that detaches it from its publisher. Intended for Storage
// implementations; consumers only ever call Records and Cancel.
func NewSubscription(ch chan []types.Student, cancel func()) *Subscription {
	return &Subscription{ch: ch, cancel: cancel}
}

// Records is the snapshot channel. It is closed when the subscription is
// cancelled (or the store shuts down), so a plain `for range` loop over
// it terminates cleanly.
func (s *Subscription) Records() <-chan []types.Student { return s.ch }

// Cancel detaches this subscriber and closes its channel. Idempotent.
// Other subscribers and in-flight writes are unaffected.
func (s *Subscription) Cancel() {
	s.once.Do(s.cancel)
}
