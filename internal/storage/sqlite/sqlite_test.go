package sqlite

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aanand-mishra/student-register/internal/config"
	"github.com/aanand-mishra/student-register/internal/storage"
	"github.com/aanand-mishra/student-register/internal/types"
)

// newTestStore opens a fresh in-memory database per test.
func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	store, err := New(&config.Config{Env: "dev", StoragePath: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

// recv reads the next snapshot off a subscription or fails the test.
func recv(t *testing.T, sub *storage.Subscription) []types.Student {
	t.Helper()

	select {
	case snap, ok := <-sub.Records():
		require.True(t, ok, "subscription closed unexpectedly")
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a snapshot")
		return nil
	}
}

// tryRecv does a non-blocking read: (nil, false) means the mailbox was
// empty. Safe to use right after a mutation returns, because snapshots
// are published synchronously inside the mutation call.
func tryRecv(sub *storage.Subscription) ([]types.Student, bool) {
	select {
	case snap := <-sub.Records():
		return snap, true
	default:
		return nil, false
	}
}

func TestNewCreatesEmptyRegister(t *testing.T) {
	store := newTestStore(t)

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.NotNil(t, students, "empty register must be [], not nil")
	assert.Len(t, students, 0)
}

func TestInsertAssignsFreshID(t *testing.T) {
	store := newTestStore(t)

	sub := store.ObserveAll()
	defer sub.Cancel()
	require.Len(t, recv(t, sub), 0, "initial emission should be the empty state")

	id, err := store.InsertStudent(types.Student{
		Name:      "Rakesh",
		Email:     "rakesh@test.com",
		RegNumber: "R100",
		Age:       21,
		Course:    "CS",
	})
	require.NoError(t, err)
	assert.Greater(t, id, int64(0))

	snap := recv(t, sub)
	require.Len(t, snap, 1)
	assert.Equal(t, id, snap[0].ID)
	assert.Equal(t, "Rakesh", snap[0].Name)
	assert.Equal(t, "rakesh@test.com", snap[0].Email)
	assert.Equal(t, "R100", snap[0].RegNumber)
	assert.Equal(t, 21, snap[0].Age)
	assert.Equal(t, "CS", snap[0].Course)
}

func TestInsertWithExistingIDReplaces(t *testing.T) {
	store := newTestStore(t)

	first, err := store.InsertStudent(types.Student{Name: "Ann", Course: "CS"})
	require.NoError(t, err)
	_, err = store.InsertStudent(types.Student{Name: "Bob", Course: "Math"})
	require.NoError(t, err)

	// Re-insert under Ann's ID: upsert, every field replaced.
	id, err := store.InsertStudent(types.Student{
		ID: first, Name: "Annabel", Email: "annabel@test.com", Course: "Physics",
	})
	require.NoError(t, err)
	assert.Equal(t, first, id)

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.Len(t, students, 2, "upsert must not change the record count")

	var got types.Student
	for _, s := range students {
		if s.ID == first {
			got = s
		}
	}
	assert.Equal(t, "Annabel", got.Name)
	assert.Equal(t, "annabel@test.com", got.Email)
	assert.Equal(t, "Physics", got.Course)
}

func TestUpdateOverwritesAllFields(t *testing.T) {
	store := newTestStore(t)

	id, err := store.InsertStudent(types.Student{Name: "Ann", Age: 20, Course: "CS"})
	require.NoError(t, err)

	err = store.UpdateStudent(types.Student{
		ID: id, Name: "Ann Lee", Email: "ann@test.com", RegNumber: "R7", Age: 21, Course: "Math",
	})
	require.NoError(t, err)

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, types.Student{
		ID: id, Name: "Ann Lee", Email: "ann@test.com", RegNumber: "R7", Age: 21, Course: "Math",
	}, students[0])
}

func TestUpdateMissingIDIsSilentNoOp(t *testing.T) {
	store := newTestStore(t)

	id, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.NoError(t, err)

	sub := store.ObserveAll()
	defer sub.Cancel()
	recv(t, sub) // drain the initial emission

	err = store.UpdateStudent(types.Student{ID: id + 1000, Name: "Ghost"})
	require.NoError(t, err, "updating a missing id is not an error")

	// State unchanged, and no emission happened for it.
	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "Ann", students[0].Name)

	_, emitted := tryRecv(sub)
	assert.False(t, emitted, "a no-op must not emit a snapshot")
}

func TestDeleteMissingIDIsSilentNoOp(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.NoError(t, err)

	sub := store.ObserveAll()
	defer sub.Cancel()
	recv(t, sub)

	err = store.DeleteStudent(types.Student{ID: 9999})
	require.NoError(t, err)

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	assert.Len(t, students, 1)

	_, emitted := tryRecv(sub)
	assert.False(t, emitted, "a no-op must not emit a snapshot")
}

func TestDeleteRemovesRecord(t *testing.T) {
	store := newTestStore(t)

	id, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.NoError(t, err)
	keep, err := store.InsertStudent(types.Student{Name: "Bob"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteStudent(types.Student{ID: id}))

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, keep, students[0].ID)
}

func TestSnapshotOrderIsDescendingByID(t *testing.T) {
	store := newTestStore(t)

	var ids []int64
	for _, name := range []string{"first", "second", "third"} {
		id, err := store.InsertStudent(types.Student{Name: name})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	students, err := store.GetAllStudents()
	require.NoError(t, err)
	require.Len(t, students, 3)

	// Most recently created first.
	assert.Equal(t, ids[2], students[0].ID)
	assert.Equal(t, ids[1], students[1].ID)
	assert.Equal(t, ids[0], students[2].ID)
	assert.Equal(t, "third", students[0].Name)
}

func TestIDNeverReusedAfterDelete(t *testing.T) {
	store := newTestStore(t)

	first, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.NoError(t, err)
	require.NoError(t, store.DeleteStudent(types.Student{ID: first}))

	second, err := store.InsertStudent(types.Student{Name: "Bob"})
	require.NoError(t, err)
	assert.Greater(t, second, first, "a deleted id must never be handed out again")
}

func TestSlowSubscriberGetsLatestState(t *testing.T) {
	store := newTestStore(t)

	sub := store.ObserveAll()
	defer sub.Cancel()
	// Deliberately do not read: the mailbox holds the initial state and
	// each write replaces whatever is unread.

	for _, name := range []string{"a", "b", "c"} {
		_, err := store.InsertStudent(types.Student{Name: name})
		require.NoError(t, err)
	}

	snap := recv(t, sub)
	assert.Len(t, snap, 3, "the one delivered snapshot must be the latest state")
}

func TestIndependentSubscribers(t *testing.T) {
	store := newTestStore(t)

	early := store.ObserveAll()
	defer early.Cancel()
	require.Len(t, recv(t, early), 0)

	_, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.NoError(t, err)

	// A subscriber attaching now starts from the current state, not the
	// beginning of history.
	late := store.ObserveAll()
	defer late.Cancel()
	assert.Len(t, recv(t, late), 1)

	// The early subscriber's own cursor is unaffected by the late one.
	assert.Len(t, recv(t, early), 1)
}

func TestCancelStopsEmissions(t *testing.T) {
	store := newTestStore(t)

	sub := store.ObserveAll()
	recv(t, sub)
	sub.Cancel()
	sub.Cancel() // idempotent

	_, ok := <-sub.Records()
	assert.False(t, ok, "cancelled subscription channel must be closed")

	// Writers are unaffected by the departed subscriber.
	_, err := store.InsertStudent(types.Student{Name: "Ann"})
	assert.NoError(t, err)
}

func TestCloseShutsDownSubscriptions(t *testing.T) {
	store := newTestStore(t)

	sub := store.ObserveAll()
	recv(t, sub)

	require.NoError(t, store.Close())

	_, ok := <-sub.Records()
	assert.False(t, ok, "store shutdown must close subscriber channels")

	// Subscribing after shutdown yields an already-closed stream.
	dead := store.ObserveAll()
	_, ok = <-dead.Records()
	assert.False(t, ok)
}

func TestMutationAfterCloseIsStorageError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Close())

	_, err := store.InsertStudent(types.Student{Name: "Ann"})
	require.Error(t, err)
	assert.True(t, storage.IsStorageError(err),
		"backing-table failures must surface as StorageError, got %v", err)
}
