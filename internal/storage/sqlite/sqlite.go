// Package sqlite provides a SQLite-backed implementation of the
// storage.Storage interface using Go's standard database/sql package.
//
// WHY SQLite?
// ───────────
// SQLite stores everything in a single file on disk. There is no
// network, no separate server process, and no installation beyond the
// driver. For a single-screen register that one process owns, it is the
// whole database story.
//
// The blank import below registers the sqlite3 driver with database/sql.
// The driver's init() function does this automatically when the package
// is loaded — we never call anything from it directly.
package sqlite

import (
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aanand-mishra/student-register/internal/config"
	"github.com/aanand-mishra/student-register/internal/storage"
	"github.com/aanand-mishra/student-register/internal/types"

	// Blank import: side-effect only (registers the "sqlite3" driver).
	// Without this the sql.Open("sqlite3", ...) call would fail with
	// "unknown driver".
	_ "github.com/mattn/go-sqlite3"
)

// SQLite is the concrete implementation of storage.Storage.
//
// It holds a *sql.DB (a connection pool managed by database/sql, safe
// for concurrent use), a write mutex, and the snapshot broadcaster.
//
// WRITE SERIALIZATION:
// ─────────────────────
// Mutations may arrive from any goroutine. The mutex makes each
// write-then-snapshot sequence atomic, so the stream only ever carries
// fully-applied states — a subscriber can never observe half of an
// update. Reads through subscriptions never take this lock.
type SQLite struct {
	db    *sql.DB
	mu    sync.Mutex
	bcast *broadcaster
}

// Interface conformance check: fails to compile if SQLite drifts from
// the storage.Storage contract.
var _ storage.Storage = (*SQLite)(nil)

// New opens the SQLite database at the path specified in cfg.StoragePath,
// creates the students table if it does not already exist, loads the
// current state into the broadcaster, and returns a ready-to-use *SQLite.
//
// Naming convention: New() acts as a constructor. Go has no constructors,
// so the community convention is a package-level New() function that
// returns an initialised instance (and an error as the second value).
func New(cfg *config.Config) (*SQLite, error) {
	// The DSN options matter here:
	//   _busy_timeout=5000 — if another handle briefly locks the file,
	//     the driver retries for up to 5s instead of hanging or failing
	//     immediately. A write that still cannot proceed surfaces as an
	//     ordinary driver error (and therefore a StorageError).
	//   _foreign_keys=on  — SQLite default is off; switch it on so the
	//     schema behaves the way it reads.
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=on", cfg.StoragePath)

	// sql.Open does NOT open a real connection yet — it just validates
	// the driver name and data source name (DSN).
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite.New: open db: %w", err)
	}

	// One connection, always. SQLite allows a single writer anyway, and
	// a pool of one also makes ":memory:" databases behave: with more
	// connections each one would get its own private in-memory database
	// and the table would "vanish" between queries.
	db.SetMaxOpenConns(1)

	// CREATE TABLE IF NOT EXISTS is idempotent — safe to run on every
	// startup. AUTOINCREMENT (as opposed to the plain rowid behaviour)
	// records the highest ID ever assigned in sqlite_sequence, so an ID
	// is never handed out twice within the lifetime of the database
	// file, even after the record that carried it is deleted.
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS students (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT    NOT NULL,
			email      TEXT    NOT NULL DEFAULT '',
			reg_number TEXT    NOT NULL DEFAULT '',
			age        INTEGER NOT NULL DEFAULT 0,
			course     TEXT    NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: create table: %w", err)
	}

	s := &SQLite{db: db, bcast: newBroadcaster()}

	// Seed the broadcaster with the current state so the very first
	// subscriber replays real data, not a nil placeholder.
	snap, err := s.GetAllStudents()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite.New: initial snapshot: %w", err)
	}
	s.bcast.publish(snap)

	return s, nil
}

// ─────────────────────────────────────────────────────────────────────────────
// InsertStudent persists a record and publishes the resulting snapshot.
//
// Two cases, by upsert contract:
//
//	ID == 0 → plain INSERT; SQLite assigns the next never-used ID.
//	ID != 0 → INSERT OR REPLACE; an existing record with that ID is
//	          replaced wholesale (count unchanged), a missing one is
//	          simply created.
//
// HOW PREPARED STATEMENTS PREVENT SQL INJECTION:
// ────────────────────────────────────────────────
// Placeholders (?) make the driver send query and values separately;
// the engine treats the values as pure data, never as SQL syntax. Never
// build queries by concatenating user input.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) InsertStudent(student types.Student) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if student.ID == 0 {
		stmt, err := s.db.Prepare(
			"INSERT INTO students (name, email, reg_number, age, course) VALUES (?, ?, ?, ?, ?)",
		)
		if err != nil {
			return 0, &storage.StorageError{Op: "insert", Err: err}
		}
		// defer ensures the statement is closed when this function
		// returns, even on the error paths. Prevents resource leaks.
		defer stmt.Close()

		result, err := stmt.Exec(
			student.Name, student.Email, student.RegNumber, student.Age, student.Course,
		)
		if err != nil {
			return 0, &storage.StorageError{Op: "insert", Err: err}
		}

		// LastInsertId returns the auto-generated primary key.
		id, err := result.LastInsertId()
		if err != nil {
			return 0, &storage.StorageError{Op: "insert", Err: err}
		}

		return id, s.publishSnapshot()
	}

	// Explicit ID: upsert. OR REPLACE deletes any conflicting row and
	// inserts the new one in a single statement, atomically.
	stmt, err := s.db.Prepare(
		"INSERT OR REPLACE INTO students (id, name, email, reg_number, age, course) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return 0, &storage.StorageError{Op: "insert", Err: err}
	}
	defer stmt.Close()

	_, err = stmt.Exec(
		student.ID, student.Name, student.Email, student.RegNumber, student.Age, student.Course,
	)
	if err != nil {
		return 0, &storage.StorageError{Op: "insert", Err: err}
	}

	return student.ID, s.publishSnapshot()
}

// ─────────────────────────────────────────────────────────────────────────────
// UpdateStudent overwrites every field of the record carrying student.ID.
//
// A missing ID is a silent no-op: RowsAffected comes back 0, nothing is
// published (state did not change, so the stream stays quiet), and nil
// is returned. We log it at debug level because a caller holding a
// stale ID has just lost an update — invisible in prod, loud in dev.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) UpdateStudent(student types.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.db.Prepare(
		"UPDATE students SET name = ?, email = ?, reg_number = ?, age = ?, course = ? WHERE id = ?",
	)
	if err != nil {
		return &storage.StorageError{Op: "update", Err: err}
	}
	defer stmt.Close()

	// Note the argument order matches the ? order in the SQL:
	//   name, email, reg_number, age, course, id
	result, err := stmt.Exec(
		student.Name, student.Email, student.RegNumber, student.Age, student.Course, student.ID,
	)
	if err != nil {
		return &storage.StorageError{Op: "update", Err: err}
	}

	n, err := result.RowsAffected()
	if err != nil {
		return &storage.StorageError{Op: "update", Err: err}
	}
	if n == 0 {
		slog.Debug("update matched no record", slog.Int64("id", student.ID))
		return nil
	}

	return s.publishSnapshot()
}

// ─────────────────────────────────────────────────────────────────────────────
// DeleteStudent removes the record carrying student.ID.
// Deleting an absent ID is a silent no-op and publishes nothing.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) DeleteStudent(student types.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stmt, err := s.db.Prepare("DELETE FROM students WHERE id = ?")
	if err != nil {
		return &storage.StorageError{Op: "delete", Err: err}
	}
	defer stmt.Close()

	result, err := stmt.Exec(student.ID)
	if err != nil {
		return &storage.StorageError{Op: "delete", Err: err}
	}

	n, err := result.RowsAffected()
	if err != nil {
		return &storage.StorageError{Op: "delete", Err: err}
	}
	if n == 0 {
		slog.Debug("delete matched no record", slog.Int64("id", student.ID))
		return nil
	}

	return s.publishSnapshot()
}

// ─────────────────────────────────────────────────────────────────────────────
// GetAllStudents returns the current snapshot, newest record first.
//
// HOW Query + rows.Next() WORK:
// ──────────────────────────────
// Query returns *sql.Rows — a cursor over multiple rows. We iterate with
// rows.Next() which advances the cursor and returns false when there are
// no more rows, Scan-ing each row inside the loop. Always defer
// rows.Close() to release the database connection.
// ─────────────────────────────────────────────────────────────────────────────
func (s *SQLite) GetAllStudents() ([]types.Student, error) {
	// Explicitly list columns — never use SELECT * in production code.
	// If a column is added later, SELECT * would break Scan's ordering.
	//
	// ORDER BY id DESC: every snapshot lists the most recently created
	// record first. This ordering is part of the store's contract.
	rows, err := s.db.Query(
		"SELECT id, name, email, reg_number, age, course FROM students ORDER BY id DESC",
	)
	if err != nil {
		return nil, &storage.StorageError{Op: "list", Err: err}
	}
	defer rows.Close()

	// Pre-allocate an empty (non-nil) slice: an empty register is a
	// real, observable state and should encode as [], not null.
	students := make([]types.Student, 0)

	for rows.Next() {
		var student types.Student
		if err := rows.Scan(
			&student.ID,
			&student.Name,
			&student.Email,
			&student.RegNumber,
			&student.Age,
			&student.Course,
		); err != nil {
			return nil, &storage.StorageError{Op: "list", Err: err}
		}
		students = append(students, student)
	}

	// rows.Err() captures any error that occurred during iteration —
	// separate from Scan errors.
	if err := rows.Err(); err != nil {
		return nil, &storage.StorageError{Op: "list", Err: err}
	}

	return students, nil
}

// ObserveAll attaches a new subscriber to the live snapshot stream.
// The subscription's channel already holds the current state.
func (s *SQLite) ObserveAll() *storage.Subscription {
	return s.bcast.subscribe()
}

// Close shuts the stream down (every open subscription's channel is
// closed) and releases the database handle.
func (s *SQLite) Close() error {
	s.bcast.shutdown()
	if err := s.db.Close(); err != nil {
		return &storage.StorageError{Op: "close", Err: err}
	}
	return nil
}

// publishSnapshot re-reads the table and pushes the fresh state to all
// subscribers. Called with s.mu held, immediately after a successful
// mutation, so the published snapshot always reflects exactly one whole
// write. A failed re-read surfaces to the mutation's caller; the stream
// itself keeps serving the last consistent snapshot and stays open.
func (s *SQLite) publishSnapshot() error {
	snap, err := s.GetAllStudents()
	if err != nil {
		return err // already a *StorageError with op "list"
	}
	s.bcast.publish(snap)
	return nil
}
