// Package view is the presentation boundary: the surface a UI (or a
// test pretending to be one) talks to.
//
// This is the same role the HTTP handler layer plays in a REST service,
// re-shaped for an in-process screen: raw user input comes in as
// strings, gets normalised, and is handed to the repository; the
// continuously-filtered student list flows back out on a channel the
// screen renders from. No widget code lives here — only the contract
// the screen consumes.
//
// ASYNCHRONY AT THIS BOUNDARY:
// ─────────────────────────────
// Mutations are fire-and-forget: AddStudent returns before the write
// lands, the way a UI thread hands work off and moves on. The caller
// sees the outcome the same way the user does — the updated list
// arriving on Students() — and failures go to the error hook, not a
// return value.
package view

import (
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/aanand-mishra/student-register/internal/query"
	"github.com/aanand-mishra/student-register/internal/repository"
	"github.com/aanand-mishra/student-register/internal/types"
)

// StudentList is the view model for the single student-register screen.
type StudentList struct {
	repo   *repository.Repository
	engine *query.Engine
	log    *slog.Logger

	// onError receives mutation failures. A UI would surface these as a
	// toast/snackbar; the default just logs them.
	onError func(error)

	wg        sync.WaitGroup // in-flight fire-and-forget mutations
	closeOnce sync.Once
}

// Option customises a StudentList at construction time.
type Option func(*StudentList)

// WithErrorHandler replaces the default (log-only) mutation error hook.
func WithErrorHandler(fn func(error)) Option {
	return func(l *StudentList) { l.onError = fn }
}

// New builds the view model: it subscribes to the repository's live
// stream and starts the filter engine over it.
func New(repo *repository.Repository, log *slog.Logger, opts ...Option) *StudentList {
	l := &StudentList{
		repo:   repo,
		engine: query.NewEngine(repo.ObserveAll()),
		log:    log,
	}
	l.onError = func(err error) {
		l.log.Error("student mutation failed", slog.String("error", err.Error()))
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Students is the screen's data source: the filtered, ordered list,
// re-emitted whenever the records or the search term change. Depth 1,
// replay-latest — a screen only ever wants the newest list anyway.
func (l *StudentList) Students() <-chan []types.Student { return l.engine.Results() }

// ─────────────────────────────────────────────────────────────────────────────
// Mutations — raw strings in, repository entities out.
// ─────────────────────────────────────────────────────────────────────────────

// AddStudent creates a new record from raw form fields.
//
// age arrives as the text the user typed. An unparsable age becomes 0
// rather than an error — a wrong age is recoverable by editing the
// record, so it is not worth blocking the add over.
func (l *StudentList) AddStudent(name, email, regNumber, age, course string) {
	student := types.Student{
		Name:      strings.TrimSpace(name),
		Email:     strings.TrimSpace(email),
		RegNumber: strings.TrimSpace(regNumber),
		Age:       parseAge(age),
		Course:    strings.TrimSpace(course),
	}

	l.log.Info("adding student", slog.String("name", student.Name))

	l.async(func() error {
		_, err := l.repo.Insert(student)
		return err
	})
}

// UpdateStudent overwrites an existing record. The record should come
// from the latest emitted list (that is where its ID came from).
func (l *StudentList) UpdateStudent(student types.Student) {
	l.log.Info("updating student", slog.Int64("id", student.ID))
	l.async(func() error { return l.repo.Update(student) })
}

// DeleteStudent removes a record.
func (l *StudentList) DeleteStudent(student types.Student) {
	l.log.Info("deleting student", slog.Int64("id", student.ID))
	l.async(func() error { return l.repo.Delete(student) })
}

// OnSearchQueryChange feeds the search box straight into the filter
// engine. Called on every keystroke; latest term wins.
func (l *StudentList) OnSearchQueryChange(term string) {
	l.engine.SetTerm(term)
}

// Close waits for in-flight mutations, then tears down the filter
// engine and its subscription. The Students channel closes.
func (l *StudentList) Close() {
	l.closeOnce.Do(func() {
		l.wg.Wait()
		l.engine.Close()
	})
}

// async runs one mutation off the caller's goroutine, routing any
// failure to the error hook.
func (l *StudentList) async(op func() error) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := op(); err != nil {
			l.onError(err)
		}
	}()
}

// parseAge turns user-typed text into years, defaulting to 0 when the
// text is not a number.
func parseAge(s string) int {
	age, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return age
}
