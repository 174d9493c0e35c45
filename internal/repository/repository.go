// Package repository is the domain-facing facade over the storage layer.
//
// WHY A FACADE AT ALL?
// ─────────────────────
// Callers (the view layer, tests, a future sync job) should speak the
// domain vocabulary — "give me all students", "insert this student" —
// without knowing that a SQLite file sits underneath. The repository
// adds exactly one thing of its own: it checks that mutation inputs are
// well-formed entities before they reach the store. Everything else is
// a pass-through, on purpose.
package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/aanand-mishra/student-register/internal/storage"
	"github.com/aanand-mishra/student-register/internal/types"
)

// ErrInvalidStudent marks a mutation rejected before it reached the
// store because its input was not a well-formed entity. Distinct from
// storage.StorageError: nothing was attempted against the table.
var ErrInvalidStudent = errors.New("invalid student")

// Repository translates store operations into the domain vocabulary.
type Repository struct {
	storage  storage.Storage
	validate *validator.Validate
}

// New wires a Repository to the given storage backend.
//
// The validator instance is created once here, not per call — it caches
// parsed struct tags internally, so reusing it is the intended pattern.
func New(s storage.Storage) *Repository {
	return &Repository{
		storage:  s,
		validate: validator.New(),
	}
}

// GetAllStudents returns a one-off snapshot, newest record first.
func (r *Repository) GetAllStudents() ([]types.Student, error) {
	return r.storage.GetAllStudents()
}

// ObserveAll returns the live snapshot stream. Cancel the subscription
// when done with it.
func (r *Repository) ObserveAll() *storage.Subscription {
	return r.storage.ObserveAll()
}

// Insert persists a student and returns the ID it ended up under.
// A zero ID asks the store to assign a fresh one; a non-zero ID upserts
// (replaces any existing record with that ID).
func (r *Repository) Insert(student types.Student) (int64, error) {
	if err := r.checkEntity(student); err != nil {
		return 0, err
	}
	return r.storage.InsertStudent(student)
}

// Update overwrites all fields of the record carrying student.ID.
// The ID must be set — updating "no record in particular" is a caller
// bug we can catch cheaply here. An ID that is set but no longer exists
// is the store's documented silent no-op.
func (r *Repository) Update(student types.Student) error {
	if student.ID == 0 {
		return fmt.Errorf("%w: update requires an id", ErrInvalidStudent)
	}
	if err := r.checkEntity(student); err != nil {
		return err
	}
	return r.storage.UpdateStudent(student)
}

// Delete removes the record carrying student.ID. Only the ID matters;
// no-op if it does not exist.
func (r *Repository) Delete(student types.Student) error {
	if student.ID == 0 {
		return fmt.Errorf("%w: delete requires an id", ErrInvalidStudent)
	}
	return r.storage.DeleteStudent(student)
}

// checkEntity runs the validate:"..." tags on the struct and folds any
// failures into a single ErrInvalidStudent with a readable message.
func (r *Repository) checkEntity(student types.Student) error {
	err := r.validate.Struct(student)
	if err == nil {
		return nil
	}

	// validator returns one FieldError per failing field; type-assert so
	// we can name each field in the message.
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidStudent, err)
	}
	return fmt.Errorf("%w: %s", ErrInvalidStudent, validationMessage(verrs))
}

// validationMessage converts validator field errors into one plain
// English sentence, e.g. "field Name is required".
func validationMessage(errs validator.ValidationErrors) string {
	var msgs []string
	for _, e := range errs {
		switch e.ActualTag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("field %s is required", e.Field()))
		default:
			msgs = append(msgs, fmt.Sprintf("field %s is invalid", e.Field()))
		}
	}
	return strings.Join(msgs, ", ")
}
