// Package query derives the visible student list from two inputs: the
// latest full snapshot from the store's live stream, and the latest
// search term typed by the user.
//
// It is split in two layers:
//
//   - Apply / Matches — the pure combinator. No state, no I/O: the same
//     (snapshot, term) pair always yields the same filtered list.
//   - Engine          — the live wrapper that re-runs Apply whenever
//     either input changes and publishes the result downstream.
package query

import (
	"strings"

	"github.com/aanand-mishra/student-register/internal/types"
)

// Matches reports whether the search term selects the student.
// The match is a case-insensitive substring test against name, course,
// and registration number — any one hit selects the record.
//
// An empty (or all-whitespace) term matches everything: "no search" and
// "searching for nothing" behave the same, showing the full list.
func Matches(student types.Student, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}

	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(student.Name), term) ||
		strings.Contains(strings.ToLower(student.Course), term) ||
		strings.Contains(strings.ToLower(student.RegNumber), term)
}

// Apply filters the snapshot by the term.
//
// The filter is stable: matching records keep the relative order they
// had in the snapshot (the store already sorted it, newest first — we
// never re-sort). With an empty term the snapshot itself is returned
// untouched, not a copy; snapshots are read-only by contract.
func Apply(snapshot []types.Student, term string) []types.Student {
	if strings.TrimSpace(term) == "" {
		return snapshot
	}

	matched := make([]types.Student, 0, len(snapshot))
	for _, student := range snapshot {
		if Matches(student, term) {
			matched = append(matched, student)
		}
	}
	return matched
}
