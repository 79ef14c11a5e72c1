package repository

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// DuplicateError reports a unique-constraint violation on a named field.
// Its message is the exact user-facing text for uniqueness conflicts.
type DuplicateError struct {
	Field string
}

func (e *DuplicateError) Error() string {
	return e.Field + " already in use"
}

// translateUnique maps a postgres unique violation (23505) onto a
// DuplicateError. The constraint is the final arbiter for uniqueness: the
// pre-checks in the handlers only exist for friendlier ordering of errors,
// a concurrent insert still lands here.
func translateUnique(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return err
	}
	switch {
	case strings.Contains(pqErr.Constraint, "username"):
		return &DuplicateError{Field: "Username"}
	case strings.Contains(pqErr.Constraint, "email"):
		return &DuplicateError{Field: "Email"}
	case strings.Contains(pqErr.Constraint, "phone"):
		return &DuplicateError{Field: "Phone number"}
	default:
		return &DuplicateError{Field: "Value"}
	}
}
