package repository

import (
	"errors"

	"github.com/lib/pq"
)

// pq error code for unique_violation.
const uniqueViolationCode = "23505"

// ErrDuplicate is returned when an insert or update hits a unique
// constraint. Services translate it into a domain conflict, or retry
// in the case of join-code generation.
var ErrDuplicate = errors.New("duplicate row")

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == uniqueViolationCode
	}
	return false
}
