package services

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Domain error taxonomy. Handlers translate these to HTTP status codes; no
// raw persistence error escapes the services package for expected failures.
var (
	// ErrNotFound is returned for an unknown transaction, post, or runner.
	ErrNotFound = errors.New("not found")

	// ErrForbidden is returned when the actor's role or ownership does not
	// permit the operation.
	ErrForbidden = errors.New("forbidden")

	// ErrConflict is returned for duplicate unresolved submissions and for
	// lock contention on a row already being transitioned.
	ErrConflict = errors.New("conflict")

	// ErrInvalidStateTransition is returned when a status change is not in
	// the transition graph, including any transition out of a terminal state.
	ErrInvalidStateTransition = errors.New("invalid state transition")

	// ErrInsufficientBalance is returned when a debit would drive the runner
	// balance negative, or a settlement exceeds the outstanding amount.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrNoOutstandingBalance is returned when a runner with nothing owed
	// attempts a balance payment.
	ErrNoOutstandingBalance = errors.New("no outstanding balance to settle")

	// ErrAlreadyApplied is returned when a transaction has already been
	// credited or debited against a runner balance.
	ErrAlreadyApplied = errors.New("transaction already applied to balance")
)

const (
	pgUniqueViolation  = "23505"
	pgLockNotAvailable = "55P03"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable
}
