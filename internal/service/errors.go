package service

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// Domain failure taxonomy. Handlers map these to transport statuses;
// services never carry HTTP codes themselves.
var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrRateLimited     = errors.New("rate limit exceeded")
	ErrMisconfigured   = errors.New("auth config invalid")
)

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
