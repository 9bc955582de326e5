// Package service composes repositories, storage and the broker into the
// operations exposed over HTTP.  Every service logs failed dependency
// calls with context before returning the (wrapped) error.
package service

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/rs/zerolog"

	"github.com/iliyamo/event-platform/internal/calendar"
	"github.com/iliyamo/event-platform/internal/repository"
)

var (
	ErrInvalidRange       = errors.New("end must be after start")
	ErrRangeTooLarge      = errors.New("range too large")
	ErrTooFarAhead        = errors.New("too far in the future")
	ErrBookingConflict    = errors.New("booking conflict")
	ErrCapacityExceeded   = errors.New("not enough tickets left")
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrUnsupportedMedia   = errors.New("unsupported media type")
	ErrFileTooLarge       = errors.New("file too large")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEventNotOnSale     = errors.New("event is not on sale")
	ErrIncomplete         = errors.New("application incomplete")
)

// ConflictError lists what a rejected booking overlapped with.
type ConflictError struct {
	Conflicts []calendar.Entry
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("booking conflict with %d entries", len(e.Conflicts))
}

func (e *ConflictError) Unwrap() error { return ErrBookingConflict }

// CapacityError reports how many tickets are still available.
type CapacityError struct {
	Remaining uint32
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("only %d tickets left", e.Remaining)
}

func (e *CapacityError) Unwrap() error { return ErrCapacityExceeded }

// expected reports errors that are part of normal operation and need no
// error-level log line.
func expected(err error) bool {
	var verr validation.Errors
	switch {
	case errors.As(err, &verr),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrForbidden),
		errors.Is(err, repository.ErrConflict),
		errors.Is(err, repository.ErrEmailExists),
		errors.Is(err, repository.ErrNoChange),
		errors.Is(err, ErrBookingConflict),
		errors.Is(err, ErrCapacityExceeded),
		errors.Is(err, ErrEventNotOnSale),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrIncomplete):
		return true
	}
	return false
}

// fail logs err under op unless it is expected and returns it wrapped.
func fail(log zerolog.Logger, err error, op string) error {
	if !expected(err) {
		log.Error().Err(err).Str("op", op).Msg("operation failed")
	}
	return fmt.Errorf("%s: %w", op, err)
}
