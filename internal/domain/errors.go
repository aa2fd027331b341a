package domain

import (
	"context"
	"errors"
)

var (
	ErrInvalidInput         = errors.New("invalid input")
	ErrInvalidEnvelope      = errors.New("invalid envelope")
	ErrUnsupportedEventKind = errors.New("unsupported event kind")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = errors.New("forbidden")
	ErrNotFound             = errors.New("resource not found")
	ErrConflict             = errors.New("conflict")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrCacheUnavailable     = errors.New("cache unavailable")
	ErrBrokerUnavailable    = errors.New("broker unavailable")
)

// FailureClass drives the retry decision for a failed consumer invocation.
type FailureClass string

const (
	// FailureClassValidation: structurally invalid envelope. Logged and
	// dropped; redelivery cannot fix it.
	FailureClassValidation FailureClass = "validation"
	// FailureClassTransient: retried with exponential backoff.
	FailureClassTransient FailureClass = "transient"
	// FailureClassPermanent: referenced entity is gone. Routed straight to
	// the dead-letter handler, never retried.
	FailureClassPermanent FailureClass = "permanent"
)

// Classify maps a consumer error onto the retry taxonomy. Unknown errors are
// treated as transient so that nothing is dropped on an unrecognized blip.
func Classify(err error) FailureClass {
	switch {
	case errors.Is(err, ErrInvalidEnvelope), errors.Is(err, ErrUnsupportedEventKind), errors.Is(err, ErrInvalidInput):
		return FailureClassValidation
	case errors.Is(err, ErrNotFound):
		return FailureClassPermanent
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrStorageUnavailable), errors.Is(err, ErrCacheUnavailable):
		return FailureClassTransient
	default:
		return FailureClassTransient
	}
}
