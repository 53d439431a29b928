package apperr

import (
	"errors"

	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
)

type Kind int

const (
	Internal Kind = iota
	NotFound
	Conflict
	Invalid
	Precondition
	Unauthenticated
)

// Error is a domain error with a kind the transport can map to a status.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// KindOf classifies err. Engine validation and configuration errors are
// recognised without being wrapped in an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	if pricing.IsValidationError(err) {
		return Invalid
	}
	if pricing.IsConfigurationError(err) {
		return Precondition
	}
	return Internal
}
