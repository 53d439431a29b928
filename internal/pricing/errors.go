package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrNoExchangeRate  = errors.New("no exchange rate configured")
	ErrInvalidDivisor  = errors.New("divisor must be > 0")
	ErrInvalidFactor   = errors.New("conversion factor must be > 0")
	ErrInvalidUnitType = errors.New("unit type must be packing or fraction")
)

// ConfigurationError reports merchant configuration that makes a price
// impossible to compute, such as a missing default exchange rate.
type ConfigurationError struct {
	Context string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Context == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Context, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ValidationError reports a rejected input value.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
