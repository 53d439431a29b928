package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

type UnitType string

const (
	// UnitPacking is a whole multiple of the base unit, e.g. a case of 12.
	UnitPacking UnitType = "packing"
	// UnitFraction is a subdivision of the base unit, e.g. grams of a kilogram.
	UnitFraction UnitType = "fraction"
)

// ParseUnitType accepts "packing" or "fraction", case-insensitively. Empty
// means packing.
func ParseUnitType(s string) (UnitType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(UnitPacking):
		return UnitPacking, nil
	case string(UnitFraction):
		return UnitFraction, nil
	}
	return "", &ValidationError{Field: "type", Err: ErrInvalidUnitType}
}

// NormalizeConversionFactor turns the number the user typed into the
// multiplier into base units: N for a packing of N, 1/N for a fraction
// of 1/N. Non-positive input yields zero and a ValidationError.
func NormalizeConversionFactor(userInput decimal.Decimal, unitType UnitType) (decimal.Decimal, error) {
	switch unitType {
	case UnitPacking:
		if !userInput.IsPositive() {
			return decimal.Zero, &ValidationError{Field: "conversion_factor", Err: ErrInvalidFactor}
		}
		return userInput, nil
	case UnitFraction:
		if !userInput.IsPositive() {
			return decimal.Zero, &ValidationError{Field: "conversion_factor", Err: ErrInvalidDivisor}
		}
		return decimal.NewFromInt(1).Div(userInput), nil
	}
	return decimal.Zero, &ValidationError{Field: "type", Err: ErrInvalidUnitType}
}

// UserInputFromFactor inverts NormalizeConversionFactor.
func UserInputFromFactor(factor decimal.Decimal, unitType UnitType) decimal.Decimal {
	if unitType != UnitFraction {
		return factor
	}
	if !factor.IsPositive() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(factor)
}

// InferUnitType recovers the unit type from a stored factor.
func InferUnitType(factor decimal.Decimal) UnitType {
	if factor.IsPositive() && factor.LessThan(decimal.NewFromInt(1)) {
		return UnitFraction
	}
	return UnitPacking
}
