package pricing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Form values are bounded before they reach the engine. Rounding a decimal
// with a huge exponent allocates a power of ten of that size.
const (
	maxIntegerDigits = 15
	maxScale         = 12
)

// Amount coerces a loosely typed form value to a decimal. Anything that is
// not a finite number, or falls outside ±1e15 with at most twelve decimal
// places of meaningful precision, becomes zero.
func Amount(v interface{}) decimal.Decimal {
	switch x := v.(type) {
	case nil:
		return decimal.Zero
	case decimal.Decimal:
		return x
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero
		}
		return *x
	case float64:
		return fromFloat(x)
	case *float64:
		if x == nil {
			return decimal.Zero
		}
		return fromFloat(*x)
	case float32:
		return fromFloat(float64(x))
	case int:
		return fromInt(int64(x))
	case int32:
		return fromInt(int64(x))
	case int64:
		return fromInt(x)
	case json.Number:
		return fromString(x.String())
	case string:
		return fromString(x)
	}
	return decimal.Zero
}

// OptionalAmount is Amount for fields where absence matters. nil, empty
// strings and unparsable values are absent.
func OptionalAmount(v interface{}) decimal.NullDecimal {
	switch x := v.(type) {
	case nil:
		return decimal.NullDecimal{}
	case *float64:
		if x == nil || math.IsNaN(*x) || math.IsInf(*x, 0) {
			return decimal.NullDecimal{}
		}
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.NullDecimal{}
		}
	case string:
		if _, ok := parseBounded(x); !ok {
			return decimal.NullDecimal{}
		}
	case json.Number:
		if _, ok := parseBounded(x.String()); !ok {
			return decimal.NullDecimal{}
		}
	}
	return decimal.NewNullDecimal(Amount(v))
}

func fromFloat(f float64) decimal.Decimal {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero
	}
	d, ok := bounded(decimal.NewFromFloat(f))
	if !ok {
		return decimal.Zero
	}
	return d
}

func fromInt(i int64) decimal.Decimal {
	d, ok := bounded(decimal.NewFromInt(i))
	if !ok {
		return decimal.Zero
	}
	return d
}

func fromString(s string) decimal.Decimal {
	d, _ := parseBounded(s)
	return d
}

func parseBounded(s string) (decimal.Decimal, bool) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, false
	}
	return bounded(d)
}

// bounded checks magnitude from the exponent and digit count alone so that
// no rescale happens on hostile input. Values below the scale limit are
// rounded to it; values of 1e15 or more are rejected.
func bounded(d decimal.Decimal) (decimal.Decimal, bool) {
	if d.IsZero() {
		return decimal.Zero, true
	}
	exp := int64(d.Exponent())
	digits := int64(d.NumDigits())
	if exp+digits > maxIntegerDigits {
		return decimal.Zero, false
	}
	if exp+digits < -maxScale {
		// Every significant digit sits past the scale limit.
		return decimal.Zero, true
	}
	if exp < -maxScale {
		d = d.Round(maxScale)
	}
	return d, true
}
