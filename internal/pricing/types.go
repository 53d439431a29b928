package pricing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

const (
	CurrencyPlaces = 2
	PercentPlaces  = 2
	// StoragePlaces is the precision prices are persisted with. Items sold
	// per gram need more than cents.
	StoragePlaces = 4
)

// ExchangeRate converts an anchor-currency amount into CurrencyCode.
type ExchangeRate struct {
	ID           string
	Name         string
	CurrencyCode string
	Rate         decimal.Decimal
	IsActive     bool
	IsDefault    bool
	// Fallback marks the synthetic 1:1 rate returned when nothing resolves
	// and RateTable.AllowIdentityFallback is set.
	Fallback bool
}

// IdentityRate is the 1:1 rate used by the legacy fallback.
func IdentityRate() ExchangeRate {
	return ExchangeRate{Name: "identity", Rate: decimal.NewFromInt(1), Fallback: true}
}

// RateTable is the set of rates a price may be converted with.
type RateTable struct {
	Rates                 []ExchangeRate
	AllowIdentityFallback bool
}

func (t RateTable) Lookup(id string) (ExchangeRate, bool) {
	if id == "" {
		return ExchangeRate{}, false
	}
	for _, r := range t.Rates {
		if r.ID == id {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

// Default returns the first rate flagged as default.
func (t RateTable) Default() (ExchangeRate, bool) {
	for _, r := range t.Rates {
		if r.IsDefault {
			return r, true
		}
	}
	return ExchangeRate{}, false
}

// Product holds the base-unit pricing inputs. An empty ExchangeRateID means
// the merchant default applies.
type Product struct {
	Cost               decimal.Decimal
	Price              decimal.Decimal
	ProfitMargin       decimal.NullDecimal
	TaxRate            decimal.Decimal
	DiscountPercentage decimal.Decimal
	IsDiscountActive   bool
	ExchangeRateID     string
	UnitType           string
}

// Unit is an alternate unit of sale. ConversionFactor is always the number
// of base units one of this unit represents.
type Unit struct {
	Name               string
	Type               UnitType
	ConversionFactor   decimal.Decimal
	PriceUSD           decimal.NullDecimal
	CostPrice          decimal.NullDecimal
	ProfitMargin       decimal.NullDecimal
	DiscountPercentage decimal.Decimal
	IsDiscountActive   bool
	ExchangeRateID     string
}

type Savings struct {
	Amount  decimal.Decimal
	Percent decimal.Decimal
}
