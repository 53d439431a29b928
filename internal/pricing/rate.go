package pricing

import "github.com/shopspring/decimal"

// ResolveRate picks the rate for a product, or for one of its units when
// unit is non-nil. The unit override wins over the product override, which
// wins over the default. Overrides that are not in rates fall through.
func ResolveRate(product Product, unit *Unit, rates RateTable) (ExchangeRate, error) {
	if unit != nil {
		if r, ok := rates.Lookup(unit.ExchangeRateID); ok {
			return r, nil
		}
	}
	if r, ok := rates.Lookup(product.ExchangeRateID); ok {
		return r, nil
	}
	if r, ok := rates.Default(); ok {
		return r, nil
	}
	if rates.AllowIdentityFallback {
		return IdentityRate(), nil
	}
	return ExchangeRate{}, &ConfigurationError{Context: "resolve exchange rate", Err: ErrNoExchangeRate}
}

// ToSecondaryCurrency converts an anchor-currency amount with rate.
func ToSecondaryCurrency(priceAnchor decimal.Decimal, rate ExchangeRate) decimal.Decimal {
	return priceAnchor.Mul(rate.Rate)
}
