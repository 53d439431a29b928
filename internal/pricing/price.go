package pricing

import "github.com/shopspring/decimal"

func percentFactor(p decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(p.Div(hundred))
}

// PriceBeforeTax is cost marked up by margin percent.
func PriceBeforeTax(cost, marginPercent decimal.Decimal) decimal.Decimal {
	return cost.Mul(percentFactor(marginPercent))
}

// DeriveSalePrice is cost*(1+margin/100)*(1+tax/100).
func DeriveSalePrice(cost, marginPercent, taxPercent decimal.Decimal) decimal.Decimal {
	return PriceBeforeTax(cost, marginPercent).Mul(percentFactor(taxPercent))
}

// ImpliedMargin is the markup a price represents over cost. It is undefined
// for a non-positive cost.
func ImpliedMargin(price, cost decimal.Decimal) (decimal.Decimal, bool) {
	if !cost.IsPositive() {
		return decimal.Zero, false
	}
	return price.Sub(cost).Div(cost).Mul(hundred), true
}

// ApplyDiscount takes percent off price when the promotion is active and
// positive; otherwise price is returned unchanged.
func ApplyDiscount(price, percent decimal.Decimal, active bool) decimal.Decimal {
	if !active || !percent.IsPositive() {
		return price
	}
	return price.Mul(decimal.NewFromInt(1).Sub(percent.Div(hundred)))
}

// ComputeUnitPrice returns the unit's own price when it has a positive one,
// else the base price scaled by the conversion factor.
func ComputeUnitPrice(product Product, unit Unit) decimal.Decimal {
	if unit.PriceUSD.Valid && unit.PriceUSD.Decimal.IsPositive() {
		return unit.PriceUSD.Decimal
	}
	return product.Price.Mul(unit.ConversionFactor)
}

// ComputeVolumeSavings compares a packing unit's price with buying
// conversionFactor base units separately. nil means no savings.
func ComputeVolumeSavings(packingUnitPrice, basePrice, conversionFactor decimal.Decimal) *Savings {
	separately := basePrice.Mul(conversionFactor)
	if !separately.IsPositive() {
		return nil
	}
	savings := separately.Sub(packingUnitPrice)
	if !savings.IsPositive() {
		return nil
	}
	return &Savings{
		Amount:  savings,
		Percent: savings.Div(separately).Mul(hundred),
	}
}

func RoundCurrency(d decimal.Decimal) decimal.Decimal { return d.Round(CurrencyPlaces) }

func RoundPercent(d decimal.Decimal) decimal.Decimal { return d.Round(PercentPlaces) }

func RoundStorage(d decimal.Decimal) decimal.Decimal { return d.Round(StoragePlaces) }
