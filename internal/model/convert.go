package model

import (
	"github.com/shopspring/decimal"

	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
)

func nullDecimal(f *float64) decimal.NullDecimal {
	if f == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(decimal.NewFromFloat(*f))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// PricingProduct maps the stored product onto the engine's inputs.
func (p *Product) PricingProduct() pricing.Product {
	return pricing.Product{
		Cost:               decimal.NewFromFloat(p.CostPrice),
		Price:              decimal.NewFromFloat(p.Price),
		ProfitMargin:       nullDecimal(p.ProfitMargin),
		TaxRate:            decimal.NewFromFloat(p.TaxRate),
		DiscountPercentage: decimal.NewFromFloat(p.DiscountPercentage),
		IsDiscountActive:   p.IsDiscountActive,
		ExchangeRateID:     deref(p.ExchangeRateID),
		UnitType:           p.UnitType,
	}
}

// Entered returns the unit type and the number the user typed. Older rows
// without them have both recovered from the factor.
func (u *ProductUnit) Entered() (pricing.UnitType, decimal.Decimal) {
	if u.UserInput != nil && *u.UserInput > 0 {
		if t, err := pricing.ParseUnitType(u.Type); err == nil && u.Type != "" {
			return t, decimal.NewFromFloat(*u.UserInput)
		}
	}
	factor := decimal.NewFromFloat(u.ConversionFactor)
	t := pricing.InferUnitType(factor)
	return t, pricing.UserInputFromFactor(factor, t)
}

// PricingUnit maps a stored unit onto the engine's inputs. The factor is
// rebuilt from what the user typed when that is known, so a rounded stored
// factor does not leak into prices.
func (u *ProductUnit) PricingUnit() pricing.Unit {
	unitType, userInput := u.Entered()
	factor, err := pricing.NormalizeConversionFactor(userInput, unitType)
	if err != nil {
		factor = decimal.NewFromFloat(u.ConversionFactor)
	}
	return pricing.Unit{
		Name:               u.UnitName,
		Type:               unitType,
		ConversionFactor:   factor,
		PriceUSD:           nullDecimal(u.PriceUSD),
		CostPrice:          nullDecimal(u.CostPrice),
		ProfitMargin:       nullDecimal(u.ProfitMargin),
		DiscountPercentage: decimal.NewFromFloat(u.DiscountPercentage),
		IsDiscountActive:   u.IsDiscountActive,
		ExchangeRateID:     deref(u.ExchangeRateID),
	}
}

func (p *Product) FormState(lastEdit pricing.Field) pricing.FormState {
	units := make([]pricing.Unit, len(p.Units))
	for i := range p.Units {
		units[i] = p.Units[i].PricingUnit()
	}
	return pricing.FormState{Product: p.PricingProduct(), Units: units, LastEdit: lastEdit}
}

func (r *ExchangeRate) PricingRate() pricing.ExchangeRate {
	return pricing.ExchangeRate{
		ID:           r.ID,
		Name:         r.Name,
		CurrencyCode: r.CurrencyCode,
		Rate:         decimal.NewFromFloat(r.Rate),
		IsActive:     r.IsActive,
		IsDefault:    r.IsDefault,
	}
}
