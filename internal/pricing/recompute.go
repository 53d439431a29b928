package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Field names the form input that changed last.
type Field string

const (
	FieldCost     Field = "cost"
	FieldMargin   Field = "margin"
	FieldTax      Field = "tax"
	FieldPrice    Field = "price"
	FieldDiscount Field = "discount"
	FieldUnit     Field = "unit"
)

// drivesPrice reports whether an edit to f re-derives the price from cost.
func (f Field) drivesPrice() bool {
	return f == FieldCost || f == FieldMargin || f == FieldTax
}

// FormState is a product with its units as currently entered.
type FormState struct {
	Product  Product
	Units    []Unit
	LastEdit Field
}

type Derived struct {
	PriceBeforeTax decimal.Decimal
	Price          decimal.Decimal
	// PriceDerived is set when Price was computed from cost, margin and tax
	// rather than taken as entered.
	PriceDerived           bool
	ImpliedMargin          decimal.NullDecimal
	DiscountedPrice        decimal.Decimal
	Rate                   ExchangeRate
	SecondaryPrice         decimal.Decimal
	SecondaryDiscountPrice decimal.Decimal
	Units                  []DerivedUnit
}

type DerivedUnit struct {
	Name                   string
	Type                   UnitType
	ConversionFactor       decimal.Decimal
	UserInput              decimal.Decimal
	Price                  decimal.Decimal
	PriceOverridden        bool
	DiscountedPrice        decimal.Decimal
	Rate                   ExchangeRate
	SecondaryPrice         decimal.Decimal
	SecondaryDiscountPrice decimal.Decimal
	ImpliedMargin          decimal.NullDecimal
	Savings                *Savings
}

// Recompute evaluates every derived value of a form in one pass.
//
// When the last edit was to cost, margin or tax and both a positive cost
// and a margin are present, the price is re-derived and any manual price is
// discarded. Otherwise the entered price is kept.
func Recompute(form FormState, rates RateTable) (Derived, error) {
	p := form.Product
	var out Derived

	margin := p.ProfitMargin
	if form.LastEdit.drivesPrice() && p.Cost.IsPositive() && margin.Valid {
		out.PriceBeforeTax = PriceBeforeTax(p.Cost, margin.Decimal)
		p.Price = out.PriceBeforeTax.Mul(percentFactor(p.TaxRate))
		out.PriceDerived = true
	} else {
		out.PriceBeforeTax = untax(p.Price, p.TaxRate)
	}
	out.Price = p.Price

	if !margin.Valid {
		if m, ok := ImpliedMargin(p.Price, p.Cost); ok {
			out.ImpliedMargin = decimal.NewNullDecimal(m)
		}
	}

	out.DiscountedPrice = ApplyDiscount(p.Price, p.DiscountPercentage, p.IsDiscountActive)

	rate, err := ResolveRate(p, nil, rates)
	if err != nil {
		return Derived{}, err
	}
	out.Rate = rate
	out.SecondaryPrice = ToSecondaryCurrency(out.Price, rate)
	out.SecondaryDiscountPrice = ToSecondaryCurrency(out.DiscountedPrice, rate)

	out.Units = make([]DerivedUnit, 0, len(form.Units))
	for i := range form.Units {
		du, err := recomputeUnit(p, form.Units[i], rates)
		if err != nil {
			return Derived{}, fmt.Errorf("unit %d (%s): %w", i, form.Units[i].Name, err)
		}
		out.Units = append(out.Units, du)
	}
	return out, nil
}

func recomputeUnit(p Product, u Unit, rates RateTable) (DerivedUnit, error) {
	if !u.ConversionFactor.IsPositive() {
		err := ErrInvalidFactor
		if u.Type == UnitFraction {
			err = ErrInvalidDivisor
		}
		return DerivedUnit{}, &ValidationError{Field: "conversion_factor", Err: err}
	}
	unitType := u.Type
	if unitType == "" {
		unitType = InferUnitType(u.ConversionFactor)
	}

	du := DerivedUnit{
		Name:             u.Name,
		Type:             unitType,
		ConversionFactor: u.ConversionFactor,
		UserInput:        UserInputFromFactor(u.ConversionFactor, unitType),
		Price:            ComputeUnitPrice(p, u),
		PriceOverridden:  u.PriceUSD.Valid && u.PriceUSD.Decimal.IsPositive(),
	}
	du.DiscountedPrice = ApplyDiscount(du.Price, u.DiscountPercentage, u.IsDiscountActive)

	rate, err := ResolveRate(p, &u, rates)
	if err != nil {
		return DerivedUnit{}, err
	}
	du.Rate = rate
	du.SecondaryPrice = ToSecondaryCurrency(du.Price, rate)
	du.SecondaryDiscountPrice = ToSecondaryCurrency(du.DiscountedPrice, rate)

	if !u.ProfitMargin.Valid && u.CostPrice.Valid {
		if m, ok := ImpliedMargin(du.Price, u.CostPrice.Decimal); ok {
			du.ImpliedMargin = decimal.NewNullDecimal(m)
		}
	}
	if unitType == UnitPacking {
		du.Savings = ComputeVolumeSavings(du.Price, p.Price, u.ConversionFactor)
	}
	return du, nil
}

// untax strips tax from a tax-inclusive price.
func untax(price, taxPercent decimal.Decimal) decimal.Decimal {
	f := percentFactor(taxPercent)
	if !f.IsPositive() {
		return price
	}
	return price.Div(f)
}

// Display returns a copy rounded for presentation: currency to two places,
// percentages to two places. Conversion factors are left untouched.
func (d Derived) Display() Derived {
	out := d
	out.PriceBeforeTax = RoundCurrency(d.PriceBeforeTax)
	out.Price = RoundCurrency(d.Price)
	out.DiscountedPrice = RoundCurrency(d.DiscountedPrice)
	out.SecondaryPrice = RoundCurrency(d.SecondaryPrice)
	out.SecondaryDiscountPrice = RoundCurrency(d.SecondaryDiscountPrice)
	out.ImpliedMargin = roundNull(d.ImpliedMargin)

	out.Units = make([]DerivedUnit, len(d.Units))
	for i, u := range d.Units {
		u.UserInput = u.UserInput.Round(6)
		u.Price = RoundCurrency(u.Price)
		u.DiscountedPrice = RoundCurrency(u.DiscountedPrice)
		u.SecondaryPrice = RoundCurrency(u.SecondaryPrice)
		u.SecondaryDiscountPrice = RoundCurrency(u.SecondaryDiscountPrice)
		u.ImpliedMargin = roundNull(u.ImpliedMargin)
		if u.Savings != nil {
			u.Savings = &Savings{
				Amount:  RoundCurrency(u.Savings.Amount),
				Percent: RoundPercent(u.Savings.Percent),
			}
		}
		out.Units[i] = u
	}
	return out
}

func roundNull(n decimal.NullDecimal) decimal.NullDecimal {
	if !n.Valid {
		return n
	}
	return decimal.NewNullDecimal(RoundPercent(n.Decimal))
}
