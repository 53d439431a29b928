package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseForm(edit Field) FormState {
	return FormState{
		Product: Product{
			Cost:         d("10.00"),
			Price:        d("20.00"),
			ProfitMargin: decimal.NewNullDecimal(d("30")),
			TaxRate:      d("16"),
		},
		LastEdit: edit,
	}
}

func TestRecomputeDerivesPriceOnCostEdits(t *testing.T) {
	for _, edit := range []Field{FieldCost, FieldMargin, FieldTax} {
		t.Run(string(edit), func(t *testing.T) {
			out, err := Recompute(baseForm(edit), testRates())
			require.NoError(t, err)
			assert.True(t, out.PriceDerived)
			assertDecimal(t, "13", out.PriceBeforeTax)
			assertDecimal(t, "15.08", out.Price)
			assert.False(t, out.ImpliedMargin.Valid)
		})
	}
}

func TestRecomputeKeepsManualPrice(t *testing.T) {
	for _, edit := range []Field{FieldPrice, FieldDiscount, FieldUnit, ""} {
		out, err := Recompute(baseForm(edit), testRates())
		require.NoError(t, err)
		assert.False(t, out.PriceDerived, string(edit))
		assertDecimal(t, "20", out.Price)
	}
}

func TestRecomputeImpliedMarginOnlyWithoutExplicitMargin(t *testing.T) {
	form := baseForm(FieldCost)
	form.Product.ProfitMargin = decimal.NullDecimal{}

	out, err := Recompute(form, testRates())
	require.NoError(t, err)
	assert.False(t, out.PriceDerived)
	assertDecimal(t, "20", out.Price)
	require.True(t, out.ImpliedMargin.Valid)
	assertDecimal(t, "100", out.ImpliedMargin.Decimal)
}

func TestRecomputeDiscountAndConversion(t *testing.T) {
	form := baseForm(FieldDiscount)
	form.Product.DiscountPercentage = d("10")
	form.Product.IsDiscountActive = true

	out, err := Recompute(form, testRates())
	require.NoError(t, err)
	assertDecimal(t, "18", out.DiscountedPrice)
	assert.Equal(t, "bcv", out.Rate.ID)
	assertDecimal(t, "730", out.SecondaryPrice)
	assertDecimal(t, "657", out.SecondaryDiscountPrice)
}

func TestRecomputeUnits(t *testing.T) {
	grams, err := NormalizeConversionFactor(d("1000"), UnitFraction)
	require.NoError(t, err)

	form := FormState{
		Product: Product{Cost: d("1.5"), Price: d("2.00"), TaxRate: d("0")},
		Units: []Unit{
			{Name: "Case", Type: UnitPacking, ConversionFactor: d("12"), PriceUSD: decimal.NewNullDecimal(d("20.00")), ExchangeRateID: "cop"},
			{Name: "Pack", Type: UnitPacking, ConversionFactor: d("6")},
			{Name: "Gram", ConversionFactor: grams, CostPrice: decimal.NewNullDecimal(d("0.001"))},
		},
		LastEdit: FieldUnit,
	}

	out, err := Recompute(form, testRates())
	require.NoError(t, err)
	require.Len(t, out.Units, 3)

	caseUnit := out.Units[0]
	assert.True(t, caseUnit.PriceOverridden)
	assertDecimal(t, "20", caseUnit.Price)
	assert.Equal(t, "cop", caseUnit.Rate.ID)
	assertDecimal(t, "78000", caseUnit.SecondaryPrice)
	require.NotNil(t, caseUnit.Savings)
	assertDecimal(t, "4", caseUnit.Savings.Amount)

	pack := out.Units[1]
	assert.False(t, pack.PriceOverridden)
	assertDecimal(t, "12", pack.Price)
	assert.Nil(t, pack.Savings)
	assert.Equal(t, "bcv", pack.Rate.ID)

	gram := out.Units[2]
	assert.Equal(t, UnitFraction, gram.Type)
	assertDecimal(t, "0.002", gram.Price)
	assertDecimal(t, "1000", gram.UserInput)
	assert.Nil(t, gram.Savings)
	require.True(t, gram.ImpliedMargin.Valid)
	assertDecimal(t, "100", gram.ImpliedMargin.Decimal)
}

func TestRecomputeRejectsZeroFactor(t *testing.T) {
	form := baseForm(FieldUnit)
	form.Units = []Unit{{Name: "Gram", Type: UnitFraction}}

	_, err := Recompute(form, testRates())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidDivisor))
	assert.True(t, IsValidationError(err))
}

func TestRecomputeWithoutRates(t *testing.T) {
	_, err := Recompute(baseForm(FieldCost), RateTable{})
	assert.True(t, errors.Is(err, ErrNoExchangeRate))

	out, err := Recompute(baseForm(FieldCost), RateTable{AllowIdentityFallback: true})
	require.NoError(t, err)
	assert.True(t, out.Rate.Fallback)
	assertDecimal(t, "15.08", out.SecondaryPrice)
}

func TestDisplayRounds(t *testing.T) {
	form := FormState{
		Product: Product{Cost: d("0.0042"), Price: d("0.00663"), TaxRate: d("0")},
		Units: []Unit{
			{Name: "Case", Type: UnitPacking, ConversionFactor: d("12"), PriceUSD: decimal.NewNullDecimal(d("0.07"))},
			{Name: "Third", Type: UnitFraction, ConversionFactor: decimal.NewFromInt(1).Div(d("3"))},
		},
	}
	out, err := Recompute(form, testRates())
	require.NoError(t, err)

	assertDecimal(t, "0.00663", out.Price)
	shown := out.Display()
	assertDecimal(t, "0.01", shown.Price)
	assertDecimal(t, "0.24", shown.SecondaryPrice)
	assertDecimal(t, "57.86", shown.ImpliedMargin.Decimal)
	require.NotNil(t, shown.Units[0].Savings)
	assertDecimal(t, "0.01", shown.Units[0].Savings.Amount)
	assertDecimal(t, "12.02", shown.Units[0].Savings.Percent)
	assertDecimal(t, "3", shown.Units[1].UserInput)

	// Display must not touch the unrounded values.
	assertDecimal(t, "0.00663", out.Price)
}
