package dto

import "github.com/shopspring/decimal"

// UnitInput is an alternate unit as entered: UserInput is read according
// to Type ("packing" or "fraction"). ID names a saved unit being edited.
type UnitInput struct {
	ID                 string
	UnitName           string
	Type               string
	UserInput          decimal.Decimal
	Barcode            string
	PriceUSD           decimal.NullDecimal
	CostPrice          decimal.NullDecimal
	ProfitMargin       decimal.NullDecimal
	DiscountPercentage decimal.Decimal
	IsDiscountActive   bool
	ExchangeRateID     string
}

// PricingInput carries every field that feeds the price of a product.
type PricingInput struct {
	MerchantID         string
	CostPrice          decimal.Decimal
	Price              decimal.Decimal
	ProfitMargin       decimal.NullDecimal
	TaxRate            decimal.NullDecimal // merchant default when not set
	DiscountPercentage decimal.Decimal
	IsDiscountActive   bool
	ExchangeRateID     string
	UnitType           string
	Units              []UnitInput
	LastEdit           string // cost, margin, tax, price, discount, unit
}

type CreateProductInput struct {
	PricingInput
	SKU     string
	Barcode string
	Name    string
}

type UpdateProductInput struct {
	PricingInput
	ID       string
	SKU      string
	Barcode  string
	Name     string
	IsActive bool
}
