package dto

import (
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/shopspring/decimal"
)

type ProductFilters struct {
	MerchantID  string
	IsActive    *bool
	SearchQuery string // For name, sku, barcode search
	SortBy      string // name, price, created_at
	SortOrder   string // asc, desc
	Page        int
	PageSize    int
}

// PricedProduct is a saved product with the pricing computed for it.
type PricedProduct struct {
	Product *model.Product
	Pricing pricing.Derived
}

// EditableUnit is a stored unit as the edit form shows it, with the
// factor turned back into what the user typed.
type EditableUnit struct {
	ID                 string   `json:"id"`
	UnitName           string   `json:"unit_name"`
	Type               string   `json:"type"`
	UserInput          float64  `json:"user_input"`
	ConversionFactor   float64  `json:"conversion_factor"`
	Barcode            string   `json:"barcode"`
	PriceUSD           *float64 `json:"price_usd"`
	CostPrice          *float64 `json:"cost_price"`
	ProfitMargin       *float64 `json:"profit_margin"`
	DiscountPercentage float64  `json:"discount_percentage"`
	IsDiscountActive   bool     `json:"is_discount_active"`
	ExchangeRateID     string   `json:"exchange_rate_id"`
}

// Quote is the price of one product or unit right now.
type Quote struct {
	ProductID              string
	UnitID                 string
	UnitName               string
	ConversionFactor       decimal.Decimal
	Rate                   pricing.ExchangeRate
	Price                  decimal.Decimal
	DiscountedPrice        decimal.Decimal
	SecondaryPrice         decimal.Decimal
	SecondaryDiscountPrice decimal.Decimal
	Savings                *pricing.Savings
}
