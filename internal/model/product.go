package model

type Product struct {
	BaseModel
	MerchantID         string        `db:"merchant_id" json:"merchant_id"`
	SKU                string        `db:"sku" json:"sku"`
	Barcode            *string       `db:"barcode" json:"barcode"` // Nullable
	Name               string        `db:"name" json:"name"`
	UnitType           string        `db:"unit_type" json:"unit_type"`
	CostPrice          float64       `db:"cost_price" json:"cost_price"`
	Price              float64       `db:"price" json:"price"`
	ProfitMargin       *float64      `db:"profit_margin" json:"profit_margin"`
	TaxRate            float64       `db:"tax_rate" json:"tax_rate"`
	DiscountPercentage float64       `db:"discount_percentage" json:"discount_percentage"`
	IsDiscountActive   bool          `db:"is_discount_active" json:"is_discount_active"`
	ExchangeRateID     *string       `db:"exchange_rate_id" json:"exchange_rate_id"` // Nullable, merchant default when nil
	IsActive           bool          `db:"is_active" json:"is_active"`
	Units              []ProductUnit `db:"-" json:"units"` // Not in products table
}

// ProductUnit is an alternate unit of sale. ConversionFactor is the number
// of base units one of this unit stands for, whatever the user typed. Type
// and UserInput keep what was typed; rows saved before they existed have
// neither.
type ProductUnit struct {
	ID                 string   `db:"id" json:"id"`
	ProductID          string   `db:"product_id" json:"product_id"`
	UnitName           string   `db:"unit_name" json:"unit_name"`
	Type               string   `db:"type" json:"type"`
	UserInput          *float64 `db:"user_input" json:"user_input"`
	ConversionFactor   float64  `db:"conversion_factor" json:"conversion_factor"`
	Barcode            *string  `db:"barcode" json:"barcode"`
	PriceUSD           *float64 `db:"price_usd" json:"price_usd"`
	CostPrice          *float64 `db:"cost_price" json:"cost_price"`
	ProfitMargin       *float64 `db:"profit_margin" json:"profit_margin"`
	DiscountPercentage float64  `db:"discount_percentage" json:"discount_percentage"`
	IsDiscountActive   bool     `db:"is_discount_active" json:"is_discount_active"`
	ExchangeRateID     *string  `db:"exchange_rate_id" json:"exchange_rate_id"`
	SortOrder          int      `db:"sort_order" json:"-"`
}
