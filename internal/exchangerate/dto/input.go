package dto

type CreateExchangeRateInput struct {
	MerchantID   string
	Name         string
	CurrencyCode string
	Rate         float64
	IsDefault    bool
}

type UpdateExchangeRateInput struct {
	ID           string
	MerchantID   string
	Name         string
	CurrencyCode string
	Rate         float64
	IsActive     *bool // nil keeps the stored state
}
