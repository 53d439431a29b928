package dto

type ExchangeRateFilters struct {
	MerchantID string
	IsActive   *bool
	Page       int
	PageSize   int
}
