package model

type ExchangeRate struct {
	BaseModel
	MerchantID   string  `db:"merchant_id" json:"merchant_id" msgpack:"merchant_id"`
	Name         string  `db:"name" json:"name" msgpack:"name"`
	CurrencyCode string  `db:"currency_code" json:"currency_code" msgpack:"currency_code"`
	Rate         float64 `db:"rate" json:"rate" msgpack:"rate"`
	IsActive     bool    `db:"is_active" json:"is_active" msgpack:"is_active"`
	IsDefault    bool    `db:"is_default" json:"is_default" msgpack:"is_default"`
}
