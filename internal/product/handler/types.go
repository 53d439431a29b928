package handler

import (
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
	"github.com/shopspring/decimal"
)

// Numeric fields arrive from forms loosely typed and are read with
// pricing.Amount, so "abc" or an empty string counts as zero.
type unitRequest struct {
	ID                 string      `json:"id"`
	UnitName           string      `json:"unit_name"`
	Type               string      `json:"type"`
	UserInput          interface{} `json:"user_input"`
	ConversionFactor   interface{} `json:"conversion_factor"`
	Barcode            string      `json:"barcode"`
	PriceUSD           interface{} `json:"price_usd"`
	CostPrice          interface{} `json:"cost_price"`
	ProfitMargin       interface{} `json:"profit_margin"`
	DiscountPercentage interface{} `json:"discount_percentage"`
	IsDiscountActive   bool        `json:"is_discount_active"`
	ExchangeRateID     string      `json:"exchange_rate_id"`
}

type productRequest struct {
	ID                 string        `json:"id"`
	SKU                string        `json:"sku"`
	Barcode            string        `json:"barcode"`
	Name               string        `json:"name"`
	UnitType           string        `json:"unit_type"`
	CostPrice          interface{}   `json:"cost_price"`
	Price              interface{}   `json:"price"`
	ProfitMargin       interface{}   `json:"profit_margin"`
	TaxRate            interface{}   `json:"tax_rate"`
	DiscountPercentage interface{}   `json:"discount_percentage"`
	IsDiscountActive   bool          `json:"is_discount_active"`
	ExchangeRateID     string        `json:"exchange_rate_id"`
	IsActive           bool          `json:"is_active"`
	Units              []unitRequest `json:"units"`
	LastEdit           string        `json:"last_edit"`
}

type idRequest struct {
	ID string `json:"id"`
}

type listRequest struct {
	Query      string `json:"query"`
	ActiveOnly bool   `json:"is_active"`
	SortBy     string `json:"sort_by"`
	SortOrder  string `json:"sort_order"`
	Page       int    `json:"page"`
	PageSize   int    `json:"page_size"`
}

type quoteRequest struct {
	ProductID string `json:"product_id"`
	UnitID    string `json:"unit_id"`
}

func (r *productRequest) pricingInput(merchantID string) dto.PricingInput {
	in := dto.PricingInput{
		MerchantID:         merchantID,
		CostPrice:          pricing.Amount(r.CostPrice),
		Price:              pricing.Amount(r.Price),
		ProfitMargin:       pricing.OptionalAmount(r.ProfitMargin),
		TaxRate:            pricing.OptionalAmount(r.TaxRate),
		DiscountPercentage: pricing.Amount(r.DiscountPercentage),
		IsDiscountActive:   r.IsDiscountActive,
		ExchangeRateID:     r.ExchangeRateID,
		UnitType:           r.UnitType,
		Units:              make([]dto.UnitInput, len(r.Units)),
		LastEdit:           r.LastEdit,
	}
	for i := range r.Units {
		in.Units[i] = r.Units[i].unitInput()
	}
	return in
}

// unitInput takes the typed user_input when present. Rows saved without it
// carry only conversion_factor, which is turned back into what the user
// would type.
func (u *unitRequest) unitInput() dto.UnitInput {
	unitType := u.Type
	userInput := pricing.Amount(u.UserInput)
	if u.UserInput == nil && u.ConversionFactor != nil {
		factor := pricing.Amount(u.ConversionFactor)
		t, err := pricing.ParseUnitType(unitType)
		if unitType == "" || err != nil {
			t = pricing.InferUnitType(factor)
		}
		unitType = string(t)
		userInput = pricing.UserInputFromFactor(factor, t)
	}
	return dto.UnitInput{
		ID:                 u.ID,
		UnitName:           u.UnitName,
		Type:               unitType,
		UserInput:          userInput,
		Barcode:            u.Barcode,
		PriceUSD:           pricing.OptionalAmount(u.PriceUSD),
		CostPrice:          pricing.OptionalAmount(u.CostPrice),
		ProfitMargin:       pricing.OptionalAmount(u.ProfitMargin),
		DiscountPercentage: pricing.Amount(u.DiscountPercentage),
		IsDiscountActive:   u.IsDiscountActive,
		ExchangeRateID:     u.ExchangeRateID,
	}
}

type rateView struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CurrencyCode string  `json:"currency_code"`
	Rate         float64 `json:"rate"`
	Fallback     bool    `json:"fallback"`
}

type savingsView struct {
	Amount        float64 `json:"amount"`
	DisplayAmount float64 `json:"display_amount"`
	Percent       float64 `json:"percent"`
}

// amountsView carries each price twice: at storage precision, which is what
// gets charged, and rounded to currency places for showing.
type amountsView struct {
	Price                         float64 `json:"price"`
	DiscountedPrice               float64 `json:"discounted_price"`
	SecondaryPrice                float64 `json:"secondary_price"`
	SecondaryDiscountPrice        float64 `json:"secondary_discount_price"`
	DisplayPrice                  float64 `json:"display_price"`
	DisplayDiscountedPrice        float64 `json:"display_discounted_price"`
	DisplaySecondaryPrice         float64 `json:"display_secondary_price"`
	DisplaySecondaryDiscountPrice float64 `json:"display_secondary_discount_price"`
}

type unitPricingView struct {
	UnitName         string  `json:"unit_name"`
	Type             string  `json:"type"`
	ConversionFactor float64 `json:"conversion_factor"`
	UserInput        float64 `json:"user_input"`
	amountsView
	PriceOverridden bool         `json:"price_overridden"`
	ImpliedMargin   *float64     `json:"implied_margin,omitempty"`
	ExchangeRate    rateView     `json:"exchange_rate"`
	Savings         *savingsView `json:"savings,omitempty"`
}

type pricingView struct {
	PriceBeforeTax        float64 `json:"price_before_tax"`
	DisplayPriceBeforeTax float64 `json:"display_price_before_tax"`
	amountsView
	PriceDerived  bool              `json:"price_derived"`
	ImpliedMargin *float64          `json:"implied_margin,omitempty"`
	ExchangeRate  rateView          `json:"exchange_rate"`
	Units         []unitPricingView `json:"units"`
}

type productResponse struct {
	Product *model.Product     `json:"product"`
	Units   []dto.EditableUnit `json:"editable_units"`
	Pricing *pricingView       `json:"pricing,omitempty"`
}

type listResponse struct {
	Products []model.Product `json:"products"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

type previewResponse struct {
	Pricing pricingView `json:"pricing"`
}

type quoteView struct {
	ProductID        string  `json:"product_id"`
	UnitID           string  `json:"unit_id,omitempty"`
	UnitName         string  `json:"unit_name"`
	ConversionFactor float64 `json:"conversion_factor"`
	amountsView
	ExchangeRate rateView     `json:"exchange_rate"`
	Savings      *savingsView `json:"savings,omitempty"`
}

func newRateView(r pricing.ExchangeRate) rateView {
	return rateView{ID: r.ID, Name: r.Name, CurrencyCode: r.CurrencyCode, Rate: r.Rate.InexactFloat64(), Fallback: r.Fallback}
}

func nullFloat(n decimal.NullDecimal) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Decimal.InexactFloat64()
	return &f
}

func newSavingsView(s *pricing.Savings) *savingsView {
	if s == nil {
		return nil
	}
	return &savingsView{
		Amount:        pricing.RoundStorage(s.Amount).InexactFloat64(),
		DisplayAmount: pricing.RoundCurrency(s.Amount).InexactFloat64(),
		Percent:       pricing.RoundPercent(s.Percent).InexactFloat64(),
	}
}

func newAmountsView(price, discounted, secondary, secondaryDiscounted decimal.Decimal) amountsView {
	precise := func(d decimal.Decimal) float64 { return pricing.RoundStorage(d).InexactFloat64() }
	shown := func(d decimal.Decimal) float64 { return pricing.RoundCurrency(d).InexactFloat64() }
	return amountsView{
		Price:                         precise(price),
		DiscountedPrice:               precise(discounted),
		SecondaryPrice:                precise(secondary),
		SecondaryDiscountPrice:        precise(secondaryDiscounted),
		DisplayPrice:                  shown(price),
		DisplayDiscountedPrice:        shown(discounted),
		DisplaySecondaryPrice:         shown(secondary),
		DisplaySecondaryDiscountPrice: shown(secondaryDiscounted),
	}
}

// newPricingView takes unrounded values. Percentages and user inputs are
// rounded through Display.
func newPricingView(d pricing.Derived) pricingView {
	shown := d.Display()
	v := pricingView{
		PriceBeforeTax:        pricing.RoundStorage(d.PriceBeforeTax).InexactFloat64(),
		DisplayPriceBeforeTax: shown.PriceBeforeTax.InexactFloat64(),
		amountsView:           newAmountsView(d.Price, d.DiscountedPrice, d.SecondaryPrice, d.SecondaryDiscountPrice),
		PriceDerived:          d.PriceDerived,
		ImpliedMargin:         nullFloat(shown.ImpliedMargin),
		ExchangeRate:          newRateView(d.Rate),
		Units:                 make([]unitPricingView, len(d.Units)),
	}
	for i, u := range d.Units {
		v.Units[i] = unitPricingView{
			UnitName:         u.Name,
			Type:             string(u.Type),
			ConversionFactor: u.ConversionFactor.InexactFloat64(),
			UserInput:        shown.Units[i].UserInput.InexactFloat64(),
			amountsView:      newAmountsView(u.Price, u.DiscountedPrice, u.SecondaryPrice, u.SecondaryDiscountPrice),
			PriceOverridden:  u.PriceOverridden,
			ImpliedMargin:    nullFloat(shown.Units[i].ImpliedMargin),
			ExchangeRate:     newRateView(u.Rate),
			Savings:          newSavingsView(u.Savings),
		}
	}
	return v
}

func newQuoteView(q *dto.Quote) quoteView {
	return quoteView{
		ProductID:        q.ProductID,
		UnitID:           q.UnitID,
		UnitName:         q.UnitName,
		ConversionFactor: q.ConversionFactor.InexactFloat64(),
		amountsView:      newAmountsView(q.Price, q.DiscountedPrice, q.SecondaryPrice, q.SecondaryDiscountPrice),
		ExchangeRate:     newRateView(q.Rate),
		Savings:          newSavingsView(q.Savings),
	}
}
