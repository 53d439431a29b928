package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-pricing-service/internal/apperr"
	"github.com/fekuna/omnipos-pricing-service/internal/broker/brokertest"
	"github.com/fekuna/omnipos-pricing-service/internal/cache/cachetest"
	"github.com/fekuna/omnipos-pricing-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/product"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/product/repository"
	"github.com/fekuna/omnipos-pricing-service/internal/search/searchtest"
)

type staticRates pricing.RateTable

func (s staticRates) RateTable(context.Context, string) (pricing.RateTable, error) {
	return pricing.RateTable(s), nil
}

var bcv = pricing.ExchangeRate{
	ID: "r1", Name: "BCV", CurrencyCode: "VES", Rate: decimal.RequireFromString("36.5"), IsActive: true, IsDefault: true,
}

type fixture struct {
	uc        product.UseCase
	repo      *repository.SQLRepository
	publisher *brokertest.Recorder
}

func newFixture(t *testing.T, rates pricing.RateTable) *fixture {
	repo := repository.NewSQLRepository(dbtest.New(t))
	redis, _ := cachetest.New(t)
	pub := &brokertest.Recorder{}
	opts := Options{DefaultTaxRate: decimal.NewFromInt(16), Source: "test"}
	return &fixture{
		uc:        NewProductUseCase(repo, staticRates(rates), redis, nil, pub, opts, logger.NewNop()),
		repo:      repo,
		publisher: pub,
	}
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func riceInput() *dto.CreateProductInput {
	return &dto.CreateProductInput{
		SKU:  "RICE-1KG",
		Name: "Rice",
		PricingInput: dto.PricingInput{
			MerchantID:   "m1",
			CostPrice:    d("10"),
			ProfitMargin: decimal.NewNullDecimal(d("30")),
			Units: []dto.UnitInput{
				{UnitName: "Sack", Type: "packing", UserInput: d("20"), PriceUSD: decimal.NewNullDecimal(d("250"))},
				{UnitName: "Gram", Type: "fraction", UserInput: d("1000")},
			},
		},
	}
}

func TestCreateProductDerivesPrice(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	res, err := f.uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)

	assert.True(t, res.Pricing.PriceDerived)
	assert.Equal(t, "15.08", res.Pricing.Price.String())
	assert.Equal(t, "550.42", pricing.RoundCurrency(res.Pricing.SecondaryPrice).String())
	assert.InDelta(t, 15.08, res.Product.Price, 1e-9)
	assert.InDelta(t, 16, res.Product.TaxRate, 1e-9, "default tax applies")

	require.Len(t, res.Pricing.Units, 2)
	sack := res.Pricing.Units[0]
	assert.True(t, sack.PriceOverridden)
	require.NotNil(t, sack.Savings)
	assert.Equal(t, "51.6", sack.Savings.Amount.String())
	gram := res.Pricing.Units[1]
	assert.Equal(t, pricing.UnitFraction, gram.Type)
	assert.Equal(t, "0.01508", gram.Price.String())

	stored, err := f.uc.GetProduct(ctx, "m1", res.Product.ID)
	require.NoError(t, err)
	require.Len(t, stored.Units, 2)
	assert.InDelta(t, 0.001, stored.Units[1].ConversionFactor, 1e-12)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, product.EventPriceChanged, msgs[0].Event.EventType)
	assert.Equal(t, "product.price_changed."+res.Product.ID, msgs[0].Key)
}

func TestCreateProductKeepsEnteredPrice(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})

	in := riceInput()
	in.Price = d("14")
	res, err := f.uc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.False(t, res.Pricing.PriceDerived)
	assert.InDelta(t, 14, res.Product.Price, 1e-9)

	in = riceInput()
	in.SKU = "RICE-2KG"
	in.Price = d("14")
	in.LastEdit = "margin"
	res, err = f.uc.CreateProduct(context.Background(), in)
	require.NoError(t, err)
	assert.InDelta(t, 15.08, res.Product.Price, 1e-9)
}

func TestCreateProductRejects(t *testing.T) {
	ctx := context.Background()

	t.Run("zero divisor", func(t *testing.T) {
		f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
		in := riceInput()
		in.Units[1].UserInput = decimal.Zero
		_, err := f.uc.CreateProduct(ctx, in)
		assert.True(t, errors.Is(err, pricing.ErrInvalidDivisor), "got %v", err)
		assert.Equal(t, apperr.Invalid, apperr.KindOf(err))
	})

	t.Run("bad unit type", func(t *testing.T) {
		f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
		in := riceInput()
		in.Units[0].Type = "crate"
		_, err := f.uc.CreateProduct(ctx, in)
		assert.True(t, errors.Is(err, pricing.ErrInvalidUnitType), "got %v", err)
	})

	t.Run("no rate", func(t *testing.T) {
		f := newFixture(t, pricing.RateTable{})
		_, err := f.uc.CreateProduct(ctx, riceInput())
		assert.True(t, errors.Is(err, pricing.ErrNoExchangeRate), "got %v", err)
		assert.Equal(t, apperr.Precondition, apperr.KindOf(err))
	})

	t.Run("duplicate sku", func(t *testing.T) {
		f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
		_, err := f.uc.CreateProduct(ctx, riceInput())
		require.NoError(t, err)
		_, err = f.uc.CreateProduct(ctx, riceInput())
		assert.True(t, errors.Is(err, product.ErrSKUExists))
	})

	t.Run("missing fields", func(t *testing.T) {
		f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
		in := riceInput()
		in.Name = " "
		_, err := f.uc.CreateProduct(ctx, in)
		assert.True(t, errors.Is(err, product.ErrMissingName))

		in = riceInput()
		in.Units[0].UnitName = ""
		_, err = f.uc.CreateProduct(ctx, in)
		assert.True(t, errors.Is(err, product.ErrMissingUnitName))
	})
}

func TestUpdateProductPublishesPriceChange(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	created, err := f.uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)

	in := &dto.UpdateProductInput{
		ID:           created.Product.ID,
		SKU:          "RICE-1KG",
		Name:         "Rice",
		IsActive:     true,
		PricingInput: riceInput().PricingInput,
	}
	in.CostPrice = d("20")
	in.LastEdit = "cost"
	updated, err := f.uc.UpdateProduct(ctx, in)
	require.NoError(t, err)
	assert.InDelta(t, 30.16, updated.Product.Price, 1e-9)

	msgs := f.publisher.Messages()
	require.Len(t, msgs, 2)
	var payload product.PriceChangedPayload
	require.NoError(t, json.Unmarshal(msgs[1].Event.Payload, &payload))
	assert.InDelta(t, 15.08, payload.OldPrice, 1e-9)
	assert.InDelta(t, 30.16, payload.NewPrice, 1e-9)

	// Same price again: no event.
	_, err = f.uc.UpdateProduct(ctx, in)
	require.NoError(t, err)
	assert.Len(t, f.publisher.Messages(), 2)

	in.ID = "missing"
	_, err = f.uc.UpdateProduct(ctx, in)
	assert.True(t, errors.Is(err, product.ErrNotFound))
}

func TestListProductsCache(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	_, err := f.uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)

	filters := &dto.ProductFilters{MerchantID: "m1", Page: 1, PageSize: 10}
	list, count, err := f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, list, 1)
	assert.Len(t, list[0].Units, 2)

	// Written behind the use case's back: the cached page is served.
	now := time.Now().UTC()
	require.NoError(t, f.repo.Create(ctx, &model.Product{
		BaseModel:  model.BaseModel{ID: "p-direct", CreatedAt: now, UpdatedAt: now},
		MerchantID: "m1", SKU: "BEANS", Name: "Beans", UnitType: "UNID", IsActive: true,
	}))
	_, count, err = f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	in := riceInput()
	in.SKU = "OIL"
	in.Name = "Oil"
	_, err = f.uc.CreateProduct(ctx, in)
	require.NoError(t, err)
	_, count, err = f.uc.ListProducts(ctx, filters)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestDeleteProduct(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	created, err := f.uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)

	require.NoError(t, f.uc.DeleteProduct(ctx, "m1", created.Product.ID))
	_, err = f.uc.GetProduct(ctx, "m1", created.Product.ID)
	assert.True(t, errors.Is(err, product.ErrNotFound))
	assert.True(t, errors.Is(f.uc.DeleteProduct(ctx, "m1", created.Product.ID), product.ErrNotFound))
}

func TestPreviewPricing(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})

	in := riceInput().PricingInput
	in.TaxRate = decimal.NewNullDecimal(decimal.Zero)
	derived, err := f.uc.PreviewPricing(context.Background(), &in)
	require.NoError(t, err)
	assert.Equal(t, "13", derived.Price.String())

	list, _, err := f.uc.ListProducts(context.Background(), &dto.ProductFilters{MerchantID: "m1"})
	require.NoError(t, err)
	assert.Empty(t, list, "preview does not persist")
}

func TestQuoteProduct(t *testing.T) {
	usd := pricing.ExchangeRate{ID: "r2", Name: "Pesos", CurrencyCode: "COP", Rate: d("4000"), IsActive: true}
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv, usd}})
	ctx := context.Background()

	in := riceInput()
	in.Units[1].ExchangeRateID = "r2"
	created, err := f.uc.CreateProduct(ctx, in)
	require.NoError(t, err)
	p := created.Product

	q, err := f.uc.QuoteProduct(ctx, "m1", p.ID, "")
	require.NoError(t, err)
	assert.Equal(t, "15.08", q.Price.String())
	assert.Equal(t, "r1", q.Rate.ID)
	assert.Nil(t, q.Savings)

	q, err = f.uc.QuoteProduct(ctx, "m1", p.ID, p.Units[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "Gram", q.UnitName)
	assert.Equal(t, "r2", q.Rate.ID)
	assert.Equal(t, "60.32", q.SecondaryPrice.String())

	q, err = f.uc.QuoteProduct(ctx, "m1", p.ID, p.Units[0].ID)
	require.NoError(t, err)
	require.NotNil(t, q.Savings)
	assert.Equal(t, "250", q.Price.String())

	_, err = f.uc.QuoteProduct(ctx, "m1", p.ID, "nope")
	assert.True(t, errors.Is(err, product.ErrUnitNotFound))
}

func TestEditableUnits(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})

	in := riceInput()
	in.Units = append(in.Units, dto.UnitInput{UnitName: "Third", Type: "fraction", UserInput: d("3")})
	created, err := f.uc.CreateProduct(context.Background(), in)
	require.NoError(t, err)

	units := f.uc.EditableUnits(created.Product)
	require.Len(t, units, 3)
	assert.Equal(t, "packing", units[0].Type)
	assert.Equal(t, float64(20), units[0].UserInput)
	assert.Equal(t, "fraction", units[1].Type)
	assert.Equal(t, float64(1000), units[1].UserInput)
	assert.Equal(t, "fraction", units[2].Type)
	assert.Equal(t, float64(3), units[2].UserInput)
}

func TestFractionSurvivesStoredFactorRounding(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	in := riceInput()
	in.Units = []dto.UnitInput{
		{UnitName: "Pinch", Type: "fraction", UserInput: d("3000")},
		{UnitName: "Seventh", Type: "fraction", UserInput: d("7")},
		{UnitName: "Crate", Type: "packing", UserInput: d("36")},
	}
	created, err := f.uc.CreateProduct(ctx, in)
	require.NoError(t, err)

	// A column with fewer decimal places keeps only part of 1/3000.
	_, err = f.repo.DB.ExecContext(ctx,
		`UPDATE product_units SET conversion_factor = 0.00033333 WHERE unit_name = 'Pinch'`)
	require.NoError(t, err)

	stored, err := f.uc.GetProduct(ctx, "m1", created.Product.ID)
	require.NoError(t, err)
	units := f.uc.EditableUnits(stored)
	require.Len(t, units, 3)
	assert.Equal(t, "fraction", units[0].Type)
	assert.Equal(t, float64(3000), units[0].UserInput)
	assert.Equal(t, float64(7), units[1].UserInput)
	assert.Equal(t, "packing", units[2].Type)
	assert.Equal(t, float64(36), units[2].UserInput)

	q, err := f.uc.QuoteProduct(ctx, "m1", stored.ID, stored.Units[0].ID)
	require.NoError(t, err)
	assert.InDelta(t, 15.08/3000, q.Price.InexactFloat64(), 1e-12, "priced from the typed divisor")
}

func TestLegacyUnitsInferType(t *testing.T) {
	u := model.ProductUnit{UnitName: "Gram", ConversionFactor: 0.001}
	unitType, userInput := u.Entered()
	assert.Equal(t, pricing.UnitFraction, unitType)
	assert.Equal(t, "1000", userInput.String())

	typed := 12.0
	u = model.ProductUnit{UnitName: "Dozen", Type: "packing", UserInput: &typed, ConversionFactor: 12}
	unitType, userInput = u.Entered()
	assert.Equal(t, pricing.UnitPacking, unitType)
	assert.Equal(t, "12", userInput.String())
}

func TestUpdateReusesUnitIDs(t *testing.T) {
	f := newFixture(t, pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}})
	ctx := context.Background()

	created, err := f.uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)
	sackID := created.Product.Units[0].ID

	up := &dto.UpdateProductInput{
		PricingInput: riceInput().PricingInput,
		ID:           created.Product.ID,
		SKU:          "RICE-1KG",
		Name:         "Rice",
		IsActive:     true,
	}
	up.Units[0].ID = sackID
	up.Units[1].ID = uuid.NewString()
	res, err := f.uc.UpdateProduct(ctx, up)
	require.NoError(t, err)

	assert.Equal(t, sackID, res.Product.Units[0].ID)
	assert.NotEqual(t, up.Units[1].ID, res.Product.Units[1].ID, "ids from elsewhere are not taken")

	q, err := f.uc.QuoteProduct(ctx, "m1", created.Product.ID, sackID)
	require.NoError(t, err)
	assert.Equal(t, "Sack", q.UnitName)
}

func TestSearchUsesElastic(t *testing.T) {
	repo := repository.NewSQLRepository(dbtest.New(t))
	redis, _ := cachetest.New(t)
	es, fake := searchtest.New(t)
	uc := NewProductUseCase(repo, staticRates(pricing.RateTable{Rates: []pricing.ExchangeRate{bcv}}), redis, es, nil,
		Options{DefaultTaxRate: decimal.NewFromInt(16)}, logger.NewNop())
	ctx := context.Background()

	created, err := uc.CreateProduct(ctx, riceInput())
	require.NoError(t, err)
	id := created.Product.ID
	require.Eventually(t, func() bool { return fake.Doc(indexName, id) != nil }, 2*time.Second, 10*time.Millisecond)

	list, count, err := uc.ListProducts(ctx, &dto.ProductFilters{MerchantID: "m1", SearchQuery: "ric", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Len(t, list[0].Units, 2, "indexed document carries its units")

	// A failing cluster falls back to the database.
	fake.SetFailSearch(true)
	list, count, err = uc.ListProducts(ctx, &dto.ProductFilters{MerchantID: "m1", SearchQuery: "rice", Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, list, 1)

	require.NoError(t, uc.DeleteProduct(ctx, "m1", id))
	require.Eventually(t, func() bool { return fake.Doc(indexName, id) == nil }, 2*time.Second, 10*time.Millisecond)
}
