package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-pricing-service/internal/database/dbtest"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/product"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
)

func strPtr(s string) *string { return &s }

func floatPtr(f float64) *float64 { return &f }

func newProduct(merchantID, id, sku, name string, price float64, created time.Time) *model.Product {
	return &model.Product{
		BaseModel:  model.BaseModel{ID: id, CreatedAt: created, UpdatedAt: created},
		MerchantID: merchantID,
		SKU:        sku,
		Name:       name,
		UnitType:   "UNID",
		CostPrice:  price / 2,
		Price:      price,
		TaxRate:    16,
		IsActive:   true,
	}
}

func TestCreateWithUnits(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))

	p := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, time.Now().UTC().Truncate(time.Second))
	p.Barcode = strPtr("7590001")
	p.ProfitMargin = floatPtr(30)
	p.Units = []model.ProductUnit{
		{ID: "u1", UnitName: "Sack", ConversionFactor: 20, PriceUSD: floatPtr(36)},
		{ID: "u2", UnitName: "Gram", Type: "fraction", UserInput: floatPtr(3000), ConversionFactor: 1.0 / 3000, DiscountPercentage: 5, IsDiscountActive: true},
	}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, "m1", "p1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Rice", got.Name)
	require.NotNil(t, got.ProfitMargin)
	assert.InDelta(t, 30, *got.ProfitMargin, 1e-9)
	assert.Nil(t, got.ExchangeRateID)

	require.Len(t, got.Units, 2)
	assert.Equal(t, "Sack", got.Units[0].UnitName)
	assert.Equal(t, "p1", got.Units[0].ProductID)
	require.NotNil(t, got.Units[0].PriceUSD)
	assert.InDelta(t, 36, *got.Units[0].PriceUSD, 1e-9)
	assert.Equal(t, "Gram", got.Units[1].UnitName)
	assert.InDelta(t, 1.0/3000, got.Units[1].ConversionFactor, 1e-15)
	assert.Equal(t, "fraction", got.Units[1].Type)
	require.NotNil(t, got.Units[1].UserInput)
	assert.Equal(t, float64(3000), *got.Units[1].UserInput)
	assert.Nil(t, got.Units[0].UserInput)
	assert.True(t, got.Units[1].IsDiscountActive)

	missing, err := repo.FindByID(ctx, "m2", "p1")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCreateRollsBackOnBadUnit(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))

	p := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, time.Now().UTC())
	p.Units = []model.ProductUnit{{ID: "u1", UnitName: "Broken", ConversionFactor: 0}}
	require.Error(t, repo.Create(ctx, p))

	got, err := repo.FindByID(ctx, "m1", "p1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestFindAll(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))
	base := time.Now().UTC().Truncate(time.Second)

	rice := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, base)
	rice.Units = []model.ProductUnit{{ID: "u1", UnitName: "Sack", ConversionFactor: 20}}
	require.NoError(t, repo.Create(ctx, rice))
	require.NoError(t, repo.Create(ctx, newProduct("m1", "p2", "BEANS", "Black beans", 3, base.Add(time.Minute))))
	inactive := newProduct("m1", "p3", "OIL", "Corn oil", 5, base.Add(2*time.Minute))
	inactive.IsActive = false
	require.NoError(t, repo.Create(ctx, inactive))
	require.NoError(t, repo.Create(ctx, newProduct("m2", "p4", "RICE-1KG", "Rice", 2, base)))

	all, count, err := repo.FindAll(ctx, &dto.ProductFilters{MerchantID: "m1"})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, all, 3)
	assert.Equal(t, "p3", all[0].ID, "newest first by default")

	active := true
	list, count, err := repo.FindAll(ctx, &dto.ProductFilters{MerchantID: "m1", IsActive: &active, SortBy: "price", SortOrder: "asc"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	require.Len(t, list, 2)
	assert.Equal(t, "p1", list[0].ID)
	require.Len(t, list[0].Units, 1)
	assert.Equal(t, "Sack", list[0].Units[0].UnitName)
	assert.Empty(t, list[1].Units)

	found, count, err := repo.FindAll(ctx, &dto.ProductFilters{MerchantID: "m1", SearchQuery: "BEAN"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	require.Len(t, found, 1)
	assert.Equal(t, "p2", found[0].ID)

	page, count, err := repo.FindAll(ctx, &dto.ProductFilters{MerchantID: "m1", SortBy: "name", SortOrder: "asc", Page: 2, PageSize: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	require.Len(t, page, 1)
	assert.Equal(t, "Rice", page[0].Name)
}

func TestUpdateReplacesUnits(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))

	p := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, time.Now().UTC())
	p.Units = []model.ProductUnit{
		{ID: "u1", UnitName: "Sack", ConversionFactor: 20},
		{ID: "u2", UnitName: "Bag", ConversionFactor: 5},
	}
	require.NoError(t, repo.Create(ctx, p))

	p.Price = 2.5
	p.ExchangeRateID = strPtr("r1")
	p.Units = []model.ProductUnit{{ID: "u3", UnitName: "Gram", ConversionFactor: 0.001}}
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.FindByID(ctx, "m1", "p1")
	require.NoError(t, err)
	assert.InDelta(t, 2.5, got.Price, 1e-9)
	require.NotNil(t, got.ExchangeRateID)
	assert.Equal(t, "r1", *got.ExchangeRateID)
	require.Len(t, got.Units, 1)
	assert.Equal(t, "u3", got.Units[0].ID)

	p.MerchantID = "m2"
	assert.True(t, errors.Is(repo.Update(ctx, p), product.ErrNotFound))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))

	p := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, time.Now().UTC())
	p.Units = []model.ProductUnit{{ID: "u1", UnitName: "Sack", ConversionFactor: 20}}
	require.NoError(t, repo.Create(ctx, p))

	assert.True(t, errors.Is(repo.Delete(ctx, "m2", "p1"), product.ErrNotFound))
	require.NoError(t, repo.Delete(ctx, "m1", "p1"))

	var units int
	require.NoError(t, repo.DB.Get(&units, "SELECT count(*) FROM product_units"))
	assert.Zero(t, units)
}

func TestUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewSQLRepository(dbtest.New(t))

	p := newProduct("m1", "p1", "RICE-1KG", "Rice", 2, time.Now().UTC())
	p.Barcode = strPtr("7590001")
	require.NoError(t, repo.Create(ctx, p))

	tests := []struct {
		name  string
		check func() (bool, error)
		want  bool
	}{
		{"taken sku", func() (bool, error) { return repo.IsSKUUnique(ctx, "m1", "RICE-1KG", "") }, false},
		{"own sku", func() (bool, error) { return repo.IsSKUUnique(ctx, "m1", "RICE-1KG", "p1") }, true},
		{"other merchant", func() (bool, error) { return repo.IsSKUUnique(ctx, "m2", "RICE-1KG", "") }, true},
		{"taken barcode", func() (bool, error) { return repo.IsBarcodeUnique(ctx, "m1", "7590001", "") }, false},
		{"empty barcode", func() (bool, error) { return repo.IsBarcodeUnique(ctx, "m1", "", "") }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.check()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
