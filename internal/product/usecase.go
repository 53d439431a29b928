package product

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
)

type UseCase interface {
	CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*dto.PricedProduct, error)
	GetProduct(ctx context.Context, merchantID, id string) (*model.Product, error)
	ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error)
	UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*dto.PricedProduct, error)
	DeleteProduct(ctx context.Context, merchantID, id string) error

	// Pricing ops
	PreviewPricing(ctx context.Context, input *dto.PricingInput) (*pricing.Derived, error)
	QuoteProduct(ctx context.Context, merchantID, productID, unitID string) (*dto.Quote, error)
	EditableUnits(p *model.Product) []dto.EditableUnit
}

// RateSource supplies the exchange rates a merchant prices with.
type RateSource interface {
	RateTable(ctx context.Context, merchantID string) (pricing.RateTable, error)
}
