package exchangerate

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
)

type UseCase interface {
	CreateRate(ctx context.Context, input *dto.CreateExchangeRateInput) (*model.ExchangeRate, error)
	GetRate(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error)
	ListRates(ctx context.Context, filters *dto.ExchangeRateFilters) ([]model.ExchangeRate, int, error)
	UpdateRate(ctx context.Context, input *dto.UpdateExchangeRateInput) (*model.ExchangeRate, error)
	DeleteRate(ctx context.Context, merchantID, id string) error
	SetDefaultRate(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error)

	// RateTable returns the merchant's active rates ready for the pricing engine.
	RateTable(ctx context.Context, merchantID string) (pricing.RateTable, error)
	InvalidateRates(ctx context.Context, merchantID string)
}
