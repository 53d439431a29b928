package exchangerate

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
)

type Repository interface {
	Create(ctx context.Context, rate *model.ExchangeRate) error
	FindByID(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error)
	FindAll(ctx context.Context, filters *dto.ExchangeRateFilters) ([]model.ExchangeRate, int, error)
	Update(ctx context.Context, rate *model.ExchangeRate) error
	Delete(ctx context.Context, merchantID, id string) error

	// SetDefault clears the merchant's current default and flags id, atomically.
	SetDefault(ctx context.Context, merchantID, id string) error
}
