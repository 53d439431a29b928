package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/broker"
	"github.com/fekuna/omnipos-pricing-service/internal/cache"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const rateTableTTL = 5 * time.Minute

type Options struct {
	// AllowIdentityFallback prices with a 1:1 rate when a merchant has no
	// default rate instead of failing.
	AllowIdentityFallback bool
	// Source identifies this instance on published events.
	Source string
}

type exchangeRateUseCase struct {
	repo      exchangerate.Repository
	cache     *cache.RedisClient
	publisher broker.Publisher
	opts      Options
	logger    logger.ZapLogger
}

func NewExchangeRateUseCase(repo exchangerate.Repository, cache *cache.RedisClient, publisher broker.Publisher, opts Options, log logger.ZapLogger) exchangerate.UseCase {
	return &exchangeRateUseCase{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

func validate(name, currencyCode string, rate float64) error {
	if strings.TrimSpace(name) == "" {
		return exchangerate.ErrMissingName
	}
	if strings.TrimSpace(currencyCode) == "" {
		return exchangerate.ErrMissingCurrency
	}
	if !(rate > 0) {
		return exchangerate.ErrInvalidRate
	}
	return nil
}

func (uc *exchangeRateUseCase) CreateRate(ctx context.Context, input *dto.CreateExchangeRateInput) (*model.ExchangeRate, error) {
	if input.MerchantID == "" {
		return nil, exchangerate.ErrMissingMerchant
	}
	if err := validate(input.Name, input.CurrencyCode, input.Rate); err != nil {
		return nil, err
	}

	_, count, err := uc.repo.FindAll(ctx, &dto.ExchangeRateFilters{MerchantID: input.MerchantID, PageSize: 1})
	if err != nil {
		return nil, err
	}

	now := time.Now()
	rate := &model.ExchangeRate{
		BaseModel:    model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID:   input.MerchantID,
		Name:         strings.TrimSpace(input.Name),
		CurrencyCode: strings.ToUpper(strings.TrimSpace(input.CurrencyCode)),
		Rate:         input.Rate,
		IsActive:     true,
	}
	if err := uc.repo.Create(ctx, rate); err != nil {
		return nil, err
	}

	// The first rate of a merchant becomes its default.
	if input.IsDefault || count == 0 {
		if err := uc.repo.SetDefault(ctx, rate.MerchantID, rate.ID); err != nil {
			return nil, err
		}
		rate.IsDefault = true
	}

	uc.InvalidateRates(ctx, rate.MerchantID)
	uc.publish(ctx, rate, exchangerate.ActionCreated)
	return rate, nil
}

func (uc *exchangeRateUseCase) GetRate(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error) {
	rate, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if rate == nil {
		return nil, exchangerate.ErrNotFound
	}
	return rate, nil
}

func (uc *exchangeRateUseCase) ListRates(ctx context.Context, filters *dto.ExchangeRateFilters) ([]model.ExchangeRate, int, error) {
	return uc.repo.FindAll(ctx, filters)
}

func (uc *exchangeRateUseCase) UpdateRate(ctx context.Context, input *dto.UpdateExchangeRateInput) (*model.ExchangeRate, error) {
	if err := validate(input.Name, input.CurrencyCode, input.Rate); err != nil {
		return nil, err
	}
	rate, err := uc.GetRate(ctx, input.MerchantID, input.ID)
	if err != nil {
		return nil, err
	}
	active := rate.IsActive
	if input.IsActive != nil {
		active = *input.IsActive
	}
	if rate.IsDefault && !active {
		return nil, exchangerate.ErrDefaultInactive
	}

	rate.Name = strings.TrimSpace(input.Name)
	rate.CurrencyCode = strings.ToUpper(strings.TrimSpace(input.CurrencyCode))
	rate.Rate = input.Rate
	rate.IsActive = active
	rate.UpdatedAt = time.Now()

	if err := uc.repo.Update(ctx, rate); err != nil {
		return nil, err
	}

	uc.InvalidateRates(ctx, rate.MerchantID)
	uc.publish(ctx, rate, exchangerate.ActionUpdated)
	return rate, nil
}

func (uc *exchangeRateUseCase) DeleteRate(ctx context.Context, merchantID, id string) error {
	rate, err := uc.GetRate(ctx, merchantID, id)
	if err != nil {
		return err
	}
	if rate.IsDefault {
		_, count, err := uc.repo.FindAll(ctx, &dto.ExchangeRateFilters{MerchantID: merchantID, PageSize: 1})
		if err != nil {
			return err
		}
		if count > 1 {
			return exchangerate.ErrDefaultInUse
		}
	}

	if err := uc.repo.Delete(ctx, merchantID, id); err != nil {
		return err
	}

	uc.InvalidateRates(ctx, merchantID)
	uc.publish(ctx, rate, exchangerate.ActionDeleted)
	return nil
}

func (uc *exchangeRateUseCase) SetDefaultRate(ctx context.Context, merchantID, id string) (*model.ExchangeRate, error) {
	if err := uc.repo.SetDefault(ctx, merchantID, id); err != nil {
		return nil, err
	}
	rate, err := uc.GetRate(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}

	uc.InvalidateRates(ctx, merchantID)
	uc.publish(ctx, rate, exchangerate.ActionDefaultSet)
	return rate, nil
}

func rateTableKey(merchantID string) string {
	return fmt.Sprintf("rates:active:%s", merchantID)
}

func (uc *exchangeRateUseCase) RateTable(ctx context.Context, merchantID string) (pricing.RateTable, error) {
	var rates []model.ExchangeRate

	key := rateTableKey(merchantID)
	err := uc.cache.GetObject(ctx, key, &rates)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("rate table cache read failed", zap.String("merchant_id", merchantID), zap.Error(err))
		}

		active := true
		rates, _, err = uc.repo.FindAll(ctx, &dto.ExchangeRateFilters{MerchantID: merchantID, IsActive: &active})
		if err != nil {
			return pricing.RateTable{}, err
		}
		if err := uc.cache.SetObject(ctx, key, rates, rateTableTTL); err != nil {
			uc.logger.Warn("rate table cache write failed", zap.String("merchant_id", merchantID), zap.Error(err))
		}
	}

	table := pricing.RateTable{
		Rates:                 make([]pricing.ExchangeRate, len(rates)),
		AllowIdentityFallback: uc.opts.AllowIdentityFallback,
	}
	for i := range rates {
		table.Rates[i] = rates[i].PricingRate()
	}
	if _, ok := table.Default(); !ok && uc.opts.AllowIdentityFallback {
		uc.logger.Warn("merchant has no default exchange rate, pricing at 1:1", zap.String("merchant_id", merchantID))
	}
	return table, nil
}

func (uc *exchangeRateUseCase) InvalidateRates(ctx context.Context, merchantID string) {
	if err := uc.cache.Client.Del(ctx, rateTableKey(merchantID)).Err(); err != nil {
		uc.logger.Error("failed to invalidate rate table", zap.String("merchant_id", merchantID), zap.Error(err))
	}
}

func (uc *exchangeRateUseCase) publish(ctx context.Context, rate *model.ExchangeRate, action string) {
	if uc.publisher == nil {
		return
	}
	payload, err := json.Marshal(exchangerate.RateChangedPayload{RateID: rate.ID, Action: action, Rate: rate.Rate})
	if err != nil {
		uc.logger.Error("failed to encode rate event", zap.Error(err))
		return
	}
	event := broker.Event{
		EventID:    uuid.New().String(),
		EventType:  exchangerate.EventRateChanged,
		MerchantID: rate.MerchantID,
		Source:     uc.opts.Source,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
	key := fmt.Sprintf("exchange_rate.%s.%s", action, rate.ID)
	if err := uc.publisher.Publish(ctx, key, event); err != nil {
		uc.logger.Error("failed to publish rate event", zap.String("rate_id", rate.ID), zap.Error(err))
	}
}
