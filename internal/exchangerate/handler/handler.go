package handler

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/auth"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.pricing.v1.ExchangeRateService"

type ExchangeRateHandler struct {
	uc     exchangerate.UseCase
	logger logger.ZapLogger
}

func NewExchangeRateHandler(uc exchangerate.UseCase, log logger.ZapLogger) *ExchangeRateHandler {
	return &ExchangeRateHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ExchangeRateHandler) Methods() map[string]rpc.UnaryMethod {
	return map[string]rpc.UnaryMethod{
		"CreateExchangeRate":     h.CreateExchangeRate,
		"GetExchangeRate":        h.GetExchangeRate,
		"ListExchangeRates":      h.ListExchangeRates,
		"UpdateExchangeRate":     h.UpdateExchangeRate,
		"DeleteExchangeRate":     h.DeleteExchangeRate,
		"SetDefaultExchangeRate": h.SetDefaultExchangeRate,
	}
}

type rateRequest struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	CurrencyCode string  `json:"currency_code"`
	Rate         float64 `json:"rate"`
	IsActive     *bool   `json:"is_active"` // unchanged when omitted
	IsDefault    bool    `json:"is_default"`
}

type listRequest struct {
	ActiveOnly bool `json:"is_active"`
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
}

type rateResponse struct {
	ExchangeRate *model.ExchangeRate `json:"exchange_rate"`
}

type listResponse struct {
	ExchangeRates []model.ExchangeRate `json:"exchange_rates"`
	Total         int                  `json:"total"`
	Page          int                  `json:"page"`
	PageSize      int                  `json:"page_size"`
}

func merchant(ctx context.Context) (string, error) {
	merchantID := auth.GetMerchantID(ctx)
	if merchantID == "" {
		return "", status.Error(codes.Unauthenticated, "missing merchant")
	}
	return merchantID, nil
}

func decode(req *structpb.Struct, dst interface{}) error {
	if err := rpc.Decode(req, dst); err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	return nil
}

func (h *ExchangeRateHandler) CreateExchangeRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in rateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	rate, err := h.uc.CreateRate(ctx, &dto.CreateExchangeRateInput{
		MerchantID:   merchantID,
		Name:         in.Name,
		CurrencyCode: in.CurrencyCode,
		Rate:         in.Rate,
		IsDefault:    in.IsDefault,
	})
	if err != nil {
		h.logger.Error("failed to create exchange rate", zap.Error(err))
		return nil, rpc.Error(err)
	}
	return rpc.Encode(rateResponse{ExchangeRate: rate})
}

func (h *ExchangeRateHandler) GetExchangeRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in rateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	rate, err := h.uc.GetRate(ctx, merchantID, in.ID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(rateResponse{ExchangeRate: rate})
}

func (h *ExchangeRateHandler) ListExchangeRates(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in listRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	filters := &dto.ExchangeRateFilters{MerchantID: merchantID, Page: in.Page, PageSize: in.PageSize}
	if in.ActiveOnly {
		b := true
		filters.IsActive = &b
	}

	rates, count, err := h.uc.ListRates(ctx, filters)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(listResponse{ExchangeRates: rates, Total: count, Page: in.Page, PageSize: in.PageSize})
}

func (h *ExchangeRateHandler) UpdateExchangeRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in rateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	rate, err := h.uc.UpdateRate(ctx, &dto.UpdateExchangeRateInput{
		ID:           in.ID,
		MerchantID:   merchantID,
		Name:         in.Name,
		CurrencyCode: in.CurrencyCode,
		Rate:         in.Rate,
		IsActive:     in.IsActive,
	})
	if err != nil {
		h.logger.Error("failed to update exchange rate", zap.String("rate_id", in.ID), zap.Error(err))
		return nil, rpc.Error(err)
	}
	return rpc.Encode(rateResponse{ExchangeRate: rate})
}

func (h *ExchangeRateHandler) DeleteExchangeRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in rateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	if err := h.uc.DeleteRate(ctx, merchantID, in.ID); err != nil {
		return nil, rpc.Error(err)
	}
	return &structpb.Struct{}, nil
}

func (h *ExchangeRateHandler) SetDefaultExchangeRate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in rateRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	rate, err := h.uc.SetDefaultRate(ctx, merchantID, in.ID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(rateResponse{ExchangeRate: rate})
}
