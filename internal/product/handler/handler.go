package handler

import (
	"context"

	"github.com/fekuna/omnipos-pricing-service/internal/auth"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/product"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/rpc"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
)

const ServiceName = "omnipos.pricing.v1.ProductService"

type ProductHandler struct {
	uc     product.UseCase
	logger logger.ZapLogger
}

func NewProductHandler(uc product.UseCase, log logger.ZapLogger) *ProductHandler {
	return &ProductHandler{
		uc:     uc,
		logger: log,
	}
}

func (h *ProductHandler) Methods() map[string]rpc.UnaryMethod {
	return map[string]rpc.UnaryMethod{
		"CreateProduct":  h.CreateProduct,
		"GetProduct":     h.GetProduct,
		"ListProducts":   h.ListProducts,
		"SearchProducts": h.SearchProducts,
		"UpdateProduct":  h.UpdateProduct,
		"DeleteProduct":  h.DeleteProduct,
		"PreviewPricing": h.PreviewPricing,
		"QuoteProduct":   h.QuoteProduct,
	}
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

func (h *ProductHandler) CreateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in productRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	res, err := h.uc.CreateProduct(ctx, &dto.CreateProductInput{
		PricingInput: in.pricingInput(merchantID),
		SKU:          in.SKU,
		Barcode:      in.Barcode,
		Name:         in.Name,
	})
	if err != nil {
		h.logger.Error("failed to create product", zap.String("sku", in.SKU), zap.Error(err))
		return nil, rpc.Error(err)
	}
	return rpc.Encode(h.productResponse(res.Product, &res.Pricing))
}

func (h *ProductHandler) GetProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	p, err := h.uc.GetProduct(ctx, merchantID, in.ID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(h.productResponse(p, nil))
}

func (h *ProductHandler) ListProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.list(ctx, req, false)
}

// SearchProducts is ListProducts with a required query.
func (h *ProductHandler) SearchProducts(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	return h.list(ctx, req, true)
}

func (h *ProductHandler) list(ctx context.Context, req *structpb.Struct, requireQuery bool) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in listRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}
	if requireQuery && in.Query == "" {
		return nil, status.Error(codes.InvalidArgument, "query is required")
	}

	filters := &dto.ProductFilters{
		MerchantID:  merchantID,
		SearchQuery: in.Query,
		SortBy:      in.SortBy,
		SortOrder:   in.SortOrder,
		Page:        in.Page,
		PageSize:    in.PageSize,
	}
	if in.ActiveOnly {
		b := true
		filters.IsActive = &b
	}

	products, count, err := h.uc.ListProducts(ctx, filters)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(listResponse{Products: products, Total: count, Page: in.Page, PageSize: in.PageSize})
}

func (h *ProductHandler) UpdateProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	in := productRequest{IsActive: true}
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	res, err := h.uc.UpdateProduct(ctx, &dto.UpdateProductInput{
		PricingInput: in.pricingInput(merchantID),
		ID:           in.ID,
		SKU:          in.SKU,
		Barcode:      in.Barcode,
		Name:         in.Name,
		IsActive:     in.IsActive,
	})
	if err != nil {
		h.logger.Error("failed to update product", zap.String("product_id", in.ID), zap.Error(err))
		return nil, rpc.Error(err)
	}
	return rpc.Encode(h.productResponse(res.Product, &res.Pricing))
}

func (h *ProductHandler) DeleteProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in idRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	if err := h.uc.DeleteProduct(ctx, merchantID, in.ID); err != nil {
		return nil, rpc.Error(err)
	}
	return &structpb.Struct{}, nil
}

func (h *ProductHandler) PreviewPricing(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in productRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	input := in.pricingInput(merchantID)
	derived, err := h.uc.PreviewPricing(ctx, &input)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(previewResponse{Pricing: newPricingView(*derived)})
}

func (h *ProductHandler) QuoteProduct(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	merchantID, err := merchant(ctx)
	if err != nil {
		return nil, err
	}
	var in quoteRequest
	if err := decode(req, &in); err != nil {
		return nil, err
	}

	q, err := h.uc.QuoteProduct(ctx, merchantID, in.ProductID, in.UnitID)
	if err != nil {
		return nil, rpc.Error(err)
	}
	return rpc.Encode(newQuoteView(q))
}

func (h *ProductHandler) productResponse(p *model.Product, derived *pricing.Derived) productResponse {
	res := productResponse{Product: p, Units: h.uc.EditableUnits(p)}
	if derived != nil {
		view := newPricingView(*derived)
		res.Pricing = &view
	}
	return res
}
