package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/broker"
	"github.com/fekuna/omnipos-pricing-service/internal/cache"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"github.com/fekuna/omnipos-pricing-service/internal/model"
	"github.com/fekuna/omnipos-pricing-service/internal/pricing"
	"github.com/fekuna/omnipos-pricing-service/internal/product"
	"github.com/fekuna/omnipos-pricing-service/internal/product/dto"
	"github.com/fekuna/omnipos-pricing-service/internal/search"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	indexName    = "products"
	listCacheTTL = 5 * time.Minute
)

type Options struct {
	// DefaultTaxRate applies when a save leaves tax_rate unset.
	DefaultTaxRate decimal.Decimal
	// Source identifies this instance on published events.
	Source string
}

type productUseCase struct {
	repo      product.Repository
	rates     product.RateSource
	cache     *cache.RedisClient
	es        *search.Client
	publisher broker.Publisher
	opts      Options
	logger    logger.ZapLogger
}

func NewProductUseCase(repo product.Repository, rates product.RateSource, cache *cache.RedisClient, es *search.Client, publisher broker.Publisher, opts Options, log logger.ZapLogger) product.UseCase {
	return &productUseCase{
		repo:      repo,
		rates:     rates,
		cache:     cache,
		es:        es,
		publisher: publisher,
		opts:      opts,
		logger:    log,
	}
}

// lastEdit reads the form's last edited field. With none given an entered
// price is kept and a missing one is derived from cost.
func lastEdit(input *dto.PricingInput) pricing.Field {
	switch f := pricing.Field(strings.ToLower(strings.TrimSpace(input.LastEdit))); f {
	case pricing.FieldCost, pricing.FieldMargin, pricing.FieldTax,
		pricing.FieldPrice, pricing.FieldDiscount, pricing.FieldUnit:
		return f
	}
	if input.Price.IsPositive() {
		return pricing.FieldPrice
	}
	return pricing.FieldCost
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(n decimal.NullDecimal) *float64 {
	if !n.Valid {
		return nil
	}
	f := n.Decimal.InexactFloat64()
	return &f
}

// buildForm normalizes the entered units and assembles the engine input
// alongside the unit rows that would be stored. Rows whose ID matches one of
// existing keep it; the rest get a new one.
func (uc *productUseCase) buildForm(input *dto.PricingInput, existing []model.ProductUnit) (pricing.FormState, []model.ProductUnit, error) {
	taxRate := uc.opts.DefaultTaxRate
	if input.TaxRate.Valid {
		taxRate = input.TaxRate.Decimal
	}

	form := pricing.FormState{
		Product: pricing.Product{
			Cost:               input.CostPrice,
			Price:              input.Price,
			ProfitMargin:       input.ProfitMargin,
			TaxRate:            taxRate,
			DiscountPercentage: input.DiscountPercentage,
			IsDiscountActive:   input.IsDiscountActive,
			ExchangeRateID:     strings.TrimSpace(input.ExchangeRateID),
			UnitType:           input.UnitType,
		},
		Units:    make([]pricing.Unit, len(input.Units)),
		LastEdit: lastEdit(input),
	}
	rows := make([]model.ProductUnit, len(input.Units))
	known := make(map[string]bool, len(existing))
	for _, u := range existing {
		known[u.ID] = true
	}

	for i, in := range input.Units {
		name := strings.TrimSpace(in.UnitName)
		if name == "" {
			return pricing.FormState{}, nil, fmt.Errorf("unit %d: %w", i, product.ErrMissingUnitName)
		}
		unitType, err := pricing.ParseUnitType(in.Type)
		if err != nil {
			return pricing.FormState{}, nil, fmt.Errorf("unit %d (%s): %w", i, name, err)
		}
		factor, err := pricing.NormalizeConversionFactor(in.UserInput, unitType)
		if err != nil {
			return pricing.FormState{}, nil, fmt.Errorf("unit %d (%s): %w", i, name, err)
		}

		form.Units[i] = pricing.Unit{
			Name:               name,
			Type:               unitType,
			ConversionFactor:   factor,
			PriceUSD:           in.PriceUSD,
			CostPrice:          in.CostPrice,
			ProfitMargin:       in.ProfitMargin,
			DiscountPercentage: in.DiscountPercentage,
			IsDiscountActive:   in.IsDiscountActive,
			ExchangeRateID:     strings.TrimSpace(in.ExchangeRateID),
		}
		id := strings.TrimSpace(in.ID)
		if !known[id] {
			id = uuid.New().String()
		}
		// Guard against the same ID sent twice.
		delete(known, id)
		userInput := in.UserInput.InexactFloat64()
		rows[i] = model.ProductUnit{
			ID:                 id,
			UnitName:           name,
			Type:               string(unitType),
			UserInput:          &userInput,
			ConversionFactor:   factor.InexactFloat64(),
			Barcode:            optionalString(in.Barcode),
			PriceUSD:           optionalFloat(in.PriceUSD),
			CostPrice:          optionalFloat(in.CostPrice),
			ProfitMargin:       optionalFloat(in.ProfitMargin),
			DiscountPercentage: in.DiscountPercentage.InexactFloat64(),
			IsDiscountActive:   in.IsDiscountActive,
			ExchangeRateID:     optionalString(in.ExchangeRateID),
		}
	}
	return form, rows, nil
}

// price runs the engine for a form with the merchant's current rates.
func (uc *productUseCase) price(ctx context.Context, merchantID string, form pricing.FormState) (pricing.Derived, error) {
	table, err := uc.rates.RateTable(ctx, merchantID)
	if err != nil {
		return pricing.Derived{}, err
	}
	return pricing.Recompute(form, table)
}

// applyPricing copies the entered and derived values onto the stored row.
func applyPricing(p *model.Product, form pricing.FormState, derived pricing.Derived, units []model.ProductUnit) {
	in := form.Product
	p.UnitType = in.UnitType
	if p.UnitType == "" {
		p.UnitType = "UNID"
	}
	p.CostPrice = in.Cost.InexactFloat64()
	p.Price = pricing.RoundStorage(derived.Price).InexactFloat64()
	p.ProfitMargin = optionalFloat(in.ProfitMargin)
	p.TaxRate = in.TaxRate.InexactFloat64()
	p.DiscountPercentage = in.DiscountPercentage.InexactFloat64()
	p.IsDiscountActive = in.IsDiscountActive
	p.ExchangeRateID = optionalString(in.ExchangeRateID)
	p.Units = units
}

func (uc *productUseCase) CreateProduct(ctx context.Context, input *dto.CreateProductInput) (*dto.PricedProduct, error) {
	if input.MerchantID == "" {
		return nil, product.ErrMissingMerchant
	}
	if err := validate(input.SKU, input.Name); err != nil {
		return nil, err
	}
	if err := uc.checkUnique(ctx, input.MerchantID, input.SKU, input.Barcode, ""); err != nil {
		return nil, err
	}

	form, units, err := uc.buildForm(&input.PricingInput, nil)
	if err != nil {
		return nil, err
	}
	derived, err := uc.price(ctx, input.MerchantID, form)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p := &model.Product{
		BaseModel:  model.BaseModel{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now},
		MerchantID: input.MerchantID,
		SKU:        strings.TrimSpace(input.SKU),
		Barcode:    optionalString(input.Barcode),
		Name:       strings.TrimSpace(input.Name),
		IsActive:   true,
	}
	applyPricing(p, form, derived, units)

	if err := uc.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	uc.invalidateProductCache(ctx, p.MerchantID)
	go uc.syncToElastic(context.Background(), p)
	uc.publishPriceChanged(ctx, p, 0)

	return &dto.PricedProduct{Product: p, Pricing: derived}, nil
}

func validate(sku, name string) error {
	if strings.TrimSpace(sku) == "" {
		return product.ErrMissingSKU
	}
	if strings.TrimSpace(name) == "" {
		return product.ErrMissingName
	}
	return nil
}

func (uc *productUseCase) checkUnique(ctx context.Context, merchantID, sku, barcode, excludeID string) error {
	unique, err := uc.repo.IsSKUUnique(ctx, merchantID, strings.TrimSpace(sku), excludeID)
	if err != nil {
		return err
	}
	if !unique {
		return product.ErrSKUExists
	}

	if barcode = strings.TrimSpace(barcode); barcode != "" {
		unique, err := uc.repo.IsBarcodeUnique(ctx, merchantID, barcode, excludeID)
		if err != nil {
			return err
		}
		if !unique {
			return product.ErrBarcodeExists
		}
	}
	return nil
}

func (uc *productUseCase) syncToElastic(ctx context.Context, p *model.Product) {
	if uc.es == nil {
		return
	}
	mapping := `{
		"mappings": {
			"properties": {
				"merchant_id": { "type": "keyword" },
				"name": { "type": "text" },
				"sku": { "type": "keyword" },
				"barcode": { "type": "keyword" },
				"unit_type": { "type": "keyword" },
				"price": { "type": "double" },
				"cost_price": { "type": "double" },
				"is_active": { "type": "boolean" },
				"created_at": { "type": "date" }
			}
		}
	}`
	if err := uc.es.CreateIndex(ctx, indexName, mapping); err != nil {
		uc.logger.Warn("failed to ensure product index", zap.Error(err))
	}

	if err := uc.es.Index(ctx, indexName, p.ID, p); err != nil {
		uc.logger.Error("failed to index product", zap.String("product_id", p.ID), zap.Error(err))
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, merchantID, id string) (*model.Product, error) {
	p, err := uc.repo.FindByID(ctx, merchantID, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, product.ErrNotFound
	}
	return p, nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	// 1. Cache
	cacheKey, err := generateCacheKey(filters)
	if err == nil {
		var cached cachedList
		err := uc.cache.GetObject(ctx, cacheKey, &cached)
		if err == nil {
			return cached.Products, cached.Count, nil
		}
		if !errors.Is(err, cache.ErrMiss) {
			uc.logger.Warn("product list cache read failed", zap.Error(err))
		}
	} else {
		cacheKey = ""
	}

	// 2. Elastic for text search
	if filters.SearchQuery != "" && uc.es != nil {
		products, count, err := uc.searchElastic(ctx, filters)
		if err == nil {
			return products, count, nil
		}
		uc.logger.Error("ES search failed, falling back to DB", zap.Error(err))
	}

	// 3. DB
	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" {
		if err := uc.cache.SetObject(ctx, cacheKey, cachedList{Products: products, Count: count}, listCacheTTL); err != nil {
			uc.logger.Warn("product list cache write failed", zap.Error(err))
		}
	}
	return products, count, nil
}

func (uc *productUseCase) searchElastic(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	must := []map[string]interface{}{
		{
			"query_string": map[string]interface{}{
				"query":  fmt.Sprintf("*%s*", filters.SearchQuery),
				"fields": []string{"name^3", "sku", "barcode"},
			},
		},
		{"term": map[string]interface{}{"merchant_id": filters.MerchantID}},
	}
	if filters.IsActive != nil {
		must = append(must, map[string]interface{}{"term": map[string]interface{}{"is_active": *filters.IsActive}})
	}
	q := map[string]interface{}{
		"query": map[string]interface{}{"bool": map[string]interface{}{"must": must}},
	}
	if filters.PageSize > 0 {
		page := filters.Page
		if page < 1 {
			page = 1
		}
		q["from"] = (page - 1) * filters.PageSize
		q["size"] = filters.PageSize
	}

	res, err := uc.es.Search(ctx, indexName, q)
	if err != nil {
		return nil, 0, err
	}
	products := make([]model.Product, 0, len(res.Hits.Hits))
	for _, hit := range res.Hits.Hits {
		var p model.Product
		if err := json.Unmarshal(hit.Source, &p); err != nil {
			uc.logger.Warn("skipping unreadable search hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		products = append(products, p)
	}
	return products, res.Hits.Total.Value, nil
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("products:list:%s:%x", filters.MerchantID, md5.Sum(data)), nil
}

func (uc *productUseCase) invalidateProductCache(ctx context.Context, merchantID string) {
	// Invalidate all list caches for this merchant
	pattern := fmt.Sprintf("products:list:%s:*", merchantID)
	if err := uc.cache.DeletePattern(ctx, pattern); err != nil {
		uc.logger.Error("failed to invalidate product cache", zap.String("merchant_id", merchantID), zap.Error(err))
	}
}

func (uc *productUseCase) UpdateProduct(ctx context.Context, input *dto.UpdateProductInput) (*dto.PricedProduct, error) {
	if err := validate(input.SKU, input.Name); err != nil {
		return nil, err
	}
	p, err := uc.GetProduct(ctx, input.MerchantID, input.ID)
	if err != nil {
		return nil, err
	}
	if err := uc.checkUnique(ctx, input.MerchantID, input.SKU, input.Barcode, p.ID); err != nil {
		return nil, err
	}

	form, units, err := uc.buildForm(&input.PricingInput, p.Units)
	if err != nil {
		return nil, err
	}
	derived, err := uc.price(ctx, input.MerchantID, form)
	if err != nil {
		return nil, err
	}

	oldPrice := p.Price
	p.SKU = strings.TrimSpace(input.SKU)
	p.Barcode = optionalString(input.Barcode)
	p.Name = strings.TrimSpace(input.Name)
	p.IsActive = input.IsActive
	p.UpdatedAt = time.Now()
	applyPricing(p, form, derived, units)

	if err := uc.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	uc.invalidateProductCache(ctx, p.MerchantID)
	go uc.syncToElastic(context.Background(), p)
	if p.Price != oldPrice {
		uc.publishPriceChanged(ctx, p, oldPrice)
	}

	return &dto.PricedProduct{Product: p, Pricing: derived}, nil
}

func (uc *productUseCase) DeleteProduct(ctx context.Context, merchantID, id string) error {
	if err := uc.repo.Delete(ctx, merchantID, id); err != nil {
		return err
	}

	uc.invalidateProductCache(ctx, merchantID)
	if uc.es != nil {
		go func() {
			if err := uc.es.Delete(context.Background(), indexName, id); err != nil {
				uc.logger.Error("failed to delete product from ES", zap.String("product_id", id), zap.Error(err))
			}
		}()
	}
	return nil
}

func (uc *productUseCase) PreviewPricing(ctx context.Context, input *dto.PricingInput) (*pricing.Derived, error) {
	if input.MerchantID == "" {
		return nil, product.ErrMissingMerchant
	}
	form, _, err := uc.buildForm(input, nil)
	if err != nil {
		return nil, err
	}
	derived, err := uc.price(ctx, input.MerchantID, form)
	if err != nil {
		return nil, err
	}
	return &derived, nil
}

func (uc *productUseCase) QuoteProduct(ctx context.Context, merchantID, productID, unitID string) (*dto.Quote, error) {
	p, err := uc.GetProduct(ctx, merchantID, productID)
	if err != nil {
		return nil, err
	}
	// The stored price was derived when saved; quote it as is.
	derived, err := uc.price(ctx, merchantID, p.FormState(pricing.FieldPrice))
	if err != nil {
		return nil, err
	}

	q := &dto.Quote{
		ProductID:              p.ID,
		UnitName:               p.UnitType,
		ConversionFactor:       decimal.NewFromInt(1),
		Rate:                   derived.Rate,
		Price:                  derived.Price,
		DiscountedPrice:        derived.DiscountedPrice,
		SecondaryPrice:         derived.SecondaryPrice,
		SecondaryDiscountPrice: derived.SecondaryDiscountPrice,
	}
	if unitID == "" {
		return q, nil
	}

	for i := range p.Units {
		if p.Units[i].ID != unitID {
			continue
		}
		du := derived.Units[i]
		q.UnitID = unitID
		q.UnitName = du.Name
		q.ConversionFactor = du.ConversionFactor
		q.Rate = du.Rate
		q.Price = du.Price
		q.DiscountedPrice = du.DiscountedPrice
		q.SecondaryPrice = du.SecondaryPrice
		q.SecondaryDiscountPrice = du.SecondaryDiscountPrice
		q.Savings = du.Savings
		return q, nil
	}
	return nil, product.ErrUnitNotFound
}

func (uc *productUseCase) EditableUnits(p *model.Product) []dto.EditableUnit {
	out := make([]dto.EditableUnit, len(p.Units))
	for i, u := range p.Units {
		unitType, userInput := u.Entered()
		barcode := ""
		if u.Barcode != nil {
			barcode = *u.Barcode
		}
		rateID := ""
		if u.ExchangeRateID != nil {
			rateID = *u.ExchangeRateID
		}
		out[i] = dto.EditableUnit{
			ID:                 u.ID,
			UnitName:           u.UnitName,
			Type:               string(unitType),
			UserInput:          userInput.Round(6).InexactFloat64(),
			ConversionFactor:   u.ConversionFactor,
			Barcode:            barcode,
			PriceUSD:           u.PriceUSD,
			CostPrice:          u.CostPrice,
			ProfitMargin:       u.ProfitMargin,
			DiscountPercentage: u.DiscountPercentage,
			IsDiscountActive:   u.IsDiscountActive,
			ExchangeRateID:     rateID,
		}
	}
	return out
}

func (uc *productUseCase) publishPriceChanged(ctx context.Context, p *model.Product, oldPrice float64) {
	if uc.publisher == nil {
		return
	}
	payload, err := json.Marshal(product.PriceChangedPayload{
		ProductID: p.ID,
		SKU:       p.SKU,
		OldPrice:  oldPrice,
		NewPrice:  p.Price,
	})
	if err != nil {
		uc.logger.Error("failed to encode price event", zap.Error(err))
		return
	}
	event := broker.Event{
		EventID:    uuid.New().String(),
		EventType:  product.EventPriceChanged,
		MerchantID: p.MerchantID,
		Source:     uc.opts.Source,
		Payload:    payload,
		Timestamp:  time.Now(),
	}
	if err := uc.publisher.Publish(ctx, "product.price_changed."+p.ID, event); err != nil {
		uc.logger.Error("failed to publish price event", zap.String("product_id", p.ID), zap.Error(err))
	}
}
