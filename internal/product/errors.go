package product

import "github.com/fekuna/omnipos-pricing-service/internal/apperr"

var (
	ErrNotFound        = apperr.New(apperr.NotFound, "product not found")
	ErrUnitNotFound    = apperr.New(apperr.NotFound, "unit not found")
	ErrSKUExists       = apperr.New(apperr.Conflict, "SKU already exists")
	ErrBarcodeExists   = apperr.New(apperr.Conflict, "Barcode already exists")
	ErrMissingSKU      = apperr.New(apperr.Invalid, "sku is required")
	ErrMissingName     = apperr.New(apperr.Invalid, "name is required")
	ErrMissingUnitName = apperr.New(apperr.Invalid, "unit_name is required")
	ErrMissingMerchant = apperr.New(apperr.Unauthenticated, "missing merchant")
)

const EventPriceChanged = "ProductPriceChanged"

type PriceChangedPayload struct {
	ProductID string  `json:"product_id"`
	SKU       string  `json:"sku"`
	OldPrice  float64 `json:"old_price"`
	NewPrice  float64 `json:"new_price"`
}
