package exchangerate

import "github.com/fekuna/omnipos-pricing-service/internal/apperr"

var (
	ErrNotFound        = apperr.New(apperr.NotFound, "exchange rate not found")
	ErrInvalidRate     = apperr.New(apperr.Invalid, "rate must be > 0")
	ErrMissingName     = apperr.New(apperr.Invalid, "name is required")
	ErrMissingCurrency = apperr.New(apperr.Invalid, "currency_code is required")
	ErrDefaultInactive = apperr.New(apperr.Precondition, "the default exchange rate cannot be deactivated")
	ErrDefaultInUse    = apperr.New(apperr.Precondition, "set another default before deleting the default exchange rate")
	ErrMissingMerchant = apperr.New(apperr.Unauthenticated, "missing merchant")
)

const (
	EventRateChanged = "ExchangeRateChanged"

	ActionCreated    = "created"
	ActionUpdated    = "updated"
	ActionDeleted    = "deleted"
	ActionDefaultSet = "default_set"
)

// RateChangedPayload is the payload of an ExchangeRateChanged event.
type RateChangedPayload struct {
	RateID string  `json:"rate_id"`
	Action string  `json:"action"`
	Rate   float64 `json:"rate"`
}
