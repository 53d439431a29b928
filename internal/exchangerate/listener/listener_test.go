package listener

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fekuna/omnipos-pricing-service/internal/broker"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
)

// invalidations records InvalidateRates calls; other methods are unused.
type invalidations struct {
	exchangerate.UseCase
	merchants []string
}

func (f *invalidations) InvalidateRates(_ context.Context, merchantID string) {
	f.merchants = append(f.merchants, merchantID)
}

func encode(t *testing.T, event broker.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(event)
	require.NoError(t, err)
	return raw
}

func TestProcessMessage(t *testing.T) {
	payload, err := json.Marshal(exchangerate.RateChangedPayload{RateID: "r1", Action: exchangerate.ActionUpdated})
	require.NoError(t, err)

	base := broker.Event{
		EventID:    "e1",
		EventType:  exchangerate.EventRateChanged,
		MerchantID: "m1",
		Source:     "replica-b",
		Payload:    payload,
		Timestamp:  time.Now(),
	}

	own := base
	own.Source = "replica-a"
	otherType := base
	otherType.EventType = "ProductPriceChanged"
	noMerchant := base
	noMerchant.MerchantID = ""

	tests := []struct {
		name  string
		value []byte
		want  []string
	}{
		{"other replica", encode(t, base), []string{"m1"}},
		{"own event", encode(t, own), nil},
		{"other event type", encode(t, otherType), nil},
		{"missing merchant", encode(t, noMerchant), nil},
		{"garbage", []byte("{not json"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &invalidations{}
			l := NewRateListener(nil, uc, "replica-a", logger.NewNop())
			l.processMessage(context.Background(), tt.value)
			assert.Equal(t, tt.want, uc.merchants)
		})
	}
}
