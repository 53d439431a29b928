package listener

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fekuna/omnipos-pricing-service/internal/broker"
	"github.com/fekuna/omnipos-pricing-service/internal/exchangerate"
	"github.com/fekuna/omnipos-pricing-service/internal/logger"
	"go.uber.org/zap"
)

// RateListener drops cached rate tables when another instance changes a
// merchant's exchange rates.
type RateListener struct {
	consumer *broker.KafkaConsumer
	uc       exchangerate.UseCase
	source   string
	logger   logger.ZapLogger
}

func NewRateListener(consumer *broker.KafkaConsumer, uc exchangerate.UseCase, source string, logger logger.ZapLogger) *RateListener {
	return &RateListener{
		consumer: consumer,
		uc:       uc,
		source:   source,
		logger:   logger,
	}
}

func (l *RateListener) Start(ctx context.Context) {
	l.logger.Info("Starting exchange rate Kafka listener")
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("Stopping exchange rate Kafka listener")
			return
		default:
			msg, err := l.consumer.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.logger.Error("Failed to read kafka message", zap.Error(err))
				time.Sleep(1 * time.Second)
				continue
			}
			l.processMessage(ctx, msg.Value)
		}
	}
}

func (l *RateListener) processMessage(ctx context.Context, value []byte) {
	var event broker.Event
	if err := json.Unmarshal(value, &event); err != nil {
		l.logger.Error("Failed to unmarshal event", zap.Error(err))
		return
	}

	if event.EventType != exchangerate.EventRateChanged {
		return
	}
	// Writes made here already invalidated the cache.
	if event.Source != "" && event.Source == l.source {
		return
	}
	if event.MerchantID == "" {
		l.logger.Warn("Exchange rate event without merchant", zap.String("event_id", event.EventID))
		return
	}

	var payload exchangerate.RateChangedPayload
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		l.logger.Error("Failed to unmarshal rate payload", zap.String("event_id", event.EventID), zap.Error(err))
	}

	l.logger.Info("Exchange rate changed elsewhere, invalidating rate table",
		zap.String("merchant_id", event.MerchantID),
		zap.String("rate_id", payload.RateID),
		zap.String("action", payload.Action),
	)
	l.uc.InvalidateRates(ctx, event.MerchantID)
}
