package service

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Типы событий платежного провайдера, известные системе.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// PaymentEvent закрытое множество вариантов платежных событий. Динамический payload
// провайдера разбирается в один из вариантов; незнакомый тип события превращается
// в UnrecognizedEvent, который логируется и игнорируется.
type PaymentEvent interface {
	isPaymentEvent()
}

type PaymentCapturedEvent struct {
	PaymentID       string
	ProviderOrderID string
	Amount          decimal.Decimal
}

type PaymentFailedEvent struct {
	PaymentID       string
	ProviderOrderID string
	Reason          string
}

type UnrecognizedEvent struct {
	Type string
}

func (PaymentCapturedEvent) isPaymentEvent() {}
func (PaymentFailedEvent) isPaymentEvent()   {}
func (UnrecognizedEvent) isPaymentEvent()    {}

type eventPayload struct {
	PaymentID       string          `json:"payment_id"`
	ProviderOrderID string          `json:"order_id"`
	Amount          decimal.Decimal `json:"amount"`
	Reason          string          `json:"reason"`
}

// ParseEvent разбирает событие провайдера по строковому типу в закрытый вариант.
func ParseEvent(eventType string, payload []byte) (PaymentEvent, error) {
	switch eventType {
	case EventPaymentCaptured:
		var p eventPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %s", eventType, err.Error())
		}
		return PaymentCapturedEvent{
			PaymentID:       p.PaymentID,
			ProviderOrderID: p.ProviderOrderID,
			Amount:          p.Amount,
		}, nil
	case EventPaymentFailed:
		var p eventPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, fmt.Errorf("parsing %s payload: %s", eventType, err.Error())
		}
		return PaymentFailedEvent{
			PaymentID:       p.PaymentID,
			ProviderOrderID: p.ProviderOrderID,
			Reason:          p.Reason,
		}, nil
	default:
		return UnrecognizedEvent{Type: eventType}, nil
	}
}
