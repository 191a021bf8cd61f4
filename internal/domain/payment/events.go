package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventPaymentCaptured = "PaymentCaptured"
	EventPaymentRefunded = "PaymentRefunded"
)

type PaymentCaptured struct {
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	CapturedAt time.Time       `json:"captured_at"`
}

type PaymentRefunded struct {
	OrderID    string          `json:"order_id"`
	Amount     decimal.Decimal `json:"amount"`
	RefundedAt time.Time       `json:"refunded_at"`
}
