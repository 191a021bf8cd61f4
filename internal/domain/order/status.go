package order

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidStatus    = errors.New("invalid status")
	ErrInvalidDimension = errors.New("invalid status dimension")
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderConfirmed OrderStatus = "confirmed"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type PaymentStatus string

const (
	PaymentUnpaid            PaymentStatus = "unpaid"
	PaymentConfirmingPayment PaymentStatus = "confirming_payment"
	PaymentPartiallyPaid     PaymentStatus = "partially_paid"
	PaymentPaid              PaymentStatus = "paid"
	PaymentRefunded          PaymentStatus = "refunded"
)

type FulfillmentStatus string

const (
	FulfillmentUnfulfilled    FulfillmentStatus = "unfulfilled"
	FulfillmentReady          FulfillmentStatus = "ready"
	FulfillmentOutForDelivery FulfillmentStatus = "out_for_delivery"
	FulfillmentFulfilled      FulfillmentStatus = "fulfilled"
)

// Dimension names one of the three independent status fields of an order
type Dimension string

const (
	DimensionOrder       Dimension = "order_status"
	DimensionPayment     Dimension = "payment_status"
	DimensionFulfillment Dimension = "fulfillment_status"
)

var dimensionValues = map[Dimension][]string{
	DimensionOrder: {
		string(OrderPending), string(OrderConfirmed), string(OrderCompleted), string(OrderCancelled),
	},
	DimensionPayment: {
		string(PaymentUnpaid), string(PaymentConfirmingPayment), string(PaymentPartiallyPaid),
		string(PaymentPaid), string(PaymentRefunded),
	},
	DimensionFulfillment: {
		string(FulfillmentUnfulfilled), string(FulfillmentReady),
		string(FulfillmentOutForDelivery), string(FulfillmentFulfilled),
	},
}

// Dimensions lists every status dimension
func Dimensions() []Dimension {
	return []Dimension{DimensionOrder, DimensionPayment, DimensionFulfillment}
}

// Values lists the values of a dimension in declaration order
func Values(dim Dimension) []string {
	return append([]string(nil), dimensionValues[dim]...)
}

// ValidTarget reports whether value belongs to dim
func ValidTarget(dim Dimension, value string) bool {
	for _, v := range dimensionValues[dim] {
		if v == value {
			return true
		}
	}
	return false
}

// Statuses holds the three independent status values of an order
type Statuses struct {
	Order       OrderStatus       `json:"order_status"`
	Payment     PaymentStatus     `json:"payment_status"`
	Fulfillment FulfillmentStatus `json:"fulfillment_status"`
}

// InitialStatuses is the status triple of a freshly placed order
func InitialStatuses() Statuses {
	return Statuses{Order: OrderPending, Payment: PaymentUnpaid, Fulfillment: FulfillmentUnfulfilled}
}

func (s Statuses) Get(dim Dimension) string {
	switch dim {
	case DimensionOrder:
		return string(s.Order)
	case DimensionPayment:
		return string(s.Payment)
	case DimensionFulfillment:
		return string(s.Fulfillment)
	}
	return ""
}

// With returns a copy of s with dim set to value
func (s Statuses) With(dim Dimension, value string) Statuses {
	switch dim {
	case DimensionOrder:
		s.Order = OrderStatus(value)
	case DimensionPayment:
		s.Payment = PaymentStatus(value)
	case DimensionFulfillment:
		s.Fulfillment = FulfillmentStatus(value)
	}
	return s
}

// Transition requests one dimension to move to a target value
type Transition struct {
	Dimension Dimension `json:"dimension"`
	To        string    `json:"to"`
}

func (t Transition) Validate() error {
	if _, ok := dimensionValues[t.Dimension]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidDimension, t.Dimension)
	}
	if !ValidTarget(t.Dimension, t.To) {
		return fmt.Errorf("%w: %q is not a %s value", ErrInvalidStatus, t.To, t.Dimension)
	}
	return nil
}

func (t Transition) String() string {
	return fmt.Sprintf("%s -> %s", t.Dimension, t.To)
}
