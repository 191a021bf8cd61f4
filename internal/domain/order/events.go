package order

import (
	"time"

	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/pricing"
)

const (
	EventOrderPlaced             = "OrderPlaced"
	EventOrderEdited             = "OrderEdited"
	EventOrderStatusChanged      = "OrderStatusChanged"
	EventOrderSideEffectRecorded = "OrderSideEffectRecorded"
)

type OrderPlaced struct {
	OrderID     string               `json:"order_id"`
	CartID      string               `json:"cart_id,omitempty"`
	Items       []cart.Selection     `json:"items"`
	Adjustments []pricing.Adjustment `json:"adjustments"`
	Charges     pricing.Charges      `json:"charges"`
	Pricing     pricing.Breakdown    `json:"pricing"`
	Statuses    Statuses             `json:"statuses"`
	PlacedAt    time.Time            `json:"placed_at"`
}

// EditPayload is everything persisted for one edit: the new item set and
// pricing plus the diff and inventory decision it was derived from.
type EditPayload struct {
	Items            []cart.Selection     `json:"items"`
	Adjustments      []pricing.Adjustment `json:"adjustments"`
	Charges          pricing.Charges      `json:"charges"`
	Pricing          pricing.Breakdown    `json:"pricing"`
	NewItems         []cart.Selection     `json:"new_items"`
	IncreaseQuantity []QuantityChange     `json:"increase_quantity"`
	DecreaseQuantity []QuantityChange     `json:"decrease_quantity"`
	RemovedItems     []cart.Selection     `json:"removed_items"`
	ShouldDeduct     bool                 `json:"should_deduct"`
	ShouldRestock    bool                 `json:"should_restock"`
}

type OrderEdited struct {
	OrderID  string `json:"order_id"`
	EditPayload
	EditedAt time.Time `json:"edited_at"`
}

type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	Dimension Dimension `json:"dimension"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedAt time.Time `json:"changed_at"`
}

type SideEffectOutcome string

const (
	OutcomeExecuted SideEffectOutcome = "executed"
	OutcomeDeclined SideEffectOutcome = "declined"
	OutcomeFailed   SideEffectOutcome = "failed"
)

// StockLine is a quantity of one catalog product moved by a side effect
type StockLine struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// OrderSideEffectRecorded tracks what happened to one side effect of a
// status change or edit. Trigger names what caused it; Retries points at
// the failed record a manual retry resolved.
type OrderSideEffectRecorded struct {
	ID         string            `json:"id"`
	OrderID    string            `json:"order_id"`
	Action     string            `json:"action"`
	Trigger    string            `json:"trigger"`
	Outcome    SideEffectOutcome `json:"outcome"`
	Lines      []StockLine       `json:"lines,omitempty"`
	Error      string            `json:"error,omitempty"`
	Retries    string            `json:"retries,omitempty"`
	RecordedAt time.Time         `json:"recorded_at"`
}
