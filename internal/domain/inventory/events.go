package inventory

import "time"

const (
	EventStockAdded     = "StockAdded"
	EventStockDeducted  = "StockDeducted"
	EventStockRestocked = "StockRestocked"
)

type StockAdded struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type StockDeducted struct {
	ProductID  string    `json:"product_id"`
	OrderID    string    `json:"order_id"`
	Quantity   int       `json:"quantity"`
	DeductedAt time.Time `json:"deducted_at"`
}

type StockRestocked struct {
	ProductID   string    `json:"product_id"`
	OrderID     string    `json:"order_id"`
	Quantity    int       `json:"quantity"`
	RestockedAt time.Time `json:"restocked_at"`
}
