package cart

import "time"

const (
	EventItemAdded           = "ItemAddedToCart"
	EventItemRemoved         = "ItemRemovedFromCart"
	EventItemQuantityChanged = "CartItemQuantityChanged"
	EventCartCleared         = "CartCleared"
)

type ItemAddedToCart struct {
	CartID  string    `json:"cart_id"`
	Item    Selection `json:"item"`
	AddedAt time.Time `json:"added_at"`
}

type ItemRemovedFromCart struct {
	CartID    string    `json:"cart_id"`
	LineID    string    `json:"line_id"`
	RemovedAt time.Time `json:"removed_at"`
}

type CartItemQuantityChanged struct {
	CartID    string    `json:"cart_id"`
	LineID    string    `json:"line_id"`
	Quantity  int       `json:"quantity"`
	ChangedAt time.Time `json:"changed_at"`
}

type CartCleared struct {
	CartID    string    `json:"cart_id"`
	ClearedAt time.Time `json:"cleared_at"`
}
