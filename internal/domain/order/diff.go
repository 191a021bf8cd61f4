package order

import "github.com/example/order-engine/internal/domain/cart"

// QuantityChange is a line whose quantity moved between the stored and the
// edited item set. ID is the stored line id.
type QuantityChange struct {
	ID           string         `json:"id"`
	Key          cart.Identity  `json:"-"`
	QuantityDiff int            `json:"quantity_diff"`
	UpdatedItem  cart.Selection `json:"updated_item"`
}

// Diff classifies an edit of an order's items
type Diff struct {
	NewItems         []cart.Selection `json:"new_items"`
	IncreaseQuantity []QuantityChange `json:"increase_quantity"`
	DecreaseQuantity []QuantityChange `json:"decrease_quantity"`
	RemovedItems     []cart.Selection `json:"removed_items"`
}

func (d Diff) IsEmpty() bool {
	return len(d.NewItems) == 0 && len(d.IncreaseQuantity) == 0 &&
		len(d.DecreaseQuantity) == 0 && len(d.RemovedItems) == 0
}

// ComputeDiff matches edited items to stored items by structural identity.
// Each stored item matches at most one edited item. It never touches
// persistence.
func ComputeDiff(stored, edited []cart.Selection) Diff {
	d := Diff{
		NewItems:         []cart.Selection{},
		IncreaseQuantity: []QuantityChange{},
		DecreaseQuantity: []QuantityChange{},
		RemovedItems:     []cart.Selection{},
	}

	matched := make([]bool, len(stored))
	for _, e := range edited {
		key := e.Key()
		idx := -1
		for i, s := range stored {
			if !matched[i] && s.Key() == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			d.NewItems = append(d.NewItems, e)
			continue
		}
		matched[idx] = true

		s := stored[idx]
		switch {
		case e.Quantity > s.Quantity:
			d.IncreaseQuantity = append(d.IncreaseQuantity, QuantityChange{
				ID: s.ID, Key: key, QuantityDiff: e.Quantity - s.Quantity, UpdatedItem: e,
			})
		case e.Quantity < s.Quantity:
			d.DecreaseQuantity = append(d.DecreaseQuantity, QuantityChange{
				ID: s.ID, Key: key, QuantityDiff: s.Quantity - e.Quantity, UpdatedItem: e,
			})
		}
	}

	for i, s := range stored {
		if !matched[i] {
			d.RemovedItems = append(d.RemovedItems, s)
		}
	}
	return d
}

// CarryLineIDs returns edited with every line that matches a stored line
// taking the stored line id. Unmatched lines keep their own id.
func CarryLineIDs(stored, edited []cart.Selection) []cart.Selection {
	out := make([]cart.Selection, len(edited))
	matched := make([]bool, len(stored))
	for i, e := range edited {
		key := e.Key()
		for j, s := range stored {
			if !matched[j] && s.Key() == key {
				matched[j] = true
				e.ID = s.ID
				break
			}
		}
		out[i] = e
	}
	return out
}
