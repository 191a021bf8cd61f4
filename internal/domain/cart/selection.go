package cart

import (
	"errors"
	"sort"
	"strings"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidQuantity    = errors.New("quantity must be positive")
	ErrInvalidProduct     = errors.New("product_id is required")
	ErrVariantRequired    = errors.New("a variant must be selected")
	ErrUnknownVariant     = errors.New("unknown variant")
	ErrUnknownOption      = errors.New("unknown option")
	ErrUnknownChoice      = errors.New("unknown choice")
	ErrMultipleSelections = errors.New("only one selection choice is allowed")
	ErrLineNotFound       = errors.New("cart line not found")
)

// ChosenChoice is a choice stamped with the option it was picked from
type ChosenChoice struct {
	OptionName string          `json:"option_name"`
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
}

type NumberAnswer struct {
	OptionName string           `json:"option_name"`
	Amount     *decimal.Decimal `json:"amount"`
}

type TextAnswer struct {
	OptionName string `json:"option_name"`
	Text       string `json:"text"`
}

// Selection is one line of a cart or order: a product with its variant,
// option answers and quantity. Lines added by hand have no ProductID.
type Selection struct {
	ID            string           `json:"id"`
	ProductID     string           `json:"product_id,omitempty"`
	ProductName   string           `json:"product_name"`
	ProductPrice  decimal.Decimal  `json:"product_price"`
	Variant       *catalog.Variant `json:"variant,omitempty"`
	Choice        *ChosenChoice    `json:"choice,omitempty"`
	Checkboxes    []ChosenChoice   `json:"checkboxes,omitempty"`
	Number        *NumberAnswer    `json:"number,omitempty"`
	Text          *TextAnswer      `json:"text,omitempty"`
	Quantity      int              `json:"quantity"`
	UnitPrice     decimal.Decimal  `json:"unit_price"`
	TrackQuantity bool             `json:"track_quantity"`
}

// IsManual reports whether the line was added without a catalog product
func (s Selection) IsManual() bool {
	return s.ProductID == ""
}

// CheckboxCount counts the recorded checkbox choices stamped with optionName
func (s Selection) CheckboxCount(optionName string) int {
	n := 0
	for _, c := range s.Checkboxes {
		if c.OptionName == optionName {
			n++
		}
	}
	return n
}

// Identity is the structural key of a line. Two lines with equal identity
// describe the same item and are merged in a cart and matched in a diff.
type Identity struct {
	ProductID string
	VariantID string
	Choices   string
	Manual    string
}

func (s Selection) Key() Identity {
	id := Identity{ProductID: s.ProductID}
	if s.Variant != nil {
		id.VariantID = s.Variant.ID
	}
	if s.IsManual() {
		id.Manual = s.ProductName
	}

	var choices []string
	if s.Choice != nil {
		choices = append(choices, s.Choice.OptionName+"/"+s.Choice.ID)
	}
	for _, c := range s.Checkboxes {
		choices = append(choices, c.OptionName+"/"+c.ID)
	}
	sort.Strings(choices)
	id.Choices = strings.Join(choices, ",")
	return id
}

// ChoiceRef names one picked choice in a build request
type ChoiceRef struct {
	Option   string `json:"option"`
	ChoiceID string `json:"choice_id"`
}

// Request is a customer's raw pick for a product before it is resolved
type Request struct {
	ProductID string        `json:"product_id"`
	VariantID string        `json:"variant_id,omitempty"`
	Choices   []ChoiceRef   `json:"choices,omitempty"`
	Number    *NumberAnswer `json:"number,omitempty"`
	Text      *TextAnswer   `json:"text,omitempty"`
	Quantity  int           `json:"quantity"`
}

// Request is the pick a stamped selection answers. Building it again
// against the product restamps prices, names and tracking from the catalog.
func (s Selection) Request() Request {
	req := Request{ProductID: s.ProductID, Number: s.Number, Text: s.Text, Quantity: s.Quantity}
	if s.Variant != nil {
		req.VariantID = s.Variant.ID
	}
	if s.Choice != nil {
		req.Choices = append(req.Choices, ChoiceRef{Option: s.Choice.OptionName, ChoiceID: s.Choice.ID})
	}
	for _, c := range s.Checkboxes {
		req.Choices = append(req.Choices, ChoiceRef{Option: c.OptionName, ChoiceID: c.ID})
	}
	return req
}

// Build resolves a request against the product definition into a stamped
// selection. It checks references only; option rules are left to the
// option evaluator and the unit price to the pricing package.
func Build(product *catalog.Product, req Request) (Selection, error) {
	if req.Quantity <= 0 {
		return Selection{}, ErrInvalidQuantity
	}

	sel := Selection{
		ProductID:     product.ID,
		ProductName:   product.Name,
		ProductPrice:  product.Price,
		Quantity:      req.Quantity,
		TrackQuantity: product.Inventory.TrackQuantity,
	}

	switch {
	case req.VariantID != "":
		v, ok := product.Variant(req.VariantID)
		if !ok {
			return Selection{}, ErrUnknownVariant
		}
		variant := *v
		sel.Variant = &variant
	case product.HasVariants():
		return Selection{}, ErrVariantRequired
	}

	for _, ref := range req.Choices {
		opt, ok := product.Option(ref.Option)
		if !ok || !opt.Type.HasChoices() {
			return Selection{}, ErrUnknownOption
		}
		c, ok := opt.Choice(ref.ChoiceID)
		if !ok {
			return Selection{}, ErrUnknownChoice
		}
		chosen := ChosenChoice{OptionName: opt.Name, ID: c.ID, Name: c.Name, Amount: c.Amount}
		if opt.Type == catalog.OptionSelection {
			if sel.Choice != nil {
				return Selection{}, ErrMultipleSelections
			}
			sel.Choice = &chosen
			continue
		}
		sel.Checkboxes = append(sel.Checkboxes, chosen)
	}

	if req.Number != nil {
		opt, ok := product.Option(req.Number.OptionName)
		if !ok || opt.Type != catalog.OptionNumber {
			return Selection{}, ErrUnknownOption
		}
		answer := *req.Number
		sel.Number = &answer
	}
	if req.Text != nil {
		opt, ok := product.Option(req.Text.OptionName)
		if !ok || opt.Type != catalog.OptionText {
			return Selection{}, ErrUnknownOption
		}
		answer := *req.Text
		sel.Text = &answer
	}

	return sel, nil
}

// Manual builds a line that is not backed by a catalog product
func Manual(name string, unitPrice decimal.Decimal, quantity int) (Selection, error) {
	if quantity <= 0 {
		return Selection{}, ErrInvalidQuantity
	}
	return Selection{
		ProductName:  name,
		ProductPrice: unitPrice,
		UnitPrice:    unitPrice,
		Quantity:     quantity,
	}, nil
}
