// Package pricing computes unit prices, line totals and order totals.
// All arithmetic stays in decimal; rounding happens only in Summary.
package pricing

import (
	"github.com/example/order-engine/internal/domain/cart"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

type AdjustmentKind string

const (
	AdjustmentFixed      AdjustmentKind = "fixed"
	AdjustmentPercentage AdjustmentKind = "percentage"
)

// Adjustment is a named order-level surcharge (positive) or discount
// (negative). Percentage values are a percent of the subtotal.
type Adjustment struct {
	Name  string          `json:"name"`
	Kind  AdjustmentKind  `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Amount resolves the adjustment against a subtotal
func (a Adjustment) Amount(subtotal decimal.Decimal) decimal.Decimal {
	if a.Kind == AdjustmentPercentage {
		return subtotal.Mul(a.Value).Div(hundred)
	}
	return a.Value
}

// Charges are the supplementary order-level amounts outside the adjustment list
type Charges struct {
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Adjustment    decimal.Decimal `json:"adjustment"`
}

type Line struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Total     decimal.Decimal `json:"total"`
}

type AppliedAdjustment struct {
	Adjustment
	Amount decimal.Decimal `json:"amount"`
}

type Breakdown struct {
	Lines         []Line              `json:"lines"`
	Subtotal      decimal.Decimal     `json:"subtotal"`
	ServiceCharge decimal.Decimal     `json:"service_charge"`
	Adjustment    decimal.Decimal     `json:"adjustment"`
	Adjustments   []AppliedAdjustment `json:"adjustments"`
	FinalTotal    decimal.Decimal     `json:"final_total"`
}

// PriceOf returns the unit price of a selection: the variant price, or the
// product price when there is no variant, plus every picked choice amount.
func PriceOf(sel cart.Selection) decimal.Decimal {
	price := sel.ProductPrice
	if sel.Variant != nil {
		price = sel.Variant.Price
	}
	if sel.Choice != nil {
		price = price.Add(sel.Choice.Amount)
	}
	for _, c := range sel.Checkboxes {
		price = price.Add(c.Amount)
	}
	return price
}

// LineTotal is the unit price times the quantity
func LineTotal(sel cart.Selection) decimal.Decimal {
	return sel.UnitPrice.Mul(decimal.NewFromInt(int64(sel.Quantity)))
}

// Priced returns sel with its unit price computed
func Priced(sel cart.Selection) cart.Selection {
	sel.UnitPrice = PriceOf(sel)
	return sel
}

// Totalize sums the lines and applies charges and adjustments
func Totalize(items []cart.Selection, adjustments []Adjustment, charges Charges) Breakdown {
	b := Breakdown{
		Lines:         make([]Line, 0, len(items)),
		Subtotal:      decimal.Zero,
		ServiceCharge: charges.ServiceCharge,
		Adjustment:    charges.Adjustment,
		Adjustments:   make([]AppliedAdjustment, 0, len(adjustments)),
	}

	for _, item := range items {
		total := LineTotal(item)
		b.Lines = append(b.Lines, Line{
			ID:        item.ID,
			Name:      item.ProductName,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Total:     total,
		})
		b.Subtotal = b.Subtotal.Add(total)
	}

	b.FinalTotal = b.Subtotal.Add(charges.ServiceCharge).Add(charges.Adjustment)
	for _, a := range adjustments {
		amount := a.Amount(b.Subtotal)
		b.Adjustments = append(b.Adjustments, AppliedAdjustment{Adjustment: a, Amount: amount})
		b.FinalTotal = b.FinalTotal.Add(amount)
	}
	return b
}

// SummaryLine is one adjustment in a Summary. Names may repeat.
type SummaryLine struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

// Summary is a breakdown rounded to cents for display
type Summary struct {
	Subtotal      string        `json:"subtotal"`
	ServiceCharge string        `json:"service_charge"`
	Adjustment    string        `json:"adjustment"`
	Adjustments   []SummaryLine `json:"adjustments"`
	FinalTotal    string        `json:"final_total"`
}

func (b Breakdown) Summary() Summary {
	s := Summary{
		Subtotal:      Format(b.Subtotal),
		ServiceCharge: Format(b.ServiceCharge),
		Adjustment:    Format(b.Adjustment),
		Adjustments:   make([]SummaryLine, 0, len(b.Adjustments)),
		FinalTotal:    Format(b.FinalTotal),
	}
	for _, a := range b.Adjustments {
		s.Adjustments = append(s.Adjustments, SummaryLine{Name: a.Name, Amount: Format(a.Amount)})
	}
	return s
}

// Format renders an amount with two decimal places
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
