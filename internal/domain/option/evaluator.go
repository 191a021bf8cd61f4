// Package option checks a cart selection against the option definitions of
// its product.
package option

import (
	"fmt"
	"sort"
	"strings"

	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
)

type Kind string

const (
	KindNumber    Kind = "number"
	KindText      Kind = "text"
	KindSelection Kind = "selection"
	KindCheckbox  Kind = "checkbox"
)

// FieldError describes one failing option
type FieldError struct {
	Option  string `json:"option"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of a validation. Failed flags each kind with at
// least one failing option; Messages has one entry per failing checkbox group.
type Result struct {
	Failed   map[Kind]bool `json:"failed"`
	Messages []string      `json:"messages"`
	Fields   []FieldError  `json:"fields"`
}

func (r Result) HasErrors() bool {
	for _, failed := range r.Failed {
		if failed {
			return true
		}
	}
	return false
}

// Err returns the result as a *ValidationError, or nil when nothing failed
func (r Result) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return &ValidationError{Fields: r.Fields}
}

func (r *Result) fail(opt catalog.Option, kind Kind, msg string) {
	r.Failed[kind] = true
	r.Fields = append(r.Fields, FieldError{Option: opt.Name, Kind: kind, Message: msg})
	if kind == KindCheckbox {
		r.Messages = append(r.Messages, msg)
	}
}

// ValidationError carries the field-level failures of a selection
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Option + ": " + f.Message
	}
	return "invalid selection: " + strings.Join(parts, "; ")
}

// Validate checks sel against every option of product. It has no side effects.
func Validate(product *catalog.Product, sel cart.Selection) Result {
	res := Result{Failed: map[Kind]bool{
		KindNumber:    false,
		KindText:      false,
		KindSelection: false,
		KindCheckbox:  false,
	}}

	for _, opt := range product.Options {
		switch opt.Type {
		case catalog.OptionNumber:
			if opt.Required && (sel.Number == nil || sel.Number.OptionName != opt.Name || sel.Number.Amount == nil) {
				res.fail(opt, KindNumber, fmt.Sprintf("%s is required", opt.Name))
			}
		case catalog.OptionText:
			if opt.Required && (sel.Text == nil || sel.Text.OptionName != opt.Name || strings.TrimSpace(sel.Text.Text) == "") {
				res.fail(opt, KindText, fmt.Sprintf("%s is required", opt.Name))
			}
		case catalog.OptionSelection:
			if opt.Required && (sel.Choice == nil || sel.Choice.OptionName != opt.Name) {
				res.fail(opt, KindSelection, fmt.Sprintf("Please choose a %s", opt.Name))
			}
		case catalog.OptionCheckbox:
			if msg, ok := checkCheckbox(opt, sel.CheckboxCount(opt.Name)); !ok {
				res.fail(opt, KindCheckbox, msg)
			}
		}
	}
	return res
}

// Bounds returns the effective pick limits of a checkbox option. The lower bound falls
// back to 1 for required options and 0 otherwise; hasMax is false when the
// option has no upper bound.
func Bounds(opt catalog.Option) (lo, hi int, hasMax bool) {
	if opt.Required {
		lo = 1
	}
	rule := opt.Validation
	if rule == nil {
		return lo, 0, false
	}
	if rule.Min != nil {
		lo = *rule.Min
	}
	if rule.Max != nil {
		return lo, *rule.Max, true
	}
	return lo, 0, false
}

func checkCheckbox(opt catalog.Option, count int) (string, bool) {
	if !opt.Required && count == 0 {
		return "", true
	}
	lo, hi, hasMax := Bounds(opt)

	switch {
	case hasMax && lo > 0 && (count < lo || count > hi):
		if lo == hi {
			return fmt.Sprintf("Please select exactly %d %s", lo, opt.Name), false
		}
		return fmt.Sprintf("Please select between %d and %d %s", lo, hi, opt.Name), false
	case count < lo:
		return fmt.Sprintf("Please select at least %d %s", lo, opt.Name), false
	case hasMax && count > hi:
		return fmt.Sprintf("Please select at most %d %s", hi, opt.Name), false
	}
	return "", true
}

// DisabledChoices reports, per checkbox option that has reached its maximum,
// the choice ids that can no longer be picked. It never affects validation.
func DisabledChoices(product *catalog.Product, sel cart.Selection) map[string][]string {
	disabled := make(map[string][]string)
	for _, opt := range product.Options {
		if opt.Type != catalog.OptionCheckbox {
			continue
		}
		_, hi, hasMax := Bounds(opt)
		if !hasMax || sel.CheckboxCount(opt.Name) < hi {
			continue
		}

		picked := make(map[string]bool)
		for _, c := range sel.Checkboxes {
			if c.OptionName == opt.Name {
				picked[c.ID] = true
			}
		}
		for _, c := range opt.Choices {
			if !picked[c.ID] {
				disabled[opt.Name] = append(disabled[opt.Name], c.ID)
			}
		}
		sort.Strings(disabled[opt.Name])
	}
	return disabled
}
