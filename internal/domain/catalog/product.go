package catalog

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidPrice    = errors.New("price must not be negative")
	ErrInvalidName     = errors.New("name is required")
	ErrInvalidOption   = errors.New("invalid option")
	ErrInvalidVariant  = errors.New("invalid variant")
	ErrInvalidPolicy   = errors.New("invalid inventory policy")
)

type OptionType string

const (
	OptionNumber    OptionType = "number"
	OptionText      OptionType = "text"
	OptionSelection OptionType = "selection"
	OptionCheckbox  OptionType = "checkbox"
)

// HasChoices reports whether options of this type carry a choice list
func (t OptionType) HasChoices() bool {
	return t == OptionSelection || t == OptionCheckbox
}

func (t OptionType) valid() bool {
	switch t {
	case OptionNumber, OptionText, OptionSelection, OptionCheckbox:
		return true
	}
	return false
}

type RuleKind string

const (
	RuleAtLeast RuleKind = "at_least"
	RuleAtMost  RuleKind = "at_most"
	RuleBetween RuleKind = "between"
)

// ValidationRule bounds how many choices of a checkbox option may be picked.
// When both Min and Max are set the rule behaves as between regardless of Kind.
type ValidationRule struct {
	Kind RuleKind `json:"kind"`
	Min  *int     `json:"min,omitempty"`
	Max  *int     `json:"max,omitempty"`
}

func AtLeast(min int) *ValidationRule {
	return &ValidationRule{Kind: RuleAtLeast, Min: &min}
}

func AtMost(max int) *ValidationRule {
	return &ValidationRule{Kind: RuleAtMost, Max: &max}
}

func Between(min, max int) *ValidationRule {
	return &ValidationRule{Kind: RuleBetween, Min: &min, Max: &max}
}

type Choice struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type Option struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Type       OptionType      `json:"type"`
	Required   bool            `json:"required"`
	Choices    []Choice        `json:"choices,omitempty"`
	Validation *ValidationRule `json:"validation,omitempty"`
}

// Choice looks up a choice of this option by id
func (o *Option) Choice(id string) (*Choice, bool) {
	for i := range o.Choices {
		if o.Choices[i].ID == id {
			return &o.Choices[i], true
		}
	}
	return nil, false
}

type Variant struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Price         decimal.Decimal `json:"price"`
	OriginalPrice decimal.Decimal `json:"original_price"`
}

// InventoryPolicy controls stock checks for a product. Quantity is the
// current available stock and is filled from the stock ledger on reads.
type InventoryPolicy struct {
	TrackQuantity      bool `json:"track_quantity"`
	CartMinimumEnabled bool `json:"cart_minimum_enabled"`
	CartMinimum        int  `json:"cart_minimum"`
	CartMaximumEnabled bool `json:"cart_maximum_enabled"`
	CartMaximum        int  `json:"cart_maximum"`
	Quantity           int  `json:"quantity"`
}

func (p InventoryPolicy) Validate() error {
	if p.CartMinimumEnabled && p.CartMinimum < 1 {
		return fmt.Errorf("%w: cart minimum must be at least 1", ErrInvalidPolicy)
	}
	if p.CartMaximumEnabled && p.CartMaximum < 1 {
		return fmt.Errorf("%w: cart maximum must be at least 1", ErrInvalidPolicy)
	}
	if p.CartMinimumEnabled && p.CartMaximumEnabled && p.CartMinimum > p.CartMaximum {
		return fmt.Errorf("%w: cart minimum %d exceeds maximum %d", ErrInvalidPolicy, p.CartMinimum, p.CartMaximum)
	}
	return nil
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Options     []Option        `json:"options"`
	Variants    []Variant       `json:"variants"`
	Inventory   InventoryPolicy `json:"inventory"`
	IsDeleted   bool            `json:"is_deleted,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Version     int             `json:"version"`
}

// Aggregate interface implementation
func (p *Product) GetID() string    { return p.ID }
func (p *Product) GetVersion() int  { return p.Version }
func (p *Product) SetVersion(v int) { p.Version = v }

// HasVariants reports whether exactly one variant must be picked per cart item
func (p *Product) HasVariants() bool {
	return len(p.Variants) > 0
}

func (p *Product) Variant(id string) (*Variant, bool) {
	for i := range p.Variants {
		if p.Variants[i].ID == id {
			return &p.Variants[i], true
		}
	}
	return nil, false
}

func (p *Product) Option(name string) (*Option, bool) {
	for i := range p.Options {
		if p.Options[i].Name == name {
			return &p.Options[i], true
		}
	}
	return nil, false
}

// Validate checks the structural invariants of the product definition
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrInvalidName
	}
	if p.Price.IsNegative() {
		return ErrInvalidPrice
	}

	optionNames := make(map[string]bool, len(p.Options))
	singles := make(map[OptionType]int)
	for _, o := range p.Options {
		if err := o.validate(); err != nil {
			return err
		}
		if optionNames[o.Name] {
			return fmt.Errorf("%w: duplicate option name %q", ErrInvalidOption, o.Name)
		}
		optionNames[o.Name] = true
		// a cart item records one number answer, one text answer and one selection choice
		if o.Type != OptionCheckbox {
			singles[o.Type]++
			if singles[o.Type] > 1 {
				return fmt.Errorf("%w: only one %s option is allowed", ErrInvalidOption, o.Type)
			}
		}
	}

	variantIDs := make(map[string]bool, len(p.Variants))
	for _, v := range p.Variants {
		if v.ID == "" {
			return fmt.Errorf("%w: id is required", ErrInvalidVariant)
		}
		if variantIDs[v.ID] {
			return fmt.Errorf("%w: duplicate variant id %q", ErrInvalidVariant, v.ID)
		}
		if v.Price.IsNegative() || v.OriginalPrice.IsNegative() {
			return fmt.Errorf("%w: %q has a negative price", ErrInvalidVariant, v.ID)
		}
		variantIDs[v.ID] = true
	}

	return p.Inventory.Validate()
}

func (o Option) validate() error {
	if o.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidOption)
	}
	if !o.Type.valid() {
		return fmt.Errorf("%w: %q has unknown type %q", ErrInvalidOption, o.Name, o.Type)
	}
	if o.Type.HasChoices() && len(o.Choices) == 0 {
		return fmt.Errorf("%w: %s option %q needs choices", ErrInvalidOption, o.Type, o.Name)
	}
	if !o.Type.HasChoices() && len(o.Choices) > 0 {
		return fmt.Errorf("%w: %s option %q cannot carry choices", ErrInvalidOption, o.Type, o.Name)
	}

	choiceIDs := make(map[string]bool, len(o.Choices))
	for _, c := range o.Choices {
		if c.ID == "" || choiceIDs[c.ID] {
			return fmt.Errorf("%w: option %q has a missing or duplicate choice id", ErrInvalidOption, o.Name)
		}
		choiceIDs[c.ID] = true
	}

	if o.Validation == nil {
		return nil
	}
	if o.Type != OptionCheckbox {
		return fmt.Errorf("%w: validation rules only apply to checkbox options (%q)", ErrInvalidOption, o.Name)
	}
	return o.Validation.validate(o.Name)
}

func (r ValidationRule) validate(optionName string) error {
	switch r.Kind {
	case RuleAtLeast:
		if r.Min == nil {
			return fmt.Errorf("%w: %q at_least rule needs min", ErrInvalidOption, optionName)
		}
	case RuleAtMost:
		if r.Max == nil {
			return fmt.Errorf("%w: %q at_most rule needs max", ErrInvalidOption, optionName)
		}
	case RuleBetween:
		if r.Min == nil || r.Max == nil {
			return fmt.Errorf("%w: %q between rule needs min and max", ErrInvalidOption, optionName)
		}
	default:
		return fmt.Errorf("%w: %q has unknown rule kind %q", ErrInvalidOption, optionName, r.Kind)
	}
	if (r.Min != nil && *r.Min < 0) || (r.Max != nil && *r.Max < 0) {
		return fmt.Errorf("%w: %q rule bounds must not be negative", ErrInvalidOption, optionName)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%w: %q rule min %d exceeds max %d", ErrInvalidOption, optionName, *r.Min, *r.Max)
	}
	return nil
}
