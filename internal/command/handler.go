package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/order-engine/internal/domain/cart"
	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/lifecycle"
	"github.com/example/order-engine/internal/domain/option"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/domain/pricing"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

var ErrUnknownAction = errors.New("unknown side effect action")

type Handler struct {
	catalogSvc *catalog.Service
	cartSvc    *cart.Service
	orderSvc   *order.Service
	stockSvc   *inventory.Service
	products   CatalogStore
	machine    *lifecycle.Machine
	locks      *orderLocks
	log        logrus.FieldLogger
}

// NewHandler wires the engine. confirmer is the default gate for side
// effects; every order operation may override it per call.
func NewHandler(
	catalogSvc *catalog.Service,
	cartSvc *cart.Service,
	orderSvc *order.Service,
	stockSvc *inventory.Service,
	paymentSvc *payment.Service,
	products CatalogStore,
	confirmer inventory.Confirmer,
	log logrus.FieldLogger,
) *Handler {
	reconciler := inventory.NewReconciler(NewServiceMutator(stockSvc, paymentSvc), confirmer, log)
	return &Handler{
		catalogSvc: catalogSvc,
		cartSvc:    cartSvc,
		orderSvc:   orderSvc,
		stockSvc:   stockSvc,
		products:   products,
		machine:    lifecycle.NewMachine(orderSvc, reconciler, log),
		locks:      newOrderLocks(),
		log:        log.WithField("component", "command"),
	}
}

// ============================================
// Catalog
// ============================================

// CreateProduct creates a product and seeds its stock
func (h *Handler) CreateProduct(ctx context.Context, cmd CreateProduct) (*catalog.Product, error) {
	if cmd.InitialStock < 0 {
		return nil, inventory.ErrInvalidQuantity
	}

	p, err := h.catalogSvc.Create(ctx, cmd.CreateProduct)
	if err != nil {
		return nil, err
	}

	if cmd.InitialStock > 0 {
		if err := h.stockSvc.AddStock(ctx, p.ID, cmd.InitialStock); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func (h *Handler) UpdateProduct(ctx context.Context, cmd UpdateProduct) error {
	return h.catalogSvc.Update(ctx, cmd)
}

func (h *Handler) DeleteProduct(ctx context.Context, cmd DeleteProduct) error {
	return h.catalogSvc.Delete(ctx, cmd.ProductID)
}

func (h *Handler) SetInventoryPolicy(ctx context.Context, cmd SetInventoryPolicy) error {
	return h.catalogSvc.SetInventoryPolicy(ctx, cmd.ProductID, cmd.Policy)
}

// AddStock receives stock for an existing product
func (h *Handler) AddStock(ctx context.Context, cmd AddStock) error {
	if _, err := h.catalogSvc.Get(ctx, cmd.ProductID); err != nil {
		return err
	}
	return h.stockSvc.AddStock(ctx, cmd.ProductID, cmd.Quantity)
}

// ============================================
// Selections
// ============================================

// SelectionCheck is the evaluation of a selection against its product
type SelectionCheck struct {
	Selection cart.Selection      `json:"selection"`
	Valid     bool                `json:"valid"`
	Result    option.Result       `json:"result"`
	Disabled  map[string][]string `json:"disabled_choices"`
}

// ValidateSelection resolves a request and evaluates the option rules.
// Rule failures are reported in the check, not as an error; errors are
// reserved for unknown products or references.
func (h *Handler) ValidateSelection(ctx context.Context, req cart.Request) (*SelectionCheck, error) {
	product, sel, err := h.resolve(ctx, req)
	if err != nil {
		return nil, err
	}

	result := option.Validate(product, sel)
	return &SelectionCheck{
		Selection: sel,
		Valid:     !result.HasErrors(),
		Result:    result,
		Disabled:  option.DisabledChoices(product, sel),
	}, nil
}

// PricedSelection is a selection with its unit price and line total
type PricedSelection struct {
	Selection cart.Selection  `json:"selection"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// PriceSelection prices a request without touching any cart
func (h *Handler) PriceSelection(ctx context.Context, req cart.Request) (*PricedSelection, error) {
	_, sel, err := h.resolve(ctx, req)
	if err != nil {
		return nil, err
	}
	return &PricedSelection{Selection: sel, UnitPrice: sel.UnitPrice, LineTotal: pricing.LineTotal(sel)}, nil
}

func (h *Handler) resolve(ctx context.Context, req cart.Request) (*catalog.Product, cart.Selection, error) {
	product, err := h.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, cart.Selection{}, err
	}
	sel, err := cart.Build(product, req)
	if err != nil {
		return nil, cart.Selection{}, err
	}
	return product, pricing.Priced(sel), nil
}

// ============================================
// Cart
// ============================================

// AddToCart validates a selection and adds it to the cart. A new cart is
// started when CartID is empty.
func (h *Handler) AddToCart(ctx context.Context, cmd AddToCart) (*cart.Cart, error) {
	product, sel, err := h.resolve(ctx, cmd.Request)
	if err != nil {
		return nil, err
	}
	if err := option.Validate(product, sel).Err(); err != nil {
		return nil, err
	}

	cartID := cmd.CartID
	if cartID == "" {
		cartID = cart.NewCartID()
	}
	c, err := h.cartSvc.Get(ctx, cartID)
	if err != nil {
		return nil, err
	}

	requested := c.QuantityOf(product.ID) + sel.Quantity
	if err := cart.CheckInventory(product.ID, product.Inventory, requested); err != nil {
		return nil, err
	}
	return h.cartSvc.AddItem(ctx, cartID, sel)
}

// GetCart returns a cart; unknown ids are empty carts
func (h *Handler) GetCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	return h.cartSvc.Get(ctx, cartID)
}

// AddManualItem adds a line that is not backed by the catalog
func (h *Handler) AddManualItem(ctx context.Context, cmd AddManualItem) (*cart.Cart, error) {
	sel, err := cart.Manual(cmd.Name, cmd.UnitPrice, cmd.Quantity)
	if err != nil {
		return nil, err
	}
	cartID := cmd.CartID
	if cartID == "" {
		cartID = cart.NewCartID()
	}
	return h.cartSvc.AddItem(ctx, cartID, sel)
}

func (h *Handler) RemoveFromCart(ctx context.Context, cmd RemoveFromCart) (*cart.Cart, error) {
	return h.cartSvc.RemoveItem(ctx, cmd.CartID, cmd.LineID)
}

// ============================================
// Orders
// ============================================

// OrderResult is a committed order write and the side effects it caused
type OrderResult struct {
	Order    *order.Order       `json:"order"`
	Effects  []lifecycle.Effect `json:"effects"`
	Warnings []string           `json:"warnings"`
}

// PlaceOrder turns a cart into an order. Inventory conflicts block the
// order; the stock deduction runs after the order is stored and only when
// confirmed.
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder, confirmer inventory.Confirmer) (*OrderResult, error) {
	c, err := h.cartSvc.Get(ctx, cmd.CartID)
	if err != nil {
		return nil, err
	}
	if len(c.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}

	if err := h.checkConflicts(ctx, nil, c.Items, false); err != nil {
		return nil, err
	}

	o, err := h.orderSvc.Place(ctx, order.PlaceOrder{
		CartID:      c.ID,
		Items:       c.Items,
		Adjustments: cmd.Adjustments,
		Charges:     cmd.Charges,
	})
	if err != nil {
		return nil, err
	}

	res := &OrderResult{Order: o, Effects: []lifecycle.Effect{}, Warnings: []string{}}
	if err := h.cartSvc.Clear(ctx, c.ID); err != nil {
		h.log.WithError(err).WithField("cart_id", c.ID).Warn("failed to clear cart after order")
		res.Warnings = append(res.Warnings, "order placed, but the cart could not be cleared")
	}

	var steps []lifecycle.Step
	if inventory.PolicyFor(o.Items).AnyItemTracksQuantity {
		if lines := inventory.LinesFor(o.Items); len(lines) > 0 {
			steps = append(steps, lifecycle.Step{
				Action:  inventory.ActionDeduct,
				Lines:   lines,
				Message: fmt.Sprintf("Order %s placed. Deduct its items from stock?", o.ID),
			})
		}
	}
	h.finish(ctx, res, "order_placed", steps, confirmer)
	return res, nil
}

// EditPreview is what saving an edit would do
type EditPreview struct {
	OrderID string           `json:"order_id"`
	Version int              `json:"version"`
	Items   []cart.Selection `json:"items"`
	Diff    order.Diff       `json:"diff"`
	Plan    inventory.Plan   `json:"plan"`
	Deduct  []inventory.Line `json:"deduct"`
	Restock []inventory.Line `json:"restock"`
}

// ComputeOrderDiff diffs edited items against the freshly fetched order
// and plans the inventory actions. Nothing is written.
func (h *Handler) ComputeOrderDiff(ctx context.Context, orderID string, edited []cart.Selection) (*EditPreview, error) {
	stored, err := h.orderSvc.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	items, err := h.resolveItems(ctx, stored.Items, edited)
	if err != nil {
		return nil, err
	}
	return preview(stored, items), nil
}

// resolveItems rebuilds every catalog line of an edit from the catalog, so
// prices, stamps and stock tracking never come from the caller. A line
// whose product has left the catalog keeps the stamp of the stored line
// it matches. Manual lines are taken as given.
func (h *Handler) resolveItems(ctx context.Context, stored, edited []cart.Selection) ([]cart.Selection, error) {
	items := make([]cart.Selection, 0, len(edited))
	for _, item := range edited {
		if item.Quantity <= 0 {
			return nil, cart.ErrInvalidQuantity
		}
		if item.IsManual() {
			items = append(items, item)
			continue
		}

		product, sel, err := h.resolve(ctx, item.Request())
		if errors.Is(err, catalog.ErrProductNotFound) {
			if kept, ok := storedLine(stored, item); ok {
				items = append(items, kept)
				continue
			}
		}
		if err != nil {
			return nil, err
		}
		if err := option.Validate(product, sel).Err(); err != nil {
			return nil, err
		}
		items = append(items, sel)
	}
	return items, nil
}

func storedLine(stored []cart.Selection, item cart.Selection) (cart.Selection, bool) {
	key := item.Key()
	for _, s := range stored {
		if s.Key() == key {
			s.Quantity = item.Quantity
			return s, true
		}
	}
	return cart.Selection{}, false
}

func preview(stored *order.Order, edited []cart.Selection) *EditPreview {
	items := make([]cart.Selection, len(edited))
	for i, item := range edited {
		items[i] = pricing.Priced(item)
	}
	items = order.CarryLineIDs(stored.Items, items)

	diff := order.ComputeDiff(stored.Items, items)
	p := &EditPreview{
		OrderID: stored.ID,
		Version: stored.Version,
		Items:   items,
		Diff:    diff,
		Deduct:  []inventory.Line{},
		Restock: []inventory.Line{},
	}
	// a cancelled order already gave its stock back
	if stored.Statuses.Order == order.OrderCancelled {
		return p
	}

	p.Plan = inventory.PlanActions(diff, inventory.PolicyFor(stored.Items, items))
	if p.Plan.ShouldDeduct {
		p.Deduct = nonNil(inventory.DeductLines(diff))
	}
	if p.Plan.ShouldRestock {
		p.Restock = nonNil(inventory.RestockLines(diff))
	}
	return p
}

// PlanInventoryActions decides deduct and restock for a computed diff
func (h *Handler) PlanInventoryActions(diff order.Diff, policy inventory.Policy) inventory.Plan {
	return inventory.PlanActions(diff, policy)
}

// PlanInventoryActionsForStatusChange plans the stock side of moving the
// order status of an order, without writing anything.
func (h *Handler) PlanInventoryActionsForStatusChange(ctx context.Context, orderID string, to order.OrderStatus) (inventory.Plan, error) {
	if !order.ValidTarget(order.DimensionOrder, string(to)) {
		return inventory.Plan{}, order.ErrInvalidStatus
	}
	o, err := h.orderSvc.Get(ctx, orderID)
	if err != nil {
		return inventory.Plan{}, err
	}
	return inventory.PlanForStatusChange(string(o.Statuses.Order), string(to), inventory.PolicyFor(o.Items)), nil
}

// EditResult is a saved edit and the side effects it caused
type EditResult struct {
	OrderResult
	Diff order.Diff     `json:"diff"`
	Plan inventory.Plan `json:"plan"`
}

// EditOrder saves new items for an order. Catalog lines are rebuilt from
// the catalog and must pass the option rules. The diff is computed against
// a fresh read under the order's lock; if the caller read an older version
// the edit is rejected with a *order.ConcurrencyError.
func (h *Handler) EditOrder(ctx context.Context, cmd EditOrder, confirmer inventory.Confirmer) (*EditResult, error) {
	if len(cmd.Items) == 0 {
		return nil, order.ErrEmptyOrder
	}
	for _, item := range cmd.Items {
		if item.Quantity <= 0 {
			return nil, cart.ErrInvalidQuantity
		}
	}

	unlock := h.locks.lock(cmd.OrderID)
	defer unlock()

	stored, err := h.orderSvc.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if cmd.ExpectedVersion != 0 && cmd.ExpectedVersion != stored.Version {
		return nil, &order.ConcurrencyError{OrderID: stored.ID, Expected: cmd.ExpectedVersion, Actual: stored.Version}
	}

	items, err := h.resolveItems(ctx, stored.Items, cmd.Items)
	if err != nil {
		return nil, err
	}
	p := preview(stored, items)
	if err := h.checkConflicts(ctx, stored.Items, p.Items, stored.Statuses.Order == order.OrderCancelled); err != nil {
		return nil, err
	}

	adjustments := stored.Adjustments
	if cmd.Adjustments != nil {
		adjustments = cmd.Adjustments
	}
	charges := stored.Charges
	if cmd.Charges != nil {
		charges = *cmd.Charges
	}

	saved, err := h.orderSvc.SaveEdit(ctx, stored.ID, stored.Version, order.EditPayload{
		Items:            p.Items,
		Adjustments:      adjustments,
		Charges:          charges,
		Pricing:          pricing.Totalize(p.Items, adjustments, charges),
		NewItems:         p.Diff.NewItems,
		IncreaseQuantity: p.Diff.IncreaseQuantity,
		DecreaseQuantity: p.Diff.DecreaseQuantity,
		RemovedItems:     p.Diff.RemovedItems,
		ShouldDeduct:     p.Plan.ShouldDeduct,
		ShouldRestock:    p.Plan.ShouldRestock,
	})
	if err != nil {
		return nil, err
	}

	var steps []lifecycle.Step
	if len(p.Restock) > 0 {
		steps = append(steps, lifecycle.Step{Action: inventory.ActionRestock, Lines: p.Restock,
			Message: fmt.Sprintf("Order %s edited. Return %d line(s) to stock?", saved.ID, len(p.Restock))})
	}
	if len(p.Deduct) > 0 {
		steps = append(steps, lifecycle.Step{Action: inventory.ActionDeduct, Lines: p.Deduct,
			Message: fmt.Sprintf("Order %s edited. Deduct %d line(s) from stock?", saved.ID, len(p.Deduct))})
	}

	res := &OrderResult{Order: saved, Effects: []lifecycle.Effect{}, Warnings: []string{}}
	trigger := fmt.Sprintf("order_edited:v%d", saved.Version)
	h.finish(ctx, res, trigger, steps, confirmer)

	h.log.WithFields(logrus.Fields{
		"order_id": saved.ID,
		"version":  res.Order.Version,
		"deduct":   p.Plan.ShouldDeduct,
		"restock":  p.Plan.ShouldRestock,
	}).Info("order edited")
	return &EditResult{OrderResult: *res, Diff: p.Diff, Plan: p.Plan}, nil
}

// ApplyStatusTransition moves one status dimension and runs the side
// effects the move implies.
func (h *Handler) ApplyStatusTransition(ctx context.Context, cmd ChangeStatus, confirmer inventory.Confirmer) (*lifecycle.Result, error) {
	unlock := h.locks.lock(cmd.OrderID)
	defer unlock()

	res, err := h.machine.Apply(ctx, cmd.OrderID, cmd.Transition, confirmer)
	if err != nil {
		return nil, err
	}
	if len(res.Effects) > 0 {
		if fresh, err := h.orderSvc.Get(ctx, cmd.OrderID); err == nil {
			res.Order = fresh
		}
	}
	return res, nil
}

// RetrySideEffect runs the oldest unresolved failed side effect of the
// given action again, with the lines it originally carried.
func (h *Handler) RetrySideEffect(ctx context.Context, cmd RetrySideEffect, confirmer inventory.Confirmer) (*OrderResult, error) {
	if !cmd.Action.Valid() {
		return nil, ErrUnknownAction
	}

	unlock := h.locks.lock(cmd.OrderID)
	defer unlock()

	o, err := h.orderSvc.Get(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	var failed *order.OrderSideEffectRecorded
	pending := o.PendingSideEffects()
	for i := range pending {
		if pending[i].Action == string(cmd.Action) {
			failed = &pending[i]
			break
		}
	}
	if failed == nil {
		return nil, order.ErrNothingToDo
	}

	res := &OrderResult{Order: o, Effects: []lifecycle.Effect{}, Warnings: []string{}}
	step := lifecycle.Step{
		Action:  cmd.Action,
		Lines:   failed.Lines,
		Retries: failed.ID,
		Message: fmt.Sprintf("Retry %s for order %s (first tried on %s)?", cmd.Action, o.ID, failed.Trigger),
	}
	h.finish(ctx, res, "retry:"+failed.Trigger, []lifecycle.Step{step}, confirmer)
	return res, nil
}

// finish runs steps for a committed write and refreshes the order so the
// recorded outcomes are part of the result.
func (h *Handler) finish(ctx context.Context, res *OrderResult, trigger string, steps []lifecycle.Step, confirmer inventory.Confirmer) {
	if len(steps) == 0 {
		return
	}

	effects, warnings := h.machine.Run(ctx, res.Order, trigger, steps, confirmer)
	res.Effects = append(res.Effects, effects...)
	res.Warnings = append(res.Warnings, warnings...)

	fresh, err := h.orderSvc.Get(ctx, res.Order.ID)
	if err != nil {
		h.log.WithError(err).WithField("order_id", res.Order.ID).Warn("failed to reload order")
		return
	}
	res.Order = fresh
}

// checkConflicts checks every catalog product whose quantity grows from
// stored to edited. Stock already held by the order counts as available
// unless released is set.
func (h *Handler) checkConflicts(ctx context.Context, stored, edited []cart.Selection, released bool) error {
	seen := make(map[string]bool)
	for _, item := range edited {
		if item.IsManual() || seen[item.ProductID] {
			continue
		}
		seen[item.ProductID] = true

		held := cart.QuantityOf(stored, item.ProductID)
		requested := cart.QuantityOf(edited, item.ProductID)
		if requested <= held {
			continue
		}

		product, err := h.products.GetProduct(ctx, item.ProductID)
		if err != nil {
			return err
		}
		policy := product.Inventory
		if released {
			policy.TrackQuantity = false
		} else {
			policy.Quantity += held
		}
		if err := cart.CheckInventory(item.ProductID, policy, requested); err != nil {
			return err
		}
	}
	return nil
}

func nonNil(lines []inventory.Line) []inventory.Line {
	if lines == nil {
		return []inventory.Line{}
	}
	return lines
}
