package projection

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/example/order-engine/internal/domain/catalog"
	"github.com/example/order-engine/internal/domain/inventory"
	"github.com/example/order-engine/internal/domain/order"
	"github.com/example/order-engine/internal/domain/payment"
	"github.com/example/order-engine/internal/infrastructure/store"
	"github.com/example/order-engine/internal/readmodel"
	"github.com/sirupsen/logrus"
)

// Projector folds events into the read store. Every model remembers the
// stream version it has seen, so redelivered events are skipped.
type Projector struct {
	readStore store.ReadStoreInterface
	log       logrus.FieldLogger
}

func NewProjector(readStore store.ReadStoreInterface, log logrus.FieldLogger) *Projector {
	return &Projector{readStore: readStore, log: log.WithField("component", "projector")}
}

// HandleEvent decodes a message value and projects it. It matches the Kafka
// consumer's handler signature.
func (p *Projector) HandleEvent(ctx context.Context, key, value []byte) error {
	var event store.Event
	if err := json.Unmarshal(value, &event); err != nil {
		return err
	}
	return p.Project(ctx, event)
}

// Publish projects an event as soon as it is stored, for the memory backend
// where no bus sits between writer and projector. Projection failures are
// logged; the event itself is already stored.
func (p *Projector) Publish(ctx context.Context, key string, event any) error {
	e, ok := event.(store.Event)
	if !ok {
		p.log.WithField("key", key).Warnf("cannot project %T", event)
		return nil
	}
	if err := p.Project(ctx, e); err != nil {
		p.log.WithError(err).WithField("key", key).Error("inline projection failed")
	}
	return nil
}

// Project applies one event. Unknown aggregates and event types are ignored.
func (p *Projector) Project(ctx context.Context, event store.Event) error {
	p.log.WithFields(logrus.Fields{
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID,
		"version":        event.Version,
	}).Debug("projecting event")

	var err error
	switch event.AggregateType {
	case catalog.AggregateType:
		err = p.handleProductEvent(event)
	case order.AggregateType:
		err = p.handleOrderEvent(event)
	case inventory.AggregateType:
		err = p.handleInventoryEvent(event)
	case payment.AggregateType:
		err = p.handlePaymentEvent(event)
	}
	if err != nil {
		return fmt.Errorf("project %s: %w", event.EventType, err)
	}
	return nil
}

// seen reports whether a model at version current already includes event
func seen(current int, event store.Event) bool {
	return event.Version > 0 && event.Version <= current
}

func (p *Projector) handleProductEvent(event store.Event) error {
	switch event.EventType {
	case catalog.EventProductCreated:
		var e catalog.ProductCreated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		if current, ok, err := p.readStore.Get(store.CollectionProducts, e.ProductID); err != nil {
			return err
		} else if ok && seen(current.(*readmodel.ProductReadModel).Version, event) {
			return nil
		}

		stock := 0
		inv, ok, err := p.readStore.Get(store.CollectionInventory, e.ProductID)
		if err != nil {
			return err
		}
		if ok {
			stock = inv.(*readmodel.InventoryReadModel).OnHand
		}
		return p.readStore.Set(store.CollectionProducts, e.ProductID, &readmodel.ProductReadModel{
			ID:          e.ProductID,
			Name:        e.Name,
			Description: e.Description,
			Price:       e.Price,
			Options:     e.Options,
			Variants:    e.Variants,
			Inventory:   e.Inventory,
			Stock:       stock,
			Version:     event.Version,
			CreatedAt:   e.CreatedAt,
			UpdatedAt:   e.CreatedAt,
		})

	case catalog.EventProductUpdated:
		var e catalog.ProductUpdated
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updateProduct(e.ProductID, event, func(prod *readmodel.ProductReadModel) {
			prod.Name = e.Name
			prod.Description = e.Description
			prod.Price = e.Price
			prod.Options = e.Options
			prod.Variants = e.Variants
			prod.UpdatedAt = e.UpdatedAt
		})

	case catalog.EventInventoryPolicyChanged:
		var e catalog.InventoryPolicyChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updateProduct(e.ProductID, event, func(prod *readmodel.ProductReadModel) {
			prod.Inventory = e.Policy
			prod.UpdatedAt = e.ChangedAt
		})

	case catalog.EventProductDeleted:
		var e catalog.ProductDeleted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.readStore.Delete(store.CollectionProducts, e.ProductID)
	}
	return nil
}

func (p *Projector) updateProduct(productID string, event store.Event, apply func(*readmodel.ProductReadModel)) error {
	_, err := p.readStore.Update(store.CollectionProducts, productID, func(current any) any {
		prod := current.(*readmodel.ProductReadModel)
		if seen(prod.Version, event) {
			return prod
		}
		apply(prod)
		if event.Version > 0 {
			prod.Version = event.Version
		}
		return prod
	})
	return err
}

func (p *Projector) handleOrderEvent(event store.Event) error {
	switch event.EventType {
	case order.EventOrderPlaced:
		var e order.OrderPlaced
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		current, ok, err := p.readStore.Get(store.CollectionOrders, e.OrderID)
		if err != nil {
			return err
		}
		model := &readmodel.OrderReadModel{}
		if ok {
			model = current.(*readmodel.OrderReadModel)
			if seen(model.Version, event) {
				return nil
			}
		}
		// payment events may have arrived first; keep what they recorded
		model.ID = e.OrderID
		model.CartID = e.CartID
		model.Items = e.Items
		model.Adjustments = e.Adjustments
		model.Charges = e.Charges
		model.Pricing = e.Pricing
		model.Summary = e.Pricing.Summary()
		model.Statuses = e.Statuses
		model.SideEffects = []order.OrderSideEffectRecorded{}
		model.Version = event.Version
		model.CreatedAt = e.PlacedAt
		model.UpdatedAt = e.PlacedAt
		return p.readStore.Set(store.CollectionOrders, e.OrderID, model)

	case order.EventOrderEdited:
		var e order.OrderEdited
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updateOrder(e.OrderID, event, func(o *readmodel.OrderReadModel) {
			o.Items = e.Items
			o.Adjustments = e.Adjustments
			o.Charges = e.Charges
			o.Pricing = e.Pricing
			o.Summary = e.Pricing.Summary()
			o.UpdatedAt = e.EditedAt
		})

	case order.EventOrderStatusChanged:
		var e order.OrderStatusChanged
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updateOrder(e.OrderID, event, func(o *readmodel.OrderReadModel) {
			o.Statuses = o.Statuses.With(e.Dimension, e.To)
			o.UpdatedAt = e.ChangedAt
		})

	case order.EventOrderSideEffectRecorded:
		var e order.OrderSideEffectRecorded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updateOrder(e.OrderID, event, func(o *readmodel.OrderReadModel) {
			o.SideEffects = append(o.SideEffects, e)
			o.PendingSideEffects = len((&order.Order{SideEffects: o.SideEffects}).PendingSideEffects())
		})
	}
	return nil
}

func (p *Projector) updateOrder(orderID string, event store.Event, apply func(*readmodel.OrderReadModel)) error {
	found, err := p.readStore.Update(store.CollectionOrders, orderID, func(current any) any {
		o := current.(*readmodel.OrderReadModel)
		if seen(o.Version, event) {
			return o
		}
		apply(o)
		if event.Version > 0 {
			o.Version = event.Version
		}
		return o
	})
	if err != nil {
		return err
	}
	if !found {
		p.log.WithFields(logrus.Fields{"order_id": orderID, "event_type": event.EventType}).
			Warn("order read model missing, event skipped")
	}
	return nil
}

func (p *Projector) handleInventoryEvent(event store.Event) error {
	var (
		productID string
		apply     func(inv *readmodel.InventoryReadModel)
	)

	switch event.EventType {
	case inventory.EventStockAdded:
		var e inventory.StockAdded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID = e.ProductID
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.OnHand += e.Quantity
			inv.Received += e.Quantity
			inv.UpdatedAt = e.AddedAt
		}

	case inventory.EventStockDeducted:
		var e inventory.StockDeducted
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID = e.ProductID
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.OnHand -= e.Quantity
			inv.Deducted += e.Quantity
			inv.UpdatedAt = e.DeductedAt
		}

	case inventory.EventStockRestocked:
		var e inventory.StockRestocked
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		productID = e.ProductID
		apply = func(inv *readmodel.InventoryReadModel) {
			inv.OnHand += e.Quantity
			inv.Restocked += e.Quantity
			inv.UpdatedAt = e.RestockedAt
		}

	default:
		return nil
	}

	current, ok, err := p.readStore.Get(store.CollectionInventory, productID)
	if err != nil {
		return err
	}
	inv := &readmodel.InventoryReadModel{ProductID: productID}
	if ok {
		inv = current.(*readmodel.InventoryReadModel)
		if seen(inv.Version, event) {
			return nil
		}
	}
	apply(inv)
	if event.Version > 0 {
		inv.Version = event.Version
	}
	if err := p.readStore.Set(store.CollectionInventory, productID, inv); err != nil {
		return err
	}

	// Also update product stock
	_, err = p.readStore.Update(store.CollectionProducts, productID, func(current any) any {
		prod := current.(*readmodel.ProductReadModel)
		prod.Stock = inv.OnHand
		return prod
	})
	return err
}

func (p *Projector) handlePaymentEvent(event store.Event) error {
	switch event.EventType {
	case payment.EventPaymentCaptured:
		var e payment.PaymentCaptured
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updatePayment(e.OrderID, event, func(pay *readmodel.PaymentReadModel) {
			pay.Captured = pay.Captured.Add(e.Amount)
		})

	case payment.EventPaymentRefunded:
		var e payment.PaymentRefunded
		if err := json.Unmarshal(event.Data, &e); err != nil {
			return err
		}
		return p.updatePayment(e.OrderID, event, func(pay *readmodel.PaymentReadModel) {
			pay.Refunded = pay.Refunded.Add(e.Amount)
		})
	}
	return nil
}

func (p *Projector) updatePayment(orderID string, event store.Event, apply func(*readmodel.PaymentReadModel)) error {
	found, err := p.readStore.Update(store.CollectionOrders, orderID, func(current any) any {
		o := current.(*readmodel.OrderReadModel)
		if seen(o.Payment.Version, event) {
			return o
		}
		apply(&o.Payment)
		if event.Version > 0 {
			o.Payment.Version = event.Version
		}
		return o
	})
	if err != nil || found {
		return err
	}

	// the order has not been projected yet
	model := &readmodel.OrderReadModel{ID: orderID}
	apply(&model.Payment)
	model.Payment.Version = event.Version
	return p.readStore.Set(store.CollectionOrders, orderID, model)
}
